package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

func TestEnvironmentNames(t *testing.T) {
	var a Application
	assert.Nil(t, a.EnvironmentNames())

	a.SetEnvironments([]string{"dev", "prod"})
	assert.Equal(t, []string{"dev", "prod"}, a.EnvironmentNames())

	a.SetEnvironments(nil)
	assert.JSONEq(t, `[]`, string(a.Environments))
	assert.Empty(t, a.EnvironmentNames())

	a.Environments = datatypes.JSON(`{"not":"a list"}`)
	assert.Nil(t, a.EnvironmentNames())
}

func TestOptionalRef(t *testing.T) {
	_, ok := OptionalRef[Workspace](nil, nil)
	assert.False(t, ok)

	nilID := uuid.Nil
	_, ok = OptionalRef[Workspace](&nilID, nil)
	assert.False(t, ok)

	id := uuid.New()
	ref, ok := OptionalRef(&id, &Workspace{Slug: "payments"})
	assert.True(t, ok)
	assert.Equal(t, id, ref.ID)
	assert.True(t, ref.IsResolved())
	assert.False(t, RefOf[Topic](id, nil).IsResolved())
}
