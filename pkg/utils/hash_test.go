package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentKeyIsStable(t *testing.T) {
	a := ContentKey("lineage:ingest", []byte(`[{"bytes":1}]`))
	b := ContentKey("lineage:ingest", []byte(`[{"bytes":1}]`))
	c := ContentKey("lineage:ingest", []byte(`[{"bytes":2}]`))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasPrefix(a, "lineage:ingest:"))
	assert.Len(t, a, len("lineage:ingest:")+64)
}
