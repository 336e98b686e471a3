package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeSurvivesWrapping(t *testing.T) {
	base := Newf(CodeNotFound, "Topic not found: %s", "abc")
	wrapped := fmt.Errorf("graph: %w", base)

	assert.True(t, IsCode(wrapped, CodeNotFound))
	assert.False(t, IsCode(wrapped, CodeInternal))
	assert.Equal(t, "not_found: Topic not found: abc", base.Error())
	assert.Equal(t, CodeUnknown, CodeOf(fmt.Errorf("plain")))
	assert.False(t, IsCode(nil, CodeUnknown))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeInvalid:   http.StatusBadRequest,
		CodeNotFound:  http.StatusNotFound,
		CodeConflict:  http.StatusConflict,
		CodeInternal:  http.StatusInternalServerError,
		CodeForbidden: http.StatusForbidden,
	}
	for code, want := range cases {
		assert.Equal(t, want, HTTPStatus(New(code, "x")), code)
	}
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(fmt.Errorf("boom")))
}
