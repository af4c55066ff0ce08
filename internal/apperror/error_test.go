package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetCode(t *testing.T) {
	assert.Equal(t, Code(""), GetCode(nil))
	assert.Equal(t, CodeNotFound, GetCode(NotFound("Request not found.")))
	assert.Equal(t, CodeConflict, GetCode(fmt.Errorf("delete: %w", Conflict("blocked"))))
	assert.Equal(t, CodeInternal, GetCode(errors.New("disk full")))
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "blank", Message(Validation("blank")))
	assert.Equal(t, "An unexpected error occurred.", Message(errors.New("secret detail")))
	assert.Equal(t, "An unexpected error occurred.", Message(Internal(errors.New("secret detail"))))
}

func TestWrapUnwraps(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(CodeValidation, "bad input", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "bad input: boom", err.Error())
}

func TestHTTPStatus(t *testing.T) {
	tests := map[Code]int{
		CodeValidation:   http.StatusBadRequest,
		CodeConflict:     http.StatusBadRequest,
		CodeUnauthorized: http.StatusUnauthorized,
		CodeForbidden:    http.StatusForbidden,
		CodeNotFound:     http.StatusNotFound,
		CodeInternal:     http.StatusInternalServerError,
	}
	for code, want := range tests {
		assert.Equal(t, want, HTTPStatus(code), string(code))
	}
}
