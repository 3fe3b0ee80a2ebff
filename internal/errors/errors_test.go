package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"reedfrost/domain/core"

	"github.com/stretchr/testify/assert"
)

func TestWrap_ClassifiesDomainErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"probability", core.NewProbabilityError(2), CodeInvalidInput, http.StatusBadRequest},
		{"target", core.NewTargetError(4, 3), CodeInvalidInput, http.StatusBadRequest},
		{"not found", core.ErrRunNotFound, CodeNotFound, http.StatusNotFound},
		{"determinism", core.NewDeterminismError("a", "b"), CodeNonDeterminism, http.StatusInternalServerError},
		{"other", fmt.Errorf("disk on fire"), CodeInternalError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := Wrap(tt.err, "computing")
			assert.Equal(t, tt.code, GetCode(wrapped))
			assert.Equal(t, tt.status, HTTPStatus(wrapped))
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
			assert.True(t, stderrors.Is(wrapped, tt.err))
		})
	}
}

func TestWrap_KeepsAppErrorCode(t *testing.T) {
	inner := ConfigInvalid("PORT is required")
	outer := Wrapf(inner, "loading %s", "server")

	assert.Equal(t, CodeConfigInvalid, GetCode(outer))
	assert.Equal(t, "loading server: PORT is required", outer.Error())
	assert.Nil(t, Wrap(nil, "nothing"))
	assert.Equal(t, "UNKNOWN", GetCode(stderrors.New("plain")))
}
