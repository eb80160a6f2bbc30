package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"kinlib/domain/core"
)

func TestGetCodeFromDomainErrors(t *testing.T) {
	tests := []struct {
		err  error
		code string
		http int
	}{
		{core.NewUnknownKinaseError("NOPE"), CodeNotFound, http.StatusNotFound},
		{core.NewMalformedSubstrateError("s1", "too short"), CodeInvalidInput, http.StatusBadRequest},
		{fmt.Errorf("run: %w", core.ErrInsufficientPermutations), CodeInvalidInput, http.StatusBadRequest},
		{core.ErrMissingLibrary, CodeDataLoad, http.StatusServiceUnavailable},
		{stderrors.New("boom"), CodeInternalError, http.StatusInternalServerError},
		{ConfigInvalid("bad port"), CodeConfigInvalid, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, GetCode(tt.err), tt.err.Error())
		assert.Equal(t, tt.http, HTTPStatus(tt.err), tt.err.Error())
	}
}

func TestWrapKeepsCauseAndCode(t *testing.T) {
	err := Wrap(core.NewUnknownKinaseError("NOPE"), "score request")
	assert.True(t, IsAppError(err))
	assert.Equal(t, CodeNotFound, GetCode(err))
	assert.ErrorIs(t, err, core.ErrUnknownKinase)
	assert.Nil(t, Wrap(nil, "nothing"))

	coded := WithCode(CodeValidationError, fmt.Errorf("outer: %w", err))
	assert.Equal(t, CodeValidationError, GetCode(coded))
}
