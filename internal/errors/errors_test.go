package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"qaebench/domain/core"
)

func TestWrapKeepsCode(t *testing.T) {
	base := ConfigInvalid("bad port")
	wrapped := Wrap(base, "loading config")

	assert.Equal(t, CodeConfigInvalid, GetCode(wrapped))
	assert.True(t, stderrors.Is(wrapped, base))
	assert.Nil(t, Wrap(nil, "nothing"))
}

func TestFromDomainCodes(t *testing.T) {
	tests := []struct {
		err    error
		code   string
		status int
	}{
		{core.NewConfigurationError("nbins", "must be >= 1"), CodeConfigInvalid, http.StatusBadRequest},
		{core.NewDuplicateLabelError("BAE"), CodeConflict, http.StatusConflict},
		{core.NewLabelNotFoundError("BAE"), CodeNotFound, http.StatusNotFound},
		{fmt.Errorf("loading: %w", core.ErrRunNotFound), CodeNotFound, http.StatusNotFound},
		{core.ErrNoData, CodeNoData, http.StatusUnprocessableEntity},
		{core.NewLengthMismatchError("stds", 1, 2), CodeValidationError, http.StatusBadRequest},
		{stderrors.New("boom"), CodeInternalError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		got := FromDomain(tt.err)
		assert.Equal(t, tt.code, GetCode(got), tt.err.Error())
		assert.True(t, stderrors.Is(got, tt.err))
		assert.Equal(t, tt.status, HTTPStatus(tt.err))
	}
}

func TestFromDomainNestedAppError(t *testing.T) {
	inner := InvalidInput("limit must be a non-negative integer")
	outer := fmt.Errorf("api: %w", inner)

	got := FromDomain(outer)
	assert.Equal(t, CodeInvalidInput, GetCode(got))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(outer))
	assert.Nil(t, FromDomain(nil))
}

func TestDatabaseError(t *testing.T) {
	failure := DatabaseError(stderrors.New("sql: database is closed"), "failed to list runs")
	assert.Equal(t, CodeDatabaseError, GetCode(failure))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(failure))

	missing := DatabaseError(fmt.Errorf("%w: abc", core.ErrRunNotFound), "failed to load run abc")
	assert.Equal(t, CodeNotFound, GetCode(missing))
	assert.ErrorIs(t, missing, core.ErrRunNotFound)
	assert.Equal(t, http.StatusNotFound, HTTPStatus(missing))

	invalid := DatabaseError(core.NewLengthMismatchError("stds", 1, 2), "failed to save run")
	assert.Equal(t, CodeValidationError, GetCode(invalid))

	assert.Nil(t, DatabaseError(nil, "nothing"))
}

func TestWrapfFormatsMessage(t *testing.T) {
	err := Wrapf(ConfigInvalid("bad port"), "loading %s", ".env")
	assert.Equal(t, "loading .env: bad port", err.Error())
	assert.Equal(t, CodeConfigInvalid, GetCode(err))
	assert.Nil(t, Wrapf(nil, "loading %s", ".env"))
}
