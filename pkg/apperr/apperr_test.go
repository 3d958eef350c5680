package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("complete checkout: %w", New(CodeAlreadyPaid, "checkout lf_1 is paid"))

	require.ErrorIs(t, err, ErrAlreadyPaid)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, CodeAlreadyPaid, CodeOf(err))
	assert.Equal(t, http.StatusConflict, CodeOf(err).HTTPStatus())
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	assert.Equal(t, http.StatusInternalServerError, CodeInternal.HTTPStatus())
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(CodeInternal, "save section", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "save section: disk full", err.Error())
}

func TestCheck(t *testing.T) {
	var c Check
	require.NoError(t, c.Err())

	c.Require("name", false, "is required")
	c.Require("name", false, "is too short")
	c.Require("slug", true, "is required")

	err := c.Err()
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, map[string]string{"name": "is required"}, FieldsOf(err))
	assert.Equal(t, http.StatusUnprocessableEntity, CodeOf(err).HTTPStatus())
}
