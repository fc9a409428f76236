package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(Validation("bad %s", "input")))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(Authorization("nope")))
	assert.Equal(t, http.StatusConflict, HTTPStatus(Conflict("already answered")))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NotFound("missing")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(Dependency(errors.New("db down"), "store message")))
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(Upstream(errors.New("timeout"), "store file")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("respond: %w", Conflict("proposal is not pending"))
	assert.True(t, Is(err, KindConflict))
	assert.Equal(t, "proposal is not pending", PublicMessage(err))
	assert.Equal(t, "internal error", PublicMessage(errors.New("raw")))
}

func TestDependencyUnwraps(t *testing.T) {
	cause := errors.New("smtp refused")
	err := Dependency(cause, "send digest")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "send digest: smtp refused", err.Error())
}
