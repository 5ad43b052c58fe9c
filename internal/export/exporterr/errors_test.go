package exporterr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"invalid input", InvalidInput("URL is required"), http.StatusBadRequest},
		{"fetch", Fetch("Failed to fetch content", errors.New("dial")), http.StatusInternalServerError},
		{"fetch timeout", FetchTimeout("Failed to fetch content", context.DeadlineExceeded), http.StatusInternalServerError},
		{"not found", NotFound("Remix context not found"), http.StatusNotFound},
		{"empty", Empty("empty conversation"), http.StatusNotFound},
		{"malformed", Malformed("malformed payload", errors.New("bad json")), http.StatusInternalServerError},
		{"render", Render("Failed to render PDF", nil), http.StatusInternalServerError},
		{"synthesis", Synthesis("Failed to render PDF", nil), http.StatusInternalServerError},
		{"wrapped not found", fmt.Errorf("pipeline: %w", NotFound("no messages found")), http.StatusNotFound},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HTTPStatus(tt.err))
		})
	}
}

func TestErrorsIs(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", FetchTimeout("Failed to fetch content", context.DeadlineExceeded))

	assert.ErrorIs(t, err, ErrFetch)
	assert.ErrorIs(t, err, ErrFetchTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrExtraction)

	notFound := NotFound("Linear conversation not found")
	assert.ErrorIs(t, notFound, ErrExtraction)
	assert.ErrorIs(t, notFound, ErrExtractionNotFound)
	assert.NotErrorIs(t, notFound, ErrExtractionEmpty)
	assert.NotErrorIs(t, notFound, ErrMalformed)
}

func TestIsKind(t *testing.T) {
	assert.True(t, IsKind(Render("x", nil), KindRender))
	assert.False(t, IsKind(Render("x", nil), KindFetch))
	assert.False(t, IsKind(errors.New("x"), KindRender))
	assert.False(t, IsKind(nil, KindRender))
}

func TestPublicMessageHidesCause(t *testing.T) {
	err := Malformed("malformed payload", errors.New("invalid character '}' at offset 812"))

	assert.Equal(t, "malformed payload", PublicMessage(err, "fallback"))
	assert.Contains(t, err.Error(), "offset 812")
	assert.Equal(t, "fallback", PublicMessage(errors.New("internal"), "fallback"))
}

func TestStageOf(t *testing.T) {
	assert.Equal(t, StageValidate, StageOf(InvalidInput("x")))
	assert.Equal(t, StageNormalize, StageOf(Empty("empty conversation")))
	assert.Equal(t, StageSynthesize, StageOf(Synthesis("x", nil)))
	assert.Equal(t, StageRender, StageOf(fmt.Errorf("w: %w", Render("x", nil))))
	assert.Equal(t, "unknown", StageOf(errors.New("x")))
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "extract: Remix context not found", NotFound("Remix context not found").Error())
	assert.Equal(t, "fetch: Failed to fetch content: status 503", Fetch("Failed to fetch content", errors.New("status 503")).Error())
}
