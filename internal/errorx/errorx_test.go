package errorx

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandler(t *testing.T) {
	cause := errors.New("pq: connection refused")

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"code error", BadRequest("symbols is required"), http.StatusBadRequest, "symbols is required"},
		{"wrapped code error", fmt.Errorf("logic: %w", Unauthorized("bad signature")), http.StatusUnauthorized, "bad signature"},
		{"internal hides cause", Internal("Failed to refresh cache", cause), http.StatusInternalServerError, "Failed to refresh cache"},
		{"plain error", cause, http.StatusInternalServerError, defaultMsg},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := Handler(t.Context(), tt.err)

			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, &Body{Error: tt.wantMsg}, body)
			_, isErr := body.(error)
			assert.False(t, isErr, "error bodies are written as plain text by httpx")
		})
	}
}

func TestInternalUnwraps(t *testing.T) {
	cause := errors.New("boom")
	err := Internal("Failed to fetch market data", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Failed to fetch market data: boom", err.Error())
}
