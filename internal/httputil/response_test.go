package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/germainlefebvre4/cvwonder-studio/internal/errors"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, map[string]string{"id": "abc"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":"abc"}`, rec.Body.String())
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   apperrors.ErrorCode
	}{
		{"validation", apperrors.ValidationError("bad"), http.StatusBadRequest, apperrors.ErrCodeValidation},
		{"invalid input", apperrors.InvalidInput("format", "nope"), http.StatusBadRequest, apperrors.ErrCodeInvalidInput},
		{"missing required", apperrors.MissingRequired("Session ID"), http.StatusBadRequest, apperrors.ErrCodeMissingRequired},
		{"invalid retention", apperrors.InvalidRetention(0, 7), http.StatusBadRequest, apperrors.ErrCodeInvalidRetention},
		{"invalid theme", apperrors.InvalidTheme("x"), http.StatusBadRequest, apperrors.ErrCodeInvalidTheme},
		{"not found", apperrors.NotFound("Session"), http.StatusNotFound, apperrors.ErrCodeNotFound},
		{"rate limited", apperrors.RateLimitExceeded(), http.StatusTooManyRequests, apperrors.ErrCodeRateLimitExceeded},
		{"theme unavailable", apperrors.ThemeUnavailable("x", errors.New("boom")), http.StatusInternalServerError, apperrors.ErrCodeThemeUnavailable},
		{"render failed", apperrors.RenderFailed("boom"), http.StatusInternalServerError, apperrors.ErrCodeRenderFailed},
		{"artifact missing", apperrors.ArtifactMissing("/p"), http.StatusInternalServerError, apperrors.ErrCodeArtifactMissing},
		{"database", apperrors.Database(errors.New("down")), http.StatusInternalServerError, apperrors.ErrCodeDatabase},
		{"unknown error wrapped as internal", errors.New("plain"), http.StatusInternalServerError, apperrors.ErrCodeInternal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, tc.err)

			assert.Equal(t, tc.wantStatus, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tc.wantCode, resp.Code)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestWriteErrorNeverLeaksInternalMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errors.New("password=hunter2 connection refused"))

	assert.NotContains(t, rec.Body.String(), "hunter2")
}
