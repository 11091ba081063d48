package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/germainlefebvre4/cvwonder-studio/internal/errors"
	"github.com/germainlefebvre4/cvwonder-studio/internal/model"
	"github.com/germainlefebvre4/cvwonder-studio/internal/renderer"
	"github.com/germainlefebvre4/cvwonder-studio/internal/service"
	"github.com/germainlefebvre4/cvwonder-studio/internal/storage"
)

// stubResolver serves sessions from a fixed map.
type stubResolver struct {
	sessions map[string]*model.Session
}

func (s *stubResolver) Get(_ context.Context, id string) (*model.Session, error) {
	session, ok := s.sessions[id]
	if !ok {
		return nil, apperrors.NotFound("Session")
	}
	return session, nil
}

// stubRenderer writes canned artifact bytes per format.
type stubRenderer struct {
	output map[renderer.Format]string
}

func (s *stubRenderer) Render(_ context.Context, _, _ string, format renderer.Format, outputDir string) error {
	content, ok := s.output[format]
	if !ok {
		return nil
	}
	return os.WriteFile(filepath.Join(outputDir, format.ArtifactName()), []byte(content), 0o644)
}

type stubLocker struct{}

func (stubLocker) Lock(_ context.Context, _ string) (func(), error) {
	return func() {}, nil
}

func newGenerateRouter(t *testing.T, ensurer *stubEnsurer) (*chi.Mux, *stubRenderer) {
	t.Helper()

	resolver := &stubResolver{sessions: map[string]*model.Session{
		"s1": {
			ID:            "s1",
			CVContent:     "person:\n  name: Alice\n",
			SelectedTheme: "default",
			ExpiresAt:     time.Now().Add(time.Hour),
		},
	}}
	rend := &stubRenderer{output: map[renderer.Format]string{
		renderer.FormatHTML: `<link rel="stylesheet" href="styles.css"><img src="/images/pic.png">`,
		renderer.FormatPDF:  "%PDF-1.4 fake",
	}}
	workspace := storage.NewWorkspace(t.TempDir())
	pipeline := service.NewRenderPipeline(resolver, ensurer, rend, workspace, stubLocker{}, "default", false)
	h := NewGenerateHandler(pipeline)

	r := chi.NewRouter()
	r.Post("/api/generate", h.Generate)
	return r, rend
}

func postGenerate(t *testing.T, router *chi.Mux, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(body)))
	return rec
}

func TestGenerateHandlerHTML(t *testing.T) {
	router, _ := newGenerateRouter(t, &stubEnsurer{})

	rec := postGenerate(t, router, `{"cv":"person: {}","sessionId":"s1","format":"html"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html", rec.Header().Get("Content-Type"))
	assert.Equal(t, "inline", rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "default", rec.Header().Get("X-Rendered-Theme"))
	assert.Empty(t, rec.Header().Get("X-Theme-Fallback"))

	body := rec.Body.String()
	assert.Contains(t, body, "/api/sessions/s1/static/styles.css")
	assert.Contains(t, body, "/api/sessions/s1/images/pic.png")
}

func TestGenerateHandlerDefaultsToHTML(t *testing.T) {
	router, _ := newGenerateRouter(t, &stubEnsurer{})

	rec := postGenerate(t, router, `{"cv":"person: {}","sessionId":"s1"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html", rec.Header().Get("Content-Type"))
}

func TestGenerateHandlerPDF(t *testing.T) {
	router, _ := newGenerateRouter(t, &stubEnsurer{})

	rec := postGenerate(t, router, `{"cv":"person: {}","sessionId":"s1","format":"pdf"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="cv.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.4 fake", rec.Body.String())
}

func TestGenerateHandlerThemeNameAlias(t *testing.T) {
	router, _ := newGenerateRouter(t, &stubEnsurer{})

	rec := postGenerate(t, router, `{"cv":"person: {}","sessionId":"s1","themeName":"basic"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "basic", rec.Header().Get("X-Rendered-Theme"))
}

func TestGenerateHandlerThemeFallbackHeader(t *testing.T) {
	ensurer := &stubEnsurer{ensureErr: map[string]error{
		"fancy": fmt.Errorf("clone failed"),
	}}
	router, _ := newGenerateRouter(t, ensurer)

	rec := postGenerate(t, router, `{"cv":"person: {}","sessionId":"s1","theme":"fancy"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "default", rec.Header().Get("X-Rendered-Theme"))
	assert.Equal(t, "true", rec.Header().Get("X-Theme-Fallback"))
}

func TestGenerateHandlerErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   apperrors.ErrorCode
	}{
		{
			name:       "unknown session",
			body:       `{"cv":"person: {}","sessionId":"ghost"}`,
			wantStatus: http.StatusNotFound,
			wantCode:   apperrors.ErrCodeNotFound,
		},
		{
			name:       "empty cv",
			body:       `{"cv":"","sessionId":"s1"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   apperrors.ErrCodeValidation,
		},
		{
			name:       "unsupported format",
			body:       `{"cv":"person: {}","sessionId":"s1","format":"docx"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   apperrors.ErrCodeInvalidInput,
		},
		{
			name:       "missing session id",
			body:       `{"cv":"person: {}"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   apperrors.ErrCodeMissingRequired,
		},
		{
			name:       "malformed json",
			body:       `{"cv":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   apperrors.ErrCodeInvalidInput,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			router, _ := newGenerateRouter(t, &stubEnsurer{})

			rec := postGenerate(t, router, tc.body)

			require.Equal(t, tc.wantStatus, rec.Code)
			var resp struct {
				Code apperrors.ErrorCode `json:"code"`
			}
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tc.wantCode, resp.Code)
		})
	}
}
