package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/germainlefebvre4/cvwonder-studio/internal/errors"
	"github.com/germainlefebvre4/cvwonder-studio/internal/httputil"
	"github.com/germainlefebvre4/cvwonder-studio/internal/model"
	"github.com/germainlefebvre4/cvwonder-studio/internal/repository"
	"github.com/germainlefebvre4/cvwonder-studio/internal/service"
	"github.com/germainlefebvre4/cvwonder-studio/internal/storage"
)

// In-memory repository stubs backing real services for handler tests.

type stubSessionRepo struct {
	sessions map[string]model.Session
}

func newStubSessionRepo() *stubSessionRepo {
	return &stubSessionRepo{sessions: map[string]model.Session{}}
}

func (r *stubSessionRepo) FindByID(_ context.Context, id string) (*model.Session, error) {
	session, ok := r.sessions[id]
	if !ok {
		return nil, nil
	}
	return &session, nil
}

func (r *stubSessionRepo) Create(_ context.Context, params model.CreateSessionParams) (*model.Session, error) {
	now := time.Now()
	session := model.Session{
		ID:            params.ID,
		CVContent:     params.CVContent,
		SelectedTheme: params.SelectedTheme,
		CreatedAt:     now,
		UpdatedAt:     now,
		ExpiresAt:     params.ExpiresAt,
	}
	r.sessions[session.ID] = session
	return &session, nil
}

func (r *stubSessionRepo) Update(_ context.Context, session *model.Session) (*model.Session, error) {
	existing, ok := r.sessions[session.ID]
	if !ok {
		return nil, nil
	}
	existing.CVContent = session.CVContent
	existing.SelectedTheme = session.SelectedTheme
	existing.ExpiresAt = session.ExpiresAt
	existing.UpdatedAt = time.Now()
	r.sessions[session.ID] = existing
	return &existing, nil
}

func (r *stubSessionRepo) Delete(_ context.Context, id string) error {
	delete(r.sessions, id)
	return nil
}

func (r *stubSessionRepo) DeleteExpired(_ context.Context) ([]string, error) {
	now := time.Now()
	var ids []string
	for id, session := range r.sessions {
		if session.Expired(now) {
			ids = append(ids, id)
			delete(r.sessions, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *stubSessionRepo) List(_ context.Context, limit int) ([]model.Session, error) {
	sessions := make([]model.Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		sessions = append(sessions, session)
	}
	if len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions, nil
}

func (r *stubSessionRepo) WithTx(_ *sqlx.Tx) repository.SessionRepository { return r }

type stubThemeRepo struct {
	themes map[string]model.Theme
}

func newStubThemeRepo(slugs ...string) *stubThemeRepo {
	repo := &stubThemeRepo{themes: map[string]model.Theme{}}
	for _, slug := range slugs {
		repo.themes[slug] = model.Theme{Slug: slug, Name: slug}
	}
	return repo
}

func (r *stubThemeRepo) FindBySlug(_ context.Context, slug string) (*model.Theme, error) {
	theme, ok := r.themes[slug]
	if !ok {
		return nil, nil
	}
	return &theme, nil
}

func (r *stubThemeRepo) List(_ context.Context) ([]model.Theme, error) {
	themes := make([]model.Theme, 0, len(r.themes))
	for _, theme := range r.themes {
		themes = append(themes, theme)
	}
	sort.Slice(themes, func(i, j int) bool { return themes[i].Name < themes[j].Name })
	return themes, nil
}

func (r *stubThemeRepo) Create(_ context.Context, params model.CreateThemeParams) (*model.Theme, error) {
	theme := model.Theme{Slug: params.Slug, Name: params.Name, SourceRepoURL: params.SourceRepoURL}
	r.themes[theme.Slug] = theme
	return &theme, nil
}

func (r *stubThemeRepo) WithTx(_ *sqlx.Tx) repository.ThemeRepository { return r }

// stubEnsurer provisions nothing and never fails unless told to.
type stubEnsurer struct {
	ensureErr map[string]error
}

func (e *stubEnsurer) Ensure(_ context.Context, slug string) (string, error) {
	if e.ensureErr != nil {
		if err := e.ensureErr[slug]; err != nil {
			return "", err
		}
	}
	return "/themes/" + slug, nil
}

func (e *stubEnsurer) EnsureSessionOverlay(_, _ string) error { return nil }

func newSessionRouter(t *testing.T) (*chi.Mux, *stubSessionRepo) {
	t.Helper()

	repo := newStubSessionRepo()
	catalog := service.NewThemeCatalog(newStubThemeRepo("default", "basic"), "v0.3.0")
	workspace := storage.NewWorkspace(t.TempDir())
	sessions := service.NewSessionService(repo, catalog, &stubEnsurer{}, workspace, "default", 7, 7)
	h := NewSessionHandler(sessions)

	r := chi.NewRouter()
	r.Post("/api/sessions", h.Create)
	r.Get("/api/sessions/{sessionID}", h.Get)
	r.Patch("/api/sessions/{sessionID}", h.Update)
	return r, repo
}

func decodeErrorResponse(t *testing.T, rec *httptest.ResponseRecorder) httputil.ErrorResponse {
	t.Helper()
	var resp httputil.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestSessionHandlerCreate(t *testing.T) {
	t.Run("defaults with empty body", func(t *testing.T) {
		router, _ := newSessionRouter(t)

		req := httptest.NewRequest(http.MethodPost, "/api/sessions", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var session model.Session
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&session))
		assert.NotEmpty(t, session.ID)
		assert.Equal(t, "default", session.SelectedTheme)
		assert.Equal(t, service.DefaultCVContent, session.CVContent)
	})

	t.Run("custom theme and retention", func(t *testing.T) {
		router, _ := newSessionRouter(t)

		body := `{"theme":"basic","retentionDays":3}`
		req := httptest.NewRequest(http.MethodPost, "/api/sessions", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)

		var session model.Session
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&session))
		assert.Equal(t, "basic", session.SelectedTheme)
		assert.WithinDuration(t, time.Now().AddDate(0, 0, 3), session.ExpiresAt, time.Minute)
	})

	t.Run("unknown theme", func(t *testing.T) {
		router, _ := newSessionRouter(t)

		req := httptest.NewRequest(http.MethodPost, "/api/sessions", strings.NewReader(`{"theme":"nope"}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, apperrors.ErrCodeInvalidTheme, decodeErrorResponse(t, rec).Code)
	})

	t.Run("malformed json", func(t *testing.T) {
		router, _ := newSessionRouter(t)

		req := httptest.NewRequest(http.MethodPost, "/api/sessions", strings.NewReader(`{"theme":`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, apperrors.ErrCodeInvalidInput, decodeErrorResponse(t, rec).Code)
	})
}

func TestSessionHandlerGet(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		router, _ := newSessionRouter(t)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sessions", nil))
		require.Equal(t, http.StatusCreated, rec.Code)

		var created model.Session
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/"+created.ID, nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var got model.Session
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, created.CVContent, got.CVContent)
	})

	t.Run("unknown id", func(t *testing.T) {
		router, _ := newSessionRouter(t)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/missing", nil))

		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, apperrors.ErrCodeNotFound, decodeErrorResponse(t, rec).Code)
	})

	t.Run("expired session looks missing", func(t *testing.T) {
		router, repo := newSessionRouter(t)

		repo.sessions["gone"] = model.Session{
			ID:        "gone",
			ExpiresAt: time.Now().Add(-time.Hour),
		}

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/gone", nil))

		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestSessionHandlerUpdate(t *testing.T) {
	createSession := func(t *testing.T, router *chi.Mux) model.Session {
		t.Helper()
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sessions", nil))
		require.Equal(t, http.StatusCreated, rec.Code)
		var session model.Session
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&session))
		return session
	}

	t.Run("content", func(t *testing.T) {
		router, _ := newSessionRouter(t)
		session := createSession(t, router)

		body, err := json.Marshal(map[string]string{"cvContent": "person:\n  name: Edited\n"})
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/sessions/"+session.ID, bytes.NewReader(body)))
		require.Equal(t, http.StatusOK, rec.Code)

		var updated model.Session
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&updated))
		assert.Equal(t, "person:\n  name: Edited\n", updated.CVContent)
	})

	t.Run("retention out of range", func(t *testing.T) {
		router, _ := newSessionRouter(t)
		session := createSession(t, router)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/sessions/"+session.ID,
			strings.NewReader(`{"retentionDays":0}`)))

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, apperrors.ErrCodeInvalidRetention, decodeErrorResponse(t, rec).Code)
	})

	t.Run("unknown id", func(t *testing.T) {
		router, _ := newSessionRouter(t)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/sessions/missing",
			strings.NewReader(`{"cvContent":"x"}`)))

		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed json", func(t *testing.T) {
		router, _ := newSessionRouter(t)
		session := createSession(t, router)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/sessions/"+session.ID,
			strings.NewReader(`{`)))

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, apperrors.ErrCodeInvalidInput, decodeErrorResponse(t, rec).Code)
	})
}
