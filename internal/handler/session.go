package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/germainlefebvre4/cvwonder-studio/internal/errors"
	"github.com/germainlefebvre4/cvwonder-studio/internal/model"
	"github.com/germainlefebvre4/cvwonder-studio/internal/service"
)

type SessionHandler struct {
	sessions *service.SessionService
}

func NewSessionHandler(sessions *service.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// POST /api/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var params service.CreateSessionParams
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			writeError(w, apperrors.InvalidInput("body", "malformed JSON"))
			return
		}
	}

	session, err := h.sessions.Create(r.Context(), params)
	if err != nil {
		logServiceError(err, "failed to create session")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, session)
}

// GET /api/sessions/{sessionID}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if id == "" {
		writeError(w, apperrors.MissingRequired("Session ID"))
		return
	}

	session, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		logServiceError(err, "failed to get session")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// PATCH /api/sessions/{sessionID}
func (h *SessionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if id == "" {
		writeError(w, apperrors.MissingRequired("Session ID"))
		return
	}

	var params model.UpdateSessionParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}

	session, err := h.sessions.Update(r.Context(), id, params)
	if err != nil {
		logServiceError(err, "failed to update session")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// logServiceError logs server-side failures while keeping expected client
// errors (not found, validation) at debug level.
func logServiceError(err error, msg string) {
	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeNotFound,
		apperrors.ErrCodeValidation,
		apperrors.ErrCodeInvalidInput,
		apperrors.ErrCodeMissingRequired,
		apperrors.ErrCodeInvalidRetention,
		apperrors.ErrCodeInvalidTheme:
		log.Debug().Err(err).Msg(msg)
	default:
		log.Error().Err(err).Msg(msg)
	}
}
