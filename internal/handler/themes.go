package handler

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/germainlefebvre4/cvwonder-studio/internal/service"
)

type ThemeHandler struct {
	catalog *service.ThemeCatalog
}

func NewThemeHandler(catalog *service.ThemeCatalog) *ThemeHandler {
	return &ThemeHandler{catalog: catalog}
}

// GET /api/themes
func (h *ThemeHandler) List(w http.ResponseWriter, r *http.Request) {
	themes, err := h.catalog.List(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list themes")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, themes)
}
