package handler

import (
	"net/http"

	"github.com/germainlefebvre4/cvwonder-studio/internal/config"
)

// Version is set at build time via -ldflags.
var Version = "dev"

type InfoHandler struct {
	cfg *config.Config
}

func NewInfoHandler(cfg *config.Config) *InfoHandler {
	return &InfoHandler{cfg: cfg}
}

// GET /api/info
func (h *InfoHandler) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"version":  Version,
		"logLevel": h.cfg.LogLevel,
		"cvwonder": map[string]any{
			"version": h.cfg.CVWonderVersion,
		},
		"themes": map[string]any{
			"default":    h.cfg.DefaultTheme,
			"strictMode": h.cfg.ThemeStrictMode,
		},
	})
}
