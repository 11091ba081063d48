package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	apperrors "github.com/germainlefebvre4/cvwonder-studio/internal/errors"
	"github.com/germainlefebvre4/cvwonder-studio/internal/renderer"
	"github.com/germainlefebvre4/cvwonder-studio/internal/service"
)

// generateRequest accepts both "theme" and "themeName" since older clients
// used either key.
type generateRequest struct {
	CV        string `json:"cv"`
	Theme     string `json:"theme"`
	ThemeName string `json:"themeName"`
	Format    string `json:"format"`
	SessionID string `json:"sessionId"`
}

type GenerateHandler struct {
	pipeline *service.RenderPipeline
}

func NewGenerateHandler(pipeline *service.RenderPipeline) *GenerateHandler {
	return &GenerateHandler{pipeline: pipeline}
}

// POST /api/generate
func (h *GenerateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}

	format := req.Format
	if format == "" {
		format = string(renderer.FormatHTML)
	}

	theme := req.Theme
	if theme == "" {
		theme = req.ThemeName
	}

	artifact, err := h.pipeline.Generate(r.Context(), service.GenerateRequest{
		CVContent: req.CV,
		ThemeSlug: theme,
		Format:    renderer.Format(format),
		SessionID: req.SessionID,
	})
	if err != nil {
		logServiceError(err, "failed to generate cv")
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", artifact.ContentType)
	if artifact.ContentType == "application/pdf" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Filename))
	} else {
		w.Header().Set("Content-Disposition", "inline")
	}
	// Surface the theme fallback so a degraded render is observable.
	w.Header().Set("X-Rendered-Theme", artifact.Theme)
	if artifact.FellBack {
		w.Header().Set("X-Theme-Fallback", "true")
	}

	w.WriteHeader(http.StatusOK)
	w.Write(artifact.Bytes)
}
