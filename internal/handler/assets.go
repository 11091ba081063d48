package handler

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/germainlefebvre4/cvwonder-studio/internal/service"
	"github.com/germainlefebvre4/cvwonder-studio/internal/storage"
)

// Fixed MIME table; anything unknown is served as an opaque download.
var mimeTypes = map[string]string{
	".js":   "application/javascript",
	".css":  "text/css",
	".json": "application/json",
	".html": "text/html",
	".txt":  "text/plain",
	".yaml": "text/yaml",
	".yml":  "text/yaml",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".woff": "font/woff",
	".woff2": "font/woff2",
	".ttf":  "font/ttf",
}

// Theme and session assets are effectively immutable once written, so clients
// may cache them for a year.
const assetCacheControl = "public, max-age=31536000"

var staticPrefixRe = regexp.MustCompile(`^(?:static|css|js)/`)

// AssetHandler resolves session- and theme-scoped static asset requests to
// concrete files. It only ever reads; the provisioner and pipeline own the
// writes.
type AssetHandler struct {
	workspace    *storage.Workspace
	sessions     service.SessionResolver
	defaultTheme string
}

func NewAssetHandler(workspace *storage.Workspace, sessions service.SessionResolver, defaultTheme string) *AssetHandler {
	return &AssetHandler{
		workspace:    workspace,
		sessions:     sessions,
		defaultTheme: defaultTheme,
	}
}

// GET /api/sessions/{sessionID}/static/*
func (h *AssetHandler) ServeSessionStatic(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	rel, ok := cleanAssetPath(chi.URLParam(r, "*"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	rel = staticPrefixRe.ReplaceAllString(rel, "")

	sessionDir := h.workspace.SessionDir(sessionID)

	candidates := []string{
		filepath.Join(sessionDir, "static", rel),
		filepath.Join(sessionDir, rel),
	}
	for _, theme := range h.themeCandidates(r, sessionID) {
		themeDir := h.workspace.ThemeDir(theme)
		candidates = append(candidates,
			filepath.Join(themeDir, rel),
			filepath.Join(themeDir, "css", rel),
			filepath.Join(themeDir, "js", rel),
		)
	}

	h.serveFirst(w, r, sessionID, rel, candidates)
}

// GET /api/sessions/{sessionID}/images/*
//
// A leading images/ segment is stripped before resolution, so images/foo.png
// and foo.png resolve identically.
func (h *AssetHandler) ServeSessionImage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	rel, ok := cleanAssetPath(chi.URLParam(r, "*"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	rel = strings.TrimPrefix(rel, "images/")

	sessionDir := h.workspace.SessionDir(sessionID)

	candidates := []string{
		filepath.Join(sessionDir, "images", rel),
	}
	for _, theme := range h.themeCandidates(r, sessionID) {
		candidates = append(candidates, filepath.Join(h.workspace.ThemeDir(theme), "images", rel))
	}
	candidates = append(candidates, filepath.Join(sessionDir, rel))

	h.serveFirst(w, r, sessionID, rel, candidates)
}

// GET /api/themes/{slug}/*
func (h *AssetHandler) ServeThemeAsset(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	rel, ok := cleanAssetPath(chi.URLParam(r, "*"))
	if !ok || strings.Contains(slug, "..") || strings.ContainsAny(slug, "/\\") {
		http.NotFound(w, r)
		return
	}

	h.serveFirst(w, r, "", rel, []string{
		filepath.Join(h.workspace.ThemeDir(slug), rel),
	})
}

// themeCandidates returns the themes to search after the session overlay:
// the session's selected theme first, then the default theme fallback.
func (h *AssetHandler) themeCandidates(r *http.Request, sessionID string) []string {
	themes := []string{}
	if session, err := h.sessions.Get(r.Context(), sessionID); err == nil {
		themes = append(themes, session.SelectedTheme)
	}
	if len(themes) == 0 || themes[0] != h.defaultTheme {
		themes = append(themes, h.defaultTheme)
	}
	return themes
}

func (h *AssetHandler) serveFirst(w http.ResponseWriter, r *http.Request, sessionID, rel string, candidates []string) {
	for _, candidate := range candidates {
		content, err := os.ReadFile(candidate)
		if err != nil {
			continue
		}

		sum := sha256.Sum256(content)
		w.Header().Set("Content-Type", contentTypeFor(rel))
		w.Header().Set("Cache-Control", assetCacheControl)
		w.Header().Set("ETag", `"`+hex.EncodeToString(sum[:8])+`"`)
		w.Write(content)
		return
	}

	log.Debug().
		Str("sessionId", sessionID).
		Str("path", rel).
		Strs("tried", candidates).
		Msg("asset not found")
	http.NotFound(w, r)
}

// cleanAssetPath normalizes the wildcard path and rejects traversal.
func cleanAssetPath(p string) (string, bool) {
	p = path.Clean("/" + p)
	if strings.Contains(p, "..") {
		return "", false
	}
	p = strings.TrimPrefix(p, "/")
	if p == "" || p == "." {
		return "", false
	}
	return p, true
}

func contentTypeFor(rel string) string {
	ext := strings.ToLower(filepath.Ext(rel))
	if ct, ok := mimeTypes[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}
