package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/germainlefebvre4/cvwonder-studio/internal/config"
)

func TestInfoHandler(t *testing.T) {
	cfg := &config.Config{
		LogLevel:        "debug",
		CVWonderVersion: "v0.3.0",
		DefaultTheme:    "default",
		ThemeStrictMode: true,
	}
	h := NewInfoHandler(cfg)

	rec := httptest.NewRecorder()
	h.Info(rec, httptest.NewRequest(http.MethodGet, "/api/info", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Version  string `json:"version"`
		LogLevel string `json:"logLevel"`
		CVWonder struct {
			Version string `json:"version"`
		} `json:"cvwonder"`
		Themes struct {
			Default    string `json:"default"`
			StrictMode bool   `json:"strictMode"`
		} `json:"themes"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	assert.Equal(t, Version, resp.Version)
	assert.Equal(t, "debug", resp.LogLevel)
	assert.Equal(t, "v0.3.0", resp.CVWonder.Version)
	assert.Equal(t, "default", resp.Themes.Default)
	assert.True(t, resp.Themes.StrictMode)
}
