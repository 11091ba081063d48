package service

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	apperrors "github.com/germainlefebvre4/cvwonder-studio/internal/errors"
	"github.com/germainlefebvre4/cvwonder-studio/internal/model"
	"github.com/germainlefebvre4/cvwonder-studio/internal/renderer"
	"github.com/germainlefebvre4/cvwonder-studio/internal/repository"
	"github.com/germainlefebvre4/cvwonder-studio/internal/storage"
)

// Theme slugs end up in URLs and filesystem paths, so the character set is
// deliberately narrow.
var themeSlugRe = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

const (
	defaultThemeRepo = "https://github.com/germainlefebvre4/cvwonder-theme-default"
	basicThemeRepo   = "https://github.com/germainlefebvre4/cvwonder-theme-basic"
)

// ThemeCatalog owns theme metadata: which slugs exist and where their assets
// come from.
type ThemeCatalog struct {
	themeRepo       repository.ThemeRepository
	rendererVersion string
}

func NewThemeCatalog(themeRepo repository.ThemeRepository, rendererVersion string) *ThemeCatalog {
	return &ThemeCatalog{
		themeRepo:       themeRepo,
		rendererVersion: rendererVersion,
	}
}

// Validate checks that slug is filesystem/URL safe and known to the catalog.
func (c *ThemeCatalog) Validate(ctx context.Context, slug string) (*model.Theme, error) {
	if !themeSlugRe.MatchString(slug) {
		return nil, apperrors.InvalidTheme(slug)
	}

	theme, err := c.themeRepo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if theme == nil {
		return nil, apperrors.InvalidTheme(slug)
	}
	return theme, nil
}

func (c *ThemeCatalog) List(ctx context.Context) ([]model.Theme, error) {
	themes, err := c.themeRepo.List(ctx)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return themes, nil
}

// SeedDefaults inserts the bundled theme descriptors when missing. Run once
// at startup.
func (c *ThemeCatalog) SeedDefaults(ctx context.Context) error {
	seeds := []model.CreateThemeParams{
		{
			Slug:           "default",
			Name:           "Default",
			Description:    "Default CVWonder theme",
			SourceRepoURL:  defaultThemeRepo,
			PreviewURL:     "https://cvwonder.fr/themes/default/preview",
			CompatibleWith: c.rendererVersion,
		},
		{
			Slug:           "basic",
			Name:           "Basic",
			Description:    "Minimal single-column CVWonder theme",
			SourceRepoURL:  basicThemeRepo,
			PreviewURL:     "https://cvwonder.fr/themes/basic/preview",
			CompatibleWith: c.rendererVersion,
		},
	}

	for _, seed := range seeds {
		if _, err := c.themeRepo.Create(ctx, seed); err != nil {
			return fmt.Errorf("seed theme %s: %w", seed.Slug, err)
		}
	}
	return nil
}

// ThemeEnsurer is the provisioning capability consumed by the session service
// and the render pipeline.
type ThemeEnsurer interface {
	Ensure(ctx context.Context, slug string) (string, error)
	EnsureSessionOverlay(sessionID, slug string) error
}

// ThemeProvisioner materializes theme assets on disk and builds per-session
// overlay copies. It is the only writer under the themes subtree.
type ThemeProvisioner struct {
	catalog   *ThemeCatalog
	workspace *storage.Workspace
	installer renderer.ThemeInstaller
}

func NewThemeProvisioner(
	catalog *ThemeCatalog,
	workspace *storage.Workspace,
	installer renderer.ThemeInstaller,
) *ThemeProvisioner {
	return &ThemeProvisioner{
		catalog:   catalog,
		workspace: workspace,
		installer: installer,
	}
}

// Ensure guarantees the theme's assets exist locally and returns the theme
// directory. Idempotent: an already-materialized theme is returned
// immediately. Concurrent calls for the same theme are safe because the
// layout-file check is the commit point.
func (p *ThemeProvisioner) Ensure(ctx context.Context, slug string) (string, error) {
	themeDir := p.workspace.ThemeDir(slug)
	layout := p.workspace.ThemeLayoutPath(slug)

	if _, err := os.Stat(layout); err == nil {
		return themeDir, nil
	}

	theme, err := p.catalog.Validate(ctx, slug)
	if err != nil {
		return "", err
	}

	// A directory without the layout file is a leftover from an
	// interrupted install; start over.
	if _, err := os.Stat(themeDir); err == nil {
		log.Warn().Str("theme", slug).Msg("removing incomplete theme directory")
		if err := os.RemoveAll(themeDir); err != nil {
			return "", apperrors.ThemeInstallFailed(slug, err)
		}
	}

	if err := storage.EnsureDir(filepath.Dir(themeDir)); err != nil {
		return "", apperrors.ThemeInstallFailed(slug, err)
	}

	log.Info().Str("theme", slug).Str("repo", theme.SourceRepoURL).Msg("installing theme")

	if err := cloneThemeRepo(ctx, theme.SourceRepoURL, themeDir); err != nil {
		log.Warn().Err(err).Str("theme", slug).Msg("git clone failed, trying cvwonder theme install")
		if installErr := p.installer.InstallTheme(ctx, theme.SourceRepoURL); installErr != nil {
			return "", apperrors.ThemeInstallFailed(slug, fmt.Errorf("%v; %w", err, installErr))
		}
	}

	// Trust the install only after the layout file is verified present.
	if _, err := os.Stat(layout); err != nil {
		return "", apperrors.ThemeInstallFailed(slug, fmt.Errorf("layout file missing after install: %s", layout))
	}

	log.Info().Str("theme", slug).Str("dir", themeDir).Msg("theme installed")
	return themeDir, nil
}

// EnsureSessionOverlay copies the theme's static assets into the session's
// overlay directories, giving the session an independent asset namespace over
// the shared read-only theme. Create-or-replace: re-running is idempotent and
// safe after an interrupted copy.
func (p *ThemeProvisioner) EnsureSessionOverlay(sessionID, slug string) error {
	themeDir := p.workspace.ThemeDir(slug)
	sessionDir := p.workspace.SessionDir(sessionID)

	for _, sub := range []string{"static", "images", "css", "js"} {
		if err := storage.EnsureDir(filepath.Join(sessionDir, sub)); err != nil {
			return err
		}
	}

	// Top-level stylesheet referenced directly by theme layouts.
	if err := storage.CopyFile(
		filepath.Join(themeDir, "styles.css"),
		filepath.Join(sessionDir, "static", "styles.css"),
	); err != nil {
		return err
	}

	for _, sub := range []string{"images", "css", "js"} {
		if err := storage.CopyDir(
			filepath.Join(themeDir, sub),
			filepath.Join(sessionDir, sub),
		); err != nil {
			return err
		}
	}
	return nil
}

func cloneThemeRepo(ctx context.Context, repoURL, dest string) error {
	cmd := exec.CommandContext(ctx, "git", "clone", "--depth=1", repoURL, dest)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("git clone %s: %w (stderr: %s)",
			repoURL, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
