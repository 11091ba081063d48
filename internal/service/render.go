package service

import (
	"context"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	apperrors "github.com/germainlefebvre4/cvwonder-studio/internal/errors"
	"github.com/germainlefebvre4/cvwonder-studio/internal/model"
	"github.com/germainlefebvre4/cvwonder-studio/internal/renderer"
	"github.com/germainlefebvre4/cvwonder-studio/internal/rewrite"
	"github.com/germainlefebvre4/cvwonder-studio/internal/storage"
)

// GenerateRequest drives one render. ThemeSlug is optional; when empty the
// session's selected theme is used.
type GenerateRequest struct {
	CVContent string
	ThemeSlug string
	Format    renderer.Format
	SessionID string
}

// Artifact is the rendered output plus the metadata the HTTP layer needs to
// stream it.
type Artifact struct {
	Bytes       []byte
	ContentType string
	Filename    string
	// Theme is the theme actually used for the render; differs from the
	// requested one after a fallback.
	Theme    string
	FellBack bool
}

// SessionResolver is the slice of the session service the pipeline needs.
type SessionResolver interface {
	Get(ctx context.Context, id string) (*model.Session, error)
}

// RenderPipeline orchestrates one render: theme provisioning, session
// overlay, CV source persistence, renderer invocation and HTML path
// rewriting. Renders are serialized per session id.
type RenderPipeline struct {
	sessions    SessionResolver
	provisioner ThemeEnsurer
	renderer    renderer.Renderer
	workspace   *storage.Workspace
	locks       RenderLocker

	defaultTheme string
	strictThemes bool
}

func NewRenderPipeline(
	sessions SessionResolver,
	provisioner ThemeEnsurer,
	rend renderer.Renderer,
	workspace *storage.Workspace,
	locks RenderLocker,
	defaultTheme string,
	strictThemes bool,
) *RenderPipeline {
	return &RenderPipeline{
		sessions:     sessions,
		provisioner:  provisioner,
		renderer:     rend,
		workspace:    workspace,
		locks:        locks,
		defaultTheme: defaultTheme,
		strictThemes: strictThemes,
	}
}

func (p *RenderPipeline) Generate(ctx context.Context, req GenerateRequest) (*Artifact, error) {
	if strings.TrimSpace(req.CVContent) == "" {
		return nil, apperrors.ValidationError("CV content is required and must be a non-empty string")
	}
	if !req.Format.Valid() {
		return nil, apperrors.InvalidInput("format", `must be either "html" or "pdf"`)
	}
	if req.SessionID == "" {
		return nil, apperrors.MissingRequired("Session ID")
	}

	release, err := p.locks.Lock(ctx, req.SessionID)
	if err != nil {
		return nil, apperrors.Internal("Render queue wait interrupted").WithCause(err)
	}
	defer release()

	// Resolved under the lock so a render that queued behind a theme
	// switch picks up the most recently committed theme.
	session, err := p.sessions.Get(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	theme := session.SelectedTheme
	if req.ThemeSlug != "" {
		theme = req.ThemeSlug
	}

	theme, fellBack, err := p.ensureTheme(ctx, theme)
	if err != nil {
		return nil, err
	}

	if err := p.provisioner.EnsureSessionOverlay(req.SessionID, theme); err != nil {
		return nil, apperrors.Internal("Failed to prepare session assets").WithCause(err)
	}

	if err := p.workspace.WriteCV(req.SessionID, req.CVContent); err != nil {
		return nil, apperrors.Internal("Failed to write CV file").WithCause(err)
	}

	outputDir := p.workspace.SessionDir(req.SessionID)
	if err := p.renderer.Render(ctx, p.workspace.CVPath(req.SessionID), theme, req.Format, outputDir); err != nil {
		return nil, err
	}

	filename := req.Format.ArtifactName()
	content, err := p.workspace.ReadArtifact(req.SessionID, filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.ArtifactMissing(p.workspace.ArtifactPath(req.SessionID, filename))
		}
		return nil, apperrors.Internal("Failed to read generated file").WithCause(err)
	}

	if req.Format == renderer.FormatHTML {
		content = []byte(rewrite.Rewrite(string(content), req.SessionID))
	}

	log.Info().
		Str("sessionId", req.SessionID).
		Str("theme", theme).
		Str("format", string(req.Format)).
		Bool("fellBack", fellBack).
		Int("bytes", len(content)).
		Msg("cv generated")

	return &Artifact{
		Bytes:       content,
		ContentType: req.Format.ContentType(),
		Filename:    filename,
		Theme:       theme,
		FellBack:    fellBack,
	}, nil
}

// ensureTheme provisions the requested theme, falling back to the default
// theme when a non-default install fails and strict mode is off. The fallback
// is logged and reported to the caller, never silent.
func (p *RenderPipeline) ensureTheme(ctx context.Context, slug string) (string, bool, error) {
	if _, err := p.provisioner.Ensure(ctx, slug); err == nil {
		return slug, false, nil
	} else if apperrors.GetCode(err) == apperrors.ErrCodeInvalidTheme {
		// An unknown slug is a client error, not a provisioning failure.
		return "", false, err
	} else if p.strictThemes || slug == p.defaultTheme {
		return "", false, apperrors.ThemeUnavailable(slug, err)
	} else {
		log.Warn().Err(err).
			Str("theme", slug).
			Str("fallback", p.defaultTheme).
			Msg("theme provisioning failed, falling back to default theme")
	}

	if _, err := p.provisioner.Ensure(ctx, p.defaultTheme); err != nil {
		return "", false, apperrors.ThemeUnavailable(p.defaultTheme, err)
	}
	return p.defaultTheme, true, nil
}
