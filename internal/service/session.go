package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	apperrors "github.com/germainlefebvre4/cvwonder-studio/internal/errors"
	"github.com/germainlefebvre4/cvwonder-studio/internal/model"
	"github.com/germainlefebvre4/cvwonder-studio/internal/repository"
	"github.com/germainlefebvre4/cvwonder-studio/internal/storage"
)

// CreateSessionParams is the "new session" request. All fields are optional;
// defaults come from configuration.
type CreateSessionParams struct {
	InitialContent *string `json:"initialContent,omitempty"`
	Theme          *string `json:"theme,omitempty"`
	RetentionDays  *int    `json:"retentionDays,omitempty"`
}

// SessionService is the sole owner of session identity, content and
// retention. The database is the single source of truth; there is no
// in-memory session cache.
type SessionService struct {
	sessionRepo repository.SessionRepository
	catalog     *ThemeCatalog
	provisioner ThemeEnsurer
	workspace   *storage.Workspace

	defaultTheme         string
	defaultRetentionDays int
	maxRetentionDays     int
}

func NewSessionService(
	sessionRepo repository.SessionRepository,
	catalog *ThemeCatalog,
	provisioner ThemeEnsurer,
	workspace *storage.Workspace,
	defaultTheme string,
	defaultRetentionDays, maxRetentionDays int,
) *SessionService {
	return &SessionService{
		sessionRepo:          sessionRepo,
		catalog:              catalog,
		provisioner:          provisioner,
		workspace:            workspace,
		defaultTheme:         defaultTheme,
		defaultRetentionDays: defaultRetentionDays,
		maxRetentionDays:     maxRetentionDays,
	}
}

// Create validates the requested theme, assigns a fresh unguessable id and
// persists the session with a bounded expiry. The requested retention is
// clamped to [1, max]; the capability id is the only credential.
func (s *SessionService) Create(ctx context.Context, params CreateSessionParams) (*model.Session, error) {
	theme := s.defaultTheme
	if params.Theme != nil && *params.Theme != "" {
		theme = *params.Theme
	}
	if _, err := s.catalog.Validate(ctx, theme); err != nil {
		return nil, err
	}

	content := DefaultCVContent
	if params.InitialContent != nil {
		if strings.TrimSpace(*params.InitialContent) == "" {
			return nil, apperrors.ValidationError("CV content must be a non-empty string")
		}
		content = *params.InitialContent
	}

	retention := s.defaultRetentionDays
	if params.RetentionDays != nil {
		retention = clampRetention(*params.RetentionDays, s.maxRetentionDays)
	}

	session, err := s.sessionRepo.Create(ctx, model.CreateSessionParams{
		ID:            uuid.NewString(),
		CVContent:     content,
		SelectedTheme: theme,
		ExpiresAt:     time.Now().AddDate(0, 0, retention),
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	// Warm the theme assets so the first render does not pay the install
	// cost. Failures are recovered at render time via the fallback policy.
	if _, err := s.provisioner.Ensure(ctx, theme); err != nil {
		log.Warn().Err(err).Str("theme", theme).Str("sessionId", session.ID).
			Msg("theme provisioning failed during session create")
	}

	log.Info().
		Str("sessionId", session.ID).
		Str("theme", theme).
		Int("retentionDays", retention).
		Time("expiresAt", session.ExpiresAt).
		Msg("session created")

	return session, nil
}

// Get returns the session or NOT_FOUND. An expired session is lazily reaped:
// the row and its on-disk workspace are deleted and the lookup behaves
// exactly like a missing id.
func (s *SessionService) Get(ctx context.Context, id string) (*model.Session, error) {
	session, err := s.sessionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if session == nil {
		return nil, apperrors.NotFound("Session")
	}

	if session.Expired(time.Now()) {
		s.reap(ctx, session.ID)
		return nil, apperrors.NotFound("Session")
	}

	return session, nil
}

// Update applies a PATCH to the session. The expiry rule is the same as Get;
// no update may resurrect an expired session. A supplied retention is
// recomputed from now, never from the original creation time, and must be
// within [1, max].
func (s *SessionService) Update(ctx context.Context, id string, params model.UpdateSessionParams) (*model.Session, error) {
	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if params.CVContent != nil {
		session.CVContent = *params.CVContent
	}

	if params.SelectedTheme != nil {
		if _, err := s.catalog.Validate(ctx, *params.SelectedTheme); err != nil {
			return nil, err
		}
		session.SelectedTheme = *params.SelectedTheme
	}

	if params.RetentionDays != nil {
		days := *params.RetentionDays
		if days < 1 || days > s.maxRetentionDays {
			return nil, apperrors.InvalidRetention(days, s.maxRetentionDays)
		}
		session.ExpiresAt = time.Now().AddDate(0, 0, days)
	}

	updated, err := s.sessionRepo.Update(ctx, session)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if updated == nil {
		// Row disappeared between the read and the write (swept by the
		// cleanup job).
		return nil, apperrors.NotFound("Session")
	}

	return updated, nil
}

// SweepExpired deletes every expired session row together with its on-disk
// workspace. Called by the periodic cleanup job; per-request correctness does
// not depend on it because Get and Update self-heal.
func (s *SessionService) SweepExpired(ctx context.Context) (int64, error) {
	ids, err := s.sessionRepo.DeleteExpired(ctx)
	if err != nil {
		return 0, err
	}

	for _, id := range ids {
		if err := s.workspace.RemoveSession(id); err != nil {
			log.Warn().Err(err).Str("sessionId", id).Msg("failed to remove session workspace")
		}
	}

	return int64(len(ids)), nil
}

// List returns the most recently updated sessions, newest first. Debug and
// operational tooling only; not exposed on the public API.
func (s *SessionService) List(ctx context.Context, limit int) ([]model.Session, error) {
	sessions, err := s.sessionRepo.List(ctx, limit)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return sessions, nil
}

func (s *SessionService) reap(ctx context.Context, id string) {
	log.Info().Str("sessionId", id).Msg("session expired, reaping")

	if err := s.sessionRepo.Delete(ctx, id); err != nil {
		log.Error().Err(err).Str("sessionId", id).Msg("failed to delete expired session")
	}
	if err := s.workspace.RemoveSession(id); err != nil {
		log.Warn().Err(err).Str("sessionId", id).Msg("failed to remove session workspace")
	}
}

func clampRetention(days, maxDays int) int {
	if days < 1 {
		return 1
	}
	if days > maxDays {
		return maxDays
	}
	return days
}
