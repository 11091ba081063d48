package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/germainlefebvre4/cvwonder-studio/internal/model"
)

type SessionRepository interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
	Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error)
	Update(ctx context.Context, session *model.Session) (*model.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context) ([]string, error)
	List(ctx context.Context, limit int) ([]model.Session, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) SessionRepository
}

// sessionDB is an interface satisfied by both *sqlx.DB and *sqlx.Tx
type sessionDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type sessionRepo struct {
	db sessionDB
}

func NewSessionRepository(db *sqlx.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) WithTx(tx *sqlx.Tx) SessionRepository {
	return &sessionRepo{db: tx}
}

func (r *sessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM sessions WHERE id = $1
	`, id)
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		INSERT INTO sessions (id, cv_content, selected_theme, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING *
	`, params.ID, params.CVContent, params.SelectedTheme, params.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) Update(ctx context.Context, session *model.Session) (*model.Session, error) {
	var updated model.Session
	err := r.db.GetContext(ctx, &updated, `
		UPDATE sessions SET
			cv_content = $2,
			selected_theme = $3,
			expires_at = $4,
			updated_at = $5
		WHERE id = $1
		RETURNING *
	`, session.ID, session.CVContent, session.SelectedTheme, session.ExpiresAt, time.Now())
	return HandleNotFound(&updated, err)
}

func (r *sessionRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM sessions WHERE id = $1
	`, id)
	return err
}

// DeleteExpired removes all logically dead sessions and returns their ids so
// the caller can reap the matching on-disk workspaces.
func (r *sessionRepo) DeleteExpired(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids, `
		DELETE FROM sessions
		WHERE expires_at < NOW()
		RETURNING id
	`)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *sessionRepo) List(ctx context.Context, limit int) ([]model.Session, error) {
	var sessions []model.Session
	err := r.db.SelectContext(ctx, &sessions, `
		SELECT * FROM sessions
		ORDER BY updated_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return sessions, nil
}
