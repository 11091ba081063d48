package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/germainlefebvre4/cvwonder-studio/internal/model"
)

type ThemeRepository interface {
	FindBySlug(ctx context.Context, slug string) (*model.Theme, error)
	List(ctx context.Context) ([]model.Theme, error)
	Create(ctx context.Context, params model.CreateThemeParams) (*model.Theme, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) ThemeRepository
}

type themeRepo struct {
	db sessionDB
}

func NewThemeRepository(db *sqlx.DB) ThemeRepository {
	return &themeRepo{db: db}
}

func (r *themeRepo) WithTx(tx *sqlx.Tx) ThemeRepository {
	return &themeRepo{db: tx}
}

func (r *themeRepo) FindBySlug(ctx context.Context, slug string) (*model.Theme, error) {
	var theme model.Theme
	err := r.db.GetContext(ctx, &theme, `
		SELECT * FROM themes WHERE slug = $1
	`, slug)
	return HandleNotFound(&theme, err)
}

func (r *themeRepo) List(ctx context.Context) ([]model.Theme, error) {
	var themes []model.Theme
	err := r.db.SelectContext(ctx, &themes, `
		SELECT * FROM themes ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	return themes, nil
}

func (r *themeRepo) Create(ctx context.Context, params model.CreateThemeParams) (*model.Theme, error) {
	var theme model.Theme
	err := r.db.GetContext(ctx, &theme, `
		INSERT INTO themes (slug, name, description, source_repo_url, preview_url, compatible_with)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (slug) DO UPDATE SET slug = EXCLUDED.slug
		RETURNING *
	`, params.Slug, params.Name, params.Description, params.SourceRepoURL, params.PreviewURL, params.CompatibleWith)
	if err != nil {
		return nil, err
	}
	return &theme, nil
}
