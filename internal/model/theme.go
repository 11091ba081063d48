package model

import "time"

// Theme is a named bundle of layout/CSS/JS/image assets the renderer uses to
// style a CV. Metadata lives in the database; the materialized assets live
// under the themes directory keyed by slug.
type Theme struct {
	Slug           string    `db:"slug" json:"slug"`
	Name           string    `db:"name" json:"name"`
	Description    string    `db:"description" json:"description"`
	SourceRepoURL  string    `db:"source_repo_url" json:"sourceRepoUrl"`
	PreviewURL     string    `db:"preview_url" json:"previewUrl"`
	CompatibleWith string    `db:"compatible_with" json:"compatibleWith"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}

type CreateThemeParams struct {
	Slug           string
	Name           string
	Description    string
	SourceRepoURL  string
	PreviewURL     string
	CompatibleWith string
}
