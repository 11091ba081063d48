package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Workspace owns the writable on-disk layout: per-session directories holding
// the CV source, render output and the session overlay of theme assets, and
// the shared theme directories. All paths are derived from ids so concurrent
// sessions never touch each other's files.
type Workspace struct {
	baseDir string
}

func NewWorkspace(baseDir string) *Workspace {
	return &Workspace{baseDir: baseDir}
}

func (w *Workspace) BaseDir() string {
	return w.baseDir
}

func (w *Workspace) SessionDir(sessionID string) string {
	return filepath.Join(w.baseDir, "sessions", sessionID)
}

func (w *Workspace) CVPath(sessionID string) string {
	return filepath.Join(w.SessionDir(sessionID), "cv.yml")
}

func (w *Workspace) ArtifactPath(sessionID, filename string) string {
	return filepath.Join(w.SessionDir(sessionID), filename)
}

func (w *Workspace) ThemeDir(slug string) string {
	return filepath.Join(w.baseDir, "themes", slug)
}

// ThemeLayoutPath is the theme's root layout file; its existence is the
// commit point for a successful theme install.
func (w *Workspace) ThemeLayoutPath(slug string) string {
	return filepath.Join(w.ThemeDir(slug), "index.html")
}

func (w *Workspace) BinaryDir() string {
	return filepath.Join(w.baseDir, "bin")
}

// EnsureDir creates dir if absent. An already-existing directory is not an
// error.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	return nil
}

func (w *Workspace) EnsureSessionDir(sessionID string) error {
	return EnsureDir(w.SessionDir(sessionID))
}

// WriteCV persists the CV source for a session, overwriting any previous
// content. This file is the renderer's required input form.
func (w *Workspace) WriteCV(sessionID, content string) error {
	if err := w.EnsureSessionDir(sessionID); err != nil {
		return err
	}
	path := w.CVPath(sessionID)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write cv source %s: %w", path, err)
	}
	return nil
}

func (w *Workspace) ReadArtifact(sessionID, filename string) ([]byte, error) {
	return os.ReadFile(w.ArtifactPath(sessionID, filename))
}

// RemoveSession deletes a session's entire on-disk workspace.
func (w *Workspace) RemoveSession(sessionID string) error {
	return os.RemoveAll(w.SessionDir(sessionID))
}

// CopyFile copies src to dst, creating parent directories as needed. Missing
// source files are skipped: themes are not required to ship every optional
// asset.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	if err := EnsureDir(filepath.Dir(dst)); err != nil {
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	return nil
}

// CopyDir recursively copies src into dst ("create or replace"). A missing
// source directory is skipped. Re-running over an existing destination is
// safe and idempotent.
func CopyDir(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", src, err)
	}
	if !info.IsDir() {
		return CopyFile(src, dst)
	}

	if err := EnsureDir(dst); err != nil {
		return err
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("read directory %s: %w", src, err)
	}

	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			if err := CopyDir(srcPath, dstPath); err != nil {
				return err
			}
			continue
		}
		if err := CopyFile(srcPath, dstPath); err != nil {
			return err
		}
	}
	return nil
}
