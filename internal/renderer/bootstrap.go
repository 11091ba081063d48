package renderer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/germainlefebvre4/cvwonder-studio/internal/storage"
)

const downloadTimeout = 2 * time.Minute

// Bootstrap materializes the cvwonder binary at startup. It is an explicit
// one-time initialization step run from main, replacing any ambient
// "has the binary been downloaded yet" state. Re-running is idempotent: an
// existing binary is trusted and left alone.
type Bootstrap struct {
	binaryPath  string
	downloadURL string
	client      *http.Client
}

func NewBootstrap(binaryPath, downloadURL string) *Bootstrap {
	return &Bootstrap{
		binaryPath:  binaryPath,
		downloadURL: downloadURL,
		client:      &http.Client{Timeout: downloadTimeout},
	}
}

// EnsureBinary downloads the renderer binary if it is not already present and
// verifies it exists afterwards.
func (b *Bootstrap) EnsureBinary(ctx context.Context) error {
	if _, err := os.Stat(b.binaryPath); err == nil {
		log.Debug().Str("path", b.binaryPath).Msg("cvwonder binary already present")
		return nil
	}

	if err := storage.EnsureDir(filepath.Dir(b.binaryPath)); err != nil {
		return err
	}

	log.Info().Str("url", b.downloadURL).Msg("downloading cvwonder binary")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.downloadURL, nil)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("download cvwonder binary: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download cvwonder binary: unexpected status %d from %s",
			resp.StatusCode, b.downloadURL)
	}

	// Write to a temp name first so a partial download never looks like a
	// usable binary.
	tmpPath := b.binaryPath + ".partial"
	out, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o755)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmpPath, err)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write cvwonder binary: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, b.binaryPath); err != nil {
		return fmt.Errorf("install cvwonder binary: %w", err)
	}

	if _, err := os.Stat(b.binaryPath); err != nil {
		return fmt.Errorf("cvwonder binary missing after download: %w", err)
	}

	log.Info().Str("path", b.binaryPath).Msg("cvwonder binary installed")
	return nil
}
