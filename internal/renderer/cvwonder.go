package renderer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/germainlefebvre4/cvwonder-studio/internal/errors"
)

// CVWonder drives the external cvwonder binary.
type CVWonder struct {
	binaryPath string
	workDir    string
	timeout    time.Duration
}

var _ Renderer = (*CVWonder)(nil)
var _ ThemeInstaller = (*CVWonder)(nil)

func NewCVWonder(binaryPath, workDir string, timeout time.Duration) *CVWonder {
	return &CVWonder{
		binaryPath: binaryPath,
		workDir:    workDir,
		timeout:    timeout,
	}
}

func (r *CVWonder) Render(ctx context.Context, inputPath, theme string, format Format, outputDir string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.binaryPath, "generate",
		"--input="+inputPath,
		"--theme="+theme,
		"--format="+string(format),
		"--output="+outputDir,
	)
	cmd.Dir = r.workDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()

	log.Debug().
		Str("theme", theme).
		Str("format", string(format)).
		Dur("duration", time.Since(start)).
		Str("stdout", strings.TrimSpace(stdout.String())).
		Msg("cvwonder generate finished")

	if err == nil {
		return nil
	}

	diag := strings.TrimSpace(stderr.String())

	// The renderer complains when its own temp file was already removed.
	// That warning does not affect the produced artifact.
	if isBenignStderr(diag) {
		log.Info().Str("stderr", diag).Msg("cvwonder succeeded despite temp file warning")
		return nil
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperrors.RenderFailed(fmt.Sprintf("renderer timed out after %s", r.timeout)).WithCause(err)
	}

	if diag == "" {
		diag = err.Error()
	}
	return apperrors.RenderFailed(diag).WithCause(err)
}

// InstallTheme shells out to `cvwonder theme install`, used as a fallback
// when cloning a theme repository directly fails.
func (r *CVWonder) InstallTheme(ctx context.Context, repoURL string) error {
	cmd := exec.CommandContext(ctx, r.binaryPath, "theme", "install", repoURL)
	cmd.Dir = r.workDir

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("cvwonder theme install %s: %w (stderr: %s)",
			repoURL, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func isBenignStderr(stderr string) bool {
	return strings.Contains(stderr, "Error removing output tmp file") &&
		(strings.Contains(stderr, "no such file or directory") ||
			strings.Contains(stderr, "tmp: cannot remove"))
}
