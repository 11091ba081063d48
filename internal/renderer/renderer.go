package renderer

import "context"

// Format is an output format the renderer can produce.
type Format string

const (
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
)

func (f Format) Valid() bool {
	return f == FormatHTML || f == FormatPDF
}

// ArtifactName is the file the renderer writes into the output directory.
func (f Format) ArtifactName() string {
	if f == FormatPDF {
		return "cv.pdf"
	}
	return "cv.html"
}

func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/html"
}

// Renderer converts a YAML CV plus an installed theme into an artifact inside
// outputDir. Implementations encapsulate the subprocess invocation, timeout
// and stderr classification so the pipeline never sees exec details.
type Renderer interface {
	Render(ctx context.Context, inputPath, theme string, format Format, outputDir string) error
}

// ThemeInstaller installs a theme from its source repository into the local
// themes directory.
type ThemeInstaller interface {
	InstallTheme(ctx context.Context, repoURL string) error
}
