// Package rewrite post-processes rendered HTML so embedded asset references
// resolve through the per-session API namespace. The artifact is served
// standalone (inside an iframe), so every relative or theme-relative
// reference must become an absolute session-scoped path.
package rewrite

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// Bare or root-relative theme stylesheet reference.
	stylesheetRe = regexp.MustCompile(`href=["'](?:/styles\.css|styles\.css)["']`)

	// Other bare css/ and js/ references, sub-path preserved.
	staticRe = regexp.MustCompile(`(href|src)=["']((?:css|js)/[^"']+)["']`)

	// Image references. Any pre-existing session or legacy prefix is
	// stripped before re-prefixing so repeated rewrites stay idempotent.
	imageRe = regexp.MustCompile(`src=["'](?:/api/sessions/[^/]+/images/|/session/[^/]+/images/|/images/|)([^"']*?\.(?:png|jpe?g|gif|webp|svg))["']`)
)

// Rewrite maps every stylesheet, script and image reference in html onto the
// session-scoped static and image endpoints. The passes are order-sensitive
// and the whole transform is idempotent: applying it twice produces the same
// output as applying it once.
func Rewrite(html, sessionID string) string {
	html = stylesheetRe.ReplaceAllString(html,
		fmt.Sprintf(`href="/api/sessions/%s/static/styles.css"`, sessionID))

	html = staticRe.ReplaceAllString(html,
		fmt.Sprintf(`${1}="/api/sessions/%s/static/${2}"`, sessionID))

	html = imageRe.ReplaceAllStringFunc(html, func(match string) string {
		rel := imageRe.FindStringSubmatch(match)[1]
		// Only session-relative references are remapped. External URLs
		// and paths already pointing at the static endpoint stay as-is.
		if strings.HasPrefix(rel, "/api/") ||
			strings.HasPrefix(rel, "http://") ||
			strings.HasPrefix(rel, "https://") ||
			strings.HasPrefix(rel, "//") ||
			strings.HasPrefix(rel, "data:") {
			return match
		}
		return fmt.Sprintf(`src="/api/sessions/%s/images/%s"`, sessionID, rel)
	})

	return html
}
