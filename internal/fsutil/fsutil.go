package fsutil

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// Resolve maps a request URL path onto an absolute filesystem path under
// rootAbs. Query string and fragment are stripped, the remainder is
// percent-decoded and normalized, and every segment that is empty, a drive
// specifier, or a current/parent directory marker is silently dropped.
// Traversal segments are ignored rather than rejected, so Resolve never
// fails: any input string yields some path inside rootAbs.
func Resolve(rootAbs, requestPath string) string {
	p := requestPath
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	if i := strings.IndexByte(p, '#'); i >= 0 {
		p = p[:i]
	}
	if dec, err := url.PathUnescape(p); err == nil {
		p = dec
	}
	p = path.Clean("/" + p)

	out := rootAbs
	for _, seg := range strings.Split(p, "/") {
		seg = stripDrive(seg)
		// path.Clean already collapsed interior dot segments; anything
		// left over is dropped, not diagnosed.
		if seg == "" || seg == "." || seg == ".." {
			continue
		}
		out = filepath.Join(out, seg)
	}
	return out
}

// stripDrive removes a Windows-style drive specifier ("C:") from the front
// of a single path segment.
func stripDrive(seg string) string {
	if len(seg) >= 2 && seg[1] == ':' &&
		(('a' <= seg[0] && seg[0] <= 'z') || ('A' <= seg[0] && seg[0] <= 'Z')) {
		return seg[2:]
	}
	return seg
}

// CleanRelPath takes a user path like "", ".", "/a/b", "a//b", and returns a
// slash-based, no-leading-slash relative path ("" means root). Parent
// segments are discarded by the forced-absolute Clean, matching Resolve.
func CleanRelPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || p == "." || p == "/" {
		return ""
	}
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean("/" + p)
	p = strings.TrimPrefix(p, "/")
	if p == "." {
		return ""
	}
	return p
}

// Within reports whether abs is rootAbs itself or lies below it.
func Within(rootAbs, abs string) bool {
	rootClean := filepath.Clean(rootAbs)
	absClean := filepath.Clean(abs)
	return absClean == rootClean ||
		strings.HasPrefix(absClean, rootClean+string(filepath.Separator))
}
