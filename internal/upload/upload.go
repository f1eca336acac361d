// Package upload consumes multipart/form-data request bodies and streams
// every "file" part to disk. Bodies are never buffered whole: each part is
// copied straight from the wire into its destination file.
package upload

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
)

// Result reports the outcome of one parse call. Failures are carried in
// Message and rendered into the response body; the transport-level status
// stays 200 for uploads, so callers key off OK, not the status code.
type Result struct {
	OK      bool
	Message string
	Files   []string
	Bytes   int64
}

// ParseTo extracts every file part named "file" from body and writes each
// to destDir under its submitted base name. Multiple files under the field
// are written independently, but the call reports a single aggregate
// outcome: the first write error stops the parse and fails the whole call.
func ParseTo(destDir, contentType string, body io.Reader) Result {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		return Result{Message: "Content-Type is not multipart/form-data"}
	}
	boundary := params["boundary"]
	if boundary == "" {
		return Result{Message: "multipart boundary missing"}
	}

	mr := multipart.NewReader(body, boundary)
	var written []string
	var total int64
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Result{Message: fmt.Sprintf("malformed multipart body: %v", err)}
		}
		if part.FormName() != "file" || part.FileName() == "" {
			_ = discard(part)
			continue
		}
		name := baseName(part.FileName())
		if name == "" {
			_ = discard(part)
			continue
		}
		n, err := writePart(filepath.Join(destDir, name), part)
		total += n
		if err != nil {
			return Result{
				Message: fmt.Sprintf("can't write %q, do you have permission to write?", name),
				Bytes:   total,
			}
		}
		written = append(written, name)
	}

	if len(written) == 0 {
		return Result{Message: "can't find out file name...", Bytes: total}
	}
	return Result{
		OK:      true,
		Message: fmt.Sprintf("File %s upload success!", quoteList(written)),
		Files:   written,
		Bytes:   total,
	}
}

func writePart(dst string, part *multipart.Part) (int64, error) {
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, part)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dst)
		return n, err
	}
	return n, nil
}

// baseName strips any client-supplied directory components; browsers send
// plain names but nothing stops a hand-rolled client from sending a path.
func baseName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(filepath.FromSlash(name))
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return ""
	}
	return name
}

func discard(p *multipart.Part) error {
	_, err := io.Copy(io.Discard, p)
	return err
}

func quoteList(names []string) string {
	q := make([]string, len(names))
	for i, n := range names {
		q[i] = "'" + n + "'"
	}
	return strings.Join(q, ", ")
}
