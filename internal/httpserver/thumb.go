package httpserver

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	// decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"dirshare/internal/fsutil"
)

const thumbMax = 160

// handleThumb serves a small jpeg preview for an image in the tree, cached
// under the state dir keyed by path and mtime. The path query parameter is
// client-controlled and, unlike browse paths, never went through the mux,
// so it is cleaned before resolution and the result is checked against the
// root before any file or cache access.
func (s *Server) handleThumb(w http.ResponseWriter, r *http.Request) {
	rel := fsutil.CleanRelPath(r.URL.Query().Get("path"))
	abs := fsutil.Resolve(s.cfg.Root, "/"+rel)
	if !fsutil.Within(s.cfg.Root, abs) {
		http.NotFound(w, r)
		return
	}
	st, err := os.Stat(abs)
	if err != nil || st.IsDir() {
		http.NotFound(w, r)
		return
	}
	if !isImageExt(strings.ToLower(filepath.Ext(abs))) {
		http.NotFound(w, r)
		return
	}

	cacheDir := filepath.Join(s.cfg.StateDir, "thumbs")
	_ = os.MkdirAll(cacheDir, 0o755)
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d", abs, st.ModTime().Unix())))
	cached := filepath.Join(cacheDir, hex.EncodeToString(sum[:16])+".jpg")

	if b, err := os.ReadFile(cached); err == nil {
		writeThumb(w, b)
		return
	}
	b, err := renderThumb(abs, thumbMax)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	_ = os.WriteFile(cached, b, 0o644)
	writeThumb(w, b)
}

func writeThumb(w http.ResponseWriter, b []byte) {
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(b)
}

func renderThumb(absPath string, max int) ([]byte, error) {
	f, err := os.Open(absPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, os.ErrInvalid
	}

	nw, nh := w, h
	if w >= h && w > max {
		nw = max
		nh = h * max / w
	} else if h > w && h > max {
		nh = max
		nw = w * max / h
	}
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: 82}); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
