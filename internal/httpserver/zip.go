package httpserver

import (
	"archive/zip"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// writeZip walks rootDir and streams a zip of every regular file beneath
// it to w, entry names relative to rootDir. The walk is best-effort under
// concurrent modification: files and directories that vanish or turn
// unreadable mid-walk are skipped instead of aborting the archive.
// skipDir (the server's state directory) is excluded so the archive never
// swallows thumbnail caches or other server-managed files.
func writeZip(w io.Writer, rootDir, skipDir string) error {
	zw := zip.NewWriter(w)
	walkErr := filepath.WalkDir(rootDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if skipDir != "" && p == skipDir {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(rootDir, p)
		if err != nil {
			return nil
		}
		h := &zip.FileHeader{
			Name:   filepath.ToSlash(rel),
			Method: zip.Deflate,
		}
		if info, err := d.Info(); err == nil {
			h.Modified = info.ModTime()
		}
		wr, err := zw.CreateHeader(h)
		if err != nil {
			return err
		}
		f, err := os.Open(p)
		if err != nil {
			// vanished or unreadable; the entry stays empty
			return nil
		}
		_, cpErr := io.Copy(wr, f)
		_ = f.Close()
		return cpErr
	})
	closeErr := zw.Close()
	if walkErr != nil {
		return walkErr
	}
	return closeErr
}
