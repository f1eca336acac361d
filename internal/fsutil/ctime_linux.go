//go:build linux

package fsutil

import (
	"io/fs"
	"syscall"
	"time"
)

// CreationTime returns the best available creation timestamp for an entry.
// Linux exposes no birth time through os.FileInfo, so the inode change
// time stands in; callers fall back to ModTime when even that is missing.
func CreationTime(fi fs.FileInfo) time.Time {
	if st, ok := fi.Sys().(*syscall.Stat_t); ok {
		return time.Unix(st.Ctim.Sec, st.Ctim.Nsec)
	}
	return fi.ModTime()
}
