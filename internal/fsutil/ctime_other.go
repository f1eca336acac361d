//go:build !linux

package fsutil

import (
	"io/fs"
	"time"
)

func CreationTime(fi fs.FileInfo) time.Time {
	return fi.ModTime()
}
