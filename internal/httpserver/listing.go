package httpserver

import (
	"fmt"
	"io/fs"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"dirshare/internal/fsutil"
)

// SortKey selects the listing column to order by. Unrecognized values fall
// back to SortName rather than erroring.
type SortKey int

const (
	SortName SortKey = iota
	SortSize
	SortCreated
	SortUpdated
)

type SortOrder int

const (
	OrderAsc SortOrder = iota
	OrderDesc
)

func ParseSortKey(s string) SortKey {
	switch s {
	case "size":
		return SortSize
	case "created":
		return SortCreated
	case "updated":
		return SortUpdated
	default:
		return SortName
	}
}

func ParseSortOrder(s string) SortOrder {
	if s == "desc" {
		return OrderDesc
	}
	return OrderAsc
}

func (k SortKey) String() string {
	switch k {
	case SortSize:
		return "size"
	case SortCreated:
		return "created"
	case SortUpdated:
		return "updated"
	default:
		return "name"
	}
}

func (o SortOrder) String() string {
	if o == OrderDesc {
		return "desc"
	}
	return "asc"
}

// Entry is the view model for one row of a directory listing. It is
// produced fresh on every request; the filesystem stays the source of
// truth and concurrent external changes show up on the next reload.
type Entry struct {
	Name      string
	IsDir     bool
	IsSymlink bool
	Size      int64
	Created   int64 // unix seconds
	Modified  int64 // unix seconds
}

// DisplayName appends "/" for directories and "@" for symbolic links.
// The "@" wins for display even when the link target is a directory.
func (e Entry) DisplayName() string {
	if e.IsSymlink {
		return e.Name + "@"
	}
	if e.IsDir {
		return e.Name + "/"
	}
	return e.Name
}

// LinkName is the href target relative to the listed directory: the
// escaped entry name, with a trailing slash for directories.
func (e Entry) LinkName() string {
	n := url.PathEscape(e.Name)
	if e.IsDir {
		return n + "/"
	}
	return n
}

// listDir reads dir and returns its entries ordered by key and order.
// Entries that vanish between ReadDir and Stat are skipped.
func listDir(dir string, key SortKey, order SortOrder) ([]Entry, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(ents))
	for _, de := range ents {
		info, err := de.Info()
		if err != nil {
			continue
		}
		e := Entry{
			Name:      de.Name(),
			IsDir:     de.IsDir(),
			IsSymlink: de.Type()&fs.ModeSymlink != 0,
			Size:      info.Size(),
			Created:   fsutil.CreationTime(info).Unix(),
			Modified:  info.ModTime().Unix(),
		}
		if e.IsSymlink {
			// Follow the link once so a symlink to a directory still
			// navigates like one.
			if st, err := os.Stat(filepath.Join(dir, de.Name())); err == nil && st.IsDir() {
				e.IsDir = true
			}
		}
		out = append(out, e)
	}
	sortEntries(out, key, order)
	return out, nil
}

// sortEntries orders entries in place. Name comparisons are
// case-insensitive throughout; directories count as size zero for the
// size key; ties on non-name keys break by case-insensitive name
// ascending regardless of order.
func sortEntries(ents []Entry, key SortKey, order SortOrder) {
	nameLess := func(a, b Entry) bool {
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	}
	effSize := func(e Entry) int64 {
		if e.IsDir {
			return 0
		}
		return e.Size
	}
	sort.SliceStable(ents, func(i, j int) bool {
		a, b := ents[i], ents[j]
		var ka, kb int64
		switch key {
		case SortSize:
			ka, kb = effSize(a), effSize(b)
		case SortCreated:
			ka, kb = a.Created, b.Created
		case SortUpdated:
			ka, kb = a.Modified, b.Modified
		default:
			na, nb := strings.ToLower(a.Name), strings.ToLower(b.Name)
			if na == nb {
				return false
			}
			if order == OrderDesc {
				return na > nb
			}
			return na < nb
		}
		if ka == kb {
			return nameLess(a, b)
		}
		if order == OrderDesc {
			return ka > kb
		}
		return ka < kb
	})
}

// humanSize renders a byte count the way the listing page shows it.
func humanSize(n int64) string {
	f := float64(n)
	for _, unit := range []string{"", "Ki", "Mi", "Gi", "Ti", "Pi", "Ei", "Zi"} {
		if math.Abs(f) < 1024.0 {
			return fmt.Sprintf("%3.1f%sB", f, unit)
		}
		f /= 1024.0
	}
	return fmt.Sprintf("%.1fYiB", f)
}
