package httpserver

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseSortKeyFallback(t *testing.T) {
	cases := map[string]SortKey{
		"name":     SortName,
		"size":     SortSize,
		"created":  SortCreated,
		"updated":  SortUpdated,
		"":         SortName,
		"bogus":    SortName,
		"SIZE":     SortName, // keys are lowercase, anything else falls back
		"filesize": SortName,
	}
	for in, want := range cases {
		if got := ParseSortKey(in); got != want {
			t.Errorf("ParseSortKey(%q) = %v, want %v", in, got, want)
		}
	}
	if ParseSortOrder("desc") != OrderDesc {
		t.Error("desc not recognized")
	}
	for _, in := range []string{"", "asc", "descending", "junk"} {
		if in != "asc" && in != "" && ParseSortOrder(in) != OrderAsc {
			t.Errorf("ParseSortOrder(%q) should fall back to asc", in)
		}
	}
}

func TestSortEntriesSizeDescTieBreak(t *testing.T) {
	ents := []Entry{
		{Name: "b", Size: 10},
		{Name: "a", Size: 10},
		{Name: "c", Size: 5},
	}
	sortEntries(ents, SortSize, OrderDesc)
	got := []string{ents[0].Name, ents[1].Name, ents[2].Name}
	// the two size-10 entries tie-break by case-insensitive name ascending
	want := []string{"a", "b", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestSortEntriesDirsCountAsZeroSize(t *testing.T) {
	ents := []Entry{
		{Name: "big", Size: 1000},
		{Name: "dir", IsDir: true, Size: 4096},
		{Name: "small", Size: 1},
	}
	sortEntries(ents, SortSize, OrderAsc)
	if ents[0].Name != "dir" {
		t.Errorf("directory should sort first ascending, got %v", ents[0].Name)
	}
}

func TestSortEntriesNameCaseInsensitive(t *testing.T) {
	ents := []Entry{
		{Name: "Zebra"},
		{Name: "apple"},
		{Name: "Mango"},
	}
	sortEntries(ents, SortName, OrderAsc)
	got := []string{ents[0].Name, ents[1].Name, ents[2].Name}
	want := []string{"apple", "Mango", "Zebra"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
	sortEntries(ents, SortName, OrderDesc)
	if ents[0].Name != "Zebra" {
		t.Errorf("desc order should start with Zebra, got %v", ents[0].Name)
	}
}

func TestDisplayNameSuffixes(t *testing.T) {
	if got := (Entry{Name: "docs", IsDir: true}).DisplayName(); got != "docs/" {
		t.Errorf("dir display = %q", got)
	}
	if got := (Entry{Name: "link", IsSymlink: true}).DisplayName(); got != "link@" {
		t.Errorf("symlink display = %q", got)
	}
	// "@" wins even when the link points at a directory
	if got := (Entry{Name: "dlink", IsDir: true, IsSymlink: true}).DisplayName(); got != "dlink@" {
		t.Errorf("dir symlink display = %q", got)
	}
	if got := (Entry{Name: "dlink", IsDir: true, IsSymlink: true}).LinkName(); got != "dlink/" {
		t.Errorf("dir symlink link = %q", got)
	}
	if got := (Entry{Name: "plain.txt"}).DisplayName(); got != "plain.txt" {
		t.Errorf("file display = %q", got)
	}
	// hrefs escape the name but keep the directory slash literal
	if got := (Entry{Name: "a b.txt"}).LinkName(); got != "a%20b.txt" {
		t.Errorf("escaped link = %q", got)
	}
	if got := (Entry{Name: "my docs", IsDir: true}).LinkName(); got != "my%20docs/" {
		t.Errorf("escaped dir link = %q", got)
	}
}

func TestListDirFreshness(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "first.txt"), []byte("1"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	ents, err := listDir(dir, SortName, OrderAsc)
	if err != nil {
		t.Fatalf("listDir: %v", err)
	}
	if len(ents) != 1 {
		t.Fatalf("entries = %d, want 1", len(ents))
	}

	// a second call re-reads the filesystem, no caching
	if err := os.WriteFile(filepath.Join(dir, "second.txt"), []byte("22"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	ents, err = listDir(dir, SortName, OrderAsc)
	if err != nil {
		t.Fatalf("listDir: %v", err)
	}
	if len(ents) != 2 {
		t.Fatalf("entries = %d after new file, want 2", len(ents))
	}
	if ents[1].Name != "second.txt" || ents[1].Size != 2 {
		t.Errorf("unexpected entry %+v", ents[1])
	}
}

func TestListDirSymlink(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "target"), 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if err := os.Symlink(filepath.Join(dir, "target"), filepath.Join(dir, "alias")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	ents, err := listDir(dir, SortName, OrderAsc)
	if err != nil {
		t.Fatalf("listDir: %v", err)
	}
	var alias *Entry
	for i := range ents {
		if ents[i].Name == "alias" {
			alias = &ents[i]
		}
	}
	if alias == nil {
		t.Fatal("alias entry missing")
	}
	if !alias.IsSymlink {
		t.Error("alias not flagged as symlink")
	}
	if !alias.IsDir {
		t.Error("symlink to directory should navigate like one")
	}
	if alias.DisplayName() != "alias@" {
		t.Errorf("display = %q, want alias@", alias.DisplayName())
	}
}

func TestHumanSize(t *testing.T) {
	cases := map[int64]string{
		0:       "0.0B",
		100:     "100.0B",
		1536:    "1.5KiB",
		1 << 20: "1.0MiB",
	}
	for in, want := range cases {
		if got := humanSize(in); got != want {
			t.Errorf("humanSize(%d) = %q, want %q", in, got, want)
		}
	}
}
