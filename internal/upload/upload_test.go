package upload

import (
	"bytes"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func buildMultipart(t *testing.T, files map[string][]byte) (string, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, data := range files {
		fw, err := mw.CreateFormFile("file", name)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := fw.Write(data); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return mw.FormDataContentType(), &buf
}

func TestParseToSingleFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte("hello upload")
	ct, body := buildMultipart(t, map[string][]byte{"hello.txt": content})

	res := ParseTo(dir, ct, body)
	if !res.OK {
		t.Fatalf("parse failed: %s", res.Message)
	}
	if res.Bytes != int64(len(content)) {
		t.Errorf("Bytes = %d, want %d", res.Bytes, len(content))
	}
	got, err := os.ReadFile(filepath.Join(dir, "hello.txt"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("content mismatch: got %q", got)
	}
	if !strings.Contains(res.Message, "hello.txt") {
		t.Errorf("message %q does not name the file", res.Message)
	}
}

func TestParseToMultipleFiles(t *testing.T) {
	dir := t.TempDir()
	files := map[string][]byte{
		"a.bin": bytes.Repeat([]byte{0xAA}, 100),
		"b.bin": bytes.Repeat([]byte{0xBB}, 200),
	}
	ct, body := buildMultipart(t, files)

	res := ParseTo(dir, ct, body)
	if !res.OK {
		t.Fatalf("parse failed: %s", res.Message)
	}
	if len(res.Files) != 2 {
		t.Fatalf("Files = %v, want 2 entries", res.Files)
	}
	if res.Bytes != 300 {
		t.Errorf("Bytes = %d, want 300", res.Bytes)
	}
	for name, data := range files {
		got, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("ReadFile %s: %v", name, err)
		}
		if !bytes.Equal(got, data) {
			t.Errorf("%s content mismatch", name)
		}
	}
}

func TestParseToNoFileField(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("comment", "no file here"); err != nil {
		t.Fatalf("WriteField: %v", err)
	}
	_ = mw.Close()

	res := ParseTo(dir, mw.FormDataContentType(), &buf)
	if res.OK {
		t.Fatal("expected failure with no file field")
	}
	ents, _ := os.ReadDir(dir)
	if len(ents) != 0 {
		t.Errorf("nothing should be written, found %d entries", len(ents))
	}
}

func TestParseToBadContentType(t *testing.T) {
	res := ParseTo(t.TempDir(), "text/plain", strings.NewReader("body"))
	if res.OK {
		t.Fatal("expected failure for non-multipart body")
	}
	res = ParseTo(t.TempDir(), "multipart/form-data", strings.NewReader("body"))
	if res.OK {
		t.Fatal("expected failure with no boundary")
	}
}

func TestParseToStripsClientPaths(t *testing.T) {
	dir := t.TempDir()
	ct, body := buildMultipart(t, map[string][]byte{"../../evil.txt": []byte("x")})

	res := ParseTo(dir, ct, body)
	if !res.OK {
		t.Fatalf("parse failed: %s", res.Message)
	}
	if _, err := os.Stat(filepath.Join(dir, "evil.txt")); err != nil {
		t.Errorf("sanitized file missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(filepath.Dir(dir)), "evil.txt")); err == nil {
		t.Error("file escaped the destination directory")
	}
}

func TestParseToUnwritableDest(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("directory permissions do not bind root")
	}
	dir := t.TempDir()
	if err := os.Chmod(dir, 0o555); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	ct, body := buildMultipart(t, map[string][]byte{"f.txt": []byte("x")})
	res := ParseTo(dir, ct, body)
	if res.OK {
		t.Fatal("expected failure writing into read-only directory")
	}
	if !strings.Contains(res.Message, "permission") {
		t.Errorf("message %q should mention permission", res.Message)
	}
}
