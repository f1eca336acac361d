package registry

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "instances.json"))
}

func TestLoadMissingFile(t *testing.T) {
	r := testRegistry(t)
	entries, err := r.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty registry, got %d entries", len(entries))
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	r := testRegistry(t)
	in := []Entry{
		{PID: 123, Interface: "0.0.0.0", Port: 8000, Cwd: "/srv/a", StartedAt: time.Now().Truncate(time.Second)},
		{PID: 456, Interface: "127.0.0.1", Port: 9000, Cwd: "/srv/b", StartedAt: time.Now().Truncate(time.Second)},
	}
	if err := r.Save(in); err != nil {
		t.Fatalf("Save: %v", err)
	}
	out, err := r.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(out) != 2 || out[0].PID != 123 || out[1].Port != 9000 {
		t.Errorf("roundtrip mismatch: %+v", out)
	}
}

func TestRegisterPrunesDead(t *testing.T) {
	r := testRegistry(t)
	dead := Entry{PID: 1 << 28, Interface: "0.0.0.0", Port: 8001, Cwd: "/gone"}
	if err := r.Save([]Entry{dead}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	self := Entry{PID: os.Getpid(), Interface: "0.0.0.0", Port: 8000, Cwd: "/here", StartedAt: time.Now()}
	if err := r.Register(self); err != nil {
		t.Fatalf("Register: %v", err)
	}

	out, err := r.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(out) != 1 || out[0].PID != os.Getpid() {
		t.Errorf("expected only own entry, got %+v", out)
	}
}

func TestDeregister(t *testing.T) {
	r := testRegistry(t)
	self := Entry{PID: os.Getpid(), Interface: "0.0.0.0", Port: 8000, Cwd: "/here", StartedAt: time.Now()}
	if err := r.Register(self); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Deregister(os.Getpid()); err != nil {
		t.Fatalf("Deregister: %v", err)
	}
	out, _ := r.Load()
	if len(out) != 0 {
		t.Errorf("expected empty registry, got %+v", out)
	}
}

func TestLive(t *testing.T) {
	r := testRegistry(t)
	entries := []Entry{
		{PID: os.Getpid(), Interface: "0.0.0.0", Port: 8000, Cwd: "/here"},
		{PID: 1 << 28, Interface: "0.0.0.0", Port: 8001, Cwd: "/gone"},
	}
	if err := r.Save(entries); err != nil {
		t.Fatalf("Save: %v", err)
	}
	live, err := r.Live()
	if err != nil {
		t.Fatalf("Live: %v", err)
	}
	if len(live) != 1 || live[0].PID != os.Getpid() {
		t.Errorf("Live = %+v, want only own PID", live)
	}
}

func TestIsProcessAlive(t *testing.T) {
	if !IsProcessAlive(os.Getpid()) {
		t.Error("own process reported dead")
	}
	// pid 1 always exists; without privileges the probe signal comes back
	// EPERM, which still means the process is there
	if !IsProcessAlive(1) {
		t.Error("pid 1 reported dead")
	}
	if IsProcessAlive(0) || IsProcessAlive(-1) {
		t.Error("non-positive PIDs must be dead")
	}
	if IsProcessAlive(1 << 28) {
		t.Error("absurd PID reported alive")
	}
}
