// Package registry persists the list of running dirshare instances so the
// CLI can enumerate them. Each instance appends itself on startup and the
// list is pruned of dead PIDs on every load-and-save cycle.
package registry

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"
)

// Entry describes one server instance.
type Entry struct {
	PID       int       `json:"pid"`
	Interface string    `json:"interface"`
	Port      int       `json:"port"`
	Cwd       string    `json:"cwd"`
	StartedAt time.Time `json:"started_at"`
}

// Registry reads and writes the instance list at a fixed path.
type Registry struct {
	path string
}

func New(path string) *Registry {
	return &Registry{path: path}
}

// DefaultPath places the registry under the user config dir, falling back
// to the temp dir when none is available.
func DefaultPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "dirshare", "instances.json")
}

// Load returns all recorded entries. A missing file is an empty registry.
func (r *Registry) Load() ([]Entry, error) {
	b, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var entries []Entry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Save atomically replaces the registry contents.
func (r *Registry) Save(entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, r.path)
}

// Register appends e after pruning entries whose process has exited.
func (r *Registry) Register(e Entry) error {
	entries, err := r.Load()
	if err != nil {
		// A corrupt registry should not stop the server; start fresh.
		entries = nil
	}
	live := entries[:0]
	for _, old := range entries {
		if old.PID != e.PID && IsProcessAlive(old.PID) {
			live = append(live, old)
		}
	}
	live = append(live, e)
	return r.Save(live)
}

// Deregister removes the entry for pid, pruning dead ones as it goes.
func (r *Registry) Deregister(pid int) error {
	entries, err := r.Load()
	if err != nil {
		return err
	}
	live := entries[:0]
	for _, e := range entries {
		if e.PID != pid && IsProcessAlive(e.PID) {
			live = append(live, e)
		}
	}
	return r.Save(live)
}

// Live returns the recorded entries whose processes are still running.
func (r *Registry) Live() ([]Entry, error) {
	entries, err := r.Load()
	if err != nil {
		return nil, err
	}
	live := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if IsProcessAlive(e.PID) {
			live = append(live, e)
		}
	}
	return live, nil
}
