package config

import "time"

// Config is intentionally small and JSON-friendly.
// If Password and PasswordBcrypt are both empty, dirshare runs without auth.
type Config struct {
	// Addr is the listen address, "interface:port".
	Addr string `json:"addr"`

	// Root is the directory served by dirshare.
	Root string `json:"root"`

	// StateDir stores thumbnails and small metadata.
	// Default: <root>/.dirshare
	StateDir string `json:"stateDir,omitempty"`

	// Password is the shared secret compared verbatim against login
	// submissions. Prefer PasswordBcrypt for anything long-lived.
	Password string `json:"password,omitempty"`

	// PasswordBcrypt is a bcrypt hash of the shared secret, as printed by
	// `dirshare passwd`. Takes precedence over Password when both are set.
	PasswordBcrypt string `json:"passwordBcrypt,omitempty"`

	// SessionMinutes is the lifetime of a login session. Default: 720.
	SessionMinutes int `json:"sessionMinutes,omitempty"`

	// CookieName names the session cookie. Default: "dirshare_session".
	CookieName string `json:"cookieName,omitempty"`

	// RegistryPath is the JSON file recording live dirshare instances.
	// Default: <os user config dir>/dirshare/instances.json
	RegistryPath string `json:"registryPath,omitempty"`

	// EnableDAV mounts a WebDAV handler for the root under /dav/.
	// It honors the same shared password (Basic auth or session cookie).
	// While enabled, an entry named "dav" at the top of the root is
	// shadowed by the mount.
	EnableDAV bool `json:"enableDav,omitempty"`
}

// HasPassword reports whether the session gate is active.
func (c Config) HasPassword() bool {
	return c.Password != "" || c.PasswordBcrypt != ""
}

// SessionTTL returns the configured session lifetime with the default applied.
func (c Config) SessionTTL() time.Duration {
	m := c.SessionMinutes
	if m <= 0 {
		m = 720
	}
	return time.Duration(m) * time.Minute
}

// Cookie returns the session cookie name with the default applied.
func (c Config) Cookie() string {
	if c.CookieName == "" {
		return "dirshare_session"
	}
	return c.CookieName
}
