package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"dirshare/internal/config"
)

// VerifyPassword checks a submitted shared password against the configured
// secret. A bcrypt hash takes precedence; a plain secret is compared in
// constant time. With no secret configured every submission fails, so the
// caller decides what an unconfigured gate means.
func VerifyPassword(cfg config.Config, submitted string) bool {
	if strings.Contains(submitted, "\x00") {
		return false
	}
	if cfg.PasswordBcrypt != "" {
		return bcrypt.CompareHashAndPassword([]byte(cfg.PasswordBcrypt), []byte(submitted)) == nil
	}
	if cfg.Password != "" {
		return subtle.ConstantTimeCompare([]byte(cfg.Password), []byte(submitted)) == 1
	}
	return false
}

// ParseBasicAuth decodes an Authorization header of the Basic scheme.
// WebDAV clients cannot run the cookie login flow, so the /dav/ mount
// accepts the shared password this way (any username).
func ParseBasicAuth(v string) (user, pass string, ok bool) {
	const prefix = "Basic "
	if !strings.HasPrefix(v, prefix) {
		return "", "", false
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(strings.TrimPrefix(v, prefix)))
	if err != nil {
		return "", "", false
	}
	s := string(raw)
	i := strings.IndexByte(s, ':')
	if i < 0 {
		return "", "", false
	}
	u := s[:i]
	p := s[i+1:]
	if strings.Contains(u, "\x00") || strings.Contains(p, "\x00") {
		return "", "", false
	}
	return u, p, true
}
