package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Argon2id parameters following the OWASP low-memory recommendation.
const (
	memory      = 19 * 1024 // KiB
	iterations  = 2
	parallelism = 1
	keyLength   = 32
	saltLength  = 16
)

// The pepper is a server-side secret mixed into every password hash. It
// lives in a file outside the database so a dumped users table alone is
// not enough for offline guessing.
var (
	pepperPath string
	pepperOnce sync.Once
	pepper     string
)

// SetPepperPath points the package at the pepper file. Call it before the
// first hash or verify; the file is read once and cached for the life of
// the process.
func SetPepperPath(path string) {
	pepperPath = path
}

// GetPepper returns the process pepper, loading the configured file on
// first use. A missing file is populated with fresh random material so a
// new deployment bootstraps itself.
func GetPepper() string {
	pepperOnce.Do(func() {
		p, err := loadOrCreatePepper(filepath.Clean(pepperPath))
		if err != nil {
			slog.Error("pepper unavailable", slog.Any("err", err))
			os.Exit(1)
		}
		pepper = p
	})
	return pepper
}

func loadOrCreatePepper(path string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return "", fmt.Errorf("create pepper dir: %w", err)
	}

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		return string(raw), nil
	case !os.IsNotExist(err):
		return "", fmt.Errorf("read pepper file: %w", err)
	}

	buf := make([]byte, keyLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate pepper: %w", err)
	}

	fresh := base64.RawURLEncoding.EncodeToString(buf)
	if err := os.WriteFile(path, []byte(fresh), 0600); err != nil {
		return "", fmt.Errorf("write pepper file: %w", err)
	}
	return fresh, nil
}
