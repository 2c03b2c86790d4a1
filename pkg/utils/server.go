package utils

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const ownerIDFile = ".owner_id"

// LockOwnerID identifies this process in valkey lock tokens. The id is kept under storagePath so a
// restarted process keeps the same owner and its stale leases stay recognizable in logs.
func LockOwnerID(override, storagePath string) string {
	if override = strings.TrimSpace(override); override != "" {
		return override
	}

	idFile := filepath.Join(storagePath, ownerIDFile)
	if data, err := os.ReadFile(idFile); err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id
		}
	}

	id := "localseo-" + hostLabel() + uuid.NewString()[:8]
	if err := os.MkdirAll(storagePath, 0o755); err == nil {
		_ = os.WriteFile(idFile, []byte(id), 0o644)
	}
	return id
}

// hostLabel keeps only key-safe characters of the hostname, with a trailing dash.
func hostLabel() string {
	host, err := os.Hostname()
	if err != nil || host == "localhost" {
		return ""
	}
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		}
		return -1
	}, host)
	if clean == "" {
		return ""
	}
	return clean + "-"
}
