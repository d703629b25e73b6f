package instance

import (
	"os"
	"strings"
)

// GetID names this process in logs and lock owners. PEMINJAMAN_INSTANCE_ID
// wins, then the host name.
func GetID() string {
	if id := strings.TrimSpace(os.Getenv("PEMINJAMAN_INSTANCE_ID")); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
