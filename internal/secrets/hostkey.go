package secrets

import (
	"os"
	"os/user"
	"strings"
)

// machine-id candidates, first readable wins
var machineIDPaths = []string{
	"/etc/machine-id",
	"/var/lib/dbus/machine-id",
}

// HostPassphrase derives an encryption passphrase from host identity:
// hostname, machine id when available, and the current user. This makes
// the encrypted file unreadable when copied to another machine or
// account, nothing more.
func HostPassphrase() string {
	var parts []string

	if hostname, err := os.Hostname(); err == nil {
		parts = append(parts, hostname)
	}
	for _, path := range machineIDPaths {
		if data, err := os.ReadFile(path); err == nil {
			if id := strings.TrimSpace(string(data)); id != "" {
				parts = append(parts, id)
				break
			}
		}
	}
	if u, err := user.Current(); err == nil {
		parts = append(parts, u.Uid, u.Username)
	}
	if len(parts) == 0 {
		parts = []string{"workspaced"}
	}
	return strings.Join(parts, "|")
}
