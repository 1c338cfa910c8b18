package instance

import (
	"os"
	"path/filepath"
)

// baseOverride lets tests relocate the tree; empty means ~/.blackzap.
var baseOverride string

// BaseDir returns ~/.blackzap, or $BLACKZAP_HOME when set.
func BaseDir() string {
	if baseOverride != "" {
		return baseOverride
	}
	if env := os.Getenv("BLACKZAP_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".blackzap")
}

// Dir returns the instance-specific directory.
func Dir(name string) string {
	return filepath.Join(BaseDir(), "instances", name)
}

// SocketPath returns the UDS socket path bzd listens on.
func SocketPath(name string) string {
	return filepath.Join(Dir(name), "bzd.sock")
}

// DBPath returns the backend database path.
func DBPath(name string) string {
	return filepath.Join(Dir(name), "blackzap.db")
}

// PrefsPath returns the client-side persisted state file.
func PrefsPath(name string) string {
	return filepath.Join(Dir(name), "prefs.toml")
}

// LogDir returns the log directory for an instance.
func LogDir(name string) string {
	return filepath.Join(Dir(name), "logs")
}

// LogPath returns the log file path for a component (bzd, bztui, bzctl).
func LogPath(name, component string) string {
	return filepath.Join(LogDir(name), component+".log")
}

// ConfigPath returns the global config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// EnsureDir creates the instance directory tree with proper permissions.
func EnsureDir(name string) error {
	for _, d := range []string{Dir(name), LogDir(name)} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
