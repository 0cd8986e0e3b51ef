package profile

import (
	"os"
	"path/filepath"
)

// BaseDir returns ~/.postbot.
func BaseDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".postbot")
}

// Dir returns the profile-specific directory.
func Dir(name string) string {
	return filepath.Join(BaseDir(), "profiles", name)
}

// SocketPath returns the UDS socket path of the profile daemon.
func SocketPath(name string) string {
	return filepath.Join(Dir(name), "postd.sock")
}

// LockPath returns the lock file path for a profile.
func LockPath(name string) string {
	return filepath.Join(Dir(name), "LOCK")
}

// ConfigPath returns the profile's bot configuration file.
func ConfigPath(name string) string {
	return filepath.Join(Dir(name), "postbot.toml")
}

// EnvPath returns the profile's .env secrets file.
func EnvPath(name string) string {
	return filepath.Join(Dir(name), ".env")
}

// DBPath returns the posts database path.
func DBPath(name string) string {
	return filepath.Join(Dir(name), "posts.db")
}

// WhatsAppDBPath returns the whatsmeow device store path.
func WhatsAppDBPath(name string) string {
	return filepath.Join(Dir(name), "whatsapp.db")
}

// LogDir returns the log directory for a profile.
func LogDir(name string) string {
	return filepath.Join(Dir(name), "logs")
}

// LogPath returns the daemon log file path.
func LogPath(name string) string {
	return filepath.Join(LogDir(name), "postd.log")
}

// GlobalConfigPath returns the path of the file holding the default profile.
func GlobalConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// EnsureDir creates the profile directory tree with proper permissions.
func EnsureDir(name string) error {
	for _, d := range []string{Dir(name), LogDir(name)} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
