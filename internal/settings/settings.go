package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// DefaultPath is where Load looks when no path is given.
const DefaultPath = "~/.config/edid/config.toml"

// Settings holds the CLI configuration.
type Settings struct {
	BackupDir  string `toml:"backup_dir"`
	LockDir    string `toml:"lock_dir"`
	DeviceGlob string `toml:"device_glob"`
	LogLevel   string `toml:"log_level"`
	LogFormat  string `toml:"log_format"`
}

func Default() Settings {
	return Settings{
		BackupDir:  "~/.edid-backups",
		LockDir:    DefaultLockDir(),
		DeviceGlob: "/dev/i2c-*",
		LogLevel:   "info",
		LogFormat:  "console",
	}
}

// DefaultLockDir is a per-user directory for bus lock files: the runtime dir
// when the session has one, else the user cache dir.
func DefaultLockDir() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "edid")
	}
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "edid", "locks")
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("edid-locks-%d", os.Getuid()))
}

// Load reads path (DefaultPath when empty) over the defaults. A missing file
// is not an error; exists reports whether one was read.
func Load(path string) (cfg Settings, resolved string, exists bool, err error) {
	cfg = Default()
	if path == "" {
		path = DefaultPath
	}
	resolved, err = ExpandPath(path)
	if err != nil {
		return Settings{}, "", false, err
	}

	file, err := os.Open(resolved)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return Settings{}, "", false, fmt.Errorf("open config: %w", err)
	default:
		defer file.Close()
		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return Settings{}, "", false, fmt.Errorf("parse config %s: %w", resolved, err)
		}
		exists = true
	}

	if err := cfg.normalize(); err != nil {
		return Settings{}, "", false, err
	}
	return cfg, resolved, exists, nil
}

func (s *Settings) normalize() error {
	var err error
	if s.BackupDir, err = ExpandPath(strings.TrimSpace(s.BackupDir)); err != nil {
		return fmt.Errorf("backup_dir: %w", err)
	}
	if s.BackupDir == "" {
		return errors.New("backup_dir must not be empty")
	}
	if s.LockDir, err = ExpandPath(strings.TrimSpace(s.LockDir)); err != nil {
		return fmt.Errorf("lock_dir: %w", err)
	}
	s.DeviceGlob = strings.TrimSpace(s.DeviceGlob)
	if s.DeviceGlob == "" {
		s.DeviceGlob = Default().DeviceGlob
	}
	if _, err := filepath.Match(s.DeviceGlob, ""); err != nil {
		return fmt.Errorf("device_glob: %w", err)
	}
	s.LogLevel = strings.ToLower(strings.TrimSpace(s.LogLevel))
	s.LogFormat = strings.ToLower(strings.TrimSpace(s.LogFormat))
	switch s.LogFormat {
	case "", "console", "json":
	default:
		return fmt.Errorf("log_format: unsupported value %q", s.LogFormat)
	}
	return nil
}

// ExpandPath resolves a leading ~ and makes the path absolute. Empty stays empty.
func ExpandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

const sampleHeader = `# edid configuration
#
# backup_dir   where device contents are saved before every write or write test
# lock_dir     per-bus lock files; set to "" to disable locking
# device_glob  fallback pattern for finding I2C buses
# log_level    debug, info, warn or error
# log_format   console or json

`

// Sample renders a config file holding the defaults.
func Sample() ([]byte, error) {
	body, err := toml.Marshal(Default())
	if err != nil {
		return nil, err
	}
	return append([]byte(sampleHeader), body...), nil
}

// WriteSample writes Sample to path, creating parent directories. An existing
// file is left alone unless overwrite is set.
func WriteSample(path string, overwrite bool) (string, error) {
	if path == "" {
		path = DefaultPath
	}
	resolved, err := ExpandPath(path)
	if err != nil {
		return "", err
	}
	if !overwrite {
		if _, err := os.Stat(resolved); err == nil {
			return resolved, fmt.Errorf("config %s already exists", resolved)
		}
	}
	data, err := Sample()
	if err != nil {
		return "", fmt.Errorf("render sample config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}
	return resolved, os.WriteFile(resolved, data, 0o644)
}
