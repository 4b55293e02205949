// Package settings persists the last connection selection between runs.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/allbin/serterm"
)

const (
	keyPort     = "port"
	keyBaudrate = "baudrate"

	stateFile = "state.yaml"
)

// Store reads and writes the state file at Path.
type Store struct {
	Path string
}

// NewStore returns a Store at path, or at DefaultPath when path is empty.
func NewStore(path string) (*Store, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return &Store{Path: path}, nil
}

// DefaultPath returns $XDG_STATE_HOME/serterm/state.yaml, falling back to the
// user config directory.
func DefaultPath() (string, error) {
	base := os.Getenv("XDG_STATE_HOME")
	if base == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("locate state directory: %w", err)
		}
		base = dir
	}
	return filepath.Join(base, "serterm", stateFile), nil
}

func (s *Store) viper() *viper.Viper {
	v := viper.New()
	v.SetConfigFile(s.Path)
	v.SetConfigType("yaml")
	v.SetDefault(keyPort, "")
	v.SetDefault(keyBaudrate, serterm.DefaultBaudrate.String())
	return v
}

// Load returns the stored selection. A missing file yields the defaults
// without error. An unreadable file yields the defaults together with the
// error so the caller can report it and carry on.
func (s *Store) Load() (serterm.ConnectionConfig, error) {
	defaults := serterm.DefaultConnectionConfig()

	if _, err := os.Stat(s.Path); errors.Is(err, fs.ErrNotExist) {
		return defaults, nil
	}

	v := s.viper()
	if err := v.ReadInConfig(); err != nil {
		return defaults, fmt.Errorf("read state %s: %w", s.Path, err)
	}

	return serterm.ConnectionConfig{
		Port:     v.GetString(keyPort),
		Baudrate: serterm.BaudrateOrDefault(v.GetString(keyBaudrate)),
	}, nil
}

// Save overwrites the state file with cfg.
func (s *Store) Save(cfg serterm.ConnectionConfig) error {
	baud, err := cfg.Baudrate.MarshalText()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	v := s.viper()
	v.Set(keyPort, cfg.Port)
	v.Set(keyBaudrate, string(baud))
	if err := v.WriteConfigAs(s.Path); err != nil {
		return fmt.Errorf("write state %s: %w", s.Path, err)
	}
	return nil
}

// Reset removes the state file so the next Load returns defaults.
func (s *Store) Reset() error {
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
