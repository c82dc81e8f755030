// Package paths resolves where mediumctl keeps its configuration and its
// persistent media.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName is the directory name used under the platform base directories.
const AppName = "mediums"

// ConfigFileName is the name of the configuration file in the config
// directory.
const ConfigFileName = "config.yaml"

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "MEDIUMS_CONFIG_DIR"
	EnvDataDir   = "MEDIUMS_DATA_DIR"
)

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	goos          string
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	goos:          runtime.GOOS,
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// xdgDir describes one XDG base directory and its home-relative fallback.
type xdgDir struct {
	env      string
	fallback []string
}

var (
	xdgConfig = xdgDir{env: "XDG_CONFIG_HOME", fallback: []string{".config"}}
	xdgData   = xdgDir{env: "XDG_DATA_HOME", fallback: []string{".local", "share"}}
)

// appDir returns AppName under the XDG directory d on Linux and under
// os.UserConfigDir elsewhere.
func appDir(d xdgDir) (string, error) {
	if platformDir.goos != "linux" {
		// ~/Library/Application Support on macOS, %APPDATA% on Windows.
		base, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(base, AppName), nil
	}
	if base := os.Getenv(d.env); base != "" {
		return filepath.Join(base, AppName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(append(append([]string{home}, d.fallback...), AppName)...), nil
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/mediums (fallback ~/.config/mediums)
// macOS:   ~/Library/Application Support/mediums
// Windows: %APPDATA%/mediums
func DefaultConfigDir() (string, error) {
	return appDir(xdgConfig)
}

// DefaultDataDir returns the platform-specific default data directory.
//
// Linux:   $XDG_DATA_HOME/mediums (fallback ~/.local/share/mediums)
// macOS and Windows: same as DefaultConfigDir.
func DefaultDataDir() (string, error) {
	return appDir(xdgData)
}

// ResolveConfigDir returns the configuration directory following the
// precedence chain: flag > MEDIUMS_CONFIG_DIR > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	return resolve(DefaultConfigDir, flag, os.Getenv(EnvConfigDir))
}

// ResolveDataDir returns the data directory following the precedence chain:
// flag > data_dir from config.yaml > MEDIUMS_DATA_DIR > DefaultDataDir().
func ResolveDataDir(flag, configValue string) (string, error) {
	return resolve(DefaultDataDir, flag, configValue, os.Getenv(EnvDataDir))
}

// ConfigFile returns the path of the configuration file in configDir.
func ConfigFile(configDir string) string {
	return filepath.Join(configDir, ConfigFileName)
}

// resolve returns the first non-empty candidate as an absolute path, or
// the platform default when all are empty.
func resolve(def func() (string, error), candidates ...string) (string, error) {
	for _, c := range candidates {
		if c != "" {
			return filepath.Abs(c)
		}
	}
	return def()
}
