package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/mediums/internal/paths"
	"github.com/mesh-intelligence/mediums/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"

	// Config keys matching the yaml tags of types.Config.
	cfgKeyBackend      = "backend"
	cfgKeyDataDir      = "data_dir"
	cfgKeyName         = "name"
	cfgKeyBase         = "base"
	cfgKeySize         = "size"
	cfgKeyWordSize     = "word_size"
	cfgKeyEraseSize    = "erase_size"
	cfgKeyEraseValue   = "erase_value"
	cfgKeyRequireErase = "require_erase"
)

// defaultConfig is the medium created by init when no config.yaml exists:
// a 1 MiB NOR-style part with 4-byte words and 4 KiB sectors.
func defaultConfig() types.Config {
	return types.Config{
		Backend:      types.BackendSQLite,
		Name:         types.DefaultMediumName,
		Size:         1 << 20,
		WordSize:     4,
		EraseSize:    4096,
		EraseValue:   0xFF,
		RequireErase: true,
	}
}

// loadConfig reads config.yaml from configDir using Viper, filling unset
// keys from defaultConfig. A missing config.yaml is not an error.
func loadConfig(configDir string) (types.Config, error) {
	def := defaultConfig()

	v := viper.New()
	v.SetDefault(cfgKeyBackend, def.Backend)
	v.SetDefault(cfgKeyName, def.Name)
	v.SetDefault(cfgKeyBase, def.Base)
	v.SetDefault(cfgKeySize, def.Size)
	v.SetDefault(cfgKeyWordSize, def.WordSize)
	v.SetDefault(cfgKeyEraseSize, def.EraseSize)
	v.SetDefault(cfgKeyEraseValue, def.EraseValue)
	v.SetDefault(cfgKeyRequireErase, def.RequireErase)
	v.SetDefault(cfgKeyDataDir, "")
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return types.Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// writeConfigIfMissing creates config.yaml with cfg if the file does not
// exist. It reports whether the file was written.
func writeConfigIfMissing(path string, cfg types.Config) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	header := []byte("# mediumctl configuration\n# backend: ram, flash or sqlite\n")
	return true, os.WriteFile(path, append(header, data...), 0o644)
}

// resolveConfig loads the configuration for a command and resolves the
// data directory.
func (a *app) resolveConfig() (types.Config, string, error) {
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return types.Config{}, "", sysError(fmt.Errorf("resolve config directory: %w", err))
	}
	cfg, err := loadConfig(configDir)
	if err != nil {
		return types.Config{}, "", userError(err)
	}
	dataDir, err := paths.ResolveDataDir(a.flags.dataDir, cfg.DataDir)
	if err != nil {
		return types.Config{}, "", sysError(fmt.Errorf("resolve data directory: %w", err))
	}
	cfg.DataDir = filepath.Clean(dataDir)
	return cfg, configDir, nil
}
