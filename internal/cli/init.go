package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/mediums/internal/paths"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration and the configured medium",
		Long: "Create the configuration directory and a default config.yaml when missing,\n" +
			"then open the configured medium once so persistent backends create their storage.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInit(cmd)
		},
	}
}

func (a *app) runInit(cmd *cobra.Command) error {
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return sysError(fmt.Errorf("resolve config directory: %w", err))
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return sysError(fmt.Errorf("create config directory: %w", err))
	}

	// An explicit --data-dir is recorded so later commands find the medium.
	def := defaultConfig()
	def.DataDir = a.flags.dataDir
	configPath := paths.ConfigFile(configDir)
	written, err := writeConfigIfMissing(configPath, def)
	if err != nil {
		return sysError(fmt.Errorf("write config: %w", err))
	}
	if written {
		a.logger().Debug("wrote default config", "path", configPath)
	}

	m, closeFn, cfg, err := a.open()
	if err != nil {
		return err
	}
	defer closeFn()

	info := describe(m, cfg)
	return a.emit(cmd, info, func(w *output) {
		w.printf("Medium %q initialized (%s)\n", cfg.MediumName(), cfg.Backend)
		w.printf("config: %s\n", configPath)
		w.printf("data:   %s\n", cfg.DataDir)
		w.printInfo(info)
	})
}
