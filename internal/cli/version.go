package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/mediums/pkg/mediums"
)

const modulePath = "github.com/mesh-intelligence/mediums"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the mediumctl version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "mediumctl v%s\nmodule: %s\n", mediums.Version, modulePath)
			return nil
		},
	}
}
