package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewVersionCmd creates the version command.
func NewVersionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := app.versionInfo
			fmt.Fprintf(cmd.OutOrStdout(), "hijack-notifier version %s\n", orDefault(v.Version, "dev"))
			fmt.Fprintf(cmd.OutOrStdout(), "commit: %s\n", orDefault(v.Commit, "unknown"))
			fmt.Fprintf(cmd.OutOrStdout(), "built: %s\n", orDefault(v.Date, "unknown"))
			return nil
		},
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
