package cli

import (
	"encoding/json"
	"fmt"

	"github.com/grovetools/exports/version"
	"github.com/spf13/cobra"
)

// SetVersionTemplate enables --version on cmd, printing the short build line.
func SetVersionTemplate(cmd *cobra.Command, info version.Info) {
	cmd.Version = info.Short()
	cmd.SetVersionTemplate(fmt.Sprintf(`{{.Name}} {{.Version}}
  Built:     %s
  Platform:  %s
`, info.BuildDate, info.Platform))
}

// NewVersionCommand creates the standard version command. With --json the
// build information is printed as a JSON object.
func NewVersionCommand(componentName string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: fmt.Sprintf("Print the version number of %s", componentName),
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.GetInfo()
			if GetOptions(cmd).JSONOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n%s\n", componentName, info.Version, info)
			return nil
		},
	}
}
