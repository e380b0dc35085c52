package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/danielpatrickdp/process-panel/internal/config"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [config.yaml]",
		Short: "Validate a config file",
		Long: `Validate a config file.

The file is checked against the embedded JSON Schema first, then decoded
over the defaults and checked for consistency (bands, drift timing, record
cadence). The file defaults to the --config flag.

Examples:
  panelsim validate scenario.yaml
  panelsim --config scenario.yaml validate`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return errors.New("validate needs a config file")
			}
			jsonOut, _ := cmd.Flags().GetBool("json")

			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading config file: %w", err)
			}
			cfg, err := config.Parse(data)
			if err == nil {
				err = cfg.Validate()
			}

			if jsonOut {
				result := map[string]any{"file": path, "valid": err == nil}
				if err != nil {
					result["error"] = err.Error()
				}
				if perr := printJSON(cmd.OutOrStdout(), result); perr != nil {
					return perr
				}
			} else if err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: valid\n", path)
			}
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			return nil
		},
	}
}
