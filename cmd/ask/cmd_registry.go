package main

import (
	"fmt"
	"text/tabwriter"

	"research-workers/pkg/registry"

	"github.com/spf13/cobra"
)

var registryPath string

// registryCmd inspects the activity registry that decides which Zeebe
// workers the worker manager starts.
var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Inspect the activity registry",
	Long: `Inspect the activity registry.

Available subcommands:
  list     - List activities and their status
  validate - Validate a registry file
  export   - Print the built-in registry as JSON`,
}

var registryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List activities and their status",
	RunE:  runRegistryList,
}

var registryValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a registry file",
	RunE:  runRegistryValidate,
}

var registryExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print the built-in registry as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeJSON(cmd.OutOrStdout(), registry.Default())
	},
}

func init() {
	registryCmd.PersistentFlags().StringVar(&registryPath, "path", "", "Registry JSON file (default: built-in registry)")
	registryCmd.AddCommand(registryListCmd, registryValidateCmd, registryExportCmd)
}

func runRegistryList(cmd *cobra.Command, args []string) error {
	reg, err := registry.LoadOrDefault(registryPath)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TASK TYPE\tSTATUS\tTIMEOUT\tRETRIES")
	for _, a := range reg.Activities {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", a.TaskType, a.ImplementationStatus, a.Timeout, a.Retries)
	}
	return tw.Flush()
}

func runRegistryValidate(cmd *cobra.Command, args []string) error {
	if registryPath == "" {
		return fmt.Errorf("--path is required")
	}
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return fmt.Errorf("registry validation failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Registry validation passed (%d activities).\n", len(reg.Activities))
	return nil
}
