package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scanreg",
		Short: "Barcode product registry with duplicate detection",
		Long: `Scanreg registers products by barcode, name and price into a durable
local registry, rejecting duplicate codes.

Codes arrive from the scanner page served by the web interface or are
typed in manually; every registration is checked against the current
registry before it is persisted.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	// Add subcommands
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newExportCmd())

	return cmd
}
