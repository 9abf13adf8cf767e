package cmd

import (
	"github.com/spf13/cobra"

	"github.com/inventory-tools/scanreg/internal/config"
	"github.com/inventory-tools/scanreg/internal/export"
	"github.com/inventory-tools/scanreg/internal/registry"
	"github.com/inventory-tools/scanreg/internal/store"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <output-file>",
		Short: "Export the registry snapshot to a file",
		Long: `Exports all registered products to the given file. The format is
selected by the file extension: .parquet, .jsonl, .csv or .yaml.`,
		Example: `  # Export to parquet
  scanreg export products.parquet

  # Export to CSV
  scanreg export products.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			st, err := store.NewFileStore(cfg.DataDir)
			if err != nil {
				return err
			}
			reg := registry.New(st)

			products, err := reg.List()
			if err != nil {
				return err
			}
			return export.Write(args[0], products)
		},
	}

	return cmd
}
