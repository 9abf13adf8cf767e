package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/inventory-tools/scanreg/internal/config"
	"github.com/inventory-tools/scanreg/internal/registry"
	"github.com/inventory-tools/scanreg/internal/store"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the registered products",
		Long:  `Prints every registered product, most recent first, with the registry totals.`,
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
			if len(products) == 0 {
				fmt.Println("No products registered")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CODE\tNAME\tPRICE\tREGISTERED")
			for _, p := range products {
				fmt.Fprintf(w, "%s\t%s\t$%.2f\t%s\n", p.Code, p.Name, p.Price, p.CreatedAt.Format("2006-01-02 15:04"))
			}
			if err := w.Flush(); err != nil {
				return err
			}

			agg, err := reg.Aggregate()
			if err != nil {
				return err
			}
			fmt.Printf("\n%d products, total value $%.2f\n", agg.Count, agg.TotalValue)
			return nil
		},
	}

	return cmd
}
