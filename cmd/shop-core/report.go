package main

import (
	"io"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/vasiliy-maslov/shop-core/internal/config"
	"github.com/vasiliy-maslov/shop-core/internal/report"
)

func newReportCmd(load func() (*config.Config, error)) *cobra.Command {
	var n int

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the sales summary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			store, err := openStore(cmd.Context(), cfg, false)
			if err != nil {
				return err
			}
			defer store.close()

			summary, err := report.NewService(store.Reports()).Summary(cmd.Context(), n)
			if err != nil {
				return err
			}
			renderSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "top", "n", report.DefaultTopN, "number of ranked rows")
	return cmd
}

func renderSummary(out io.Writer, s *report.Summary) {
	if out == nil {
		out = os.Stdout
	}

	products := newTable(out, "Active products", table.Row{"ID", "Name", "Price"})
	for _, p := range s.ActiveProducts {
		products.AppendRow(table.Row{p.ID.String(), p.Name, p.Price.StringFixed(2)})
	}
	products.Render()

	sold := newTable(out, "Top sold products", table.Row{"#", "ID", "Name", "Quantity"})
	for i, p := range s.TopSoldProducts {
		sold.AppendRow(table.Row{strconv.Itoa(i + 1), p.ProductID.String(), p.Name, p.QuantitySold})
	}
	sold.Render()

	buyers := newTable(out, "Top customers", table.Row{"#", "ID", "Username", "Orders"})
	for i, c := range s.TopCustomers {
		buyers.AppendRow(table.Row{strconv.Itoa(i + 1), c.CustomerID.String(), c.Username, c.OrderCount})
	}
	buyers.Render()
}

func newTable(out io.Writer, title string, header table.Row) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetTitle(title)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(header)
	return t
}
