/*
commands.go - yardctl subcommand implementations

Each subcommand opens its own store via setup() and closes it when done.
Output goes to stdout in plain tabular form; logs go to stderr.
*/
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/salvageops/yardstock/inventory"
)

var (
	importDate string

	filterMake   string
	filterModel  string
	filterStatus string
	includeScrap bool
)

var importCmd = &cobra.Command{
	Use:   "import [flags] <snapshot.xlsx|snapshot.xls>",
	Short: "Reconcile a snapshot spreadsheet into the ledger",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.store.Close()

		effectiveDate := time.Now().UTC()
		if importDate != "" {
			effectiveDate, err = time.Parse(inventory.DateLayout, importDate)
			if err != nil {
				return fmt.Errorf("invalid --date (use YYYY-MM-DD): %w", err)
			}
		}

		path := args[0]
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		parsed, err := e.parser.Parse(filepath.Base(path), data)
		if err != nil {
			return err
		}
		e.logger.Info("snapshot parsed", "rows", len(parsed.Rows), "mode", parsed.Mode)

		res, err := e.engine.ImportSnapshot(cmd.Context(), parsed.Rows, effectiveDate, parsed.Mode)
		if err != nil {
			return err
		}

		fmt.Printf("batch %s: %d added, %d updated, %d sales entries, %d skipped\n",
			res.BatchID, res.VehiclesAdded, res.VehiclesUpdated,
			res.SalesEntriesAdded, res.RowsSkipped)
		return nil
	},
}

var rollbackCmd = &cobra.Command{
	Use:   "rollback <batch-id>",
	Short: "Undo one import batch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.store.Close()

		res, err := e.engine.RollbackBatch(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("rolled back %q: %d vehicles deleted, %d sales entries deleted",
			args[0], res.VehiclesDeleted, res.SalesEntriesDeleted)
		if res.Recomputed {
			fmt.Print(", metrics recomputed")
		}
		fmt.Println()
		return nil
	},
}

var batchesCmd = &cobra.Command{
	Use:   "batches",
	Short: "List import batches",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.store.Close()

		batches, err := e.engine.ListBatches(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "BATCH\tEFFECTIVE\tMODE")
		for _, b := range batches {
			fmt.Fprintf(w, "%s\t%s\t%s\n",
				b.ID, b.EffectiveDate.Format(inventory.DateLayout), b.Mode)
		}
		return w.Flush()
	},
}

var vehiclesCmd = &cobra.Command{
	Use:   "vehicles",
	Short: "Print the vehicle board",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.store.Close()

		f := statusFilter(filterMake, filterModel, filterStatus, includeScrap)
		vehicles, err := e.engine.ListVehicles(cmd.Context(), f)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "STOCK\tMAKE\tMODEL\tYEAR\tAGE\tPAYBACK\tPROFIT\tMULT\tSTATUS")
		for _, v := range vehicles {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				v.StockNumber, v.Make, v.Model,
				fmtInt(v.Year), fmtInt(v.AgeDays), fmtInt(v.PaybackDays),
				fmtDec(v.Profit), fmtDec(v.ReturnMultiple), v.Status)
		}
		return w.Flush()
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Aggregate metrics over the board",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.store.Close()

		f := statusFilter(filterMake, filterModel, filterStatus, includeScrap)
		vehicles, err := e.engine.ListVehicles(cmd.Context(), f)
		if err != nil {
			return err
		}

		stats := inventory.Aggregate(vehicles, inventory.AllFields)
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "FIELD\tCOUNT\tMIN\tMAX\tAVG\tSUM")
		for _, field := range inventory.AllFields {
			s := stats[field]
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\n",
				field, s.Count, fmtDec(s.Min), fmtDec(s.Max), fmtDec(s.Avg), s.Sum)
		}
		return w.Flush()
	},
}

var recomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Recompute all derived metrics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.store.Close()

		if err := e.engine.RecomputeAll(cmd.Context()); err != nil {
			return err
		}
		if err := e.engine.RefreshAges(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("recompute complete")
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importDate, "date", "", "Effective date (YYYY-MM-DD, default today)")

	for _, c := range []*cobra.Command{vehiclesCmd, statsCmd} {
		c.Flags().StringVar(&filterMake, "make", "", "Filter by make")
		c.Flags().StringVar(&filterModel, "model", "", "Filter by model")
		c.Flags().StringVar(&filterStatus, "status", "", "Comma-separated status set (active,inactive,scrap)")
		c.Flags().BoolVar(&includeScrap, "include-scrap", false, "Include scrapped vehicles")
	}
}

func fmtInt(n *int) string {
	if n == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *n)
}

func fmtDec(d *decimal.Decimal) string {
	if d == nil {
		return "-"
	}
	return d.String()
}
