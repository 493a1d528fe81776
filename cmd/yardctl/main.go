/*
main.go - yardctl command-line interface

PURPOSE:
  Operational CLI for the yard inventory database. Every subcommand
  opens the SQLite store directly, so yardctl works with or without the
  server running (SQLite WAL handles the concurrent access).

COMMANDS:
  import <file>      Reconcile a snapshot spreadsheet
  rollback <batch>   Undo one import batch
  batches            List import batches
  vehicles           Print the vehicle board
  stats              Aggregate metrics over the board
  recompute          Recompute all derived metrics

EXAMPLES:
  yardctl import --date 2026-08-30 exports/Invt0830.xlsx
  yardctl rollback "2026-08-30 14:02:11"
  yardctl vehicles --make Toyota --include-scrap
*/
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/salvageops/yardstock/config"
	"github.com/salvageops/yardstock/inventory"
	"github.com/salvageops/yardstock/snapshot"
	"github.com/salvageops/yardstock/store/sqlite"
)

var (
	cfgFile string
	dbPath  string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "yardctl",
	Short: "Yard inventory command-line interface",
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Show help when no subcommand is provided
		return cmd.Help()
	},
}

// env bundles what every subcommand needs.
type env struct {
	cfg    *config.Config
	store  *sqlite.Store
	engine *inventory.Engine
	parser *snapshot.Parser
	logger *log.Logger
}

func setup() (*env, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}

	level := cfg.ParseLevel()
	if verbose {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Prefix: "yardctl",
		Level:  level,
	})

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.DBPath, err)
	}

	engine := inventory.NewEngine(store,
		inventory.WithFloor(cfg.StockFloor),
		inventory.WithLogger(logger),
	)

	return &env{
		cfg:    cfg,
		store:  store,
		engine: engine,
		parser: snapshot.New(logger),
		logger: logger,
	}, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file (default is yardstock.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path override")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(rollbackCmd)
	rootCmd.AddCommand(batchesCmd)
	rootCmd.AddCommand(vehiclesCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(recomputeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// statusFilter converts --status/--include-scrap flags into a listing
// filter shared by the vehicles and stats subcommands.
func statusFilter(makeName, model, statuses string, includeScrap bool) inventory.Filter {
	f := inventory.Filter{
		Make:         makeName,
		Model:        model,
		IncludeScrap: includeScrap,
	}
	if statuses != "" {
		for _, name := range strings.Split(statuses, ",") {
			name = strings.TrimSpace(name)
			if name != "" {
				f.Statuses = append(f.Statuses, inventory.Status(name))
			}
		}
	}
	return f
}
