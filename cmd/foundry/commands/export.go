package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/foundry/config"
	"github.com/teranos/foundry/display"
	"github.com/teranos/foundry/logger"
	"github.com/teranos/foundry/source"
)

// ExportCmd represents the export command
var ExportCmd = &cobra.Command{
	Use:   "export <output-dir> <catalog.db> <table>",
	Short: "Copy a materialized stage output into a SQLite catalog table",
	Long: `Stream the rows of a materialized stage output directory into a
table of a SQLite catalog, so downstream tools can query results with SQL.

The table is created when missing, with one untyped column per key of the
first row. Rows are inserted in a single transaction: a failed export
leaves the table unchanged.

Examples:
  foundry export ./out/final results.db samples
  foundry export ./out/final results.db samples --json`,
	Args: cobra.ExactArgs(3),
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	dir, catalog, table := args[0], args[1], args[2]
	useJSON := display.ShouldOutputJSON(cmd)
	log := logger.ComponentLogger("export")

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		sig := <-sigChan
		log.Infow("Received shutdown signal", "signal", sig)
		cancel()
	}()

	it, err := source.Open(ctx, config.SourceRef{Type: config.SourceFile, Path: dir}, source.Options{Logger: log})
	if err != nil {
		return err
	}
	defer it.Close()

	w, err := source.OpenWriter(ctx, config.SourceRef{Type: config.SourceTable, Catalog: catalog, Table: table})
	if err != nil {
		return err
	}

	rows, err := copyRows(ctx, it, w)
	if err != nil {
		w.Abort()
		if !useJSON {
			pterm.Error.Printf("Export failed: %v\n", err)
		}
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	log.Infow("export completed", "catalog", catalog, "table", table, logger.FieldRows, rows)

	if useJSON {
		return display.OutputJSON(map[string]any{
			"rows":    rows,
			"catalog": catalog,
			"table":   table,
		})
	}
	pterm.Success.Printf("Exported %d rows to %s (table %s)\n", rows, catalog, table)
	return nil
}

// copyRows drains the iterator into the writer, checking for cancellation
// between rows.
func copyRows(ctx context.Context, it source.Iterator, w source.Writer) (int64, error) {
	var rows int64
	for it.Next() {
		if err := ctx.Err(); err != nil {
			return rows, err
		}
		if err := w.Write(it.Row()); err != nil {
			return rows, err
		}
		rows++
	}
	return rows, it.Err()
}
