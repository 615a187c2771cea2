package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/exprgen/internal/ir"
	"github.com/roach88/exprgen/internal/store"
)

// StoreOptions holds flags for the store commands.
type StoreOptions struct {
	*RootOptions
	Database string
}

// StoredExpression is one catalog entry in command output.
type StoredExpression struct {
	Name      string `json:"name"`
	Hash      string `json:"hash"`
	Inserted  bool   `json:"inserted"`
	Nodes     int    `json:"nodes"`
	Lowering  string `json:"lowering"` // "ok" or the failure code
	Lowerings int    `json:"lowerings,omitempty"`
	Skipped   string `json:"skipped,omitempty"`
}

// NewStoreCommand creates the store command group.
func NewStoreCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "store",
		Short: "Catalog expressions in SQLite",
		Long: `Persist compiled expressions and their lowering outcomes.

The catalog path comes from --db, then [store] path in the config file.

Examples:
  exprgen store put ./exprs.cue --db ./exprgen.db
  exprgen store list --db ./exprgen.db`,
	}
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database")

	put := &cobra.Command{
		Use:           "put <source>",
		Short:         "Store every expression of a source and record its lowering",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStorePut(opts, args[0], cmd)
		},
	}
	list := &cobra.Command{
		Use:           "list",
		Short:         "List catalogued expressions",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStoreList(opts, cmd)
		},
	}
	cmd.AddCommand(put, list)

	return cmd
}

func (o *StoreOptions) open() (*store.Store, string, error) {
	path := o.Database
	if path == "" {
		path = o.config().Store.Path
	}
	st, err := store.Open(path)
	return st, path, err
}

func runStorePut(opts *StoreOptions, source string, cmd *cobra.Command) error {
	formatter := opts.newFormatter(cmd)
	logger := opts.logger(formatter.GetErrWriter())
	ctx := commandContext(cmd)

	loadResult, err := LoadProgram(source)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	backend, err := opts.newBackend(loadResult, logger)
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, err.Error())
	}

	st, path, err := opts.open()
	if err != nil {
		return outputCommandError(formatter, ErrCodeStoreFailed, fmt.Sprintf("opening %s: %v", path, err))
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()
	formatter.VerboseLog("Opened catalog %s", path)

	var stored []StoredExpression
	for _, e := range loadResult.Program.Expressions {
		entry := StoredExpression{Name: e.Name, Nodes: ir.Count(e.Root)}

		hash, inserted, err := st.PutExpression(ctx, e.Name, e.Root)
		if errors.Is(err, ir.ErrUnencodable) {
			entry.Skipped = "tree holds constants without a portable encoding"
			stored = append(stored, entry)
			continue
		}
		if err != nil {
			return outputCommandError(formatter, ErrCodeStoreFailed, err.Error())
		}
		entry.Hash, entry.Inserted = hash, inserted

		_, lowerErr := backend.Lower(e.Root, e.Params...)
		rec, err := st.RecordLowering(ctx, hash, backend.Name(), lowerErr)
		if err != nil {
			return outputCommandError(formatter, ErrCodeStoreFailed, err.Error())
		}
		entry.Lowering = "ok"
		if !rec.OK() {
			entry.Lowering = rec.ErrorCode
		}
		logger.Debug("expression stored", "name", e.Name, "hash", hash, "inserted", inserted, "lowering", entry.Lowering)
		stored = append(stored, entry)
	}

	if formatter.Format == "json" {
		return formatter.Success(stored)
	}
	formatter.Pass("Stored %d expression(s) in %s", len(stored), path)
	for _, s := range stored {
		switch {
		case s.Skipped != "":
			fmt.Fprintf(formatter.Writer, "  %s: skipped (%s)\n", s.Name, s.Skipped)
		case !s.Inserted:
			fmt.Fprintf(formatter.Writer, "  %s: %s (existing), lowering %s\n", s.Name, short(s.Hash), s.Lowering)
		default:
			fmt.Fprintf(formatter.Writer, "  %s: %s, lowering %s\n", s.Name, short(s.Hash), s.Lowering)
		}
	}
	return nil
}

func runStoreList(opts *StoreOptions, cmd *cobra.Command) error {
	formatter := opts.newFormatter(cmd)
	ctx := commandContext(cmd)

	st, path, err := opts.open()
	if err != nil {
		return outputCommandError(formatter, ErrCodeStoreFailed, fmt.Sprintf("opening %s: %v", path, err))
	}
	defer st.Close()

	records, err := st.ListExpressions(ctx)
	if err != nil {
		return outputCommandError(formatter, ErrCodeStoreFailed, err.Error())
	}

	entries := make([]StoredExpression, 0, len(records))
	for _, r := range records {
		lowerings, err := st.Lowerings(ctx, r.Hash)
		if err != nil {
			return outputCommandError(formatter, ErrCodeStoreFailed, err.Error())
		}
		entry := StoredExpression{Name: r.Name, Hash: r.Hash, Nodes: r.NodeCount, Lowerings: len(lowerings)}
		if n := len(lowerings); n > 0 {
			// Latest attempt wins.
			entry.Lowering = "ok"
			if last := lowerings[n-1]; !last.OK() {
				entry.Lowering = last.ErrorCode
			}
		}
		entries = append(entries, entry)
	}

	if formatter.Format == "json" {
		return formatter.Success(entries)
	}
	if len(entries) == 0 {
		fmt.Fprintf(formatter.Writer, "No expressions in %s.\n", path)
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(formatter.Writer, "%s  %-20s %3d node(s)  %d lowering(s), last %s\n",
			short(e.Hash), e.Name, e.Nodes, e.Lowerings, e.Lowering)
	}

	stats, err := st.Stats(ctx)
	if err != nil {
		return outputCommandError(formatter, ErrCodeStoreFailed, err.Error())
	}
	fmt.Fprintf(formatter.Writer, "\n%d expression(s), %d lowering(s), %d failing\n",
		stats.Expressions, stats.Lowerings, stats.Failing)
	return nil
}

// short abbreviates a tree hash for text output.
func short(hash string) string {
	const n = 12
	if len(hash) <= n {
		return hash
	}
	return hash[:n]
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
