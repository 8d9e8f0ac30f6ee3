package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/frederic-klein/tspingest/internal/discover"
	"github.com/frederic-klein/tspingest/internal/emit"
	"github.com/frederic-klein/tspingest/internal/fetch"
	"github.com/frederic-klein/tspingest/internal/ingest"
	"github.com/frederic-klein/tspingest/internal/metrics"
	"github.com/frederic-klein/tspingest/internal/problem"
	"github.com/frederic-klein/tspingest/internal/store"
	"github.com/frederic-klein/tspingest/internal/tsplib"
	"github.com/frederic-klein/tspingest/internal/watch"
)

func (a *app) parseCmd() *cobra.Command {
	var (
		format string
		dense  bool
	)
	cmd := &cobra.Command{
		Use:   "parse <file|dir>...",
		Short: "Parse problem files and print their canonical records",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := emit.ParseFormat(format)
			if err != nil {
				return err
			}
			sources, err := discover.Find(args, a.cfg.Include)
			if err != nil {
				return err
			}

			var (
				recs   []*problem.Record
				failed int
			)
			for _, src := range sources {
				rec, err := parseSource(src)
				if err != nil {
					failed++
					a.logger.Error("parse failed", zap.String("file", src.String()), zap.Error(err))
					continue
				}
				a.logQuirks(src.String(), rec)
				recs = append(recs, rec)
			}

			e := emit.NewEmitter(cmd.OutOrStdout(), f, dense)
			if len(sources) == 1 && len(recs) == 1 {
				err = e.Emit(recs[0])
			} else if len(recs) > 0 {
				err = e.EmitAll(recs)
			}
			if err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed to parse", failed, len(sources))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "o", "json", "Output format: json or yaml")
	cmd.Flags().BoolVar(&dense, "dense", false, "Write explicit matrices as full rows")
	return cmd
}

func (a *app) ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <file|dir|bundle>...",
		Short: "Parse problem files and store them in the database",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			sum, err := a.newRunner(db).Run(cmd.Context(), args)
			if err != nil {
				return err
			}
			return printSummary(cmd, sum)
		},
	}
	addRunnerFlags(cmd)
	return cmd
}

func (a *app) watchCmd() *cobra.Command {
	var (
		debounce time.Duration
		initial  bool
	)
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Ingest problem files as they are written to a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			runner := a.newRunner(db)
			if initial {
				if _, err := runner.Run(ctx, args); err != nil {
					return err
				}
			}

			w, err := watch.New(args[0], a.cfg.Include, runner, a.logger)
			if err != nil {
				return err
			}
			w.SetDebounce(debounce)
			return w.Run(ctx)
		},
	}
	addRunnerFlags(cmd)
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "Wait this long for writes to settle")
	cmd.Flags().BoolVar(&initial, "initial", false, "Ingest existing files before watching")
	return cmd
}

func (a *app) fetchCmd() *cobra.Command {
	var ingestFetched bool
	cmd := &cobra.Command{
		Use:   "fetch <name>...",
		Short: "Download problem files from the TSPLIB mirror into the cache",
		Example: "  tspingest fetch a280.tsp br17.atsp ESC07.sop\n" +
			"  tspingest fetch --ingest a280.tsp a280.opt.tour",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cacheDir, err := a.cfg.ExpandedCacheDir()
			if err != nil {
				return err
			}
			fetcher := fetch.NewFetcher(a.cfg.Mirror, cacheDir, a.cfg.Workers, a.logger)

			out := cmd.OutOrStdout()
			var (
				paths  []string
				failed int
			)
			for _, r := range fetcher.Fetch(ctx, args) {
				if r.Err != nil {
					failed++
					fmt.Fprintf(out, "%s\tfailed: %v\n", r.Name, r.Err)
					continue
				}
				state := "downloaded"
				if r.Cached {
					state = "cached"
				}
				fmt.Fprintf(out, "%s\t%s\n", r.Path, state)
				paths = append(paths, r.Path)
			}

			if ingestFetched && len(paths) > 0 {
				db, err := a.openStore(ctx)
				if err != nil {
					return err
				}
				defer db.Close()
				sum, err := a.newRunner(db).Run(ctx, paths)
				if err != nil {
					return err
				}
				if err := printSummary(cmd, sum); err != nil {
					return err
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d downloads failed", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().IntP("workers", "w", 0, "Parallel download workers")
	cmd.Flags().StringP("mirror", "m", "", "TSPLIB mirror URL")
	cmd.Flags().BoolVar(&ingestFetched, "ingest", false, "Store the downloaded files")
	return cmd
}

func (a *app) listCmd() *cobra.Command {
	var (
		kind   string
		prefix string
		limit  int
		format string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored problems",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := store.Filter{NamePrefix: prefix, Limit: limit}
			if kind != "" {
				k, ok := problem.ParseKind(strings.ToUpper(kind))
				if !ok {
					return fmt.Errorf("unknown kind %q", kind)
				}
				filter.Kind = k
			}

			db, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			list, err := db.List(cmd.Context(), filter)
			if err != nil {
				return err
			}

			if format != "table" {
				f, err := emit.ParseFormat(format)
				if err != nil {
					return err
				}
				return emit.NewEmitter(cmd.OutOrStdout(), f, false).Encode(list)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tKIND\tDIMENSION\tWEIGHTS\tQUIRKS\tSOURCE")
			for _, s := range list {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%d\t%s\n",
					s.Name, s.Kind, s.Dimension, s.EdgeWeightType, s.Quirks, s.SourcePath)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&kind, "kind", "k", "", "Only this problem kind (tsp, atsp, vrp, hcp, sop, tour)")
	cmd.Flags().StringVarP(&prefix, "prefix", "p", "", "Only names starting with this prefix")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of rows (0 for all)")
	cmd.Flags().StringVarP(&format, "format", "o", "table", "Output format: table, json or yaml")
	return cmd
}

func (a *app) showCmd() *cobra.Command {
	var (
		format string
		dense  bool
	)
	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Print a stored problem",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := emit.ParseFormat(format)
			if err != nil {
				return err
			}
			db, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			rec, err := db.LoadRecord(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return emit.NewEmitter(cmd.OutOrStdout(), f, dense).Emit(rec)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "o", "json", "Output format: json or yaml")
	cmd.Flags().BoolVar(&dense, "dense", false, "Write explicit matrices as full rows")
	return cmd
}

func (a *app) distanceCmd() *cobra.Command {
	var tourFile string
	cmd := &cobra.Command{
		Use:   "distance <file|name> [i j]",
		Short: "Query distances and tour costs",
		Long: "With two node indices, print the distance between them. Otherwise print the cost " +
			"of every tour in the problem, or in --tour-file. Indices are 0-based. A name that " +
			"is not an existing file is looked up in the database.",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 && len(args) != 3 {
				return fmt.Errorf("accepts 1 or 3 args, received %d", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := a.resolveRecord(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if len(args) == 3 {
				i, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("node index %q: %w", args[1], err)
				}
				j, err := strconv.Atoi(args[2])
				if err != nil {
					return fmt.Errorf("node index %q: %w", args[2], err)
				}
				d, err := rec.Distance(i, j)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, d)
				return nil
			}

			tours := rec.Tours
			if tourFile != "" {
				tr, err := parseSource(discover.Source{Path: tourFile})
				if err != nil {
					return err
				}
				tours = tr.Tours
			}
			if len(tours) == 0 {
				return errors.New("no tours to evaluate; pass node indices or --tour-file")
			}
			for k, t := range tours {
				cost, err := rec.TourCost(t)
				if err != nil {
					return fmt.Errorf("tour %d: %w", k+1, err)
				}
				fmt.Fprintf(out, "tour %d\t%d\n", k+1, cost)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&tourFile, "tour-file", "t", "", "Evaluate the tours in this file")
	return cmd
}

func addRunnerFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("workers", "w", 0, "Parallel parse workers")
	cmd.Flags().String("metrics-file", "", "Write Prometheus metrics to this textfile after each run")
}

func (a *app) openStore(ctx context.Context) (*store.Store, error) {
	db, err := store.Open(ctx, a.cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (a *app) newRunner(db *store.Store) *ingest.Runner {
	return ingest.NewRunner(db, metrics.NewCollector(), a.logger, ingest.Options{
		Workers:     a.cfg.Workers,
		Include:     a.cfg.Include,
		MetricsFile: a.cfg.MetricsFile,
	})
}

// resolveRecord parses ref when it names a file and loads it from the
// database otherwise.
func (a *app) resolveRecord(ctx context.Context, ref string) (*problem.Record, error) {
	if _, err := os.Stat(ref); err == nil {
		return parseSource(discover.Source{Path: ref})
	}
	db, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return db.LoadRecord(ctx, ref)
}

func (a *app) logQuirks(file string, rec *problem.Record) {
	for _, q := range rec.Quirks {
		a.logger.Info("quirk accepted",
			zap.String("file", file),
			zap.String("quirk", string(q.Kind)),
			zap.String("detail", q.Detail),
		)
	}
}

func parseSource(src discover.Source) (*problem.Record, error) {
	text, err := discover.ReadText(src)
	if err != nil {
		return nil, err
	}
	rec, err := tsplib.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", src, err)
	}
	return rec, nil
}

func printSummary(cmd *cobra.Command, sum *ingest.Summary) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s: %d files, %d parsed, %d stored, %d failed\n",
		sum.RunID, len(sum.Files), sum.Parsed, sum.Stored, sum.Failed)
	for _, f := range sum.Failures() {
		fmt.Fprintf(out, "  %s: %s\n", f.Source, f.Error)
	}
	if sum.Failed > 0 {
		return fmt.Errorf("%d of %d files failed", sum.Failed, len(sum.Files))
	}
	return nil
}
