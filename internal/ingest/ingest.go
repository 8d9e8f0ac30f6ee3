// Package ingest parses many problem files in parallel and stores the
// results.
//
// Each file is parsed independently; a file that fails to read or parse is
// reported in the Summary and never stops the run. Records are written to
// the store from a single goroutine.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/frederic-klein/tspingest/internal/discover"
	"github.com/frederic-klein/tspingest/internal/metrics"
	"github.com/frederic-klein/tspingest/internal/problem"
	"github.com/frederic-klein/tspingest/internal/store"
	"github.com/frederic-klein/tspingest/internal/sysinfo"
	"github.com/frederic-klein/tspingest/internal/tsplib"
)

// Sink receives parsed records. *store.Store satisfies it.
type Sink interface {
	SaveRecord(ctx context.Context, rec *problem.Record, sourcePath, runID string) (int64, error)
	SaveRun(ctx context.Context, run *store.Run) error
}

// Options tune a Runner.
type Options struct {
	Workers int
	Include []string
	// MetricsFile, when set, receives a Prometheus textfile after each run.
	MetricsFile string
}

// FileResult is the outcome for one source.
type FileResult struct {
	Source    string   `json:"source" yaml:"source"`
	Name      string   `json:"name,omitempty" yaml:"name,omitempty"`
	Kind      string   `json:"kind,omitempty" yaml:"kind,omitempty"`
	Dimension int      `json:"dimension,omitempty" yaml:"dimension,omitempty"`
	Quirks    []string `json:"quirks,omitempty" yaml:"quirks,omitempty"`
	Stored    bool     `json:"stored" yaml:"stored"`
	Error     string   `json:"error,omitempty" yaml:"error,omitempty"`

	Err error `json:"-" yaml:"-"`
}

// Summary describes one run.
type Summary struct {
	RunID      string       `json:"run_id" yaml:"run_id"`
	StartedAt  time.Time    `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time    `json:"finished_at" yaml:"finished_at"`
	Host       sysinfo.Info `json:"host" yaml:"host"`
	Parsed     int          `json:"parsed" yaml:"parsed"`
	Failed     int          `json:"failed" yaml:"failed"`
	Stored     int          `json:"stored" yaml:"stored"`
	Files      []FileResult `json:"files" yaml:"files"`
}

// Runner schedules parse jobs.
type Runner struct {
	sink     Sink
	metrics  *metrics.Collector
	logger   *zap.Logger
	opts     Options
	host     sysinfo.Info
	hostOnce sync.Once
}

// NewRunner creates a runner. sink may be nil to parse without storing.
func NewRunner(sink Sink, collector *metrics.Collector, logger *zap.Logger, opts Options) *Runner {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if collector == nil {
		collector = metrics.NewCollector()
	}
	return &Runner{sink: sink, metrics: collector, logger: logger, opts: opts}
}

type outcome struct {
	src   discover.Source
	rec   *problem.Record
	err   error
	took  time.Duration
	index int
}

// Run discovers files under paths, parses them and stores the results.
// The returned error is non-nil only when discovery fails or ctx is
// cancelled; per-file failures are in the Summary.
func (r *Runner) Run(ctx context.Context, paths []string) (*Summary, error) {
	sources, err := discover.Find(paths, r.opts.Include)
	if err != nil {
		return nil, err
	}
	return r.RunSources(ctx, sources)
}

// RunSources is Run for an already discovered source list.
func (r *Runner) RunSources(ctx context.Context, sources []discover.Source) (*Summary, error) {
	sum := &Summary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Host:      r.hostInfo(),
		Files:     make([]FileResult, len(sources)),
	}
	log := r.logger.With(zap.String("run_id", sum.RunID))
	log.Info("ingest started", zap.Int("files", len(sources)), zap.Int("workers", r.opts.Workers))

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan int)
	parsed := make(chan outcome)

	g.Go(func() error {
		defer close(jobs)
		for i := range sources {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	var workers sync.WaitGroup
	for w := 0; w < r.opts.Workers; w++ {
		workers.Add(1)
		g.Go(func() error {
			defer workers.Done()
			for i := range jobs {
				o := parseOne(sources[i])
				o.index = i
				select {
				case parsed <- o:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}
	go func() {
		workers.Wait()
		close(parsed)
	}()

	seen := make([]bool, len(sources))
	for o := range parsed {
		seen[o.index] = true
		sum.Files[o.index] = r.record(gctx, log, sum, o)
	}
	runErr := g.Wait()
	if runErr == nil {
		runErr = ctx.Err()
	}

	// Sources never reached because of cancellation.
	for i, ok := range seen {
		if !ok {
			sum.Files[i] = FileResult{Source: sources[i].String(), Error: "not processed", Err: context.Canceled}
		}
	}

	sum.FinishedAt = time.Now()
	r.metrics.ObserveRun(sum.StartedAt, sum.FinishedAt)
	r.finish(ctx, log, sum)

	if runErr != nil {
		return sum, fmt.Errorf("ingest run %s: %w", sum.RunID, runErr)
	}
	return sum, nil
}

func parseOne(src discover.Source) outcome {
	start := time.Now()
	text, err := discover.ReadText(src)
	if err != nil {
		return outcome{src: src, err: err, took: time.Since(start)}
	}
	rec, err := tsplib.Parse(text)
	if err != nil {
		err = fmt.Errorf("parsing %s: %w", src, err)
	}
	return outcome{src: src, rec: rec, err: err, took: time.Since(start)}
}

// record handles one outcome on the collecting goroutine.
func (r *Runner) record(ctx context.Context, log *zap.Logger, sum *Summary, o outcome) FileResult {
	res := FileResult{Source: o.src.String()}
	file := zap.String("file", res.Source)

	if o.err != nil {
		sum.Failed++
		res.Err, res.Error = o.err, o.err.Error()
		r.metrics.ObserveFailure()
		log.Warn("file failed", file, zap.Error(o.err))
		return res
	}

	rec := o.rec
	sum.Parsed++
	res.Name = store.RecordName(rec, o.src.Name())
	res.Kind = string(rec.Spec.Kind)
	res.Dimension = rec.Spec.Dimension
	r.metrics.ObserveParse(res.Kind, res.Dimension, o.took)
	for _, q := range rec.Quirks {
		res.Quirks = append(res.Quirks, string(q.Kind))
		r.metrics.ObserveQuirk(string(q.Kind))
		log.Info("quirk accepted", file, zap.String("quirk", string(q.Kind)), zap.String("detail", q.Detail))
	}

	if r.sink == nil {
		log.Debug("parsed", file, zap.String("name", res.Name), zap.Duration("took", o.took))
		return res
	}
	if _, err := r.sink.SaveRecord(ctx, rec, o.src.String(), sum.RunID); err != nil {
		sum.Failed++
		res.Err, res.Error = err, err.Error()
		r.metrics.ObserveFailure()
		log.Error("store failed", file, zap.Error(err))
		return res
	}
	sum.Stored++
	res.Stored = true
	r.metrics.ObserveStored()
	log.Debug("stored", file, zap.String("name", res.Name), zap.Duration("took", o.took))
	return res
}

func (r *Runner) finish(ctx context.Context, log *zap.Logger, sum *Summary) {
	fields := []zap.Field{
		zap.Int("parsed", sum.Parsed),
		zap.Int("failed", sum.Failed),
		zap.Int("stored", sum.Stored),
		zap.Duration("took", sum.FinishedAt.Sub(sum.StartedAt)),
	}

	if r.sink != nil && ctx.Err() == nil {
		run := &store.Run{
			ID:         sum.RunID,
			StartedAt:  sum.StartedAt,
			FinishedAt: sum.FinishedAt,
			Host:       sum.Host.String(),
			Files:      len(sum.Files),
			Failures:   sum.Failed,
		}
		if err := r.sink.SaveRun(ctx, run); err != nil {
			log.Error("saving run manifest failed", zap.Error(err))
		}
	}

	if r.opts.MetricsFile != "" {
		if err := r.metrics.WriteTextfile(r.opts.MetricsFile); err != nil {
			log.Error("writing metrics failed", zap.Error(err))
		}
	}

	log.Info("ingest finished", fields...)
}

func (r *Runner) hostInfo() sysinfo.Info {
	r.hostOnce.Do(func() { r.host = sysinfo.Collect() })
	return r.host
}

// Failures returns the failed file results sorted by source.
func (s *Summary) Failures() []FileResult {
	var out []FileResult
	for _, f := range s.Files {
		if f.Err != nil {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out
}

// Err joins every per-file error, or returns nil when all files succeeded.
func (s *Summary) Err() error {
	var errs []error
	for _, f := range s.Failures() {
		errs = append(errs, f.Err)
	}
	return errors.Join(errs...)
}
