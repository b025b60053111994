// Package pipeline runs a whole batch: load, clean, aggregate by hour, and
// write the summary with its optional extras.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/jgoulah/gridhours/internal/aggregate"
	"github.com/jgoulah/gridhours/internal/apperr"
	"github.com/jgoulah/gridhours/internal/config"
	"github.com/jgoulah/gridhours/internal/export"
	"github.com/jgoulah/gridhours/internal/loader"
	"github.com/jgoulah/gridhours/internal/metrics"
	"github.com/jgoulah/gridhours/internal/preprocess"
	"github.com/jgoulah/gridhours/internal/table"
	"github.com/jgoulah/gridhours/pkg/models"
)

// TimestampColumn holds the reading time in the input file.
const TimestampColumn = "timestamp"

// RunStore persists finished runs.
type RunStore interface {
	SaveRun(ctx context.Context, run *models.Run) error
	MarkPublished(ctx context.Context, id string) error
}

// RunPublisher announces finished runs.
type RunPublisher interface {
	PublishRun(ctx context.Context, run *models.Run) error
}

// Runner executes the pipeline for one configuration.
type Runner struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     RunStore
	publisher RunPublisher
	now       func() time.Time

	loader     *loader.Loader
	preprocess *preprocess.Preprocessor
	aggregate  *aggregate.Aggregator
}

// Option configures a Runner.
type Option func(*Runner)

// WithStore saves every successful run to s.
func WithStore(s RunStore) Option {
	return func(r *Runner) { r.store = s }
}

// WithPublisher publishes every successful run through p.
func WithPublisher(p RunPublisher) Option {
	return func(r *Runner) { r.publisher = p }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// NewRunner builds a Runner; a nil logger falls back to slog.Default().
func NewRunner(cfg *config.Config, logger *slog.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{cfg: cfg, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	r.loader = loader.New(logger)
	r.preprocess = preprocess.New(logger, preprocess.WithClock(r.now))
	r.aggregate = aggregate.New(logger)
	return r
}

// Counts reports how many rows each cleaning step saw or removed.
type Counts struct {
	Loaded       int
	Dropped      int
	Deduplicated int
	Cleaned      int
}

// Prepared is the cleaned, feature-augmented table.
type Prepared struct {
	Table  *table.Table
	Counts Counts
}

// Result is what a successful run produced.
type Result struct {
	Run     *models.Run
	Summary *table.Table
	Metrics *metrics.Run
}

func (r *Runner) stage(ctx context.Context, m *metrics.Run, name string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("before %s: %w", name, err)
	}
	start := time.Now()
	err := fn()
	if m != nil {
		m.ObserveStage(name, time.Since(start))
	}
	return err
}

// Prepare loads the data file and applies every cleaning step in order.
func (r *Runner) Prepare(ctx context.Context) (*Prepared, error) {
	return r.prepare(ctx, nil)
}

func (r *Runner) prepare(ctx context.Context, m *metrics.Run) (*Prepared, error) {
	var (
		t      *table.Table
		counts Counts
		err    error
	)

	if err := r.stage(ctx, m, "load", func() error {
		t, err = r.loader.Load(r.cfg.GetDataFile(), r.cfg.GetDelimiter())
		return err
	}); err != nil {
		return nil, err
	}
	counts.Loaded = t.Len()

	if err := checkSchema(t, r.cfg.GetRequiredColumns()); err != nil {
		return nil, err
	}

	sentinel := r.cfg.GetSentinel()
	if err := r.stage(ctx, m, "drop_values", func() error {
		t, counts.Dropped, err = r.preprocess.DropValues(t, sentinel.Column, table.Text(sentinel.Value))
		return err
	}); err != nil {
		return nil, fmt.Errorf("dropping test rows: %w", err)
	}

	if err := r.stage(ctx, m, "remove_duplicates", func() error {
		t, counts.Deduplicated, err = r.preprocess.RemoveDuplicates(t, r.cfg.GetDedupKeys())
		return err
	}); err != nil {
		return nil, fmt.Errorf("removing duplicates: %w", err)
	}

	conversions, err := conversionsFrom(r.cfg.GetConversions())
	if err != nil {
		return nil, err
	}
	if err := r.stage(ctx, m, "convert_types", func() error {
		t, err = r.preprocess.ConvertTypes(t, conversions)
		return err
	}); err != nil {
		return nil, fmt.Errorf("converting types: %w", err)
	}

	if err := r.stage(ctx, m, "convert_timestamp", func() error {
		t, err = r.preprocess.ConvertTimestamp(t, TimestampColumn)
		return err
	}); err != nil {
		return nil, fmt.Errorf("converting timestamps: %w", err)
	}

	if err := r.stage(ctx, m, "fill_nulls", func() error {
		t, err = r.preprocess.FillNulls(t, fillsFrom(r.cfg.GetFill()))
		return err
	}); err != nil {
		return nil, fmt.Errorf("filling nulls: %w", err)
	}

	if err := r.stage(ctx, m, "extract_time_features", func() error {
		t, err = r.preprocess.ExtractTimeFeatures(t, TimestampColumn)
		return err
	}); err != nil {
		return nil, fmt.Errorf("extracting time features: %w", err)
	}
	counts.Cleaned = t.Len()

	return &Prepared{Table: t, Counts: counts}, nil
}

// Run executes the whole pipeline and writes the hourly summary. Extras
// (exports, store, metrics, publish) run only after the summary is written.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	started := r.now()
	m := metrics.NewRun()

	prepared, err := r.prepare(ctx, m)
	if err != nil {
		return nil, err
	}
	counts := prepared.Counts
	m.AddRows(metrics.StageLoaded, counts.Loaded)
	m.AddRows(metrics.StageDropped, counts.Dropped)
	m.AddRows(metrics.StageDeduplicated, counts.Deduplicated)

	var summary *table.Table
	var peak aggregate.Extremum
	if err := r.stage(ctx, m, "aggregate", func() error {
		summary, peak, err = r.summarize(prepared.Table)
		return err
	}); err != nil {
		return nil, fmt.Errorf("aggregating by hour: %w", err)
	}
	m.AddRows(metrics.StageOutput, summary.Len())

	output := r.cfg.GetOutputFile()
	if err := r.stage(ctx, m, "write", func() error {
		return export.WriteCSVFile(output, summary, r.cfg.WriteIndex)
	}); err != nil {
		return nil, fmt.Errorf("writing summary: %w", err)
	}
	r.logger.Info("saved hourly grid usage",
		slog.String("path", output),
		slog.Int("hours", summary.Len()))

	hours, err := export.ToHourly(summary)
	if err != nil {
		return nil, err
	}
	run := &models.Run{
		ID:               uuid.NewString(),
		DataFile:         r.cfg.GetDataFile(),
		OutputFile:       output,
		StartedAt:        started,
		RowsLoaded:       counts.Loaded,
		RowsDropped:      counts.Dropped,
		RowsDeduplicated: counts.Deduplicated,
		MaxFeedinHour:    models.NoPeakHour,
		MaxFeedin:        peak.Value,
		Hours:            hours,
	}
	if h, ok := peak.Key.Int(); ok {
		run.MaxFeedinHour = int(h)
		m.SetPeak(run.MaxFeedinHour, run.MaxFeedin)
	}

	for _, e := range r.cfg.Exports {
		format, err := export.ParseFormat(e.Format)
		if err != nil {
			return nil, err
		}
		if err := export.Write(format, e.Path, run); err != nil {
			return nil, fmt.Errorf("exporting %s: %w", format, err)
		}
		r.logger.Info("exported summary", slog.String("format", string(format)), slog.String("path", e.Path))
	}

	if r.store != nil {
		if err := r.store.SaveRun(ctx, run); err != nil {
			return nil, fmt.Errorf("saving run: %w", err)
		}
	}

	if r.publisher != nil {
		if err := r.publisher.PublishRun(ctx, run); err != nil {
			return nil, fmt.Errorf("publishing run: %w", err)
		}
		run.Published = true
		if r.store != nil {
			if err := r.store.MarkPublished(ctx, run.ID); err != nil {
				return nil, fmt.Errorf("marking run published: %w", err)
			}
		}
	}

	m.MarkSuccess(r.now())
	if r.cfg.MetricsFile != "" {
		if err := m.WriteTextfile(r.cfg.MetricsFile); err != nil {
			return nil, err
		}
	}

	r.logger.Info("run complete",
		slog.String("run_id", run.ID),
		slog.String("rows_loaded", humanize.Comma(int64(counts.Loaded))),
		slog.Int("max_feedin_hour", run.MaxFeedinHour))
	return &Result{Run: run, Summary: summary, Metrics: m}, nil
}

// summarize sums the grid columns by hour and flags the peak feed-in hour.
func (r *Runner) summarize(t *table.Table) (*table.Table, aggregate.Extremum, error) {
	summary, err := r.aggregate.Aggregate(t, preprocess.ColumnHour, []aggregate.Spec{
		{Column: export.ColumnGridPurchase, Func: aggregate.Sum},
		{Column: export.ColumnGridFeedin, Func: aggregate.Sum},
	})
	if err != nil {
		return nil, aggregate.Extremum{}, err
	}

	peak, err := r.aggregate.FindMax(summary, preprocess.ColumnHour, export.ColumnGridFeedin)
	if errors.Is(err, aggregate.ErrNoRows) {
		r.logger.Warn("no hourly rows to find a peak in")
		empty, err := summary.WithColumn(export.ColumnIsMaxFeedin, []table.Value{})
		return empty, aggregate.Extremum{Row: -1}, err
	}
	if err != nil {
		return nil, aggregate.Extremum{}, err
	}

	marked, err := r.aggregate.MarkMax(summary, export.ColumnIsMaxFeedin, export.ColumnGridFeedin, peak.Value)
	if err != nil {
		return nil, aggregate.Extremum{}, err
	}
	return marked, peak, nil
}

func checkSchema(t *table.Table, required []string) error {
	for _, c := range required {
		if !t.HasColumn(c) {
			return apperr.NewColumnError("schema check", c)
		}
	}
	return nil
}

func conversionsFrom(m map[string]string) ([]preprocess.Conversion, error) {
	out := make([]preprocess.Conversion, 0, len(m))
	for _, column := range sortedKeys(m) {
		typ, err := preprocess.ParseType(m[column])
		if err != nil {
			return nil, apperr.NewConfigError(fmt.Sprintf("conversion for column %s", column), err)
		}
		out = append(out, preprocess.Conversion{Column: column, Type: typ})
	}
	return out, nil
}

func fillsFrom(m map[string]string) []preprocess.Fill {
	out := make([]preprocess.Fill, 0, len(m))
	for _, column := range sortedKeys(m) {
		out = append(out, preprocess.Fill{Column: column, Strategy: preprocess.ParseFillStrategy(m[column])})
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
