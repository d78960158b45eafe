// Package dashboard wires the loaders, the session table and the derived
// views together. Both the HTTP server and the terminal renderer sit on top
// of Dashboard.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-books-dashboard/chart"
	"github.com/aluiziolira/go-books-dashboard/config"
	"github.com/aluiziolira/go-books-dashboard/detect"
	"github.com/aluiziolira/go-books-dashboard/models"
	"github.com/aluiziolira/go-books-dashboard/pipeline"
	"github.com/aluiziolira/go-books-dashboard/query"
	"github.com/aluiziolira/go-books-dashboard/scraper"
	"github.com/aluiziolira/go-books-dashboard/session"
	"github.com/aluiziolira/go-books-dashboard/store"
	"github.com/prometheus/client_golang/prometheus"
)

// Action names, also used as metric labels and URL segments.
const (
	ActionLoadCSV  = "load-csv"
	ActionScrape   = "scrape"
	ActionLoadDB   = "load-db"
	resolverMemory = 32
)

// ErrNotLoaded is returned by operations that need a table when none is
// loaded.
var ErrNotLoaded = errors.New("no data loaded")

// Report is the outcome of one action.
type Report struct {
	Action  string
	Message string
	// Err is set when the action was aborted. The previous table, if any,
	// is still loaded.
	Err         error
	Rows        int
	Diagnostics []error
	Scrape      *models.ScrapeResult
	Duration    time.Duration
}

// Outcome summarises the report for metrics: success, partial or failure.
func (r *Report) Outcome() string {
	switch {
	case r.Err != nil:
		return "failure"
	case len(r.Diagnostics) > 0:
		return "partial"
	default:
		return "success"
	}
}

// Option customises a Dashboard.
type Option func(*Dashboard)

// WithSource replaces the scraper used by the scrape action.
func WithSource(src pipeline.Source) Option {
	return func(d *Dashboard) {
		d.source = src
	}
}

// WithRegistry registers the scraper and dashboard collectors on reg.
func WithRegistry(reg prometheus.Registerer) Option {
	return func(d *Dashboard) {
		d.registry = reg
	}
}

// WithLogger sets the logger. slog.Default is used otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dashboard) {
		d.logger = logger
	}
}

// Dashboard owns the session table. It is not safe for concurrent use; the
// server serialises calls.
type Dashboard struct {
	cfg      *config.Config
	state    *session.State
	resolver *detect.Resolver
	source   pipeline.Source
	registry prometheus.Registerer
	logger   *slog.Logger
	actions  *prometheus.CounterVec
	now      func() time.Time
}

// New builds a dashboard for cfg with an empty session.
func New(cfg *config.Config, opts ...Option) (*Dashboard, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	resolver, err := detect.NewResolver(resolverMemory)
	if err != nil {
		return nil, err
	}

	d := &Dashboard{
		cfg:      cfg,
		state:    session.New(),
		resolver: resolver,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}

	d.actions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_actions_total",
			Help: "Dashboard actions by outcome.",
		},
		[]string{"action", "outcome"},
	)
	if d.registry != nil {
		d.registry.MustRegister(d.actions)
	}

	if d.source == nil {
		s, err := scraper.NewScraper(cfg, scraper.NewMetrics(d.registry))
		if err != nil {
			return nil, fmt.Errorf("initialising scraper: %w", err)
		}
		d.source = s
	}

	return d, nil
}

// Config returns the configuration the dashboard was built with.
func (d *Dashboard) Config() *config.Config {
	return d.cfg
}

// Current returns the loaded table.
func (d *Dashboard) Current() (*models.BookTable, bool) {
	return d.state.Current()
}

// Run dispatches an action by name.
func (d *Dashboard) Run(ctx context.Context, action string) (*Report, error) {
	switch action {
	case ActionLoadCSV:
		return d.LoadCSV(ctx), nil
	case ActionScrape:
		return d.Scrape(ctx), nil
	case ActionLoadDB:
		return d.LoadDatabase(ctx), nil
	default:
		return nil, fmt.Errorf("unknown action %q", action)
	}
}

// LoadCSV replaces the table with the contents of the data file.
func (d *Dashboard) LoadCSV(ctx context.Context) *Report {
	start := d.now()
	report := &Report{Action: ActionLoadCSV}

	table, err := store.LoadCSV(d.cfg.DataFile)
	if err != nil {
		report.Err = models.Acquisition("load csv", err)
		report.Message = fmt.Sprintf("Error loading CSV: %v", err)
	} else {
		d.replace(table, models.SourceCSV)
		report.Rows = table.Len()
		report.Message = "Data loaded from CSV!"
	}

	return d.finish(ctx, report, start)
}

// Scrape refreshes the table from the listing site and saves it to the data
// file. If nothing was scraped the previous table and file are kept.
func (d *Dashboard) Scrape(ctx context.Context) *Report {
	start := d.now()
	report := &Report{Action: ActionScrape}

	p := pipeline.NewPipeline(d.source, d.cfg.PageCount, pipeline.FileWriter(d.cfg.OutputFormat, d.cfg.DataFile))
	result, err := p.Run(ctx)
	if result != nil {
		report.Diagnostics = result.Diagnostics
		report.Scrape = result.Scrape
	}
	if err != nil {
		report.Err = err
		report.Message = fmt.Sprintf("Error scraping data: %v", err)
		return d.finish(ctx, report, start)
	}

	d.replace(result.Table, models.SourceScrape)
	report.Rows = result.Table.Len()
	report.Message = "New data scraped and saved!"
	if persistFailed(result.Diagnostics) {
		report.Message = "New data scraped but could not be saved"
	}

	d.logger.DebugContext(ctx, "pipeline counters", slog.Any("metrics", p.GetMetrics()))
	return d.finish(ctx, report, start)
}

// LoadDatabase replaces the table with the configured relational table.
func (d *Dashboard) LoadDatabase(ctx context.Context) *Report {
	start := d.now()
	report := &Report{Action: ActionLoadDB}

	table, err := store.LoadRelational(ctx, d.cfg.Database)
	if err != nil {
		report.Err = models.Acquisition("load database", err)
		report.Message = fmt.Sprintf("Error loading from database: %v", err)
	} else {
		d.replace(table, models.SourceDatabase)
		report.Rows = table.Len()
		report.Message = "Data loaded from database!"
	}

	return d.finish(ctx, report, start)
}

func (d *Dashboard) replace(t *models.Table, src models.Source) {
	d.state.Replace(&models.BookTable{
		Data:     t,
		Fields:   d.resolver.Resolve(t.Columns),
		Source:   src,
		LoadedAt: d.now(),
	})
}

func (d *Dashboard) finish(ctx context.Context, r *Report, start time.Time) *Report {
	r.Duration = d.now().Sub(start)
	d.actions.WithLabelValues(r.Action, r.Outcome()).Inc()

	attrs := []any{
		slog.String("action", r.Action),
		slog.String("outcome", r.Outcome()),
		slog.Int("rows", r.Rows),
		slog.Int("diagnostics", len(r.Diagnostics)),
		slog.Duration("duration", r.Duration),
	}
	if r.Err != nil {
		d.logger.ErrorContext(ctx, "action failed", append(attrs, slog.Any("error", r.Err))...)
	} else {
		d.logger.InfoContext(ctx, "action complete", attrs...)
	}
	for _, diag := range r.Diagnostics {
		d.logger.WarnContext(ctx, "action diagnostic",
			slog.String("action", r.Action),
			slog.String("kind", string(models.KindOf(diag))),
			slog.Any("error", diag),
		)
	}
	return r
}

func persistFailed(diags []error) bool {
	for _, diag := range diags {
		var e *models.Error
		if errors.As(diag, &e) && e.Op == "persist" {
			return true
		}
	}
	return false
}

// Export writes the export view for params as plain UTF-8 CSV.
func (d *Dashboard) Export(w io.Writer, params Params) error {
	v := d.Snapshot(params)
	if !v.Loaded {
		return models.View("export", ErrNotLoaded)
	}
	return store.WriteCSV(w, v.Export, false)
}

// Chart renders the price chart of the given kind as SVG over every numeric
// price in the table.
func (d *Dashboard) Chart(w io.Writer, kind chart.Kind) error {
	bt, ok := d.state.Current()
	if !ok || !d.state.Loaded() {
		return models.View("chart", ErrNotLoaded)
	}
	col, ok := bt.Fields.Column(models.FieldPrice)
	if !ok {
		return models.View("chart", errPriceMissing)
	}
	values, _ := query.Prices(bt.Data, col)
	if err := chart.Render(w, kind, values); err != nil {
		return models.View("chart", err)
	}
	return nil
}
