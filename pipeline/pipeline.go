// Package pipeline runs the refresh path: scrape, clean, persist.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aluiziolira/go-books-dashboard/models"
	"github.com/aluiziolira/go-books-dashboard/parser"
)

// ErrNoRecords is returned when a scrape yields nothing to clean.
var ErrNoRecords = errors.New("pipeline: no records scraped")

// Source produces raw listing records.
type Source interface {
	Scrape(ctx context.Context, pageCount int) (*models.ScrapeResult, error)
}

// OutputWriter defines the interface for data output.
type OutputWriter interface {
	Write(t *models.Table) error
	Close() error
	Validate() error
}

// WriterFactory opens the output. It is only called once a cleaned table
// exists, so a failed scrape never truncates the previous file.
type WriterFactory func() (OutputWriter, error)

// Result is the outcome of one Run.
type Result struct {
	Table       *models.Table
	Scrape      *models.ScrapeResult
	Diagnostics []error
	Duration    time.Duration
}

// Pipeline coordinates scraping, cleaning and output writing.
type Pipeline struct {
	source    Source
	pages     int
	newWriter WriterFactory

	metrics metrics
}

// NewPipeline builds a pipeline fetching pages pages from source. A nil
// newWriter skips persistence.
func NewPipeline(source Source, pages int, newWriter WriterFactory) *Pipeline {
	return &Pipeline{
		source:    source,
		pages:     pages,
		newWriter: newWriter,
		metrics:   newMetrics(),
	}
}

// Run executes one refresh. The returned error is an acquisition failure
// that leaves nothing to load. Per-page, per-row and persistence problems are
// reported in Result.Diagnostics alongside a usable table.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	scraped, err := p.source.Scrape(ctx, p.pages)
	if err != nil {
		return nil, models.Acquisition("scrape", err)
	}

	result := &Result{
		Scrape:      scraped,
		Diagnostics: append([]error(nil), scraped.Diagnostics...),
	}
	for _, d := range scraped.Diagnostics {
		p.metrics.addValidation(string(models.KindOf(d)))
	}

	if len(scraped.Records) == 0 {
		result.Duration = time.Since(start)
		return result, models.Acquisition("scrape", fmt.Errorf("%w after %d pages", ErrNoRecords, scraped.PageCount))
	}

	table, cleanErrs := parser.Clean(scraped.Records)
	result.Table = table
	result.Diagnostics = append(result.Diagnostics, cleanErrs...)
	p.metrics.addProcessed(int64(table.Len()))
	for range cleanErrs {
		p.metrics.addValidation("unparsable_price")
	}

	if p.newWriter != nil {
		if err := p.persist(table); err != nil {
			result.Diagnostics = append(result.Diagnostics, models.Acquisition("persist", err))
		}
	}

	result.Duration = time.Since(start)
	slog.Info("pipeline run complete",
		slog.Int("rows", table.Len()),
		slog.Int("diagnostics", len(result.Diagnostics)),
		slog.Duration("duration", result.Duration),
	)
	return result, nil
}

func (p *Pipeline) persist(t *models.Table) error {
	w, err := p.newWriter()
	if err != nil {
		return fmt.Errorf("open writer: %w", err)
	}
	if err := w.Write(t); err != nil {
		w.Close()
		return fmt.Errorf("write table: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}
	if err := w.Validate(); err != nil {
		return fmt.Errorf("validate output: %w", err)
	}
	return nil
}

// GetMetrics returns a snapshot of the internal counters.
func (p *Pipeline) GetMetrics() map[string]interface{} {
	return p.metrics.snapshot()
}

type metrics struct {
	mu         *sync.Mutex
	processed  *int64
	validation map[string]int
}

func newMetrics() metrics {
	return metrics{
		mu:         &sync.Mutex{},
		processed:  new(int64),
		validation: make(map[string]int),
	}
}

func (m metrics) addProcessed(n int64) {
	m.mu.Lock()
	*m.processed += n
	m.mu.Unlock()
}

func (m metrics) addValidation(kind string) {
	m.mu.Lock()
	m.validation[kind]++
	m.mu.Unlock()
}

func (m metrics) snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	copyValidation := make(map[string]int, len(m.validation))
	for k, v := range m.validation {
		copyValidation[k] = v
	}

	return map[string]interface{}{
		"processed_books":   *m.processed,
		"validation_errors": copyValidation,
	}
}
