package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aluiziolira/go-books-dashboard/models"
	"github.com/aluiziolira/go-books-dashboard/parser"
)

type mockWriter struct {
	mu          sync.Mutex
	tables      []*models.Table
	closed      bool
	validateErr error
}

func (mw *mockWriter) Write(t *models.Table) error {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	mw.tables = append(mw.tables, t)
	return nil
}

func (mw *mockWriter) Close() error {
	mw.mu.Lock()
	mw.closed = true
	mw.mu.Unlock()
	return nil
}

func (mw *mockWriter) Validate() error {
	return mw.validateErr
}

type stubSource struct {
	result *models.ScrapeResult
	err    error
	pages  int
}

func (s *stubSource) Scrape(_ context.Context, pageCount int) (*models.ScrapeResult, error) {
	s.pages = pageCount
	return s.result, s.err
}

func records(prices ...string) []models.BookRecord {
	out := make([]models.BookRecord, len(prices))
	for i, p := range prices {
		out[i] = models.BookRecord{Title: "Book " + p, Price: p, Availability: "\n    In stock\n"}
	}
	return out
}

func TestPipelineRunCleansAndPersists(t *testing.T) {
	source := &stubSource{result: &models.ScrapeResult{
		Records:   records("£51.77", "Â£53.74", "£bad"),
		PageCount: 2,
	}}
	writer := &mockWriter{}
	opened := 0

	p := NewPipeline(source, 2, func() (OutputWriter, error) {
		opened++
		return writer, nil
	})
	result, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if source.pages != 2 {
		t.Fatalf("source asked for %d pages, want 2", source.pages)
	}
	if result.Table.Len() != 3 {
		t.Fatalf("rows=%d, want 3", result.Table.Len())
	}
	if got, _ := result.Table.Cell(0, parser.ColumnPrice); got.String != "51" {
		t.Fatalf("price[0]=%q, want 51", got.String)
	}
	if got, _ := result.Table.Cell(1, parser.ColumnPrice); got.String != "53" {
		t.Fatalf("price[1]=%q, want 53", got.String)
	}
	if got, _ := result.Table.Cell(0, parser.ColumnAvailability); got.String != "In stock" {
		t.Fatalf("availability=%q, want trimmed", got.String)
	}
	if len(result.Diagnostics) != 1 || models.KindOf(result.Diagnostics[0]) != models.KindParse {
		t.Fatalf("diagnostics=%v, want one parse error", result.Diagnostics)
	}

	if opened != 1 || len(writer.tables) != 1 || !writer.closed {
		t.Fatalf("writer opened=%d tables=%d closed=%v", opened, len(writer.tables), writer.closed)
	}

	metrics := p.GetMetrics()
	if metrics["processed_books"].(int64) != 3 {
		t.Fatalf("processed_books=%v, want 3", metrics["processed_books"])
	}
	validation := metrics["validation_errors"].(map[string]int)
	if validation["unparsable_price"] != 1 {
		t.Fatalf("validation errors=%v", validation)
	}
}

func TestPipelineZeroRecordsLeavesOutputAlone(t *testing.T) {
	source := &stubSource{result: &models.ScrapeResult{
		PageCount:   1,
		Diagnostics: []error{models.Acquisition("fetch page 1", errors.New("connection refused"))},
	}}
	p := NewPipeline(source, 1, func() (OutputWriter, error) {
		t.Fatalf("writer must not be opened without records")
		return nil, nil
	})

	result, err := p.Run(context.Background())
	if !errors.Is(err, ErrNoRecords) {
		t.Fatalf("expected ErrNoRecords, got %v", err)
	}
	if models.KindOf(err) != models.KindAcquisition {
		t.Fatalf("kind=%q, want acquisition", models.KindOf(err))
	}
	if result == nil || len(result.Diagnostics) != 1 {
		t.Fatalf("page diagnostics must be kept: %+v", result)
	}
}

func TestPipelineSourceError(t *testing.T) {
	boom := errors.New("boom")
	p := NewPipeline(&stubSource{err: boom}, 1, nil)

	_, err := p.Run(context.Background())
	if !errors.Is(err, boom) || models.KindOf(err) != models.KindAcquisition {
		t.Fatalf("err=%v", err)
	}
}

func TestPipelinePersistFailureIsDiagnostic(t *testing.T) {
	source := &stubSource{result: &models.ScrapeResult{Records: records("£10.00")}}
	writer := &mockWriter{validateErr: errors.New("empty")}
	p := NewPipeline(source, 1, func() (OutputWriter, error) { return writer, nil })

	result, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Table.Len() != 1 {
		t.Fatalf("table must still be returned")
	}
	if len(result.Diagnostics) != 1 || models.KindOf(result.Diagnostics[0]) != models.KindAcquisition {
		t.Fatalf("diagnostics=%v, want persist failure", result.Diagnostics)
	}
}

func TestPipelineFailedScrapeKeepsPreviousFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books_data.csv")
	if err := os.WriteFile(path, []byte("Book_Name,price,availability\nOld,1,In stock\n"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	p := NewPipeline(&stubSource{result: &models.ScrapeResult{}}, 1, FileWriter("csv", path))
	if _, err := p.Run(context.Background()); err == nil {
		t.Fatalf("expected failure")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if string(data) != "Book_Name,price,availability\nOld,1,In stock\n" {
		t.Fatalf("file was modified: %q", data)
	}
}
