// Package store moves book tables between memory, flat files and relational
// databases.
package store

import (
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/aluiziolira/go-books-dashboard/models"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// LoadCSV reads a table from path. A leading UTF-8 byte order mark is
// accepted and dropped.
func LoadCSV(path string) (*models.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	table, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return table, nil
}

// ReadCSV decodes a header row followed by records. Empty fields become null
// cells; short records are padded with nulls.
func ReadCSV(r io.Reader) (*models.Table, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	reader := csv.NewReader(decoded)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("csv has no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	table := models.NewTable(header...)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		if len(record) > len(header) {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("line %d: %d fields, header has %d", line, len(record), len(header))
		}
		cells := make([]sql.NullString, len(record))
		for i, v := range record {
			if v != "" {
				cells[i] = models.Text(v)
			}
		}
		table.Append(cells...)
	}
	return table, nil
}

// WriteCSV encodes t to w, optionally prefixed with a UTF-8 byte order mark.
func WriteCSV(w io.Writer, t *models.Table, bom bool) error {
	var tw *transform.Writer
	if bom {
		tw = transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())
		w = tw
	}

	writer := csv.NewWriter(w)
	if err := writeTable(writer, t, true); err != nil {
		return err
	}
	if tw != nil {
		if err := tw.Close(); err != nil {
			return fmt.Errorf("flush encoder: %w", err)
		}
	}
	return nil
}

// SaveCSV writes t to path as UTF-8 with a byte order mark, creating parent
// directories as needed.
func SaveCSV(t *models.Table, path string) error {
	w, err := NewCSVWriter(path)
	if err != nil {
		return err
	}
	if err := w.Write(t); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// CSVWriter streams tables into one BOM-prefixed file. The header comes from
// the first table written.
type CSVWriter struct {
	file    *os.File
	encoder *transform.Writer
	writer  *csv.Writer
	header  []string
	rows    int
	mu      sync.Mutex
}

// NewCSVWriter creates (or truncates) path.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := EnsureDir(path); err != nil {
		return nil, err
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create csv file: %w", err)
	}

	encoder := transform.NewWriter(f, unicode.UTF8BOM.NewEncoder())
	return &CSVWriter{
		file:    f,
		encoder: encoder,
		writer:  csv.NewWriter(encoder),
	}, nil
}

// Write appends the rows of t. Every call must use the same header.
func (cw *CSVWriter) Write(t *models.Table) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	first := cw.header == nil
	if first {
		cw.header = append([]string{}, t.Columns...)
	} else if !sameColumns(cw.header, t.Columns) {
		return fmt.Errorf("csv header mismatch: have %v, got %v", cw.header, t.Columns)
	}
	if err := writeTable(cw.writer, t, first); err != nil {
		return err
	}
	cw.rows += t.Len()
	return nil
}

// Close flushes and closes the file handle.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		cw.file.Close()
		return fmt.Errorf("flush csv writer: %w", err)
	}
	if err := cw.encoder.Close(); err != nil {
		cw.file.Close()
		return fmt.Errorf("flush csv encoder: %w", err)
	}
	return cw.file.Close()
}

// Validate ensures a header has been written.
func (cw *CSVWriter) Validate() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.header == nil {
		return fmt.Errorf("csv file is empty")
	}
	return nil
}

func writeTable(writer *csv.Writer, t *models.Table, header bool) error {
	if header {
		if err := writer.Write(t.Columns); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
	}

	record := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i := range record {
			record[i] = ""
			if i < len(row) && row[i].Valid {
				record[i] = row[i].String
			}
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// EnsureDir creates the parent directory of filename if it has one.
func EnsureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
