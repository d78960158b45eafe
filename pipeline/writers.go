package pipeline

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aluiziolira/go-books-dashboard/models"
	"github.com/aluiziolira/go-books-dashboard/store"
)

// JSONWriter writes one JSON object per row, keyed by column name. Null cells
// encode as null.
type JSONWriter struct {
	file    *os.File
	writer  *bufio.Writer
	encoder *json.Encoder
	rows    int
	mu      sync.Mutex
}

// NewJSONWriter initialises the JSON writer.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	if err := store.EnsureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create json file: %w", err)
	}

	buffer := bufio.NewWriter(f)
	return &JSONWriter{
		file:    f,
		writer:  buffer,
		encoder: json.NewEncoder(buffer),
	}, nil
}

// Write appends the rows of t in JSONL format.
func (jw *JSONWriter) Write(t *models.Table) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	for i := range t.Rows {
		obj := make(map[string]*string, len(t.Columns))
		for _, col := range t.Columns {
			cell, _ := t.Cell(i, col)
			if cell.Valid {
				v := cell.String
				obj[col] = &v
			} else {
				obj[col] = nil
			}
		}
		if err := jw.encoder.Encode(obj); err != nil {
			return fmt.Errorf("encode json record: %w", err)
		}
		jw.rows++
	}

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return nil
}

// Close flushes buffers and closes the underlying file.
func (jw *JSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if err := jw.writer.Flush(); err != nil {
		jw.file.Close()
		return fmt.Errorf("flush json writer: %w", err)
	}
	return jw.file.Close()
}

// Validate ensures at least one row was written.
func (jw *JSONWriter) Validate() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if jw.rows == 0 {
		return fmt.Errorf("json file is empty")
	}
	return nil
}

// NewWriter opens the writer for format at path. Dual output puts the JSONL
// file next to the CSV one.
func NewWriter(format, path string) (OutputWriter, error) {
	var (
		w   OutputWriter
		err error
	)
	switch format {
	case "csv":
		w, err = store.NewCSVWriter(path)
	case "json":
		w, err = NewJSONWriter(path)
	case "dual":
		w, err = NewDualWriter(path, JSONPath(path))
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

// JSONPath swaps the extension of path for .jsonl.
func JSONPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".jsonl"
}

// FileWriter returns a factory for NewWriter(format, path).
func FileWriter(format, path string) WriterFactory {
	return func() (OutputWriter, error) {
		return NewWriter(format, path)
	}
}
