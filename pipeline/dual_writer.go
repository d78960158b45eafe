package pipeline

import (
	"errors"
	"fmt"
	"sync"

	"github.com/aluiziolira/go-books-dashboard/models"
	"github.com/aluiziolira/go-books-dashboard/store"
)

// DualWriter saves every table twice: BOM-prefixed CSV for the dashboard to
// reload and JSONL for other consumers.
type DualWriter struct {
	outputs []OutputWriter
	mu      sync.Mutex
}

// NewDualWriter creates both files. Nothing is left open on failure.
func NewDualWriter(csvFilename, jsonFilename string) (*DualWriter, error) {
	csvOut, err := store.NewCSVWriter(csvFilename)
	if err != nil {
		return nil, fmt.Errorf("open csv output: %w", err)
	}
	jsonOut, err := NewJSONWriter(jsonFilename)
	if err != nil {
		csvOut.Close()
		return nil, fmt.Errorf("open json output: %w", err)
	}
	return &DualWriter{outputs: []OutputWriter{csvOut, jsonOut}}, nil
}

// Write stops at the first output that fails.
func (dw *DualWriter) Write(t *models.Table) error {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	for _, out := range dw.outputs {
		if err := out.Write(t); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every output, even after a failure.
func (dw *DualWriter) Close() error {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	var errs []error
	for _, out := range dw.outputs {
		errs = append(errs, out.Close())
	}
	return errors.Join(errs...)
}

// Validate checks every output and joins their errors.
func (dw *DualWriter) Validate() error {
	var errs []error
	for _, out := range dw.outputs {
		errs = append(errs, out.Validate())
	}
	return errors.Join(errs...)
}
