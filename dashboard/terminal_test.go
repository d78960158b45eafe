package dashboard

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/aluiziolira/go-books-dashboard/models"
	"github.com/stretchr/testify/require"
)

func TestTerminalRendererView(t *testing.T) {
	d := loadSample(t, sampleCSV)

	var buf bytes.Buffer
	NewTerminalRenderer(&buf, 2).View(d.Snapshot(Params{Search: "light", Advanced: true}))
	out := buf.String()

	require.Contains(t, out, "Columns found: Book_Name, price, availability")
	require.Contains(t, out, "Data shape: (5, 3)")
	require.Contains(t, out, "Detected columns: Title: Book_Name, Price: price, Availability: availability")
	require.Contains(t, strings.ToUpper(out), "... 3 MORE ROWS")
	require.Contains(t, out, "A Light in the Attic")
	require.NotContains(t, out, "Sapiens", "rows beyond the limit are not printed")
	require.Contains(t, strings.ToUpper(out), "PRICE BOX PLOT")
}

func TestTerminalRendererEmptyAndReport(t *testing.T) {
	var buf bytes.Buffer
	r := NewTerminalRenderer(&buf, 0)
	r.View(&View{})
	require.Contains(t, buf.String(), "No data loaded")

	buf.Reset()
	r.Report(&Report{
		Message:     "New data scraped and saved!",
		Diagnostics: []error{models.Parse("parse page 2", errors.New("missing listing container"))},
	})
	require.Contains(t, buf.String(), "New data scraped and saved!")
	require.Contains(t, buf.String(), "missing listing container")
}
