package dashboard

import (
	"fmt"
	"io"
	"strings"

	"github.com/aluiziolira/go-books-dashboard/models"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// DefaultTerminalRows caps the rows printed per table.
const DefaultTerminalRows = 20

// TerminalRenderer prints a View as a series of tables.
type TerminalRenderer struct {
	out     io.Writer
	maxRows int
}

// NewTerminalRenderer writes to out, printing at most maxRows rows per table.
// A non-positive maxRows means DefaultTerminalRows.
func NewTerminalRenderer(out io.Writer, maxRows int) *TerminalRenderer {
	if maxRows <= 0 {
		maxRows = DefaultTerminalRows
	}
	return &TerminalRenderer{out: out, maxRows: maxRows}
}

func (tr *TerminalRenderer) newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(tr.out)
	if title != "" {
		t.SetTitle(title)
	}
	return t
}

// Report prints the outcome of an action.
func (tr *TerminalRenderer) Report(r *Report) {
	status := text.FgGreen
	if r.Err != nil {
		status = text.FgRed
	}
	fmt.Fprintln(tr.out, status.Sprint(r.Message))
	if len(r.Diagnostics) == 0 {
		return
	}

	t := tr.newTable("Diagnostics")
	t.AppendHeader(table.Row{"Kind", "Error"})
	for _, d := range r.Diagnostics {
		t.AppendRow(table.Row{models.KindOf(d), d.Error()})
	}
	t.Render()
}

// View prints every section of v.
func (tr *TerminalRenderer) View(v *View) {
	if !v.Loaded {
		fmt.Fprintln(tr.out, text.FgYellow.Sprint("No data loaded. Load from CSV, scrape or the database first."))
		return
	}

	fmt.Fprintf(tr.out, "Columns found: %s\n", strings.Join(v.Columns, ", "))
	fmt.Fprintf(tr.out, "Data shape: (%d, %d)\n\n", v.Rows, v.Cols)

	tr.table("All Books Data", v.All)

	fmt.Fprintf(tr.out, "Detected columns: Title: %s, Price: %s, Availability: %s\n\n",
		orNone(v.TitleColumn), orNone(v.PriceColumn), orNone(v.AvailabilityColumn))

	for _, w := range v.Warnings {
		fmt.Fprintln(tr.out, text.FgYellow.Sprint("warning: "+w.Error()))
	}

	if p := v.Price; p != nil {
		tr.table(fmt.Sprintf("Showing %d books priced under %d (range %d-%d)",
			p.Table.Len(), p.Threshold, p.Range.Min, p.Range.Max), p.Table)
	}
	if v.InStock != nil {
		tr.table(fmt.Sprintf("Found %d books in stock", v.InStock.Len()), v.InStock)
	}
	if s := v.Search; s != nil && s.Table != nil {
		tr.table(fmt.Sprintf("Found %d matching books for %q", s.Table.Len(), s.Term), s.Table)
	}
	if c := v.Chart; c != nil {
		tr.chart(c)
	}
}

func (tr *TerminalRenderer) table(title string, data *models.Table) {
	t := tr.newTable(title)

	header := make(table.Row, len(data.Columns))
	for i, c := range data.Columns {
		header[i] = c
	}
	t.AppendHeader(header)

	for i, row := range data.Rows {
		if i == tr.maxRows {
			break
		}
		r := make(table.Row, len(row))
		for j, cell := range row {
			r[j] = cellText(cell)
		}
		t.AppendRow(r)
	}
	if data.Len() > tr.maxRows {
		t.AppendFooter(table.Row{fmt.Sprintf("... %d more rows", data.Len()-tr.maxRows)})
	}
	t.Render()
	fmt.Fprintln(tr.out)
}

func (tr *TerminalRenderer) chart(c *ChartView) {
	if c.Histogram != nil {
		t := tr.newTable("Price Distribution")
		t.AppendHeader(table.Row{"From", "To", "Count"})
		for _, b := range c.Histogram {
			t.AppendRow(table.Row{fmt.Sprintf("%.2f", b.Lo), fmt.Sprintf("%.2f", b.Hi), b.Count})
		}
		t.Render()
		fmt.Fprintln(tr.out)
	}
	if b := c.Box; b != nil {
		t := tr.newTable("Price Box Plot")
		t.AppendHeader(table.Row{"N", "Min", "Q1", "Median", "Q3", "Max", "Mean", "Std Dev", "Outliers"})
		t.AppendRow(table.Row{
			b.N, b.Min, b.Q1, b.Median, b.Q3, b.Max,
			fmt.Sprintf("%.2f", b.Mean), fmt.Sprintf("%.2f", b.StdDev), len(b.Outliers),
		})
		t.Render()
		fmt.Fprintln(tr.out)
	}
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}
