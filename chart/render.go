package chart

import (
	"errors"
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgsvg"
)

// Kind selects a chart.
type Kind string

const (
	KindBar       Kind = "bar"
	KindHistogram Kind = "histogram"
	KindBox       Kind = "box"
)

// ErrNoValues is returned when there is nothing to draw.
var ErrNoValues = errors.New("chart: no values")

var (
	fillColor = color.RGBA{R: 173, G: 216, B: 230, A: 255}
	edgeColor = color.Black
)

const (
	canvasWidth  = 8 * vg.Inch
	canvasHeight = 6 * vg.Inch
)

// Render writes the chart of the given kind as SVG.
func Render(w io.Writer, kind Kind, values []float64) error {
	switch kind {
	case KindBar:
		return WriteBar(w, values)
	case KindHistogram:
		return WriteHistogram(w, values, HistogramBins)
	case KindBox:
		return WriteBoxPlot(w, values)
	default:
		return fmt.Errorf("chart: unknown kind %q", kind)
	}
}

// WriteBar draws one bar per value, in row order.
func WriteBar(w io.Writer, values []float64) error {
	if len(values) == 0 {
		return ErrNoValues
	}

	p := plot.New()
	p.Title.Text = "Prices"
	p.X.Label.Text = "Row"
	p.Y.Label.Text = "Price"

	barWidth := vg.Points(480 / float64(len(values)))
	if barWidth < 1 {
		barWidth = 1
	}
	bars, err := plotter.NewBarChart(plotter.Values(values), barWidth)
	if err != nil {
		return fmt.Errorf("bar chart: %w", err)
	}
	bars.Color = fillColor
	bars.LineStyle.Width = 0
	p.Add(bars)

	return writeSVG(w, p)
}

// WriteHistogram draws the binned distribution of values.
func WriteHistogram(w io.Writer, values []float64, bins int) error {
	buckets := Histogram(values, bins)
	if len(buckets) == 0 {
		return ErrNoValues
	}

	p := plot.New()
	p.Title.Text = "Price Distribution"
	p.X.Label.Text = "Price"
	p.Y.Label.Text = "Count"

	h := &plotter.Histogram{
		Bins:      make([]plotter.HistogramBin, len(buckets)),
		Width:     buckets[0].Hi - buckets[0].Lo,
		FillColor: fillColor,
		LineStyle: plotter.DefaultLineStyle,
	}
	h.LineStyle.Color = edgeColor
	for i, b := range buckets {
		h.Bins[i] = plotter.HistogramBin{Min: b.Lo, Max: b.Hi, Weight: float64(b.Count)}
	}
	p.Add(h)

	return writeSVG(w, p)
}

// WriteBoxPlot draws a single box for values.
func WriteBoxPlot(w io.Writer, values []float64) error {
	if len(values) == 0 {
		return ErrNoValues
	}

	p := plot.New()
	p.Title.Text = "Price Box Plot"
	p.Y.Label.Text = "Price"

	box, err := plotter.NewBoxPlot(vg.Points(60), 0, plotter.Values(values))
	if err != nil {
		return fmt.Errorf("box plot: %w", err)
	}
	box.FillColor = fillColor
	p.Add(box)
	p.NominalX("Price")

	return writeSVG(w, p)
}

func writeSVG(w io.Writer, p *plot.Plot) error {
	canvas := vgsvg.New(canvasWidth, canvasHeight)
	p.Draw(draw.New(canvas))
	if _, err := canvas.WriteTo(w); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}
