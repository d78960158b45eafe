package dashboard

import (
	"errors"
	"time"

	"github.com/aluiziolira/go-books-dashboard/chart"
	"github.com/aluiziolira/go-books-dashboard/models"
	"github.com/aluiziolira/go-books-dashboard/query"
)

var (
	errPriceMissing        = errors.New("price column not found in the data")
	errAvailabilityMissing = errors.New("availability column not found")
	errTitleMissing        = errors.New("title column not found")
)

// Params are the view controls.
type Params struct {
	// MaxPrice is the price ceiling; nil selects the default.
	MaxPrice *int
	Search   string
	Advanced bool
}

// View is everything one render shows. It is rebuilt from the session table
// and Params on every call and never stored.
type View struct {
	Loaded   bool
	Source   models.Source
	LoadedAt time.Time

	All     *models.Table
	Columns []string
	Rows    int
	Cols    int

	TitleColumn        string
	PriceColumn        string
	AvailabilityColumn string

	Price   *PriceView
	InStock *models.Table
	Search  *SearchView
	Chart   *ChartView

	Warnings []error
	Export   *models.Table
}

// PriceView is the price ceiling section.
type PriceView struct {
	Range     query.PriceRange
	Threshold int
	Table     *models.Table
}

// SearchView is the title search section. Table is nil until a term is given.
type SearchView struct {
	Term  string
	Table *models.Table
}

// ChartView holds the chart data. Histogram and Box are only filled for the
// advanced view.
type ChartView struct {
	Values    []float64
	Histogram []chart.Bin
	Box       *chart.BoxStats
}

// Snapshot derives the view for params. Problems with one section become
// warnings and leave the other sections intact.
func (d *Dashboard) Snapshot(params Params) *View {
	bt, ok := d.state.Current()
	if !ok || !d.state.Loaded() {
		return &View{}
	}
	return buildView(bt, params)
}

func buildView(bt *models.BookTable, params Params) *View {
	t := bt.Data
	rows, cols := t.Shape()
	v := &View{
		Loaded:   true,
		Source:   bt.Source,
		LoadedAt: bt.LoadedAt,
		All:      t,
		Columns:  t.Columns,
		Rows:     rows,
		Cols:     cols,
		Export:   t,
	}
	v.TitleColumn, _ = bt.Fields.Column(models.FieldTitle)
	v.PriceColumn, _ = bt.Fields.Column(models.FieldPrice)
	v.AvailabilityColumn, _ = bt.Fields.Column(models.FieldAvailability)

	if v.PriceColumn == "" {
		v.Warnings = append(v.Warnings, models.View("price filter", errPriceMissing))
	} else if bounds, err := query.PriceBounds(t, v.PriceColumn); err != nil {
		v.Warnings = append(v.Warnings, err)
	} else {
		threshold := bounds.Default
		if params.MaxPrice != nil {
			threshold = bounds.Clamp(*params.MaxPrice)
		}
		filtered := query.FilterByPrice(t, v.PriceColumn, float64(threshold))
		v.Price = &PriceView{Range: bounds, Threshold: threshold, Table: filtered}
		v.Export = filtered
	}

	if v.AvailabilityColumn == "" {
		v.Warnings = append(v.Warnings, models.View("in stock", errAvailabilityMissing))
	} else {
		v.InStock = query.InStock(t, v.AvailabilityColumn)
	}

	if v.TitleColumn == "" {
		v.Warnings = append(v.Warnings, models.View("search", errTitleMissing))
	} else {
		v.Search = &SearchView{Term: params.Search}
		if params.Search != "" {
			v.Search.Table = query.SearchTitle(t, v.TitleColumn, params.Search)
		}
	}

	if v.PriceColumn != "" {
		values, _ := query.Prices(t, v.PriceColumn)
		if len(values) > 0 {
			v.Chart = &ChartView{Values: values}
			if params.Advanced {
				v.Chart.Histogram = chart.Histogram(values, chart.HistogramBins)
				if box, ok := chart.Box(values); ok {
					v.Chart.Box = &box
				}
			}
		}
	}

	return v
}
