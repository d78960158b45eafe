// Package query derives read-only views of a book table.
package query

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-books-dashboard/models"
)

// DefaultPriceCeiling caps the initial price threshold.
const DefaultPriceCeiling = 50

// InStockPhrase is matched case-insensitively against availability text.
const InStockPhrase = "in stock"

// ErrNoPrices is returned when no row carries a numeric price.
var ErrNoPrices = errors.New("no numeric prices")

// PriceRange bounds the price threshold control.
type PriceRange struct {
	Min     int
	Max     int
	Default int
}

// Clamp limits v to the range.
func (r PriceRange) Clamp(v int) int {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// ParseNumber coerces a cell to a float. Blank, non-numeric and non-finite
// cells are rejected, as are values an int cannot hold, so every accepted
// price has an integer bound.
func ParseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	if v < math.MinInt || v >= math.MaxInt {
		return 0, false
	}
	return v, true
}

// Prices returns the numeric values of column and the rows they came from.
func Prices(t *models.Table, column string) ([]float64, []int) {
	idx := t.ColumnIndex(column)
	if idx < 0 {
		return nil, nil
	}
	var (
		values []float64
		rows   []int
	)
	for i, row := range t.Rows {
		cell := row[idx]
		if !cell.Valid {
			continue
		}
		if v, ok := ParseNumber(cell.String); ok {
			values = append(values, v)
			rows = append(rows, i)
		}
	}
	return values, rows
}

// PriceBounds computes the slider range: integer-truncated min and max of the
// numeric prices, defaulting to the lower of max and DefaultPriceCeiling.
func PriceBounds(t *models.Table, column string) (PriceRange, error) {
	values, _ := Prices(t, column)
	if len(values) == 0 {
		return PriceRange{}, models.View("price range", fmt.Errorf("column %q: %w", column, ErrNoPrices))
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	r := PriceRange{Min: int(lo), Max: int(hi)}
	r.Default = min(r.Max, DefaultPriceCeiling)
	return r, nil
}

// FilterByPrice keeps rows whose numeric price is at most threshold. Rows
// without a numeric price are dropped.
func FilterByPrice(t *models.Table, column string, threshold float64) *models.Table {
	values, rows := Prices(t, column)
	keep := make([]int, 0, len(rows))
	for i, v := range values {
		if v <= threshold {
			keep = append(keep, rows[i])
		}
	}
	return t.Subset(keep)
}

// InStock keeps rows whose availability mentions InStockPhrase. Rows with a
// null availability are excluded.
func InStock(t *models.Table, column string) *models.Table {
	return matching(t, column, InStockPhrase)
}

// SearchTitle keeps rows whose title contains term, ignoring case. An empty
// term matches nothing.
func SearchTitle(t *models.Table, column, term string) *models.Table {
	if term == "" {
		return t.Subset(nil)
	}
	return matching(t, column, term)
}

func matching(t *models.Table, column, needle string) *models.Table {
	idx := t.ColumnIndex(column)
	if idx < 0 {
		return t.Subset(nil)
	}
	needle = strings.ToLower(needle)
	var keep []int
	for i, row := range t.Rows {
		cell := row[idx]
		if cell.Valid && strings.Contains(strings.ToLower(cell.String), needle) {
			keep = append(keep, i)
		}
	}
	return t.Subset(keep)
}
