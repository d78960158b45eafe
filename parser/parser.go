// Package parser normalises scraped records into the canonical book table.
package parser

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-books-dashboard/models"
)

// Canonical column names written by Clean.
const (
	ColumnTitle        = "Book_Name"
	ColumnPrice        = "price"
	ColumnAvailability = "availability"
)

// ValidateRecord ensures the scraper captured the required fields.
func ValidateRecord(r models.BookRecord) error {
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("record missing title")
	}
	if strings.TrimSpace(r.Price) == "" {
		return fmt.Errorf("record missing price for %s", r.Title)
	}
	if strings.TrimSpace(r.Availability) == "" {
		return fmt.Errorf("record missing availability for %s", r.Title)
	}
	return nil
}

// NormalizePrice removes the currency symbol, including the mis-decoded
// "Â£" form, and surrounding whitespace.
func NormalizePrice(price string) string {
	price = strings.TrimSpace(price)
	price = strings.ReplaceAll(price, "Â£", "")
	price = strings.ReplaceAll(price, "£", "")
	return strings.TrimSpace(price)
}

// PriceToInt parses a price and truncates it toward zero. Fractional pence
// are discarded.
func PriceToInt(price string) (int, error) {
	value, err := strconv.ParseFloat(NormalizePrice(price), 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", price, err)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("parse price %q: not a finite number", price)
	}
	if value < math.MinInt || value >= math.MaxInt {
		return 0, fmt.Errorf("parse price %q: out of range", price)
	}
	return int(value), nil
}

// NormalizeAvailability trims spacing from the availability text.
func NormalizeAvailability(text string) string {
	return strings.TrimSpace(text)
}

// Clean builds the canonical table from raw records. A row whose price does
// not parse keeps its raw price text and yields a parse error; the remaining
// rows are cleaned regardless.
func Clean(records []models.BookRecord) (*models.Table, []error) {
	table := models.NewTable(ColumnTitle, ColumnPrice, ColumnAvailability)
	var errs []error

	for i, r := range records {
		price := models.Text(r.Price)
		if n, err := PriceToInt(r.Price); err != nil {
			errs = append(errs, models.Parse(fmt.Sprintf("clean row %d", i+1), err))
		} else {
			price = models.Text(strconv.Itoa(n))
		}
		table.Append(
			models.Text(r.Title),
			price,
			models.Text(NormalizeAvailability(r.Availability)),
		)
	}

	return table, errs
}
