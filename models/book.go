// Package models defines data structures shared by the dashboard packages.
package models

import "time"

// BookRecord represents one listing item as scraped, before cleaning.
type BookRecord struct {
	Title        string `json:"title"`
	Price        string `json:"price"`
	Availability string `json:"availability"`
}

// Field is a logical column the dashboard understands.
type Field string

const (
	FieldTitle        Field = "title"
	FieldPrice        Field = "price"
	FieldAvailability Field = "availability"
)

// Fields lists the logical fields in display order.
var Fields = []Field{FieldTitle, FieldPrice, FieldAvailability}

// FieldMap maps logical fields to the actual column names of a table.
// A missing key means the field could not be resolved.
type FieldMap map[Field]string

// Column returns the resolved column for f.
func (m FieldMap) Column(f Field) (string, bool) {
	col, ok := m[f]
	return col, ok && col != ""
}

// Clone returns an independent copy of the map.
func (m FieldMap) Clone() FieldMap {
	out := make(FieldMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Source names where a BookTable came from.
type Source string

const (
	SourceCSV      Source = "csv"
	SourceScrape   Source = "scrape"
	SourceDatabase Source = "database"
)

// BookTable is the loaded table plus the field mapping resolved at load time.
type BookTable struct {
	Data     *Table
	Fields   FieldMap
	Source   Source
	LoadedAt time.Time
}

// ScrapeResult holds the overall result of a scraping operation.
type ScrapeResult struct {
	Records      []BookRecord
	StartTime    time.Time
	EndTime      time.Time
	PageCount    int
	FailedPages  int
	SkippedItems int
	RequestCount int
	ErrorsByType map[string]int
	Diagnostics  []error
}
