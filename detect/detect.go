// Package detect resolves logical book fields to the column names a given
// source happens to use.
package detect

import (
	"strings"

	"github.com/aluiziolira/go-books-dashboard/models"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Candidate names per field, most specific first.
var (
	PriceCandidates        = []string{"price", "Price", "price_color"}
	AvailabilityCandidates = []string{"availability", "Availability", "stock", "instock"}
	TitleCandidates        = []string{"Title", "title", "Book_Name", "name"}
)

// Column returns the column that best matches candidates.
//
// An exact, case-sensitive match wins first, in candidate order. Failing that,
// columns are scanned in table order and the first one containing any
// candidate (case-insensitively, in candidate order) is returned.
func Column(columns []string, candidates []string) (string, bool) {
	for _, name := range candidates {
		if name == "" {
			continue
		}
		for _, col := range columns {
			if col == name {
				return col, true
			}
		}
	}

	for _, col := range columns {
		lower := strings.ToLower(col)
		for _, name := range candidates {
			if name == "" {
				continue
			}
			if strings.Contains(lower, strings.ToLower(name)) {
				return col, true
			}
		}
	}
	return "", false
}

// Resolve maps every logical field that has a matching column.
func Resolve(columns []string) models.FieldMap {
	fields := make(models.FieldMap, len(models.Fields))
	for _, f := range models.Fields {
		if col, ok := Column(columns, candidatesFor(f)); ok {
			fields[f] = col
		}
	}
	return fields
}

func candidatesFor(f models.Field) []string {
	switch f {
	case models.FieldTitle:
		return TitleCandidates
	case models.FieldPrice:
		return PriceCandidates
	case models.FieldAvailability:
		return AvailabilityCandidates
	default:
		return nil
	}
}

// Resolver memoises Resolve by header signature.
type Resolver struct {
	cache *lru.Cache[string, models.FieldMap]
}

// NewResolver returns a resolver remembering up to size header shapes.
func NewResolver(size int) (*Resolver, error) {
	if size <= 0 {
		size = 16
	}
	cache, err := lru.New[string, models.FieldMap](size)
	if err != nil {
		return nil, err
	}
	return &Resolver{cache: cache}, nil
}

// Resolve returns the same mapping as the package-level Resolve.
func (r *Resolver) Resolve(columns []string) models.FieldMap {
	key := strings.Join(columns, "\x1f")
	if fields, ok := r.cache.Get(key); ok {
		return fields.Clone()
	}
	fields := Resolve(columns)
	r.cache.Add(key, fields)
	return fields.Clone()
}
