// Package session holds the table currently loaded in the dashboard.
package session

import "github.com/aluiziolira/go-books-dashboard/models"

// State owns at most one BookTable. It is not safe for concurrent use; the
// dashboard serialises every action that touches it.
type State struct {
	current    *models.BookTable
	generation uint64
}

// New returns an empty state.
func New() *State {
	return &State{}
}

// Replace swaps in bt wholesale. Nothing of the previous table is kept.
func (s *State) Replace(bt *models.BookTable) {
	s.current = bt
	s.generation++
}

// Current returns the loaded table, if any.
func (s *State) Current() (*models.BookTable, bool) {
	return s.current, s.current != nil
}

// Loaded reports whether a non-empty table is present.
func (s *State) Loaded() bool {
	return s.current != nil && !s.current.Data.Empty()
}

// Generation counts replacements since start.
func (s *State) Generation() uint64 {
	return s.generation
}
