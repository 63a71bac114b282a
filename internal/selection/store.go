package selection

import (
	"fmt"
	"sync"

	"github.com/kadvsk2006/Automated-Resume-Screening/internal/models"
)

// ChangeFunc is notified with the new count after every mutation
type ChangeFunc func(count int)

// Store accumulates files picked or dropped for the next screening run.
// Entries keep their insertion order and are never de-duplicated.
type Store struct {
	mu       sync.RWMutex
	files    []models.PendingFile
	onChange ChangeFunc
}

// NewStore creates an empty selection store
func NewStore() *Store {
	return &Store{}
}

// OnChange registers a callback used to refresh counters and the armed state
func (s *Store) OnChange(fn ChangeFunc) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Add appends files after the existing entries
func (s *Store) Add(files ...models.PendingFile) {
	if len(files) == 0 {
		return
	}
	s.mu.Lock()
	s.files = append(s.files, files...)
	count := len(s.files)
	cb := s.onChange
	s.mu.Unlock()

	if cb != nil {
		cb(count)
	}
}

// Remove deletes the entry at index i
func (s *Store) Remove(i int) error {
	s.mu.Lock()
	if i < 0 || i >= len(s.files) {
		n := len(s.files)
		s.mu.Unlock()
		return fmt.Errorf("selection index %d out of range [0,%d)", i, n)
	}
	s.files = append(s.files[:i:i], s.files[i+1:]...)
	count := len(s.files)
	cb := s.onChange
	s.mu.Unlock()

	if cb != nil {
		cb(count)
	}
	return nil
}

// Clear drops every pending file
func (s *Store) Clear() {
	s.mu.Lock()
	s.files = nil
	cb := s.onChange
	s.mu.Unlock()

	if cb != nil {
		cb(0)
	}
}

// Count returns the number of pending files
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}

// Armed reports whether at least one file is waiting to be submitted
func (s *Store) Armed() bool {
	return s.Count() > 0
}

// Files returns a copy of the pending files in insertion order
func (s *Store) Files() []models.PendingFile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.PendingFile, len(s.files))
	copy(out, s.files)
	return out
}

// Summary is the counter text shown under the drop target
func (s *Store) Summary() string {
	return CountLabel(s.Count())
}

// CountLabel formats a file count for display
func CountLabel(n int) string {
	return fmt.Sprintf("%d file(s) selected", n)
}
