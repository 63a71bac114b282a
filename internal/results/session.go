package results

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/kadvsk2006/Automated-Resume-Screening/internal/metrics"
	"github.com/kadvsk2006/Automated-Resume-Screening/internal/models"
)

var (
	// ErrNoResults is returned when no screening run has produced records yet
	ErrNoResults = errors.New("no results available, run screening first")
	// ErrNotFound is returned when no held record has the requested filename
	ErrNotFound = errors.New("candidate details not found")
)

// AmbiguousFilenameError is returned when several held records share a filename
type AmbiguousFilenameError struct {
	Filename string
	Count    int
}

func (e *AmbiguousFilenameError) Error() string {
	return fmt.Sprintf("%d candidates share filename %q", e.Count, e.Filename)
}

// Session owns the held result set of the latest successful screening run.
// Replace is the only writer; every other method reads a consistent snapshot.
type Session struct {
	mu      sync.RWMutex
	held    bool
	records []models.ResultRecord
	summary models.RunSummary
}

// NewSession creates a session with no held results
func NewSession() *Session {
	return &Session{}
}

// Replace swaps in the records of a new run. Nothing is merged with the
// previous run. The returned summary carries the run ID and duplicate filenames.
func (s *Session) Replace(records []models.ResultRecord, summary models.RunSummary) models.RunSummary {
	held := make([]models.ResultRecord, len(records))
	copy(held, records)

	summary.RunID = uuid.NewString()
	summary.Uploaded, summary.Database = 0, 0
	for _, r := range held {
		switch r.Origin {
		case models.OriginPDF:
			summary.Uploaded++
		case models.OriginCSV:
			summary.Database++
		}
	}
	summary.DuplicateNames = duplicateFilenames(held)

	s.mu.Lock()
	s.held = true
	s.records = held
	s.summary = summary
	s.mu.Unlock()

	metrics.HeldRecords.WithLabelValues(string(models.OriginPDF)).Set(float64(summary.Uploaded))
	metrics.HeldRecords.WithLabelValues(string(models.OriginCSV)).Set(float64(summary.Database))

	return summary
}

// Held reports whether any run has completed in this session
func (s *Session) Held() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.held
}

// Len returns the size of the held result set
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Records returns a copy of the held result set, uploaded records first
func (s *Session) Records() []models.ResultRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ResultRecord, len(s.records))
	copy(out, s.records)
	return out
}

// ByOrigin returns the held records read from one bucket
func (s *Session) ByOrigin(origin models.Origin) []models.ResultRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ResultRecord, 0, len(s.records))
	for _, r := range s.records {
		if r.Origin == origin {
			out = append(out, r)
		}
	}
	return out
}

// Summary returns the latest run summary, false before the first run
func (s *Session) Summary() (models.RunSummary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summary, s.held
}

// Lookup finds the held record with filename. A valid origin narrows the
// search to one bucket. More than one match is reported as ambiguous.
func (s *Session) Lookup(filename string, origin models.Origin) (models.ResultRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.records) == 0 {
		return models.ResultRecord{}, ErrNoResults
	}

	var matches []models.ResultRecord
	for _, r := range s.records {
		if r.Filename != filename {
			continue
		}
		if origin.Valid() && r.Origin != origin {
			continue
		}
		matches = append(matches, r)
	}

	switch len(matches) {
	case 0:
		return models.ResultRecord{}, fmt.Errorf("%w: %q", ErrNotFound, filename)
	case 1:
		return matches[0], nil
	default:
		return models.ResultRecord{}, &AmbiguousFilenameError{Filename: filename, Count: len(matches)}
	}
}

// LookupEncoded decodes a key produced by EncodeKey and looks it up
func (s *Session) LookupEncoded(key string, origin models.Origin) (models.ResultRecord, error) {
	filename, err := DecodeKey(key)
	if err != nil {
		return models.ResultRecord{}, err
	}
	return s.Lookup(filename, origin)
}

// EncodeKey escapes a filename for use as a path segment or query value.
// Spaces become %20, never '+'.
func EncodeKey(filename string) string {
	return strings.ReplaceAll(url.QueryEscape(filename), "+", "%20")
}

// DecodeKey reverses EncodeKey. A literal '+' is kept as '+'.
func DecodeKey(key string) (string, error) {
	filename, err := url.PathUnescape(key)
	if err != nil {
		return "", fmt.Errorf("failed to decode filename key %q: %w", key, err)
	}
	return filename, nil
}

func duplicateFilenames(records []models.ResultRecord) []string {
	seen := make(map[string]int, len(records))
	for _, r := range records {
		seen[r.Filename]++
	}

	var dups []string
	for name, n := range seen {
		if n > 1 {
			dups = append(dups, name)
		}
	}
	sort.Strings(dups)
	return dups
}
