package models

import (
	"encoding/json"
	"time"
)

// Origin records which response bucket a record was read from.
type Origin string

const (
	// OriginPDF tags records from the uploaded_results bucket
	OriginPDF Origin = "pdf"
	// OriginCSV tags records from the database_results bucket
	OriginCSV Origin = "csv"
)

// Label returns the badge text shown next to a candidate name
func (o Origin) Label() string {
	switch o {
	case OriginPDF:
		return "PDF Upload"
	case OriginCSV:
		return "Database"
	default:
		return "Unknown"
	}
}

// Valid reports whether o is one of the known origins
func (o Origin) Valid() bool {
	return o == OriginPDF || o == OriginCSV
}

// PendingFile is a file chosen for the next screening run
type PendingFile struct {
	Filename string
	Content  []byte
}

// Size returns the content length in bytes
func (f PendingFile) Size() int {
	return len(f.Content)
}

// ScreeningResponse is the body returned by POST /api/screen-resumes.
// Records are kept raw so the normalizer can tolerate inconsistent encodings.
type ScreeningResponse struct {
	UploadedResults  []json.RawMessage `json:"uploaded_results"`
	DatabaseResults  []json.RawMessage `json:"database_results"`
	TotalProcessed   int               `json:"total_processed"`
	TotalQualified   int               `json:"total_qualified"`
	ProcessingTimeMs float64           `json:"processing_time_ms"`
}

// ResultRecord is one normalized candidate row
type ResultRecord struct {
	Filename      string   `json:"filename"`
	CandidateName string   `json:"candidate_name"`
	MatchScore    float64  `json:"match_score"`
	Rank          int      `json:"rank"`
	Skills        []string `json:"skills"`
	ResumeText    string   `json:"resume_text,omitempty"`
	Source        string   `json:"source,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
	Origin        Origin   `json:"origin"`
}

// DisplayName returns the candidate name, falling back to the filename and then to fallback
func (r ResultRecord) DisplayName(fallback string) string {
	if r.CandidateName != "" {
		return r.CandidateName
	}
	if r.Filename != "" {
		return r.Filename
	}
	return fallback
}

// RunSummary describes one completed screening run
type RunSummary struct {
	RunID            string        `json:"run_id"`
	CompletedAt      time.Time     `json:"completed_at"`
	Uploaded         int           `json:"uploaded"`
	Database         int           `json:"database"`
	TotalProcessed   int           `json:"total_processed"`
	TotalQualified   int           `json:"total_qualified"`
	ProcessingTimeMs float64       `json:"processing_time_ms"`
	Elapsed          time.Duration `json:"elapsed"`
	DuplicateNames   []string      `json:"duplicate_names,omitempty"`
}
