package view

import (
	"errors"
	"fmt"

	"github.com/kadvsk2006/Automated-Resume-Screening/internal/results"
)

// User-facing notice texts
const (
	NoticeJobDescriptionTooShort = "Please enter a Job Description (minimum 50 characters)"
	NoticeNoResults              = "No results available. Please run screening first."
	NoticeDetailsNotFound        = "Candidate details not found for this row."
	NoticeNothingToExport        = "No results to export. Please run screening first."
	NoticeDetailsUnavailable     = "Unable to show candidate details."
	NoticeSubmissionInFlight     = "A screening request is already running."
)

// SubmissionNotice formats a failed submission for the user
func SubmissionNotice(err error) string {
	return "Error processing request: " + err.Error()
}

// DetailNotice turns a lookup failure into the notice shown to the user
func DetailNotice(err error) string {
	var ambiguous *results.AmbiguousFilenameError
	switch {
	case errors.Is(err, results.ErrNoResults):
		return NoticeNoResults
	case errors.Is(err, results.ErrNotFound):
		return NoticeDetailsNotFound
	case errors.As(err, &ambiguous):
		return fmt.Sprintf("%d candidates share the filename %q; details cannot be shown unambiguously.", ambiguous.Count, ambiguous.Filename)
	default:
		return NoticeDetailsUnavailable
	}
}
