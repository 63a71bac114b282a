package screening

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"
)

// MinJobDescriptionLength is the minimum trimmed length of a job description
const MinJobDescriptionLength = 50

// ValidationError rejects a submission before anything is sent
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ServerError is a non-2xx answer from the screening service
type ServerError struct {
	Status int
	Detail string
}

func (e *ServerError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("Server error: %d", e.Status)
}

// ValidateJobDescription checks the trimmed description is long enough
func ValidateJobDescription(jd string) error {
	if utf8.RuneCountInString(strings.TrimSpace(jd)) < MinJobDescriptionLength {
		return &ValidationError{
			Field:   "job_description",
			Message: "Please enter a Job Description (minimum 50 characters)",
		}
	}
	return nil
}

// readServerError extracts the "detail" of an error body when there is one
func readServerError(resp *http.Response) error {
	serverErr := &ServerError{Status: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(bytes.TrimSpace(data)) == 0 {
		return serverErr
	}

	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return serverErr
	}
	serverErr.Detail = detailText(body.Detail)
	return serverErr
}

// detailText renders a detail value. Structured details (validation error
// lists) are kept as compact JSON.
func detailText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return ""
	}
	return compact.String()
}
