package results

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// SkillsSource tells how a skills value was interpreted
type SkillsSource int

const (
	// SkillsAbsent means the field was missing, null or an empty string
	SkillsAbsent SkillsSource = iota
	// SkillsList means the field was already a JSON array
	SkillsList
	// SkillsEncoded means the field was a string holding a JSON array
	SkillsEncoded
	// SkillsLegacy means the field was a string holding a single-quoted list, e.g. "['Go', 'SQL']"
	SkillsLegacy
	// SkillsInvalid means no stage could interpret the field
	SkillsInvalid
)

func (s SkillsSource) String() string {
	switch s {
	case SkillsAbsent:
		return "absent"
	case SkillsList:
		return "list"
	case SkillsEncoded:
		return "encoded"
	case SkillsLegacy:
		return "legacy"
	default:
		return "invalid"
	}
}

// SkillsResult is the outcome of ParseSkills. Skills is never nil.
type SkillsResult struct {
	Skills []string
	Source SkillsSource
	Err    error
}

// OK reports whether the value was interpreted without error
func (r SkillsResult) OK() bool {
	return r.Err == nil
}

// ParseSkills interprets a raw skills value. A JSON array is taken as is.
// A string is first parsed strictly as a JSON array and, failing that, with
// every single quote rewritten to a double quote. Anything else is invalid.
func ParseSkills(raw json.RawMessage) SkillsResult {
	data := bytes.TrimSpace(raw)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return SkillsResult{Skills: []string{}, Source: SkillsAbsent}
	}

	switch data[0] {
	case '[':
		skills, err := parseStringList(data)
		if err != nil {
			return invalidSkills(err)
		}
		return SkillsResult{Skills: skills, Source: SkillsList}

	case '"':
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return invalidSkills(fmt.Errorf("failed to decode skills string: %w", err))
		}
		return parseEncodedSkills(text)

	default:
		return invalidSkills(fmt.Errorf("unsupported skills encoding %q", truncateForLog(string(data))))
	}
}

func parseEncodedSkills(text string) SkillsResult {
	if strings.TrimSpace(text) == "" {
		return SkillsResult{Skills: []string{}, Source: SkillsAbsent}
	}

	if skills, err := parseStringList([]byte(text)); err == nil {
		return SkillsResult{Skills: skills, Source: SkillsEncoded}
	}

	rewritten := strings.ReplaceAll(text, "'", `"`)
	skills, err := parseStringList([]byte(rewritten))
	if err != nil {
		return invalidSkills(fmt.Errorf("failed to parse legacy skills %q: %w", truncateForLog(text), err))
	}
	return SkillsResult{Skills: skills, Source: SkillsLegacy}
}

// parseStringList decodes a JSON array. Non-string elements keep their JSON text.
func parseStringList(data []byte) ([]string, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if bytes.Equal(bytes.TrimSpace(item), []byte("null")) {
			out = append(out, "null")
			continue
		}
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			out = append(out, s)
			continue
		}
		out = append(out, string(bytes.TrimSpace(item)))
	}
	return out, nil
}

func invalidSkills(err error) SkillsResult {
	return SkillsResult{Skills: []string{}, Source: SkillsInvalid, Err: err}
}

func truncateForLog(s string) string {
	const max = 120
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
