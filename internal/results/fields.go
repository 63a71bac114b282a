package results

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// textField reads a string, accepting numbers and booleans by their JSON text
func textField(raw json.RawMessage) string {
	data := bytes.TrimSpace(raw)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return ""
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}

	switch data[0] {
	case '{', '[':
		return ""
	default:
		return string(data)
	}
}

// numberField reads a finite number, accepting numeric strings
func numberField(raw json.RawMessage) (float64, bool) {
	data := bytes.TrimSpace(raw)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return 0, false
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return 0, false
		}
		f, err = strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// scoreField resolves match_score, then the legacy score alias, then 0.
// A zero match_score defers to the alias.
func scoreField(fields map[string]json.RawMessage) float64 {
	if v, ok := numberField(fields["match_score"]); ok && v != 0 {
		return v
	}
	if v, ok := numberField(fields["score"]); ok && v != 0 {
		return v
	}
	return 0
}

// rankField reads a positive integer rank, 0 otherwise
func rankField(raw json.RawMessage) int {
	v, ok := numberField(raw)
	if !ok || v < 1 {
		return 0
	}
	return int(v)
}
