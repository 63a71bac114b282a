package models

import "testing"

func TestDisplayNameFallbacks(t *testing.T) {
	tests := []struct {
		name     string
		record   ResultRecord
		expected string
	}{
		{
			name:     "Candidate name wins",
			record:   ResultRecord{CandidateName: "Ada", Filename: "ada.pdf"},
			expected: "Ada",
		},
		{
			name:     "Falls back to filename",
			record:   ResultRecord{Filename: "ada.pdf"},
			expected: "ada.pdf",
		},
		{
			name:     "Falls back to literal",
			record:   ResultRecord{},
			expected: "Unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.record.DisplayName("Unknown"); got != tt.expected {
				t.Errorf("DisplayName() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestOriginLabel(t *testing.T) {
	if OriginPDF.Label() != "PDF Upload" {
		t.Errorf("Expected PDF Upload, got %s", OriginPDF.Label())
	}
	if OriginCSV.Label() != "Database" {
		t.Errorf("Expected Database, got %s", OriginCSV.Label())
	}
	if Origin("xml").Valid() {
		t.Error("Unexpected valid origin xml")
	}
}
