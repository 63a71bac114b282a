package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadvsk2006/Automated-Resume-Screening/internal/models"
)

func TestCSVQuotesOnlyWhenNeeded(t *testing.T) {
	doc, err := CSV([]models.ResultRecord{
		{Rank: 1, Filename: "a,b.pdf", Source: "pdf", CandidateName: `Jo"e`, MatchScore: 82.5},
	})
	require.NoError(t, err)

	lines := strings.Split(doc, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "rank,filename,source,candidate_name,match_score", lines[0])
	assert.Equal(t, `1,"a,b.pdf",pdf,"Jo""e",82.5`, lines[1])
}

func TestCSVDefaultsAndLayout(t *testing.T) {
	doc, err := CSV([]models.ResultRecord{
		{Filename: "x.pdf", CandidateName: "X", MatchScore: 91, Skills: []string{"Go"}, ResumeText: "secret"},
		{CandidateName: "multi\nline"},
	})
	require.NoError(t, err)

	assert.False(t, strings.HasSuffix(doc, "\n"))
	assert.NotContains(t, doc, "secret")
	assert.NotContains(t, doc, "Go")

	lines := strings.SplitN(doc, "\n", 3)
	assert.Equal(t, "0,x.pdf,,X,91", lines[1])
	assert.Equal(t, "0,,,\"multi\nline\",0", lines[2])
}

func TestCSVEmpty(t *testing.T) {
	_, err := CSV(nil)
	assert.ErrorIs(t, err, ErrNoResults)

	var buf bytes.Buffer
	assert.ErrorIs(t, WriteCSV(&buf, []models.ResultRecord{}), ErrNoResults)
	assert.Zero(t, buf.Len())
}

func TestEscapeCSV(t *testing.T) {
	tests := map[string]string{
		"plain":      "plain",
		"":           "",
		"a,b":        `"a,b"`,
		`say "hi"`:   `"say ""hi"""`,
		"line\nfeed": "\"line\nfeed\"",
		" leading":   " leading",
	}
	for in, want := range tests {
		assert.Equal(t, want, escapeCSV(in), "input %q", in)
	}
}

func TestSaveCSVIntoDirectory(t *testing.T) {
	dir := t.TempDir()
	records := []models.ResultRecord{{Rank: 1, Filename: "a.pdf", MatchScore: 50}}

	path, err := SaveCSV(records, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, CSVFilename), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "rank,filename,source,candidate_name,match_score\n1,a.pdf,,,50", string(data))
}
