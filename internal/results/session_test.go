package results

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadvsk2006/Automated-Resume-Screening/internal/models"
)

func heldSession(records ...models.ResultRecord) *Session {
	s := NewSession()
	s.Replace(records, models.RunSummary{})
	return s
}

func TestLookupBeforeAnyRun(t *testing.T) {
	s := NewSession()
	_, err := s.Lookup("x.pdf", "")
	assert.ErrorIs(t, err, ErrNoResults)
	assert.False(t, s.Held())
}

func TestLookupEmptyRun(t *testing.T) {
	s := heldSession()
	_, err := s.Lookup("x.pdf", "")
	assert.ErrorIs(t, err, ErrNoResults)
	assert.True(t, s.Held())
}

func TestLookupReturnsMatchingRecord(t *testing.T) {
	s := heldSession(
		models.ResultRecord{Filename: "x.pdf", CandidateName: "X", Origin: models.OriginPDF},
		models.ResultRecord{Filename: "y.pdf", CandidateName: "Y", Origin: models.OriginPDF},
	)

	r, err := s.LookupEncoded(EncodeKey("y.pdf"), "")
	require.NoError(t, err)
	assert.Equal(t, "Y", r.CandidateName)

	_, err = s.Lookup("z.pdf", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookupDuplicateFilenames(t *testing.T) {
	s := heldSession(
		models.ResultRecord{Filename: "dup.pdf", CandidateName: "Upload", Origin: models.OriginPDF},
		models.ResultRecord{Filename: "dup.pdf", CandidateName: "Database", Origin: models.OriginCSV},
	)

	_, err := s.Lookup("dup.pdf", "")
	var ambiguous *AmbiguousFilenameError
	require.True(t, errors.As(err, &ambiguous))
	assert.Equal(t, 2, ambiguous.Count)

	r, err := s.Lookup("dup.pdf", models.OriginCSV)
	require.NoError(t, err)
	assert.Equal(t, "Database", r.CandidateName)

	summary, ok := s.Summary()
	require.True(t, ok)
	assert.Equal(t, []string{"dup.pdf"}, summary.DuplicateNames)
}

func TestReplaceIsFullReplace(t *testing.T) {
	s := NewSession()
	first := s.Replace([]models.ResultRecord{
		{Filename: "a.pdf", Origin: models.OriginPDF},
		{Filename: "b.csv", Origin: models.OriginCSV},
	}, models.RunSummary{TotalProcessed: 2})
	second := s.Replace([]models.ResultRecord{
		{Filename: "c.csv", Origin: models.OriginCSV},
	}, models.RunSummary{TotalProcessed: 1})

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, "c.csv", s.Records()[0].Filename)
	assert.Empty(t, s.ByOrigin(models.OriginPDF))
	assert.Len(t, s.ByOrigin(models.OriginCSV), 1)
	assert.Equal(t, 0, second.Uploaded)
	assert.Equal(t, 1, second.Database)
}

func TestReplaceCopiesInput(t *testing.T) {
	records := []models.ResultRecord{{Filename: "a.pdf"}}
	s := heldSession(records...)
	records[0].Filename = "mutated.pdf"

	assert.Equal(t, "a.pdf", s.Records()[0].Filename)
}

func TestEncodeDecodeKey(t *testing.T) {
	names := []string{"plain.pdf", "with space.pdf", "a,b.pdf", "c+d.pdf", "path/like.pdf", "Jo\"e's.pdf", "naïve.pdf"}
	for _, name := range names {
		key := EncodeKey(name)
		assert.NotContains(t, key, " ")
		assert.NotContains(t, key, "/")

		got, err := DecodeKey(key)
		require.NoError(t, err)
		assert.Equal(t, name, got)
	}

	_, err := DecodeKey("%zz")
	assert.Error(t, err)
}
