package gui

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"fyne.io/fyne/v2/test"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/kadvsk2006/Automated-Resume-Screening/internal/agent"
	"github.com/kadvsk2006/Automated-Resume-Screening/internal/config"
	"github.com/kadvsk2006/Automated-Resume-Screening/internal/metrics"
	"github.com/kadvsk2006/Automated-Resume-Screening/internal/models"
	"github.com/kadvsk2006/Automated-Resume-Screening/internal/screening"
	"github.com/kadvsk2006/Automated-Resume-Screening/internal/view"
)

type stubSubmitter struct {
	body  string
	calls int
}

func (s *stubSubmitter) Submit(ctx context.Context, req screening.Request) (*models.ScreeningResponse, error) {
	s.calls++
	var resp models.ScreeningResponse
	if err := json.Unmarshal([]byte(s.body), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func newTestApp(t *testing.T, body string) (*App, *stubSubmitter) {
	t.Helper()
	stub := &stubSubmitter{body: body}
	screener := agent.NewScreener(stub, zaptest.NewLogger(t))
	a := newApp(test.NewApp(), config.DefaultConfig(), screener, nil, zaptest.NewLogger(t))
	return a, stub
}

func TestSelectionCounter(t *testing.T) {
	a, _ := newTestApp(t, `{}`)
	assert.Equal(t, "0 file(s) selected", a.selectionLabel.Text)

	a.screener.Selection.Add(
		models.PendingFile{Filename: "a.pdf"},
		models.PendingFile{Filename: "b.docx"},
	)
	a.refreshSelection()

	assert.Equal(t, "2 file(s) selected", a.selectionLabel.Text)
	assert.Equal(t, []string{"a.pdf", "b.docx"}, a.selected)
}

func TestRankRejectsShortDescription(t *testing.T) {
	a, stub := newTestApp(t, `{}`)
	invalid := metrics.SubmissionsTotal.WithLabelValues(metrics.OutcomeInvalid)
	before := testutil.ToFloat64(invalid)

	a.jobDescText.SetText("too short")
	a.handleRank()

	assert.Equal(t, before+1, testutil.ToFloat64(invalid))
	assert.True(t, a.noticeLabel.Visible())
	assert.Equal(t, view.NoticeJobDescriptionTooShort, a.noticeLabel.Text)
	assert.False(t, a.rankBtn.Disabled())
	assert.Equal(t, 0, stub.calls)
}

func TestRefreshResultsTogglesSections(t *testing.T) {
	a, _ := newTestApp(t, `{"database_results":[{"filename":"c.csv","candidate_name":"C","match_score":91,"rank":1}]}`)
	assert.False(t, a.uploadedCard.Visible())
	assert.False(t, a.databaseCard.Visible())
	assert.True(t, a.exportCSVBtn.Disabled())

	_, err := a.screener.Screen(context.Background(), strings.Repeat("Go developer ", 5), true)
	require.NoError(t, err)
	a.refreshResults()

	assert.False(t, a.uploadedCard.Visible())
	assert.True(t, a.databaseCard.Visible())
	require.Len(t, a.database.Rows, 1)
	assert.False(t, a.exportCSVBtn.Disabled())
	assert.False(t, a.exportXLSXBtn.Disabled())
	assert.Contains(t, a.summaryLabel.Text, "0 uploaded, 1 database candidate(s)")
}

func TestCellText(t *testing.T) {
	row := view.BuildRow(models.ResultRecord{
		Filename:      "a.pdf",
		CandidateName: "Ann",
		MatchScore:    77,
		Rank:          3,
		Skills:        []string{"Go", "SQL", "K8s", "AWS", "Rust"},
	}, models.OriginPDF)

	assert.Equal(t, "#3", cellText(row, 0))
	assert.Equal(t, "Ann", cellText(row, 1))
	assert.Equal(t, "PDF Upload", cellText(row, 2))
	assert.Equal(t, "77.0% (success)", cellText(row, 3))
	assert.Equal(t, "Go, SQL, K8s, AWS, +1", cellText(row, 4))
	assert.Equal(t, "Details / Download", cellText(row, 5))

	empty := view.BuildRow(models.ResultRecord{}, models.OriginCSV)
	assert.Equal(t, "No Skills", cellText(empty, 4))
	assert.Equal(t, "No actions", cellText(empty, 5))
}
