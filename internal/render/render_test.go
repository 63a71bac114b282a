package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadvsk2006/Automated-Resume-Screening/internal/models"
	"github.com/kadvsk2006/Automated-Resume-Screening/internal/view"
)

func newRenderer(t *testing.T) *HTMLRenderer {
	t.Helper()
	r, err := NewHTMLRenderer()
	require.NoError(t, err)
	return r
}

func TestRowsEscapeServerText(t *testing.T) {
	r := newRenderer(t)
	record := models.ResultRecord{
		Filename:      `<img src=x onerror=alert(1)>.pdf`,
		CandidateName: `<script>alert("x")</script>`,
		MatchScore:    80,
		Rank:          1,
		Skills:        []string{"<b>Go</b>"},
		Origin:        models.OriginPDF,
	}
	section := view.Section{Origin: models.OriginPDF, Visible: true, Rows: []view.Row{view.BuildRow(record, models.OriginPDF)}}

	var buf bytes.Buffer
	require.NoError(t, r.Rows(&buf, section))
	out := buf.String()

	assert.NotContains(t, out, "<script>")
	assert.NotContains(t, out, "<b>Go</b>")
	assert.NotContains(t, out, "<img")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.Contains(t, out, "&lt;b&gt;Go&lt;/b&gt;")
	assert.Contains(t, out, "bg-success")
	assert.Contains(t, out, "width:80.0%")
}

func TestRowsOverflowBadgeAndPlaceholders(t *testing.T) {
	r := newRenderer(t)
	withSkills := models.ResultRecord{
		Filename: "a.pdf", CandidateName: "A", MatchScore: 50, Rank: 1,
		Skills: []string{"Go", "SQL", "K8s", "AWS", "Rust", "Python"},
	}
	noSkills := models.ResultRecord{Filename: "b.csv", CandidateName: "B", MatchScore: 10, Rank: 2}

	var buf bytes.Buffer
	require.NoError(t, r.Rows(&buf, view.Section{Rows: []view.Row{
		view.BuildRow(withSkills, models.OriginPDF),
		view.BuildRow(noSkills, models.OriginCSV),
	}}))
	out := buf.String()

	assert.Contains(t, out, "&#43;2", "html/template escapes the plus sign")
	assert.NotContains(t, out, ">Rust<")
	assert.Contains(t, out, "No Skills")
	assert.Contains(t, out, "Database")
	assert.Equal(t, 1, strings.Count(out, "Download"), "only uploaded rows offer a download")
}

func TestPageHidesEmptySections(t *testing.T) {
	r := newRenderer(t)
	uploaded, database := view.BuildSections([]models.ResultRecord{
		{Filename: "c.csv", CandidateName: "C", MatchScore: 91, Rank: 1, Origin: models.OriginCSV},
	})

	var buf bytes.Buffer
	require.NoError(t, r.Page(&buf, Page{
		Summary:  &models.RunSummary{RunID: "run-1", Database: 1},
		Uploaded: uploaded,
		Database: database,
	}))
	out := buf.String()

	assert.Contains(t, out, `id="pdfSection" class="d-none"`)
	assert.Contains(t, out, `id="csvSection">`)
	assert.Contains(t, out, "0 file(s) selected")
	assert.Contains(t, out, "/export.csv")
}

func TestPageBeforeFirstRun(t *testing.T) {
	r := newRenderer(t)

	var buf bytes.Buffer
	require.NoError(t, r.Page(&buf, Page{
		SelectedFiles: []string{"a.pdf", "b.docx"},
		Notice:        view.NoticeJobDescriptionTooShort,
		NoticeIsError: true,
		Busy:          true,
	}))
	out := buf.String()

	assert.Contains(t, out, `id="resultsArea" class="d-none"`)
	assert.Contains(t, out, "2 file(s) selected")
	assert.Contains(t, out, "dropzone armed")
	assert.Contains(t, out, "notice error")
	assert.Contains(t, out, "disabled")
	assert.NotContains(t, out, "/export.csv")
}

func TestDetailPreview(t *testing.T) {
	r := newRenderer(t)
	d := view.BuildDetail(models.ResultRecord{
		Filename:      "jane.pdf",
		CandidateName: "Jane",
		MatchScore:    82.5,
		ResumeText:    "<p>Senior engineer</p>",
	})

	var buf bytes.Buffer
	require.NoError(t, r.Detail(&buf, d))
	out := buf.String()

	assert.Contains(t, out, "Jane – 82.5% match")
	assert.Contains(t, out, "&lt;p&gt;Senior engineer&lt;/p&gt;")
	assert.Contains(t, out, `class="modal show"`)
}
