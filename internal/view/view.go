// Package view maps result records to presentation models. Nothing here
// produces markup; see package render for that.
package view

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/kadvsk2006/Automated-Resume-Screening/internal/models"
	"github.com/kadvsk2006/Automated-Resume-Screening/internal/results"
)

// Tier is the colour band of a score bar
type Tier string

const (
	TierSuccess Tier = "success"
	TierWarning Tier = "warning"
	TierDanger  Tier = "danger"
)

const (
	// MaxVisibleSkills is the number of skill badges shown before the "+N" badge
	MaxVisibleSkills = 4
	// PreviewLimit is the number of characters of resume text shown in the detail view
	PreviewLimit = 500
	// Ellipsis marks a truncated preview
	Ellipsis = "…"
)

const (
	unknownName         = "Unknown"
	unknownDetailName   = "Unknown Candidate"
	noResumeText        = "Resume text not available."
	downloadRoutePrefix = "/download/"
	detailsRoutePrefix  = "/details/"
)

// ScoreTier bands a score: >= 75 success, >= 40 warning, otherwise danger
func ScoreTier(score float64) Tier {
	switch {
	case score >= 75:
		return TierSuccess
	case score >= 40:
		return TierWarning
	default:
		return TierDanger
	}
}

// FormatScore renders a score with one decimal place
func FormatScore(score float64) string {
	return fmt.Sprintf("%.1f", score)
}

// Badge is one skill chip
type Badge struct {
	Text     string
	Overflow bool
}

// SkillBadges returns the first MaxVisibleSkills skills and, when more
// exist, one "+N" badge for the remainder
func SkillBadges(skills []string) []Badge {
	visible := skills
	if len(visible) > MaxVisibleSkills {
		visible = visible[:MaxVisibleSkills]
	}

	badges := make([]Badge, 0, len(visible)+1)
	for _, s := range visible {
		badges = append(badges, Badge{Text: s})
	}
	if extra := len(skills) - MaxVisibleSkills; extra > 0 {
		badges = append(badges, Badge{Text: fmt.Sprintf("+%d", extra), Overflow: true})
	}
	return badges
}

// Row is the presentation of one table row
type Row struct {
	Rank         int
	RankText     string
	Name         string
	Filename     string
	Origin       models.Origin
	OriginLabel  string
	Score        float64
	ScoreText    string
	ScoreWidth   float64
	Tier         Tier
	Skills       []Badge
	DetailsKey   string
	DetailsHref  string
	DownloadHref string
}

// HasSkills reports whether any skill badge is shown
func (r Row) HasSkills() bool {
	return len(r.Skills) > 0
}

// HasActions reports whether the row offers any control. Rows without a
// filename cannot be looked up or downloaded.
func (r Row) HasActions() bool {
	return r.Filename != ""
}

// CanDownload reports whether the row offers a file download
func (r Row) CanDownload() bool {
	return r.DownloadHref != ""
}

// BuildRow maps a record to a row. Only pdf rows link to a download.
func BuildRow(record models.ResultRecord, origin models.Origin) Row {
	key := results.EncodeKey(record.Filename)
	row := Row{
		Rank:        record.Rank,
		RankText:    fmt.Sprintf("#%d", record.Rank),
		Name:        record.DisplayName(unknownName),
		Filename:    record.Filename,
		Origin:      origin,
		OriginLabel: origin.Label(),
		Score:       record.MatchScore,
		ScoreText:   FormatScore(record.MatchScore) + "%",
		ScoreWidth:  math.Max(0, math.Min(100, record.MatchScore)),
		Tier:        ScoreTier(record.MatchScore),
		Skills:      SkillBadges(record.Skills),
		DetailsKey:  key,
		DetailsHref: detailsRoutePrefix + key + "?origin=" + string(origin),
	}
	if record.Filename == "" {
		row.DetailsKey, row.DetailsHref = "", ""
		return row
	}
	if origin == models.OriginPDF {
		row.DownloadHref = downloadRoutePrefix + key
	}
	return row
}

// Section is one of the two result tables
type Section struct {
	Origin  models.Origin
	Title   string
	Visible bool
	Rows    []Row
}

// BuildSections splits records into the upload and database tables.
// A section with no rows is hidden.
func BuildSections(records []models.ResultRecord) (uploaded, database Section) {
	uploaded = Section{Origin: models.OriginPDF, Title: "Uploaded Resumes"}
	database = Section{Origin: models.OriginCSV, Title: "Database Matches"}

	for _, r := range records {
		switch r.Origin {
		case models.OriginPDF:
			uploaded.Rows = append(uploaded.Rows, BuildRow(r, models.OriginPDF))
		case models.OriginCSV:
			database.Rows = append(database.Rows, BuildRow(r, models.OriginCSV))
		}
	}
	uploaded.Visible = len(uploaded.Rows) > 0
	database.Visible = len(database.Rows) > 0
	return uploaded, database
}

// Detail is the expanded view of one candidate
type Detail struct {
	Title     string
	Name      string
	Filename  string
	Origin    models.Origin
	ScoreText string
	Preview   string
	HasText   bool
	Truncated bool
	Skills    []string
	Warnings  []string
}

// BuildDetail maps a record to its detail view
func BuildDetail(record models.ResultRecord) Detail {
	name := record.DisplayName(unknownDetailName)
	score := FormatScore(record.MatchScore)

	d := Detail{
		Title:     fmt.Sprintf("%s – %s%% match", name, score),
		Name:      name,
		Filename:  record.Filename,
		Origin:    record.Origin,
		ScoreText: score + "%",
		Skills:    record.Skills,
		Warnings:  record.Warnings,
	}

	if strings.TrimSpace(record.ResumeText) == "" {
		d.Preview = noResumeText
		return d
	}
	d.HasText = true
	d.Preview, d.Truncated = Truncate(record.ResumeText, PreviewLimit)
	return d
}

// Truncate keeps the first limit characters of text, appending Ellipsis
// when anything was cut
func Truncate(text string, limit int) (string, bool) {
	if utf8.RuneCountInString(text) <= limit {
		return text, false
	}

	n := 0
	for i := range text {
		if n == limit {
			return text[:i] + Ellipsis, true
		}
		n++
	}
	return text, false
}
