package export

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kadvsk2006/Automated-Resume-Screening/internal/metrics"
	"github.com/kadvsk2006/Automated-Resume-Screening/internal/models"
	"github.com/kadvsk2006/Automated-Resume-Screening/internal/view"
)

// XLSXFilename is the name offered for workbook downloads
const XLSXFilename = "resume_screening_results.xlsx"

const (
	summarySheet    = "Summary"
	candidatesSheet = "Ranked Candidates"
)

// tier fills match the score bar colours of the result tables
var tierFills = map[view.Tier]string{
	view.TierSuccess: "C6EFCE",
	view.TierWarning: "FFEB9C",
	view.TierDanger:  "FFC7CE",
}

var thinBorder = []excelize.Border{
	{Type: "left", Color: "000000", Style: 1},
	{Type: "right", Color: "000000", Style: 1},
	{Type: "top", Color: "000000", Style: 1},
	{Type: "bottom", Color: "000000", Style: 1},
}

// SaveXLSX writes the workbook to outputPath, adding the .xlsx extension when missing
func SaveXLSX(records []models.ResultRecord, summary models.RunSummary, outputPath string) (string, error) {
	if len(records) == 0 {
		return "", ErrNoResults
	}
	if info, err := os.Stat(outputPath); err == nil && info.IsDir() {
		outputPath = filepath.Join(outputPath, XLSXFilename)
	}
	if !strings.HasSuffix(strings.ToLower(outputPath), ".xlsx") {
		outputPath = outputPath + ".xlsx"
	}
	outputPath = filepath.Clean(outputPath)

	f, err := buildWorkbook(records, summary)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := f.SaveAs(outputPath); err != nil {
		// Fall back to a buffered write
		var buf bytes.Buffer
		if writeErr := f.Write(&buf); writeErr != nil {
			return "", fmt.Errorf("failed to save Excel file: direct save failed (%v), buffer write also failed: %w", err, writeErr)
		}
		if fileErr := os.WriteFile(outputPath, buf.Bytes(), 0644); fileErr != nil {
			return "", fmt.Errorf("failed to save Excel file: direct save failed (%v), file write failed: %w", err, fileErr)
		}
	}

	metrics.ExportsTotal.WithLabelValues("xlsx").Inc()
	return outputPath, nil
}

// WriteXLSX streams the workbook to w
func WriteXLSX(w io.Writer, records []models.ResultRecord, summary models.RunSummary) error {
	if len(records) == 0 {
		return ErrNoResults
	}

	f, err := buildWorkbook(records, summary)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write Excel workbook: %w", err)
	}
	metrics.ExportsTotal.WithLabelValues("xlsx").Inc()
	return nil
}

func buildWorkbook(records []models.ResultRecord, summary models.RunSummary) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to rename summary sheet: %w", err)
	}
	if _, err := f.NewSheet(candidatesSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create candidates sheet: %w", err)
	}

	if err := createSummarySheet(f, records, summary); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create summary sheet: %w", err)
	}
	if err := createCandidatesSheet(f, records); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create ranked candidates sheet: %w", err)
	}
	return f, nil
}

// createSummarySheet writes run metadata and the score distribution
func createSummarySheet(f *excelize.File, records []models.ResultRecord, summary models.RunSummary) error {
	f.SetColWidth(summarySheet, "A", "A", 28)
	f.SetColWidth(summarySheet, "B", "B", 40)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	})
	if err != nil {
		return err
	}
	labelStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	row := 1
	heading := func(text string) {
		f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), text)
		f.SetCellStyle(summarySheet, fmt.Sprintf("A%d", row), fmt.Sprintf("B%d", row), headerStyle)
		f.MergeCell(summarySheet, fmt.Sprintf("A%d", row), fmt.Sprintf("B%d", row))
		row++
	}
	pair := func(label string, value interface{}) {
		f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), label)
		f.SetCellStyle(summarySheet, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), labelStyle)
		f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), value)
		row++
	}

	heading("Resume Screening Report")
	row++
	pair("Run ID:", summary.RunID)
	pair("Generated:", time.Now().Format("2006-01-02 15:04:05"))
	pair("Uploaded Candidates:", summary.Uploaded)
	pair("Database Candidates:", summary.Database)
	pair("Server Processing Time (ms):", summary.ProcessingTimeMs)
	if len(summary.DuplicateNames) > 0 {
		pair("Duplicate Filenames:", strings.Join(summary.DuplicateNames, ", "))
	}
	row++

	heading("Score Distribution")
	counts := map[view.Tier]int{}
	var total, best, worst float64
	for i, r := range records {
		counts[view.ScoreTier(r.MatchScore)]++
		total += r.MatchScore
		if i == 0 || r.MatchScore > best {
			best = r.MatchScore
		}
		if i == 0 || r.MatchScore < worst {
			worst = r.MatchScore
		}
	}
	pair("Strong (75-100):", counts[view.TierSuccess])
	pair("Moderate (40-74):", counts[view.TierWarning])
	pair("Weak (<40):", counts[view.TierDanger])
	row++
	pair("Average Score:", fmt.Sprintf("%.2f", total/float64(len(records))))
	pair("Highest Score:", fmt.Sprintf("%.2f", best))
	pair("Lowest Score:", fmt.Sprintf("%.2f", worst))

	return nil
}

// createCandidatesSheet lists every record with tier colour-coding
func createCandidatesSheet(f *excelize.File, records []models.ResultRecord) error {
	widths := map[string]float64{"A": 8, "B": 28, "C": 14, "D": 32, "E": 12, "F": 50}
	for col, w := range widths {
		f.SetColWidth(candidatesSheet, col, col, w)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorder,
	})
	if err != nil {
		return err
	}

	tierStyles := make(map[view.Tier]int, len(tierFills))
	for tier, color := range tierFills {
		style, err := f.NewStyle(&excelize.Style{
			Fill:   excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
			Border: thinBorder,
		})
		if err != nil {
			return err
		}
		tierStyles[tier] = style
	}

	headers := []string{"Rank", "Candidate", "Origin", "Filename", "Score", "Skills"}
	for col, header := range headers {
		cell := fmt.Sprintf("%s1", string(rune('A'+col)))
		f.SetCellValue(candidatesSheet, cell, header)
		f.SetCellStyle(candidatesSheet, cell, cell, headerStyle)
	}

	for i, r := range records {
		row := i + 2
		f.SetCellValue(candidatesSheet, fmt.Sprintf("A%d", row), r.Rank)
		f.SetCellValue(candidatesSheet, fmt.Sprintf("B%d", row), r.DisplayName("Unknown"))
		f.SetCellValue(candidatesSheet, fmt.Sprintf("C%d", row), r.Origin.Label())
		f.SetCellValue(candidatesSheet, fmt.Sprintf("D%d", row), r.Filename)
		f.SetCellValue(candidatesSheet, fmt.Sprintf("E%d", row), r.MatchScore)
		f.SetCellValue(candidatesSheet, fmt.Sprintf("F%d", row), strings.Join(r.Skills, ", "))
		f.SetCellStyle(candidatesSheet, fmt.Sprintf("A%d", row), fmt.Sprintf("F%d", row), tierStyles[view.ScoreTier(r.MatchScore)])
	}

	f.AutoFilter(candidatesSheet, fmt.Sprintf("A1:F%d", len(records)+1), []excelize.AutoFilterOptions{})

	// Freeze top row
	f.SetPanes(candidatesSheet, &excelize.Panes{
		Freeze:      true,
		XSplit:      0,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})

	return nil
}
