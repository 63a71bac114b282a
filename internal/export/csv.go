package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kadvsk2006/Automated-Resume-Screening/internal/metrics"
	"github.com/kadvsk2006/Automated-Resume-Screening/internal/models"
)

// CSVFilename is the name offered for CSV downloads
const CSVFilename = "resume_screening_results.csv"

// ErrNoResults is returned when there is nothing to export
var ErrNoResults = errors.New("no results to export")

var csvHeader = []string{"rank", "filename", "source", "candidate_name", "match_score"}

// CSV serializes records under the fixed export header. Lines are separated
// by "\n" with no trailing newline. Skills and resume text are not exported.
func CSV(records []models.ResultRecord) (string, error) {
	if len(records) == 0 {
		return "", ErrNoResults
	}

	lines := make([]string, 0, len(records)+1)
	lines = append(lines, csvLine(csvHeader))
	for _, r := range records {
		lines = append(lines, csvLine([]string{
			strconv.Itoa(r.Rank),
			r.Filename,
			r.Source,
			r.CandidateName,
			strconv.FormatFloat(r.MatchScore, 'f', -1, 64),
		}))
	}
	return strings.Join(lines, "\n"), nil
}

// WriteCSV writes the CSV document for records to w
func WriteCSV(w io.Writer, records []models.ResultRecord) error {
	doc, err := CSV(records)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, doc); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	metrics.ExportsTotal.WithLabelValues("csv").Inc()
	return nil
}

// SaveCSV writes the CSV document to outputPath, or to CSVFilename inside
// outputPath when it names a directory
func SaveCSV(records []models.ResultRecord, outputPath string) (string, error) {
	if info, err := os.Stat(outputPath); err == nil && info.IsDir() {
		outputPath = filepath.Join(outputPath, CSVFilename)
	}
	outputPath = filepath.Clean(outputPath)

	doc, err := CSV(records)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(outputPath, []byte(doc), 0644); err != nil {
		return "", fmt.Errorf("failed to save CSV file: %w", err)
	}
	metrics.ExportsTotal.WithLabelValues("csv").Inc()
	return outputPath, nil
}

func csvLine(fields []string) string {
	escaped := make([]string, len(fields))
	for i, f := range fields {
		escaped[i] = escapeCSV(f)
	}
	return strings.Join(escaped, ",")
}

// escapeCSV quotes a field only when it holds a comma, a double quote or a newline
func escapeCSV(value string) string {
	if !strings.ContainsAny(value, ",\"\n") {
		return value
	}
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}
