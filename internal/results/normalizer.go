package results

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/kadvsk2006/Automated-Resume-Screening/internal/metrics"
	"github.com/kadvsk2006/Automated-Resume-Screening/internal/models"
)

// Normalizer turns raw screening responses into uniform result records
type Normalizer struct {
	log *zap.Logger
}

// NewNormalizer creates a normalizer that reports per-record problems to log
func NewNormalizer(log *zap.Logger) *Normalizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Normalizer{log: log}
}

// Normalize tags every record with its bucket origin and concatenates the
// buckets, uploaded results first. The result has one record per raw record.
func (n *Normalizer) Normalize(resp *models.ScreeningResponse) []models.ResultRecord {
	if resp == nil {
		return []models.ResultRecord{}
	}

	out := make([]models.ResultRecord, 0, len(resp.UploadedResults)+len(resp.DatabaseResults))
	for _, raw := range resp.UploadedResults {
		out = append(out, n.NormalizeRecord(raw, models.OriginPDF))
	}
	for _, raw := range resp.DatabaseResults {
		out = append(out, n.NormalizeRecord(raw, models.OriginCSV))
	}
	return out
}

// NormalizeRecord converts one raw record. It never fails: unreadable fields
// fall back to their defaults.
func (n *Normalizer) NormalizeRecord(raw json.RawMessage, origin models.Origin) models.ResultRecord {
	record := models.ResultRecord{
		Skills:   []string{},
		Warnings: []string{},
		Origin:   origin,
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		n.log.Warn("skipping fields of non-object result record",
			zap.String("origin", string(origin)),
			zap.ByteString("raw", raw),
		)
		return record
	}

	record.Filename = textField(fields["filename"])
	record.CandidateName = textField(fields["candidate_name"])
	record.MatchScore = scoreField(fields)
	record.Rank = rankField(fields["rank"])
	record.ResumeText = textField(fields["resume_text"])
	record.Source = textField(fields["source"])

	skills := ParseSkills(fields["skills"])
	if !skills.OK() {
		metrics.SkillsParseFailures.Inc()
		n.log.Warn("failed to parse skills, treating as empty",
			zap.String("filename", record.Filename),
			zap.ByteString("skills", fields["skills"]),
			zap.Error(skills.Err),
		)
	} else if skills.Source == SkillsLegacy {
		n.log.Debug("parsed legacy single-quoted skills", zap.String("filename", record.Filename))
	}
	record.Skills = skills.Skills

	if warnings, err := parseStringList(fields["warnings"]); err == nil {
		record.Warnings = warnings
	}

	return record
}
