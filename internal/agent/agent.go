package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kadvsk2006/Automated-Resume-Screening/internal/metrics"
	"github.com/kadvsk2006/Automated-Resume-Screening/internal/models"
	"github.com/kadvsk2006/Automated-Resume-Screening/internal/results"
	"github.com/kadvsk2006/Automated-Resume-Screening/internal/screening"
	"github.com/kadvsk2006/Automated-Resume-Screening/internal/selection"
	"github.com/kadvsk2006/Automated-Resume-Screening/internal/view"
)

// ErrSubmissionInFlight rejects a run started while another is still waiting for the server
var ErrSubmissionInFlight = errors.New("a screening request is already in flight")

// ProgressCallback is called to report progress during a screening run
type ProgressCallback func(current, total int, message string)

// Submitter sends screening requests to the remote service
type Submitter interface {
	Submit(ctx context.Context, req screening.Request) (*models.ScreeningResponse, error)
}

// Screener runs screening sessions: it submits the current selection,
// normalizes the answer and replaces the held result set
type Screener struct {
	Selection  *selection.Store
	client     Submitter
	normalizer *results.Normalizer
	session    *results.Session
	log        *zap.Logger

	inFlight   atomic.Bool
	mu         sync.RWMutex
	progressCb ProgressCallback
}

// NewScreener creates a screener with an empty selection and session
func NewScreener(client Submitter, log *zap.Logger) *Screener {
	if log == nil {
		log = zap.NewNop()
	}
	return &Screener{
		Selection:  selection.NewStore(),
		client:     client,
		normalizer: results.NewNormalizer(log.Named("normalizer")),
		session:    results.NewSession(),
		log:        log,
	}
}

// Session returns the held result set
func (s *Screener) Session() *results.Session {
	return s.session
}

// SetProgressCallback sets the progress callback function
func (s *Screener) SetProgressCallback(cb ProgressCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progressCb = cb
}

// reportProgress calls the progress callback if set
func (s *Screener) reportProgress(current, total int, message string) {
	s.mu.RLock()
	cb := s.progressCb
	s.mu.RUnlock()

	if cb != nil {
		cb(current, total, message)
	}
}

// Busy reports whether a submission is waiting for the server
func (s *Screener) Busy() bool {
	return s.inFlight.Load()
}

// Validate checks jobDescription before a run and counts rejections
func (s *Screener) Validate(jobDescription string) error {
	if err := screening.ValidateJobDescription(jobDescription); err != nil {
		metrics.SubmissionsTotal.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return err
	}
	return nil
}

// Screen submits the selected files with jobDescription. Validation failures
// return before anything is sent. Only a successful run replaces the held
// result set; failures leave the previous results untouched.
func (s *Screener) Screen(ctx context.Context, jobDescription string, includeCSV bool) (models.RunSummary, error) {
	if err := s.Validate(jobDescription); err != nil {
		return models.RunSummary{}, err
	}

	if !s.inFlight.CompareAndSwap(false, true) {
		return models.RunSummary{}, ErrSubmissionInFlight
	}
	defer s.inFlight.Store(false)

	files := s.Selection.Files()
	s.reportProgress(0, 100, fmt.Sprintf("Processing %d file(s)...", len(files)))
	s.log.Info("screening run started", zap.Int("files", len(files)), zap.Bool("include_csv", includeCSV))

	start := time.Now()
	resp, err := s.client.Submit(ctx, screening.Request{
		JobDescription: jobDescription,
		Files:          files,
		IncludeCSV:     includeCSV,
	})
	if err != nil {
		s.log.Error("screening run failed", zap.Error(err))
		s.reportProgress(100, 100, "Screening failed")
		return models.RunSummary{}, err
	}

	s.reportProgress(80, 100, "Normalizing results...")
	records := s.normalizer.Normalize(resp)

	summary := s.session.Replace(records, models.RunSummary{
		CompletedAt:      time.Now(),
		TotalProcessed:   resp.TotalProcessed,
		TotalQualified:   resp.TotalQualified,
		ProcessingTimeMs: resp.ProcessingTimeMs,
		Elapsed:          time.Since(start),
	})

	if len(summary.DuplicateNames) > 0 {
		s.log.Warn("screening results contain duplicate filenames", zap.Strings("filenames", summary.DuplicateNames))
	}
	s.log.Info("screening run complete",
		zap.String("run_id", summary.RunID),
		zap.Int("uploaded", summary.Uploaded),
		zap.Int("database", summary.Database),
	)
	s.reportProgress(100, 100, fmt.Sprintf("Complete! %d candidate(s) ranked", len(records)))

	return summary, nil
}

// Sections builds the two result tables from the held result set
func (s *Screener) Sections() (uploaded, database view.Section) {
	return view.BuildSections(s.session.Records())
}

// Details builds the detail view for a row key produced by results.EncodeKey
func (s *Screener) Details(key string, origin models.Origin) (view.Detail, error) {
	record, err := s.session.LookupEncoded(key, origin)
	if err != nil {
		return view.Detail{}, err
	}
	return view.BuildDetail(record), nil
}
