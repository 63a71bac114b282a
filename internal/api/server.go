package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kadvsk2006/Automated-Resume-Screening/internal/agent"
	"github.com/kadvsk2006/Automated-Resume-Screening/internal/export"
	"github.com/kadvsk2006/Automated-Resume-Screening/internal/ingestion"
	"github.com/kadvsk2006/Automated-Resume-Screening/internal/models"
	"github.com/kadvsk2006/Automated-Resume-Screening/internal/render"
	"github.com/kadvsk2006/Automated-Resume-Screening/internal/results"
	"github.com/kadvsk2006/Automated-Resume-Screening/internal/screening"
	"github.com/kadvsk2006/Automated-Resume-Screening/internal/view"
)

// maxUploadMemory bounds the multipart form kept in memory per request
const maxUploadMemory = 64 << 20

// Downloader fetches original resume files from the screening service
type Downloader interface {
	Download(ctx context.Context, filename string) (io.ReadCloser, string, error)
}

// Server is the local screening console: it holds the form state of a
// single operator and renders the screener's selection and results
type Server struct {
	screener   *agent.Screener
	downloader Downloader
	renderer   render.Renderer
	log        *zap.Logger

	mu   sync.Mutex
	form formState
}

type formState struct {
	jobDescription string
	includeCSV     bool
	notice         string
	noticeIsError  bool
}

// NewServer creates a new console server
func NewServer(screener *agent.Screener, downloader Downloader, renderer render.Renderer, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		screener:   screener,
		downloader: downloader,
		renderer:   renderer,
		log:        log,
	}
}

// SetIncludeCSV sets the initial state of the database checkbox
func (s *Server) SetIncludeCSV(include bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form.includeCSV = include
}

// Router returns the HTTP router
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /files", s.handleAddFiles)
	mux.HandleFunc("POST /files/remove", s.handleRemoveFile)
	mux.HandleFunc("POST /files/clear", s.handleClearFiles)
	mux.HandleFunc("POST /screen", s.handleScreen)
	mux.HandleFunc("GET /rows/{origin}", s.handleRows)
	mux.HandleFunc("GET /details/{key}", s.handleDetails)
	mux.HandleFunc("GET /export.csv", s.handleExportCSV)
	mux.HandleFunc("GET /export.xlsx", s.handleExportXLSX)
	mux.HandleFunc("GET /download/{filename}", s.handleDownload)
	mux.HandleFunc("GET /api/results", s.handleResults)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s.loggingMiddleware(mux)
}

// handleIndex renders the console and consumes the pending notice
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, http.StatusOK, s.page(true), nil)
}

// handleHealth provides a health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"busy":   s.screener.Busy(),
	})
}

// handleAddFiles appends uploaded files to the selection
func (s *Server) handleAddFiles(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		s.flash(fmt.Sprintf("Failed to read uploaded files: %v", err), true)
		s.redirectHome(w, r)
		return
	}

	var added []models.PendingFile
	for _, header := range r.MultipartForm.File["files"] {
		f, err := header.Open()
		if err != nil {
			s.flash(fmt.Sprintf("Failed to open %s: %v", header.Filename, err), true)
			s.redirectHome(w, r)
			return
		}
		pf, err := ingestion.ReadUploaded(header.Filename, f)
		f.Close()
		if err != nil {
			s.flash(err.Error(), true)
			s.redirectHome(w, r)
			return
		}
		if err := ingestion.Inspect(pf); err != nil {
			s.log.Warn("uploaded file content does not match its extension", zap.Error(err))
		}
		added = append(added, pf)
	}

	s.screener.Selection.Add(added...)
	s.redirectHome(w, r)
}

func (s *Server) handleRemoveFile(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.FormValue("index"))
	if err == nil {
		err = s.screener.Selection.Remove(index)
	}
	if err != nil {
		s.flash(fmt.Sprintf("Unable to remove file: %v", err), true)
	}
	s.redirectHome(w, r)
}

func (s *Server) handleClearFiles(w http.ResponseWriter, r *http.Request) {
	s.screener.Selection.Clear()
	s.redirectHome(w, r)
}

// handleScreen runs one screening run with the posted job description
func (s *Server) handleScreen(w http.ResponseWriter, r *http.Request) {
	jd := r.FormValue("job_description")
	includeCSV := formBool(r.FormValue("include_csv"))

	s.mu.Lock()
	s.form.jobDescription = jd
	s.form.includeCSV = includeCSV
	s.mu.Unlock()

	summary, err := s.screener.Screen(r.Context(), jd, includeCSV)
	var vErr *screening.ValidationError
	switch {
	case err == nil:
		s.flash(fmt.Sprintf("Ranked %d candidate(s).", summary.Uploaded+summary.Database), false)
	case errors.As(err, &vErr):
		s.flash(vErr.Message, true)
	case errors.Is(err, agent.ErrSubmissionInFlight):
		s.flash(view.NoticeSubmissionInFlight, true)
	default:
		s.flash(view.SubmissionNotice(err), true)
	}
	s.redirectHome(w, r)
}

// handleRows renders the table body of one section
func (s *Server) handleRows(w http.ResponseWriter, r *http.Request) {
	uploaded, database := s.screener.Sections()

	var section view.Section
	switch models.Origin(r.PathValue("origin")) {
	case models.OriginPDF:
		section = uploaded
	case models.OriginCSV:
		section = database
	default:
		s.respondError(w, http.StatusNotFound, "unknown section")
		return
	}

	var buf bytes.Buffer
	if err := s.renderer.Rows(&buf, section); err != nil {
		s.log.Error("failed to render rows", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// handleDetails renders the console with the detail view of one row
func (s *Server) handleDetails(w http.ResponseWriter, r *http.Request) {
	origin := models.Origin(r.URL.Query().Get("origin"))
	if !origin.Valid() {
		origin = ""
	}

	// The key stays escaped so filenames containing "%" or "/" survive routing
	key := strings.TrimPrefix(r.URL.EscapedPath(), "/details/")

	page := s.page(true)
	detail, err := s.screener.Details(key, origin)
	if err != nil {
		page.Notice = view.DetailNotice(err)
		page.NoticeIsError = true
		s.renderPage(w, detailStatus(err), page, err)
		return
	}

	page.Detail = &detail
	s.renderPage(w, http.StatusOK, page, nil)
}

func detailStatus(err error) int {
	var ambiguous *results.AmbiguousFilenameError
	switch {
	case errors.As(err, &ambiguous):
		return http.StatusConflict
	case errors.Is(err, results.ErrNoResults), errors.Is(err, results.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

// handleExportCSV serves the held results as a CSV attachment
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, s.screener.Session().Records()); err != nil {
		s.exportFailed(w, r, err)
		return
	}
	s.sendAttachment(w, "text/csv; charset=utf-8", export.CSVFilename, buf.Bytes())
}

// handleExportXLSX serves the held results as an Excel workbook
func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	summary, _ := s.screener.Session().Summary()

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, s.screener.Session().Records(), summary); err != nil {
		s.exportFailed(w, r, err)
		return
	}
	s.sendAttachment(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", export.XLSXFilename, buf.Bytes())
}

func (s *Server) exportFailed(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, export.ErrNoResults) {
		s.flash(view.NoticeNothingToExport, true)
	} else {
		s.log.Error("export failed", zap.Error(err))
		s.flash(fmt.Sprintf("Export failed: %v", err), true)
	}
	s.redirectHome(w, r)
}

// handleDownload streams an uploaded resume back from the screening service
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("filename")

	body, contentType, err := s.downloader.Download(r.Context(), filename)
	if err != nil {
		var sErr *screening.ServerError
		if errors.As(err, &sErr) {
			s.respondError(w, sErr.Status, sErr.Error())
			return
		}
		s.log.Error("download failed", zap.String("filename", filename), zap.Error(err))
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	defer body.Close()

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	if _, err := io.Copy(w, body); err != nil {
		s.log.Warn("download interrupted", zap.String("filename", filename), zap.Error(err))
	}
}

type resultsResponse struct {
	Summary  *models.RunSummary    `json:"summary,omitempty"`
	Uploaded []models.ResultRecord `json:"uploaded_results"`
	Database []models.ResultRecord `json:"database_results"`
}

// handleResults returns the held result set as JSON
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	session := s.screener.Session()
	summary, ok := session.Summary()
	if !ok {
		s.respondError(w, http.StatusNotFound, view.NoticeNoResults)
		return
	}

	s.respondJSON(w, http.StatusOK, resultsResponse{
		Summary:  &summary,
		Uploaded: nonNil(session.ByOrigin(models.OriginPDF)),
		Database: nonNil(session.ByOrigin(models.OriginCSV)),
	})
}

func nonNil(records []models.ResultRecord) []models.ResultRecord {
	if records == nil {
		return []models.ResultRecord{}
	}
	return records
}

// page snapshots the console state. consume clears the pending notice.
func (s *Server) page(consume bool) render.Page {
	s.mu.Lock()
	form := s.form
	if consume {
		s.form.notice, s.form.noticeIsError = "", false
	}
	s.mu.Unlock()

	files := s.screener.Selection.Files()
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Filename
	}

	page := render.Page{
		JobDescription: form.jobDescription,
		IncludeCSV:     form.includeCSV,
		SelectedFiles:  names,
		Notice:         form.notice,
		NoticeIsError:  form.noticeIsError,
		Busy:           s.screener.Busy(),
	}
	page.Uploaded, page.Database = s.screener.Sections()
	if summary, ok := s.screener.Session().Summary(); ok {
		page.Summary = &summary
	}
	return page
}

func (s *Server) renderPage(w http.ResponseWriter, status int, page render.Page, cause error) {
	var buf bytes.Buffer
	if err := s.renderer.Page(&buf, page); err != nil {
		s.log.Error("failed to render page", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if cause != nil {
		s.log.Debug("rendering page with notice", zap.Int("status", status), zap.Error(cause))
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func (s *Server) flash(notice string, isError bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form.notice, s.form.noticeIsError = notice, isError
}

func (s *Server) redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) sendAttachment(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

func formBool(v string) bool {
	switch strings.ToLower(v) {
	case "true", "on", "1", "yes":
		return true
	}
	return false
}

// respondJSON sends a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("failed to encode JSON response", zap.Error(err))
	}
}

// respondError sends an error response
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{
		"error": message,
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote", r.RemoteAddr),
		)
	})
}
