package screening

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kadvsk2006/Automated-Resume-Screening/internal/metrics"
	"github.com/kadvsk2006/Automated-Resume-Screening/internal/models"
	"github.com/kadvsk2006/Automated-Resume-Screening/internal/results"
)

const (
	// ScreenPath is the screening endpoint of the remote service
	ScreenPath = "/api/screen-resumes"
	// DownloadPath prefixes per-file downloads on the remote service
	DownloadPath = "/download/"

	// DefaultTimeout bounds one screening round trip
	DefaultTimeout = 5 * time.Minute

	// threshold is always 0: the client asks for the unfiltered result set
	threshold = "0"

	maxErrorBody = 1 << 20
)

// Request is one screening submission
type Request struct {
	JobDescription string
	Files          []models.PendingFile
	IncludeCSV     bool
}

// Client talks to the remote screening service
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	timeout    time.Duration
	log        *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout bounds each request; zero disables the bound
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithLogger sets the client logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// NewClient creates a client for the service rooted at baseURL
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server URL must be http or https, got %q", baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the service root
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Submit validates the job description, posts the multipart request and
// decodes the response. Nothing is sent when validation fails.
func (c *Client) Submit(ctx context.Context, req Request) (*models.ScreeningResponse, error) {
	if err := ValidateJobDescription(req.JobDescription); err != nil {
		metrics.SubmissionsTotal.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, err
	}

	body, contentType, err := buildMultipart(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(ScreenPath), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create screening request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")

	c.log.Info("submitting screening request",
		zap.Int("files", len(req.Files)),
		zap.Bool("include_csv", req.IncludeCSV),
	)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	metrics.SubmissionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SubmissionsTotal.WithLabelValues(metrics.OutcomeTransport).Inc()
		return nil, fmt.Errorf("failed to reach screening service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.SubmissionsTotal.WithLabelValues(metrics.OutcomeServerError).Inc()
		return nil, readServerError(resp)
	}

	var out models.ScreeningResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		metrics.SubmissionsTotal.WithLabelValues(metrics.OutcomeDecodeError).Inc()
		return nil, fmt.Errorf("failed to decode screening response: %w", err)
	}

	metrics.SubmissionsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	c.log.Info("screening response received",
		zap.Int("uploaded_results", len(out.UploadedResults)),
		zap.Int("database_results", len(out.DatabaseResults)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &out, nil
}

// Download opens the remote copy of an uploaded file. The caller closes the body.
func (c *Client) Download(ctx context.Context, filename string) (io.ReadCloser, string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(DownloadPath+results.EncodeKey(filename)), nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download %s: %w", filename, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, "", readServerError(resp)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return resp.Body, contentType, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Client) endpoint(path string) string {
	return c.baseURL.String() + path
}

// buildMultipart lays out job_description, include_csv, threshold and one
// files part per pending file, in that order
func buildMultipart(req Request) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"job_description", req.JobDescription},
		{"include_csv", strconv.FormatBool(req.IncludeCSV)},
		{"threshold", threshold},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("failed to write %s field: %w", f[0], err)
		}
	}

	for _, file := range req.Files {
		part, err := w.CreatePart(filePartHeader(file.Filename))
		if err != nil {
			return nil, "", fmt.Errorf("failed to create part for %s: %w", file.Filename, err)
		}
		if _, err := part.Write(file.Content); err != nil {
			return nil, "", fmt.Errorf("failed to write part for %s: %w", file.Filename, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func filePartHeader(filename string) textproto.MIMEHeader {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
		"name":     "files",
		"filename": filename,
	}))

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)
	return h
}
