package screening

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/kadvsk2006/Automated-Resume-Screening/internal/models"
)

var longJD = strings.Repeat("Go engineer ", 6)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) (*Client, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	c, err := NewClient(srv.URL+"/", opts...)
	require.NoError(t, err)
	return c, &calls
}

func TestValidateJobDescription(t *testing.T) {
	tests := []struct {
		name  string
		jd    string
		valid bool
	}{
		{"Empty", "", false},
		{"Whitespace padded short", "   " + strings.Repeat("a", 49) + "   ", false},
		{"Exactly fifty", strings.Repeat("a", 50), true},
		{"Multibyte fifty", strings.Repeat("é", 50), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateJobDescription(tt.jd)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, "job_description", vErr.Field)
		})
	}
}

func TestSubmitShortDescriptionSendsNothing(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	for n := 0; n < 50; n++ {
		_, err := c.Submit(context.Background(), Request{JobDescription: strings.Repeat("x", n)})
		var vErr *ValidationError
		require.True(t, errors.As(err, &vErr), "length %d", n)
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}

func TestSubmitBuildsMultipartBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, ScreenPath, r.URL.Path)

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, longJD, r.FormValue("job_description"))
		assert.Equal(t, "true", r.FormValue("include_csv"))
		assert.Equal(t, "0", r.FormValue("threshold"))

		files := r.MultipartForm.File["files"]
		require.Len(t, files, 2)
		assert.Equal(t, "a.pdf", files[0].Filename)
		assert.Equal(t, "b.txt", files[1].Filename)

		f, err := files[1].Open()
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "plain text resume", string(data))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"uploaded_results":[{"filename":"a.pdf"}],"database_results":[],"processing_time_ms":12.5}`)
	})

	resp, err := c.Submit(context.Background(), Request{
		JobDescription: longJD,
		IncludeCSV:     true,
		Files: []models.PendingFile{
			{Filename: "a.pdf", Content: []byte("%PDF-1.4")},
			{Filename: "b.txt", Content: []byte("plain text resume")},
		},
	})
	require.NoError(t, err)
	assert.Len(t, resp.UploadedResults, 1)
	assert.Empty(t, resp.DatabaseResults)
	assert.Equal(t, 12.5, resp.ProcessingTimeMs)
}

func TestSubmitWithoutFiles(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "false", r.FormValue("include_csv"))
		assert.Empty(t, r.MultipartForm.File["files"])
		io.WriteString(w, `{"uploaded_results":[],"database_results":[]}`)
	})

	_, err := c.Submit(context.Background(), Request{JobDescription: longJD})
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestSubmitServerErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"Detail string", http.StatusBadRequest, `{"detail":"Job description cannot be empty"}`, "Job description cannot be empty"},
		{"No body", http.StatusInternalServerError, ``, "Server error: 500"},
		{"Non JSON body", http.StatusBadGateway, `<html>bad gateway</html>`, "Server error: 502"},
		{"Body without detail", http.StatusNotFound, `{"error":"nope"}`, "Server error: 404"},
		{"Structured detail", http.StatusUnprocessableEntity, `{"detail":[{"loc":["body","job_description"]}]}`, `[{"loc":["body","job_description"]}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})

			_, err := c.Submit(context.Background(), Request{JobDescription: longJD})
			var sErr *ServerError
			require.True(t, errors.As(err, &sErr))
			assert.Equal(t, tt.status, sErr.Status)
			assert.Equal(t, tt.want, sErr.Error())
		})
	}
}

func TestSubmitMalformedJSON(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"uploaded_results": [`)
	})

	_, err := c.Submit(context.Background(), Request{JobDescription: longJD})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode screening response")
}

func TestSubmitTimeout(t *testing.T) {
	release := make(chan struct{})
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, WithTimeout(50*time.Millisecond))
	defer close(release)

	_, err := c.Submit(context.Background(), Request{JobDescription: longJD})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSubmitCancelled(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Submit(ctx, Request{JobDescription: longJD})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}

func TestDownload(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.EscapedPath() {
		case "/download/jane%20doe.pdf":
			w.Header().Set("Content-Type", "application/pdf")
			io.WriteString(w, "%PDF")
		default:
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"detail":"File not found"}`)
		}
	})

	body, contentType, err := c.Download(context.Background(), "jane doe.pdf")
	require.NoError(t, err)
	defer body.Close()
	data, _ := io.ReadAll(body)
	assert.Equal(t, "%PDF", string(data))
	assert.Equal(t, "application/pdf", contentType)

	_, _, err = c.Download(context.Background(), "missing.pdf")
	var sErr *ServerError
	require.True(t, errors.As(err, &sErr))
	assert.Equal(t, "File not found", sErr.Detail)
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient("ftp://example.com")
	assert.Error(t, err)

	c, err := NewClient("http://localhost:8000/")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", c.BaseURL())
}
