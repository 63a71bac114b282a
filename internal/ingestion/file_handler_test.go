package ingestion

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadPathsKeepsOrder(t *testing.T) {
	dir := t.TempDir()
	b := writeFile(t, dir, "b.txt", "Bob resume")
	a := writeFile(t, dir, "a.pdf", "%PDF-1.4 Alice")

	fh := NewFileHandler(zaptest.NewLogger(t))
	files, err := fh.LoadPaths(context.Background(), b, a)
	require.NoError(t, err)

	require.Len(t, files, 2)
	assert.Equal(t, "b.txt", files[0].Filename)
	assert.Equal(t, "Bob resume", string(files[0].Content))
	assert.Equal(t, "a.pdf", files[1].Filename)
}

func TestLoadPathsExpandsDirectories(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "JohnDoe_CV.txt", "John Doe CV content")
	writeFile(t, dir, "AnnSmith_CV.pdf", "%PDF-1.4")
	writeFile(t, dir, "photo.png", "png")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0755))
	writeFile(t, filepath.Join(dir, "nested"), "deep.pdf", "%PDF-1.4")

	fh := NewFileHandler(nil)
	files, err := fh.LoadPaths(context.Background(), dir)
	require.NoError(t, err)

	require.Len(t, files, 2)
	assert.Equal(t, "AnnSmith_CV.pdf", files[0].Filename)
	assert.Equal(t, "JohnDoe_CV.txt", files[1].Filename)
}

func TestLoadPathsMissingFile(t *testing.T) {
	fh := NewFileHandler(nil)
	_, err := fh.LoadPaths(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)
}

func TestLoadPathsCancelled(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.txt", "text")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fh := NewFileHandler(nil)
	_, err := fh.LoadPaths(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadUploadedLimit(t *testing.T) {
	pf, err := ReadUploaded("a.txt", strings.NewReader("small"))
	require.NoError(t, err)
	assert.Equal(t, 5, pf.Size())

	_, err = ReadUploaded("big.pdf", bytes.NewReader(make([]byte, MaxFileSize+1)))
	assert.Error(t, err)
}

func TestSaveFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "downloads")

	path, err := SaveFile(dir, "../escape/test_cv.txt", strings.NewReader("Test CV content"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "test_cv.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Test CV content", string(data))
}

type fakeDownloader struct {
	files map[string]string
	calls []string
}

func (f *fakeDownloader) Download(ctx context.Context, filename string) (io.ReadCloser, string, error) {
	f.calls = append(f.calls, filename)
	content, ok := f.files[filename]
	if !ok {
		return nil, "", errors.New("File not found")
	}
	return io.NopCloser(strings.NewReader(content)), "application/pdf", nil
}

func TestSaveOriginals(t *testing.T) {
	dir := t.TempDir()
	d := &fakeDownloader{files: map[string]string{"a.pdf": "%PDF-a", "b.pdf": "%PDF-b"}}

	paths, err := SaveOriginals(context.Background(), d, dir, []string{"a.pdf", "", "b.pdf", "a.pdf"})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.pdf"), filepath.Join(dir, "b.pdf")}, paths)
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, d.calls)

	data, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	assert.Equal(t, "%PDF-b", string(data))
}

func TestSaveOriginalsStopsOnFailedDownload(t *testing.T) {
	d := &fakeDownloader{files: map[string]string{"a.pdf": "%PDF-a"}}

	paths, err := SaveOriginals(context.Background(), d, t.TempDir(), []string{"a.pdf", "missing.pdf", "c.pdf"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.pdf")
	assert.Len(t, paths, 1)
	assert.Equal(t, []string{"a.pdf", "missing.pdf"}, d.calls)
}
