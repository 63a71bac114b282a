package ingestion

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kadvsk2006/Automated-Resume-Screening/internal/models"
)

const (
	// MaxFileSize caps a single resume read into memory
	MaxFileSize = 20 << 20
	// DefaultReadConcurrency bounds parallel file reads
	DefaultReadConcurrency = 8
)

// FileHandler reads resumes from local paths into PendingFiles
type FileHandler struct {
	log         *zap.Logger
	concurrency int
}

// NewFileHandler creates a new file handler
func NewFileHandler(log *zap.Logger) *FileHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &FileHandler{
		log:         log,
		concurrency: DefaultReadConcurrency,
	}
}

// LoadPaths reads every path into memory. Directories contribute their
// resume files (non-recursive, sorted by name); explicit file paths are
// taken as given. The result keeps argument order.
func (fh *FileHandler) LoadPaths(ctx context.Context, paths ...string) ([]models.PendingFile, error) {
	files, err := fh.expand(paths)
	if err != nil {
		return nil, err
	}

	loaded := make([]models.PendingFile, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(fh.concurrency)

	for i, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", path, err)
			}
			defer f.Close()

			pf, err := ReadUploaded(filepath.Base(path), f)
			if err != nil {
				return err
			}
			if err := Inspect(pf); err != nil {
				fh.log.Warn("file content does not match its extension", zap.String("path", path), zap.Error(err))
			}
			loaded[i] = pf
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	fh.log.Debug("loaded local files", zap.Int("count", len(loaded)))
	return loaded, nil
}

func (fh *FileHandler) expand(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}

		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read directory %s: %w", path, err)
		}
		var names []string
		for _, entry := range entries {
			if entry.IsDir() || !IsResumeFile(entry.Name()) {
				continue
			}
			names = append(names, entry.Name())
		}
		sort.Strings(names)
		for _, name := range names {
			files = append(files, filepath.Join(path, name))
		}
	}
	return files, nil
}

// ReadUploaded reads one file into memory, rejecting anything over MaxFileSize
func ReadUploaded(filename string, content io.Reader) (models.PendingFile, error) {
	data, err := io.ReadAll(io.LimitReader(content, MaxFileSize+1))
	if err != nil {
		return models.PendingFile{}, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if len(data) > MaxFileSize {
		return models.PendingFile{}, fmt.Errorf("%s exceeds the %d MB limit", filename, MaxFileSize>>20)
	}
	return models.PendingFile{Filename: filename, Content: data}, nil
}

// SaveFile writes content into dir under filename and returns the path
func SaveFile(dir, filename string, content io.Reader) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	filePath := filepath.Join(dir, filepath.Base(filename))
	file, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, content); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return filePath, nil
}

// Downloader fetches a stored resume by filename
type Downloader interface {
	Download(ctx context.Context, filename string) (io.ReadCloser, string, error)
}

// SaveOriginals downloads each named resume into dir and returns the written
// paths. Empty and repeated names are skipped; a failed download stops the run.
func SaveOriginals(ctx context.Context, d Downloader, dir string, filenames []string) ([]string, error) {
	seen := make(map[string]bool, len(filenames))
	var paths []string
	for _, name := range filenames {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		body, _, err := d.Download(ctx, name)
		if err != nil {
			return paths, fmt.Errorf("failed to download %s: %w", name, err)
		}
		path, err := SaveFile(dir, name, body)
		body.Close()
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
