package ingestion

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kadvsk2006/Automated-Resume-Screening/internal/models"
)

const (
	// BinarySampleSize is the number of bytes to sample for binary detection
	BinarySampleSize = 1000
	// BinaryThreshold is the proportion of non-printable characters that indicates binary data
	BinaryThreshold = 0.3
)

var resumeExtensions = map[string]bool{
	".pdf":  true,
	".txt":  true,
	".doc":  true,
	".docx": true,
}

var (
	pdfMagic = []byte("%PDF-")
	zipMagic = []byte("PK")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0}
)

// IsResumeFile reports whether filename has an extension the screening service accepts
func IsResumeFile(filename string) bool {
	return resumeExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Inspect checks that a file's content matches its extension. A mismatch
// usually means a renamed or corrupt file the server will not be able to read.
func Inspect(file models.PendingFile) error {
	content := file.Content
	if len(content) == 0 {
		return fmt.Errorf("%s is empty", file.Filename)
	}

	switch ext := strings.ToLower(filepath.Ext(file.Filename)); ext {
	case ".pdf":
		if !bytes.HasPrefix(content, pdfMagic) {
			return fmt.Errorf("%s does not look like a PDF", file.Filename)
		}
	case ".docx":
		if !bytes.HasPrefix(content, zipMagic) {
			return fmt.Errorf("%s does not look like a DOCX document", file.Filename)
		}
	case ".doc":
		if !bytes.HasPrefix(content, oleMagic) && !bytes.HasPrefix(content, zipMagic) {
			return fmt.Errorf("%s does not look like a Word document", file.Filename)
		}
	case ".txt":
		if IsBinaryData(content) {
			return fmt.Errorf("%s appears to contain binary data", file.Filename)
		}
	default:
		return fmt.Errorf("unsupported file type: %s", ext)
	}
	return nil
}

// IsBinaryData checks if content appears to be binary (PDF/ZIP markers)
func IsBinaryData(content []byte) bool {
	if len(content) == 0 {
		return false
	}

	if bytes.HasPrefix(content, pdfMagic) || bytes.HasPrefix(content, zipMagic) {
		return true
	}

	sampleSize := min(BinarySampleSize, len(content))
	nonPrintable := 0
	for _, ch := range content[:sampleSize] {
		if ch < 32 && ch != '\n' && ch != '\r' && ch != '\t' {
			nonPrintable++
		}
	}

	return float64(nonPrintable)/float64(sampleSize) > BinaryThreshold
}
