package extract

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// MaxUploadBytes bounds the size of an uploaded resume file.
const MaxUploadBytes = 5 << 20

// ErrEmptyDocument is returned when a PDF parses but yields no text, which
// usually means a scanned image without an embedded text layer.
var ErrEmptyDocument = fmt.Errorf("document contains no extractable text")

// FromPDF extracts plain text from PDF bytes.
func FromPDF(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty file")
	}
	if len(data) > MaxUploadBytes {
		return "", fmt.Errorf("file exceeds %d bytes", MaxUploadBytes)
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}

	var buf bytes.Buffer
	textReader, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	if _, err := io.Copy(&buf, textReader); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	text := normalize(buf.String())
	if text == "" {
		return "", ErrEmptyDocument
	}
	return text, nil
}

// normalize collapses runs of whitespace that PDF extraction tends to
// produce, while preserving line breaks between blocks.
func normalize(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
