// Package loader turns uploaded file bytes into raw document text.
package loader

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// ErrUnsupportedType is returned for file extensions the loader cannot read.
var ErrUnsupportedType = errors.New("unsupported file type")

// maxRenderedRows caps how many table rows are rendered into text.
const maxRenderedRows = 1000

// SupportedExtensions lists the accepted file extensions.
var SupportedExtensions = []string{".txt", ".md", ".csv", ".tsv"}

// LoadedDocument is the text and metadata extracted from an upload.
type LoadedDocument struct {
	Filename string
	FileSize int64
	RawText  string
	MimeType string
	RowCount *int // tabular files only
}

// Load dispatches on the file extension.
func Load(data []byte, filename string) (*LoadedDocument, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	doc := &LoadedDocument{Filename: filename, FileSize: int64(len(data))}

	slog.Debug("loading document", "filename", filename, "bytes", len(data), "type", ext)

	switch ext {
	case ".txt", ".md":
		doc.RawText = decodeText(data)
		doc.MimeType = "text/plain"
	case ".csv", ".tsv":
		delim := ','
		if ext == ".tsv" || sniffTabs(data) {
			delim = '\t'
		}
		text, rows, err := renderTable(decodeText(data), delim)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", filename, err)
		}
		doc.RawText = text
		doc.MimeType = "text/csv"
		doc.RowCount = &rows
	default:
		return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedType, ext, strings.Join(SupportedExtensions, ", "))
	}
	return doc, nil
}

// decodeText reads UTF-8 (BOM stripped) and falls back to Latin-1.
func decodeText(data []byte) string {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) {
		return string(data)
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return strings.ToValidUTF8(string(data), "�")
	}
	return string(out)
}

func sniffTabs(data []byte) bool {
	sample := data[:min(len(data), 2048)]
	return bytes.Count(sample, []byte("\t")) > bytes.Count(sample, []byte(","))
}

// renderTable renders a header line and up to maxRenderedRows rows. Rows the
// parser rejects are skipped.
func renderTable(text string, delim rune) (string, int, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var (
		header []string
		lines  []string
		rows   int
	)
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			slog.Debug("skipping malformed row", "line", perr.Line, "error", perr.Err)
			continue
		}
		if err != nil {
			return "", 0, fmt.Errorf("read table: %w", err)
		}

		if header == nil {
			header = rec
			continue
		}
		rows++
		if rows <= maxRenderedRows {
			lines = append(lines, strings.Join(rec, " | "))
		}
	}

	var sb strings.Builder
	if header != nil {
		sb.WriteString("Columns: " + strings.Join(header, ", ") + "\n")
		sb.WriteString(strings.Join(header, " | "))
	}
	for _, l := range lines {
		sb.WriteString("\n" + l)
	}
	if rows > maxRenderedRows {
		fmt.Fprintf(&sb, "\n... (%d more rows truncated)", rows-maxRenderedRows)
	}
	return sb.String(), rows, nil
}
