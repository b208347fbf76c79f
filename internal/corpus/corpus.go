// =============================================================================
// Plan Cost Extractor - Corpus Loader Module
// =============================================================================
//
// This module turns extracted plan text into the ordered line sequence the
// detection engine scans. It handles the artifacts PDF text extraction
// leaves behind:
//   - CRLF and lone CR line endings
//   - Byte-order marks and zero-width characters
//   - Form feeds at page breaks
//   - Compatibility characters (ligatures, full-width digits, NBSP) via NFKC
//
// INPUT FORMATS:
//   - Plain text: one line per physical line
//   - JSON (.json): an array of strings, one per line
//
// Line indices are preserved: cleaning never adds or removes lines, so a
// line index reported by the engine points at the same line in the source.
//
// =============================================================================

package corpus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// maxLineBytes bounds a single line; extracted text occasionally contains
// whole pages without a newline.
const maxLineBytes = 4 << 20

// =============================================================================
// DOCUMENT STRUCTURE
// =============================================================================

// Document is one loaded input file.
type Document struct {
	// Lines are the cleaned lines, in source order.
	Lines []string

	// SourceFile is the path the document was loaded from, if any.
	SourceFile string

	// LineCount is len(Lines).
	LineCount int

	// NonBlankCount is the number of lines with visible text.
	NonBlankCount int
}

// Options controls cleaning.
type Options struct {
	// NormalizeUnicode applies NFKC folding.
	NormalizeUnicode bool
}

// DefaultOptions enables every cleaning step.
func DefaultOptions() Options {
	return Options{NormalizeUnicode: true}
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads a document from disk.
//
// PARAMETERS:
//   - filePath: A .txt-like file, or a .json array of lines.
//   - opts: Cleaning options.
//
// RETURNS:
//   - The loaded document.
//   - An error if the file cannot be read or decoded.
func Load(filePath string, opts Options) (*Document, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var doc *Document
	if strings.EqualFold(filepath.Ext(filePath), ".json") {
		doc, err = ParseJSON(file, opts)
	} else {
		doc, err = Parse(file, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", filepath.Base(filePath), err)
	}

	doc.SourceFile = filePath
	return doc, nil
}

// Parse reads plain text from r.
func Parse(r io.Reader, opts Options) (*Document, error) {
	lr := NewLineReader(r, opts)

	var lines []string
	for lr.Next() {
		lines = append(lines, lr.Line())
	}
	if err := lr.Err(); err != nil {
		return nil, err
	}

	return newDocument(lines), nil
}

// ParseJSON reads a JSON array of lines from r.
func ParseJSON(r io.Reader, opts Options) (*Document, error) {
	var raw []string
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode line array: %w", err)
	}

	// A JSON element may itself contain newlines; split them so every
	// element of Lines is one physical line.
	var lines []string
	for _, entry := range raw {
		for _, part := range splitLines(entry) {
			lines = append(lines, CleanLine(part, opts))
		}
	}

	return newDocument(lines), nil
}

// FromLines wraps already-split lines, cleaning each one.
func FromLines(lines []string, opts Options) *Document {
	cleaned := make([]string, len(lines))
	for i, line := range lines {
		cleaned[i] = CleanLine(line, opts)
	}
	return newDocument(cleaned)
}

func newDocument(lines []string) *Document {
	if lines == nil {
		lines = []string{}
	}
	doc := &Document{Lines: lines, LineCount: len(lines)}
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			doc.NonBlankCount++
		}
	}
	return doc
}

func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.Split(s, "\n")
}

// =============================================================================
// CLEANING
// =============================================================================

// CleanLine removes extraction artifacts from a single line. It never
// splits or joins lines.
func CleanLine(line string, opts Options) string {
	line = strings.TrimRight(line, "\r\n")

	var b strings.Builder
	b.Grow(len(line))
	for _, r := range line {
		switch r {
		case '\ufeff', '\u200b', '\u200c', '\u200d', '\u2060', '\u00ad':
			// Zero-width characters and soft hyphens.
		case '\f', '\v':
			// Page breaks.
		case '\t':
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	line = b.String()

	if opts.NormalizeUnicode {
		line = norm.NFKC.String(line)
	}

	return strings.TrimRight(line, " ")
}

// =============================================================================
// STREAMING READER
// =============================================================================

// LineReader reads cleaned lines one at a time.
//
// USAGE:
//
//	lr := corpus.NewLineReader(f, corpus.DefaultOptions())
//	for lr.Next() {
//	    line := lr.Line()
//	}
//	if err := lr.Err(); err != nil { ... }
type LineReader struct {
	scanner    *bufio.Scanner
	opts       Options
	current    string
	lineNumber int
	err        error
}

// NewLineReader creates a LineReader over r.
func NewLineReader(r io.Reader, opts Options) *LineReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	scanner.Split(scanLines)
	return &LineReader{scanner: scanner, opts: opts}
}

// Next advances to the next line.
func (lr *LineReader) Next() bool {
	if lr.err != nil {
		return false
	}
	if !lr.scanner.Scan() {
		if err := lr.scanner.Err(); err != nil {
			lr.err = fmt.Errorf("error reading line %d: %w", lr.lineNumber+1, err)
		}
		return false
	}
	lr.current = CleanLine(lr.scanner.Text(), lr.opts)
	lr.lineNumber++
	return true
}

// Line returns the current cleaned line.
func (lr *LineReader) Line() string {
	return lr.current
}

// LineNumber returns the 1-based number of the current line.
func (lr *LineReader) LineNumber() int {
	return lr.lineNumber
}

// Err returns the first read error.
func (lr *LineReader) Err() error {
	return lr.err
}

// scanLines is bufio.ScanLines extended to treat a lone CR as a line end.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	for i, c := range data {
		switch c {
		case '\n':
			return i + 1, data[:i], nil
		case '\r':
			if i+1 < len(data) {
				if data[i+1] == '\n' {
					return i + 2, data[:i], nil
				}
				return i + 1, data[:i], nil
			}
			if atEOF {
				return i + 1, data[:i], nil
			}
			// Need more data to tell CR from CRLF.
			return 0, nil, nil
		}
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
