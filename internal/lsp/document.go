package lsp

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"unicode/utf16"
	"unicode/utf8"

	"fortio.org/safecast"

	"github.com/leapstack-labs/leapsense/pkg/analysis"
)

// Document represents an open text document in the editor.
type Document struct {
	URI     string // Document URI (file:///path/to/main.c)
	Content string // Full document content
	Version int    // Version number, incremented on each change
	Lines   []int  // Byte offsets of line starts for fast position lookups
}

// DocumentStore manages open documents in memory.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]*Document
}

// NewDocumentStore creates a new document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]*Document),
	}
}

// Open adds or updates a document in the store.
func (s *DocumentStore) Open(uri string, content string, version int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.documents[uri] = &Document{
		URI:     uri,
		Content: content,
		Version: version,
		Lines:   computeLineOffsets(content),
	}
}

// Close removes a document from the store.
func (s *DocumentStore) Close(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.documents, uri)
}

// Get retrieves a document by URI.
func (s *DocumentStore) Get(uri string) *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.documents[uri]
}

// Update modifies an existing document's content.
func (s *DocumentStore) Update(uri string, content string, version int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc, ok := s.documents[uri]; ok {
		doc.Content = content
		doc.Version = version
		doc.Lines = computeLineOffsets(content)
	}
}

// List returns all open document URIs.
func (s *DocumentStore) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uris := make([]string, 0, len(s.documents))
	for uri := range s.documents {
		uris = append(uris, uri)
	}
	return uris
}

// computeLineOffsets calculates byte offsets for each line start.
func computeLineOffsets(content string) []int {
	offsets := []int{0} // First line starts at offset 0

	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			offsets = append(offsets, i+1)
		}
	}

	return offsets
}

// Snapshot returns the document content as an analysis snapshot.
func (d *Document) Snapshot() analysis.Snapshot {
	return analysis.SnapshotFromString(URIToPath(d.URI), d.Content)
}

// GetLine returns the content of a specific line.
func (d *Document) GetLine(line int) string {
	if d == nil || line < 0 || line >= len(d.Lines) {
		return ""
	}

	start := d.Lines[line]
	end := len(d.Content)

	if line+1 < len(d.Lines) {
		end = d.Lines[line+1] - 1 // Exclude newline
		if end < start {
			end = start
		}
	}

	return strings.TrimSuffix(d.Content[start:end], "\r")
}

// AnalysisPosition converts an LSP position (0-based line, UTF-16
// character) to an analysis position (1-based line, byte column).
// A character past the end of the line is clamped to the line end.
func (d *Document) AnalysisPosition(pos Position) (analysis.Position, error) {
	line, err := safecast.Conv[int](pos.Line)
	if err != nil {
		return analysis.Position{}, err
	}
	if d == nil || line >= len(d.Lines) {
		return analysis.Position{}, fmt.Errorf("line %d out of range", pos.Line)
	}
	want, err := safecast.Conv[int](pos.Character)
	if err != nil {
		return analysis.Position{}, err
	}
	return analysis.Position{Line: line + 1, Column: byteColumn(d.GetLine(line), want)}, nil
}

// LSPPosition converts a 1-based line and 1-based byte column to an LSP position.
func (d *Document) LSPPosition(line, column int) Position {
	line = max(line-1, 0)
	text := d.GetLine(line)
	col := min(max(column-1, 0), len(text))

	l, _ := safecast.Conv[uint32](line)
	c, _ := safecast.Conv[uint32](utf16Len(text[:col]))
	return Position{Line: l, Character: c}
}

// PositionToOffset converts a Position to a byte offset in the document.
func (d *Document) PositionToOffset(pos Position) int {
	if d == nil || len(d.Lines) == 0 {
		return 0
	}
	p, err := d.AnalysisPosition(pos)
	if err != nil {
		return len(d.Content)
	}
	return d.Lines[p.Line-1] + p.Column
}

// OffsetToPosition converts a byte offset to a Position.
func (d *Document) OffsetToPosition(offset int) Position {
	if d == nil || len(d.Lines) == 0 {
		return Position{}
	}

	offset = min(max(offset, 0), len(d.Content))

	line := 0
	for i, lineOffset := range d.Lines {
		if lineOffset > offset {
			break
		}
		line = i
	}

	return d.LSPPosition(line+1, offset-d.Lines[line]+1)
}

// GetWordAtPosition returns the word at the given position and its range.
func (d *Document) GetWordAtPosition(pos Position) (string, Range) {
	offset := d.PositionToOffset(pos)
	if offset > len(d.Content) {
		return "", Range{Start: pos, End: pos}
	}

	// Find word boundaries
	start := offset
	for start > 0 && isWordChar(d.Content[start-1]) {
		start--
	}

	end := offset
	for end < len(d.Content) && isWordChar(d.Content[end]) {
		end++
	}

	if start == end {
		return "", Range{Start: pos, End: pos}
	}

	return d.Content[start:end], Range{
		Start: d.OffsetToPosition(start),
		End:   d.OffsetToPosition(end),
	}
}

// isWordChar returns true if the character is part of a word.
func isWordChar(c byte) bool {
	return (c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') ||
		c == '_'
}

// byteColumn returns the byte offset in line of the UTF-16 code unit offset units.
func byteColumn(line string, units int) int {
	n := 0
	for i, r := range line {
		if n >= units {
			return i
		}
		n += utf16.RuneLen(r)
	}
	return len(line)
}

func utf16Len(s string) int {
	n := 0
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		s = s[size:]
		if r == utf8.RuneError && size == 1 {
			n++
			continue
		}
		n += utf16.RuneLen(r)
	}
	return n
}

// URIToPath converts a file:// URI to a file system path.
func URIToPath(uri string) string {
	const prefix = "file://"
	if !strings.HasPrefix(uri, prefix) {
		return uri
	}
	path := uri[len(prefix):]
	if unescaped, err := url.PathUnescape(path); err == nil {
		return unescaped
	}
	return path
}

// PathToURI converts a file system path to a file:// URI.
func PathToURI(path string) string {
	if strings.HasPrefix(path, "file://") {
		return path
	}
	return "file://" + path
}
