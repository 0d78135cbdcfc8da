package analysis

import "fmt"

// Backend is the compiler front end that produces units, diagnostics and
// completion results. Implementations register themselves with Register.
type Backend interface {
	// NewIndex creates an analysis context. The caller closes it.
	NewIndex(opts IndexOptions) (Index, error)
}

// Handle is a backend-owned resource. Close releases it; closing twice is
// an error reported by the backend.
type Handle interface {
	Close() error
}

// Index is an analysis context that owns parsed units.
type Index interface {
	Handle

	// Parse builds a unit from unsaved buffers. A nil Unit with a nil error
	// is treated as a failed parse.
	Parse(req ParseRequest) (Unit, error)
}

// Unit is the backend's parsed representation of one source buffer plus its
// include context.
type Unit interface {
	Handle

	// Reparse refreshes the unit from the supplied buffers, reusing any
	// cached preamble state. A non-nil error means the unit is no longer valid.
	Reparse(unsaved []UnsavedFile) error

	NumDiagnostics() int
	Diagnostic(i int) (RawDiagnostic, error)

	// CompleteAt runs code completion at a 1-based line and 0-based column.
	CompleteAt(req CompletionRequest) (CompletionResults, error)
}

// RawDiagnostic is a backend diagnostic handle.
type RawDiagnostic interface {
	Handle

	Severity() Severity
	// Location returns the 1-based line and column, if the diagnostic has one.
	Location() (Location, bool)
	Format(opts FormatOption) (string, error)
}

// CompletionResults is the transient result set of one completion request.
type CompletionResults interface {
	Handle

	NumResults() int
	Result(i int) (RawCompletion, error)

	NumDiagnostics() int
	Diagnostic(i int) (RawDiagnostic, error)
}

// RawCompletion is a single completion result: a symbol kind and an ordered
// chunk sequence.
type RawCompletion interface {
	Handle

	Kind() SymbolKind
	NumChunks() int
	ChunkKind(i int) ChunkKind
	ChunkText(i int) (Text, error)
}

// Text is a backend-owned string.
type Text interface {
	Handle

	String() string
}

// UnsavedFile supplies in-memory contents for Filename in place of disk I/O.
type UnsavedFile struct {
	Filename string
	Contents []byte
}

// IndexOptions configures a new Index.
type IndexOptions struct {
	// ExcludeDeclarationsFromPCH skips declarations from precompiled headers.
	ExcludeDeclarationsFromPCH bool
	// DisplayDiagnostics asks the backend to print diagnostics itself.
	DisplayDiagnostics bool
}

// ParseOption is a bit set of parse flags.
type ParseOption uint

// Parse flags understood by backends.
const (
	ParsePrecompiledPreamble ParseOption = 1 << iota
	ParseCacheCompletionResults
	ParseIncomplete

	// DefaultParseOptions is used for the first full parse of a session.
	DefaultParseOptions = ParsePrecompiledPreamble | ParseCacheCompletionResults
)

// Has reports whether all bits of o are set.
func (p ParseOption) Has(o ParseOption) bool {
	return p&o == o
}

// ParseRequest describes a full parse.
type ParseRequest struct {
	Filename string
	Args     []string
	Unsaved  []UnsavedFile
	Options  ParseOption
}

// CompleteOption is a bit set of completion flags.
type CompleteOption uint

// Completion flags understood by backends.
const (
	CompleteIncludeMacros CompleteOption = 1 << iota
	CompleteIncludeCodePatterns
	CompleteIncludeBriefComments

	// DefaultCompleteOptions mirrors the usual front-end defaults.
	DefaultCompleteOptions = CompleteIncludeMacros
)

// Has reports whether all bits of o are set.
func (c CompleteOption) Has(o CompleteOption) bool {
	return c&o == o
}

// CompletionRequest describes a completion query.
type CompletionRequest struct {
	Filename string
	Line     int
	Column   int
	Unsaved  []UnsavedFile
	Options  CompleteOption
}

// FormatOption controls how a diagnostic is rendered to text.
type FormatOption uint

// Diagnostic formatting flags.
const (
	FormatSourceLocation FormatOption = 1 << iota
	FormatColumn
	FormatSourceRanges
	FormatOptionName

	// DefaultFormatOptions includes the source location and column.
	DefaultFormatOptions = FormatSourceLocation | FormatColumn
)

// Has reports whether all bits of o are set.
func (f FormatOption) Has(o FormatOption) bool {
	return f&o == o
}

// SymbolKind classifies the symbol behind a completion result.
type SymbolKind int

// Symbol kinds.
const (
	KindUnknown SymbolKind = iota
	KindVariable
	KindParameter
	KindFunction
	KindField
	KindTypedef
	KindStruct
	KindEnum
	KindEnumConstant
	KindMacro
	KindKeyword
	KindNotImplemented
)

var symbolKindNames = map[SymbolKind]string{
	KindUnknown:        "unknown",
	KindVariable:       "variable",
	KindParameter:      "parameter",
	KindFunction:       "function",
	KindField:          "field",
	KindTypedef:        "typedef",
	KindStruct:         "struct",
	KindEnum:           "enum",
	KindEnumConstant:   "enum-constant",
	KindMacro:          "macro",
	KindKeyword:        "keyword",
	KindNotImplemented: "not-implemented",
}

// String returns the kind name.
func (k SymbolKind) String() string {
	if name, ok := symbolKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (k SymbolKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *SymbolKind) UnmarshalText(text []byte) error {
	for kind, name := range symbolKindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown symbol kind %q", text)
}

// ChunkKind labels one fragment of a completion string.
type ChunkKind int

// Chunk kinds.
const (
	ChunkTypedText ChunkKind = iota
	ChunkText
	ChunkPlaceholder
	ChunkInformative
	ChunkCurrentParameter
	ChunkLeftParen
	ChunkRightParen
	ChunkLeftBracket
	ChunkRightBracket
	ChunkLeftBrace
	ChunkRightBrace
	ChunkComma
	ChunkResultType
	ChunkColon
	ChunkSemiColon
	ChunkEqual
	ChunkHorizontalSpace
	ChunkVerticalSpace
	ChunkOptional
)

var chunkKindNames = [...]string{
	ChunkTypedText:        "typed-text",
	ChunkText:             "text",
	ChunkPlaceholder:      "placeholder",
	ChunkInformative:      "informative",
	ChunkCurrentParameter: "current-parameter",
	ChunkLeftParen:        "left-paren",
	ChunkRightParen:       "right-paren",
	ChunkLeftBracket:      "left-bracket",
	ChunkRightBracket:     "right-bracket",
	ChunkLeftBrace:        "left-brace",
	ChunkRightBrace:       "right-brace",
	ChunkComma:            "comma",
	ChunkResultType:       "result-type",
	ChunkColon:            "colon",
	ChunkSemiColon:        "semicolon",
	ChunkEqual:            "equal",
	ChunkHorizontalSpace:  "horizontal-space",
	ChunkVerticalSpace:    "vertical-space",
	ChunkOptional:         "optional",
}

// String returns the chunk kind name.
func (k ChunkKind) String() string {
	if k >= 0 && int(k) < len(chunkKindNames) {
		return chunkKindNames[k]
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (k ChunkKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ChunkKind) UnmarshalText(text []byte) error {
	for i, name := range chunkKindNames {
		if name == string(text) {
			*k = ChunkKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown chunk kind %q", text)
}
