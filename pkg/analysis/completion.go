package analysis

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// Position is a cursor position: 1-based line, 0-based byte column.
type Position struct {
	Line   int `json:"line" yaml:"line"`
	Column int `json:"column" yaml:"column"`
}

// Valid reports whether the position is in the accepted range.
func (p Position) Valid() bool {
	return p.Line >= 1 && p.Column >= 0
}

// String renders the position as "line:column".
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Chunk is one fragment of a completion string.
type Chunk struct {
	Kind ChunkKind `json:"kind" yaml:"kind"`
	Text string    `json:"text" yaml:"text"`
}

// Candidate is a completion proposal.
type Candidate struct {
	Kind        SymbolKind `json:"kind" yaml:"kind"`
	DisplayText string     `json:"text" yaml:"text"`
	Chunks      []Chunk    `json:"chunks,omitempty" yaml:"chunks,omitempty"`
}

// ResultType returns the text of the result-type chunk, if any.
func (c Candidate) ResultType() string {
	for _, ch := range c.Chunks {
		if ch.Kind == ChunkResultType {
			return ch.Text
		}
	}
	return ""
}

// Signature renders the chunks after the result type, e.g. "add(int a, int b)".
func (c Candidate) Signature() string {
	var b strings.Builder
	for _, ch := range c.Chunks {
		switch ch.Kind {
		case ChunkResultType, ChunkInformative:
			continue
		case ChunkComma:
			b.WriteString(", ")
		case ChunkHorizontalSpace:
			b.WriteString(" ")
		default:
			b.WriteString(ch.Text)
		}
	}
	if b.Len() == 0 {
		return c.DisplayText
	}
	return b.String()
}

// Snippet renders the candidate as an insertion snippet with numbered
// placeholders ("add(${1:int a}, ${2:int b})"). Candidates without
// placeholders render as plain text.
func (c Candidate) Snippet() string {
	var b strings.Builder
	n := 0
	for _, ch := range c.Chunks {
		switch ch.Kind {
		case ChunkResultType, ChunkInformative:
			continue
		case ChunkPlaceholder:
			n++
			fmt.Fprintf(&b, "${%d:%s}", n, escapeSnippet(ch.Text))
		case ChunkComma:
			b.WriteString(", ")
		case ChunkHorizontalSpace:
			b.WriteString(" ")
		default:
			b.WriteString(escapeSnippet(ch.Text))
		}
	}
	if b.Len() == 0 {
		return c.DisplayText
	}
	return b.String()
}

var snippetEscaper = strings.NewReplacer(`\`, `\\`, `$`, `\$`, `}`, `\}`)

func escapeSnippet(s string) string {
	return snippetEscaper.Replace(s)
}

// CompletionResult holds the outcome of one completion query.
type CompletionResult struct {
	Candidates []Candidate `json:"candidates" yaml:"candidates"`
	// Diagnostics were reported by the backend for the completion request.
	Diagnostics []Diagnostic `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
	// ParseDiagnostics is set when the query had to parse an Empty session first.
	ParseDiagnostics []Diagnostic `json:"parse_diagnostics,omitempty" yaml:"parse_diagnostics,omitempty"`
}

// CompleterOption configures a Completer.
type CompleterOption func(*Completer)

// WithPrefixRanking reorders candidates by how well they match prefix:
// exact matches, then case-sensitive prefix matches, then case-insensitive
// prefix matches, then the rest. Order within a group is preserved.
func WithPrefixRanking(prefix string) CompleterOption {
	return func(c *Completer) {
		c.prefix = prefix
		c.rank = true
	}
}

// WithLimit truncates the candidate list to n entries. n <= 0 disables the limit.
func WithLimit(n int) CompleterOption {
	return func(c *Completer) {
		c.limit = n
	}
}

// WithoutDedupe keeps duplicate (kind, text) candidates.
func WithoutDedupe() CompleterOption {
	return func(c *Completer) {
		c.dedupe = false
	}
}

// WithCompleteOptions sets the flags passed to the backend completion request.
func WithCompleteOptions(opts CompleteOption) CompleterOption {
	return func(c *Completer) {
		c.options = opts
	}
}

// WithCompleterLogger sets a logger for the completer. When unset the
// session's logger is used.
func WithCompleterLogger(logger *slog.Logger) CompleterOption {
	return func(c *Completer) {
		c.logger = logger
	}
}

// Completer runs completion queries against a Session.
type Completer struct {
	options CompleteOption
	dedupe  bool
	rank    bool
	prefix  string
	limit   int
	logger  *slog.Logger
}

var defaultCompleter = NewCompleter()

// NewCompleter creates a Completer. By default candidates keep backend order
// and duplicates are removed.
func NewCompleter(opts ...CompleterOption) *Completer {
	c := &Completer{
		options: DefaultCompleteOptions,
		dedupe:  true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete runs one completion request at pos using snap as the in-memory
// buffer. An Empty session is parsed first. A Parsed session is not
// reparsed; the backend sees snap through the unsaved override.
func (c *Completer) Complete(s *Session, snap Snapshot, pos Position) (*CompletionResult, error) {
	if s == nil {
		return nil, newError("complete", snap.VirtualName(), ErrCompletionUnavailable, ErrNoUnit)
	}
	if s.closed {
		return nil, newError("complete", snap.VirtualName(), ErrSessionClosed, nil)
	}
	if !pos.Valid() {
		return nil, newError("complete", snap.VirtualName(), ErrInvalidPosition,
			fmt.Errorf("line %d, column %d", pos.Line, pos.Column))
	}
	logger := c.logger
	if logger == nil {
		logger = s.logger
	}

	out := &CompletionResult{}
	if s.unit == nil {
		diags, err := s.EnsureParsed(snap)
		if err != nil {
			return nil, newError("complete", snap.VirtualName(), ErrCompletionUnavailable, err)
		}
		out.ParseDiagnostics = diags
	}

	s.stats.Completions++
	logger.Debug("completing", "line", pos.Line, "column", pos.Column)

	results, err := s.unit.CompleteAt(CompletionRequest{
		Filename: snap.VirtualName(),
		Line:     pos.Line,
		Column:   pos.Column,
		Unsaved:  []UnsavedFile{snap.Unsaved()},
		Options:  c.options,
	})
	if err != nil || results == nil {
		if results != nil {
			_ = results.Close()
		}
		logger.Warn("no complete results", "error", err)
		return nil, newError("complete", snap.VirtualName(), ErrCompletionUnavailable, err)
	}
	defer func() { _ = results.Close() }()

	n := results.NumResults()
	candidates := make([]Candidate, 0, n)
	for i := 0; i < n; i++ {
		cand, ok := extractCandidate(results, i, logger)
		if ok {
			candidates = append(candidates, cand)
		}
	}
	out.Diagnostics = collectDiagnostics(results, SourceComplete, s.opts.format, logger)

	if c.dedupe {
		candidates = dedupeCandidates(candidates)
	}
	if c.rank {
		candidates = rankByPrefix(candidates, c.prefix)
	}
	if c.limit > 0 && len(candidates) > c.limit {
		candidates = candidates[:c.limit]
	}
	out.Candidates = candidates
	return out, nil
}

// extractCandidate reads result i and releases its handles. The display text
// is the first non-empty typed-text chunk; results without one are skipped.
func extractCandidate(results CompletionResults, i int, logger *slog.Logger) (cand Candidate, ok bool) {
	raw, err := results.Result(i)
	if err != nil || raw == nil {
		logger.Debug("skipping unreadable completion result", "index", i, "error", err)
		return Candidate{}, false
	}
	defer func() { _ = raw.Close() }()
	defer func() {
		if r := recover(); r != nil {
			logger.Debug("skipping malformed completion result", "index", i, "panic", r)
			cand, ok = Candidate{}, false
		}
	}()

	cand.Kind = raw.Kind()
	typed := false
	for j := 0; j < raw.NumChunks(); j++ {
		kind := raw.ChunkKind(j)
		text, err := chunkText(raw, j)
		if err != nil {
			logger.Debug("skipping unreadable completion chunk", "index", i, "chunk", j, "error", err)
			continue
		}
		cand.Chunks = append(cand.Chunks, Chunk{Kind: kind, Text: text})
		if kind == ChunkTypedText && !typed && text != "" {
			cand.DisplayText = text
			typed = true
		}
	}
	return cand, typed
}

func chunkText(raw RawCompletion, j int) (string, error) {
	t, err := raw.ChunkText(j)
	if err != nil {
		if t != nil {
			_ = t.Close()
		}
		return "", err
	}
	if t == nil {
		return "", nil
	}
	s := t.String()
	if err := t.Close(); err != nil {
		return s, err
	}
	return s, nil
}

type candidateKey struct {
	kind SymbolKind
	text string
}

func dedupeCandidates(in []Candidate) []Candidate {
	seen := make(map[candidateKey]struct{}, len(in))
	out := in[:0]
	for _, c := range in {
		k := candidateKey{c.Kind, c.DisplayText}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, c)
	}
	return out
}

func rankByPrefix(in []Candidate, prefix string) []Candidate {
	if prefix == "" {
		return in
	}
	folder := cases.Fold()
	folded := folder.String(prefix)
	group := func(c Candidate) int {
		switch {
		case c.DisplayText == prefix:
			return 0
		case strings.HasPrefix(c.DisplayText, prefix):
			return 1
		case strings.HasPrefix(folder.String(c.DisplayText), folded):
			return 2
		default:
			return 3
		}
	}
	sort.SliceStable(in, func(i, j int) bool {
		return group(in[i]) < group(in[j])
	})
	return in
}
