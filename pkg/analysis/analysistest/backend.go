// Package analysistest provides a scripted, in-memory analysis.Backend for
// tests. Every handle it hands out is tracked so tests can assert that
// nothing leaks and nothing is closed twice, and each backend operation can
// be made to fail on demand.
package analysistest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/leapstack-labs/leapsense/pkg/analysis"
)

// Diag scripts one backend diagnostic.
type Diag struct {
	Severity   analysis.Severity
	Message    string
	Line       int
	Column     int
	NoLocation bool

	// FetchErr makes Diagnostic(i) fail for this entry.
	FetchErr error
	// FormatErr makes Format fail.
	FormatErr error
	// Panic makes Format panic.
	Panic bool
}

// Chunk scripts one completion chunk.
type Chunk struct {
	Kind analysis.ChunkKind
	Text string
	// Err makes ChunkText fail for this chunk.
	Err error
	// OpenOnErr makes a failing ChunkText still return an open text handle.
	OpenOnErr bool
}

// Result scripts one completion result.
type Result struct {
	Kind   analysis.SymbolKind
	Chunks []Chunk

	// FetchErr makes Result(i) fail for this entry.
	FetchErr error
	// Panic makes Kind panic.
	Panic bool
}

// Typed returns a result with a single typed-text chunk.
func Typed(kind analysis.SymbolKind, text string) Result {
	return Result{Kind: kind, Chunks: []Chunk{{Kind: analysis.ChunkTypedText, Text: text}}}
}

// Backend is a scripted analysis.Backend. Set the exported fields before use;
// they are read when the corresponding operation runs.
type Backend struct {
	// IndexErr makes NewIndex fail.
	IndexErr error
	// ParseErr makes Index.Parse fail.
	ParseErr error
	// NilUnit makes Index.Parse return (nil, nil).
	NilUnit bool
	// ReparseErr makes Unit.Reparse fail.
	ReparseErr error
	// CompleteErr makes Unit.CompleteAt fail.
	CompleteErr error
	// NilResults makes Unit.CompleteAt return (nil, nil).
	NilResults bool

	// Diags are reported by the unit after every successful parse or reparse.
	Diags []Diag
	// DiagnoseFunc, when set, computes unit diagnostics from the main buffer
	// and takes precedence over Diags.
	DiagnoseFunc func(contents string) []Diag
	// Results are returned by every completion request.
	Results []Result
	// CompletionDiags are attached to every completion result set.
	CompletionDiags []Diag

	mu           sync.Mutex
	live         map[string]int
	doubleCloses int
	useAfterFree int
	parses       int
	reparses     int
	completions  int
	lastParse    analysis.ParseRequest
	lastReparse  []analysis.UnsavedFile
	lastComplete analysis.CompletionRequest
}

// New returns an empty scripted backend.
func New() *Backend {
	return &Backend{}
}

var _ analysis.Backend = (*Backend)(nil)

// NewIndex implements analysis.Backend.
func (b *Backend) NewIndex(_ analysis.IndexOptions) (analysis.Index, error) {
	if b.IndexErr != nil {
		return nil, b.IndexErr
	}
	return &index{handle: b.open("index")}, nil
}

// Live returns the number of handles currently open.
func (b *Backend) Live() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.live {
		n += c
	}
	return n
}

// LiveOf returns the number of open handles of one kind: "index", "unit",
// "diagnostic", "results", "result" or "text".
func (b *Backend) LiveOf(kind string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.live[kind]
}

// DoubleCloses returns how many times a handle was closed more than once.
func (b *Backend) DoubleCloses() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.doubleCloses
}

// UseAfterClose returns how many calls were made on closed handles.
func (b *Backend) UseAfterClose() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.useAfterFree
}

// Parses returns the number of full parse requests.
func (b *Backend) Parses() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.parses
}

// Reparses returns the number of reparse requests.
func (b *Backend) Reparses() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reparses
}

// Completions returns the number of completion requests.
func (b *Backend) Completions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.completions
}

// LastParse returns the most recent parse request.
func (b *Backend) LastParse() analysis.ParseRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastParse
}

// LastReparse returns the unsaved files of the most recent reparse.
func (b *Backend) LastReparse() []analysis.UnsavedFile {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastReparse
}

// LastCompletion returns the most recent completion request.
func (b *Backend) LastCompletion() analysis.CompletionRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastComplete
}

// ErrDoubleClose is returned when a handle is closed twice.
var ErrDoubleClose = errors.New("analysistest: handle closed twice")

// ErrClosed is returned by operations on a closed handle.
var ErrClosed = errors.New("analysistest: use of closed handle")

type handle struct {
	b      *Backend
	kind   string
	closed bool
}

func (b *Backend) open(kind string) *handle {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.live == nil {
		b.live = make(map[string]int)
	}
	b.live[kind]++
	return &handle{b: b, kind: kind}
}

func (h *handle) Close() error {
	h.b.mu.Lock()
	defer h.b.mu.Unlock()
	if h.closed {
		h.b.doubleCloses++
		return fmt.Errorf("%w: %s", ErrDoubleClose, h.kind)
	}
	h.closed = true
	h.b.live[h.kind]--
	return nil
}

// check records and reports a call on a closed handle.
func (h *handle) check() error {
	h.b.mu.Lock()
	defer h.b.mu.Unlock()
	if h.closed {
		h.b.useAfterFree++
		return fmt.Errorf("%w: %s", ErrClosed, h.kind)
	}
	return nil
}

type index struct {
	*handle
}

func (x *index) Parse(req analysis.ParseRequest) (analysis.Unit, error) {
	if err := x.check(); err != nil {
		return nil, err
	}
	b := x.b
	b.mu.Lock()
	b.parses++
	b.lastParse = req
	b.mu.Unlock()

	if b.ParseErr != nil {
		return nil, b.ParseErr
	}
	if b.NilUnit {
		return nil, nil
	}
	u := &unit{handle: b.open("unit"), filename: req.Filename}
	u.load(req.Unsaved)
	return u, nil
}

type unit struct {
	*handle
	filename string
	diags    []Diag
}

func (u *unit) load(unsaved []analysis.UnsavedFile) {
	if u.b.DiagnoseFunc != nil {
		var contents string
		for _, f := range unsaved {
			if f.Filename == u.filename {
				contents = string(f.Contents)
			}
		}
		u.diags = u.b.DiagnoseFunc(contents)
		return
	}
	u.diags = append([]Diag(nil), u.b.Diags...)
}

func (u *unit) Reparse(unsaved []analysis.UnsavedFile) error {
	if err := u.check(); err != nil {
		return err
	}
	b := u.b
	b.mu.Lock()
	b.reparses++
	b.lastReparse = unsaved
	b.mu.Unlock()

	if b.ReparseErr != nil {
		return b.ReparseErr
	}
	u.load(unsaved)
	return nil
}

func (u *unit) NumDiagnostics() int {
	return len(u.diags)
}

func (u *unit) Diagnostic(i int) (analysis.RawDiagnostic, error) {
	return openDiag(u.b, u.filename, u.diags, i)
}

func (u *unit) CompleteAt(req analysis.CompletionRequest) (analysis.CompletionResults, error) {
	if err := u.check(); err != nil {
		return nil, err
	}
	b := u.b
	b.mu.Lock()
	b.completions++
	b.lastComplete = req
	b.mu.Unlock()

	if b.CompleteErr != nil {
		return nil, b.CompleteErr
	}
	if b.NilResults {
		return nil, nil
	}
	return &results{
		handle:   b.open("results"),
		filename: u.filename,
		results:  append([]Result(nil), b.Results...),
		diags:    append([]Diag(nil), b.CompletionDiags...),
	}, nil
}

func openDiag(b *Backend, filename string, diags []Diag, i int) (analysis.RawDiagnostic, error) {
	if i < 0 || i >= len(diags) {
		return nil, fmt.Errorf("analysistest: diagnostic %d out of range", i)
	}
	d := diags[i]
	if d.FetchErr != nil {
		return nil, d.FetchErr
	}
	return &diag{handle: b.open("diagnostic"), filename: filename, d: d}, nil
}

type diag struct {
	*handle
	filename string
	d        Diag
}

func (d *diag) Severity() analysis.Severity {
	return d.d.Severity
}

func (d *diag) Location() (analysis.Location, bool) {
	if d.d.NoLocation {
		return analysis.Location{}, false
	}
	return analysis.Location{Line: d.d.Line, Column: d.d.Column}, true
}

// Format renders "file:line:col: severity: message" in the usual compiler layout.
func (d *diag) Format(opts analysis.FormatOption) (string, error) {
	if err := d.check(); err != nil {
		return "", err
	}
	if d.d.Panic {
		panic("analysistest: scripted diagnostic panic")
	}
	if d.d.FormatErr != nil {
		return "", d.d.FormatErr
	}
	prefix := ""
	if opts.Has(analysis.FormatSourceLocation) && !d.d.NoLocation {
		prefix = fmt.Sprintf("%s:%d:", d.filename, d.d.Line)
		if opts.Has(analysis.FormatColumn) {
			prefix += fmt.Sprintf("%d:", d.d.Column)
		}
		prefix += " "
	}
	return fmt.Sprintf("%s%s: %s", prefix, d.d.Severity, d.d.Message), nil
}

type results struct {
	*handle
	filename string
	results  []Result
	diags    []Diag
}

func (r *results) NumResults() int {
	return len(r.results)
}

func (r *results) Result(i int) (analysis.RawCompletion, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	if i < 0 || i >= len(r.results) {
		return nil, fmt.Errorf("analysistest: result %d out of range", i)
	}
	res := r.results[i]
	if res.FetchErr != nil {
		return nil, res.FetchErr
	}
	return &completion{handle: r.b.open("result"), r: res}, nil
}

func (r *results) NumDiagnostics() int {
	return len(r.diags)
}

func (r *results) Diagnostic(i int) (analysis.RawDiagnostic, error) {
	return openDiag(r.b, r.filename, r.diags, i)
}

type completion struct {
	*handle
	r Result
}

func (c *completion) Kind() analysis.SymbolKind {
	if c.r.Panic {
		panic("analysistest: scripted completion panic")
	}
	return c.r.Kind
}

func (c *completion) NumChunks() int {
	return len(c.r.Chunks)
}

func (c *completion) ChunkKind(i int) analysis.ChunkKind {
	return c.r.Chunks[i].Kind
}

func (c *completion) ChunkText(i int) (analysis.Text, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	ch := c.r.Chunks[i]
	if ch.Err != nil {
		if ch.OpenOnErr {
			return &text{handle: c.b.open("text"), s: ch.Text}, ch.Err
		}
		return nil, ch.Err
	}
	return &text{handle: c.b.open("text"), s: ch.Text}, nil
}

type text struct {
	*handle
	s string
}

func (t *text) String() string {
	return t.s
}
