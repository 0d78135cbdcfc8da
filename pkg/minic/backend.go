package minic

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/leapstack-labs/leapsense/pkg/analysis"
)

// Name is the registry name of the minic backend.
const Name = "minic"

var (
	// ErrClosed is returned when a handle is used or closed after Close.
	ErrClosed = errors.New("minic: handle already closed")
	// ErrNoContents is returned when the main file is neither unsaved nor on disk.
	ErrNoContents = errors.New("minic: no contents for main file")
	// ErrOutOfRange is returned for an index past the end of a list.
	ErrOutOfRange = errors.New("minic: index out of range")
)

func init() {
	analysis.Register(Name, func(logger *slog.Logger) analysis.Backend {
		return New(logger)
	})
}

// Backend is a self-contained C front end implementing analysis.Backend.
type Backend struct {
	logger *slog.Logger
}

// New creates a minic backend.
func New(logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Backend{logger: logger.With("backend", Name)}
}

// NewIndex implements analysis.Backend.
func (b *Backend) NewIndex(opts analysis.IndexOptions) (analysis.Index, error) {
	ix := &Index{opts: opts, logger: b.logger}
	ix.ix = ix
	ix.live.Add(1)
	return ix, nil
}

// handle tracks the lifetime of one backend object against its Index.
type handle struct {
	ix     *Index
	closed atomic.Bool
}

func (h *handle) open(ix *Index) {
	h.ix = ix
	ix.live.Add(1)
}

// Close implements analysis.Handle.
func (h *handle) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	h.ix.live.Add(-1)
	return nil
}

func (h *handle) isClosed() bool {
	return h.closed.Load()
}

// Index owns units parsed with minic.
type Index struct {
	handle
	opts   analysis.IndexOptions
	logger *slog.Logger
	live   atomic.Int64
}

// LiveHandles returns the number of handles created by this index, itself
// included, that have not been closed.
func (x *Index) LiveHandles() int {
	return int(x.live.Load())
}

// Parse implements analysis.Index.
func (x *Index) Parse(req analysis.ParseRequest) (analysis.Unit, error) {
	if x.isClosed() {
		return nil, ErrClosed
	}
	opts, err := ParseArgs(req.Args)
	if err != nil {
		return nil, err
	}
	src, err := mainContents(req.Filename, req.Unsaved)
	if err != nil {
		return nil, err
	}
	if len(opts.Ignored) > 0 {
		x.logger.Debug("ignoring arguments", "args", strings.Join(opts.Ignored, " "))
	}

	u := &Unit{
		filename:  req.Filename,
		opts:      opts,
		parseOpts: req.Options,
		logger:    x.logger.With("file", req.Filename),
	}
	u.open(x)
	u.res = u.analyze(src, req.Unsaved)
	u.stats.Parses++
	x.display(u.res)
	return u, nil
}

func (x *Index) display(res *analysisResult) {
	if !x.opts.DisplayDiagnostics {
		return
	}
	for _, d := range res.diags {
		x.logger.Info(d.Format(analysis.DefaultFormatOptions))
	}
}

// mainContents returns the main file from the unsaved set, or from disk.
func mainContents(filename string, unsaved []analysis.UnsavedFile) (string, error) {
	want := filepath.Clean(filename)
	for _, f := range unsaved {
		if filepath.Clean(f.Filename) == want {
			return string(f.Contents), nil
		}
	}
	if data, ok := readHeader(filename); ok {
		return data, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNoContents, filename)
}

// UnitStats counts the work a unit has done.
type UnitStats struct {
	Parses         int
	Reparses       int
	Completions    int
	PreambleReuses int
}

// Unit is a parsed main file.
type Unit struct {
	handle
	filename  string
	opts      Options
	parseOpts analysis.ParseOption
	logger    *slog.Logger

	mu    sync.Mutex
	pre   *preamble
	res   *analysisResult
	stats UnitStats
}

type analysisResult struct {
	ctx   *unitContext
	src   string
	raw   []Diag // diagnostics with notes attached
	diags []Diag // flattened
}

// Stats returns a copy of the unit's counters.
func (u *Unit) Stats() UnitStats {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.stats
}

// analyze parses src, reusing the cached preamble when it is unchanged.
func (u *Unit) analyze(src string, unsaved []analysis.UnsavedFile) *analysisResult {
	var ctx *unitContext
	skip := 0
	if u.parseOpts.Has(analysis.ParsePrecompiledPreamble) {
		end := preambleEnd(src)
		if u.pre != nil && u.pre.key == preambleKey(src[:end], u.filename, unsaved) {
			u.stats.PreambleReuses++
		} else {
			u.pre = buildPreamble(u.filename, src, u.opts, unsaved)
		}
		ctx = u.pre.ctx.clone(unsaved)
		skip = u.pre.end
	} else {
		ctx = newUnitContext(u.filename, u.opts, unsaved)
	}

	p := newParser(src, u.filename, ctx, skip)
	p.ParseTranslationUnit()

	res := &analysisResult{ctx: ctx, src: src, raw: ctx.sink.diags}
	res.diags = flatten(res.raw)
	u.logger.Debug("analyzed unit", "diagnostics", len(res.diags), "preamble_bytes", skip)
	return res
}

// Reparse implements analysis.Unit.
func (u *Unit) Reparse(unsaved []analysis.UnsavedFile) error {
	if u.isClosed() {
		return ErrClosed
	}
	src, err := mainContents(u.filename, unsaved)
	if err != nil {
		return err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.res = u.analyze(src, unsaved)
	u.stats.Reparses++
	u.ix.display(u.res)
	return nil
}

// NumDiagnostics implements analysis.Unit.
func (u *Unit) NumDiagnostics() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.res == nil {
		return 0
	}
	return len(u.res.diags)
}

// Diagnostic implements analysis.Unit.
func (u *Unit) Diagnostic(i int) (analysis.RawDiagnostic, error) {
	if u.isClosed() {
		return nil, ErrClosed
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.res == nil || i < 0 || i >= len(u.res.diags) {
		return nil, fmt.Errorf("%w: diagnostic %d", ErrOutOfRange, i)
	}
	return newDiagHandle(u.ix, u.res.diags[i]), nil
}

// CompleteAt implements analysis.Unit. When the request carries no buffer for
// the main file the contents of the last parse are used.
func (u *Unit) CompleteAt(req analysis.CompletionRequest) (analysis.CompletionResults, error) {
	if u.isClosed() {
		return nil, ErrClosed
	}
	u.mu.Lock()
	defer u.mu.Unlock()

	var src string
	found := false
	want := filepath.Clean(u.filename)
	for _, f := range req.Unsaved {
		if filepath.Clean(f.Filename) == want {
			src, found = string(f.Contents), true
			break
		}
	}
	if !found {
		if u.res == nil {
			return nil, fmt.Errorf("%w: %s", ErrNoContents, u.filename)
		}
		src = u.res.src
	}

	res := u.analyze(src, req.Unsaved)
	u.stats.Completions++
	offset := offsetAt(src, req.Line, req.Column)

	results := &Results{
		candidates: complete(res, offset, req.Options),
		diags:      completionDiagnostics(res, offset),
	}
	results.open(u.ix)
	u.logger.Debug("completed", "line", req.Line, "column", req.Column, "results", len(results.candidates))
	return results, nil
}

// offsetAt converts a 1-based line and 0-based column into a byte offset,
// clamping both to the buffer.
func offsetAt(src string, line, column int) int {
	off := 0
	for l := 1; l < line; l++ {
		nl := strings.IndexByte(src[off:], '\n')
		if nl < 0 {
			return len(src)
		}
		off += nl + 1
	}
	end := len(src)
	if nl := strings.IndexByte(src[off:], '\n'); nl >= 0 {
		end = off + nl
	}
	return off + max(0, min(column, end-off))
}

// completionDiagnostics keeps the diagnostics that precede the cursor, plus
// everything reported in other files.
func completionDiagnostics(res *analysisResult, offset int) []Diag {
	var keep []Diag
	for _, d := range res.raw {
		if d.File != res.ctx.mainFile || d.Pos.Offset < offset {
			keep = append(keep, d)
		}
	}
	return flatten(keep)
}

// diagHandle is a RawDiagnostic.
type diagHandle struct {
	handle
	d Diag
}

func newDiagHandle(ix *Index, d Diag) *diagHandle {
	h := &diagHandle{d: d}
	h.open(ix)
	return h
}

func (h *diagHandle) Severity() analysis.Severity {
	return h.d.Severity
}

func (h *diagHandle) Location() (analysis.Location, bool) {
	if !h.d.Pos.IsValid() {
		return analysis.Location{}, false
	}
	return analysis.Location{Line: h.d.Pos.Line, Column: h.d.Pos.Column}, true
}

func (h *diagHandle) Format(opts analysis.FormatOption) (string, error) {
	if h.isClosed() {
		return "", ErrClosed
	}
	return h.d.Format(opts), nil
}

// Results is a completion result set.
type Results struct {
	handle
	candidates []completion
	diags      []Diag
}

func (r *Results) NumResults() int {
	return len(r.candidates)
}

func (r *Results) Result(i int) (analysis.RawCompletion, error) {
	if r.isClosed() {
		return nil, ErrClosed
	}
	if i < 0 || i >= len(r.candidates) {
		return nil, fmt.Errorf("%w: result %d", ErrOutOfRange, i)
	}
	h := &resultHandle{c: r.candidates[i]}
	h.open(r.ix)
	return h, nil
}

func (r *Results) NumDiagnostics() int {
	return len(r.diags)
}

func (r *Results) Diagnostic(i int) (analysis.RawDiagnostic, error) {
	if r.isClosed() {
		return nil, ErrClosed
	}
	if i < 0 || i >= len(r.diags) {
		return nil, fmt.Errorf("%w: diagnostic %d", ErrOutOfRange, i)
	}
	return newDiagHandle(r.ix, r.diags[i]), nil
}

// resultHandle is a RawCompletion.
type resultHandle struct {
	handle
	c completion
}

func (h *resultHandle) Kind() analysis.SymbolKind {
	return h.c.kind
}

func (h *resultHandle) NumChunks() int {
	return len(h.c.chunks)
}

func (h *resultHandle) ChunkKind(i int) analysis.ChunkKind {
	if i < 0 || i >= len(h.c.chunks) {
		return analysis.ChunkText
	}
	return h.c.chunks[i].kind
}

func (h *resultHandle) ChunkText(i int) (analysis.Text, error) {
	if h.isClosed() {
		return nil, ErrClosed
	}
	if i < 0 || i >= len(h.c.chunks) {
		return nil, fmt.Errorf("%w: chunk %d", ErrOutOfRange, i)
	}
	t := &textHandle{s: h.c.chunks[i].text}
	t.open(h.ix)
	return t, nil
}

type textHandle struct {
	handle
	s string
}

func (t *textHandle) String() string {
	return t.s
}
