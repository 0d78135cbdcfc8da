package analysis

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// State is the lifecycle state of a Session.
type State int

// Session states.
const (
	// StateEmpty means no unit exists: never parsed, or the last reparse failed.
	StateEmpty State = iota
	// StateParsed means the session owns a live unit.
	StateParsed
	// StateClosed means the session was closed and rejects further calls.
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateParsed:
		return "parsed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Flags is the compile configuration supplied once at session construction.
// It is passed to the backend unchanged.
type Flags struct {
	IncludePaths []string
	CompileFlags []string
}

// Args renders the flags as backend arguments: one -I per include path,
// followed by the compile flags, in order.
func (f Flags) Args() []string {
	args := make([]string, 0, len(f.IncludePaths)+len(f.CompileFlags))
	for _, p := range f.IncludePaths {
		args = append(args, "-I"+p)
	}
	return append(args, f.CompileFlags...)
}

func (f Flags) clone() Flags {
	return Flags{
		IncludePaths: append([]string(nil), f.IncludePaths...),
		CompileFlags: append([]string(nil), f.CompileFlags...),
	}
}

// Stats counts session activity.
type Stats struct {
	FullParses  int
	Reparses    int
	Failures    int
	Completions int
}

// Option configures a Session.
type Option func(*sessionOptions)

type sessionOptions struct {
	logger       *slog.Logger
	index        IndexOptions
	parseOptions ParseOption
	format       FormatOption
}

// WithLogger sets the session logger. A nil logger discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(o *sessionOptions) {
		o.logger = logger
	}
}

// WithParseOptions overrides the flags used for full parses.
func WithParseOptions(opts ParseOption) Option {
	return func(o *sessionOptions) {
		o.parseOptions = opts
	}
}

// WithFormatOptions overrides how diagnostics are rendered to text.
func WithFormatOptions(opts FormatOption) Option {
	return func(o *sessionOptions) {
		o.format = opts
	}
}

// WithIndexOptions sets the options used to create the backend index.
func WithIndexOptions(opts IndexOptions) Option {
	return func(o *sessionOptions) {
		o.index = opts
	}
}

// Session owns the backend index and at most one live unit for a single
// logical source buffer. It is not safe for concurrent use.
type Session struct {
	id     string
	index  Index
	unit   Unit
	flags  Flags
	args   []string
	opts   sessionOptions
	stats  Stats
	closed bool
	logger *slog.Logger
}

// NewSession creates the backend index and returns an Empty session.
func NewSession(backend Backend, flags Flags, opts ...Option) (*Session, error) {
	if backend == nil {
		return nil, fmt.Errorf("analysis: nil backend")
	}
	o := sessionOptions{
		parseOptions: DefaultParseOptions,
		format:       DefaultFormatOptions,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}

	index, err := backend.NewIndex(o.index)
	if err != nil {
		return nil, fmt.Errorf("analysis: create index: %w", err)
	}

	id := uuid.NewString()
	flags = flags.clone()
	return &Session{
		id:     id,
		index:  index,
		flags:  flags,
		args:   flags.Args(),
		opts:   o,
		logger: o.logger.With("session", id),
	}, nil
}

// ID returns the unique session identifier used in logs.
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	switch {
	case s.closed:
		return StateClosed
	case s.unit != nil:
		return StateParsed
	default:
		return StateEmpty
	}
}

// Flags returns a copy of the session's compile configuration.
func (s *Session) Flags() Flags {
	return s.flags.clone()
}

// Stats returns activity counters.
func (s *Session) Stats() Stats {
	return s.stats
}

// EnsureParsed brings the unit in line with snap. Without a unit it performs
// a full parse; with one it performs an incremental reparse. On success the
// unit's diagnostics are returned in backend order.
func (s *Session) EnsureParsed(snap Snapshot) ([]Diagnostic, error) {
	if s.closed {
		return nil, newError("parse", snap.VirtualName(), ErrSessionClosed, nil)
	}
	if s.unit == nil {
		return s.parse(snap)
	}
	return s.reparse(snap)
}

// Reparse runs the incremental path only. On an Empty session it fails with
// ErrReparseFailed wrapping ErrNoUnit and leaves the backend untouched.
func (s *Session) Reparse(snap Snapshot) ([]Diagnostic, error) {
	if s.closed {
		return nil, newError("reparse", snap.VirtualName(), ErrSessionClosed, nil)
	}
	if s.unit == nil {
		return nil, newError("reparse", snap.VirtualName(), ErrReparseFailed, ErrNoUnit)
	}
	return s.reparse(snap)
}

func (s *Session) parse(snap Snapshot) ([]Diagnostic, error) {
	s.stats.FullParses++
	unit, err := s.index.Parse(ParseRequest{
		Filename: snap.VirtualName(),
		Args:     append([]string(nil), s.args...),
		Unsaved:  []UnsavedFile{snap.Unsaved()},
		Options:  s.opts.parseOptions,
	})
	if err != nil || unit == nil {
		if unit != nil {
			_ = unit.Close()
		}
		s.stats.Failures++
		s.logger.Warn("failed to parse translation unit", "file", snap.VirtualName(), "error", err)
		return nil, newError("parse", snap.VirtualName(), ErrParseFailed, err)
	}
	s.unit = unit
	s.logger.Debug("parsed translation unit", "file", snap.VirtualName(), "bytes", snap.Len())
	return s.diagnostics(), nil
}

func (s *Session) reparse(snap Snapshot) ([]Diagnostic, error) {
	s.stats.Reparses++
	if err := s.unit.Reparse([]UnsavedFile{snap.Unsaved()}); err != nil {
		s.stats.Failures++
		s.release()
		s.logger.Warn("failed to reparse translation unit", "file", snap.VirtualName(), "error", err)
		return nil, newError("reparse", snap.VirtualName(), ErrReparseFailed, err)
	}
	s.logger.Debug("reparsed translation unit", "file", snap.VirtualName(), "bytes", snap.Len())
	return s.diagnostics(), nil
}

func (s *Session) diagnostics() []Diagnostic {
	diags := collectDiagnostics(s.unit, SourceCompile, s.opts.format, s.logger)
	if len(diags) == 0 {
		s.logger.Debug("all ok")
	}
	return diags
}

// Invalidate releases the unit. The next EnsureParsed performs a full parse.
func (s *Session) Invalidate() {
	s.release()
}

func (s *Session) release() {
	if s.unit == nil {
		return
	}
	if err := s.unit.Close(); err != nil {
		s.logger.Warn("failed to dispose translation unit", "error", err)
	}
	s.unit = nil
}

// Close releases the unit and the backend index. Further calls fail with
// ErrSessionClosed. Closing twice is a no-op.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.release()
	s.closed = true
	if err := s.index.Close(); err != nil {
		return fmt.Errorf("analysis: dispose index: %w", err)
	}
	return nil
}

// Complete runs a completion query with the default Completer.
func (s *Session) Complete(snap Snapshot, pos Position) (*CompletionResult, error) {
	return defaultCompleter.Complete(s, snap, pos)
}
