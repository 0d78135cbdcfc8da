package analysis

import (
	"fmt"
	"log/slog"
	"strings"
)

// Severity indicates the importance of a diagnostic. Values are ordered from
// least to most severe.
type Severity int

// Severity levels.
const (
	SeverityNote Severity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityNote:
		return "note"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// ParseSeverity converts a string to a Severity value.
// Returns the severity and true if valid, or SeverityNote and false if invalid.
func ParseSeverity(s string) (Severity, bool) {
	switch strings.ToLower(s) {
	case "note":
		return SeverityNote, true
	case "warning":
		return SeverityWarning, true
	case "error":
		return SeverityError, true
	case "fatal":
		return SeverityFatal, true
	default:
		return SeverityNote, false
	}
}

func (s Severity) valid() bool {
	return s >= SeverityNote && s <= SeverityFatal
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	v, ok := ParseSeverity(string(text))
	if !ok {
		return fmt.Errorf("unknown severity %q", text)
	}
	*s = v
	return nil
}

// Source tells parse-time diagnostics apart from completion-time ones.
type Source int

// Diagnostic sources.
const (
	SourceCompile Source = iota
	SourceComplete
)

// String returns the source tag.
func (s Source) String() string {
	if s == SourceComplete {
		return "complete"
	}
	return "compile"
}

// MarshalText implements encoding.TextMarshaler.
func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Source) UnmarshalText(text []byte) error {
	switch string(text) {
	case "compile":
		*s = SourceCompile
	case "complete":
		*s = SourceComplete
	default:
		return fmt.Errorf("unknown diagnostic source %q", text)
	}
	return nil
}

// Location is a 1-based line and column.
type Location struct {
	Line   int `json:"line" yaml:"line"`
	Column int `json:"column" yaml:"column"`
}

// Diagnostic is a normalized, plain-data diagnostic record.
type Diagnostic struct {
	Severity Severity  `json:"severity" yaml:"severity"`
	Message  string    `json:"message" yaml:"message"`
	Location *Location `json:"location,omitempty" yaml:"location,omitempty"`
	Source   Source    `json:"source" yaml:"source"`
}

// String renders the record the way it is logged: "<source> diag: <message>".
func (d Diagnostic) String() string {
	return d.Source.String() + " diag: " + d.Message
}

// Normalize converts a backend diagnostic into a Diagnostic and releases the
// handle. It never fails: a diagnostic that cannot be read is reported as a
// note with a best-effort message.
func Normalize(raw RawDiagnostic, source Source, opts FormatOption) (d Diagnostic) {
	d = Diagnostic{Severity: SeverityNote, Source: source}
	if raw == nil {
		d.Message = "malformed diagnostic: nil handle"
		return d
	}
	defer func() { _ = raw.Close() }()
	defer func() {
		if r := recover(); r != nil {
			d = Diagnostic{
				Severity: SeverityNote,
				Message:  fmt.Sprintf("malformed diagnostic: %v", r),
				Source:   source,
			}
		}
	}()

	if loc, ok := raw.Location(); ok {
		d.Location = &loc
	}

	msg, err := raw.Format(opts)
	if err != nil {
		d.Message = fmt.Sprintf("malformed diagnostic: %v", err)
		return d
	}
	d.Message = msg

	sev := raw.Severity()
	if !sev.valid() {
		d.Message = fmt.Sprintf("%s (unknown severity %d)", msg, int(sev))
		return d
	}
	d.Severity = sev
	return d
}

// diagnosticSource is the part of Unit and CompletionResults that exposes diagnostics.
type diagnosticSource interface {
	NumDiagnostics() int
	Diagnostic(i int) (RawDiagnostic, error)
}

// collectDiagnostics normalizes every diagnostic of src in backend order.
// A diagnostic that cannot be fetched becomes a note; the rest of the batch
// is still reported.
func collectDiagnostics(src diagnosticSource, source Source, opts FormatOption, logger *slog.Logger) []Diagnostic {
	n := src.NumDiagnostics()
	diags := make([]Diagnostic, 0, n)
	for i := 0; i < n; i++ {
		raw, err := src.Diagnostic(i)
		var d Diagnostic
		if err != nil {
			d = Diagnostic{
				Severity: SeverityNote,
				Message:  fmt.Sprintf("diagnostic %d unavailable: %v", i, err),
				Source:   source,
			}
		} else {
			d = Normalize(raw, source, opts)
		}
		logger.Debug(d.String(), "severity", d.Severity.String())
		diags = append(diags, d)
	}
	return diags
}

// MaxSeverity returns the highest severity in diags and false when diags is empty.
func MaxSeverity(diags []Diagnostic) (Severity, bool) {
	if len(diags) == 0 {
		return SeverityNote, false
	}
	highest := diags[0].Severity
	for _, d := range diags[1:] {
		if d.Severity > highest {
			highest = d.Severity
		}
	}
	return highest, true
}

// FilterSeverity returns the diagnostics at or above threshold, in order.
func FilterSeverity(diags []Diagnostic, threshold Severity) []Diagnostic {
	var out []Diagnostic
	for _, d := range diags {
		if d.Severity >= threshold {
			out = append(out, d)
		}
	}
	return out
}

// CountBySeverity counts diagnostics per severity.
func CountBySeverity(diags []Diagnostic) map[Severity]int {
	counts := make(map[Severity]int, 4)
	for _, d := range diags {
		counts[d.Severity]++
	}
	return counts
}
