package minic

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapsense/pkg/analysis"
)

// Diag is a diagnostic produced by minic.
type Diag struct {
	Severity analysis.Severity
	Message  string
	File     string
	Pos      Pos
	End      Pos    // optional end of the offending range
	Option   string // warning flag that controls the diagnostic, e.g. "-Wunused-variable"

	// Notes attached to this diagnostic, reported right after it.
	Notes []Diag
}

// Format renders the diagnostic in the usual compiler layout:
//
//	main.cpp:1:14: error: use of undeclared identifier 'retrun'
func (d Diag) Format(opts analysis.FormatOption) string {
	var b strings.Builder
	if opts.Has(analysis.FormatSourceLocation) && d.Pos.IsValid() {
		fmt.Fprintf(&b, "%s:%d:", d.File, d.Pos.Line)
		if opts.Has(analysis.FormatColumn) {
			fmt.Fprintf(&b, "%d:", d.Pos.Column)
		}
		if opts.Has(analysis.FormatSourceRanges) && d.End.IsValid() {
			fmt.Fprintf(&b, "{%d:%d-%d:%d}:", d.Pos.Line, d.Pos.Column, d.End.Line, d.End.Column)
		}
		b.WriteByte(' ')
	}
	sev := d.Severity.String()
	if d.Severity == analysis.SeverityFatal {
		sev = "fatal error"
	}
	b.WriteString(sev)
	b.WriteString(": ")
	b.WriteString(d.Message)
	if opts.Has(analysis.FormatOptionName) && d.Option != "" {
		if d.Severity == analysis.SeverityError {
			fmt.Fprintf(&b, " [-Werror,%s]", d.Option)
		} else {
			fmt.Fprintf(&b, " [%s]", d.Option)
		}
	}
	return b.String()
}

// flatten returns diags with every note placed right after its parent.
func flatten(diags []Diag) []Diag {
	var out []Diag
	for _, d := range diags {
		notes := d.Notes
		d.Notes = nil
		out = append(out, d)
		out = append(out, notes...)
	}
	return out
}

// diagSink collects diagnostics while honoring warning flags and the
// stop-after-fatal rule.
type diagSink struct {
	opts  *Options
	diags []Diag
	fatal bool
	seen  map[diagKey]bool
}

type diagKey struct {
	file   string
	offset int
	msg    string
}

func (s *diagSink) add(d Diag) {
	if s.fatal {
		return
	}
	if d.Severity == analysis.SeverityWarning {
		if s.opts.NoWarnings {
			return
		}
		if s.opts.WarningsAsErrs {
			d.Severity = analysis.SeverityError
		}
	}
	if d.Severity >= analysis.SeverityError && d.File != "" {
		if s.seen == nil {
			s.seen = make(map[diagKey]bool)
		}
		// recovery may revisit a token; report each error there once
		key := diagKey{d.File, d.Pos.Offset, d.Message}
		if s.seen[key] {
			return
		}
		s.seen[key] = true
	}
	s.diags = append(s.diags, d)
	if d.Severity == analysis.SeverityFatal {
		s.fatal = true
	}
}
