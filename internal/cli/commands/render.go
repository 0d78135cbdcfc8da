package commands

import (
	"fmt"
	"strconv"

	"github.com/leapstack-labs/leapsense/internal/cli/output"
	"github.com/leapstack-labs/leapsense/pkg/analysis"
)

// renderDiagnostics writes a check result in the renderer's mode.
func renderDiagnostics(r *output.Renderer, res output.CheckOutput) error {
	if handled, err := r.Structured(res); handled {
		return err
	}

	if len(res.Diagnostics) == 0 {
		r.Success(fmt.Sprintf("%s: no diagnostics", res.File))
		return nil
	}

	if r.EffectiveMode() == output.ModeMarkdown {
		r.Header(2, res.File)
		r.Table([]string{"Severity", "Location", "Message"}, diagnosticRows(res.Diagnostics))
		r.Println("")
		r.Println(summaryLine(res.Summary))
		return nil
	}

	r.Println(r.Styles().Bold.Render(res.File))
	for _, d := range res.Diagnostics {
		r.Printf("  %s  %s  %s\n",
			r.Styles().Muted.Render(fmt.Sprintf("%-7s", locationString(d.Location))),
			r.Styles().Severity(d.Severity).Render(fmt.Sprintf("%-7s", d.Severity)),
			d.Message,
		)
	}
	r.Println("")
	r.Println(r.Styles().Muted.Render(summaryLine(res.Summary)))
	return nil
}

func diagnosticRows(diags []analysis.Diagnostic) [][]string {
	rows := make([][]string, 0, len(diags))
	for _, d := range diags {
		rows = append(rows, []string{d.Severity.String(), locationString(d.Location), d.Message})
	}
	return rows
}

func locationString(loc *analysis.Location) string {
	if loc == nil || loc.Line == 0 {
		return "-"
	}
	return strconv.Itoa(loc.Line) + ":" + strconv.Itoa(loc.Column)
}

func summaryLine(s output.DiagnosticSummary) string {
	return fmt.Sprintf("%d diagnostics: %d fatal, %d errors, %d warnings, %d notes",
		s.Total, s.Fatals, s.Errors, s.Warnings, s.Notes)
}

// renderCandidates writes a completion result in the renderer's mode.
func renderCandidates(r *output.Renderer, res output.CompleteOutput) error {
	if handled, err := r.Structured(res); handled {
		return err
	}

	title := fmt.Sprintf("%s:%d:%d", res.File, res.Line, res.Column)
	if len(res.Candidates) == 0 {
		r.Warning(title + ": no completions")
	} else {
		r.Header(2, title)
		rows := make([][]string, 0, len(res.Candidates))
		for _, c := range res.Candidates {
			sig := c.Signature
			if sig == "" {
				sig = c.Text
			}
			rows = append(rows, []string{c.Kind.String(), c.Text, c.ResultType, sig})
		}
		r.Table([]string{"Kind", "Text", "Type", "Signature"}, rows)
	}

	diags := append(append([]analysis.Diagnostic(nil), res.ParseDiagnostics...), res.Diagnostics...)
	if len(diags) > 0 {
		r.Println("")
		r.Header(3, "Diagnostics")
		r.Table([]string{"Severity", "Location", "Message"}, diagnosticRows(diags))
	}
	return nil
}
