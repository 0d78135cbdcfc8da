package lsp

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapsense/pkg/analysis"
)

// diagnosticSource is the source reported on every published diagnostic.
const diagnosticSource = "leapsense"

// severityPrefixes are stripped from backend messages; the LSP severity
// field already carries them. "fatal error: " must precede "error: ".
var severityPrefixes = []string{"fatal error: ", "error: ", "warning: ", "note: "}

// publishDiagnostics analyzes the document and publishes the results.
func (s *Server) publishDiagnostics(uri string) {
	doc := s.documents.Get(uri)
	if doc == nil {
		return
	}

	s.sendNotification("textDocument/publishDiagnostics", &PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: s.analyze(doc),
	})
}

// analyze brings the document's session up to date with its content and
// converts the parse diagnostics. A failed parse is reported as a single
// diagnostic at the start of the document.
func (s *Server) analyze(doc *Document) []Diagnostic {
	sess, err := s.session(doc.URI)
	if err != nil {
		return s.analysisFailure(doc.URI, err)
	}

	s.sessionMu.Lock()
	diags, err := sess.EnsureParsed(doc.Snapshot())
	if err != nil {
		delete(s.lastDiags, doc.URI)
		s.sessionMu.Unlock()
		return s.analysisFailure(doc.URI, err)
	}
	s.lastDiags[doc.URI] = diags
	s.sessionMu.Unlock()

	result := make([]Diagnostic, 0, len(diags))
	for _, d := range diags {
		result = append(result, toLSPDiagnostic(doc, d))
	}
	return result
}

func (s *Server) analysisFailure(uri string, err error) []Diagnostic {
	s.logger.Warn("Analysis failed", "uri", uri, "error", err)
	msg := fmt.Sprintf("failed to parse translation unit: %v", err)
	s.logMessage(MessageTypeError, msg)
	return []Diagnostic{{
		Severity: DiagnosticSeverityError,
		Source:   diagnosticSource,
		Message:  msg,
	}}
}

// toLSPDiagnostic converts an analysis diagnostic. The range covers the
// identifier at the reported location, or is empty when there is none.
func toLSPDiagnostic(doc *Document, d analysis.Diagnostic) Diagnostic {
	var rng Range
	if d.Location != nil {
		start := doc.LSPPosition(d.Location.Line, d.Location.Column)
		rng = Range{Start: start, End: start}
		if word, wr := doc.GetWordAtPosition(start); word != "" && wr.Start == start {
			rng.End = wr.End
		}
	}

	return Diagnostic{
		Range:    rng,
		Severity: toLSPSeverity(d.Severity),
		Source:   diagnosticSource,
		Message:  stripSeverity(d.Message),
	}
}

// toLSPSeverity converts an analysis severity to an LSP DiagnosticSeverity.
func toLSPSeverity(s analysis.Severity) DiagnosticSeverity {
	switch s {
	case analysis.SeverityFatal, analysis.SeverityError:
		return DiagnosticSeverityError
	case analysis.SeverityWarning:
		return DiagnosticSeverityWarning
	case analysis.SeverityNote:
		return DiagnosticSeverityInformation
	default:
		return DiagnosticSeverityWarning
	}
}

func stripSeverity(msg string) string {
	for _, p := range severityPrefixes {
		if rest, ok := strings.CutPrefix(msg, p); ok {
			return rest
		}
	}
	return msg
}
