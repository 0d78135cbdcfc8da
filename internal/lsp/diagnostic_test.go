package lsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapsense/pkg/analysis"
)

// ---------- Diagnostic Tests ----------

func TestServer_Analyze(t *testing.T) {
	s, _ := newTestServer(t)

	uri := "file:///src/main.cpp"
	s.documents.Open(uri, "int main() { retrun 0; }", 1)

	diags := s.analyze(s.documents.Get(uri))
	require.Len(t, diags, 2)

	assert.Equal(t, Diagnostic{
		Range:    Range{Start: Position{Line: 0, Character: 13}, End: Position{Line: 0, Character: 19}},
		Severity: DiagnosticSeverityError,
		Source:   "leapsense",
		Message:  "use of undeclared identifier 'retrun'",
	}, diags[0])

	assert.Equal(t, Position{Line: 0, Character: 19}, diags[1].Range.Start)
	assert.Equal(t, diags[1].Range.Start, diags[1].Range.End)
	assert.Equal(t, "expected ';' after expression", diags[1].Message)

	require.Len(t, s.lastDiags[uri], 2)
	assert.Equal(t, analysis.SeverityError, s.lastDiags[uri][0].Severity)
}

func TestServer_Analyze_Reparse(t *testing.T) {
	s, _ := newTestServer(t)

	uri := "file:///src/main.c"
	s.documents.Open(uri, "int main(void) {", 1)
	assert.NotEmpty(t, s.analyze(s.documents.Get(uri)))

	s.documents.Update(uri, "int main(void) { return 0; }", 2)
	assert.Empty(t, s.analyze(s.documents.Get(uri)))

	stats := s.sessions[uri].Stats()
	assert.Equal(t, 1, stats.FullParses)
	assert.Equal(t, 1, stats.Reparses)
}

func TestServer_Analyze_BackendUnavailable(t *testing.T) {
	s, out := newTestServer(t)
	s.project.Backend = "no-such-backend"

	uri := "file:///src/main.c"
	s.documents.Open(uri, "int x;", 1)

	diags := s.analyze(s.documents.Get(uri))
	require.Len(t, diags, 1)
	assert.Equal(t, DiagnosticSeverityError, diags[0].Severity)
	assert.Equal(t, Position{}, diags[0].Range.Start)
	assert.Contains(t, diags[0].Message, "failed to parse translation unit")
	assert.Contains(t, out.String(), "window/logMessage")
}

func TestToLSPDiagnostic(t *testing.T) {
	doc := newDoc("int x;\n  foo(1);\n")

	tests := []struct {
		name     string
		diag     analysis.Diagnostic
		expected Range
	}{
		{
			name:     "identifier range",
			diag:     analysis.Diagnostic{Severity: analysis.SeverityError, Message: "error: bad", Location: &analysis.Location{Line: 2, Column: 3}},
			expected: Range{Start: Position{Line: 1, Character: 2}, End: Position{Line: 1, Character: 5}},
		},
		{
			name:     "punctuation is empty range",
			diag:     analysis.Diagnostic{Severity: analysis.SeverityError, Message: "error: bad", Location: &analysis.Location{Line: 2, Column: 6}},
			expected: Range{Start: Position{Line: 1, Character: 5}, End: Position{Line: 1, Character: 5}},
		},
		{
			name:     "no location",
			diag:     analysis.Diagnostic{Severity: analysis.SeverityNote, Message: "note: bad"},
			expected: Range{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toLSPDiagnostic(doc, tt.diag)
			assert.Equal(t, tt.expected, got.Range)
			assert.Equal(t, "bad", got.Message)
			assert.Equal(t, "leapsense", got.Source)
		})
	}
}

func TestToLSPSeverity(t *testing.T) {
	tests := []struct {
		severity analysis.Severity
		expected DiagnosticSeverity
	}{
		{analysis.SeverityFatal, DiagnosticSeverityError},
		{analysis.SeverityError, DiagnosticSeverityError},
		{analysis.SeverityWarning, DiagnosticSeverityWarning},
		{analysis.SeverityNote, DiagnosticSeverityInformation},
		{analysis.Severity(42), DiagnosticSeverityWarning},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, toLSPSeverity(tt.severity), "severity %d", int(tt.severity))
	}
}

func TestStripSeverity(t *testing.T) {
	tests := []struct {
		msg      string
		expected string
	}{
		{"error: expected '}'", "expected '}'"},
		{"fatal error: 'x.h' file not found", "'x.h' file not found"},
		{"warning: unused", "unused"},
		{"note: to match this '{'", "to match this '{'"},
		{"plain message", "plain message"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, stripSeverity(tt.msg), "stripSeverity(%q)", tt.msg)
	}
}

// ---------- Code Action Tests ----------

func TestServer_GetCodeActions(t *testing.T) {
	s, _ := newTestServer(t)
	uri := "file:///src/main.c"

	semi := Diagnostic{
		Range:   Range{Start: Position{Line: 0, Character: 19}, End: Position{Line: 0, Character: 19}},
		Source:  "leapsense",
		Message: "expected ';' after expression",
	}
	brace := Diagnostic{
		Range:   Range{Start: Position{Line: 2, Character: 0}, End: Position{Line: 2, Character: 0}},
		Source:  "leapsense",
		Message: "expected '}'",
	}
	other := Diagnostic{Source: "leapsense", Message: "use of undeclared identifier 'retrun'"}
	foreign := Diagnostic{Source: "clang-tidy", Message: "expected ';'"}

	t.Run("missing tokens", func(t *testing.T) {
		actions := s.getCodeActions(CodeActionParams{
			TextDocument: TextDocumentIdentifier{URI: uri},
			Context:      CodeActionContext{Diagnostics: []Diagnostic{semi, other, brace, foreign}},
		})
		require.Len(t, actions, 2)

		assert.Equal(t, "Insert ';'", actions[0].Title)
		assert.Equal(t, CodeActionKindQuickFix, actions[0].Kind)
		assert.True(t, actions[0].IsPreferred)
		require.NotNil(t, actions[0].Edit)
		assert.Equal(t, []TextEdit{{Range: semi.Range, NewText: ";"}}, actions[0].Edit.Changes[uri])

		assert.Equal(t, "Insert '}'", actions[1].Title)
		assert.Equal(t, []Diagnostic{brace}, actions[1].Diagnostics)
	})

	t.Run("other kinds requested", func(t *testing.T) {
		actions := s.getCodeActions(CodeActionParams{
			TextDocument: TextDocumentIdentifier{URI: uri},
			Context:      CodeActionContext{Diagnostics: []Diagnostic{semi}, Only: []CodeActionKind{"refactor"}},
		})
		assert.NotNil(t, actions)
		assert.Empty(t, actions)
	})

	t.Run("falls back to published diagnostics", func(t *testing.T) {
		s.documents.Open(uri, "int main(void) { return 0 }", 1)
		require.NotEmpty(t, s.analyze(s.documents.Get(uri)))

		actions := s.getCodeActions(CodeActionParams{
			TextDocument: TextDocumentIdentifier{URI: uri},
			Range:        Range{Start: Position{Line: 0}, End: Position{Line: 0, Character: 27}},
		})
		require.Len(t, actions, 1)
		assert.Equal(t, "Insert ';'", actions[0].Title)
	})
}
