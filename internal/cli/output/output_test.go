package output

import (
	"bytes"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapsense/pkg/analysis"
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func newRenderer(mode Mode, isTTY bool) (*Renderer, *bytes.Buffer, *bytes.Buffer) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return NewRendererWithTTY(out, errOut, isTTY, mode), out, errOut
}

// ---------- Mode Tests ----------

func TestRenderer_EffectiveMode(t *testing.T) {
	tests := []struct {
		mode  Mode
		isTTY bool
		want  Mode
	}{
		{ModeAuto, true, ModeText},
		{ModeAuto, false, ModeMarkdown},
		{"", false, ModeMarkdown},
		{ModeText, false, ModeText},
		{ModeJSON, true, ModeJSON},
		{"YAML", true, ModeYAML},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			r, _, _ := newRenderer(tt.mode, tt.isTTY)
			assert.Equal(t, tt.want, r.EffectiveMode())
			assert.Equal(t, tt.isTTY, r.IsTTY())
		})
	}
}

func TestNewRenderer_NonFileIsNotTTY(t *testing.T) {
	r := NewRenderer(&bytes.Buffer{}, &bytes.Buffer{}, ModeAuto)
	assert.False(t, r.IsTTY())
	assert.Equal(t, ModeMarkdown, r.EffectiveMode())
}

// ---------- Rendering Tests ----------

func TestRenderer_Header(t *testing.T) {
	r, out, _ := newRenderer(ModeMarkdown, false)
	r.Header(2, "Diagnostics")
	assert.Equal(t, "## Diagnostics\n\n", out.String())

	r, out, _ = newRenderer(ModeText, false)
	r.Header(1, "Diagnostics")
	assert.Contains(t, out.String(), "Diagnostics")
	assert.False(t, ansiPattern.MatchString(out.String()), "no escape codes without a terminal")
}

func TestRenderer_StatusMessages(t *testing.T) {
	r, out, errOut := newRenderer(ModeText, false)
	r.Success("parsed")
	r.Warning("stale")
	r.Error("failed")
	r.Muted("hint")

	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "✓ parsed")
	assert.Contains(t, errOut.String(), "! stale")
	assert.Contains(t, errOut.String(), "✗ failed")
	assert.Contains(t, errOut.String(), "hint")
}

func TestRenderer_Table(t *testing.T) {
	t.Run("markdown", func(t *testing.T) {
		r, out, _ := newRenderer(ModeMarkdown, false)
		r.Table([]string{"Kind", "Text"}, [][]string{{"variable", "x"}})
		assert.Contains(t, out.String(), "| Kind | Text |")
		assert.Contains(t, out.String(), "| variable | x |")
	})

	t.Run("text", func(t *testing.T) {
		r, out, _ := newRenderer(ModeText, true)
		r.Table([]string{"Kind", "Text"}, [][]string{{"function", "main"}})
		assert.Contains(t, out.String(), "main")
		assert.Contains(t, out.String(), "┌")
	})
}

func TestRenderer_Structured(t *testing.T) {
	payload := CheckOutput{
		File:    "main.cpp",
		Backend: "minic",
		Diagnostics: []analysis.Diagnostic{{
			Severity: analysis.SeverityError,
			Message:  "main.cpp:1:14: error: use of undeclared identifier 'retrun'",
			Location: &analysis.Location{Line: 1, Column: 14},
			Source:   analysis.SourceCompile,
		}},
	}

	t.Run("json", func(t *testing.T) {
		r, out, _ := newRenderer(ModeJSON, false)
		handled, err := r.Structured(payload)
		require.NoError(t, err)
		assert.True(t, handled)
		assert.Contains(t, out.String(), `"severity": "error"`)
		assert.Contains(t, out.String(), `"source": "compile"`)
		assert.Contains(t, out.String(), `"line": 1`)
	})

	t.Run("yaml", func(t *testing.T) {
		r, out, _ := newRenderer(ModeYAML, false)
		handled, err := r.Structured(payload)
		require.NoError(t, err)
		assert.True(t, handled)
		assert.Contains(t, out.String(), "severity: error")
		assert.Contains(t, out.String(), "backend: minic")
	})

	t.Run("text is not structured", func(t *testing.T) {
		r, out, _ := newRenderer(ModeText, false)
		handled, err := r.Structured(payload)
		require.NoError(t, err)
		assert.False(t, handled)
		assert.Empty(t, out.String())
	})
}

// ---------- Format Tests ----------

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "# Title", FormatHeader(1, "Title"))
	assert.Equal(t, "###### Deep", FormatHeader(9, "Deep"))
	assert.Equal(t, "# Low", FormatHeader(0, "Low"))
	assert.Equal(t, "- **File:** main.c", FormatKeyValue("File", "main.c"))
	assert.Equal(t, "```c\nint x;\n```", FormatCodeBlock("c", "int x;"))
	assert.Equal(t, "`x`", FormatInlineCode("x"))
}

func TestSummarize(t *testing.T) {
	diags := []analysis.Diagnostic{
		{Severity: analysis.SeverityWarning},
		{Severity: analysis.SeverityError},
		{Severity: analysis.SeverityError},
		{Severity: analysis.SeverityFatal},
	}
	assert.Equal(t, DiagnosticSummary{Total: 4, Warnings: 1, Errors: 2, Fatals: 1}, Summarize(diags))
}

func TestStyles_Severity(t *testing.T) {
	s := NewStyles(&bytes.Buffer{}, false)
	for _, sev := range []analysis.Severity{analysis.SeverityNote, analysis.SeverityWarning, analysis.SeverityError, analysis.SeverityFatal} {
		assert.Equal(t, sev.String(), s.Severity(sev).Render(sev.String()))
	}
}

func TestNewCandidateInfo(t *testing.T) {
	fn := analysis.Candidate{
		Kind:        analysis.KindFunction,
		DisplayText: "add",
		Chunks: []analysis.Chunk{
			{Kind: analysis.ChunkResultType, Text: "int"},
			{Kind: analysis.ChunkTypedText, Text: "add"},
			{Kind: analysis.ChunkLeftParen, Text: "("},
			{Kind: analysis.ChunkPlaceholder, Text: "int a"},
			{Kind: analysis.ChunkRightParen, Text: ")"},
		},
	}
	info := NewCandidateInfo(fn)
	assert.Equal(t, "add", info.Text)
	assert.Equal(t, "int", info.ResultType)
	assert.Equal(t, "add(int a)", info.Signature)
	assert.Equal(t, "add(${1:int a})", info.Snippet)

	plain := NewCandidateInfo(analysis.Candidate{Kind: analysis.KindKeyword, DisplayText: "return",
		Chunks: []analysis.Chunk{{Kind: analysis.ChunkTypedText, Text: "return"}}})
	assert.Empty(t, plain.Signature)
	assert.Empty(t, plain.Snippet)
}
