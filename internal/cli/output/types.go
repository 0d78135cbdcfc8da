package output

import "github.com/leapstack-labs/leapsense/pkg/analysis"

// DiagnosticSummary counts diagnostics by severity.
type DiagnosticSummary struct {
	Total    int `json:"total" yaml:"total"`
	Notes    int `json:"notes" yaml:"notes"`
	Warnings int `json:"warnings" yaml:"warnings"`
	Errors   int `json:"errors" yaml:"errors"`
	Fatals   int `json:"fatals" yaml:"fatals"`
}

// Summarize counts diags by severity.
func Summarize(diags []analysis.Diagnostic) DiagnosticSummary {
	counts := analysis.CountBySeverity(diags)
	return DiagnosticSummary{
		Total:    len(diags),
		Notes:    counts[analysis.SeverityNote],
		Warnings: counts[analysis.SeverityWarning],
		Errors:   counts[analysis.SeverityError],
		Fatals:   counts[analysis.SeverityFatal],
	}
}

// CheckOutput is the structured result of the check and watch commands.
type CheckOutput struct {
	File        string                `json:"file" yaml:"file"`
	Backend     string                `json:"backend" yaml:"backend"`
	Diagnostics []analysis.Diagnostic `json:"diagnostics" yaml:"diagnostics"`
	Summary     DiagnosticSummary     `json:"summary" yaml:"summary"`
}

// CandidateInfo is one completion candidate in structured output.
type CandidateInfo struct {
	Kind       analysis.SymbolKind `json:"kind" yaml:"kind"`
	Text       string              `json:"text" yaml:"text"`
	ResultType string              `json:"result_type,omitempty" yaml:"result_type,omitempty"`
	Signature  string              `json:"signature,omitempty" yaml:"signature,omitempty"`
	Snippet    string              `json:"snippet,omitempty" yaml:"snippet,omitempty"`
}

// NewCandidateInfo flattens a candidate for output.
func NewCandidateInfo(c analysis.Candidate) CandidateInfo {
	info := CandidateInfo{
		Kind:       c.Kind,
		Text:       c.DisplayText,
		ResultType: c.ResultType(),
	}
	if sig := c.Signature(); sig != c.DisplayText {
		info.Signature = sig
	}
	if snip := c.Snippet(); snip != c.DisplayText {
		info.Snippet = snip
	}
	return info
}

// CompleteOutput is the structured result of the complete command.
type CompleteOutput struct {
	File             string                `json:"file" yaml:"file"`
	Line             int                   `json:"line" yaml:"line"`
	Column           int                   `json:"column" yaml:"column"`
	Candidates       []CandidateInfo       `json:"candidates" yaml:"candidates"`
	Diagnostics      []analysis.Diagnostic `json:"diagnostics" yaml:"diagnostics"`
	ParseDiagnostics []analysis.Diagnostic `json:"parse_diagnostics,omitempty" yaml:"parse_diagnostics,omitempty"`
}

// BackendInfo describes a registered backend.
type BackendInfo struct {
	Name    string `json:"name" yaml:"name"`
	Default bool   `json:"default" yaml:"default"`
	Active  bool   `json:"active" yaml:"active"`
}

// StatsOutput reports session counters.
type StatsOutput struct {
	Session     string `json:"session" yaml:"session"`
	State       string `json:"state" yaml:"state"`
	FullParses  int    `json:"full_parses" yaml:"full_parses"`
	Reparses    int    `json:"reparses" yaml:"reparses"`
	Failures    int    `json:"failures" yaml:"failures"`
	Completions int    `json:"completions" yaml:"completions"`
}

// NewStatsOutput captures the counters of s.
func NewStatsOutput(s *analysis.Session) StatsOutput {
	st := s.Stats()
	return StatsOutput{
		Session:     s.ID(),
		State:       s.State().String(),
		FullParses:  st.FullParses,
		Reparses:    st.Reparses,
		Failures:    st.Failures,
		Completions: st.Completions,
	}
}
