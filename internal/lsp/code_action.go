package lsp

import (
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
)

// missingTokenPattern matches diagnostics about a missing punctuation token,
// e.g. "expected ';' after expression" or "expected '}'".
var missingTokenPattern = regexp.MustCompile(`^expected '([;})\]])'`)

// handleCodeAction handles the textDocument/codeAction request.
func (s *Server) handleCodeAction(msg *JSONRPCMessage) error {
	var params CodeActionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.sendResponse(msg.ID, nil, &JSONRPCError{Code: codeInvalidParams, Message: err.Error()})
		return err
	}

	actions := s.getCodeActions(params)
	s.sendResponse(msg.ID, actions, nil)
	return nil
}

// getCodeActions returns quick fixes for the diagnostics in the request.
// Each missing-token diagnostic gets an action inserting the token at the
// start of its range.
func (s *Server) getCodeActions(params CodeActionParams) []CodeAction {
	actions := []CodeAction{}

	if len(params.Context.Only) > 0 && !slices.Contains(params.Context.Only, CodeActionKindQuickFix) {
		return actions
	}

	diags := params.Context.Diagnostics
	if len(diags) == 0 {
		diags = s.storedDiagnostics(params.TextDocument.URI, params.Range)
	}

	for _, diag := range diags {
		if diag.Source != "" && diag.Source != diagnosticSource {
			continue
		}
		m := missingTokenPattern.FindStringSubmatch(diag.Message)
		if m == nil {
			continue
		}
		token := m[1]

		actions = append(actions, CodeAction{
			Title:       fmt.Sprintf("Insert '%s'", token),
			Kind:        CodeActionKindQuickFix,
			Diagnostics: []Diagnostic{diag},
			IsPreferred: true,
			Edit: &WorkspaceEdit{
				Changes: map[string][]TextEdit{
					params.TextDocument.URI: {{
						Range:   Range{Start: diag.Range.Start, End: diag.Range.Start},
						NewText: token,
					}},
				},
			},
		})
	}

	s.logger.Debug("Code actions", "uri", params.TextDocument.URI, "count", len(actions))
	return actions
}

// storedDiagnostics returns the last published diagnostics of uri whose
// start line falls within rng. Used when the client sends no context.
func (s *Server) storedDiagnostics(uri string, rng Range) []Diagnostic {
	doc := s.documents.Get(uri)
	if doc == nil {
		return nil
	}

	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	var out []Diagnostic
	for _, d := range s.lastDiags[uri] {
		diag := toLSPDiagnostic(doc, d)
		if diag.Range.Start.Line >= rng.Start.Line && diag.Range.Start.Line <= rng.End.Line {
			out = append(out, diag)
		}
	}
	return out
}
