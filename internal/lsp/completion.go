package lsp

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapsense/pkg/analysis"
)

// completionKinds maps symbol kinds to LSP completion item kinds.
var completionKinds = map[analysis.SymbolKind]CompletionItemKind{
	analysis.KindVariable:     CompletionItemKindVariable,
	analysis.KindParameter:    CompletionItemKindVariable,
	analysis.KindFunction:     CompletionItemKindFunction,
	analysis.KindField:        CompletionItemKindField,
	analysis.KindTypedef:      CompletionItemKindClass,
	analysis.KindStruct:       CompletionItemKindStruct,
	analysis.KindEnum:         CompletionItemKindEnum,
	analysis.KindEnumConstant: CompletionItemKindEnumMember,
	analysis.KindMacro:        CompletionItemKindConstant,
	analysis.KindKeyword:      CompletionItemKindKeyword,
}

func toCompletionItemKind(k analysis.SymbolKind) CompletionItemKind {
	if kind, ok := completionKinds[k]; ok {
		return kind
	}
	return CompletionItemKindText
}

// complete runs a completion query for the document at pos. The identifier
// before pos is used for prefix ranking when the project enables it.
func (s *Server) complete(doc *Document, pos analysis.Position) (*analysis.CompletionResult, error) {
	sess, err := s.session(doc.URI)
	if err != nil {
		return nil, err
	}

	snap := doc.Snapshot()
	opts := append(s.project.Completion.Options(snap.IdentPrefix(pos)), analysis.WithCompleterLogger(s.logger))

	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()
	return analysis.NewCompleter(opts...).Complete(sess, snap, pos)
}

// getCompletions returns completion items for the given position.
func (s *Server) getCompletions(params CompletionParams) []CompletionItem {
	doc := s.documents.Get(params.TextDocument.URI)
	if doc == nil {
		return []CompletionItem{}
	}

	pos, err := doc.AnalysisPosition(params.Position)
	if err != nil {
		s.logger.Debug("Completion outside document", "uri", doc.URI, "error", err)
		return []CompletionItem{}
	}

	res, err := s.complete(doc, pos)
	if err != nil {
		s.logger.Warn("Completion failed", "uri", doc.URI, "position", pos.String(), "error", err)
		s.logMessage(MessageTypeWarning, fmt.Sprintf("completion failed: %v", err))
		return []CompletionItem{}
	}

	items := make([]CompletionItem, 0, len(res.Candidates))
	for i, c := range res.Candidates {
		items = append(items, s.toCompletionItem(i, c))
	}
	return items
}

func (s *Server) toCompletionItem(rank int, c analysis.Candidate) CompletionItem {
	item := CompletionItem{
		Label:      c.DisplayText,
		Kind:       toCompletionItemKind(c.Kind),
		Detail:     c.ResultType(),
		SortText:   fmt.Sprintf("%05d", rank),
		FilterText: c.DisplayText,
		InsertText: c.DisplayText,
	}
	if sig := c.Signature(); sig != c.DisplayText {
		item.Documentation = sig
	}
	if s.snippetSupport {
		if snippet := c.Snippet(); snippet != c.DisplayText {
			item.InsertText = snippet
			item.InsertTextFormat = InsertTextFormatSnippet
		}
	}
	return item
}

// getHover describes the symbol under the cursor. The symbol is resolved by
// completing at the start of the word and looking for an exact match.
func (s *Server) getHover(params HoverParams) *Hover {
	doc := s.documents.Get(params.TextDocument.URI)
	if doc == nil {
		return nil
	}

	word, wordRange := doc.GetWordAtPosition(params.Position)
	if word == "" {
		return nil
	}

	pos, err := doc.AnalysisPosition(wordRange.Start)
	if err != nil {
		return nil
	}

	res, err := s.complete(doc, pos)
	if err != nil {
		s.logger.Debug("Hover lookup failed", "uri", doc.URI, "word", word, "error", err)
		return nil
	}

	for _, c := range res.Candidates {
		if c.DisplayText != word || c.Kind == analysis.KindKeyword {
			continue
		}
		return &Hover{
			Contents: MarkupContent{
				Kind:  MarkupKindMarkdown,
				Value: hoverMarkdown(c),
			},
			Range: &wordRange,
		}
	}
	return nil
}

func hoverMarkdown(c analysis.Candidate) string {
	decl := strings.TrimSpace(c.ResultType() + " " + c.Signature())
	return fmt.Sprintf("```c\n%s\n```\n\n*%s*", decl, c.Kind)
}
