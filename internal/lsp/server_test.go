package lsp

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapsense/internal/testutil"
)

// frame encodes a JSON-RPC message with its Content-Length header.
func frame(t *testing.T, id int, method string, params any) string {
	t.Helper()
	msg := map[string]any{"jsonrpc": "2.0", "method": method}
	if id > 0 {
		msg["id"] = id
	}
	if params != nil {
		msg["params"] = params
	}
	body, err := json.Marshal(msg)
	require.NoError(t, err)
	return fmt.Sprintf("Content-Length: %d\r\n\r\n%s", len(body), body)
}

// readFrames decodes every message the server wrote.
func readFrames(t *testing.T, out []byte) []JSONRPCMessage {
	t.Helper()
	r := bufio.NewReader(bytes.NewReader(out))
	var msgs []JSONRPCMessage
	for {
		line, err := r.ReadString('\n')
		if err == io.EOF {
			return msgs
		}
		require.NoError(t, err)
		length, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "Content-Length: ")))
		require.NoError(t, err)
		_, err = r.ReadString('\n')
		require.NoError(t, err)

		body := make([]byte, length)
		_, err = io.ReadFull(r, body)
		require.NoError(t, err)

		var msg JSONRPCMessage
		require.NoError(t, json.Unmarshal(body, &msg))
		msgs = append(msgs, msg)
	}
}

func responseFor(t *testing.T, msgs []JSONRPCMessage, id int) JSONRPCMessage {
	t.Helper()
	want := strconv.Itoa(id)
	for _, m := range msgs {
		if m.ID != nil && string(*m.ID) == want {
			return m
		}
	}
	t.Fatalf("no response for request %d", id)
	return JSONRPCMessage{}
}

func notifications(msgs []JSONRPCMessage, method string) []JSONRPCMessage {
	var out []JSONRPCMessage
	for _, m := range msgs {
		if m.ID == nil && m.Method == method {
			out = append(out, m)
		}
	}
	return out
}

func runServer(t *testing.T, input string) ([]JSONRPCMessage, *Server) {
	t.Helper()
	out := &bytes.Buffer{}
	s := NewServerWithLogger(strings.NewReader(input), out, testutil.NewTestLogger(t))
	require.NoError(t, s.Run())
	return readFrames(t, out.Bytes()), s
}

// ---------- Server Session Tests ----------

func TestServer_Session(t *testing.T) {
	uri := "file:///src/main.c"
	src := "struct point { int x; int y; };\nint main(void) { struct point p; p.x = 1 }"
	doc := map[string]any{"uri": uri}

	input := frame(t, 1, "initialize", map[string]any{
		"processId": 1,
		"rootUri":   "file://" + t.TempDir(),
		"capabilities": map[string]any{
			"textDocument": map[string]any{
				"completion": map[string]any{"completionItem": map[string]any{"snippetSupport": true}},
			},
		},
	}) +
		frame(t, 0, "initialized", map[string]any{}) +
		frame(t, 0, "textDocument/didOpen", map[string]any{
			"textDocument": map[string]any{"uri": uri, "languageId": "c", "version": 1, "text": src},
		}) +
		frame(t, 2, "textDocument/completion", map[string]any{
			"textDocument": doc, "position": map[string]any{"line": 1, "character": 35},
		}) +
		frame(t, 3, "textDocument/hover", map[string]any{
			"textDocument": doc, "position": map[string]any{"line": 1, "character": 33},
		}) +
		frame(t, 4, "textDocument/codeAction", map[string]any{
			"textDocument": doc,
			"range":        map[string]any{"start": map[string]any{"line": 1, "character": 41}, "end": map[string]any{"line": 1, "character": 41}},
			"context": map[string]any{"diagnostics": []map[string]any{{
				"range":   map[string]any{"start": map[string]any{"line": 1, "character": 41}, "end": map[string]any{"line": 1, "character": 41}},
				"source":  "leapsense",
				"message": "expected ';' after expression",
			}}},
		}) +
		frame(t, 5, "workspace/symbol", map[string]any{"query": "x"}) +
		frame(t, 6, "shutdown", nil)

	msgs, s := runServer(t, input)

	t.Run("initialize", func(t *testing.T) {
		var result InitializeResult
		require.NoError(t, json.Unmarshal(responseFor(t, msgs, 1).Result, &result))
		assert.True(t, result.Capabilities.HoverProvider)
		require.NotNil(t, result.Capabilities.CompletionProvider)
		assert.Equal(t, []string{".", ">"}, result.Capabilities.CompletionProvider.TriggerCharacters)
		require.NotNil(t, result.Capabilities.CodeActionProvider)
		assert.True(t, s.snippetSupport)

		require.Len(t, notifications(msgs, "window/showMessage"), 1)
	})

	t.Run("diagnostics on open", func(t *testing.T) {
		published := notifications(msgs, "textDocument/publishDiagnostics")
		require.Len(t, published, 1)

		var params PublishDiagnosticsParams
		require.NoError(t, json.Unmarshal(published[0].Params, &params))
		assert.Equal(t, uri, params.URI)
		var messages []string
		for _, d := range params.Diagnostics {
			messages = append(messages, d.Message)
		}
		assert.Contains(t, messages, "expected ';' after expression")
	})

	t.Run("completion", func(t *testing.T) {
		var list CompletionList
		require.NoError(t, json.Unmarshal(responseFor(t, msgs, 2).Result, &list))
		assert.ElementsMatch(t, []string{"x", "y"}, labels(list.Items))
	})

	t.Run("hover", func(t *testing.T) {
		var hover Hover
		require.NoError(t, json.Unmarshal(responseFor(t, msgs, 3).Result, &hover))
		assert.Contains(t, hover.Contents.Value, "struct point p")
	})

	t.Run("code action", func(t *testing.T) {
		var actions []CodeAction
		require.NoError(t, json.Unmarshal(responseFor(t, msgs, 4).Result, &actions))
		require.Len(t, actions, 1)
		assert.Equal(t, ";", actions[0].Edit.Changes[uri][0].NewText)
	})

	t.Run("unknown method", func(t *testing.T) {
		resp := responseFor(t, msgs, 5)
		require.NotNil(t, resp.Error)
		assert.Equal(t, codeMethodNotFound, resp.Error.Code)
	})

	t.Run("shutdown closes sessions", func(t *testing.T) {
		resp := responseFor(t, msgs, 6)
		assert.Nil(t, resp.Error)
		assert.Empty(t, s.sessions)
	})
}

func TestServer_RequestBeforeInitialize(t *testing.T) {
	input := frame(t, 1, "textDocument/completion", map[string]any{
		"textDocument": map[string]any{"uri": "file:///a.c"},
		"position":     map[string]any{"line": 0, "character": 0},
	})

	msgs, _ := runServer(t, input)
	resp := responseFor(t, msgs, 1)
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeInvalidRequest, resp.Error.Code)
}

func TestServer_DidChangeAndClose(t *testing.T) {
	s, out := newTestServer(t)
	s.initialized = true
	uri := "file:///src/main.c"

	notify := func(method string, params any) {
		body, err := json.Marshal(params)
		require.NoError(t, err)
		require.NoError(t, s.handleMessage(&JSONRPCMessage{JSONRPC: "2.0", Method: method, Params: body}))
	}

	notify("textDocument/didOpen", DidOpenTextDocumentParams{
		TextDocument: TextDocumentItem{URI: uri, LanguageID: "c", Version: 1, Text: "int main(void) {"},
	})
	notify("textDocument/didChange", DidChangeTextDocumentParams{
		TextDocument:   VersionedTextDocumentIdentifier{TextDocumentIdentifier: TextDocumentIdentifier{URI: uri}, Version: 2},
		ContentChanges: []TextDocumentContentChangeEvent{{Text: "int main(void) { return 0; }"}},
	})

	require.Contains(t, s.sessions, uri)
	stats := s.sessions[uri].Stats()
	assert.Equal(t, 1, stats.FullParses)
	assert.Equal(t, 1, stats.Reparses)

	notify("textDocument/didClose", DidCloseTextDocumentParams{TextDocument: TextDocumentIdentifier{URI: uri}})
	assert.NotContains(t, s.sessions, uri)
	assert.NotContains(t, s.lastDiags, uri)
	assert.Nil(t, s.documents.Get(uri))

	published := notifications(readFrames(t, out.Bytes()), "textDocument/publishDiagnostics")
	require.Len(t, published, 3)

	counts := make([]int, 0, len(published))
	for _, m := range published {
		var params PublishDiagnosticsParams
		require.NoError(t, json.Unmarshal(m.Params, &params))
		counts = append(counts, len(params.Diagnostics))
	}
	assert.NotZero(t, counts[0])
	assert.Equal(t, []int{0, 0}, counts[1:])
}

func TestServer_Exit(t *testing.T) {
	tests := []struct {
		name     string
		shutdown bool
		expected int
	}{
		{name: "after shutdown", shutdown: true, expected: 0},
		{name: "without shutdown", shutdown: false, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t)
			s.shutdown = tt.shutdown
			code := -1
			s.exit = func(c int) { code = c }

			require.NoError(t, s.handleMessage(&JSONRPCMessage{JSONRPC: "2.0", Method: "exit"}))
			assert.Equal(t, tt.expected, code)
		})
	}
}
