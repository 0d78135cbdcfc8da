package lsp

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/leapstack-labs/leapsense/internal/config"
	"github.com/leapstack-labs/leapsense/pkg/analysis"

	// Register the reference backend
	_ "github.com/leapstack-labs/leapsense/pkg/minic"
)

// Server implements the Language Server Protocol over analysis sessions.
// Every open document owns one session.
type Server struct {
	// Document management
	documents *DocumentStore

	// One analysis session per open document URI
	sessions  map[string]*analysis.Session
	lastDiags map[string][]analysis.Diagnostic
	sessionMu sync.Mutex

	// Project context
	projectRoot    string
	project        *config.ProjectConfig
	projectFromCfg bool
	snippetSupport bool
	initialized    bool

	// I/O
	reader  *bufio.Reader
	writer  io.Writer
	writeMu sync.Mutex

	// Logging
	logger *slog.Logger

	// Shutdown state
	shutdown   bool
	shutdownMu sync.RWMutex

	// exit terminates the process on the exit notification.
	exit func(code int)
}

// NewServer creates a new LSP server instance.
func NewServer(reader io.Reader, writer io.Writer) *Server {
	return NewServerWithLogger(reader, writer, nil)
}

// NewServerWithLogger creates a new LSP server instance with a custom logger.
func NewServerWithLogger(reader io.Reader, writer io.Writer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return &Server{
		documents: NewDocumentStore(),
		sessions:  make(map[string]*analysis.Session),
		lastDiags: make(map[string][]analysis.Diagnostic),
		project:   config.DefaultProjectConfig(),
		reader:    bufio.NewReader(reader),
		writer:    writer,
		logger:    logger,
		exit:      os.Exit,
	}
}

// Run starts the server's main loop, processing JSON-RPC messages.
func (s *Server) Run() error {
	s.logger.Info("leapsense LSP server starting...")
	defer s.closeSessions()

	for {
		s.shutdownMu.RLock()
		if s.shutdown {
			s.shutdownMu.RUnlock()
			return nil
		}
		s.shutdownMu.RUnlock()

		// Read message
		msg, err := s.readMessage()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				s.logger.Info("Client disconnected")
				return nil
			}
			s.logger.Error("Error reading message", "error", err)
			continue
		}

		// Handle message
		if err := s.handleMessage(msg); err != nil {
			s.logger.Error("Error handling message", "error", err)
		}
	}
}

// JSONRPCMessage represents a JSON-RPC 2.0 message.
type JSONRPCMessage struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      *json.RawMessage `json:"id,omitempty"`
	Method  string           `json:"method,omitempty"`
	Params  json.RawMessage  `json:"params,omitempty"`
	Result  json.RawMessage  `json:"result,omitempty"`
	Error   *JSONRPCError    `json:"error,omitempty"`
}

// JSONRPCError represents a JSON-RPC error.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// JSON-RPC error codes.
const (
	codeInvalidParams  = -32602
	codeMethodNotFound = -32601
	codeInvalidRequest = -32600
)

// readMessage reads a JSON-RPC message from the input stream.
func (s *Server) readMessage() (*JSONRPCMessage, error) {
	// Read headers
	var contentLength int
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			return nil, err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			break // End of headers
		}

		if strings.HasPrefix(line, "Content-Length: ") {
			lengthStr := strings.TrimPrefix(line, "Content-Length: ")
			contentLength, err = strconv.Atoi(lengthStr)
			if err != nil {
				return nil, fmt.Errorf("invalid Content-Length: %w", err)
			}
		}
	}

	if contentLength == 0 {
		return nil, fmt.Errorf("missing Content-Length header")
	}

	// Read body
	body := make([]byte, contentLength)
	_, err := io.ReadFull(s.reader, body)
	if err != nil {
		return nil, fmt.Errorf("error reading body: %w", err)
	}

	// Parse message
	var msg JSONRPCMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("error parsing message: %w", err)
	}

	return &msg, nil
}

// sendResponse sends a JSON-RPC response.
func (s *Server) sendResponse(id *json.RawMessage, result any, err *JSONRPCError) {
	msg := JSONRPCMessage{
		JSONRPC: "2.0",
		ID:      id,
	}

	if err != nil {
		msg.Error = err
	} else {
		resultBytes, _ := json.Marshal(result)
		msg.Result = resultBytes
	}

	s.writeMessage(&msg)
}

// sendNotification sends a JSON-RPC notification (no ID).
func (s *Server) sendNotification(method string, params any) {
	msg := JSONRPCMessage{
		JSONRPC: "2.0",
		Method:  method,
	}

	if params != nil {
		paramsBytes, _ := json.Marshal(params)
		msg.Params = paramsBytes
	}

	s.writeMessage(&msg)
}

// writeMessage writes a JSON-RPC message to the output stream.
func (s *Server) writeMessage(msg *JSONRPCMessage) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	body, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("Error marshaling message", "error", err)
		return
	}

	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(body))
	_, _ = s.writer.Write([]byte(header))
	_, _ = s.writer.Write(body)
}

// logMessage sends a window/logMessage notification.
func (s *Server) logMessage(typ MessageType, message string) {
	s.sendNotification("window/logMessage", &LogMessageParams{Type: typ, Message: message})
}

// handleMessage dispatches a message to the appropriate handler.
func (s *Server) handleMessage(msg *JSONRPCMessage) error {
	s.logger.Debug("Received", "method", msg.Method)

	if !s.initialized && msg.ID != nil && msg.Method != "initialize" && msg.Method != "shutdown" {
		s.sendResponse(msg.ID, nil, &JSONRPCError{Code: codeInvalidRequest, Message: "server not initialized"})
		return nil
	}

	switch msg.Method {
	case "initialize":
		return s.handleInitialize(msg)
	case "initialized":
		return s.handleInitialized(msg)
	case "shutdown":
		return s.handleShutdown(msg)
	case "exit":
		return s.handleExit(msg)
	case "textDocument/didOpen":
		return s.handleDidOpen(msg)
	case "textDocument/didClose":
		return s.handleDidClose(msg)
	case "textDocument/didChange":
		return s.handleDidChange(msg)
	case "textDocument/didSave":
		return s.handleDidSave(msg)
	case "textDocument/completion":
		return s.handleCompletion(msg)
	case "textDocument/hover":
		return s.handleHover(msg)
	case "textDocument/codeAction":
		return s.handleCodeAction(msg)
	default:
		if msg.ID != nil {
			// Unknown method with ID - respond with method not found
			s.sendResponse(msg.ID, nil, &JSONRPCError{
				Code:    codeMethodNotFound,
				Message: "Method not found: " + msg.Method,
			})
		}
		return nil
	}
}

// --- Lifecycle handlers ---

func (s *Server) handleInitialize(msg *JSONRPCMessage) error {
	var params InitializeParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.sendResponse(msg.ID, nil, &JSONRPCError{Code: codeInvalidParams, Message: err.Error()})
		return err
	}

	s.projectRoot = URIToPath(params.RootURI)
	s.snippetSupport = params.Capabilities.TextDocument.Completion.CompletionItem.SnippetSupport
	s.logger.Info("Project root", "path", s.projectRoot)

	s.loadProjectConfig()
	s.initialized = true

	result := InitializeResult{
		Capabilities: ServerCapabilities{
			TextDocumentSync: &TextDocumentSyncOptions{
				OpenClose: true,
				Change:    TextDocumentSyncKindFull,
				Save: &SaveOptions{
					IncludeText: true,
				},
			},
			CompletionProvider: &CompletionOptions{
				TriggerCharacters: []string{".", ">"},
			},
			HoverProvider: true,
			CodeActionProvider: &CodeActionOptions{
				CodeActionKinds: []CodeActionKind{CodeActionKindQuickFix},
			},
		},
	}

	s.sendResponse(msg.ID, result, nil)
	return nil
}

func (s *Server) handleInitialized(_ *JSONRPCMessage) error {
	s.logger.Info("Server initialized")

	// Show info if no project config was found
	if !s.projectFromCfg {
		s.sendNotification("window/showMessage", &ShowMessageParams{
			Type: MessageTypeInfo,
			Message: fmt.Sprintf("No %s found. Using the %s backend with default flags.",
				config.ConfigFileName, s.project.Backend),
		})
	}

	return nil
}

func (s *Server) handleShutdown(msg *JSONRPCMessage) error {
	s.shutdownMu.Lock()
	s.shutdown = true
	s.shutdownMu.Unlock()

	s.closeSessions()

	s.sendResponse(msg.ID, nil, nil)
	s.logger.Info("Server shutdown")
	return nil
}

func (s *Server) handleExit(_ *JSONRPCMessage) error {
	s.logger.Info("Server exit")
	s.shutdownMu.RLock()
	code := 1
	if s.shutdown {
		code = 0
	}
	s.shutdownMu.RUnlock()
	s.exit(code)
	return nil
}

// --- Document handlers ---

func (s *Server) handleDidOpen(msg *JSONRPCMessage) error {
	var params DidOpenTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}

	s.documents.Open(params.TextDocument.URI, params.TextDocument.Text, params.TextDocument.Version)
	s.logger.Info("Opened", "uri", params.TextDocument.URI)

	// Run diagnostics
	s.publishDiagnostics(params.TextDocument.URI)

	return nil
}

func (s *Server) handleDidClose(msg *JSONRPCMessage) error {
	var params DidCloseTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}

	uri := params.TextDocument.URI
	s.documents.Close(uri)
	s.closeSession(uri)
	s.logger.Info("Closed", "uri", uri)

	// Clear diagnostics
	s.sendNotification("textDocument/publishDiagnostics", &PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []Diagnostic{},
	})

	return nil
}

func (s *Server) handleDidChange(msg *JSONRPCMessage) error {
	var params DidChangeTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}

	// We use full sync, so take the last change
	if len(params.ContentChanges) > 0 {
		lastChange := params.ContentChanges[len(params.ContentChanges)-1]
		s.documents.Update(params.TextDocument.URI, lastChange.Text, params.TextDocument.Version)
	}

	// Run diagnostics
	s.publishDiagnostics(params.TextDocument.URI)

	return nil
}

func (s *Server) handleDidSave(msg *JSONRPCMessage) error {
	var params DidSaveTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}

	uri := params.TextDocument.URI
	s.logger.Info("Saved", "path", URIToPath(uri))

	if params.Text != "" {
		if doc := s.documents.Get(uri); doc != nil && doc.Content != params.Text {
			s.documents.Update(uri, params.Text, doc.Version)
			s.publishDiagnostics(uri)
		}
	}

	return nil
}

// --- Feature handlers ---

func (s *Server) handleCompletion(msg *JSONRPCMessage) error {
	var params CompletionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.sendResponse(msg.ID, nil, &JSONRPCError{Code: codeInvalidParams, Message: err.Error()})
		return err
	}

	items := s.getCompletions(params)
	s.sendResponse(msg.ID, &CompletionList{Items: items}, nil)
	return nil
}

func (s *Server) handleHover(msg *JSONRPCMessage) error {
	var params HoverParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.sendResponse(msg.ID, nil, &JSONRPCError{Code: codeInvalidParams, Message: err.Error()})
		return err
	}

	hover := s.getHover(params)
	s.sendResponse(msg.ID, hover, nil)
	return nil
}

// --- Helper methods ---

// loadProjectConfig loads include paths, flags and the backend from the
// project's leapsense.yaml. Defaults apply when there is none.
func (s *Server) loadProjectConfig() {
	s.project = config.DefaultProjectConfig()
	s.projectFromCfg = false
	if s.projectRoot == "" {
		return
	}

	root := config.FindProjectRoot(s.projectRoot)
	if root == "" {
		s.logger.Info("No project config, using defaults", "backend", s.project.Backend)
		return
	}

	cfg, err := config.LoadFromDir(root)
	if err != nil {
		s.logger.Warn("Failed to load project config", "dir", root, "error", err)
		s.logMessage(MessageTypeWarning, fmt.Sprintf("failed to load %s: %v", config.ConfigFileName, err))
		return
	}
	if cfg == nil {
		return
	}
	cfg.Backend = strings.ToLower(cfg.Backend)
	if err := cfg.Validate(); err != nil {
		s.logger.Warn("Invalid project config", "error", err)
		s.logMessage(MessageTypeWarning, err.Error())
		return
	}

	s.project = cfg
	s.projectFromCfg = true
	s.logger.Info("Loaded project config", "dir", root, "backend", cfg.Backend, "include_paths", cfg.IncludePaths)
}

// session returns the session for uri, creating it on first use.
func (s *Server) session(uri string) (*analysis.Session, error) {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	if sess, ok := s.sessions[uri]; ok {
		return sess, nil
	}

	backend, err := analysis.NewBackend(s.project.Backend, s.logger)
	if err != nil {
		return nil, err
	}
	sess, err := analysis.NewSession(backend, s.project.Flags(),
		analysis.WithLogger(s.logger.With("uri", uri)),
		analysis.WithParseOptions(s.project.Parse.Options()),
		analysis.WithFormatOptions(0),
	)
	if err != nil {
		return nil, err
	}
	s.sessions[uri] = sess
	return sess, nil
}

// closeSession disposes the session of uri, if any.
func (s *Server) closeSession(uri string) {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	if sess, ok := s.sessions[uri]; ok {
		if err := sess.Close(); err != nil {
			s.logger.Warn("Failed to close session", "uri", uri, "error", err)
		}
		delete(s.sessions, uri)
	}
	delete(s.lastDiags, uri)
}

func (s *Server) closeSessions() {
	s.sessionMu.Lock()
	uris := make([]string, 0, len(s.sessions))
	for uri := range s.sessions {
		uris = append(uris, uri)
	}
	s.sessionMu.Unlock()

	for _, uri := range uris {
		s.closeSession(uri)
	}
}
