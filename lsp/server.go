package lsp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	// commonlog is a required dependency of github.com/tliron/glsp.
	// We silence it in NewServer() via commonlog.Configure(0, nil) because
	// this server uses slog for all logging. The blank import of the "simple"
	// backend is required by glsp at runtime.
	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	_ "github.com/tliron/commonlog/simple" // required backend for glsp

	"github.com/caldera-dev/caldera/diag"
	"github.com/caldera-dev/caldera/location"
	"github.com/caldera-dev/caldera/query"
	"github.com/caldera-dev/caldera/rules"
	"github.com/caldera-dev/caldera/store"
	"github.com/caldera-dev/caldera/vfs"
)

const serverName = "caldera-lsp"

// Config holds the server configuration.
type Config struct {
	// ModuleRoot overrides the computed workspace root used to resolve
	// imports during analysis.
	ModuleRoot string
}

// Server wires github.com/tliron/glsp's JSON-RPC handler to a [Session],
// translating each LSP callback into a session event and each session
// event's eventual outcome back into a notification or response.
type Server struct {
	logger  *slog.Logger
	config  Config
	handler protocol.Handler
	server  *server.Server
	session *Session

	// notifyCtx is the most recently observed glsp.Context, retained so
	// Session.Publish (called from the session's own goroutine, after the
	// triggering request has already returned) can still send a
	// textDocument/publishDiagnostics notification over the same
	// underlying connection.
	notifyCtx atomic.Pointer[glsp.Context]

	nextRequestID atomic.Int64

	shutdownCalled bool

	closeOnce sync.Once
	closeErr  error
}

// NewServer constructs a caldera language server over an already-wired
// store, query engine, and checker. If logger is nil, slog.Default() is
// used.
func NewServer(logger *slog.Logger, cfg Config, fsys vfs.Writable, st *store.Store, engine *query.Engine, checker *rules.Checker) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	session := NewSession(logger, fsys, st, engine, checker)

	s := &Server{
		logger:  logger.With(slog.String("component", "server")),
		config:  cfg,
		session: session,
	}
	session.Publish = s.publishDiagnostics

	// Silence commonlog - glsp uses it internally but we use slog for all logging.
	commonlog.Configure(0, nil)

	s.handler = protocol.Handler{
		Initialize:    s.initialize,
		Initialized:   s.initialized,
		Shutdown:      s.shutdown,
		Exit:          s.exit,
		SetTrace:      s.setTrace,
		CancelRequest: s.cancelRequest,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentDefinition:     s.textDocumentDefinition,
		TextDocumentHover:          s.textDocumentHover,
		TextDocumentCompletion:     s.textDocumentCompletion,
		TextDocumentDocumentSymbol: s.textDocumentDocumentSymbol,
		TextDocumentFormatting:     s.textDocumentFormatting,

		WorkspaceDidChangeWatchedFiles:     s.workspaceDidChangeWatchedFiles,
		WorkspaceDidChangeWorkspaceFolders: s.workspaceDidChangeWorkspaceFolders,
	}

	s.server = server.NewServer(&s.handler, serverName, false)

	return s
}

// Handler returns the protocol handler, exposed for tests that drive
// requests directly without going through a transport.
func (s *Server) Handler() *protocol.Handler {
	return &s.handler
}

// SetSelection replaces the rule selection the underlying session applies
// to every check, letting a driver apply a resolved caldera.toml's
// select/ignore lists before the server starts serving requests.
func (s *Server) SetSelection(sel rules.RuleSelection) {
	s.session.SetSelection(sel)
}

// Run starts the session's main loop and blocks until ctx is cancelled or
// Shutdown is posted. Callers should run this concurrently with RunStdio.
func (s *Server) Run(ctx context.Context) error {
	return s.session.Run(ctx)
}

// RunStdio runs the server using stdio transport.
func (s *Server) RunStdio() error {
	if err := s.server.RunStdio(); err != nil {
		return fmt.Errorf("run stdio: %w", err)
	}
	return nil
}

// Shutdown initiates graceful session shutdown, draining any in-flight
// analysis before the main loop returns.
func (s *Server) Shutdown() {
	s.logger.Info("initiating shutdown")
	s.session.Shutdown()
}

// Close closes the JSON-RPC connection, causing RunStdio to return. This
// enables graceful shutdown when a signal is received.
//
// Close is idempotent: multiple calls return the same result and do not
// panic. It is safe to call before RunStdio (returns nil if the
// connection is not yet ready, and the caller may retry).
func (s *Server) Close() error {
	conn := s.server.GetStdio()
	if conn == nil {
		return nil
	}
	s.closeOnce.Do(func() {
		if err := conn.Close(); err != nil {
			s.closeErr = fmt.Errorf("close connection: %w", err)
		}
	})
	return s.closeErr
}

func (s *Server) publishDiagnostics(uri string, diagnostics []diag.LSPDiagnostic) {
	ctx := s.notifyCtx.Load()
	if ctx == nil {
		return
	}
	items := []protocol.Diagnostic{}
	for _, d := range diagnostics {
		items = append(items, toProtocolDiagnostic(d))
	}
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: items,
	})
}

// initialize handles the initialize request.
func (s *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	s.notifyCtx.Store(ctx)

	s.logger.Info("initialize request received",
		slog.String("client_name", s.clientName(params)),
		slog.String("root_uri", s.rootURI(params)),
	)
	s.logClientCapabilities(params.Capabilities)

	// glsp implements LSP 3.16, which predates position encoding
	// negotiation (added in 3.17); UTF-16 is the 3.16 wire default and
	// the only encoding every client speaks.
	s.session.SetCoordinateSystem(location.UTF16)

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	if syncOpts, ok := capabilities.TextDocumentSync.(*protocol.TextDocumentSyncOptions); ok {
		syncOpts.Change = &syncKind
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{".", "("},
	}

	version := "dev"
	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    serverName,
			Version: &version,
		},
	}, nil
}

func (s *Server) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	s.logger.Info("server initialized")
	return nil
}

func (s *Server) shutdown(ctx *glsp.Context) error {
	s.logger.Info("shutdown request received")
	s.shutdownCalled = true
	protocol.SetTraceValue(protocol.TraceValueOff)
	return nil
}

// exit handles the exit notification. Exit code is 0 if shutdown was
// called first, 1 otherwise, per the LSP lifecycle.
func (s *Server) exit(_ *glsp.Context) error {
	exitCode := 0
	if !s.shutdownCalled {
		s.logger.Warn("exit called without shutdown")
		exitCode = 1
	}
	s.logger.Info("exit notification received", slog.Int("exit_code", exitCode))
	os.Exit(exitCode)
	return nil
}

func (s *Server) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	s.logger.Debug("setTrace", slog.String("value", string(params.Value)))
	protocol.SetTraceValue(params.Value)
	return nil
}

// cancelRequest handles $/cancelRequest, marking the matching Incoming
// entry so its eventual response is replaced with [ErrRequestCancelled].
func (s *Server) cancelRequest(ctx *glsp.Context, params *protocol.CancelParams) error {
	s.logger.Debug("cancelRequest", slog.Any("id", params.ID))
	s.session.CancelRequest(params.ID)
	return nil
}

func (s *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	s.notifyCtx.Store(ctx)
	uri := params.TextDocument.URI
	s.logger.Debug("textDocument/didOpen",
		slog.String("uri", uri), slog.Int("version", int(params.TextDocument.Version)))

	if !isPythonURI(uri) {
		s.logger.Debug("ignoring didOpen for unsupported file type", slog.String("uri", uri))
		return nil
	}

	version := int(params.TextDocument.Version)
	text := params.TextDocument.Text
	s.session.PostNotification(func() {
		s.session.OpenDocument(uri, version, text)
	})
	return nil
}

func (s *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	s.notifyCtx.Store(ctx)
	uri := params.TextDocument.URI
	s.logger.Debug("textDocument/didChange",
		slog.String("uri", uri), slog.Int("version", int(params.TextDocument.Version)))

	if !isPythonURI(uri) {
		s.logger.Debug("ignoring didChange for unsupported file type", slog.String("uri", uri))
		return nil
	}

	version := int(params.TextDocument.Version)
	changes := toRangeChanges(params.ContentChanges)
	sys := s.session.CoordinateSystem()
	logger := s.logger

	s.session.PostNotification(func() {
		if len(changes) == 1 && !changes[0].hasRange {
			s.session.ChangeDocument(uri, version, changes[0].text)
			return
		}
		if len(changes) == 0 {
			return
		}

		logger.Warn("received incremental change, applying against server-side snapshot",
			slog.String("uri", uri), slog.Int("version", version))
		current, ok := s.session.documentText(uri)
		if !ok {
			return
		}
		merged := mergeIncrementalChanges(current, sys, changes, logger)
		s.session.ChangeDocument(uri, version, merged)
	})
	return nil
}

func (s *Server) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	s.notifyCtx.Store(ctx)
	uri := params.TextDocument.URI
	s.logger.Debug("textDocument/didClose", slog.String("uri", uri))

	if !isPythonURI(uri) {
		return nil
	}
	s.session.PostNotification(func() {
		s.session.CloseDocument(uri)
	})
	return nil
}

// textDocumentHover is the one language-feature entry point wired to real
// analysis content: it reports the message of any diagnostic covering the
// hovered position.
func (s *Server) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	uri := params.TextDocument.URI
	if !isPythonURI(uri) {
		return nil, nil
	}

	id := s.nextRequestID.Add(1)
	result := make(chan *protocol.Hover, 1)

	s.session.Hover(id, uri, int(params.Position.Line), int(params.Position.Character),
		func(message string, found bool, err error) {
			if err != nil || !found {
				result <- nil
				return
			}
			markdown := protocol.MarkupKindMarkdown
			result <- &protocol.Hover{
				Contents: protocol.MarkupContent{Kind: markdown, Value: message},
			}
		})

	return <-result, nil
}

// The remaining language features are not semantic capabilities this
// server implements; they stay thin no-op entry points so a client that
// advertises support for them gets an empty, well-formed reply instead of
// a protocol error.

func (s *Server) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	return nil, nil
}

func (s *Server) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	return nil, nil
}

func (s *Server) textDocumentDocumentSymbol(ctx *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	return nil, nil
}

func (s *Server) textDocumentFormatting(ctx *glsp.Context, params *protocol.DocumentFormattingParams) ([]protocol.TextEdit, error) {
	return nil, nil
}

func (s *Server) workspaceDidChangeWatchedFiles(ctx *glsp.Context, params *protocol.DidChangeWatchedFilesParams) error {
	for _, change := range params.Changes {
		s.logger.Debug("watched file changed",
			slog.String("uri", change.URI), slog.Int("type", int(change.Type)))
	}
	return nil
}

func (s *Server) workspaceDidChangeWorkspaceFolders(ctx *glsp.Context, params *protocol.DidChangeWorkspaceFoldersParams) error {
	for _, folder := range params.Event.Removed {
		s.logger.Debug("workspace folder removed", slog.String("uri", folder.URI))
	}
	for _, folder := range params.Event.Added {
		s.logger.Debug("workspace folder added", slog.String("uri", folder.URI))
	}
	return nil
}

func (s *Server) clientName(params *protocol.InitializeParams) string {
	if params.ClientInfo != nil {
		if params.ClientInfo.Version != nil {
			return params.ClientInfo.Name + " " + *params.ClientInfo.Version
		}
		return params.ClientInfo.Name
	}
	return "unknown"
}

func (s *Server) rootURI(params *protocol.InitializeParams) string {
	if params.RootURI != nil {
		return *params.RootURI
	}
	return ""
}

func (s *Server) logClientCapabilities(caps protocol.ClientCapabilities) {
	var features []string
	if caps.TextDocument != nil {
		if caps.TextDocument.Completion != nil {
			features = append(features, "completion")
		}
		if caps.TextDocument.Hover != nil {
			features = append(features, "hover")
		}
		if caps.TextDocument.Definition != nil {
			features = append(features, "definition")
		}
		if caps.TextDocument.DocumentSymbol != nil {
			features = append(features, "document-symbol")
		}
		if caps.TextDocument.Formatting != nil {
			features = append(features, "formatting")
		}
	}
	s.logger.Info("client capabilities", slog.Any("features", features))
}

// toRangeChanges adapts glsp's loosely-typed ContentChanges slice to the
// transport-agnostic shape [mergeIncrementalChanges] operates on.
func toRangeChanges(raw []any) []rangeChange {
	changes := make([]rangeChange, 0, len(raw))
	for _, item := range raw {
		switch change := item.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			changes = append(changes, rangeChange{hasRange: false, text: change.Text})
		case protocol.TextDocumentContentChangeEvent:
			if change.Range == nil {
				changes = append(changes, rangeChange{hasRange: false, text: change.Text})
				continue
			}
			changes = append(changes, rangeChange{
				hasRange:  true,
				startLine: int(change.Range.Start.Line), startChar: int(change.Range.Start.Character),
				endLine: int(change.Range.End.Line), endChar: int(change.Range.End.Character),
				text: change.Text,
			})
		}
	}
	return changes
}

func toProtocolDiagnostic(d diag.LSPDiagnostic) protocol.Diagnostic {
	source := d.Source
	return protocol.Diagnostic{
		Range: protocol.Range{
			Start: protocol.Position{Line: toUInteger(d.Range.Start.Line), Character: toUInteger(d.Range.Start.Character)},
			End:   protocol.Position{Line: toUInteger(d.Range.End.Line), Character: toUInteger(d.Range.End.Character)},
		},
		Severity:           convertSeverity(d.Severity),
		Code:               &protocol.IntegerOrString{Value: d.Code},
		Source:             &source,
		Message:            d.Message,
		RelatedInformation: convertRelatedInfo(d.RelatedInformation),
	}
}

// toUInteger safely converts an int to protocol.UInteger (uint32).
// Negative values are clamped to 0.
func toUInteger(n int) protocol.UInteger {
	if n < 0 {
		return 0
	}
	return protocol.UInteger(n) //nolint:gosec // clamped to non-negative
}

func convertSeverity(severity int) *protocol.DiagnosticSeverity {
	var s protocol.DiagnosticSeverity
	switch severity {
	case diag.LSPSeverityError:
		s = protocol.DiagnosticSeverityError
	case diag.LSPSeverityWarning:
		s = protocol.DiagnosticSeverityWarning
	case diag.LSPSeverityInformation:
		s = protocol.DiagnosticSeverityInformation
	case diag.LSPSeverityHint:
		s = protocol.DiagnosticSeverityHint
	default:
		s = protocol.DiagnosticSeverityError
	}
	return &s
}

func convertRelatedInfo(related []diag.LSPRelatedInfo) []protocol.DiagnosticRelatedInformation {
	if len(related) == 0 {
		return nil
	}
	result := make([]protocol.DiagnosticRelatedInformation, 0, len(related))
	for _, rel := range related {
		uri := rel.Location.URI
		if !hasURIScheme(uri) {
			uri = PathToURI(uri)
		}
		result = append(result, protocol.DiagnosticRelatedInformation{
			Location: protocol.Location{
				URI: uri,
				Range: protocol.Range{
					Start: protocol.Position{Line: toUInteger(rel.Location.Range.Start.Line), Character: toUInteger(rel.Location.Range.Start.Character)},
					End:   protocol.Position{Line: toUInteger(rel.Location.Range.End.Line), Character: toUInteger(rel.Location.Range.End.Character)},
				},
			},
			Message: rel.Message,
		})
	}
	return result
}
