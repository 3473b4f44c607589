package lsp

import (
	"context"
	"errors"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/caldera-dev/caldera/diag"
	"github.com/caldera-dev/caldera/location"
	"github.com/caldera-dev/caldera/query"
	"github.com/caldera-dev/caldera/rules"
	"github.com/caldera-dev/caldera/store"
	"github.com/caldera-dev/caldera/vfs"
)

// RequestState is the lifecycle state of an entry in the Incoming table.
type RequestState uint8

const (
	// StateInFlight is the state of a request from receipt until a
	// response has been sent or a cancellation has been observed.
	StateInFlight RequestState = iota
	// StateCancelled marks a request whose client issued $/cancelRequest
	// before a response was produced.
	StateCancelled
)

// ErrRequestCancelled is delivered to a response handler exactly once for
// a request that was cancelled before its work completed.
var ErrRequestCancelled = errors.New("lsp: request cancelled")

type eventKind uint8

const (
	eventIncomingRequest eventKind = iota
	eventIncomingNotification
	eventOutgoingResponse
	eventRetryRequest
	eventShutdown
)

// sessionEvent is the single event type flowing through [Session]'s main
// loop channel: IncomingRequest, IncomingNotification, OutgoingResponse,
// RetryRequest, and Shutdown.
type sessionEvent struct {
	kind   eventKind
	id     any
	notify func()
	result any
	err    error
}

// incomingEntry is the Incoming queue entry: a client-assigned request id
// mapped to its method name and cancellation state.
type incomingEntry struct {
	method string
	state  RequestState
}

// outgoingEntry is the Outgoing queue entry: the response handler closure
// plus the bookkeeping needed to retry the request's work after an edit
// invalidates the file it depends on.
type outgoingEntry struct {
	respond func(result any, err error)
	work    func(ctx context.Context) (any, error)
	cancel  context.CancelFunc
	file    store.File
	hasFile bool
}

type sessionDocument struct {
	uri     string
	file    store.File
	version int
}

// Session mediates one long-lived editor connection: it owns every open
// document, the Incoming/Outgoing request correlation tables, and the
// single-threaded main loop that is the sole mutator of that state. Heavy
// analysis work is farmed out to a bounded worker pool; results return as
// events rather than being written directly, so the loop never blocks on
// rule evaluation and never races on its own maps.
type Session struct {
	logger   *slog.Logger
	store    *store.Store
	fsys     vfs.Writable
	engine   *query.Engine
	checker  *rules.Checker
	renderer *diag.Renderer
	sources  *storeSourceProvider

	events  chan sessionEvent
	group   *errgroup.Group
	sem     *semaphore.Weighted
	baseCtx context.Context

	incoming    map[any]*incomingEntry
	outgoing    map[any]*outgoingEntry
	retrying    map[any]bool
	fileWaiters map[store.File]map[any]struct{}

	documents map[string]*sessionDocument
	selection rules.RuleSelection
	coordSys  location.CoordinateSystem

	// Publish delivers the diagnostics computed for uri to the client.
	// Set by Server before Run starts; left nil in tests that only
	// exercise Session's own bookkeeping.
	Publish func(uri string, diagnostics []diag.LSPDiagnostic)
}

// storeSourceProvider lets [diag.Renderer] resolve a [location.SourceID]
// back to file content without Session exposing its store and file table
// directly to the rendering layer.
type storeSourceProvider struct {
	store    *store.Store
	byFile   map[location.SourceID]store.File
}

func (p *storeSourceProvider) Content(span location.Span) ([]byte, bool) {
	file, ok := p.byFile[span.Source]
	if !ok {
		return nil, false
	}
	content, err := p.store.Read(context.Background(), file)
	if err != nil {
		return nil, false
	}
	return content, true
}

func (p *storeSourceProvider) LineStartByte(source location.SourceID, line int) (int, bool) {
	file, ok := p.byFile[source]
	if !ok {
		return 0, false
	}
	content, err := p.store.Read(context.Background(), file)
	if err != nil {
		return 0, false
	}
	return location.NewLineIndex(content).LineStartOffset(line)
}

// NewSession constructs a Session over an already-wired store, query
// engine, and checker. fsys must implement [vfs.Writable]: document edits
// are applied by writing the overlay content through it, exactly the way
// [rules.ApplyFixes] applies a fix, rather than through any bespoke
// in-memory overlay map.
func NewSession(logger *slog.Logger, fsys vfs.Writable, st *store.Store, engine *query.Engine, checker *rules.Checker) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	workers := max(2, runtime.GOMAXPROCS(0))
	return &Session{
		logger:  logger.With(slog.String("component", "session")),
		store:   st,
		fsys:    fsys,
		engine:  engine,
		checker: checker,
		sources: &storeSourceProvider{store: st, byFile: make(map[location.SourceID]store.File)},

		events: make(chan sessionEvent, 64),
		group:  &errgroup.Group{},
		sem:    semaphore.NewWeighted(int64(workers)),

		incoming:    make(map[any]*incomingEntry),
		outgoing:    make(map[any]*outgoingEntry),
		retrying:    make(map[any]bool),
		fileWaiters: make(map[store.File]map[any]struct{}),

		documents: make(map[string]*sessionDocument),
		selection: rules.DefaultSelection(),
		coordSys:  location.UTF16,
	}
}

func (s *Session) ensureRenderer() *diag.Renderer {
	if s.renderer == nil {
		s.renderer = diag.NewRenderer(diag.WithSourceProvider(s.sources))
	}
	return s.renderer
}

// SetCoordinateSystem records the position encoding negotiated with the
// client at initialize time.
func (s *Session) SetCoordinateSystem(sys location.CoordinateSystem) {
	s.coordSys = sys
}

// CoordinateSystem returns the negotiated position encoding.
func (s *Session) CoordinateSystem() location.CoordinateSystem {
	return s.coordSys
}

// SetSelection replaces the rule selection applied to every subsequent
// Check. Existing published diagnostics are not retroactively recomputed;
// callers should follow with a re-publish of open documents if needed.
func (s *Session) SetSelection(sel rules.RuleSelection) {
	s.selection = sel
}

// post enqueues ev onto the session's event channel. It is the only way
// code outside the main loop goroutine (glsp callbacks, worker results)
// touches session state.
func (s *Session) post(ev sessionEvent) {
	select {
	case s.events <- ev:
	case <-s.baseCtx.Done():
	}
}

// PostNotification enqueues a fire-and-forget event. Notifications bypass
// the Incoming/Outgoing correlation tables entirely.
func (s *Session) PostNotification(fn func()) {
	s.post(sessionEvent{kind: eventIncomingNotification, notify: fn})
}

// PostRequest enqueues a correlated request identified by id. work runs on
// the worker pool; respond is invoked from the main loop exactly once,
// either with work's result, with an error, or with [ErrRequestCancelled]
// if $/cancelRequest arrived first. If file is non-zero, an edit to that
// file while the request is in flight causes it to be retried rather than
// failed.
func (s *Session) PostRequest(id any, method string, file store.File, hasFile bool, work func(ctx context.Context) (any, error), respond func(result any, err error)) {
	s.post(sessionEvent{kind: eventIncomingRequest, id: id, notify: func() {
		s.dispatchRequest(id, method, file, hasFile, work, respond)
	}})
}

// CancelRequest marks id as cancelled. If a response later arrives for id,
// it is replaced with [ErrRequestCancelled] rather than delivered.
func (s *Session) CancelRequest(id any) {
	s.post(sessionEvent{kind: eventIncomingNotification, notify: func() {
		if entry, ok := s.incoming[id]; ok {
			entry.state = StateCancelled
		}
	}})
}

// Shutdown stops the main loop after draining in-flight work.
func (s *Session) Shutdown() {
	s.post(sessionEvent{kind: eventShutdown})
}

// Run is the single-threaded cooperative main loop: the sole reader of
// the event channel and the sole mutator of incoming/outgoing/documents.
// It returns when a Shutdown event is processed or ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	s.baseCtx = ctx
	for {
		select {
		case <-ctx.Done():
			_ = s.group.Wait()
			return ctx.Err()
		case ev := <-s.events:
			if ev.kind == eventShutdown {
				_ = s.group.Wait()
				return nil
			}
			s.handle(ev)
		}
	}
}

func (s *Session) handle(ev sessionEvent) {
	switch ev.kind {
	case eventIncomingNotification, eventIncomingRequest:
		if ev.notify != nil {
			ev.notify()
		}
	case eventOutgoingResponse:
		s.deliverResponse(ev)
	case eventRetryRequest:
		s.retryRequest(ev.id)
	}
}

func (s *Session) dispatchRequest(id any, method string, file store.File, hasFile bool, work func(ctx context.Context) (any, error), respond func(any, error)) {
	s.supersede(id)

	reqCtx, cancel := context.WithCancel(s.baseCtx)
	s.incoming[id] = &incomingEntry{method: method, state: StateInFlight}
	s.outgoing[id] = &outgoingEntry{respond: respond, work: work, cancel: cancel, file: file, hasFile: hasFile}
	if hasFile {
		if s.fileWaiters[file] == nil {
			s.fileWaiters[file] = make(map[any]struct{})
		}
		s.fileWaiters[file][id] = struct{}{}
	}

	s.runWork(reqCtx, id, work)
}

func (s *Session) runWork(ctx context.Context, id any, work func(ctx context.Context) (any, error)) {
	s.group.Go(func() error {
		if err := s.sem.Acquire(ctx, 1); err != nil {
			s.post(sessionEvent{kind: eventOutgoingResponse, id: id, err: ctx.Err()})
			return nil
		}
		result, err := work(ctx)
		s.sem.Release(1)
		s.post(sessionEvent{kind: eventOutgoingResponse, id: id, result: result, err: err})
		return nil
	})
}

func (s *Session) retryRequest(id any) {
	out, ok := s.outgoing[id]
	if !ok {
		return
	}
	reqCtx, cancel := context.WithCancel(s.baseCtx)
	out.cancel = cancel
	s.runWork(reqCtx, id, out.work)
}

func (s *Session) deliverResponse(ev sessionEvent) {
	in, hasIn := s.incoming[ev.id]
	out, hasOut := s.outgoing[ev.id]
	if !hasIn || !hasOut {
		return
	}

	if s.retrying[ev.id] {
		delete(s.retrying, ev.id)
		s.post(sessionEvent{kind: eventRetryRequest, id: ev.id})
		return
	}

	delete(s.incoming, ev.id)
	delete(s.outgoing, ev.id)
	if out.hasFile {
		delete(s.fileWaiters[out.file], ev.id)
	}

	if in.state == StateCancelled {
		out.respond(nil, ErrRequestCancelled)
		return
	}
	out.respond(ev.result, ev.err)
}

// supersede drops any bookkeeping for id without invoking its response
// handler. Used to replace an internal (non-client-visible) pseudo
// request, such as a pending diagnostics publish, rather than retry it.
func (s *Session) supersede(id any) {
	out, ok := s.outgoing[id]
	if !ok {
		return
	}
	out.cancel()
	delete(s.incoming, id)
	delete(s.outgoing, id)
	delete(s.retrying, id)
	if out.hasFile {
		delete(s.fileWaiters[out.file], id)
	}
}

// invalidateFile arranges for every request currently waiting on file to
// be retried: their contexts are cancelled, but deliverResponse will
// re-post them as RetryRequest events instead of delivering the
// resulting cancellation error to the client.
func (s *Session) invalidateFile(file store.File) {
	for id := range s.fileWaiters[file] {
		if out, ok := s.outgoing[id]; ok {
			s.retrying[id] = true
			out.cancel()
		}
	}
}

// diagnosticsID names the internal pseudo-request used to track the
// in-flight (and retryable-on-edit) Check call backing a document's
// published diagnostics.
type diagnosticsID string

func diagnosticsRequestID(uri string) diagnosticsID {
	return diagnosticsID("diagnostics:" + uri)
}

// OpenDocument records a newly opened document, writes its content
// through the backing filesystem, interns it into the File Store, and
// schedules its first analysis.
func (s *Session) OpenDocument(uri string, version int, text string) {
	path, err := URIToPath(uri)
	if err != nil {
		s.logger.Warn("failed to parse document URI", slog.String("uri", uri), slog.String("error", err.Error()))
		return
	}

	text = normalizeLineEndings(text)
	if err := s.fsys.WriteFile(path, []byte(text)); err != nil {
		s.logger.Warn("failed to write document overlay", slog.String("uri", uri), slog.String("error", err.Error()))
		return
	}

	file, err := s.store.Intern(path, store.KindSource)
	if err != nil {
		s.logger.Warn("failed to intern document", slog.String("uri", uri), slog.String("error", err.Error()))
		return
	}
	if sourceID, ok := s.store.Path(file); ok {
		s.sources.byFile[sourceID] = file
	}

	s.documents[uri] = &sessionDocument{uri: uri, file: file, version: version}
	s.analyzeAndPublish(uri)
}

// ChangeDocument applies a full-text content change, bumps the File
// Store's revision for the affected file, and retries or reschedules any
// analysis that depended on the old content.
func (s *Session) ChangeDocument(uri string, version int, text string) {
	doc, ok := s.documents[uri]
	if !ok {
		return
	}
	if version != 0 && doc.version != 0 && version <= doc.version {
		s.logger.Debug("ignoring stale document change",
			slog.String("uri", uri), slog.Int("version", version))
		return
	}
	doc.version = version

	path, err := URIToPath(uri)
	if err != nil {
		return
	}
	text = normalizeLineEndings(text)
	if err := s.fsys.WriteFile(path, []byte(text)); err != nil {
		s.logger.Warn("failed to write document overlay", slog.String("uri", uri), slog.String("error", err.Error()))
		return
	}
	if err := s.store.Sync(doc.file); err != nil {
		s.logger.Warn("failed to sync document", slog.String("uri", uri), slog.String("error", err.Error()))
		return
	}
	s.engine.Bump()

	s.invalidateFile(doc.file)
	s.analyzeAndPublish(uri)
}

// documentText returns the current content of an open document, read
// through the File Store so it reflects the last successful Sync. Used
// as the base text for merging an incremental change a client sent
// despite the server negotiating full-document sync.
func (s *Session) documentText(uri string) (string, bool) {
	doc, ok := s.documents[uri]
	if !ok {
		return "", false
	}
	content, err := s.store.Read(s.baseCtx, doc.file)
	if err != nil {
		return "", false
	}
	return string(content), true
}

// CloseDocument removes a document from the session and clears its
// published diagnostics.
func (s *Session) CloseDocument(uri string) {
	if _, ok := s.documents[uri]; !ok {
		return
	}
	s.supersede(diagnosticsRequestID(uri))
	delete(s.documents, uri)
	if s.Publish != nil {
		s.Publish(uri, nil)
	}
}

func (s *Session) analyzeAndPublish(uri string) {
	doc, ok := s.documents[uri]
	if !ok {
		return
	}
	id := diagnosticsRequestID(uri)
	file := doc.file
	s.dispatchRequest(id, "caldera/publishDiagnostics", file, true,
		func(ctx context.Context) (any, error) {
			return s.checker.Check(ctx, s.selection, file)
		},
		func(result any, err error) {
			s.publishResult(uri, result, err)
		})
}

func (s *Session) publishResult(uri string, result any, err error) {
	if errors.Is(err, ErrRequestCancelled) || errors.Is(err, context.Canceled) {
		return
	}
	if err != nil {
		s.logger.Error("analysis failed", slog.String("uri", uri), slog.String("error", err.Error()))
		return
	}
	diagnostics, _ := result.([]diag.Diagnostic)

	lspDiags := make([]diag.LSPDiagnostic, 0, len(diagnostics))
	renderer := s.ensureRenderer()
	for _, d := range diagnostics {
		if lspDiag := renderer.LSPDiagnostic(d); lspDiag != nil {
			lspDiags = append(lspDiags, *lspDiag)
		}
	}

	if s.Publish != nil {
		s.Publish(uri, lspDiags)
	}
}

// Hover looks up any diagnostic covering the given position in an open
// document and returns its message, running the lookup through the same
// request-correlation machinery as a real client request. This is the one
// thin entry point wired to real content; document symbols, definition,
// completion, and formatting are not semantic features this core
// provides (those stay external collaborators) and are stubbed directly
// in [Server] without going through Check at all.
func (s *Session) Hover(id any, uri string, lspLine, lspChar int, respond func(message string, found bool, err error)) {
	doc, ok := s.documents[uri]
	if !ok {
		respond("", false, nil)
		return
	}
	file := doc.file
	sys := s.coordSys

	s.PostRequest(id, "textDocument/hover", file, true,
		func(ctx context.Context) (any, error) {
			content, err := s.store.Read(ctx, file)
			if err != nil {
				return nil, err
			}
			offset, ok := PositionFromLSP(content, sys, lspLine, lspChar)
			if !ok {
				return nil, nil
			}
			diagnostics, err := s.checker.Check(ctx, s.selection, file)
			if err != nil {
				return nil, err
			}
			for _, d := range diagnostics {
				span := d.Span()
				if !span.IsZero() && span.Start.Byte <= offset && offset < span.End.Byte {
					return d.Message(), nil
				}
			}
			return nil, nil
		},
		func(result any, err error) {
			message, ok := result.(string)
			respond(message, ok, err)
		})
}
