// Package lsp serves a sqfls Session over the Language Server Protocol on a
// pair of byte streams, normally stdin and stdout.
package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/viant/afs"

	"github.com/jward/sqfls"
	"github.com/jward/sqfls/internal/store"
	"github.com/jward/sqfls/internal/text"
)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. Info and above are also mirrored to the
// client as window/logMessage.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithConfig sets the configuration initializationOptions are merged over.
func WithConfig(cfg sqfls.Config) Option {
	return func(s *Server) {
		s.base = cfg
	}
}

// WithIndex mirrors the session into a SQLite index.
func WithIndex(st *store.Store) Option {
	return func(s *Server) {
		s.index = st
	}
}

// WithSessionOptions appends options to every session the server creates.
func WithSessionOptions(opts ...sqfls.SessionOption) Option {
	return func(s *Server) {
		s.sessionOpts = append(s.sessionOpts, opts...)
	}
}

// Server dispatches LSP messages to a Session.
type Server struct {
	in     *bufio.Reader
	conn   *conn
	logger *slog.Logger
	base   sqfls.Config
	index  *store.Store
	fs     afs.Service

	sessionOpts []sqfls.SessionOption

	mu      sync.RWMutex
	session *sqfls.Session
	cfg     sqfls.Config
	open    map[string]string // path -> latest text

	qmu    sync.Mutex
	queues map[string]*editQueue
	wg     sync.WaitGroup

	shutdown bool
}

// NewServer creates a server reading requests from in and writing to out.
func NewServer(in io.Reader, out io.Writer, opts ...Option) *Server {
	s := &Server{
		in:     bufio.NewReader(in),
		conn:   &conn{out: out},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		fs:     afs.New(),
		open:   make(map[string]string),
		queues: make(map[string]*editQueue),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = slog.New(newClientHandler(s.logger.Handler(), slog.LevelInfo, func(p LogMessageParams) {
		_ = s.conn.notify("window/logMessage", p)
	}))
	return s
}

// Run reads and dispatches messages until exit or end of input. Pending
// edits finish before Run returns.
func (s *Server) Run(ctx context.Context) error {
	defer s.wg.Wait()
	for {
		body, err := ReadMessage(s.in)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		var req Request
		if err := json.Unmarshal(body, &req); err != nil {
			_ = s.conn.reply(nil, nil, &ResponseError{Code: CodeParseError, Message: err.Error()})
			continue
		}
		if req.Method == "exit" {
			return nil
		}
		s.dispatch(ctx, &req)
	}
}

func (s *Server) dispatch(ctx context.Context, req *Request) {
	isRequest := len(req.ID) > 0

	switch req.Method {
	case "initialize":
		s.onInitialize(req)
		return
	case "initialized":
		return
	case "shutdown":
		s.shutdown = true
		_ = s.conn.reply(req.ID, nil, nil)
		return
	}

	if s.shutdown {
		if isRequest {
			_ = s.conn.reply(req.ID, nil, &ResponseError{Code: CodeInvalidRequest, Message: "server is shutting down"})
		}
		return
	}
	if s.current() == nil {
		if isRequest {
			_ = s.conn.reply(req.ID, nil, &ResponseError{Code: CodeServerNotInitialized, Message: "server not initialized"})
		}
		return
	}

	var (
		result any
		err    error
	)
	switch req.Method {
	case "textDocument/didOpen":
		err = s.onDidOpen(ctx, req.Params)
	case "textDocument/didChange":
		err = s.onDidChange(ctx, req.Params)
	case "textDocument/didClose":
		err = s.onDidClose(req.Params)
	case "workspace/didChangeConfiguration":
		err = s.onDidChangeConfiguration(ctx, req.Params)
	case "textDocument/hover":
		result, err = s.onHover(req.Params)
	case "textDocument/definition":
		result, err = s.onDefinition(req.Params)
	case "textDocument/completion":
		result, err = s.onCompletion(req.Params)
	case "textDocument/semanticTokens/full":
		result, err = s.onSemanticTokensFull(req.Params)
	case "textDocument/semanticTokens/range":
		result, err = s.onSemanticTokensRange(req.Params)
	case "textDocument/inlayHint":
		result, err = s.onInlayHint(req.Params)
	default:
		if isRequest {
			_ = s.conn.reply(req.ID, nil, &ResponseError{Code: CodeMethodNotFound, Message: "method not found: " + req.Method})
		}
		return
	}

	if err != nil {
		s.logger.Debug("lsp.error", "method", req.Method, "err", err)
	}
	if !isRequest {
		return
	}
	if err != nil {
		_ = s.conn.reply(req.ID, nil, &ResponseError{Code: CodeInvalidParams, Message: err.Error()})
		return
	}
	_ = s.conn.reply(req.ID, result, nil)
}

func (s *Server) onInitialize(req *Request) {
	var params InitializeParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			_ = s.conn.reply(req.ID, nil, &ResponseError{Code: CodeInvalidParams, Message: err.Error()})
			return
		}
	}
	cfg := s.base
	if err := mergeConfig(&cfg, params.InitializationOptions); err != nil {
		_ = s.conn.reply(req.ID, nil, &ResponseError{Code: CodeInvalidParams, Message: err.Error()})
		return
	}
	s.mu.Lock()
	s.cfg = cfg
	s.session = s.newSession(cfg)
	s.mu.Unlock()

	s.logger.Info("lsp.initialize", "root", params.RootURI)
	_ = s.conn.reply(req.ID, InitializeResult{
		Capabilities: ServerCapabilities{
			TextDocumentSync:   TextDocumentSyncOptions{OpenClose: true, Change: 1},
			HoverProvider:      true,
			DefinitionProvider: true,
			CompletionProvider: &CompletionOptions{},
			SemanticTokensProvider: &SemanticTokensOptions{
				Legend: SemanticTokensLegend{TokenTypes: sqfls.SemanticTokensLegend(), TokenModifiers: []string{}},
				Full:   true,
				Range:  true,
			},
			InlayHintProvider: true,
		},
		ServerInfo: ServerInfo{Name: "sqfls"},
	}, nil)
}

// mergeConfig overlays the keys present in raw onto cfg. Settings may be
// nested under a "sqfls" key.
func mergeConfig(cfg *sqfls.Config, raw json.RawMessage) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var wrapped struct {
		SQFLS json.RawMessage `json:"sqfls"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && len(wrapped.SQFLS) > 0 {
		raw = wrapped.SQFLS
	}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("lsp: configuration: %w", err)
	}
	return nil
}

func (s *Server) newSession(cfg sqfls.Config) *sqfls.Session {
	opts := []sqfls.SessionOption{
		sqfls.WithConfig(cfg),
		sqfls.WithLogger(s.logger),
		sqfls.WithDiagnostics(s.publish),
	}
	if s.index != nil {
		opts = append(opts, sqfls.WithIndex(s.index))
	}
	return sqfls.NewSession(append(opts, s.sessionOpts...)...)
}

func (s *Server) current() *sqfls.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// =============================================================================
// Edit queue
// =============================================================================

// editQueue runs the edits of one file in order on its own goroutine,
// skipping texts superseded before their analysis started.
type editQueue struct {
	mu      sync.Mutex
	next    *string
	running bool
}

func (s *Server) schedule(ctx context.Context, path, src string) {
	s.qmu.Lock()
	q, ok := s.queues[path]
	if !ok {
		q = &editQueue{}
		s.queues[path] = q
	}
	s.qmu.Unlock()

	q.mu.Lock()
	q.next = &src
	if q.running {
		q.mu.Unlock()
		return
	}
	q.running = true
	q.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			q.mu.Lock()
			if q.next == nil {
				q.running = false
				q.mu.Unlock()
				return
			}
			src := *q.next
			q.next = nil
			q.mu.Unlock()

			if _, err := s.current().Replace(ctx, path, src); err != nil {
				s.logger.Warn("lsp.replace", "path", path, "err", err)
			}
		}
	}()
}

// =============================================================================
// Diagnostics
// =============================================================================

// publish is the session's diagnostics callback.
func (s *Server) publish(path string, diags []sqfls.Diagnostic) {
	buf := s.buffer(path)
	out := make([]Diagnostic, 0, len(diags))
	for _, d := range diags {
		out = append(out, Diagnostic{
			Range:    buf.Range(d.Span.Start, d.Span.End),
			Severity: int(d.Severity),
			Code:     d.Code,
			Source:   "sqfls",
			Message:  d.Message,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Range.Start, out[j].Range.Start
		return a.Line < b.Line || (a.Line == b.Line && a.Character < b.Character)
	})
	_ = s.conn.notify("textDocument/publishDiagnostics", PublishDiagnosticsParams{
		URI:         sqfls.URIFromPath(path),
		Diagnostics: out,
	})
}

// buffer returns the text diagnostics for path are positioned against:
// the cached entry, else the file on disk.
func (s *Server) buffer(path string) *text.Buffer {
	if sess := s.current(); sess != nil {
		if e := sess.Entry(path); e != nil {
			return e.Text
		}
	}
	data, err := s.fs.DownloadWithURL(context.Background(), path)
	if err != nil {
		return text.New("")
	}
	return text.New(string(data))
}
