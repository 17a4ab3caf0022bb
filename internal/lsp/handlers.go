package lsp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jward/sqfls"
)

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("lsp: missing params")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("lsp: decode params: %w", err)
	}
	return nil
}

// =============================================================================
// Text synchronization
// =============================================================================

func (s *Server) onDidOpen(ctx context.Context, raw json.RawMessage) error {
	var p DidOpenTextDocumentParams
	if err := decode(raw, &p); err != nil {
		return err
	}
	path, err := sqfls.PathFromURI(p.TextDocument.URI)
	if err != nil {
		return err
	}
	s.logger.Info("lsp.open", "path", path)
	s.mu.Lock()
	s.open[path] = p.TextDocument.Text
	s.mu.Unlock()
	s.schedule(ctx, path, p.TextDocument.Text)
	return nil
}

func (s *Server) onDidChange(ctx context.Context, raw json.RawMessage) error {
	var p DidChangeTextDocumentParams
	if err := decode(raw, &p); err != nil {
		return err
	}
	if len(p.ContentChanges) == 0 {
		return nil
	}
	path, err := sqfls.PathFromURI(p.TextDocument.URI)
	if err != nil {
		return err
	}
	// Full sync: the last change carries the whole document.
	src := p.ContentChanges[len(p.ContentChanges)-1].Text
	s.logger.Info("lsp.change", "path", path, "version", p.TextDocument.Version)
	s.mu.Lock()
	s.open[path] = src
	s.mu.Unlock()
	s.schedule(ctx, path, src)
	return nil
}

func (s *Server) onDidClose(raw json.RawMessage) error {
	var p DidCloseTextDocumentParams
	if err := decode(raw, &p); err != nil {
		return err
	}
	path, err := sqfls.PathFromURI(p.TextDocument.URI)
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.open, path)
	s.mu.Unlock()
	s.current().Close(path)
	return nil
}

// onDidChangeConfiguration starts a fresh session with the new settings and
// replays every open document into it.
func (s *Server) onDidChangeConfiguration(ctx context.Context, raw json.RawMessage) error {
	var p DidChangeConfigurationParams
	if err := decode(raw, &p); err != nil {
		return err
	}
	s.mu.Lock()
	cfg := s.cfg
	if err := mergeConfig(&cfg, p.Settings); err != nil {
		s.mu.Unlock()
		return err
	}
	s.cfg = cfg
	s.session = s.newSession(cfg)
	open := make(map[string]string, len(s.open))
	for path, src := range s.open {
		open[path] = src
	}
	s.mu.Unlock()

	s.logger.Info("lsp.configuration", "documents", len(open))
	for path, src := range open {
		s.schedule(ctx, path, src)
	}
	return nil
}

// =============================================================================
// Queries
// =============================================================================

// locate maps a text document position to a cached entry and byte offset.
func (s *Server) locate(p TextDocumentPositionParams) (*sqfls.Entry, string, int, error) {
	path, err := sqfls.PathFromURI(p.TextDocument.URI)
	if err != nil {
		return nil, "", 0, err
	}
	e := s.current().Entry(path)
	if e == nil {
		return nil, path, 0, nil
	}
	return e, path, e.Text.Offset(p.Position), nil
}

func (s *Server) onHover(raw json.RawMessage) (any, error) {
	var p TextDocumentPositionParams
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	e, path, off, err := s.locate(p)
	if err != nil || e == nil {
		return nil, err
	}
	doc, span, ok := s.current().Query().Hover(path, off)
	if !ok {
		return nil, nil
	}
	r := e.Text.Range(span.Start, span.End)
	return Hover{Contents: MarkupContent{Kind: "markdown", Value: doc}, Range: &r}, nil
}

func (s *Server) onDefinition(raw json.RawMessage) (any, error) {
	var p TextDocumentPositionParams
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	e, path, off, err := s.locate(p)
	if err != nil || e == nil {
		return nil, err
	}
	loc, ok := s.current().Query().Definition(path, off)
	if !ok {
		return nil, nil
	}
	s.logger.Info("lsp.definition", "from", path, "to", loc.Path)
	return Location{URI: sqfls.URIFromPath(loc.Path), Range: loc.Range}, nil
}

func (s *Server) onCompletion(raw json.RawMessage) (any, error) {
	var p TextDocumentPositionParams
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	path, err := sqfls.PathFromURI(p.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	items := s.current().Query().Completion(path)
	out := make([]CompletionItem, 0, len(items))
	for _, it := range items {
		c := CompletionItem{Label: it.Label, Kind: int(it.Kind), Detail: it.Detail}
		if it.Documentation != "" {
			c.Documentation = &MarkupContent{Kind: "markdown", Value: it.Documentation}
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *Server) onSemanticTokensFull(raw json.RawMessage) (any, error) {
	var p SemanticTokensParams
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	path, err := sqfls.PathFromURI(p.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	data, ok := s.current().Query().SemanticTokens(path)
	if !ok {
		return nil, nil
	}
	return SemanticTokens{Data: data}, nil
}

func (s *Server) onSemanticTokensRange(raw json.RawMessage) (any, error) {
	var p SemanticTokensRangeParams
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	path, err := sqfls.PathFromURI(p.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	data, ok := s.current().Query().SemanticTokensRange(path, p.Range)
	if !ok {
		return nil, nil
	}
	return SemanticTokens{Data: data}, nil
}

func (s *Server) onInlayHint(raw json.RawMessage) (any, error) {
	var p InlayHintParams
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	path, err := sqfls.PathFromURI(p.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	out := []InlayHint{}
	for _, h := range s.current().Query().InlayHints(path) {
		if !within(h.Position, p.Range) {
			continue
		}
		out = append(out, InlayHint{Position: h.Position, Label: h.Label, Kind: int(h.Kind)})
	}
	return out, nil
}

// within reports whether pos lies in r, ends inclusive.
func within(pos Position, r Range) bool {
	before := func(a, b Position) bool {
		return a.Line < b.Line || (a.Line == b.Line && a.Character < b.Character)
	}
	return !before(pos, r.Start) && !before(r.End, pos)
}
