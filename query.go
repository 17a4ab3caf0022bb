package sqfls

import (
	"fmt"
	"sort"

	"github.com/jward/sqfls/internal/sqf"
	"github.com/jward/sqfls/internal/text"
)

// QueryBuilder answers editor queries from the session's cached entries.
// Queries never trigger analysis and never wait for one.
type QueryBuilder struct {
	session *Session
}

// Location is a range inside a file.
type Location struct {
	Path  string
	Range Range
}

// InlayHintKind matches the LSP inlay hint kinds.
type InlayHintKind int

const (
	InlayType      InlayHintKind = 1
	InlayParameter InlayHintKind = 2
)

// InlayHint is an inline annotation at a position.
type InlayHint struct {
	Position Position
	Label    string
	Kind     InlayHintKind
}

// CompletionKind matches the LSP completion item kinds used here.
type CompletionKind int

const (
	CompletionFunction CompletionKind = 3
	CompletionVariable CompletionKind = 6
	CompletionConstant CompletionKind = 21
)

// CompletionItem is one completion candidate. Documentation is markdown.
type CompletionItem struct {
	Label         string
	Kind          CompletionKind
	Detail        string
	Documentation string
}

// SemanticTokensLegend lists the token type names in index order.
func SemanticTokensLegend() []string {
	return append([]string(nil), sqf.Legend...)
}

func (q *QueryBuilder) live(path string) (*Entry, bool) {
	e := q.session.Entry(path)
	if e == nil || e.Result == nil {
		return nil, false
	}
	return e, true
}

// Hover returns the explanation of the smallest span containing offset.
func (q *QueryBuilder) Hover(path string, offset int) (string, Span, bool) {
	e, ok := q.live(path)
	if !ok {
		return "", Span{}, false
	}
	var (
		best  Span
		found bool
	)
	for sp := range e.Result.Explanations {
		if !sp.Contains(offset) {
			continue
		}
		if !found || narrower(sp, best) {
			best, found = sp, true
		}
	}
	if !found {
		return "", Span{}, false
	}
	return e.Result.Explanations[best], best, true
}

// narrower orders candidate spans: smaller first, then leftmost.
func narrower(a, b Span) bool {
	if a.Len() != b.Len() {
		return a.Len() < b.Len()
	}
	return a.Start < b.Start
}

// Definition locates the definition of the symbol at offset. External
// definitions whose file is not cached, or whose span is unknown, point at
// the start of that file.
func (q *QueryBuilder) Definition(path string, offset int) (*Location, bool) {
	e, ok := q.live(path)
	if !ok {
		return nil, false
	}
	var (
		best  Span
		found bool
	)
	for sp := range e.Result.Origins {
		if !sp.Contains(offset) {
			continue
		}
		if !found || narrower(sp, best) {
			best, found = sp, true
		}
	}
	if !found {
		return nil, false
	}

	origin := e.Result.Origins[best]
	switch origin.Kind {
	case sqf.OriginInFile:
		return &Location{Path: e.Path, Range: e.Text.Range(origin.Span.Start, origin.Span.End)}, true
	case sqf.OriginExternal:
		loc := &Location{Path: origin.Path}
		foreign := q.session.Entry(origin.Path)
		if foreign != nil && origin.ExternalSpan != nil {
			loc.Range = foreign.Text.Range(origin.ExternalSpan.Start, origin.ExternalSpan.End)
		}
		return loc, true
	}
	return nil, false
}

// SemanticTokens encodes the file's tokens as LSP relative quintuples
// (deltaLine, deltaStart, length, type, modifiers).
func (q *QueryBuilder) SemanticTokens(path string) ([]uint32, bool) {
	e, ok := q.live(path)
	if !ok {
		return nil, false
	}
	return encodeTokens(e.Text, e.Result.Tokens, 0, e.Text.Len()), true
}

// SemanticTokensRange encodes only the tokens overlapping r.
func (q *QueryBuilder) SemanticTokensRange(path string, r Range) ([]uint32, bool) {
	e, ok := q.live(path)
	if !ok {
		return nil, false
	}
	start, end := e.Text.Offset(r.Start), e.Text.Offset(r.End)
	return encodeTokens(e.Text, e.Result.Tokens, start, end), true
}

// encodeTokens delta-encodes the tokens overlapping [from, to). A token
// spanning several lines is split at each line end.
func encodeTokens(buf *text.Buffer, tokens []SemanticToken, from, to int) []uint32 {
	sorted := append([]SemanticToken(nil), tokens...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Span.Start < sorted[j].Span.Start })

	out := []uint32{}
	prevLine, prevChar := 0, 0
	push := func(start, end int, kind sqf.SemanticKind) {
		n := buf.UTF16Len(start, end)
		if n == 0 {
			return
		}
		pos := buf.Position(start)
		dl := pos.Line - prevLine
		dc := pos.Character
		if dl == 0 {
			dc -= prevChar
		}
		out = append(out, uint32(dl), uint32(dc), uint32(n), uint32(kind), 0)
		prevLine, prevChar = pos.Line, pos.Character
	}

	for _, tok := range sorted {
		if tok.Span.End <= from || tok.Span.Start >= to {
			continue
		}
		start, end := tok.Span.Start, tok.Span.End
		for start < end {
			line := buf.Position(start).Line
			stop := buf.LineEnd(line)
			if stop >= end || line+1 >= buf.LineCount() {
				push(start, end, tok.Kind)
				break
			}
			push(start, stop, tok.Kind)
			start = buf.Offset(Position{Line: line + 1})
		}
	}
	return out
}

// DecodedToken is one token in absolute coordinates.
type DecodedToken struct {
	Line      int
	Character int
	Length    int
	Type      uint32
}

// DecodeTokens reverses the relative encoding.
func DecodeTokens(data []uint32) []DecodedToken {
	out := make([]DecodedToken, 0, len(data)/5)
	line, char := 0, 0
	for i := 0; i+4 < len(data); i += 5 {
		if data[i] != 0 {
			line += int(data[i])
			char = int(data[i+1])
		} else {
			char += int(data[i+1])
		}
		out = append(out, DecodedToken{Line: line, Character: char, Length: int(data[i+2]), Type: data[i+3]})
	}
	return out
}

// InlayHints returns inferred types after each typed span followed by
// parameter names before each bound argument.
func (q *QueryBuilder) InlayHints(path string) []InlayHint {
	e, ok := q.live(path)
	if !ok {
		return nil
	}

	spans := make([]Span, 0, len(e.Result.Types))
	for sp := range e.Result.Types {
		spans = append(spans, sp)
	}
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].End != spans[j].End {
			return spans[i].End < spans[j].End
		}
		return spans[i].Start < spans[j].Start
	})

	out := make([]InlayHint, 0, len(spans)+len(e.Result.Parameters))
	for _, sp := range spans {
		out = append(out, InlayHint{
			Position: e.Text.Position(sp.End),
			Label:    ": " + e.Result.Types[sp].String(),
			Kind:     InlayType,
		})
	}

	params := append([]ParameterHint(nil), e.Result.Parameters...)
	sort.SliceStable(params, func(i, j int) bool { return params[i].Span.Start < params[j].Span.Start })
	for _, p := range params {
		out = append(out, InlayHint{
			Position: e.Text.Position(p.Span.Start),
			Label:    p.Name + ":",
			Kind:     InlayParameter,
		})
	}
	return out
}

// Completion lists the names visible in path: its scopes innermost first,
// then the project namespace, then the builtin commands. A name appears
// once; the first source to offer it wins.
func (q *QueryBuilder) Completion(path string) []CompletionItem {
	e, ok := q.live(path)
	if !ok {
		return nil
	}

	seen := make(map[string]bool)
	var out []CompletionItem
	add := func(item CompletionItem) {
		k := sqf.Key(item.Label)
		if seen[k] {
			return
		}
		seen[k] = true
		out = append(out, item)
	}

	for _, scope := range e.Result.Scopes {
		for _, name := range scope {
			add(CompletionItem{Label: name, Kind: CompletionVariable})
		}
	}

	for _, g := range q.session.Namespace(e.Path).Sorted() {
		item := CompletionItem{Label: g.Name, Kind: CompletionVariable, Detail: g.Type.String()}
		if g.Type == sqf.TypeCode {
			item.Kind = CompletionFunction
		}
		if g.Signature != nil {
			item.Detail = g.Signature.String()
		}
		add(item)
	}

	for _, c := range sqf.Commands() {
		add(commandItem(c))
	}
	return out
}

// commandItem is the completion for a builtin. Commands that take arguments
// are functions even when they also have a nullary form; the documentation
// lists every form.
func commandItem(c *sqf.Command) CompletionItem {
	kind := CompletionFunction
	if len(c.Unary) == 0 && len(c.Binary) == 0 {
		kind = CompletionConstant
	}
	return CompletionItem{Label: c.Name, Kind: kind, Documentation: c.Doc()}
}

// Symbols lists every global in the project namespace ordered by name.
func (q *QueryBuilder) Symbols() []Global {
	return q.session.Namespace("").Sorted()
}

// Diagnostics returns the diagnostics currently attributed to path.
func (q *QueryBuilder) Diagnostics(path string) []Diagnostic {
	return q.session.Diagnostics(path)
}

// Describe renders a global for hover-like listings: "name: Type" or
// "name [params] -> Returns".
func Describe(g Global) string {
	if g.Signature != nil {
		return fmt.Sprintf("%s %s", g.Name, g.Signature)
	}
	return fmt.Sprintf("%s: %s", g.Name, g.Type)
}
