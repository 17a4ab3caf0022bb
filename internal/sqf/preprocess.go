package sqf

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// LexemeKind classifies a source lexeme for highlighting. Lexemes describe
// the text as written, before macro expansion.
type LexemeKind uint8

const (
	LexComment LexemeKind = iota + 1
	LexDirective
	LexMacro
	LexInclude
	LexString
	LexNumber
	LexIdent
	LexPunct
)

// Lexeme is a classified span of the original file.
type Lexeme struct {
	Kind LexemeKind
	Span Span
	Text string
}

// Macro is a #define'd macro.
type Macro struct {
	Name     string
	Function bool
	Params   []string
	Body     []Token
	Span     Span
}

// PreprocessOptions configures Preprocess. Include resolves an #include
// argument to file contents; nil disables includes.
type PreprocessOptions struct {
	Include func(name string) (string, error)
}

// Preprocessed is the output of a successful Preprocess: the macro-expanded
// token stream handed to the parser, and the lexemes of the top-level file.
type Preprocessed struct {
	Tokens  []Token
	Lexemes []Lexeme
	Macros  map[string]*Macro
}

const maxIncludeDepth = 16

type condFrame struct {
	active       bool
	parentActive bool
	seenElse     bool
	span         Span
}

type preprocessor struct {
	opts    PreprocessOptions
	macros  map[string]*Macro
	depth   int
	lexemes []Lexeme
}

// Preprocess expands directives and macros in text. A non-nil Diagnostic is
// fatal: the file cannot be parsed.
func Preprocess(text string, opts PreprocessOptions) (*Preprocessed, *Diagnostic) {
	pp := &preprocessor{opts: opts, macros: make(map[string]*Macro)}
	toks, err := pp.file(text, nil)
	if err != nil {
		var d *Diagnostic
		if errors.As(err, &d) {
			return nil, d
		}
		return nil, &Diagnostic{Severity: SeverityError, Code: CodePreprocess, Message: err.Error()}
	}
	return &Preprocessed{Tokens: toks, Lexemes: pp.lexemes, Macros: pp.macros}, nil
}

func ppError(span Span, format string, args ...any) *Diagnostic {
	return &Diagnostic{
		Severity: SeverityError,
		Code:     CodePreprocess,
		Message:  fmt.Sprintf(format, args...),
		Span:     span,
	}
}

// file preprocesses one file. site is nil for the top-level file; for an
// included file it is the span of the #include line, which every produced
// token is attributed to.
func (pp *preprocessor) file(text string, site *Span) ([]Token, error) {
	toks, err := Lex(text)
	if err != nil {
		var le *lexError
		if errors.As(err, &le) {
			span := le.span
			if site != nil {
				span = *site
			}
			return nil, ppError(span, "%s", le.msg)
		}
		return nil, err
	}

	top := site == nil
	var (
		out   []Token
		conds []condFrame
	)
	active := func() bool {
		return len(conds) == 0 || conds[len(conds)-1].active
	}
	at := func(span Span) Span {
		if site != nil {
			return *site
		}
		return span
	}
	mark := func(kind LexemeKind, t Token) {
		if top {
			pp.lexemes = append(pp.lexemes, Lexeme{Kind: kind, Span: t.Span, Text: t.Text})
		}
	}

	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if t.Kind == TokComment {
			mark(LexComment, t)
			continue
		}

		if t.Kind == TokDirective {
			j := i + 1
			var args []Token
			for j < len(toks) && toks[j].Line == t.Line {
				if toks[j].Kind == TokComment {
					mark(LexComment, toks[j])
				} else {
					args = append(args, toks[j])
				}
				j++
			}
			i = j - 1
			mark(LexDirective, t)

			lineSpan := t.Span
			if len(args) > 0 {
				lineSpan = join(lineSpan, args[len(args)-1].Span)
			}
			name := strings.ToLower(t.Text[1:])

			switch name {
			case "ifdef", "ifndef":
				if len(args) == 0 || args[0].Kind != TokIdent {
					return nil, ppError(at(lineSpan), "#%s expects a macro name", name)
				}
				mark(LexMacro, args[0])
				_, defined := pp.macros[args[0].Text]
				parent := active()
				conds = append(conds, condFrame{
					active:       parent && defined == (name == "ifdef"),
					parentActive: parent,
					span:         lineSpan,
				})
				continue
			case "if":
				if len(args) == 0 {
					return nil, ppError(at(lineSpan), "#if expects an expression")
				}
				parent := active()
				conds = append(conds, condFrame{
					active:       parent && pp.truthy(args),
					parentActive: parent,
					span:         lineSpan,
				})
				continue
			case "else":
				if len(conds) == 0 {
					return nil, ppError(at(lineSpan), "#else without matching #ifdef")
				}
				f := &conds[len(conds)-1]
				if f.seenElse {
					return nil, ppError(at(lineSpan), "duplicate #else")
				}
				f.seenElse = true
				f.active = f.parentActive && !f.active
				continue
			case "endif":
				if len(conds) == 0 {
					return nil, ppError(at(lineSpan), "#endif without matching #ifdef")
				}
				conds = conds[:len(conds)-1]
				continue
			}

			if !active() {
				continue
			}

			switch name {
			case "define":
				m, err := pp.define(args, lineSpan)
				if err != nil {
					return nil, ppError(at(lineSpan), "%s", err.Error())
				}
				mark(LexMacro, args[0])
				for _, b := range m.Body {
					mark(lexemeKind(b), b)
				}
				pp.macros[m.Name] = m
			case "undef":
				if len(args) == 0 || args[0].Kind != TokIdent {
					return nil, ppError(at(lineSpan), "#undef expects a macro name")
				}
				mark(LexMacro, args[0])
				delete(pp.macros, args[0].Text)
			case "include":
				if len(args) == 0 || args[0].Kind != TokString {
					return nil, ppError(at(lineSpan), "#include expects a quoted file name")
				}
				mark(LexInclude, args[0])
				included, err := pp.include(unquote(args[0].Text), at(lineSpan))
				if err != nil {
					return nil, err
				}
				out = append(out, included...)
			default:
				return nil, ppError(at(t.Span), "unknown preprocessor directive %s", t.Text)
			}
			continue
		}

		if !active() {
			mark(lexemeKind(t), t)
			continue
		}

		m, isMacro := pp.macros[t.Text]
		if t.Kind != TokIdent || !isMacro {
			mark(lexemeKind(t), t)
			t.Span = at(t.Span)
			out = append(out, t)
			continue
		}

		mark(LexMacro, t)
		if !m.Function {
			out = append(out, pp.expand(m.Body, map[string]bool{m.Name: true}, at(t.Span))...)
			continue
		}

		// A function-like macro name not followed by '(' is a plain identifier.
		k := i + 1
		for k < len(toks) && toks[k].Kind == TokComment {
			k++
		}
		if k >= len(toks) || toks[k].Text != "(" {
			t.Span = at(t.Span)
			out = append(out, t)
			continue
		}
		args, end, err := collectArgs(toks, k)
		if err != nil {
			return nil, ppError(at(t.Span), "%s", err.Error())
		}
		for _, a := range toks[k:end] {
			if a.Kind != TokComment {
				mark(lexemeKind(a), a)
			}
		}
		use := at(Span{Start: t.Span.Start, End: toks[end-1].Span.End})
		body, err := substitute(m, args)
		if err != nil {
			return nil, ppError(use, "%s", err.Error())
		}
		out = append(out, pp.expand(body, map[string]bool{m.Name: true}, use)...)
		i = end - 1
	}

	if len(conds) > 0 {
		return nil, ppError(at(conds[len(conds)-1].span), "unterminated conditional directive")
	}
	return out, nil
}

func (pp *preprocessor) include(name string, site Span) ([]Token, error) {
	if pp.opts.Include == nil {
		return nil, ppError(site, "cannot resolve #include %q", name)
	}
	if pp.depth >= maxIncludeDepth {
		return nil, ppError(site, "#include nested too deeply")
	}
	text, err := pp.opts.Include(name)
	if err != nil {
		return nil, ppError(site, "include file %q not found", name)
	}
	pp.depth++
	defer func() { pp.depth-- }()
	return pp.file(text, &site)
}

func (pp *preprocessor) define(args []Token, lineSpan Span) (*Macro, error) {
	if len(args) == 0 || args[0].Kind != TokIdent {
		return nil, errors.New("#define expects a macro name")
	}
	m := &Macro{Name: args[0].Text, Span: lineSpan}
	rest := args[1:]
	if len(rest) > 0 && rest[0].Text == "(" && rest[0].Span.Start == args[0].Span.End {
		m.Function = true
		k := 1
		for {
			if k >= len(rest) {
				return nil, fmt.Errorf("unterminated parameter list for macro %s", m.Name)
			}
			if rest[k].Text == ")" {
				k++
				break
			}
			if rest[k].Kind != TokIdent {
				return nil, fmt.Errorf("bad parameter %q for macro %s", rest[k].Text, m.Name)
			}
			m.Params = append(m.Params, rest[k].Text)
			k++
			if k < len(rest) && rest[k].Text == "," {
				k++
			}
		}
		rest = rest[k:]
	}
	m.Body = append([]Token(nil), rest...)
	return m, nil
}

// truthy evaluates the single-operand form of #if.
func (pp *preprocessor) truthy(args []Token) bool {
	t := args[0]
	if m, ok := pp.macros[t.Text]; ok && t.Kind == TokIdent && !m.Function && len(m.Body) > 0 {
		t = m.Body[0]
	}
	if t.Kind != TokNumber {
		return false
	}
	v, err := ParseNumber(t.Text)
	return err == nil && v != 0
}

// expand rescans toks, replacing macro uses. Every produced token takes span.
func (pp *preprocessor) expand(toks []Token, hide map[string]bool, span Span) []Token {
	var out []Token
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		t.Span = span
		m, ok := pp.macros[t.Text]
		if t.Kind != TokIdent || !ok || hide[t.Text] {
			out = append(out, t)
			continue
		}
		inner := make(map[string]bool, len(hide)+1)
		for k := range hide {
			inner[k] = true
		}
		inner[m.Name] = true
		if !m.Function {
			out = append(out, pp.expand(m.Body, inner, span)...)
			continue
		}
		if i+1 >= len(toks) || toks[i+1].Text != "(" {
			out = append(out, t)
			continue
		}
		args, end, err := collectArgs(toks, i+1)
		if err != nil {
			out = append(out, t)
			continue
		}
		body, err := substitute(m, args)
		if err != nil {
			out = append(out, t)
			continue
		}
		out = append(out, pp.expand(body, inner, span)...)
		i = end - 1
	}
	return out
}

// collectArgs reads a parenthesized, comma separated argument list starting
// at toks[open] == "(". It returns the arguments and the index just past ')'.
func collectArgs(toks []Token, open int) ([][]Token, int, error) {
	var (
		args  [][]Token
		cur   []Token
		depth int
	)
	for i := open + 1; i < len(toks); i++ {
		t := toks[i]
		if t.Kind == TokComment {
			continue
		}
		if t.Kind == TokPunct {
			switch t.Text {
			case "(", "[", "{":
				depth++
			case "]", "}":
				depth--
			case ")":
				if depth == 0 {
					if len(cur) > 0 || len(args) > 0 {
						args = append(args, cur)
					}
					return args, i + 1, nil
				}
				depth--
			case ",":
				if depth == 0 {
					args = append(args, cur)
					cur = nil
					continue
				}
			}
		}
		cur = append(cur, t)
	}
	return nil, 0, errors.New("unterminated macro invocation")
}

// substitute replaces parameters in a function-like macro body, applying the
// # (stringize) and ## (concatenate) operators.
func substitute(m *Macro, args [][]Token) ([]Token, error) {
	if len(args) != len(m.Params) {
		return nil, fmt.Errorf("macro %s expects %d argument(s), got %d", m.Name, len(m.Params), len(args))
	}
	param := func(name string) ([]Token, bool) {
		for i, p := range m.Params {
			if p == name {
				return args[i], true
			}
		}
		return nil, false
	}

	var out []Token
	body := m.Body
	for i := 0; i < len(body); i++ {
		t := body[i]
		switch {
		case t.Text == "#" && i+1 < len(body):
			if a, ok := param(body[i+1].Text); ok {
				out = append(out, Token{Kind: TokString, Text: strconv.Quote(tokensText(a)), Span: t.Span, Line: t.Line})
				i++
				continue
			}
			out = append(out, t)
		case t.Text == "##" && len(out) > 0 && i+1 < len(body):
			next := []Token{body[i+1]}
			if a, ok := param(body[i+1].Text); ok {
				next = a
			}
			i++
			joined := out[len(out)-1].Text
			if len(next) > 0 {
				joined += next[0].Text
			}
			relexed, err := Lex(joined)
			if err != nil || len(relexed) == 0 {
				return nil, fmt.Errorf("invalid token %q produced by ## in macro %s", joined, m.Name)
			}
			out = out[:len(out)-1]
			for _, r := range relexed {
				r.Span = t.Span
				out = append(out, r)
			}
			if len(next) > 1 {
				out = append(out, next[1:]...)
			}
		default:
			if a, ok := param(t.Text); ok && t.Kind == TokIdent {
				out = append(out, a...)
				continue
			}
			out = append(out, t)
		}
	}
	return out, nil
}

func tokensText(toks []Token) string {
	parts := make([]string, len(toks))
	for i, t := range toks {
		parts[i] = t.Text
	}
	return strings.Join(parts, " ")
}

func lexemeKind(t Token) LexemeKind {
	switch t.Kind {
	case TokString:
		return LexString
	case TokNumber:
		return LexNumber
	case TokIdent:
		return LexIdent
	case TokComment:
		return LexComment
	case TokDirective:
		return LexDirective
	}
	return LexPunct
}

// unquote strips the surrounding quotes of an SQF string literal and
// collapses doubled quote characters.
func unquote(lit string) string {
	if len(lit) < 2 {
		return lit
	}
	q := lit[0]
	inner := lit[1 : len(lit)-1]
	return strings.ReplaceAll(inner, string([]byte{q, q}), string(q))
}

// ParseNumber parses an SQF numeric literal (decimal, 0x hex or $ hex).
func ParseNumber(text string) (float64, error) {
	switch {
	case strings.HasPrefix(text, "$"):
		v, err := strconv.ParseInt(text[1:], 16, 64)
		return float64(v), err
	case strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X"):
		v, err := strconv.ParseInt(text[2:], 16, 64)
		return float64(v), err
	}
	return strconv.ParseFloat(text, 64)
}
