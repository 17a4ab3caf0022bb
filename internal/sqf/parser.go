package sqf

import "fmt"

type parser struct {
	toks []Token
	pos  int
	end  int
	errs []Diagnostic
}

// Parse builds a syntax tree from preprocessed tokens. Syntax errors are
// accumulated and parsing resumes at the next statement, so the tree is
// always usable.
func Parse(toks []Token) (*File, []Diagnostic) {
	p := &parser{}
	for _, t := range toks {
		if t.Kind == TokComment || t.Kind == TokDirective {
			continue
		}
		p.toks = append(p.toks, t)
	}
	if n := len(p.toks); n > 0 {
		p.end = p.toks[n-1].Span.End
	}
	return &File{Stmts: p.statements("")}, p.errs
}

func (p *parser) errorf(span Span, format string, args ...any) {
	p.errs = append(p.errs, Diagnostic{
		Severity: SeverityError,
		Code:     CodeSyntax,
		Message:  fmt.Sprintf(format, args...),
		Span:     span,
	})
}

func (p *parser) at(i int) (Token, bool) {
	if i < len(p.toks) {
		return p.toks[i], true
	}
	return Token{}, false
}

func (p *parser) cur() (Token, bool) { return p.at(p.pos) }

func (p *parser) isPunct(text string) bool {
	t, ok := p.cur()
	return ok && t.Kind == TokPunct && t.Text == text
}

func (p *parser) eof() Span { return Span{Start: p.end, End: p.end} }

func isCloser(text string) bool {
	return text == "]" || text == "}" || text == ")"
}

func isSeparator(t Token) bool {
	return t.Kind == TokPunct && (t.Text == ";" || t.Text == ",")
}

// statements parses until close (or end of input when close is empty).
// The closing token itself is left for the caller.
func (p *parser) statements(close string) []Stmt {
	var out []Stmt
	for {
		for {
			t, ok := p.cur()
			if !ok || !isSeparator(t) {
				break
			}
			p.pos++
		}
		t, ok := p.cur()
		if !ok {
			if close != "" {
				p.errorf(p.eof(), "expected %q", close)
			}
			return out
		}
		if t.Kind == TokPunct && isCloser(t.Text) {
			if t.Text == close {
				return out
			}
			p.errorf(t.Span, "unexpected %q", t.Text)
			p.pos++
			continue
		}

		start := p.pos
		if s := p.statement(); s != nil {
			out = append(out, s)
		}
		t, ok = p.cur()
		switch {
		case !ok, isSeparator(t):
		case t.Kind == TokPunct && isCloser(t.Text):
		default:
			p.errorf(t.Span, "expected ';' before %q", t.Text)
			p.recover()
		}
		if p.pos == start {
			p.pos++
		}
	}
}

// recover skips to the next separator or unmatched closer.
func (p *parser) recover() {
	depth := 0
	for {
		t, ok := p.cur()
		if !ok {
			return
		}
		if t.Kind == TokPunct {
			switch {
			case t.Text == "[" || t.Text == "{" || t.Text == "(":
				depth++
			case isCloser(t.Text):
				if depth == 0 {
					return
				}
				depth--
			case isSeparator(t) && depth == 0:
				return
			}
		}
		p.pos++
	}
}

func (p *parser) statement() Stmt {
	t, _ := p.cur()
	if t.Kind == TokIdent {
		n1, ok1 := p.at(p.pos + 1)
		n2, ok2 := p.at(p.pos + 2)
		if Key(t.Text) == "private" && ok1 && n1.Kind == TokIdent && ok2 && n2.Kind == TokPunct && n2.Text == "=" {
			p.pos += 3
			value := p.expr()
			return &AssignStmt{
				Private:  true,
				Name:     n1.Text,
				NameSpan: n1.Span,
				Value:    value,
				Span:     join(t.Span, value.NodeSpan()),
			}
		}
		if ok1 && n1.Kind == TokPunct && n1.Text == "=" {
			p.pos += 2
			value := p.expr()
			return &AssignStmt{
				Name:     t.Text,
				NameSpan: t.Span,
				Value:    value,
				Span:     join(t.Span, value.NodeSpan()),
			}
		}
	}
	return &ExprStmt{X: p.expr()}
}

func (p *parser) expr() Expr { return p.binary(1) }

// binaryName reports whether t can act as an infix operator.
func binaryName(t Token) (string, bool) {
	switch t.Kind {
	case TokPunct:
		switch t.Text {
		case "||", "&&", "==", "!=", ">", "<", ">=", "<=", ">>", "+", "-", "*", "/", "%", "^", ":", "#":
			return t.Text, true
		}
	case TokIdent:
		if !IsLocal(t.Text) && IsBinary(t.Text) {
			return t.Text, true
		}
	}
	return "", false
}

func (p *parser) binary(min int) Expr {
	left := p.unary()
	for {
		t, ok := p.cur()
		if !ok {
			return left
		}
		name, ok := binaryName(t)
		if !ok {
			return left
		}
		level := binaryLevel(name)
		if level < min {
			return left
		}
		p.pos++
		right := p.binary(level + 1)
		left = &BinaryCmd{
			Name:   name,
			OpSpan: t.Span,
			Left:   left,
			Right:  right,
			Span:   join(left.NodeSpan(), right.NodeSpan()),
		}
	}
}

func (p *parser) unary() Expr {
	t, ok := p.cur()
	if !ok {
		p.errorf(p.eof(), "unexpected end of input")
		return &BadExpr{Span: p.eof()}
	}
	prefix := t.Kind == TokPunct && (t.Text == "-" || t.Text == "!" || t.Text == "+")
	named := t.Kind == TokIdent && !IsLocal(t.Text) && IsUnary(t.Text) && p.startsOperand(p.pos+1, t.Text)
	if !prefix && !named {
		return p.hash()
	}
	p.pos++
	arg := p.unary()
	return &UnaryCmd{
		Name:   t.Text,
		OpSpan: t.Span,
		Arg:    arg,
		Span:   join(t.Span, arg.NodeSpan()),
	}
}

// startsOperand reports whether the token at i can begin the operand of the
// unary command name.
func (p *parser) startsOperand(i int, name string) bool {
	t, ok := p.at(i)
	if !ok {
		return false
	}
	switch t.Kind {
	case TokNumber, TokString:
		return true
	case TokPunct:
		switch t.Text {
		case "[", "{", "(":
			return true
		case "-", "!", "+":
			return !IsNullary(name)
		}
		return false
	case TokIdent:
		if IsLocal(t.Text) {
			return true
		}
		return !IsBinary(t.Text) || IsUnary(t.Text) || IsNullary(t.Text)
	}
	return false
}

func (p *parser) hash() Expr {
	left := p.primary()
	for p.isPunct("#") {
		op, _ := p.cur()
		p.pos++
		right := p.primary()
		left = &BinaryCmd{
			Name:   "#",
			OpSpan: op.Span,
			Left:   left,
			Right:  right,
			Span:   join(left.NodeSpan(), right.NodeSpan()),
		}
	}
	return left
}

func (p *parser) primary() Expr {
	t, ok := p.cur()
	if !ok {
		p.errorf(p.eof(), "unexpected end of input")
		return &BadExpr{Span: p.eof()}
	}
	switch t.Kind {
	case TokNumber:
		p.pos++
		v, err := ParseNumber(t.Text)
		if err != nil {
			p.errorf(t.Span, "invalid number %q", t.Text)
		}
		return &NumberLit{Value: v, Span: t.Span}
	case TokString:
		p.pos++
		return &StringLit{Value: unquote(t.Text), Span: t.Span}
	case TokIdent:
		p.pos++
		switch {
		case IsLocal(t.Text):
			return &Ident{Name: t.Text, Span: t.Span}
		case IsNullary(t.Text):
			return &NullaryCmd{Name: t.Text, Span: t.Span}
		case IsUnary(t.Text):
			p.errorf(t.Span, "%s expects an operand", t.Text)
			return &BadExpr{Span: t.Span}
		case IsBinary(t.Text):
			p.errorf(t.Span, "%s expects a left operand", t.Text)
			return &BadExpr{Span: t.Span}
		}
		return &Ident{Name: t.Text, Span: t.Span}
	case TokPunct:
		switch t.Text {
		case "[":
			return p.array()
		case "{":
			return p.code()
		case "(":
			p.pos++
			inner := p.expr()
			if p.isPunct(")") {
				p.pos++
			} else {
				span := p.eof()
				if c, ok := p.cur(); ok {
					span = c.Span
				}
				p.errorf(span, "expected ')'")
			}
			return inner
		}
	}
	p.errorf(t.Span, "unexpected %q", t.Text)
	if !isCloser(t.Text) && !isSeparator(t) {
		p.pos++
	}
	return &BadExpr{Span: t.Span}
}

func (p *parser) array() Expr {
	open, _ := p.cur()
	p.pos++
	arr := &ArrayLit{Span: open.Span}
	for {
		t, ok := p.cur()
		if !ok {
			p.errorf(open.Span, "unterminated array")
			arr.Span = join(open.Span, p.eof())
			return arr
		}
		if t.Kind == TokPunct && t.Text == "]" {
			p.pos++
			arr.Span = join(open.Span, t.Span)
			return arr
		}
		if t.Kind == TokPunct && (t.Text == "}" || t.Text == ")") {
			p.errorf(t.Span, "expected ']'")
			arr.Span = join(open.Span, t.Span)
			return arr
		}

		before := p.pos
		arr.Elems = append(arr.Elems, p.expr())
		if p.isPunct(",") {
			p.pos++
			continue
		}
		if p.isPunct("]") {
			continue
		}
		if t, ok := p.cur(); ok {
			p.errorf(t.Span, "expected ',' or ']'")
			p.recover()
			if p.isPunct(",") || p.isPunct(";") {
				p.pos++
			}
		}
		if p.pos == before {
			p.pos++
		}
	}
}

func (p *parser) code() Expr {
	open, _ := p.cur()
	p.pos++
	body := p.statements("}")
	span := join(open.Span, p.eof())
	if t, ok := p.cur(); ok && t.Kind == TokPunct && t.Text == "}" {
		p.pos++
		span = join(open.Span, t.Span)
	}
	return &CodeLit{Body: body, Span: span}
}
