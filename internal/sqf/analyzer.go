package sqf

import (
	"fmt"
	"sort"
)

// magic variables are bound by the engine at runtime.
var magic = map[string]bool{
	"_this":             true,
	"_x":                true,
	"_y":                true,
	"_foreachindex":     true,
	"_exception":        true,
	"_thisscript":       true,
	"_fnc_scriptname":   true,
	"_thiseventhandler": true,
}

// AnalyzeInput carries what the analyzer knows beyond the syntax tree.
// Foreign holds project-level bindings keyed by Key(name).
type AnalyzeInput struct {
	Path     string
	Function string
	Foreign  map[string]Global
}

// ParameterHint names the parameter an argument at Span binds to.
type ParameterHint struct {
	Name string
	Span Span
}

// Analysis is the semantic metadata produced for one file.
type Analysis struct {
	Diagnostics  []Diagnostic
	Types        map[Span]Type
	Explanations map[Span]string
	Origins      map[Span]Origin
	Kinds        map[Span]SemanticKind
	Parameters   []ParameterHint
	// Scopes lists the names visible at the end of the file, innermost first.
	Scopes    [][]string
	Signature *Signature
	Globals   map[string]Global
}

type variable struct {
	name  string
	span  Span
	typ   Type
	used  bool
	param bool
}

type scope struct {
	vars  map[string]*variable
	order []*variable
}

func (s *scope) declare(v *variable) {
	k := Key(v.name)
	if _, ok := s.vars[k]; !ok {
		s.order = append(s.order, v)
	} else {
		for i, old := range s.order {
			if Key(old.name) == k {
				s.order[i] = v
			}
		}
	}
	s.vars[k] = v
}

type analyzer struct {
	in      AnalyzeInput
	out     *Analysis
	scopes  []*scope
	globals map[string]*Global
	fnArgs  []Parameter
	pending []*variable
}

// Analyze walks a parsed file and produces its semantic metadata.
func Analyze(file *File, in AnalyzeInput) *Analysis {
	a := &analyzer{
		in: in,
		out: &Analysis{
			Types:        make(map[Span]Type),
			Explanations: make(map[Span]string),
			Origins:      make(map[Span]Origin),
			Kinds:        make(map[Span]SemanticKind),
			Globals:      make(map[string]Global),
		},
		globals: make(map[string]*Global),
	}
	a.collectGlobals(file.Stmts)

	a.push()
	var last Type
	for i, s := range file.Stmts {
		t := a.stmt(s)
		if i == len(file.Stmts)-1 {
			last = t
		}
		if i == 0 {
			a.topLevelParams(s)
		}
	}
	top := a.scopes[0]
	a.pop()

	var locals, fileGlobals []string
	for _, v := range top.order {
		locals = append(locals, v.name)
	}
	for _, g := range a.globals {
		fileGlobals = append(fileGlobals, g.Name)
		a.out.Globals[Key(g.Name)] = *g
	}
	sort.Strings(locals)
	sort.Strings(fileGlobals)
	a.out.Scopes = [][]string{locals, fileGlobals}

	if in.Function != "" {
		a.out.Signature = &Signature{Parameters: a.fnArgs, Returns: last}
		a.out.Globals[Key(in.Function)] = Global{
			Name:      in.Function,
			Origin:    External(in.Path, nil),
			Type:      TypeCode,
			Signature: a.out.Signature,
		}
	}

	sort.SliceStable(a.out.Diagnostics, func(i, j int) bool {
		return a.out.Diagnostics[i].Span.Start < a.out.Diagnostics[j].Span.Start
	})
	sort.SliceStable(a.out.Parameters, func(i, j int) bool {
		return a.out.Parameters[i].Span.Start < a.out.Parameters[j].Span.Start
	})
	return a.out
}

func (a *analyzer) report(sev Severity, code string, span Span, format string, args ...any) {
	a.out.Diagnostics = append(a.out.Diagnostics, Diagnostic{
		Severity: sev,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Span:     span,
	})
}

// collectGlobals registers every global assigned anywhere in the file, so
// uses before the assignment resolve in-file.
func (a *analyzer) collectGlobals(stmts []Stmt) {
	for _, s := range stmts {
		switch s := s.(type) {
		case *AssignStmt:
			if !IsLocal(s.Name) {
				k := Key(s.Name)
				if _, ok := a.globals[k]; !ok {
					a.globals[k] = &Global{Name: s.Name, Origin: External(a.in.Path, &s.NameSpan)}
					a.report(SeverityInformation, CodeGlobalExported, s.NameSpan,
						"global variable %s is exported to the project", s.Name)
				}
			}
			a.walkCode(s.Value)
		case *ExprStmt:
			a.walkCode(s.X)
		}
	}
}

func (a *analyzer) walkCode(e Expr) {
	switch e := e.(type) {
	case *CodeLit:
		a.collectGlobals(e.Body)
	case *ArrayLit:
		for _, el := range e.Elems {
			a.walkCode(el)
		}
	case *UnaryCmd:
		a.walkCode(e.Arg)
	case *BinaryCmd:
		a.walkCode(e.Left)
		a.walkCode(e.Right)
	}
}

func (a *analyzer) push() {
	s := &scope{vars: make(map[string]*variable)}
	for _, v := range a.pending {
		s.declare(v)
	}
	a.pending = nil
	a.scopes = append(a.scopes, s)
}

func (a *analyzer) pop() {
	s := a.scopes[len(a.scopes)-1]
	a.scopes = a.scopes[:len(a.scopes)-1]
	for _, v := range s.order {
		if !v.used {
			a.report(SeverityWarning, CodeUnusedVariable, v.span, "unused variable %s", v.name)
		}
	}
}

func (a *analyzer) lookup(name string) *variable {
	k := Key(name)
	for i := len(a.scopes) - 1; i >= 0; i-- {
		if v, ok := a.scopes[i].vars[k]; ok {
			return v
		}
	}
	return nil
}

func (a *analyzer) declare(name string, span Span, typ Type, param bool) *variable {
	v := &variable{name: name, span: span, typ: typ, param: param}
	a.scopes[len(a.scopes)-1].declare(v)
	kind := SemVariable
	if param {
		kind = SemParameter
	}
	a.out.Kinds[span] = kind
	if typ.Known() {
		a.out.Types[span] = typ
	}
	return v
}

func (a *analyzer) stmt(s Stmt) Type {
	a.pending = nil
	switch s := s.(type) {
	case *AssignStmt:
		t := a.expr(s.Value)
		if !IsLocal(s.Name) {
			g := a.globals[Key(s.Name)]
			g.Type = t
			a.out.Kinds[s.NameSpan] = kindOf(*g)
			if t.Known() {
				a.out.Types[s.NameSpan] = t
			}
			return TypeNothing
		}
		if v := a.lookup(s.Name); v != nil && !s.Private {
			v.typ = t
			a.out.Origins[s.NameSpan] = InFile(v.span)
			a.out.Kinds[s.NameSpan] = SemVariable
			if t.Known() {
				a.out.Types[s.NameSpan] = t
			}
			return TypeNothing
		}
		a.declare(s.Name, s.NameSpan, t, false)
		return TypeNothing
	case *ExprStmt:
		return a.expr(s.X)
	}
	return TypeUnknown
}

func (a *analyzer) expr(e Expr) Type {
	switch e := e.(type) {
	case *NumberLit:
		return TypeNumber
	case *StringLit:
		return TypeString
	case *ArrayLit:
		for _, el := range e.Elems {
			a.expr(el)
		}
		return TypeArray
	case *CodeLit:
		a.code(e)
		return TypeCode
	case *Ident:
		return a.ident(e)
	case *NullaryCmd:
		c, _ := LookupCommand(e.Name)
		a.out.Explanations[e.Span] = c.NullaryDoc()
		return c.Nullary.Returns
	case *UnaryCmd:
		return a.unary(e)
	case *BinaryCmd:
		return a.binary(e)
	}
	return TypeUnknown
}

func (a *analyzer) code(c *CodeLit) {
	a.push()
	for _, s := range c.Body {
		a.stmt(s)
	}
	a.pop()
}

func (a *analyzer) ident(e *Ident) Type {
	if IsLocal(e.Name) {
		if v := a.lookup(e.Name); v != nil {
			v.used = true
			a.out.Origins[e.Span] = InFile(v.span)
			if v.param {
				a.out.Kinds[e.Span] = SemParameter
			} else {
				a.out.Kinds[e.Span] = SemVariable
			}
			return v.typ
		}
		if magic[Key(e.Name)] {
			a.out.Kinds[e.Span] = SemVariable
			return TypeUnknown
		}
		a.report(SeverityError, CodeUndefinedVariable, e.Span, "undefined variable %s", e.Name)
		return TypeUnknown
	}

	k := Key(e.Name)
	if g, ok := a.globals[k]; ok {
		if g.Origin.ExternalSpan != nil {
			a.out.Origins[e.Span] = InFile(*g.Origin.ExternalSpan)
		}
		a.out.Kinds[e.Span] = kindOf(*g)
		return g.Type
	}
	if a.in.Function != "" && k == Key(a.in.Function) {
		a.out.Origins[e.Span] = InFile(Span{})
		a.out.Kinds[e.Span] = SemFunction
		return TypeCode
	}
	if g, ok := a.in.Foreign[k]; ok {
		a.out.Origins[e.Span] = g.Origin
		a.out.Kinds[e.Span] = kindOf(g)
		if g.Signature != nil {
			a.out.Explanations[e.Span] = fmt.Sprintf("`%s %s`", g.Name, g.Signature)
		}
		return g.Type
	}
	a.report(SeverityError, CodeUndefinedVariable, e.Span, "undefined variable %s", e.Name)
	return TypeUnknown
}

func kindOf(g Global) SemanticKind {
	if g.Signature != nil || g.Type == TypeCode {
		return SemFunction
	}
	return SemVariable
}

// signatureOf returns the signature bound to a callee expression, if any.
func (a *analyzer) signatureOf(e Expr) *Signature {
	id, ok := e.(*Ident)
	if !ok || IsLocal(id.Name) {
		return nil
	}
	k := Key(id.Name)
	if _, ok := a.globals[k]; ok {
		return nil
	}
	if a.in.Function != "" && k == Key(a.in.Function) {
		return nil
	}
	if g, ok := a.in.Foreign[k]; ok {
		return g.Signature
	}
	return nil
}

func (a *analyzer) unary(e *UnaryCmd) Type {
	name := Key(e.Name)
	switch name {
	case "private":
		return a.private(e)
	case "params":
		a.explainUnary(e)
		a.params(e.Arg)
		return TypeBoolean
	case "for":
		if s, ok := e.Arg.(*StringLit); ok {
			a.explainUnary(e)
			a.pending = append(a.pending, &variable{name: s.Value, span: s.Span, typ: TypeNumber, used: true})
			a.out.Kinds[s.Span] = SemVariable
			return TypeFor
		}
	}

	arg := a.expr(e.Arg)
	c, ok := LookupCommand(e.Name)
	if !ok {
		return TypeUnknown
	}
	a.out.Explanations[e.OpSpan] = c.UnaryDoc()
	if name == "call" {
		if sig := a.signatureOf(e.Arg); sig != nil {
			return sig.Returns
		}
	}
	ret, ok := c.unaryResult(arg)
	if !ok {
		a.report(SeverityError, CodeTypeMismatch, e.Span, "%s does not accept %s", e.Name, arg)
		return TypeUnknown
	}
	return ret
}

func (a *analyzer) binary(e *BinaryCmd) Type {
	name := Key(e.Name)
	if name == "params" {
		a.expr(e.Left)
		if c, ok := LookupCommand(e.Name); ok {
			a.out.Explanations[e.OpSpan] = c.BinaryDoc()
		}
		a.params(e.Right)
		return TypeBoolean
	}

	// a `for "_i"` on the left leaves _i pending for the body on the right
	left := a.expr(e.Left)
	right := a.expr(e.Right)

	c, ok := LookupCommand(e.Name)
	if !ok {
		return TypeUnknown
	}
	a.out.Explanations[e.OpSpan] = c.BinaryDoc()

	if name == "call" || name == "spawn" {
		if sig := a.signatureOf(e.Right); sig != nil {
			a.arguments(e.Left, sig)
			if name == "call" {
				return sig.Returns
			}
		}
	}
	ret, ok := c.binaryResult(left, right)
	if !ok {
		a.report(SeverityError, CodeTypeMismatch, e.Span, "%s does not accept %s and %s", e.Name, left, right)
		return TypeUnknown
	}
	return ret
}

// arguments records parameter hints and checks argument types of a call to a
// function with a known signature.
func (a *analyzer) arguments(args Expr, sig *Signature) {
	arr, ok := args.(*ArrayLit)
	if !ok {
		return
	}
	for i, el := range arr.Elems {
		if i >= len(sig.Parameters) {
			return
		}
		p := sig.Parameters[i]
		a.out.Parameters = append(a.out.Parameters, ParameterHint{Name: p.Name, Span: el.NodeSpan()})
		if got := a.typeOf(el); p.Type.Known() && !accepts(p.Type, got) {
			a.report(SeverityError, CodeTypeMismatch, el.NodeSpan(),
				"argument %s expects %s, got %s", p.Name, p.Type, got)
		}
	}
}

// typeOf is the type of a literal or variable without side effects.
func (a *analyzer) typeOf(e Expr) Type {
	switch e := e.(type) {
	case *NumberLit:
		return TypeNumber
	case *StringLit:
		return TypeString
	case *ArrayLit:
		return TypeArray
	case *CodeLit:
		return TypeCode
	case *Ident:
		if v := a.lookup(e.Name); v != nil {
			return v.typ
		}
	case *NullaryCmd:
		if c, ok := LookupCommand(e.Name); ok && c.Nullary != nil {
			return c.Nullary.Returns
		}
	}
	return TypeUnknown
}

func (a *analyzer) private(e *UnaryCmd) Type {
	switch arg := e.Arg.(type) {
	case *StringLit:
		a.declare(arg.Value, arg.Span, TypeUnknown, false)
	case *ArrayLit:
		for _, el := range arg.Elems {
			if s, ok := el.(*StringLit); ok {
				a.declare(s.Value, s.Span, TypeUnknown, false)
			} else {
				a.expr(el)
			}
		}
	case *Ident:
		a.declare(arg.Name, arg.Span, TypeUnknown, false)
	default:
		a.expr(e.Arg)
	}
	a.explainUnary(e)
	return TypeNothing
}

func (a *analyzer) explainUnary(e *UnaryCmd) {
	if c, ok := LookupCommand(e.Name); ok {
		a.out.Explanations[e.OpSpan] = c.UnaryDoc()
	}
}

// params declares the variables named by a params array. Each element is a
// name or [name, default, [expected values...]].
func (a *analyzer) params(arg Expr) {
	arr, ok := arg.(*ArrayLit)
	if !ok {
		a.expr(arg)
		return
	}
	for _, el := range arr.Elems {
		switch el := el.(type) {
		case *StringLit:
			a.declare(el.Value, el.Span, TypeUnknown, true)
		case *ArrayLit:
			if len(el.Elems) == 0 {
				continue
			}
			s, ok := el.Elems[0].(*StringLit)
			if !ok {
				a.expr(el)
				continue
			}
			typ := TypeUnknown
			if len(el.Elems) > 1 {
				typ = a.expr(el.Elems[1])
			}
			if len(el.Elems) > 2 {
				if expected, ok := el.Elems[2].(*ArrayLit); ok && len(expected.Elems) == 1 {
					typ = a.expr(expected.Elems[0])
				}
			}
			a.declare(s.Value, s.Span, typ, true)
		default:
			a.expr(el)
		}
	}
}

// topLevelParams captures the parameters of a function file from a leading
// `params [...]` statement.
func (a *analyzer) topLevelParams(s Stmt) {
	es, ok := s.(*ExprStmt)
	if !ok {
		return
	}
	u, ok := es.X.(*UnaryCmd)
	if !ok || Key(u.Name) != "params" {
		return
	}
	arr, ok := u.Arg.(*ArrayLit)
	if !ok {
		return
	}
	for _, el := range arr.Elems {
		switch el := el.(type) {
		case *StringLit:
			a.fnArgs = append(a.fnArgs, Parameter{Name: el.Value, Type: a.out.Types[el.Span]})
		case *ArrayLit:
			if len(el.Elems) > 0 {
				if s, ok := el.Elems[0].(*StringLit); ok {
					a.fnArgs = append(a.fnArgs, Parameter{Name: s.Value, Type: a.out.Types[s.Span]})
				}
			}
		}
	}
}
