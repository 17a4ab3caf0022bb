package sqf

import (
	"fmt"
	"strings"
)

// Declaration is a function declared by a marker file. Path is the path as
// written in the marker, Span the location of the declaration inside it.
type Declaration struct {
	Name string
	Path string
	Span Span
}

// DeclaredFunctions maps Key(name) to its declaration.
type DeclaredFunctions map[string]Declaration

// ConfigValue is a scalar property value. Strings are unquoted.
type ConfigValue struct {
	Text string
	Span Span
}

// ConfigClass is one `class Name: Parent { ... };` block of a config file.
type ConfigClass struct {
	Name     string
	NameSpan Span
	Parent   string
	Props    map[string]ConfigValue
	Classes  []*ConfigClass
}

// Class returns the direct child class called name, case-insensitively.
func (c *ConfigClass) Class(name string) *ConfigClass {
	for _, child := range c.Classes {
		if strings.EqualFold(child.Name, name) {
			return child
		}
	}
	return nil
}

// Prop returns the property called name, case-insensitively.
func (c *ConfigClass) Prop(name string) (ConfigValue, bool) {
	v, ok := c.Props[Key(name)]
	return v, ok
}

type configParser struct {
	toks []Token
	pos  int
	errs []Diagnostic
}

// ParseConfig parses a config.cpp / description.ext file into its class tree.
func ParseConfig(text string, opts PreprocessOptions) (*ConfigClass, []Diagnostic) {
	pre, diag := Preprocess(text, opts)
	if diag != nil {
		return nil, []Diagnostic{*diag}
	}
	p := &configParser{}
	for _, t := range pre.Tokens {
		if t.Kind != TokComment && t.Kind != TokDirective {
			p.toks = append(p.toks, t)
		}
	}
	root := &ConfigClass{Props: make(map[string]ConfigValue)}
	p.body(root, false)
	return root, p.errs
}

func (p *configParser) errorf(span Span, format string, args ...any) {
	p.errs = append(p.errs, Diagnostic{
		Severity: SeverityError,
		Code:     CodeConfig,
		Message:  fmt.Sprintf(format, args...),
		Span:     span,
	})
}

func (p *configParser) cur() (Token, bool) {
	if p.pos < len(p.toks) {
		return p.toks[p.pos], true
	}
	return Token{}, false
}

func (p *configParser) is(text string) bool {
	t, ok := p.cur()
	return ok && t.Kind == TokPunct && t.Text == text
}

// skip advances past the next ';' at the current nesting level.
func (p *configParser) skip() {
	depth := 0
	for {
		t, ok := p.cur()
		if !ok {
			return
		}
		p.pos++
		switch t.Text {
		case "{":
			depth++
		case "}":
			depth--
			if depth < 0 {
				p.pos--
				return
			}
		case ";":
			if depth == 0 {
				return
			}
		}
	}
}

func (p *configParser) body(c *ConfigClass, nested bool) {
	for {
		t, ok := p.cur()
		if !ok {
			if nested {
				p.errorf(c.NameSpan, "class %s is not closed", c.Name)
			}
			return
		}
		switch {
		case t.Kind == TokPunct && t.Text == ";":
			p.pos++
		case t.Kind == TokPunct && t.Text == "}":
			if nested {
				p.pos++
				return
			}
			p.errorf(t.Span, "unexpected '}'")
			p.pos++
		case t.Kind == TokIdent && Key(t.Text) == "class":
			p.pos++
			p.class(c)
		case t.Kind == TokIdent && Key(t.Text) == "delete":
			p.skip()
		case t.Kind == TokIdent:
			p.property(c)
		default:
			p.errorf(t.Span, "unexpected %q", t.Text)
			p.skip()
		}
	}
}

func (p *configParser) class(parent *ConfigClass) {
	name, ok := p.cur()
	if !ok || name.Kind != TokIdent {
		span := Span{}
		if ok {
			span = name.Span
		}
		p.errorf(span, "expected class name")
		p.skip()
		return
	}
	p.pos++
	c := &ConfigClass{Name: name.Text, NameSpan: name.Span, Props: make(map[string]ConfigValue)}
	if p.is(":") {
		p.pos++
		if base, ok := p.cur(); ok && base.Kind == TokIdent {
			c.Parent = base.Text
			p.pos++
		}
	}
	switch {
	case p.is(";"):
		p.pos++
		return
	case p.is("{"):
		p.pos++
		p.body(c, true)
		if existing := parent.Class(c.Name); existing != nil {
			mergeClass(existing, c)
			return
		}
		parent.Classes = append(parent.Classes, c)
	default:
		p.errorf(name.Span, "expected '{' or ';' after class %s", name.Text)
		p.skip()
	}
}

// mergeClass folds a reopened class into the first definition.
func mergeClass(dst, src *ConfigClass) {
	for k, v := range src.Props {
		dst.Props[k] = v
	}
	for _, child := range src.Classes {
		if existing := dst.Class(child.Name); existing != nil {
			mergeClass(existing, child)
			continue
		}
		dst.Classes = append(dst.Classes, child)
	}
}

func (p *configParser) property(c *ConfigClass) {
	name, _ := p.cur()
	p.pos++
	array := false
	if p.is("[") {
		p.pos++
		if !p.is("]") {
			p.errorf(name.Span, "expected '[]' after %s", name.Text)
			p.skip()
			return
		}
		p.pos++
		array = true
	}
	if p.is("+") {
		p.pos++
	}
	if !p.is("=") {
		p.errorf(name.Span, "expected '=' after %s", name.Text)
		p.skip()
		return
	}
	p.pos++

	if array {
		if !p.is("{") {
			p.errorf(name.Span, "expected '{' for array %s", name.Text)
		}
		p.skip()
		return
	}

	var parts []string
	var span Span
	for {
		t, ok := p.cur()
		if !ok {
			p.errorf(name.Span, "expected ';' after %s", name.Text)
			break
		}
		if t.Kind == TokPunct && (t.Text == ";" || t.Text == "}") {
			if t.Text == ";" {
				p.pos++
			}
			break
		}
		if len(parts) == 0 {
			span = t.Span
		} else {
			span = join(span, t.Span)
		}
		if t.Kind == TokString {
			parts = append(parts, unquote(t.Text))
		} else {
			parts = append(parts, t.Text)
		}
		p.pos++
	}
	c.Props[Key(name.Text)] = ConfigValue{Text: strings.Join(parts, ""), Span: span}
}

// Declarations lists the functions declared under CfgFunctions. A function
// class F in category C of tag class T is exported as <tag>_fnc_F, where tag
// is T's `tag` property or T's name. Its file is F's `file` property, or
// fn_F.sqf inside C's `file` directory, or functions\C\fn_F.sqf.
func Declarations(root *ConfigClass) (DeclaredFunctions, []Diagnostic) {
	out := make(DeclaredFunctions)
	var errs []Diagnostic
	cfg := root.Class("CfgFunctions")
	if cfg == nil {
		return out, nil
	}
	for _, tagClass := range cfg.Classes {
		tag := tagClass.Name
		if v, ok := tagClass.Prop("tag"); ok && v.Text != "" {
			tag = v.Text
		}
		for _, category := range tagClass.Classes {
			dir := `functions\` + category.Name
			if v, ok := category.Prop("file"); ok && v.Text != "" {
				dir = v.Text
			}
			for _, fn := range category.Classes {
				name := tag + "_fnc_" + fn.Name
				ext := ".sqf"
				if v, ok := fn.Prop("ext"); ok && v.Text != "" {
					ext = v.Text
				}
				decl := Declaration{
					Name: name,
					Path: strings.TrimRight(dir, `\/`) + `\fn_` + fn.Name + ext,
					Span: fn.NameSpan,
				}
				if v, ok := fn.Prop("file"); ok && v.Text != "" {
					decl.Path = v.Text
					decl.Span = v.Span
				}
				if prev, dup := out[Key(name)]; dup {
					errs = append(errs, Diagnostic{
						Severity: SeverityError,
						Code:     CodeConfig,
						Message:  fmt.Sprintf("function %s is declared twice (first at %s)", name, prev.Span),
						Span:     fn.NameSpan,
					})
					continue
				}
				out[Key(name)] = decl
			}
		}
	}
	return out, errs
}

// ExtractDeclarations parses a marker file and lists its declared functions.
// Any diagnostic means the marker could not be used.
func ExtractDeclarations(text string, opts PreprocessOptions) (DeclaredFunctions, []Diagnostic) {
	root, errs := ParseConfig(text, opts)
	if root == nil {
		return nil, errs
	}
	decls, more := Declarations(root)
	return decls, append(errs, more...)
}
