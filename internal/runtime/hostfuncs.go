package runtime

import (
	"context"
	"log/slog"
	"sort"

	"github.com/risor-io/risor/object"

	"github.com/jward/sqfls/internal/sqf"
)

// makeParseSQFFn creates the "parse_sqf" host function. It runs the whole
// engine over a source string without any project context.
//
// parse_sqf(source[, function]) → {fatal, diagnostics, globals, signature}
func makeParseSQFFn() *object.Builtin {
	return object.NewBuiltin("parse_sqf", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 1 || len(args) > 2 {
			return object.Errorf("parse_sqf: expected 1 or 2 arguments, got %d", len(args))
		}
		src, err := toString(args[0])
		if err != nil {
			return object.Errorf("parse_sqf: source: %v", err)
		}
		function := ""
		if len(args) == 2 {
			if function, err = toString(args[1]); err != nil {
				return object.Errorf("parse_sqf: function: %v", err)
			}
		}

		pre, fatal := sqf.Preprocess(src, sqf.PreprocessOptions{})
		if fatal != nil {
			return object.NewMap(map[string]object.Object{
				"fatal":       object.True,
				"diagnostics": diagnosticsToList([]sqf.Diagnostic{*fatal}),
				"globals":     object.NewList([]object.Object{}),
				"signature":   object.NewString(""),
			})
		}
		file, diags := sqf.Parse(pre.Tokens)
		a := sqf.Analyze(file, sqf.AnalyzeInput{Path: "<inline>", Function: function})
		diags = append(diags, a.Diagnostics...)

		globals := make([]object.Object, 0, len(a.Globals))
		for _, g := range sortedGlobals(a.Globals) {
			globals = append(globals, object.NewMap(map[string]object.Object{
				"name":      object.NewString(g.Name),
				"type":      object.NewString(g.Type.String()),
				"signature": object.NewString(g.Signature.String()),
			}))
		}
		return object.NewMap(map[string]object.Object{
			"fatal":       object.False,
			"diagnostics": diagnosticsToList(diags),
			"globals":     object.NewList(globals),
			"signature":   object.NewString(a.Signature.String()),
		})
	})
}

// makeParseConfigFn creates "parse_config", which extracts the functions a
// config.cpp or description.ext declares.
//
// parse_config(source) → {functions: [{name, path}], diagnostics}
func makeParseConfigFn() *object.Builtin {
	return object.NewBuiltin("parse_config", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("parse_config", 1, len(args))
		}
		src, err := toString(args[0])
		if err != nil {
			return object.Errorf("parse_config: %v", err)
		}
		decls, diags := sqf.ExtractDeclarations(src, sqf.PreprocessOptions{})

		keys := make([]string, 0, len(decls))
		for k := range decls {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		functions := make([]object.Object, 0, len(keys))
		for _, k := range keys {
			d := decls[k]
			functions = append(functions, object.NewMap(map[string]object.Object{
				"name": object.NewString(d.Name),
				"path": object.NewString(d.Path),
			}))
		}
		return object.NewMap(map[string]object.Object{
			"functions":   object.NewList(functions),
			"diagnostics": diagnosticsToList(diags),
		})
	})
}

// makeLanguageForFn creates "language_for".
//
// language_for(path) → string or nil
func makeLanguageForFn() *object.Builtin {
	return object.NewBuiltin("language_for", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("language_for", 1, len(args))
		}
		path, err := toString(args[0])
		if err != nil {
			return object.Errorf("language_for: %v", err)
		}
		lang, ok := LanguageForFile(path)
		if !ok {
			return object.Nil
		}
		return object.NewString(lang)
	})
}

// makeEmitFn creates "emit", which hands one report row to the host.
//
// emit(map)
func makeEmitFn(sink func(map[string]any)) *object.Builtin {
	return object.NewBuiltin("emit", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("emit", 1, len(args))
		}
		m, ok := args[0].(*object.Map)
		if !ok {
			return object.Errorf("emit: expected map, got %s", args[0].Type())
		}
		if sink != nil {
			row := make(map[string]any, len(m.Value()))
			for k, v := range m.Value() {
				row[k] = v.Interface()
			}
			sink(row)
		}
		return object.Nil
	})
}

func sortedGlobals(m map[string]sqf.Global) []sqf.Global {
	out := make([]sqf.Global, 0, len(m))
	for _, g := range m {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return sqf.Key(out[i].Name) < sqf.Key(out[j].Name) })
	return out
}

func diagnosticsToList(diags []sqf.Diagnostic) object.Object {
	out := make([]object.Object, 0, len(diags))
	for _, d := range diags {
		out = append(out, object.NewMap(map[string]object.Object{
			"severity": object.NewString(d.Severity.String()),
			"code":     object.NewString(d.Code),
			"message":  object.NewString(d.Message),
			"start":    object.NewInt(int64(d.Span.Start)),
			"end":      object.NewInt(int64(d.Span.End)),
		}))
	}
	return object.NewList(out)
}

// logObject provides log.Info/Warn/Error methods for Risor scripts.
type logObject struct {
	logger *slog.Logger
}

func (l *logObject) Info(msg string) {
	l.logger.Info(msg, "source", "script")
}

func (l *logObject) Warn(msg string) {
	l.logger.Warn(msg, "source", "script")
}

func (l *logObject) Error(msg string) {
	l.logger.Error(msg, "source", "script")
}
