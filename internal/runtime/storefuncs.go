package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/risor-io/risor/object"

	"github.com/jward/sqfls/internal/store"
)

// Host functions over the analysis index. Risor cannot work with Go struct
// pointers directly, so rows are converted to maps of primitives here.

// files() → [{path, function, hash, version, fatal}]
func makeFilesFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("files", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("files", 0, len(args))
		}
		files, err := s.Files()
		if err != nil {
			return object.Errorf("files: %v", err)
		}
		out := make([]object.Object, 0, len(files))
		for _, f := range files {
			out = append(out, object.NewMap(map[string]object.Object{
				"path":     object.NewString(f.Path),
				"function": object.NewString(f.Function),
				"hash":     object.NewString(f.Hash),
				"version":  object.NewInt(int64(f.Version)),
				"fatal":    object.NewBool(f.Fatal),
			}))
		}
		return object.NewList(out)
	})
}

// globals() → [{name, path, origin_path, type, signature, parameters}]
func makeGlobalsFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("globals", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("globals", 0, len(args))
		}
		globals, err := s.Globals()
		if err != nil {
			return object.Errorf("globals: %v", err)
		}
		return globalsToList(globals)
	})
}

// globals_by_name(name) → [{...}]
func makeGlobalsByNameFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("globals_by_name", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("globals_by_name", 1, len(args))
		}
		name, err := toString(args[0])
		if err != nil {
			return object.Errorf("globals_by_name: %v", err)
		}
		globals, err := s.GlobalsByName(name)
		if err != nil {
			return object.Errorf("globals_by_name: %v", err)
		}
		return globalsToList(globals)
	})
}

// diagnostics([path]) → [{path, attributed, severity, code, message, start, end}]
//
// With a path, only diagnostics attributed to that file are returned.
func makeDiagnosticsFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("diagnostics", func(ctx context.Context, args ...object.Object) object.Object {
		var (
			diags []*store.Diagnostic
			err   error
		)
		switch len(args) {
		case 0:
			diags, err = s.Diagnostics()
		case 1:
			path, convErr := toString(args[0])
			if convErr != nil {
				return object.Errorf("diagnostics: %v", convErr)
			}
			diags, err = s.DiagnosticsFor(path)
		default:
			return object.Errorf("diagnostics: expected 0 or 1 arguments, got %d", len(args))
		}
		if err != nil {
			return object.Errorf("diagnostics: %v", err)
		}
		out := make([]object.Object, 0, len(diags))
		for _, d := range diags {
			out = append(out, object.NewMap(map[string]object.Object{
				"path":       object.NewString(d.Path),
				"attributed": object.NewString(d.Attributed),
				"severity":   object.NewInt(int64(d.Severity)),
				"code":       object.NewString(d.Code),
				"message":    object.NewString(d.Message),
				"start":      object.NewInt(int64(d.Start)),
				"end":        object.NewInt(int64(d.End)),
			}))
		}
		return object.NewList(out)
	})
}

// diagnostic_counts() → {"1": n, "2": n, ...} keyed by severity
func makeDiagnosticCountsFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("diagnostic_counts", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("diagnostic_counts", 0, len(args))
		}
		counts, err := s.DiagnosticCounts()
		if err != nil {
			return object.Errorf("diagnostic_counts: %v", err)
		}
		out := make(map[string]object.Object, len(counts))
		for sev, n := range counts {
			out[fmt.Sprint(sev)] = object.NewInt(int64(n))
		}
		return object.NewMap(out)
	})
}

// metadata(key) → string
func makeMetadataFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("metadata", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("metadata", 1, len(args))
		}
		key, err := toString(args[0])
		if err != nil {
			return object.Errorf("metadata: %v", err)
		}
		v, err := s.GetMetadata(key)
		if err != nil {
			return object.Errorf("metadata: %v", err)
		}
		return object.NewString(v)
	})
}

func makeDBQueryFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("db_query", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 1 {
			return object.Errorf("db_query: expected at least 1 argument (sql), got %d", len(args))
		}
		sqlStr, err := toString(args[0])
		if err != nil {
			return object.Errorf("db_query: %v", err)
		}

		// Only allow SELECT statements.
		trimmed := strings.TrimSpace(strings.ToUpper(sqlStr))
		if !strings.HasPrefix(trimmed, "SELECT") {
			return object.Errorf("db_query: only SELECT queries are allowed")
		}

		var queryArgs []any
		for _, arg := range args[1:] {
			switch v := arg.(type) {
			case *object.Int:
				queryArgs = append(queryArgs, v.Value())
			case *object.Float:
				queryArgs = append(queryArgs, v.Value())
			case *object.String:
				queryArgs = append(queryArgs, v.Value())
			case *object.Bool:
				queryArgs = append(queryArgs, v.Value())
			case *object.NilType:
				queryArgs = append(queryArgs, nil)
			default:
				queryArgs = append(queryArgs, fmt.Sprintf("%v", arg))
			}
		}

		rows, queryErr := s.DB().QueryContext(ctx, sqlStr, queryArgs...)
		if queryErr != nil {
			return object.Errorf("db_query: %v", queryErr)
		}
		defer rows.Close()

		cols, colErr := rows.Columns()
		if colErr != nil {
			return object.Errorf("db_query: columns: %v", colErr)
		}

		var results []object.Object
		for rows.Next() {
			values := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range values {
				ptrs[i] = &values[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return object.Errorf("db_query: scan: %v", err)
			}
			row := make(map[string]object.Object, len(cols))
			for i, col := range cols {
				row[col] = sqlValueToObject(values[i])
			}
			results = append(results, object.NewMap(row))
		}
		if err := rows.Err(); err != nil {
			return object.Errorf("db_query: rows: %v", err)
		}
		if results == nil {
			results = []object.Object{}
		}
		return object.NewList(results)
	})
}

// sqlValueToObject converts a database value to a Risor object.
func sqlValueToObject(v any) object.Object {
	if v == nil {
		return object.Nil
	}
	switch val := v.(type) {
	case int64:
		return object.NewInt(val)
	case float64:
		return object.NewFloat(val)
	case string:
		return object.NewString(val)
	case bool:
		return object.NewBool(val)
	case []byte:
		return object.NewString(string(val))
	default:
		return object.NewString(fmt.Sprintf("%v", val))
	}
}

func globalsToList(globals []*store.Global) object.Object {
	out := make([]object.Object, 0, len(globals))
	for _, g := range globals {
		params := make([]object.Object, 0, len(g.Parameters))
		for _, p := range g.Parameters {
			params = append(params, object.NewString(p))
		}
		m := map[string]object.Object{
			"name":        object.NewString(g.Name),
			"path":        object.NewString(g.Path),
			"origin_path": object.NewString(g.OriginPath),
			"type":        object.NewString(g.Type),
			"signature":   object.NewString(g.Signature),
			"parameters":  object.NewList(params),
		}
		if g.OriginStart != nil && g.OriginEnd != nil {
			m["origin_start"] = object.NewInt(int64(*g.OriginStart))
			m["origin_end"] = object.NewInt(int64(*g.OriginEnd))
		}
		out = append(out, object.NewMap(m))
	}
	return object.NewList(out)
}

func toString(obj object.Object) (string, error) {
	if s, ok := obj.(*object.String); ok {
		return s.Value(), nil
	}
	return "", fmt.Errorf("expected string, got %s", obj.Type())
}
