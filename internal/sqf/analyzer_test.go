package sqf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analyze(t *testing.T, src string, in AnalyzeInput) *Analysis {
	t.Helper()
	pre, diag := Preprocess(src, PreprocessOptions{})
	require.Nil(t, diag)
	f, errs := Parse(pre.Tokens)
	require.Empty(t, errs)
	return Analyze(f, in)
}

func codes(diags []Diagnostic) []string {
	out := make([]string, len(diags))
	for i, d := range diags {
		out[i] = d.Code
	}
	return out
}

func withoutCode(diags []Diagnostic, code string) []Diagnostic {
	var out []Diagnostic
	for _, d := range diags {
		if d.Code != code {
			out = append(out, d)
		}
	}
	return out
}

func TestAnalyze_UndefinedVariable(t *testing.T) {
	t.Parallel()
	a := analyze(t, "hint _q; hint str _q;", AnalyzeInput{Path: "/p/a.sqf"})
	require.Len(t, a.Diagnostics, 2, "one per use site")
	for _, d := range a.Diagnostics {
		assert.Equal(t, CodeUndefinedVariable, d.Code)
		assert.Equal(t, SeverityError, d.Severity)
	}
	assert.Equal(t, Span{Start: 5, End: 7}, a.Diagnostics[0].Span)
	assert.Equal(t, Span{Start: 18, End: 20}, a.Diagnostics[1].Span)
}

func TestAnalyze_UnusedVariable(t *testing.T) {
	t.Parallel()
	a := analyze(t, "private _a = 1;", AnalyzeInput{Path: "/p/a.sqf"})
	require.Len(t, a.Diagnostics, 1)
	assert.Equal(t, CodeUnusedVariable, a.Diagnostics[0].Code)
	assert.Equal(t, Span{Start: 8, End: 10}, a.Diagnostics[0].Span)
	assert.Equal(t, TypeNumber, a.Types[Span{Start: 8, End: 10}])
}

func TestAnalyze_TypeMismatch(t *testing.T) {
	t.Parallel()
	a := analyze(t, `private _a = 1 + "x"; hint str _a;`, AnalyzeInput{Path: "/p/a.sqf"})
	assert.Equal(t, []string{CodeTypeMismatch}, codes(a.Diagnostics))
}

func TestAnalyze_MagicVariables(t *testing.T) {
	t.Parallel()
	a := analyze(t, `{ hint str _x } forEach [1, 2]; hint str _this;`, AnalyzeInput{Path: "/p/a.sqf"})
	assert.Empty(t, a.Diagnostics)
}

func TestAnalyze_ForLoopVariable(t *testing.T) {
	t.Parallel()
	a := analyze(t, `for "_i" from 0 to 2 do { hint str _i };`, AnalyzeInput{Path: "/p/a.sqf"})
	assert.Empty(t, a.Diagnostics)
}

func TestAnalyze_NestedScopeSeesOuterLocals(t *testing.T) {
	t.Parallel()
	a := analyze(t, `private _a = 1; if (true) then { hint str _a };`, AnalyzeInput{Path: "/p/a.sqf"})
	assert.Empty(t, a.Diagnostics)

	// the inner declaration is gone once its block closes
	a = analyze(t, `if (true) then { private _b = 1; hint str _b }; hint str _b;`, AnalyzeInput{Path: "/p/a.sqf"})
	assert.Equal(t, []string{CodeUndefinedVariable}, codes(a.Diagnostics))
}

func TestAnalyze_Signature(t *testing.T) {
	t.Parallel()
	a := analyze(t, "params [\"_a\", [\"_b\", 0]];\n_a + _b", AnalyzeInput{Path: "/p/fn_add.sqf", Function: "TAG_fnc_add"})

	require.NotNil(t, a.Signature)
	assert.Equal(t, []Parameter{{Name: "_a"}, {Name: "_b", Type: TypeNumber}}, a.Signature.Parameters)
	assert.Equal(t, TypeNumber, a.Signature.Returns)

	g, ok := a.Globals["tag_fnc_add"]
	require.True(t, ok)
	assert.Equal(t, OriginExternal, g.Origin.Kind)
	assert.Equal(t, "/p/fn_add.sqf", g.Origin.Path)
	assert.Equal(t, TypeCode, g.Type)
	assert.Same(t, a.Signature, g.Signature)
}

func TestAnalyze_NoSignatureWithoutFunction(t *testing.T) {
	t.Parallel()
	a := analyze(t, "1", AnalyzeInput{Path: "/p/a.sqf"})
	assert.Nil(t, a.Signature)
	assert.Empty(t, a.Globals)
}

func TestAnalyze_ForeignCall(t *testing.T) {
	t.Parallel()
	foreign := map[string]Global{
		"tag_fnc_init": {
			Name:      "TAG_fnc_init",
			Origin:    External("/p/init.sqf", nil),
			Type:      TypeCode,
			Signature: &Signature{Returns: TypeNumber},
		},
	}
	src := "private _r = [] call TAG_fnc_init; hint str (_r + 1);"
	a := analyze(t, src, AnalyzeInput{Path: "/p/b.sqf", Foreign: foreign})

	assert.Empty(t, a.Diagnostics)
	assert.Equal(t, TypeNumber, a.Types[Span{Start: 8, End: 10}])

	origin := a.Origins[Span{Start: 21, End: 33}]
	assert.Equal(t, OriginExternal, origin.Kind)
	assert.Equal(t, "/p/init.sqf", origin.Path)
	assert.Equal(t, SemFunction, a.Kinds[Span{Start: 21, End: 33}])
	assert.Contains(t, a.Explanations[Span{Start: 21, End: 33}], "TAG_fnc_init")
}

func TestAnalyze_ParameterHints(t *testing.T) {
	t.Parallel()
	foreign := map[string]Global{
		"tag_fnc_f": {
			Name:   "TAG_fnc_f",
			Origin: External("/p/f.sqf", nil),
			Type:   TypeCode,
			Signature: &Signature{
				Parameters: []Parameter{{Name: "_a", Type: TypeNumber}, {Name: "_b", Type: TypeString}},
				Returns:    TypeNothing,
			},
		},
	}
	a := analyze(t, `[1, "x"] call TAG_fnc_f;`, AnalyzeInput{Path: "/p/b.sqf", Foreign: foreign})
	assert.Empty(t, a.Diagnostics)
	assert.Equal(t, []ParameterHint{
		{Name: "_a", Span: Span{Start: 1, End: 2}},
		{Name: "_b", Span: Span{Start: 4, End: 7}},
	}, a.Parameters)

	a = analyze(t, `["x"] call TAG_fnc_f;`, AnalyzeInput{Path: "/p/b.sqf", Foreign: foreign})
	assert.Equal(t, []string{CodeTypeMismatch}, codes(a.Diagnostics))
}

func TestAnalyze_SelfReference(t *testing.T) {
	t.Parallel()
	foreign := map[string]Global{
		"tag_fnc_self": {Name: "TAG_fnc_self", Origin: External("/p/old.sqf", nil), Type: TypeCode},
	}
	a := analyze(t, "call TAG_fnc_self;", AnalyzeInput{Path: "/p/self.sqf", Function: "TAG_fnc_self", Foreign: foreign})

	assert.Empty(t, a.Diagnostics)
	origin := a.Origins[Span{Start: 5, End: 17}]
	assert.Equal(t, OriginInFile, origin.Kind)
}

func TestAnalyze_GlobalExport(t *testing.T) {
	t.Parallel()
	a := analyze(t, "MyGlobal = 5; hint str MyGlobal;", AnalyzeInput{Path: "/p/a.sqf"})

	assert.Equal(t, []string{CodeGlobalExported}, codes(a.Diagnostics))
	g, ok := a.Globals["myglobal"]
	require.True(t, ok)
	assert.Equal(t, TypeNumber, g.Type)
	require.NotNil(t, g.Origin.ExternalSpan)
	assert.Equal(t, Span{Start: 0, End: 8}, *g.Origin.ExternalSpan)

	use := a.Origins[Span{Start: 23, End: 31}]
	assert.Equal(t, OriginInFile, use.Kind)
	assert.Equal(t, Span{Start: 0, End: 8}, use.Span)
}

func TestAnalyze_Scopes(t *testing.T) {
	t.Parallel()
	a := analyze(t, "private _a = 1; hint str _a; G = 2;", AnalyzeInput{Path: "/p/a.sqf"})
	require.Len(t, a.Scopes, 2)
	assert.Equal(t, []string{"_a"}, a.Scopes[0])
	assert.Equal(t, []string{"G"}, a.Scopes[1])
}

func TestAnalyze_Explanations(t *testing.T) {
	t.Parallel()
	a := analyze(t, "hint str 1;", AnalyzeInput{Path: "/p/a.sqf"})
	assert.Contains(t, a.Explanations[Span{Start: 0, End: 4}], "hint String -> Nothing")
	assert.Empty(t, withoutCode(a.Diagnostics, CodeGlobalExported))
}

func TestHighlight_Ordering(t *testing.T) {
	t.Parallel()
	src := "#define N 5\n// c\nprivate _a = N + 1; hint str _a;"
	pre, diag := Preprocess(src, PreprocessOptions{})
	require.Nil(t, diag)
	f, errs := Parse(pre.Tokens)
	require.Empty(t, errs)
	toks := Highlight(pre.Lexemes, Analyze(f, AnalyzeInput{Path: "/p/a.sqf"}))

	require.NotEmpty(t, toks)
	for i := 1; i < len(toks); i++ {
		assert.Less(t, toks[i-1].Span.Start, toks[i].Span.Start)
	}
	assert.Equal(t, SemMacro, toks[0].Kind)

	byText := map[string]SemanticKind{}
	for _, tok := range toks {
		byText[src[tok.Span.Start:tok.Span.End]] = tok.Kind
	}
	assert.Equal(t, SemComment, byText["// c"])
	assert.Equal(t, SemKeyword, byText["private"])
	assert.Equal(t, SemVariable, byText["_a"])
	assert.Equal(t, SemOperator, byText["+"])
	assert.Equal(t, SemNumber, byText["1"])
}
