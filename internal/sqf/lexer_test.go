package sqf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenTexts(toks []Token) []string {
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = t.Text
	}
	return out
}

func TestLex_Basic(t *testing.T) {
	t.Parallel()
	toks, err := Lex("private _x = 1; // note\n#define A 2")
	require.NoError(t, err)

	assert.Equal(t, []string{"private", "_x", "=", "1", ";", "// note", "#define", "A", "2"}, tokenTexts(toks))
	assert.Equal(t, TokComment, toks[5].Kind)
	assert.Equal(t, TokDirective, toks[6].Kind)
	assert.Equal(t, 0, toks[5].Line)
	assert.Equal(t, 1, toks[6].Line)
	assert.Equal(t, Span{Start: 8, End: 10}, toks[1].Span)
}

func TestLex_Strings(t *testing.T) {
	t.Parallel()
	toks, err := Lex(`hint "a""b"; hint 'c'`)
	require.NoError(t, err)
	require.Len(t, toks, 5)
	assert.Equal(t, TokString, toks[1].Kind)
	assert.Equal(t, `"a""b"`, toks[1].Text)
	assert.Equal(t, `'c'`, toks[4].Text)
	assert.Equal(t, `a"b`, unquote(toks[1].Text))
}

func TestLex_Numbers(t *testing.T) {
	t.Parallel()
	toks, err := Lex("1 2.5 .5 1e3 0x1F $ff")
	require.NoError(t, err)
	require.Len(t, toks, 6)
	want := []float64{1, 2.5, 0.5, 1000, 31, 255}
	for i, tok := range toks {
		assert.Equal(t, TokNumber, tok.Kind, tok.Text)
		v, err := ParseNumber(tok.Text)
		require.NoError(t, err)
		assert.Equal(t, want[i], v)
	}
}

func TestLex_Continuation(t *testing.T) {
	t.Parallel()
	toks, err := Lex("#define A 1 \\\n + 2\nx")
	require.NoError(t, err)
	require.Len(t, toks, 6)
	for _, tok := range toks[:5] {
		assert.Equal(t, 0, tok.Line, tok.Text)
	}
	assert.Equal(t, 1, toks[5].Line)
}

func TestLex_Errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		src  string
	}{
		{"unterminated string", `hint "abc`},
		{"unterminated comment", "/* abc"},
		{"bad character", "x = 1 @ 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Lex(tt.src)
			require.Error(t, err)
		})
	}
}

func TestLex_HashNotAtLineStart(t *testing.T) {
	t.Parallel()
	toks, err := Lex("_a # 0")
	require.NoError(t, err)
	require.Len(t, toks, 3)
	assert.Equal(t, TokPunct, toks[1].Kind)
}
