package sqf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, src string) (*File, []Diagnostic) {
	t.Helper()
	toks, err := Lex(src)
	require.NoError(t, err)
	return Parse(toks)
}

func parseClean(t *testing.T, src string) *File {
	t.Helper()
	f, errs := parse(t, src)
	require.Empty(t, errs)
	return f
}

func TestParse_Assignment(t *testing.T) {
	t.Parallel()
	f := parseClean(t, "private _x = 1 + 2 * 3;")
	require.Len(t, f.Stmts, 1)

	as, ok := f.Stmts[0].(*AssignStmt)
	require.True(t, ok)
	assert.True(t, as.Private)
	assert.Equal(t, "_x", as.Name)
	assert.Equal(t, Span{Start: 8, End: 10}, as.NameSpan)

	plus, ok := as.Value.(*BinaryCmd)
	require.True(t, ok)
	assert.Equal(t, "+", plus.Name)
	mul, ok := plus.Right.(*BinaryCmd)
	require.True(t, ok)
	assert.Equal(t, "*", mul.Name)
}

func TestParse_IfThenElse(t *testing.T) {
	t.Parallel()
	f := parseClean(t, `if (_a) then { hint "x" } else { hint "y" };`)
	require.Len(t, f.Stmts, 1)

	then, ok := f.Stmts[0].(*ExprStmt).X.(*BinaryCmd)
	require.True(t, ok)
	assert.Equal(t, "then", then.Name)
	cond, ok := then.Left.(*UnaryCmd)
	require.True(t, ok)
	assert.Equal(t, "if", cond.Name)
	els, ok := then.Right.(*BinaryCmd)
	require.True(t, ok)
	assert.Equal(t, "else", els.Name)
}

func TestParse_CallWithArguments(t *testing.T) {
	t.Parallel()
	f := parseClean(t, "[1, 2] call TAG_fnc_add")
	call, ok := f.Stmts[0].(*ExprStmt).X.(*BinaryCmd)
	require.True(t, ok)
	assert.Equal(t, "call", call.Name)
	args, ok := call.Left.(*ArrayLit)
	require.True(t, ok)
	assert.Len(t, args.Elems, 2)
	fn, ok := call.Right.(*Ident)
	require.True(t, ok)
	assert.Equal(t, "TAG_fnc_add", fn.Name)
}

func TestParse_UnaryChain(t *testing.T) {
	t.Parallel()
	f := parseClean(t, "!alive player")
	not, ok := f.Stmts[0].(*ExprStmt).X.(*UnaryCmd)
	require.True(t, ok)
	assert.Equal(t, "!", not.Name)
	alive, ok := not.Arg.(*UnaryCmd)
	require.True(t, ok)
	assert.Equal(t, "alive", alive.Name)
	_, ok = alive.Arg.(*NullaryCmd)
	assert.True(t, ok)
}

func TestParse_HashBindsTighterThanUnary(t *testing.T) {
	t.Parallel()
	f := parseClean(t, "count _a # 0")
	count, ok := f.Stmts[0].(*ExprStmt).X.(*UnaryCmd)
	require.True(t, ok)
	hash, ok := count.Arg.(*BinaryCmd)
	require.True(t, ok)
	assert.Equal(t, "#", hash.Name)
}

func TestParse_ForLoop(t *testing.T) {
	t.Parallel()
	f := parseClean(t, `for "_i" from 0 to 2 do { hint str _i };`)
	do, ok := f.Stmts[0].(*ExprStmt).X.(*BinaryCmd)
	require.True(t, ok)
	assert.Equal(t, "do", do.Name)
	to, ok := do.Left.(*BinaryCmd)
	require.True(t, ok)
	assert.Equal(t, "to", to.Name)
	_, ok = do.Right.(*CodeLit)
	assert.True(t, ok)
}

func TestParse_Recovery(t *testing.T) {
	t.Parallel()
	f, errs := parse(t, "x = ; y = 2;")
	require.Len(t, errs, 1)
	assert.Equal(t, CodeSyntax, errs[0].Code)
	require.Len(t, f.Stmts, 2)
	y, ok := f.Stmts[1].(*AssignStmt)
	require.True(t, ok)
	assert.Equal(t, "y", y.Name)
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		src  string
	}{
		{"unterminated code", "{ hint 1"},
		{"unterminated array", "x = [1, 2"},
		{"missing operand", "hint;"},
		{"missing separator", "x = 1 y = 2"},
		{"stray closer", "x = 1; }"},
		{"unclosed paren", "x = (1 + 2;"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errs := parse(t, tt.src)
			assert.NotEmpty(t, errs)
		})
	}
}
