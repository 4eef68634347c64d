package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnoswap-labs/unroll/internal/ast"
)

func TestLexer_Tokenize(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		input string
		want  []Token
	}{
		{
			name:  "assignment",
			input: "i <<= 1",
			want: []Token{
				{Type: TokenIdent, Value: "i", Position: 0},
				{Type: TokenPunct, Value: "<<=", Position: 2},
				{Type: TokenInt, Value: "1", Position: 6},
				{Type: TokenEOF, Position: 7},
			},
		},
		{
			name:  "system call",
			input: `$size({1.5e3, "a\"b"})`,
			want: []Token{
				{Type: TokenIdent, Value: "$size", Position: 0},
				{Type: TokenPunct, Value: "(", Position: 5},
				{Type: TokenPunct, Value: "{", Position: 6},
				{Type: TokenReal, Value: "1.5e3", Position: 7},
				{Type: TokenPunct, Value: ",", Position: 12},
				{Type: TokenString, Value: `"a\"b"`, Position: 14},
				{Type: TokenPunct, Value: "}", Position: 20},
				{Type: TokenPunct, Value: ")", Position: 21},
				{Type: TokenEOF, Position: 22},
			},
		},
		{
			name:  "postfix then binary",
			input: "i+++1",
			want: []Token{
				{Type: TokenIdent, Value: "i", Position: 0},
				{Type: TokenPunct, Value: "++", Position: 1},
				{Type: TokenPunct, Value: "+", Position: 3},
				{Type: TokenInt, Value: "1", Position: 4},
				{Type: TokenEOF, Position: 5},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := NewLexer(tt.input).Tokenize()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLexer_Errors(t *testing.T) {
	t.Parallel()
	for _, input := range []string{`"open`, "1e", "12abc", "a # b", "\"a\nb\""} {
		_, err := NewLexer(input).Tokenize()
		assert.ErrorIs(t, err, ErrInvalidToken, input)
	}
}

func TestParseExpr(t *testing.T) {
	t.Parallel()
	tests := []struct {
		input string
		want  string
	}{
		{"1 + 2 * 3", "(1 + (2 * 3))"},
		{"(1 + 2) * 3", "((1 + 2) * 3)"},
		{"a - b - c", "((a - b) - c)"},
		{"2 ** 3 ** 2", "(2 ** (3 ** 2))"},
		{"i < n && j != 0 || k", "(((i < n) && (j != 0)) || k)"},
		{"a | b ^ c & d", "(a | (b ^ (c & d)))"},
		{"1 << 2 + 1", "(1 << (2 + 1))"},
		{"i = i + 1", "(i = (i + 1))"},
		{"i = j = 0", "(i = (j = 0))"},
		{"i <<= 1", "(i <<= 1)"},
		{"i++", "(i++)"},
		{"--i", "(--i)"},
		{"-x * 2", "((-x) * 2)"},
		{"!~x", "(!(~x))"},
		{"c ? 1 : d ? 2 : 3", "(c ? 1 : (d ? 2 : 3))"},
		{"{1, 2, 3}[i]", "{1, 2, 3}[i]"},
		{"{}", "{}"},
		{"$clog2(N) + f()", "($clog2(N) + f())"},
		{"m[0][1]", "m[0][1]"},
		{"2.0 * .5", "(2.0 * 0.5)"},
		{`"a" + "b"`, `("a" + "b")`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got, err := ParseExpr(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())

			// the rendered form parses back to the same tree
			again, err := ParseExpr(got.String())
			require.NoError(t, err)
			assert.Equal(t, got, again)
		})
	}
}

func TestParseExpr_Unresolved(t *testing.T) {
	t.Parallel()
	got, err := ParseExpr("i")
	require.NoError(t, err)
	named, ok := got.(*ast.NamedValue)
	require.True(t, ok)
	assert.Equal(t, "i", named.Name)
	assert.Nil(t, named.Symbol)
}

func TestParseExpr_Errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		input string
		want  error
	}{
		{"", ErrUnexpectedToken},
		{"1 +", ErrUnexpectedToken},
		{"(1", ErrUnexpectedToken},
		{"1 2", ErrUnexpectedToken},
		{"f(1,", ErrUnexpectedToken},
		{"{1 2}", ErrUnexpectedToken},
		{"c ? 1", ErrUnexpectedToken},
		{"1 = 2", ErrUnexpectedToken},
		{"99999999999999999999", ErrInvalidToken},
		{`"\q"`, ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			_, err := ParseExpr(tt.input)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
