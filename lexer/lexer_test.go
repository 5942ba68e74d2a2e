package lexer

import (
	"testing"

	"github.com/vara-lang/vara/token"
)

func collect(input string) []token.Token {
	l := New("test", input)
	result := []token.Token{}
	for tok := l.NextToken(); tok.Type != token.EOF; tok = l.NextToken() {
		result = append(result, tok)
	}
	return result
}

func types(toks []token.Token) []token.TokenType {
	result := []token.TokenType{}
	for _, tok := range toks {
		result = append(result, tok.Type)
	}
	return result
}

func sameTypes(a []token.TokenType, b []token.TokenType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestTokens(t *testing.T) {
	tests := []struct {
		input string
		want  []token.TokenType
	}{
		{"x = 1\n", []token.TokenType{token.NO_INDENT, token.IDENT, token.ASSIGN,
			token.INT, token.NEWLINE, token.NO_INDENT}},
		{"a <= b != c\n", []token.TokenType{token.NO_INDENT, token.IDENT, token.LT_EQ,
			token.IDENT, token.NOT_EQ, token.IDENT, token.NEWLINE, token.NO_INDENT}},
		{"3.14 * 2\n", []token.TokenType{token.NO_INDENT, token.FLOAT, token.ASTERISK,
			token.INT, token.NEWLINE, token.NO_INDENT}},
		{"not true and false\n", []token.TokenType{token.NO_INDENT, token.NOT, token.TRUE,
			token.AND, token.FALSE, token.NEWLINE, token.NO_INDENT}},
		{"xs[0]\n", []token.TokenType{token.NO_INDENT, token.IDENT, token.LBRACK,
			token.INT, token.RBRACK, token.NEWLINE, token.NO_INDENT}},
	}
	for _, test := range tests {
		toks := collect(test.input)
		if !sameTypes(types(toks), test.want) {
			t.Errorf("wrong tokens for %q : %v", test.input, types(toks))
		}
	}
}

func TestIndentation(t *testing.T) {
	toks := collect("if x:\n    y\n")
	want := []token.TokenType{token.NO_INDENT, token.IF, token.IDENT, token.COLON,
		token.NEWLINE, token.BEGIN, token.IDENT, token.NEWLINE, token.NO_INDENT, token.END}
	if !sameTypes(types(toks), want) {
		t.Errorf("wrong tokens: %v", types(toks))
	}
}

func TestDottedIdentifiers(t *testing.T) {
	tests := []struct{ input, literal string }{
		{"private.counter\n", "private.counter"},
		{"db.query\n", "db.query"},
		{"x\n", "x"},
	}
	for _, test := range tests {
		toks := collect(test.input)
		if toks[1].Type != token.IDENT || toks[1].Literal != test.literal {
			t.Errorf("wrong identifier for %q : got %q", test.input, toks[1].Literal)
		}
	}
}

func TestStrings(t *testing.T) {
	toks := collect("\"mome raths\"\n")
	if toks[1].Type != token.STRING || toks[1].Literal != "mome raths" {
		t.Errorf("wrong string token: %v", toks[1])
	}
	toks = collect("\"tab\\there\"\n")
	if toks[1].Literal != "tab\there" {
		t.Errorf("escape not interpreted: %q", toks[1].Literal)
	}
	toks = collect("f\"{x}!\"\n")
	if toks[1].Type != token.FSTRING || toks[1].Literal != "{x}!" {
		t.Errorf("wrong fstring token: %v", toks[1])
	}
}

func TestComments(t *testing.T) {
	toks := collect("x # the unknown\n")
	if toks[2].Type != token.COMMENT {
		t.Errorf("expected a comment token, got %v", toks[2])
	}
}

func TestLexErrors(t *testing.T) {
	tests := []struct {
		input   string
		errorId string
	}{
		{"x@y\n", "lex/ill"},
		{"\"no closing quote\n", "lex/quote"},
		{"1.2.3\n", "lex/num"},
		{"if x:\n    y\n  z\n", "lex/wsp"},
	}
	for _, test := range tests {
		l := New("test", test.input)
		for tok := l.NextToken(); tok.Type != token.EOF; tok = l.NextToken() {
		}
		if len(l.Ers) == 0 {
			t.Errorf("no error for %q", test.input)
			continue
		}
		if l.Ers[0].ErrorId != test.errorId {
			t.Errorf("expected %v error for %q, got %v", test.errorId, test.input, l.Ers[0].ErrorId)
		}
	}
}
