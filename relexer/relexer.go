package relexer

// The relexer sits between the lexer and the parser and sanitizes the token
// stream: it throws away comments, blank lines and the NO_INDENT markers,
// expands a multi-level END into one END per block being closed, discards
// the newline between a colon and the BEGIN of its block, and complains
// about indentation that doesn't follow a colon.

import (
	"strconv"

	"github.com/vara-lang/vara/lexer"
	"github.com/vara-lang/vara/object"
	"github.com/vara-lang/vara/token"
)

type Relexer struct {
	source                 string
	lexer                  lexer.Lexer
	preTok, curTok, nexTok token.Token
	pendingEnds            int
	Errors                 object.Errors
}

func New(source, input string) *Relexer {
	l := *lexer.New(source, input)
	rl := &Relexer{lexer: l,
		source: source,
		preTok: l.NewToken(token.NEWLINE, ";"),
		curTok: l.NextToken(),
		nexTok: l.NextToken(),
		Errors: []*object.Error{},
	}
	return rl
}

func (rl *Relexer) NextToken() token.Token {
	// An END token from the lexer says how many blocks the dedent closes;
	// the parser wants one END per block.
	if rl.pendingEnds > 0 {
		rl.pendingEnds--
		return rl.lexer.NewToken(token.END, "1")
	}

	// A BEGIN is only legal when the line before it ended in a colon. The
	// burning of that colon's newline leaves the colon as preTok.
	if rl.curTok.Type == token.BEGIN && rl.preTok.Type != token.COLON {
		rl.Throw("relex/indent", rl.curTok)
	}

	switch rl.curTok.Type {
	case token.NO_INDENT, token.COMMENT:
		return rl.burnToken()
	case token.NEWLINE:
		if rl.nexTok.Type == token.NO_INDENT ||
			rl.nexTok.Type == token.NEWLINE ||
			rl.nexTok.Type == token.COMMENT {
			return rl.burnNextToken()
		}
		if rl.preTok.Type == token.NEWLINE ||
			rl.preTok.Type == token.COLON ||
			rl.preTok.Type == token.BEGIN ||
			rl.nexTok.Type == token.END ||
			rl.nexTok.Type == token.EOF {
			return rl.burnToken()
		}
	case token.END:
		levels, _ := strconv.Atoi(rl.curTok.Literal)
		rl.pendingEnds = levels - 1
		tok := rl.curTok
		tok.Literal = "1"
		rl.advance()
		return tok
	}

	tok := rl.curTok
	rl.advance()
	return tok
}

func (rl *Relexer) advance() {
	rl.preTok = rl.curTok
	rl.curTok = rl.nexTok
	rl.nexTok = rl.lexer.NextToken()
}

// burnToken makes the current token vanish so completely that it doesn't
// even become the preTok, and returns what we would have gotten did it not
// exist.
func (rl *Relexer) burnToken() token.Token {
	rl.curTok = rl.nexTok
	rl.nexTok = rl.lexer.NextToken()
	return rl.NextToken()
}

func (rl *Relexer) burnNextToken() token.Token {
	rl.nexTok = rl.lexer.NextToken()
	return rl.NextToken()
}

func (rl *Relexer) GetErrors() object.Errors {
	rl.Errors = append(rl.Errors, rl.lexer.Ers...)
	return rl.Errors
}

func (rl *Relexer) Throw(errorID string, tok token.Token, args ...any) {
	rl.Errors = object.Throw(errorID, rl.Errors, tok, args...)
}
