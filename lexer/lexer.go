package lexer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vara-lang/vara/object"
	"github.com/vara-lang/vara/stack"
	"github.com/vara-lang/vara/token"
)

type Lexer struct {
	reader          strings.Reader
	input           string
	ch              rune // current rune under examination
	line            int  // the line number
	char            int  // the character number
	tstart          int  // the value of char at the start of a token
	newline         bool // whether we are at the start of a line and should treat whitespace syntactically
	dedentsFlushed  bool // whether the ENDs for open blocks at EOF have been emitted
	whitespaceStack stack.Stack[string]
	Ers             object.Errors
	source          string
}

func New(source, input string) *Lexer {
	r := *strings.NewReader(input)
	wsStack := stack.NewStack[string]()
	wsStack.Push("")
	l := &Lexer{reader: r,
		input:           input,
		line:            1,
		char:            -1,
		newline:         true,
		whitespaceStack: *wsStack,
		Ers:             []*object.Error{},
		source:          source,
	}
	l.readChar()
	return l
}

func LexDump(input string) {
	fmt.Print("\nLexer output: \n\n")
	l := New("", input)
	for tok := l.NextToken(); tok.Type != token.EOF; tok = l.NextToken() {
		fmt.Println(tok)
	}
	fmt.Println()
}

func (l *Lexer) NextToken() token.Token {
	var tok token.Token

	if l.newline {
		return l.interpretWhitespace()
	}

	l.skipWhitespace()

	l.tstart = l.char

	switch l.ch {
	case '\n':
		tok = l.NewToken(token.NEWLINE, ";")
	case '#':
		tok = l.NewToken(token.COMMENT, l.readComment())
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			tok = l.NewToken(token.EQ, "==")
		} else {
			tok = l.NewToken(token.ASSIGN, "=")
		}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok = l.NewToken(token.NOT_EQ, "!=")
		} else {
			l.Throw("lex/ill", l.NewToken(token.ILLEGAL, "lex/ill"), l.ch)
			tok = l.NewToken(token.ILLEGAL, "lex/ill")
		}
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			tok = l.NewToken(token.LT_EQ, "<=")
		} else {
			tok = l.NewToken(token.LT, "<")
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = l.NewToken(token.GT_EQ, ">=")
		} else {
			tok = l.NewToken(token.GT, ">")
		}
	case '+':
		tok = l.NewToken(token.PLUS, "+")
	case '-':
		tok = l.NewToken(token.MINUS, "-")
	case '*':
		tok = l.NewToken(token.ASTERISK, "*")
	case '/':
		tok = l.NewToken(token.SLASH, "/")
	case '%':
		tok = l.NewToken(token.PERCENT, "%")
	case ':':
		tok = l.NewToken(token.COLON, ":")
	case ',':
		tok = l.NewToken(token.COMMA, ",")
	case '{':
		tok = l.NewToken(token.LBRACE, "{")
	case '}':
		tok = l.NewToken(token.RBRACE, "}")
	case '[':
		tok = l.NewToken(token.LBRACK, "[")
	case ']':
		tok = l.NewToken(token.RBRACK, "]")
	case '(':
		tok = l.NewToken(token.LPAREN, "(")
	case ')':
		tok = l.NewToken(token.RPAREN, ")")
	case '"':
		tok = l.NewToken(token.STRING, "")
		s, ok := l.readString()
		tok.Literal = s
		if !ok {
			l.Throw("lex/quote", tok)
		}
	case 0:
		// Close any blocks still open at end of input before the EOF.
		if !l.dedentsFlushed {
			l.dedentsFlushed = true
			levels := l.whitespaceStack.Len() - 1
			if levels > 0 {
				for i := 0; i < levels; i++ {
					l.whitespaceStack.Pop()
				}
				return l.NewToken(token.END, strconv.Itoa(levels))
			}
		}
		tok = l.NewToken(token.EOF, "EOF")
	default:
		if l.ch == 'f' && l.peekChar() == '"' {
			l.readChar()
			tok = l.NewToken(token.FSTRING, "")
			s, ok := l.readString()
			tok.Literal = s
			if !ok {
				l.Throw("lex/quote", tok)
			}
			break
		}
		if isLetter(l.ch) {
			tok.Literal = l.readIdentifier()
			tok = l.NewToken(token.LookupIdent(tok.Literal), tok.Literal)
			return tok
		} else if isDigit(l.ch) {
			numString := l.readNumber()
			if _, err := strconv.ParseInt(numString, 0, 64); err == nil {
				return l.NewToken(token.INT, numString)
			}
			if _, err := strconv.ParseFloat(numString, 64); err == nil {
				return l.NewToken(token.FLOAT, numString)
			}
			l.Throw("lex/num", l.NewToken(token.ILLEGAL, "lex/num"), numString)
			return l.NewToken(token.ILLEGAL, "lex/num")
		} else {
			l.Throw("lex/ill", l.NewToken(token.ILLEGAL, "lex/ill"), l.ch)
			tok = l.NewToken(token.ILLEGAL, "lex/ill")
		}
	}
	tok.Line = l.line
	tok.ChStart = l.tstart
	tok.ChEnd = l.char
	l.readChar()
	return tok
}

// interpretWhitespace is called at the start of each line: it measures the
// line's indentation against the stack of enclosing indentations and turns
// the difference into BEGIN and END tokens. Spaces and tabs may both be
// used, but the indentation of a block must be an extension of the
// indentation of the block enclosing it.
func (l *Lexer) interpretWhitespace() token.Token {
	l.newline = false
	whitespace := ""
	for l.ch == ' ' || l.ch == '\t' {
		whitespace = whitespace + string(l.ch)
		l.readChar()
	}
	if l.ch == '\n' || l.ch == '\r' {
		return l.NewToken(token.NO_INDENT, "|||")
	}
	if l.ch == '#' {
		return l.NewToken(token.COMMENT, l.readComment())
	}
	if l.ch == 0 {
		return l.NewToken(token.NO_INDENT, "|||")
	}
	previousWhitespace, _ := l.whitespaceStack.HeadValue()
	if whitespace == previousWhitespace {
		return l.NewToken(token.NO_INDENT, "|||")
	}
	if strings.HasPrefix(whitespace, previousWhitespace) {
		l.whitespaceStack.Push(whitespace)
		return l.NewToken(token.BEGIN, "|->")
	}
	level := l.whitespaceStack.Find(whitespace)
	if level > 0 {
		for i := 0; i < level; i++ {
			l.whitespaceStack.Pop()
		}
		return l.NewToken(token.END, strconv.Itoa(level))
	}
	l.Throw("lex/wsp", l.NewToken(token.ILLEGAL, "lex/wsp"), describeWhitespace(whitespace))
	return l.NewToken(token.ILLEGAL, "lex/wsp")
}

func describeWhitespace(s string) string {
	if s == "" {
		return "no indentation"
	}
	spaces := strings.Count(s, " ")
	tabs := strings.Count(s, "\t")
	result := ""
	if spaces > 0 {
		result = strconv.Itoa(spaces) + " space"
		if spaces > 1 {
			result = result + "s"
		}
	}
	if tabs > 0 {
		if result != "" {
			result = result + ", "
		}
		result = result + strconv.Itoa(tabs) + " tab"
		if tabs > 1 {
			result = result + "s"
		}
	}
	return result
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' {
		l.readChar()
	}
}

func (l *Lexer) readChar() {
	l.char++
	if l.ch == '\n' {
		l.line++
		l.newline = true
		l.char = 0
		l.tstart = 0
	}
	if l.reader.Len() == 0 {
		l.ch = 0
	} else {
		l.ch, _, _ = l.reader.ReadRune()
	}
}

func (l *Lexer) peekChar() rune {
	if l.reader.Len() == 0 {
		return 0
	}
	ru, _, _ := l.reader.ReadRune()
	l.reader.UnreadRune()
	return ru
}

func (l *Lexer) readNumber() string {
	result := ""
	for isDigit(l.ch) || l.ch == '.' {
		result = result + string(l.ch)
		l.readChar()
	}
	return result
}

func (l *Lexer) readComment() string {
	result := ""
	for !(l.peekChar() == '\n' || l.peekChar() == 0) {
		result = result + string(l.peekChar())
		l.readChar()
	}
	return result
}

func (l *Lexer) readString() (string, bool) {
	escape := false
	result := ""
	for {
		l.readChar()
		if (l.ch == '"' && !escape) || l.ch == 0 || l.ch == '\r' || l.ch == '\n' {
			break
		}
		if l.ch == '\\' && !escape {
			escape = true
			continue
		}
		charToAdd := l.ch
		if escape {
			escape = false
			switch l.ch {
			case 'n':
				charToAdd = '\n'
			case 'r':
				charToAdd = '\r'
			case 't':
				charToAdd = '\t'
			case '"':
				charToAdd = '"'
			case '\\':
				charToAdd = '\\'
			}
		}
		result = result + string(charToAdd)
	}
	if l.ch == '\r' || l.ch == 0 || l.ch == '\n' {
		return result, false
	}
	return result, true
}

// readIdentifier accepts dots mid-identifier: a scope qualifier like
// "private.x" or a namespaced name like "db.query" is one token, and the
// parser or registry decides what the dots mean.
func (l *Lexer) readIdentifier() string {
	result := ""
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '.' {
		result = result + string(l.ch)
		l.readChar()
	}
	return result
}

func isLetter(ch rune) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}

func (l *Lexer) NewToken(tokenType token.TokenType, st string) token.Token {
	return token.Token{Type: tokenType, Literal: st, Source: l.source, Line: l.line, ChStart: l.tstart, ChEnd: l.char}
}

func (l *Lexer) Throw(errorID string, tok token.Token, args ...any) {
	l.Ers = object.Throw(errorID, l.Ers, tok, args...)
}
