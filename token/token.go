package token

type TokenType string

const (
	ILLEGAL = "ILLEGAL"
	EOF     = "EOF"

	// Identifiers + literals
	IDENT   = "IDENT" // x, private.x, db.query ...
	INT     = "int"   // 1343456
	FLOAT   = "float" // 1.23
	STRING  = "string"
	FSTRING = "fstring" // f"..."
	TRUE    = "true"
	FALSE   = "false"
	NIL     = "nil"
	COMMENT = "COMMENT" // # foo bar

	BEGIN     = "BEGIN"
	END       = "END"
	NO_INDENT = "|||"

	// Operators
	ASSIGN = "="

	COLON   = ":"
	NEWLINE = "\n"

	AND = "and"
	OR  = "or"
	NOT = "not"

	EQ     = "=="
	NOT_EQ = "!="
	LT     = "<"
	GT     = ">"
	LT_EQ  = "<="
	GT_EQ  = ">="

	PLUS     = "+"
	MINUS    = "-"
	ASTERISK = "*"
	SLASH    = "/"
	PERCENT  = "%"

	COMMA = ","

	LPAREN = "("
	RPAREN = ")"
	LBRACE = "{"
	RBRACE = "}"
	LBRACK = "["
	RBRACK = "]"

	// Keywords
	IF       = "if"
	ELIF     = "elif"
	ELSE     = "else"
	WHILE    = "while"
	FOR      = "for"
	IN       = "in"
	DEF      = "def"
	RETURN   = "return"
	BREAK    = "break"
	CONTINUE = "continue"
	TRY      = "try"
	EXCEPT   = "except"
	AS       = "as"
	RAISE    = "raise"
	IMPORT   = "import"
	PASS     = "pass"
)

type Token struct {
	Type    TokenType
	Literal string
	Line    int
	ChStart int
	ChEnd   int
	Source  string
}

var keywords = map[string]TokenType{
	"true":     TRUE,
	"false":    FALSE,
	"nil":      NIL,
	"if":       IF,
	"elif":     ELIF,
	"else":     ELSE,
	"while":    WHILE,
	"for":      FOR,
	"in":       IN,
	"def":      DEF,
	"return":   RETURN,
	"break":    BREAK,
	"continue": CONTINUE,
	"try":      TRY,
	"except":   EXCEPT,
	"as":       AS,
	"raise":    RAISE,
	"import":   IMPORT,
	"pass":     PASS,
	"and":      AND,
	"or":       OR,
	"not":      NOT,
}

func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// TokenTypeIsBlockHeader is true for the token types that open an indented
// block, i.e. those whose clause must end in a colon.
func TokenTypeIsBlockHeader(t TokenType) bool {
	return t == IF || t == ELIF || t == ELSE || t == WHILE || t == FOR ||
		t == DEF || t == TRY || t == EXCEPT
}
