package text

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vara-lang/vara/token"
)

const (
	VERSION = "0.1.0"
	BULLET  = " ▪ "
	PROMPT  = "» "
)

var (
	RESET    = "\033[0m"
	RED      = "\033[31m"
	GREEN    = "\033[32m"
	YELLOW   = "\033[33m"
	CYAN     = "\033[36m"
	ERROR    = Red("error") + ": "
	RT_ERROR = Red("runtime error") + ": "
	OK       = Green("ok")
)

func Emph(s string) string {
	return CYAN + "'" + s + "'" + RESET
}

func Red(s string) string {
	return RED + s + RESET
}

func Green(s string) string {
	return GREEN + s + RESET
}

func Yellow(s string) string {
	return YELLOW + s + RESET
}

func ToEscapedText(s string) string {
	result := "\""
	for _, ch := range s {
		switch ch {
		case '\n':
			result = result + "\\n"
		case '\r':
			result = result + "\\r"
		case '\t':
			result = result + "\\t"
		case '"':
			result = result + "\\\""
		case '\\':
			result = result + "\\\\"
		default:
			result = result + string(ch)
		}
	}
	return result + "\""
}

// FlattenedFilename turns a script filepath into a name safe to use as a
// directory name for its tests, e.g. "scripts/demo.vara" -> "demo_vara".
func FlattenedFilename(s string) string {
	s = filepath.Base(s)
	s = strings.Replace(s, ".", "_", -1)
	return s
}

// DescribePos renders a token's position for error messages, e.g.
// ` at line 3:7 of 'script.vara'`.
func DescribePos(tok token.Token) string {
	result := strconv.Itoa(tok.Line) + ":" + strconv.Itoa(tok.ChStart)
	if tok.ChStart != tok.ChEnd {
		result = result + "-" + strconv.Itoa(tok.ChEnd)
	}
	result = " at line " + Yellow(result)
	prettySource := tok.Source
	if prettySource != "REPL input" {
		prettySource = Emph(prettySource)
	}
	return result + " of " + prettySource
}

func DescribeTok(tok token.Token) string {
	switch tok.Type {
	case token.NEWLINE:
		return "end of line"
	case token.EOF:
		return "end of input"
	case token.BEGIN:
		return "indent"
	case token.END:
		return "dedent"
	case token.STRING, token.FSTRING:
		return "string " + Emph(tok.Literal)
	}
	return Emph(tok.Literal)
}

func Logo() string {
	var padding string
	if len(VERSION)%2 == 0 {
		padding = " "
	}
	titleText := " Vara" + padding + " version " + VERSION + " "
	leftMargin := "  "
	bar := strings.Repeat("═", len(titleText)/2)
	return "\n" +
		leftMargin + "╔" + bar + "•" + bar + "╗\n" +
		leftMargin + "║" + titleText + "║\n" +
		leftMargin + "╚" + bar + "•" + bar + "╝\n\n"
}
