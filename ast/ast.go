package ast

import (
	"bytes"
	"strings"

	"github.com/vara-lang/vara/signature"
	"github.com/vara-lang/vara/token"
)

// Every parsed construct is a Node. Nodes are built once by the parser and
// are read-only from then on: no execution state lives in the tree.
//
// String() is the canonical pretty-printer. Parsing the output of String()
// must yield a structurally identical tree, which is what ast_test.go checks.
type Node interface {
	GetToken() token.Token
	TokenLiteral() string
	String() string
}

// indentBody renders a block body one level deeper than its header.
func indentBody(b *Block) string {
	var out bytes.Buffer
	for _, stmt := range b.Statements {
		for _, line := range strings.Split(stmt.String(), "\n") {
			out.WriteString("    ")
			out.WriteString(line)
			out.WriteString("\n")
		}
	}
	return out.String()
}

type Program struct {
	Token      token.Token
	Statements []Node
}

func (p *Program) GetToken() token.Token { return p.Token }
func (p *Program) TokenLiteral() string {
	if len(p.Statements) > 0 {
		return p.Statements[0].TokenLiteral()
	}
	return ""
}
func (p *Program) String() string {
	var out bytes.Buffer
	for _, s := range p.Statements {
		out.WriteString(s.String())
		out.WriteString("\n")
	}
	return out.String()
}

type Block struct {
	Token      token.Token
	Statements []Node
}

func (b *Block) GetToken() token.Token { return b.Token }
func (b *Block) TokenLiteral() string  { return b.Token.Literal }
func (b *Block) String() string {
	var out bytes.Buffer
	for i, s := range b.Statements {
		if i > 0 {
			out.WriteString("\n")
		}
		out.WriteString(s.String())
	}
	return out.String()
}

// An Identifier is either bare ("x", resolving against the local scope) or
// scope-qualified ("private.x"). Scope is "" for bare identifiers.
type Identifier struct {
	Token token.Token
	Scope string
	Value string
}

func (i *Identifier) GetToken() token.Token { return i.Token }
func (i *Identifier) TokenLiteral() string  { return i.Token.Literal }
func (i *Identifier) String() string {
	if i.Scope == "" {
		return i.Value
	}
	return i.Scope + "." + i.Value
}

type IntegerLiteral struct {
	Token token.Token
	Value int64
}

func (il *IntegerLiteral) GetToken() token.Token { return il.Token }
func (il *IntegerLiteral) TokenLiteral() string  { return il.Token.Literal }
func (il *IntegerLiteral) String() string        { return il.Token.Literal }

type FloatLiteral struct {
	Token token.Token
	Value float64
}

func (fl *FloatLiteral) GetToken() token.Token { return fl.Token }
func (fl *FloatLiteral) TokenLiteral() string  { return fl.Token.Literal }
func (fl *FloatLiteral) String() string        { return fl.Token.Literal }

type StringLiteral struct {
	Token token.Token
	Value string
}

func (sl *StringLiteral) GetToken() token.Token { return sl.Token }
func (sl *StringLiteral) TokenLiteral() string  { return sl.Token.Literal }
func (sl *StringLiteral) String() string        { return escapeString(sl.Value) }

func escapeString(s string) string {
	result := "\""
	for _, ch := range s {
		switch ch {
		case '\n':
			result = result + "\\n"
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

type BooleanLiteral struct {
	Token token.Token
	Value bool
}

func (b *BooleanLiteral) GetToken() token.Token { return b.Token }
func (b *BooleanLiteral) TokenLiteral() string  { return b.Token.Literal }
func (b *BooleanLiteral) String() string        { return b.Token.Literal }

type NilLiteral struct {
	Token token.Token
}

func (n *NilLiteral) GetToken() token.Token { return n.Token }
func (n *NilLiteral) TokenLiteral() string  { return "nil" }
func (n *NilLiteral) String() string        { return "nil" }

// One segment of an f-string: a literal run of text, or an embedded
// expression (Expr non-nil) to be evaluated and substituted.
type FStringPart struct {
	Text string
	Expr Node
}

type FStringLiteral struct {
	Token token.Token
	Parts []FStringPart
}

func (fs *FStringLiteral) GetToken() token.Token { return fs.Token }
func (fs *FStringLiteral) TokenLiteral() string  { return fs.Token.Literal }
func (fs *FStringLiteral) String() string {
	var out bytes.Buffer
	out.WriteString("f\"")
	for _, part := range fs.Parts {
		if part.Expr == nil {
			for _, ch := range part.Text {
				switch ch {
				case '\n':
					out.WriteString("\\n")
				case '\t':
					out.WriteString("\\t")
				case '"':
					out.WriteString("\\\"")
				case '\\':
					out.WriteString("\\\\")
				case '{':
					out.WriteString("{{")
				case '}':
					out.WriteString("}}")
				default:
					out.WriteRune(ch)
				}
			}
		} else {
			out.WriteString("{")
			out.WriteString(part.Expr.String())
			out.WriteString("}")
		}
	}
	out.WriteString("\"")
	return out.String()
}

type PrefixExpression struct {
	Token    token.Token
	Operator string
	Right    Node
}

func (pe *PrefixExpression) GetToken() token.Token { return pe.Token }
func (pe *PrefixExpression) TokenLiteral() string  { return pe.Token.Literal }
func (pe *PrefixExpression) String() string {
	var out bytes.Buffer
	out.WriteString("(")
	out.WriteString(pe.Operator)
	if pe.Operator == "not" {
		out.WriteString(" ")
	}
	out.WriteString(pe.Right.String())
	out.WriteString(")")
	return out.String()
}

type InfixExpression struct {
	Token    token.Token
	Left     Node
	Operator string
	Right    Node
}

func (ie *InfixExpression) GetToken() token.Token { return ie.Token }
func (ie *InfixExpression) TokenLiteral() string  { return ie.Token.Literal }
func (ie *InfixExpression) String() string {
	var out bytes.Buffer
	out.WriteString("(")
	out.WriteString(ie.Left.String())
	out.WriteString(" " + ie.Operator + " ")
	out.WriteString(ie.Right.String())
	out.WriteString(")")
	return out.String()
}

type IndexExpression struct {
	Token token.Token // the [ token
	Left  Node
	Index Node
}

func (ie *IndexExpression) GetToken() token.Token { return ie.Token }
func (ie *IndexExpression) TokenLiteral() string  { return ie.Token.Literal }
func (ie *IndexExpression) String() string {
	var out bytes.Buffer
	out.WriteString(ie.Left.String())
	out.WriteString("[")
	out.WriteString(ie.Index.String())
	out.WriteString("]")
	return out.String()
}

type ListLiteral struct {
	Token    token.Token // the [ token
	Elements []Node
}

func (ll *ListLiteral) GetToken() token.Token { return ll.Token }
func (ll *ListLiteral) TokenLiteral() string  { return "[" }
func (ll *ListLiteral) String() string {
	elements := []string{}
	for _, e := range ll.Elements {
		elements = append(elements, e.String())
	}
	return "[" + strings.Join(elements, ", ") + "]"
}

type MapPair struct {
	Key   Node
	Value Node
}

type MapLiteral struct {
	Token token.Token // the { token
	Pairs []MapPair
}

func (ml *MapLiteral) GetToken() token.Token { return ml.Token }
func (ml *MapLiteral) TokenLiteral() string  { return "{" }
func (ml *MapLiteral) String() string {
	pairs := []string{}
	for _, p := range ml.Pairs {
		pairs = append(pairs, p.Key.String()+": "+p.Value.String())
	}
	return "{" + strings.Join(pairs, ", ") + "}"
}

type SetLiteral struct {
	Token    token.Token // the { token
	Elements []Node
}

func (sl *SetLiteral) GetToken() token.Token { return sl.Token }
func (sl *SetLiteral) TokenLiteral() string  { return "{" }
func (sl *SetLiteral) String() string {
	elements := []string{}
	for _, e := range sl.Elements {
		elements = append(elements, e.String())
	}
	return "{" + strings.Join(elements, ", ") + "}"
}

type KwArg struct {
	Name  string
	Value Node
}

// A CallExpression's Name may be dotted ("db.query"); the registry decides
// how to split it during resolution.
type CallExpression struct {
	Token  token.Token
	Name   string
	Args   []Node
	KwArgs []KwArg
}

func (ce *CallExpression) GetToken() token.Token { return ce.Token }
func (ce *CallExpression) TokenLiteral() string  { return ce.Token.Literal }
func (ce *CallExpression) String() string {
	args := []string{}
	for _, a := range ce.Args {
		args = append(args, a.String())
	}
	for _, kw := range ce.KwArgs {
		args = append(args, kw.Name+"="+kw.Value.String())
	}
	return ce.Name + "(" + strings.Join(args, ", ") + ")"
}

type Assignment struct {
	Token  token.Token // the = token
	Target *Identifier
	Value  Node
}

func (a *Assignment) GetToken() token.Token { return a.Token }
func (a *Assignment) TokenLiteral() string  { return "=" }
func (a *Assignment) String() string {
	return a.Target.String() + " = " + a.Value.String()
}

type IndexAssignment struct {
	Token  token.Token // the = token
	Target *IndexExpression
	Value  Node
}

func (a *IndexAssignment) GetToken() token.Token { return a.Token }
func (a *IndexAssignment) TokenLiteral() string  { return "=" }
func (a *IndexAssignment) String() string {
	return a.Target.String() + " = " + a.Value.String()
}

type ConditionalClause struct {
	Condition Node
	Body      *Block
}

type IfStatement struct {
	Token   token.Token
	Clauses []ConditionalClause // the if clause, then any elif clauses
	Else    *Block              // may be nil
}

func (is *IfStatement) GetToken() token.Token { return is.Token }
func (is *IfStatement) TokenLiteral() string  { return "if" }
func (is *IfStatement) String() string {
	var out bytes.Buffer
	for i, clause := range is.Clauses {
		if i == 0 {
			out.WriteString("if ")
		} else {
			out.WriteString("elif ")
		}
		out.WriteString(clause.Condition.String())
		out.WriteString(":\n")
		out.WriteString(indentBody(clause.Body))
	}
	if is.Else != nil {
		out.WriteString("else:\n")
		out.WriteString(indentBody(is.Else))
	}
	return strings.TrimSuffix(out.String(), "\n")
}

type WhileStatement struct {
	Token     token.Token
	Condition Node
	Body      *Block
}

func (ws *WhileStatement) GetToken() token.Token { return ws.Token }
func (ws *WhileStatement) TokenLiteral() string  { return "while" }
func (ws *WhileStatement) String() string {
	return strings.TrimSuffix("while "+ws.Condition.String()+":\n"+indentBody(ws.Body), "\n")
}

type ForStatement struct {
	Token    token.Token
	Var      *Identifier
	Iterable Node
	Body     *Block
}

func (fs *ForStatement) GetToken() token.Token { return fs.Token }
func (fs *ForStatement) TokenLiteral() string  { return "for" }
func (fs *ForStatement) String() string {
	return strings.TrimSuffix("for "+fs.Var.String()+" in "+fs.Iterable.String()+":\n"+indentBody(fs.Body), "\n")
}

type FunctionDef struct {
	Token token.Token
	Name  string
	Sig   signature.NamedSignature
	Body  *Block
}

func (fd *FunctionDef) GetToken() token.Token { return fd.Token }
func (fd *FunctionDef) TokenLiteral() string  { return "def" }
func (fd *FunctionDef) String() string {
	return strings.TrimSuffix("def "+fd.Name+fd.Sig.String()+":\n"+indentBody(fd.Body), "\n")
}

type ReturnStatement struct {
	Token token.Token
	Value Node // may be nil for a bare return
}

func (rs *ReturnStatement) GetToken() token.Token { return rs.Token }
func (rs *ReturnStatement) TokenLiteral() string  { return "return" }
func (rs *ReturnStatement) String() string {
	if rs.Value == nil {
		return "return"
	}
	return "return " + rs.Value.String()
}

type BreakStatement struct {
	Token token.Token
}

func (bs *BreakStatement) GetToken() token.Token { return bs.Token }
func (bs *BreakStatement) TokenLiteral() string  { return "break" }
func (bs *BreakStatement) String() string        { return "break" }

type ContinueStatement struct {
	Token token.Token
}

func (cs *ContinueStatement) GetToken() token.Token { return cs.Token }
func (cs *ContinueStatement) TokenLiteral() string  { return "continue" }
func (cs *ContinueStatement) String() string        { return "continue" }

type PassStatement struct {
	Token token.Token
}

func (ps *PassStatement) GetToken() token.Token { return ps.Token }
func (ps *PassStatement) TokenLiteral() string  { return "pass" }
func (ps *PassStatement) String() string        { return "pass" }

// An ExceptClause matches one or more error kinds. An empty Kinds list
// matches every catchable error. Bind, if non-empty, is the name the caught
// exception value is bound to in the handler's local scope.
type ExceptClause struct {
	Token token.Token
	Kinds []string
	Bind  string
	Body  *Block
}

type TryStatement struct {
	Token    token.Token
	Body     *Block
	Handlers []ExceptClause
}

func (ts *TryStatement) GetToken() token.Token { return ts.Token }
func (ts *TryStatement) TokenLiteral() string  { return "try" }
func (ts *TryStatement) String() string {
	var out bytes.Buffer
	out.WriteString("try:\n")
	out.WriteString(indentBody(ts.Body))
	for _, h := range ts.Handlers {
		out.WriteString("except")
		if len(h.Kinds) > 0 {
			out.WriteString(" " + strings.Join(h.Kinds, ", "))
		}
		if h.Bind != "" {
			out.WriteString(" as " + h.Bind)
		}
		out.WriteString(":\n")
		out.WriteString(indentBody(h.Body))
	}
	return strings.TrimSuffix(out.String(), "\n")
}

type RaiseStatement struct {
	Token   token.Token
	Kind    string
	Message Node // may be nil
}

func (rs *RaiseStatement) GetToken() token.Token { return rs.Token }
func (rs *RaiseStatement) TokenLiteral() string  { return "raise" }
func (rs *RaiseStatement) String() string {
	result := "raise " + rs.Kind
	if rs.Message != nil {
		result = result + " " + rs.Message.String()
	}
	return result
}

type ImportStatement struct {
	Token token.Token
	Name  string
	Alias string // defaults to Name when no "as" clause is given
}

func (is *ImportStatement) GetToken() token.Token { return is.Token }
func (is *ImportStatement) TokenLiteral() string  { return "import" }
func (is *ImportStatement) String() string {
	if is.Alias == "" || is.Alias == is.Name {
		return "import " + escapeString(is.Name)
	}
	return "import " + escapeString(is.Name) + " as " + is.Alias
}
