package object

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"strings"

	"src.elv.sh/pkg/persistent/vector"

	"github.com/vara-lang/vara/ast"
	"github.com/vara-lang/vara/signature"
	"github.com/vara-lang/vara/text"
	"github.com/vara-lang/vara/token"
)

type View int

const (
	ViewStdOut = iota
	ViewVaraLiteral
)

type ObjectType string

const (
	ERROR_OBJ      = "error"
	SUCCESSFUL_OBJ = "successful assignment"

	INTEGER_OBJ = "int"
	FLOAT_OBJ   = "float"
	BOOLEAN_OBJ = "bool"
	STRING_OBJ  = "string"
	NIL_OBJ     = "nil"

	FUNC_OBJ   = "func"
	MODULE_OBJ = "module"

	LIST_OBJ  = "list"
	MAP_OBJ   = "map"
	SET_OBJ   = "set"
	TUPLE_OBJ = "tuple"

	// Control-transfer signals. These unwind through the evaluator until
	// the nearest enclosing loop or function activation catches them; they
	// are never ordinary values.
	RETURN_OBJ   = "return"
	BREAK_OBJ    = "break"
	CONTINUE_OBJ = "continue"
)

type Object interface {
	Type() ObjectType
	Inspect(view View) string
}

type HashKey struct {
	Type  ObjectType
	Value uint64
}

type Hashable interface {
	HashKey() HashKey
	Inspect(view View) string
	Type() ObjectType
}

func EmphType(o Object) string {
	return "<" + string(o.Type()) + ">"
}

func EmphValue(o Object) string {
	if o.Type() == STRING_OBJ {
		return text.Emph(o.Inspect(ViewVaraLiteral))
	}
	return text.Emph(o.Inspect(ViewVaraLiteral))
}

type Integer struct {
	Value int64
}

func (i *Integer) Type() ObjectType         { return INTEGER_OBJ }
func (i *Integer) Inspect(view View) string { return fmt.Sprintf("%d", i.Value) }
func (i *Integer) HashKey() HashKey {
	return HashKey{Type: i.Type(), Value: uint64(i.Value)}
}

type Float struct {
	Value float64
}

func (f *Float) Type() ObjectType         { return FLOAT_OBJ }
func (f *Float) Inspect(view View) string { return fmt.Sprintf("%g", f.Value) }
func (f *Float) HashKey() HashKey {
	// The bit pattern, not a truncating conversion: 1.5 and 1.7 must not
	// land on the same map key.
	return HashKey{Type: f.Type(), Value: math.Float64bits(f.Value)}
}

type Boolean struct {
	Value bool
}

func (b *Boolean) Type() ObjectType         { return BOOLEAN_OBJ }
func (b *Boolean) Inspect(view View) string { return fmt.Sprintf("%t", b.Value) }
func (b *Boolean) HashKey() HashKey {
	var value uint64
	if b.Value {
		value = 1
	}
	return HashKey{Type: b.Type(), Value: value}
}

type String struct {
	Value string
}

func (s *String) Type() ObjectType { return STRING_OBJ }
func (s *String) Inspect(view View) string {
	if view == ViewStdOut {
		return s.Value
	}
	return text.ToEscapedText(s.Value)
}
func (s *String) HashKey() HashKey {
	h := fnv.New64a()
	h.Write([]byte(s.Value))
	return HashKey{Type: s.Type(), Value: h.Sum64()}
}

type Nil struct{}

func (n *Nil) Type() ObjectType         { return NIL_OBJ }
func (n *Nil) Inspect(view View) string { return "nil" }

// List values are persistent vectors, so a copy of a context can share list
// structure with the original without either seeing the other's updates.
type List struct {
	Elements vector.Vector
}

func NewList(elements ...Object) *List {
	vec := vector.Empty
	for _, e := range elements {
		vec = vec.Conj(e)
	}
	return &List{Elements: vec}
}

func (lo *List) Type() ObjectType { return LIST_OBJ }
func (lo *List) Inspect(view View) string {
	var out bytes.Buffer
	elements := []string{}
	for i := 0; i < lo.Elements.Len(); i++ {
		el, _ := lo.Elements.Index(i)
		elements = append(elements, el.(Object).Inspect(view))
	}
	out.WriteString("[")
	out.WriteString(strings.Join(elements, ", "))
	out.WriteString("]")
	return out.String()
}

func (lo *List) Len() int { return lo.Elements.Len() }

func (lo *List) Get(i int) (Object, bool) {
	el, ok := lo.Elements.Index(i)
	if !ok {
		return nil, false
	}
	return el.(Object), true
}

type MapPair struct {
	Key   Object
	Value Object
}

type Map struct {
	Pairs map[HashKey]MapPair
}

func NewMap() *Map {
	return &Map{Pairs: make(map[HashKey]MapPair)}
}

func (m *Map) Type() ObjectType { return MAP_OBJ }

// Inspect renders the pairs sorted by the literal form of their keys, so
// that the same map always prints the same way.
func (m *Map) Inspect(view View) string {
	pairs := []string{}
	for _, pair := range m.Pairs {
		pairs = append(pairs, pair.Key.Inspect(view)+": "+pair.Value.Inspect(view))
	}
	sort.Strings(pairs)
	return "{" + strings.Join(pairs, ", ") + "}"
}

type Set struct {
	Elements map[HashKey]Object
}

func NewSet() *Set {
	return &Set{Elements: make(map[HashKey]Object)}
}

func (so *Set) Type() ObjectType { return SET_OBJ }
func (so *Set) Inspect(view View) string {
	elements := []string{}
	for _, e := range so.Elements {
		elements = append(elements, e.Inspect(view))
	}
	sort.Strings(elements)
	return "{" + strings.Join(elements, ", ") + "}"
}

func (so *Set) Add(ob Object) bool {
	h, ok := ob.(Hashable)
	if !ok {
		return false
	}
	so.Elements[h.HashKey()] = ob
	return true
}

func (so *Set) Contains(ob Object) bool {
	h, ok := ob.(Hashable)
	if !ok {
		return false
	}
	_, found := so.Elements[h.HashKey()]
	return found
}

type Tuple struct {
	Elements []Object
}

func (to *Tuple) Type() ObjectType { return TUPLE_OBJ }
func (to *Tuple) Inspect(view View) string {
	elements := []string{}
	for _, e := range to.Elements {
		elements = append(elements, e.Inspect(view))
	}
	return "(" + strings.Join(elements, ", ") + ")"
}

// A Func is a callable defined in Vara itself. It carries no captured local
// state: each activation gets a fresh local scope from the sandbox.
type Func struct {
	Name      string
	Namespace string
	Sig       signature.NamedSignature
	Body      *ast.Block
}

func (fn *Func) Type() ObjectType { return FUNC_OBJ }
func (fn *Func) Inspect(view View) string {
	return "def " + fn.Name + fn.Sig.String()
}

// A Module is the value bound by an import: a bag of exported names.
type Module struct {
	Name     string
	Bindings map[string]Object
}

func (m *Module) Type() ObjectType { return MODULE_OBJ }
func (m *Module) Inspect(view View) string {
	return "module " + m.Name
}

func (m *Module) Get(key string) (Object, bool) {
	v, ok := m.Bindings[key]
	return v, ok
}

type SuccessfulAssignment struct{}

func (s *SuccessfulAssignment) Type() ObjectType         { return SUCCESSFUL_OBJ }
func (s *SuccessfulAssignment) Inspect(view View) string { return text.OK }

type ReturnSignal struct {
	Value Object
}

func (r *ReturnSignal) Type() ObjectType         { return RETURN_OBJ }
func (r *ReturnSignal) Inspect(view View) string { return r.Value.Inspect(view) }

type BreakSignal struct{}

func (b *BreakSignal) Type() ObjectType         { return BREAK_OBJ }
func (b *BreakSignal) Inspect(view View) string { return "break" }

type ContinueSignal struct{}

func (c *ContinueSignal) Type() ObjectType         { return CONTINUE_OBJ }
func (c *ContinueSignal) Inspect(view View) string { return "continue" }

// Error doubles as the exception value the language's try/except construct
// can catch: Kind() is what except clauses match on.
type Error struct {
	ErrorId string
	Kind    string // explicit kind; derived from ErrorId when empty
	Message string
	Info    []any
	Trace   []token.Token
	Token   token.Token
}

func (e *Error) Type() ObjectType { return ERROR_OBJ }
func (e *Error) Inspect(view View) string {
	if view == ViewStdOut {
		if len(e.Trace) == 0 {
			return text.ERROR + e.Message + text.DescribePos(e.Token) + "."
		}
		return text.RT_ERROR + e.Message + text.DescribePos(e.Token) + "."
	}
	return "error " + text.ToEscapedText(e.Message)
}

var (
	TRUE    = &Boolean{Value: true}
	FALSE   = &Boolean{Value: false}
	NULL    = &Nil{}
	SUCCESS = &SuccessfulAssignment{}
)

func IsError(o Object) bool {
	_, ok := o.(*Error)
	return ok
}

func MakeBool(input bool) *Boolean {
	if input {
		return TRUE
	}
	return FALSE
}

// Copy returns a version of the value sharing no mutable state with the
// original. Scalars are immutable and pass through; a list's persistent
// vector can be shared but its wrapper cannot; maps and sets get their
// backing maps duplicated, recursively for the values.
func Copy(o Object) Object {
	switch o := o.(type) {
	case *List:
		return &List{Elements: o.Elements}
	case *Map:
		out := NewMap()
		for h, pair := range o.Pairs {
			out.Pairs[h] = MapPair{Key: pair.Key, Value: Copy(pair.Value)}
		}
		return out
	case *Set:
		out := NewSet()
		for h, e := range o.Elements {
			out.Elements[h] = e
		}
		return out
	}
	return o
}

func MakeInverseBool(input bool) *Boolean {
	if input {
		return FALSE
	}
	return TRUE
}

func Equals(lhs, rhs Object) bool {
	if lhs.Type() != rhs.Type() {
		return false
	}
	if lhs == rhs {
		return true
	}
	switch lhs.Type() {
	case INTEGER_OBJ:
		return lhs.(*Integer).Value == rhs.(*Integer).Value
	case FLOAT_OBJ:
		return lhs.(*Float).Value == rhs.(*Float).Value
	case STRING_OBJ:
		return lhs.(*String).Value == rhs.(*String).Value
	case BOOLEAN_OBJ:
		return lhs == rhs
	case NIL_OBJ:
		return true
	case LIST_OBJ:
		l, r := lhs.(*List), rhs.(*List)
		if l.Len() != r.Len() {
			return false
		}
		for i := 0; i < l.Len(); i++ {
			lv, _ := l.Get(i)
			rv, _ := r.Get(i)
			if !Equals(lv, rv) {
				return false
			}
		}
		return true
	case TUPLE_OBJ:
		l, r := lhs.(*Tuple), rhs.(*Tuple)
		if len(l.Elements) != len(r.Elements) {
			return false
		}
		for i, v := range l.Elements {
			if !Equals(v, r.Elements[i]) {
				return false
			}
		}
		return true
	case SET_OBJ:
		l, r := lhs.(*Set), rhs.(*Set)
		if len(l.Elements) != len(r.Elements) {
			return false
		}
		for k := range l.Elements {
			if _, ok := r.Elements[k]; !ok {
				return false
			}
		}
		return true
	case MAP_OBJ:
		l, r := lhs.(*Map), rhs.(*Map)
		if len(l.Pairs) != len(r.Pairs) {
			return false
		}
		for k, v := range l.Pairs {
			w, ok := r.Pairs[k]
			if !ok || !Equals(v.Value, w.Value) {
				return false
			}
		}
		return true
	case FUNC_OBJ:
		return lhs == rhs
	default:
		return false
	}
}
