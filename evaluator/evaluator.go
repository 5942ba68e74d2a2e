package evaluator

// This is your standard tree-walking evaluator. The one structural
// peculiarity is that nothing here ever calls a function directly: every
// call site goes through the registry, which owns resolution, argument
// binding and the security policy, and which calls back into applyFunc
// for functions defined in the language itself.

import (
	"strings"

	"github.com/vara-lang/vara/ast"
	"github.com/vara-lang/vara/module"
	"github.com/vara-lang/vara/object"
	"github.com/vara-lang/vara/registry"
	"github.com/vara-lang/vara/sandbox"
	"github.com/vara-lang/vara/token"
)

// A Runtime bundles what an execution needs besides its sandbox context.
// Namespace is the namespace the running code belongs to: "" for user
// programs, the module's name for code running inside a module.
type Runtime struct {
	Reg       *registry.Registry
	Loader    module.Loader
	Namespace string
}

func NewRuntime(reg *registry.Registry, loader module.Loader) *Runtime {
	rt := &Runtime{Reg: reg, Loader: loader}
	reg.Apply = rt.applyFunc
	return rt
}

func Eval(node ast.Node, rt *Runtime, env *sandbox.Context) object.Object {

	switch node := node.(type) {

	// Statements

	case *ast.Program:
		return evalProgram(node, rt, env)

	case *ast.Block:
		return evalBlock(node, rt, env)

	case *ast.Assignment:
		value := Eval(node.Value, rt, env)
		if isError(value) {
			return traced(value, node.GetToken())
		}
		if err := env.Set(node.Target.Scope, node.Target.Value, value, node.GetToken()); err != nil {
			return err
		}
		return object.SUCCESS

	case *ast.IndexAssignment:
		return evalIndexAssignment(node, rt, env)

	case *ast.IfStatement:
		return evalIfStatement(node, rt, env)

	case *ast.WhileStatement:
		return evalWhileStatement(node, rt, env)

	case *ast.ForStatement:
		return evalForStatement(node, rt, env)

	case *ast.FunctionDef:
		fn := &object.Func{Name: node.Name, Namespace: rt.Namespace, Sig: node.Sig, Body: node.Body}
		env.Local.Set(node.Name, fn)
		return object.SUCCESS

	case *ast.ReturnStatement:
		if node.Value == nil {
			return &object.ReturnSignal{Value: object.NULL}
		}
		value := Eval(node.Value, rt, env)
		if isError(value) {
			return traced(value, node.GetToken())
		}
		return &object.ReturnSignal{Value: value}

	case *ast.BreakStatement:
		return &object.BreakSignal{}

	case *ast.ContinueStatement:
		return &object.ContinueSignal{}

	case *ast.PassStatement:
		return object.SUCCESS

	case *ast.TryStatement:
		return evalTryStatement(node, rt, env)

	case *ast.RaiseStatement:
		return evalRaiseStatement(node, rt, env)

	case *ast.ImportStatement:
		return evalImportStatement(node, rt, env)

	// Expressions

	case *ast.IntegerLiteral:
		return &object.Integer{Value: node.Value}

	case *ast.FloatLiteral:
		return &object.Float{Value: node.Value}

	case *ast.StringLiteral:
		return &object.String{Value: node.Value}

	case *ast.BooleanLiteral:
		return object.MakeBool(node.Value)

	case *ast.NilLiteral:
		return object.NULL

	case *ast.FStringLiteral:
		return evalFString(node, rt, env)

	case *ast.Identifier:
		return evalIdentifier(node, rt, env)

	case *ast.PrefixExpression:
		right := Eval(node.Right, rt, env)
		if isError(right) {
			return traced(right, node.GetToken())
		}
		return evalPrefixExpression(node.Token, node.Operator, right)

	case *ast.InfixExpression:
		return evalInfixExpression(node, rt, env)

	case *ast.IndexExpression:
		left := Eval(node.Left, rt, env)
		if isError(left) {
			return traced(left, node.GetToken())
		}
		index := Eval(node.Index, rt, env)
		if isError(index) {
			return traced(index, node.GetToken())
		}
		return evalIndexExpression(node.Token, left, index)

	case *ast.ListLiteral:
		list := object.NewList()
		for _, element := range node.Elements {
			value := Eval(element, rt, env)
			if isError(value) {
				return traced(value, node.GetToken())
			}
			list.Elements = list.Elements.Conj(value)
		}
		return list

	case *ast.MapLiteral:
		return evalMapLiteral(node, rt, env)

	case *ast.SetLiteral:
		return evalSetLiteral(node, rt, env)

	case *ast.CallExpression:
		return evalCallExpression(node, rt, env)
	}
	return newError("eval/oops", node.GetToken())
}

func evalProgram(program *ast.Program, rt *Runtime, env *sandbox.Context) object.Object {
	var result object.Object = object.SUCCESS
	for _, statement := range program.Statements {
		result = Eval(statement, rt, env)
		switch result.(type) {
		case *object.Error:
			return result
		case *object.ReturnSignal:
			return newError("eval/return/top", statement.GetToken())
		case *object.BreakSignal:
			return newError("eval/break/loop", statement.GetToken())
		case *object.ContinueSignal:
			return newError("eval/continue/loop", statement.GetToken())
		}
	}
	return result
}

// evalBlock is like evalProgram except that the signals pass through, to
// be handled by whatever loop or function activation encloses the block.
func evalBlock(block *ast.Block, rt *Runtime, env *sandbox.Context) object.Object {
	var result object.Object = object.SUCCESS
	for _, statement := range block.Statements {
		result = Eval(statement, rt, env)
		switch result.(type) {
		case *object.Error, *object.ReturnSignal, *object.BreakSignal, *object.ContinueSignal:
			return result
		}
	}
	return result
}

func evalIfStatement(node *ast.IfStatement, rt *Runtime, env *sandbox.Context) object.Object {
	for _, clause := range node.Clauses {
		condition := Eval(clause.Condition, rt, env)
		if isError(condition) {
			return traced(condition, node.GetToken())
		}
		boolean, ok := condition.(*object.Boolean)
		if !ok {
			return newError("eval/cond/bool", clause.Condition.GetToken(), string(condition.Type()))
		}
		if boolean.Value {
			return evalBlock(clause.Body, rt, env)
		}
	}
	if node.Else != nil {
		return evalBlock(node.Else, rt, env)
	}
	return object.SUCCESS
}

func evalWhileStatement(node *ast.WhileStatement, rt *Runtime, env *sandbox.Context) object.Object {
	for {
		condition := Eval(node.Condition, rt, env)
		if isError(condition) {
			return traced(condition, node.GetToken())
		}
		boolean, ok := condition.(*object.Boolean)
		if !ok {
			return newError("eval/cond/bool", node.Condition.GetToken(), string(condition.Type()))
		}
		if !boolean.Value {
			return object.SUCCESS
		}
		result := evalBlock(node.Body, rt, env)
		switch result.(type) {
		case *object.BreakSignal:
			return object.SUCCESS
		case *object.ContinueSignal:
			continue
		case *object.Error, *object.ReturnSignal:
			return result
		}
	}
}

func evalForStatement(node *ast.ForStatement, rt *Runtime, env *sandbox.Context) object.Object {
	iterable := Eval(node.Iterable, rt, env)
	if isError(iterable) {
		return traced(iterable, node.GetToken())
	}
	elements, err := iterate(iterable, node.GetToken())
	if err != nil {
		return err
	}
	for _, element := range elements {
		env.Local.Set(node.Var.Value, element)
		result := evalBlock(node.Body, rt, env)
		switch result.(type) {
		case *object.BreakSignal:
			return object.SUCCESS
		case *object.ContinueSignal:
			continue
		case *object.Error, *object.ReturnSignal:
			return result
		}
	}
	return object.SUCCESS
}

// iterate flattens an iterable into the sequence a for loop runs over:
// the elements of a list or set, the keys of a map, the one-character
// strings of a string.
func iterate(iterable object.Object, tok token.Token) ([]object.Object, *object.Error) {
	switch iterable := iterable.(type) {
	case *object.List:
		elements := make([]object.Object, 0, iterable.Len())
		for i := 0; i < iterable.Len(); i++ {
			element, _ := iterable.Get(i)
			elements = append(elements, element)
		}
		return elements, nil
	case *object.Map:
		elements := make([]object.Object, 0, len(iterable.Pairs))
		for _, pair := range iterable.Pairs {
			elements = append(elements, pair.Key)
		}
		return elements, nil
	case *object.Set:
		elements := make([]object.Object, 0, len(iterable.Elements))
		for _, element := range iterable.Elements {
			elements = append(elements, element)
		}
		return elements, nil
	case *object.String:
		elements := make([]object.Object, 0, len(iterable.Value))
		for _, ch := range iterable.Value {
			elements = append(elements, &object.String{Value: string(ch)})
		}
		return elements, nil
	}
	return nil, object.CreateErr("eval/iter", tok, string(iterable.Type()))
}

func evalIdentifier(node *ast.Identifier, rt *Runtime, env *sandbox.Context) object.Object {
	if node.Scope == "" && strings.Contains(node.Value, ".") {
		// An unqualified dotted name reads a member of an imported module.
		parts := strings.SplitN(node.Value, ".", 2)
		holder, ok := env.Local.Get(parts[0])
		if ok {
			mod, isModule := holder.(*object.Module)
			if !isModule {
				return newError("eval/ident/found", node.GetToken(), node.Value)
			}
			member, found := mod.Get(parts[1])
			if !found {
				return newError("eval/ident/found", node.GetToken(), node.Value)
			}
			return member
		}
		// The qualifier is neither a scope name nor anything bound locally.
		return newError("sandbox/scope", node.GetToken(), parts[0])
	}
	value, err := env.Get(node.Scope, node.Value, node.GetToken())
	if err != nil {
		return err
	}
	return value
}

func evalFString(node *ast.FStringLiteral, rt *Runtime, env *sandbox.Context) object.Object {
	var out strings.Builder
	for _, part := range node.Parts {
		if part.Expr == nil {
			out.WriteString(part.Text)
			continue
		}
		value := Eval(part.Expr, rt, env)
		if isError(value) {
			return traced(value, node.GetToken())
		}
		switch value.(type) {
		case *object.ReturnSignal, *object.BreakSignal, *object.ContinueSignal:
			return newError("eval/fstring", node.GetToken(), string(value.Type()))
		}
		out.WriteString(value.Inspect(object.ViewStdOut))
	}
	return &object.String{Value: out.String()}
}

func evalPrefixExpression(tok token.Token, operator string, right object.Object) object.Object {
	switch operator {
	case "-":
		switch right := right.(type) {
		case *object.Integer:
			return &object.Integer{Value: -right.Value}
		case *object.Float:
			return &object.Float{Value: -right.Value}
		}
	case "not":
		if boolean, ok := right.(*object.Boolean); ok {
			return object.MakeInverseBool(boolean.Value)
		}
	}
	return newError("eval/prefix/type", tok, operator, string(right.Type()))
}

func evalInfixExpression(node *ast.InfixExpression, rt *Runtime, env *sandbox.Context) object.Object {
	left := Eval(node.Left, rt, env)
	if isError(left) {
		return traced(left, node.GetToken())
	}
	// 'and' and 'or' must short-circuit, so the right operand waits.
	if node.Operator == "and" || node.Operator == "or" {
		return evalBooleanInfix(node, left, rt, env)
	}
	right := Eval(node.Right, rt, env)
	if isError(right) {
		return traced(right, node.GetToken())
	}

	switch node.Operator {
	case "==":
		return object.MakeBool(object.Equals(left, right))
	case "!=":
		return object.MakeInverseBool(object.Equals(left, right))
	}

	switch {
	case left.Type() == object.INTEGER_OBJ && right.Type() == object.INTEGER_OBJ:
		return evalIntegerInfix(node.Token, node.Operator, left.(*object.Integer), right.(*object.Integer))
	case isNumber(left) && isNumber(right):
		return evalFloatInfix(node.Token, node.Operator, toFloat(left), toFloat(right))
	case left.Type() == object.STRING_OBJ && right.Type() == object.STRING_OBJ:
		return evalStringInfix(node.Token, node.Operator, left.(*object.String), right.(*object.String))
	case left.Type() == object.LIST_OBJ && right.Type() == object.LIST_OBJ && node.Operator == "+":
		result := &object.List{Elements: left.(*object.List).Elements}
		rightList := right.(*object.List)
		for i := 0; i < rightList.Len(); i++ {
			element, _ := rightList.Get(i)
			result.Elements = result.Elements.Conj(element)
		}
		return result
	}
	return newError("eval/infix/type", node.Token, node.Operator, string(left.Type()), string(right.Type()))
}

func evalBooleanInfix(node *ast.InfixExpression, left object.Object, rt *Runtime, env *sandbox.Context) object.Object {
	leftBool, ok := left.(*object.Boolean)
	if !ok {
		return newError("eval/infix/type", node.Token, node.Operator, string(left.Type()), "...")
	}
	if node.Operator == "and" && !leftBool.Value {
		return object.FALSE
	}
	if node.Operator == "or" && leftBool.Value {
		return object.TRUE
	}
	right := Eval(node.Right, rt, env)
	if isError(right) {
		return traced(right, node.GetToken())
	}
	rightBool, ok := right.(*object.Boolean)
	if !ok {
		return newError("eval/infix/type", node.Token, node.Operator, string(left.Type()), string(right.Type()))
	}
	return object.MakeBool(rightBool.Value)
}

func evalIntegerInfix(tok token.Token, operator string, left, right *object.Integer) object.Object {
	switch operator {
	case "+":
		return &object.Integer{Value: left.Value + right.Value}
	case "-":
		return &object.Integer{Value: left.Value - right.Value}
	case "*":
		return &object.Integer{Value: left.Value * right.Value}
	case "/":
		if right.Value == 0 {
			return newError("eval/div/zero", tok)
		}
		return &object.Integer{Value: left.Value / right.Value}
	case "%":
		if right.Value == 0 {
			return newError("eval/div/zero", tok)
		}
		return &object.Integer{Value: left.Value % right.Value}
	case "<":
		return object.MakeBool(left.Value < right.Value)
	case ">":
		return object.MakeBool(left.Value > right.Value)
	case "<=":
		return object.MakeBool(left.Value <= right.Value)
	case ">=":
		return object.MakeBool(left.Value >= right.Value)
	}
	return newError("eval/infix/type", tok, operator, "int", "int")
}

func evalFloatInfix(tok token.Token, operator string, left, right float64) object.Object {
	switch operator {
	case "+":
		return &object.Float{Value: left + right}
	case "-":
		return &object.Float{Value: left - right}
	case "*":
		return &object.Float{Value: left * right}
	case "/":
		if right == 0 {
			return newError("eval/div/zero", tok)
		}
		return &object.Float{Value: left / right}
	case "<":
		return object.MakeBool(left < right)
	case ">":
		return object.MakeBool(left > right)
	case "<=":
		return object.MakeBool(left <= right)
	case ">=":
		return object.MakeBool(left >= right)
	}
	return newError("eval/infix/type", tok, operator, "float", "float")
}

func evalStringInfix(tok token.Token, operator string, left, right *object.String) object.Object {
	switch operator {
	case "+":
		return &object.String{Value: left.Value + right.Value}
	case "<":
		return object.MakeBool(left.Value < right.Value)
	case ">":
		return object.MakeBool(left.Value > right.Value)
	case "<=":
		return object.MakeBool(left.Value <= right.Value)
	case ">=":
		return object.MakeBool(left.Value >= right.Value)
	}
	return newError("eval/infix/type", tok, operator, "string", "string")
}

func evalIndexExpression(tok token.Token, left, index object.Object) object.Object {
	switch left := left.(type) {
	case *object.List:
		i, ok := index.(*object.Integer)
		if !ok {
			return newError("eval/index/type", tok, string(index.Type()))
		}
		element, found := left.Get(int(i.Value))
		if !found {
			return newError("eval/index/range", tok, i.Value)
		}
		return element
	case *object.Map:
		key, ok := index.(object.Hashable)
		if !ok {
			return newError("eval/hash", tok, string(index.Type()))
		}
		pair, found := left.Pairs[key.HashKey()]
		if !found {
			return newError("eval/index/key", tok, index.Inspect(object.ViewVaraLiteral))
		}
		return pair.Value
	case *object.String:
		i, ok := index.(*object.Integer)
		if !ok {
			return newError("eval/index/type", tok, string(index.Type()))
		}
		runes := []rune(left.Value)
		if i.Value < 0 || int(i.Value) >= len(runes) {
			return newError("eval/index/range", tok, i.Value)
		}
		return &object.String{Value: string(runes[i.Value])}
	}
	return newError("eval/index/type", tok, string(left.Type()))
}

func evalIndexAssignment(node *ast.IndexAssignment, rt *Runtime, env *sandbox.Context) object.Object {
	target, ok := node.Target.Left.(*ast.Identifier)
	if !ok {
		return newError("eval/index/type", node.GetToken(), node.Target.Left.String())
	}
	container := Eval(node.Target.Left, rt, env)
	if isError(container) {
		return traced(container, node.GetToken())
	}
	index := Eval(node.Target.Index, rt, env)
	if isError(index) {
		return traced(index, node.GetToken())
	}
	value := Eval(node.Value, rt, env)
	if isError(value) {
		return traced(value, node.GetToken())
	}
	switch container := container.(type) {
	case *object.List:
		i, ok := index.(*object.Integer)
		if !ok {
			return newError("eval/index/type", node.GetToken(), string(index.Type()))
		}
		if i.Value < 0 || int(i.Value) >= container.Len() {
			return newError("eval/index/range", node.GetToken(), i.Value)
		}
		updated := &object.List{Elements: container.Elements.Assoc(int(i.Value), value)}
		if err := env.Set(target.Scope, target.Value, updated, node.GetToken()); err != nil {
			return err
		}
		return object.SUCCESS
	case *object.Map:
		key, ok := index.(object.Hashable)
		if !ok {
			return newError("eval/hash", node.GetToken(), string(index.Type()))
		}
		// The write goes back through Set rather than mutating the map in
		// place, so that the scope's privilege rules apply to it.
		updated := object.Copy(container).(*object.Map)
		updated.Pairs[key.HashKey()] = object.MapPair{Key: index, Value: value}
		if err := env.Set(target.Scope, target.Value, updated, node.GetToken()); err != nil {
			return err
		}
		return object.SUCCESS
	}
	return newError("eval/index/type", node.GetToken(), string(container.Type()))
}

func evalMapLiteral(node *ast.MapLiteral, rt *Runtime, env *sandbox.Context) object.Object {
	result := object.NewMap()
	for _, pair := range node.Pairs {
		key := Eval(pair.Key, rt, env)
		if isError(key) {
			return traced(key, node.GetToken())
		}
		hashable, ok := key.(object.Hashable)
		if !ok {
			return newError("eval/hash", pair.Key.GetToken(), string(key.Type()))
		}
		value := Eval(pair.Value, rt, env)
		if isError(value) {
			return traced(value, node.GetToken())
		}
		result.Pairs[hashable.HashKey()] = object.MapPair{Key: key, Value: value}
	}
	return result
}

func evalSetLiteral(node *ast.SetLiteral, rt *Runtime, env *sandbox.Context) object.Object {
	result := object.NewSet()
	for _, element := range node.Elements {
		value := Eval(element, rt, env)
		if isError(value) {
			return traced(value, node.GetToken())
		}
		if !result.Add(value) {
			return newError("eval/hash", element.GetToken(), string(value.Type()))
		}
	}
	return result
}

func isNumber(o object.Object) bool {
	return o.Type() == object.INTEGER_OBJ || o.Type() == object.FLOAT_OBJ
}

func toFloat(o object.Object) float64 {
	switch o := o.(type) {
	case *object.Integer:
		return float64(o.Value)
	case *object.Float:
		return o.Value
	}
	return 0
}

func isError(o object.Object) bool {
	_, ok := o.(*object.Error)
	return ok
}

// traced appends the current position to an error's trace on the way up.
func traced(o object.Object, tok token.Token) object.Object {
	if err, ok := o.(*object.Error); ok {
		err.Trace = append(err.Trace, tok)
	}
	return o
}

func newError(errorID string, tok token.Token, args ...any) *object.Error {
	return object.CreateErr(errorID, tok, args...)
}
