// Package checker implements the optional static pass over a parsed program.
// It is deliberately shallow: it tracks the types that can be known without
// running anything, treats everything else as "any", and only complains when
// two facts it does know contradict each other. A program that passes the
// checker can still fail at runtime; a program that fails it cannot succeed.
package checker

import (
	"strings"

	"github.com/vara-lang/vara/ast"
	"github.com/vara-lang/vara/object"
	"github.com/vara-lang/vara/set"
	"github.com/vara-lang/vara/signature"
	"github.com/vara-lang/vara/token"
)

// The types a for loop can iterate over.
var iterables = set.MakeFromSlice([]string{"any", "list", "map", "set", "string"})

// A TypeEnv is one lexical layer of known variable types. Lookups walk
// outward; writes always land in the innermost layer that already binds the
// name, or the current one if none does, mirroring how assignment behaves
// at runtime.
type TypeEnv struct {
	store map[string]string
	outer *TypeEnv
}

func NewTypeEnv(outer *TypeEnv) *TypeEnv {
	return &TypeEnv{store: map[string]string{}, outer: outer}
}

func (e *TypeEnv) Get(name string) (string, bool) {
	if t, ok := e.store[name]; ok {
		return t, true
	}
	if e.outer != nil {
		return e.outer.Get(name)
	}
	return "", false
}

func (e *TypeEnv) Set(name, varType string) {
	for env := e; env != nil; env = env.outer {
		if _, ok := env.store[name]; ok {
			env.store[name] = varType
			return
		}
	}
	e.store[name] = varType
}

// returnTypes of the core functions that always produce the same type.
var coreReturns = map[string]string{
	"len":   "int",
	"str":   "string",
	"int":   "int",
	"float": "float",
	"bool":  "bool",
	"type":  "string",
	"range": "list",
	"keys":  "list",
	"print": "nil",
}

type Checker struct {
	Errors object.Errors
	sigs   map[string]signature.NamedSignature
}

func New() *Checker {
	return &Checker{Errors: []*object.Error{}, sigs: map[string]signature.NamedSignature{}}
}

// Check walks the program. The returned errors all have ids beginning
// "type/" so that the caller can report them as a batch.
func Check(program *ast.Program) object.Errors {
	c := New()
	env := NewTypeEnv(nil)
	for _, stmt := range program.Statements {
		if fn, ok := stmt.(*ast.FunctionDef); ok {
			c.sigs[fn.Name] = fn.Sig
		}
	}
	for _, stmt := range program.Statements {
		c.checkStatement(stmt, env)
	}
	return c.Errors
}

func (c *Checker) checkStatement(stmt ast.Node, env *TypeEnv) {
	switch stmt := stmt.(type) {
	case *ast.Assignment:
		valueType := c.inferExpr(stmt.Value, env)
		if stmt.Target.Scope == "" || stmt.Target.Scope == "local" {
			if oldType, ok := env.Get(stmt.Target.Value); ok {
				if !assignable(oldType, valueType) {
					c.Throw("type/assign", stmt.GetToken(), stmt.Target.String(), valueType, oldType)
					return
				}
			}
			env.Set(stmt.Target.Value, promote(env, stmt.Target.Value, valueType))
		}
	case *ast.IndexAssignment:
		c.inferExpr(stmt.Target, env)
		c.inferExpr(stmt.Value, env)
	case *ast.IfStatement:
		branches := []*TypeEnv{}
		for _, clause := range stmt.Clauses {
			c.checkGuard(clause.Condition, env)
			inner := NewTypeEnv(env)
			c.checkBlock(clause.Body, inner)
			branches = append(branches, inner)
		}
		if stmt.Else != nil {
			inner := NewTypeEnv(env)
			c.checkBlock(stmt.Else, inner)
			branches = append(branches, inner)
		}
		mergeBranches(env, branches, stmt.Else != nil)
	case *ast.WhileStatement:
		c.checkGuard(stmt.Condition, env)
		inner := NewTypeEnv(env)
		c.checkBlock(stmt.Body, inner)
		mergeBranches(env, []*TypeEnv{inner}, false)
	case *ast.ForStatement:
		iterType := c.inferExpr(stmt.Iterable, env)
		if !iterables.Contains(iterType) {
			c.Throw("type/operator", stmt.GetToken(), "for", iterType)
		}
		inner := NewTypeEnv(env)
		inner.Set(stmt.Var.Value, "any")
		c.checkBlock(stmt.Body, inner)
		mergeBranches(env, []*TypeEnv{inner}, false)
	case *ast.FunctionDef:
		inner := NewTypeEnv(env)
		for _, pair := range stmt.Sig {
			inner.Set(pair.VarName, pair.VarType)
		}
		c.checkBlock(stmt.Body, inner)
	case *ast.ReturnStatement:
		if stmt.Value != nil {
			c.inferExpr(stmt.Value, env)
		}
	case *ast.TryStatement:
		inner := NewTypeEnv(env)
		c.checkBlock(stmt.Body, inner)
		mergeBranches(env, []*TypeEnv{inner}, false)
		for _, handler := range stmt.Handlers {
			inner := NewTypeEnv(env)
			if handler.Bind != "" {
				inner.Set(handler.Bind, "map")
			}
			c.checkBlock(handler.Body, inner)
			mergeBranches(env, []*TypeEnv{inner}, false)
		}
	case *ast.RaiseStatement:
		if stmt.Message != nil {
			c.inferExpr(stmt.Message, env)
		}
	case *ast.BreakStatement, *ast.ContinueStatement, *ast.PassStatement, *ast.ImportStatement:
		// Nothing to know statically.
	default:
		c.inferExpr(stmt, env)
	}
}

func (c *Checker) checkBlock(block *ast.Block, env *TypeEnv) {
	for _, stmt := range block.Statements {
		if fn, ok := stmt.(*ast.FunctionDef); ok {
			c.sigs[fn.Name] = fn.Sig
		}
	}
	for _, stmt := range block.Statements {
		c.checkStatement(stmt, env)
	}
}

// checkGuard enforces that a condition is a bool. Conditions are never
// truthy in this language, so a guard of any other known type is an error.
func (c *Checker) checkGuard(condition ast.Node, env *TypeEnv) {
	condType := c.inferExpr(condition, env)
	if condType != "bool" && condType != "any" {
		c.Throw("type/guard", condition.GetToken(), condType)
	}
}

func (c *Checker) inferExpr(expr ast.Node, env *TypeEnv) string {
	switch expr := expr.(type) {
	case *ast.IntegerLiteral:
		return "int"
	case *ast.FloatLiteral:
		return "float"
	case *ast.StringLiteral, *ast.FStringLiteral:
		return "string"
	case *ast.BooleanLiteral:
		return "bool"
	case *ast.NilLiteral:
		return "nil"
	case *ast.ListLiteral:
		for _, element := range expr.Elements {
			c.inferExpr(element, env)
		}
		return "list"
	case *ast.MapLiteral:
		for _, pair := range expr.Pairs {
			c.inferExpr(pair.Key, env)
			c.inferExpr(pair.Value, env)
		}
		return "map"
	case *ast.SetLiteral:
		for _, element := range expr.Elements {
			c.inferExpr(element, env)
		}
		return "set"
	case *ast.Identifier:
		if expr.Scope != "" && expr.Scope != "local" {
			return "any"
		}
		if strings.Contains(expr.Value, ".") {
			// A member of an imported module; what it holds is the
			// module's business.
			return "any"
		}
		if t, ok := env.Get(expr.Value); ok {
			return t
		}
		if _, ok := c.sigs[expr.Value]; ok {
			return "func"
		}
		c.Throw("type/unbound", expr.GetToken(), expr.String())
		return "any"
	case *ast.PrefixExpression:
		return c.inferPrefix(expr, env)
	case *ast.InfixExpression:
		return c.inferInfix(expr, env)
	case *ast.IndexExpression:
		leftType := c.inferExpr(expr.Left, env)
		c.inferExpr(expr.Index, env)
		switch leftType {
		case "list", "map", "string", "any":
			return "any"
		default:
			c.Throw("type/operator", expr.GetToken(), "[]", leftType)
			return "any"
		}
	case *ast.CallExpression:
		for _, arg := range expr.Args {
			c.inferExpr(arg, env)
		}
		for _, kw := range expr.KwArgs {
			c.inferExpr(kw.Value, env)
		}
		if t, ok := coreReturns[expr.Name]; ok {
			return t
		}
		return "any"
	default:
		return "any"
	}
}

func (c *Checker) inferPrefix(expr *ast.PrefixExpression, env *TypeEnv) string {
	rightType := c.inferExpr(expr.Right, env)
	switch expr.Operator {
	case "-":
		if rightType == "int" || rightType == "float" || rightType == "any" {
			return rightType
		}
		c.Throw("type/operator", expr.GetToken(), "-", rightType)
		return "any"
	case "not":
		if rightType != "bool" && rightType != "any" {
			c.Throw("type/operator", expr.GetToken(), "not", rightType)
		}
		return "bool"
	}
	return "any"
}

func (c *Checker) inferInfix(expr *ast.InfixExpression, env *TypeEnv) string {
	leftType := c.inferExpr(expr.Left, env)
	rightType := c.inferExpr(expr.Right, env)
	switch expr.Operator {
	case "+", "-", "*", "/", "%":
		return c.inferArithmetic(expr, leftType, rightType)
	case "==", "!=":
		return "bool"
	case "<", ">", "<=", ">=":
		if !comparable(leftType, rightType) {
			c.Throw("type/operator", expr.GetToken(), expr.Operator, leftType, rightType)
		}
		return "bool"
	case "and", "or":
		if leftType != "bool" && leftType != "any" {
			c.Throw("type/operator", expr.GetToken(), expr.Operator, leftType)
		}
		if rightType != "bool" && rightType != "any" {
			c.Throw("type/operator", expr.GetToken(), expr.Operator, rightType)
		}
		return "bool"
	}
	return "any"
}

func (c *Checker) inferArithmetic(expr *ast.InfixExpression, leftType, rightType string) string {
	if leftType == "any" || rightType == "any" {
		return "any"
	}
	if numeric(leftType) && numeric(rightType) {
		if leftType == "float" || rightType == "float" {
			return "float"
		}
		return "int"
	}
	if expr.Operator == "+" && leftType == rightType && (leftType == "string" || leftType == "list") {
		return leftType
	}
	c.Throw("type/operator", expr.GetToken(), expr.Operator, leftType, rightType)
	return "any"
}

func numeric(t string) bool { return t == "int" || t == "float" }

func comparable(left, right string) bool {
	if left == "any" || right == "any" {
		return true
	}
	if numeric(left) && numeric(right) {
		return true
	}
	return left == "string" && right == "string"
}

// mergeBranches exposes names first bound inside conditional or loop
// bodies to the code after the block, since the local scope a program
// runs against is flat. A name that every branch of an exhaustive
// if/else binds keeps the join of its branch types; any other name may
// still be unbound when the block is done, so it merges as "any".
func mergeBranches(env *TypeEnv, branches []*TypeEnv, exhaustive bool) {
	counts := map[string]int{}
	types := map[string]string{}
	for _, branch := range branches {
		for name, branchType := range branch.store {
			counts[name]++
			if prior, ok := types[name]; ok {
				types[name] = join(prior, branchType)
			} else {
				types[name] = branchType
			}
		}
	}
	for name, mergedType := range types {
		if exhaustive && counts[name] == len(branches) {
			env.Set(name, mergedType)
		} else {
			env.Set(name, "any")
		}
	}
}

// join is the least type covering both: ints and floats join to float,
// anything else that disagrees joins to "any".
func join(a, b string) string {
	if a == b {
		return a
	}
	if numeric(a) && numeric(b) {
		return "float"
	}
	return "any"
}

// assignable says whether a variable known to hold oldType may be given a
// value of newType. Mixed int/float assignments are allowed in either
// direction and promote the variable to float; any other change of type
// is a contradiction.
func assignable(oldType, newType string) bool {
	if oldType == "any" || newType == "any" || oldType == newType {
		return true
	}
	if oldType == "nil" || newType == "nil" {
		return true
	}
	return numeric(oldType) && numeric(newType)
}

// promote keeps a variable's type stable across int/float widening.
func promote(env *TypeEnv, name, newType string) string {
	oldType, ok := env.Get(name)
	if !ok {
		return newType
	}
	if numeric(oldType) && numeric(newType) && oldType != newType {
		return "float"
	}
	if oldType != newType {
		return "any"
	}
	return newType
}

func (c *Checker) Throw(errorID string, tok token.Token, args ...any) {
	c.Errors = object.Throw(errorID, c.Errors, tok, args...)
}
