package ast

import (
	"fmt"
	"strconv"
)

// Validate walks a tree and checks that every node in it is one of the
// variants defined in this package, with no nil slots where the parser must
// have produced a child. The parser runs this over every program it emits,
// so an unhandled construct fails at parse time with the path to the
// offending node rather than surfacing as a nil dereference mid-execution.
func Validate(node Node) error {
	return validate(node, "program")
}

func validate(node Node, path string) error {
	if node == nil {
		return fmt.Errorf("nil node at %s", path)
	}
	switch node := node.(type) {
	case *Program:
		for i, s := range node.Statements {
			if err := validate(s, path+".statements["+strconv.Itoa(i)+"]"); err != nil {
				return err
			}
		}
	case *Block:
		for i, s := range node.Statements {
			if err := validate(s, path+".block["+strconv.Itoa(i)+"]"); err != nil {
				return err
			}
		}
	case *Identifier, *IntegerLiteral, *FloatLiteral, *StringLiteral,
		*BooleanLiteral, *NilLiteral, *BreakStatement, *ContinueStatement,
		*PassStatement:
		// Leaves.
	case *FStringLiteral:
		for i, part := range node.Parts {
			if part.Expr != nil {
				if err := validate(part.Expr, path+".parts["+strconv.Itoa(i)+"]"); err != nil {
					return err
				}
			}
		}
	case *PrefixExpression:
		return validate(node.Right, path+".right")
	case *InfixExpression:
		if err := validate(node.Left, path+".left"); err != nil {
			return err
		}
		return validate(node.Right, path+".right")
	case *IndexExpression:
		if err := validate(node.Left, path+".left"); err != nil {
			return err
		}
		return validate(node.Index, path+".index")
	case *ListLiteral:
		for i, e := range node.Elements {
			if err := validate(e, path+".elements["+strconv.Itoa(i)+"]"); err != nil {
				return err
			}
		}
	case *MapLiteral:
		for i, p := range node.Pairs {
			if err := validate(p.Key, path+".pairs["+strconv.Itoa(i)+"].key"); err != nil {
				return err
			}
			if err := validate(p.Value, path+".pairs["+strconv.Itoa(i)+"].value"); err != nil {
				return err
			}
		}
	case *SetLiteral:
		for i, e := range node.Elements {
			if err := validate(e, path+".elements["+strconv.Itoa(i)+"]"); err != nil {
				return err
			}
		}
	case *CallExpression:
		for i, a := range node.Args {
			if err := validate(a, path+".args["+strconv.Itoa(i)+"]"); err != nil {
				return err
			}
		}
		for i, kw := range node.KwArgs {
			if err := validate(kw.Value, path+".kwargs["+strconv.Itoa(i)+"]"); err != nil {
				return err
			}
		}
	case *Assignment:
		if err := validate(node.Target, path+".target"); err != nil {
			return err
		}
		return validate(node.Value, path+".value")
	case *IndexAssignment:
		if err := validate(node.Target, path+".target"); err != nil {
			return err
		}
		return validate(node.Value, path+".value")
	case *IfStatement:
		for i, clause := range node.Clauses {
			if err := validate(clause.Condition, path+".clauses["+strconv.Itoa(i)+"].condition"); err != nil {
				return err
			}
			if err := validate(clause.Body, path+".clauses["+strconv.Itoa(i)+"].body"); err != nil {
				return err
			}
		}
		if node.Else != nil {
			return validate(node.Else, path+".else")
		}
	case *WhileStatement:
		if err := validate(node.Condition, path+".condition"); err != nil {
			return err
		}
		return validate(node.Body, path+".body")
	case *ForStatement:
		if err := validate(node.Var, path+".var"); err != nil {
			return err
		}
		if err := validate(node.Iterable, path+".iterable"); err != nil {
			return err
		}
		return validate(node.Body, path+".body")
	case *FunctionDef:
		return validate(node.Body, path+".body")
	case *ReturnStatement:
		if node.Value != nil {
			return validate(node.Value, path+".value")
		}
	case *TryStatement:
		if err := validate(node.Body, path+".body"); err != nil {
			return err
		}
		for i, h := range node.Handlers {
			if err := validate(h.Body, path+".handlers["+strconv.Itoa(i)+"]"); err != nil {
				return err
			}
		}
	case *RaiseStatement:
		if node.Message != nil {
			return validate(node.Message, path+".message")
		}
	case *ImportStatement:
		// Leaf.
	default:
		return fmt.Errorf("unrecognized node type %T at %s", node, path)
	}
	return nil
}
