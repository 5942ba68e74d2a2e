package evaluator

// The call path and the exception machinery.

import (
	"strconv"
	"strings"

	"github.com/vara-lang/vara/ast"
	"github.com/vara-lang/vara/object"
	"github.com/vara-lang/vara/registry"
	"github.com/vara-lang/vara/sandbox"
	"github.com/vara-lang/vara/token"
)

func tracePos(tok token.Token) string {
	return "line " + strconv.Itoa(tok.Line) + " of " + tok.Source
}

func evalCallExpression(node *ast.CallExpression, rt *Runtime, env *sandbox.Context) object.Object {
	positional := make([]object.Object, 0, len(node.Args))
	for _, arg := range node.Args {
		value := Eval(arg, rt, env)
		if isError(value) {
			return traced(value, node.GetToken())
		}
		positional = append(positional, value)
	}
	keyword := make([]registry.KwPair, 0, len(node.KwArgs))
	for _, kw := range node.KwArgs {
		value := Eval(kw.Value, rt, env)
		if isError(value) {
			return traced(value, node.GetToken())
		}
		keyword = append(keyword, registry.KwPair{Name: kw.Name, Value: value})
	}

	// A name bound to a function in the local scope shadows the registry.
	if fn, ok := localFunc(node.Name, env); ok {
		return callFunc(fn, rt, env, positional, keyword, node.GetToken())
	}
	entry, err := rt.Reg.Resolve(node.Name, rt.Namespace, node.GetToken())
	if err != nil {
		return err
	}
	bound, err := registry.BindArgs(entry, positional, keyword, node.GetToken())
	if err != nil {
		return err
	}
	return rt.Reg.Call(entry, env, bound, node.GetToken())
}

// localFunc finds the function a call name refers to in the local scope:
// either a plain name bound to a func, or "alias.name" reaching into an
// imported module.
func localFunc(name string, env *sandbox.Context) (*object.Func, bool) {
	if i := strings.Index(name, "."); i > 0 {
		holder, ok := env.Local.Get(name[:i])
		if !ok {
			return nil, false
		}
		mod, isModule := holder.(*object.Module)
		if !isModule {
			return nil, false
		}
		member, found := mod.Get(name[i+1:])
		if !found {
			return nil, false
		}
		fn, isFunc := member.(*object.Func)
		return fn, isFunc
	}
	holder, ok := env.Local.Get(name)
	if !ok {
		return nil, false
	}
	fn, isFunc := holder.(*object.Func)
	return fn, isFunc
}

func callFunc(fn *object.Func, rt *Runtime, env *sandbox.Context, positional []object.Object, keyword []registry.KwPair, tok token.Token) object.Object {
	entry := &registry.Entry{
		Name:     fn.Name,
		Kind:     registry.NATIVE,
		Metadata: registry.Metadata{Sig: fn.Sig},
		Def:      fn,
	}
	bound, err := registry.BindArgs(entry, positional, keyword, tok)
	if err != nil {
		return err
	}
	return rt.applyFunc(fn, env, bound, tok)
}

// applyFunc runs the body of a function defined in the language. It is
// also the registry's Applier, so native functions that were registered
// rather than defined locally come back through here too.
func (rt *Runtime) applyFunc(fn *object.Func, env *sandbox.Context, args []object.Object, tok token.Token) object.Object {
	child := env.Child()
	for i, pair := range fn.Sig {
		child.Local.Set(pair.VarName, args[i])
	}
	callee := rt
	if fn.Namespace != rt.Namespace {
		callee = &Runtime{Reg: rt.Reg, Loader: rt.Loader, Namespace: fn.Namespace}
	}
	result := evalBlock(fn.Body, callee, child)
	switch result := result.(type) {
	case *object.ReturnSignal:
		return result.Value
	case *object.BreakSignal:
		return newError("eval/break/loop", tok)
	case *object.ContinueSignal:
		return newError("eval/continue/loop", tok)
	case *object.Error:
		return traced(result, tok)
	}
	// Falling off the end of a function yields nil.
	return object.NULL
}

func evalTryStatement(node *ast.TryStatement, rt *Runtime, env *sandbox.Context) object.Object {
	result := evalBlock(node.Body, rt, env)
	err, ok := result.(*object.Error)
	if !ok || !err.Catchable() {
		return result
	}
	for _, handler := range node.Handlers {
		if !kindMatches(handler.Kinds, err.GetKind()) {
			continue
		}
		if handler.Bind != "" {
			env.Local.Set(handler.Bind, exceptionValue(err))
		}
		return evalBlock(handler.Body, rt, env)
	}
	return err
}

// kindMatches says whether an except clause catches an error of this
// kind. An empty kind list catches everything catchable; ResolutionError
// is accepted as another name for FunctionNotFound.
func kindMatches(kinds []string, kind string) bool {
	if len(kinds) == 0 {
		return true
	}
	for _, k := range kinds {
		if k == kind {
			return true
		}
		if k == object.RESOLUTION_ERROR && kind == object.FUNCTION_NOT_FOUND {
			return true
		}
	}
	return false
}

// exceptionValue builds the value an except clause binds: a map exposing
// the error's kind, message, and trace.
func exceptionValue(err *object.Error) object.Object {
	result := object.NewMap()
	put := func(key string, value object.Object) {
		keyObject := &object.String{Value: key}
		result.Pairs[keyObject.HashKey()] = object.MapPair{Key: keyObject, Value: value}
	}
	trace := object.NewList()
	trace.Elements = trace.Elements.Conj(object.Object(&object.String{Value: tracePos(err.Token)}))
	for _, tok := range err.Trace {
		trace.Elements = trace.Elements.Conj(object.Object(&object.String{Value: tracePos(tok)}))
	}
	put("type", &object.String{Value: err.GetKind()})
	put("message", &object.String{Value: err.Message})
	put("trace", trace)
	return result
}

func evalRaiseStatement(node *ast.RaiseStatement, rt *Runtime, env *sandbox.Context) object.Object {
	message := node.Kind
	if node.Message != nil {
		value := Eval(node.Message, rt, env)
		if isError(value) {
			return traced(value, node.GetToken())
		}
		message = value.Inspect(object.ViewStdOut)
	}
	return &object.Error{
		ErrorId: "user/raise",
		Kind:    node.Kind,
		Message: message,
		Token:   node.GetToken(),
	}
}

func evalImportStatement(node *ast.ImportStatement, rt *Runtime, env *sandbox.Context) object.Object {
	if rt.Loader == nil {
		return newError("eval/import", node.GetToken(), node.Name, "no module loader is configured")
	}
	bindings, err := rt.Loader.Load(node.Name, node.GetToken())
	if err != nil {
		return err
	}
	env.Local.Set(node.Alias, &object.Module{Name: node.Name, Bindings: bindings})
	return object.SUCCESS
}
