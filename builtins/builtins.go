// Package builtins supplies the core functions every program can call.
// They are registered as CORE entries, so user code can't overwrite them.
package builtins

import (
	"context"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/vara-lang/vara/object"
	"github.com/vara-lang/vara/registry"
	"github.com/vara-lang/vara/sandbox"
	"github.com/vara-lang/vara/signature"
	"github.com/vara-lang/vara/token"
)

var registrarTok = token.Token{Source: "builtins"}

func sig(pairs ...string) signature.NamedSignature {
	result := signature.NamedSignature{}
	for _, pair := range pairs {
		name, varType := pair, "any"
		if i := strings.Index(pair, " "); i > 0 {
			name, varType = pair[:i], pair[i+1:]
		}
		result = append(result, signature.NameTypePair{VarName: name, VarType: varType})
	}
	return result
}

func core(name string, parameters signature.NamedSignature, fn registry.GoFunc) *registry.Entry {
	return &registry.Entry{
		Name:     name,
		Kind:     registry.CORE,
		Metadata: registry.Metadata{Public: true, Sig: parameters},
		Fn:       fn,
	}
}

// RegisterCore installs the core functions. Output from 'print' goes to
// the supplied writer, which the REPL points at its own stdout and the
// tests point at a buffer.
func RegisterCore(reg *registry.Registry, out io.Writer) *object.Error {
	entries := []*registry.Entry{
		core("len", sig("value"), builtinLen),
		core("str", sig("value"), builtinStr),
		core("int", sig("value"), builtinInt),
		core("float", sig("value"), builtinFloat),
		core("bool", sig("value"), builtinBool),
		core("type", sig("value"), builtinType),
		core("range", sig("n int"), builtinRange),
		core("keys", sig("m map"), builtinKeys),
		core("values", sig("m map"), builtinValues),
		core("append", sig("xs list", "value"), builtinAppend),
		core("contains", sig("container", "value"), builtinContains),
		core("print", sig("value"), makePrint(out)),
	}
	for _, entry := range entries {
		if err := reg.Register(entry, false, true, registrarTok); err != nil {
			return err
		}
	}
	return nil
}

func builtinLen(gctx context.Context, env *sandbox.Context, args []object.Object) (object.Object, error) {
	switch value := args[0].(type) {
	case *object.String:
		return &object.Integer{Value: int64(len([]rune(value.Value)))}, nil
	case *object.List:
		return &object.Integer{Value: int64(value.Len())}, nil
	case *object.Map:
		return &object.Integer{Value: int64(len(value.Pairs))}, nil
	case *object.Set:
		return &object.Integer{Value: int64(len(value.Elements))}, nil
	}
	return nil, object.CreateErr("reg/args/type", registrarTok, "len", "value", "collection", string(args[0].Type()))
}

func builtinStr(gctx context.Context, env *sandbox.Context, args []object.Object) (object.Object, error) {
	return &object.String{Value: args[0].Inspect(object.ViewStdOut)}, nil
}

func builtinInt(gctx context.Context, env *sandbox.Context, args []object.Object) (object.Object, error) {
	switch value := args[0].(type) {
	case *object.Integer:
		return value, nil
	case *object.Float:
		return &object.Integer{Value: int64(value.Value)}, nil
	case *object.Boolean:
		if value.Value {
			return &object.Integer{Value: 1}, nil
		}
		return &object.Integer{Value: 0}, nil
	case *object.String:
		n, err := strconv.ParseInt(strings.TrimSpace(value.Value), 10, 64)
		if err != nil {
			return nil, object.CreateErr("core/conv", registrarTok, object.EmphValue(value), "int")
		}
		return &object.Integer{Value: n}, nil
	}
	return nil, object.CreateErr("core/conv", registrarTok, object.EmphType(args[0]), "int")
}

func builtinFloat(gctx context.Context, env *sandbox.Context, args []object.Object) (object.Object, error) {
	switch value := args[0].(type) {
	case *object.Float:
		return value, nil
	case *object.Integer:
		return &object.Float{Value: float64(value.Value)}, nil
	case *object.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(value.Value), 64)
		if err != nil {
			return nil, object.CreateErr("core/conv", registrarTok, object.EmphValue(value), "float")
		}
		return &object.Float{Value: f}, nil
	}
	return nil, object.CreateErr("core/conv", registrarTok, object.EmphType(args[0]), "float")
}

func builtinBool(gctx context.Context, env *sandbox.Context, args []object.Object) (object.Object, error) {
	switch value := args[0].(type) {
	case *object.Boolean:
		return value, nil
	case *object.String:
		switch value.Value {
		case "true":
			return object.TRUE, nil
		case "false":
			return object.FALSE, nil
		}
	}
	return nil, object.CreateErr("core/conv", registrarTok, object.EmphType(args[0]), "bool")
}

func builtinType(gctx context.Context, env *sandbox.Context, args []object.Object) (object.Object, error) {
	return &object.String{Value: string(args[0].Type())}, nil
}

func builtinRange(gctx context.Context, env *sandbox.Context, args []object.Object) (object.Object, error) {
	n, ok := args[0].(*object.Integer)
	if !ok {
		return nil, object.CreateErr("reg/args/type", registrarTok, "range", "n", "int", string(args[0].Type()))
	}
	result := object.NewList()
	for i := int64(0); i < n.Value; i++ {
		result.Elements = result.Elements.Conj(object.Object(&object.Integer{Value: i}))
	}
	return result, nil
}

// builtinKeys returns a map's keys sorted by their literal form, so that
// iteration order is stable from run to run.
func builtinKeys(gctx context.Context, env *sandbox.Context, args []object.Object) (object.Object, error) {
	m, ok := args[0].(*object.Map)
	if !ok {
		return nil, object.CreateErr("reg/args/type", registrarTok, "keys", "m", "map", string(args[0].Type()))
	}
	keys := make([]object.Object, 0, len(m.Pairs))
	for _, pair := range m.Pairs {
		keys = append(keys, pair.Key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Inspect(object.ViewVaraLiteral) < keys[j].Inspect(object.ViewVaraLiteral)
	})
	return object.NewList(keys...), nil
}

func builtinValues(gctx context.Context, env *sandbox.Context, args []object.Object) (object.Object, error) {
	m, ok := args[0].(*object.Map)
	if !ok {
		return nil, object.CreateErr("reg/args/type", registrarTok, "values", "m", "map", string(args[0].Type()))
	}
	pairs := make([]object.MapPair, 0, len(m.Pairs))
	for _, pair := range m.Pairs {
		pairs = append(pairs, pair)
	}
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].Key.Inspect(object.ViewVaraLiteral) < pairs[j].Key.Inspect(object.ViewVaraLiteral)
	})
	values := make([]object.Object, 0, len(pairs))
	for _, pair := range pairs {
		values = append(values, pair.Value)
	}
	return object.NewList(values...), nil
}

func builtinAppend(gctx context.Context, env *sandbox.Context, args []object.Object) (object.Object, error) {
	xs, ok := args[0].(*object.List)
	if !ok {
		return nil, object.CreateErr("reg/args/type", registrarTok, "append", "xs", "list", string(args[0].Type()))
	}
	return &object.List{Elements: xs.Elements.Conj(args[1])}, nil
}

func builtinContains(gctx context.Context, env *sandbox.Context, args []object.Object) (object.Object, error) {
	switch container := args[0].(type) {
	case *object.List:
		for i := 0; i < container.Len(); i++ {
			element, _ := container.Get(i)
			if object.Equals(element, args[1]) {
				return object.TRUE, nil
			}
		}
		return object.FALSE, nil
	case *object.Set:
		return object.MakeBool(container.Contains(args[1])), nil
	case *object.Map:
		key, ok := args[1].(object.Hashable)
		if !ok {
			return object.FALSE, nil
		}
		_, found := container.Pairs[key.HashKey()]
		return object.MakeBool(found), nil
	case *object.String:
		needle, ok := args[1].(*object.String)
		if !ok {
			return object.FALSE, nil
		}
		return object.MakeBool(strings.Contains(container.Value, needle.Value)), nil
	}
	return nil, object.CreateErr("reg/args/type", registrarTok, "contains", "container", "collection", string(args[0].Type()))
}

func makePrint(out io.Writer) registry.GoFunc {
	return func(gctx context.Context, env *sandbox.Context, args []object.Object) (object.Object, error) {
		io.WriteString(out, args[0].Inspect(object.ViewStdOut)+"\n")
		return object.NULL, nil
	}
}
