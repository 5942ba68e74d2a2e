package database

import (
	"context"

	"github.com/vara-lang/vara/object"
	"github.com/vara-lang/vara/registry"
	"github.com/vara-lang/vara/sandbox"
	"github.com/vara-lang/vara/signature"
	"github.com/vara-lang/vara/token"
)

var registrarTok = token.Token{Source: "database"}

// RegisterHost installs the 'db' namespace over an open store. All the
// entries are host functions: they run under the deadline and their
// driver-level failures come back wrapped as runtime errors.
func RegisterHost(reg *registry.Registry, store *Store) *object.Error {
	entries := []*registry.Entry{
		{
			Name:      "query",
			Namespace: "db",
			Kind:      registry.HOST,
			Metadata: registry.Metadata{
				Public: true,
				Sig:    signature.NamedSignature{{VarName: "sql", VarType: "string"}},
			},
			Fn: store.hostQuery,
		},
		{
			Name:      "exec",
			Namespace: "db",
			Kind:      registry.HOST,
			Metadata: registry.Metadata{
				Public: true,
				Sig:    signature.NamedSignature{{VarName: "sql", VarType: "string"}},
			},
			Fn: store.hostExec,
		},
		{
			Name:      "drivers",
			Namespace: "db",
			Kind:      registry.HOST,
			Metadata:  registry.Metadata{Public: true},
			Fn:        hostDrivers,
		},
	}
	// Overwrite is allowed so that pointing the hub at a new store
	// replaces the old 'db' namespace rather than colliding with it.
	for _, entry := range entries {
		if err := reg.Register(entry, true, true, registrarTok); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) hostQuery(gctx context.Context, env *sandbox.Context, args []object.Object) (object.Object, error) {
	query, ok := args[0].(*object.String)
	if !ok {
		return nil, object.CreateErr("reg/args/type", registrarTok, "db.query", "sql", "string", string(args[0].Type()))
	}
	result, err := s.Query(gctx, query.Value)
	if err != nil {
		return nil, object.CreateErr("db/query", registrarTok, err.Error())
	}
	return result, nil
}

func (s *Store) hostExec(gctx context.Context, env *sandbox.Context, args []object.Object) (object.Object, error) {
	statement, ok := args[0].(*object.String)
	if !ok {
		return nil, object.CreateErr("reg/args/type", registrarTok, "db.exec", "sql", "string", string(args[0].Type()))
	}
	result, err := s.Exec(gctx, statement.Value)
	if err != nil {
		return nil, object.CreateErr("db/query", registrarTok, err.Error())
	}
	return result, nil
}

func hostDrivers(gctx context.Context, env *sandbox.Context, args []object.Object) (object.Object, error) {
	names := GetSortedDrivers()
	result := object.NewList()
	for _, name := range names {
		result.Elements = result.Elements.Conj(object.Object(&object.String{Value: name}))
	}
	return result, nil
}
