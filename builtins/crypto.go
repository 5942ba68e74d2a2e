package builtins

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/vara-lang/vara/object"
	"github.com/vara-lang/vara/registry"
	"github.com/vara-lang/vara/sandbox"
)

// RegisterCrypto installs the password-handling functions. Scripts that
// manage credentials get bcrypt rather than being tempted to roll
// something out of string operations.
func RegisterCrypto(reg *registry.Registry) *object.Error {
	entries := []*registry.Entry{
		core("hash_password", sig("password string"), builtinHashPassword),
		core("check_password", sig("password string", "hash string"), builtinCheckPassword),
	}
	for _, entry := range entries {
		if err := reg.Register(entry, false, true, registrarTok); err != nil {
			return err
		}
	}
	return nil
}

func builtinHashPassword(gctx context.Context, env *sandbox.Context, args []object.Object) (object.Object, error) {
	password, ok := args[0].(*object.String)
	if !ok {
		return nil, object.CreateErr("reg/args/type", registrarTok, "hash_password", "password", "string", string(args[0].Type()))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password.Value), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &object.String{Value: string(hash)}, nil
}

func builtinCheckPassword(gctx context.Context, env *sandbox.Context, args []object.Object) (object.Object, error) {
	password, ok := args[0].(*object.String)
	if !ok {
		return nil, object.CreateErr("reg/args/type", registrarTok, "check_password", "password", "string", string(args[0].Type()))
	}
	hash, ok := args[1].(*object.String)
	if !ok {
		return nil, object.CreateErr("reg/args/type", registrarTok, "check_password", "hash", "string", string(args[1].Type()))
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash.Value), []byte(password.Value))
	if err == bcrypt.ErrMismatchedHashAndPassword {
		return object.FALSE, nil
	}
	if err != nil {
		return nil, err
	}
	return object.TRUE, nil
}
