package builtins

import (
	"context"

	"github.com/vara-lang/vara/object"
	"github.com/vara-lang/vara/reason"
	"github.com/vara-lang/vara/registry"
	"github.com/vara-lang/vara/sandbox"
)

// RegisterReason installs the 'reason' function backed by the given
// provider. It is a host function like any other: it runs under the
// deadline, sees nothing of the context, and its failures are wrapped.
func RegisterReason(reg *registry.Registry, provider reason.Provider) *object.Error {
	entry := &registry.Entry{
		Name: "reason",
		Kind: registry.HOST,
		Metadata: registry.Metadata{
			Public: true,
			Sig:    sig("prompt string", "temperature float", "max_tokens int"),
			Defaults: map[string]object.Object{
				"temperature": &object.Float{Value: 0},
				"max_tokens":  &object.Integer{Value: 0},
			},
		},
		Fn: func(gctx context.Context, env *sandbox.Context, args []object.Object) (object.Object, error) {
			prompt, ok := args[0].(*object.String)
			if !ok {
				return nil, object.CreateErr("reg/args/type", registrarTok, "reason", "prompt", "string", string(args[0].Type()))
			}
			opts := reason.Options{}
			if temperature, ok := args[1].(*object.Float); ok {
				opts.Temperature = temperature.Value
			}
			if maxTokens, ok := args[2].(*object.Integer); ok {
				opts.MaxTokens = int(maxTokens.Value)
			}
			answer, err := provider.Reason(gctx, prompt.Value, opts)
			if err != nil {
				return nil, object.CreateErr("reason/provider", registrarTok, err.Error())
			}
			return &object.String{Value: answer}, nil
		},
	}
	return reg.Register(entry, false, true, registrarTok)
}
