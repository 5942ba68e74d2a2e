// Package reason abstracts the external oracle behind the language's
// 'reason' function. The runtime doesn't know or care whether the answer
// comes from a language model, a rules engine, or a canned table; it just
// sends a prompt and gets text back, under the same deadline as any other
// host call.
package reason

import "context"

type Options struct {
	MaxTokens   int
	Temperature float64
}

type Provider interface {
	Reason(ctx context.Context, prompt string, opts Options) (string, error)
}

// An EchoProvider answers every prompt with the prompt itself. It stands
// in for a real provider in tests and in offline use, and being
// deterministic it keeps error messages reproducible.
type EchoProvider struct{}

func (EchoProvider) Reason(ctx context.Context, prompt string, opts Options) (string, error) {
	return prompt, nil
}

// A FuncProvider adapts a plain function, for embedders who don't want to
// declare a type.
type FuncProvider func(ctx context.Context, prompt string, opts Options) (string, error)

func (f FuncProvider) Reason(ctx context.Context, prompt string, opts Options) (string, error) {
	return f(ctx, prompt, opts)
}
