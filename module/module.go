// Package module defines how an import statement gets its bindings. The
// evaluator only knows the Loader interface; what a module name means --
// an entry in a map, a file on disk, something baked into the embedding
// application -- is the loader's business.
package module

import (
	"strings"

	"github.com/vara-lang/vara/object"
	"github.com/vara-lang/vara/token"
)

type Loader interface {
	Load(name string, tok token.Token) (map[string]object.Object, *object.Error)
}

// A MapLoader serves modules from a fixed table, which is all an embedding
// application needs when it supplies its modules programmatically.
type MapLoader struct {
	Modules map[string]map[string]object.Object
}

func NewMapLoader() *MapLoader {
	return &MapLoader{Modules: map[string]map[string]object.Object{}}
}

func (ml *MapLoader) Add(name string, bindings map[string]object.Object) {
	ml.Modules[name] = bindings
}

func (ml *MapLoader) Load(name string, tok token.Token) (map[string]object.Object, *object.Error) {
	bindings, ok := ml.Modules[name]
	if !ok {
		return nil, object.CreateErr("mod/found", tok, name)
	}
	return bindings, nil
}

// CycleGuard wraps a loader with import-cycle detection. Each execution
// gets its own guard, so the chain it tracks is the chain of imports
// currently in progress, not everything ever loaded.
type CycleGuard struct {
	Inner Loader
	chain []string
}

func NewCycleGuard(inner Loader) *CycleGuard {
	return &CycleGuard{Inner: inner}
}

func (cg *CycleGuard) Load(name string, tok token.Token) (map[string]object.Object, *object.Error) {
	for _, loading := range cg.chain {
		if loading == name {
			return nil, object.CreateErr("mod/cycle", tok, strings.Join(append(cg.chain, name), " -> "))
		}
	}
	cg.chain = append(cg.chain, name)
	defer func() { cg.chain = cg.chain[:len(cg.chain)-1] }()
	return cg.Inner.Load(name, tok)
}
