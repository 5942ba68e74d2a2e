// Package registry is the gatekeeper between programs and the functions
// they may call. Every callable is registered here with metadata saying
// what it is, who may call it, and what it is allowed to see; resolution
// and argument binding both happen here so that the evaluator never calls
// anything the registry hasn't vetted.
package registry

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/vara-lang/vara/object"
	"github.com/vara-lang/vara/sandbox"
	"github.com/vara-lang/vara/signature"
	"github.com/vara-lang/vara/token"
)

type Kind int

const (
	NATIVE Kind = iota // defined in the language, run by the evaluator
	HOST               // supplied by the embedding application
	CORE               // part of the runtime's trusted surface
)

func (k Kind) String() string {
	switch k {
	case NATIVE:
		return "native"
	case HOST:
		return "host"
	case CORE:
		return "core"
	}
	return "unknown"
}

// A GoFunc is the Go side of a host or core function. It gets the deadline
// as a context and the sandbox context it is allowed to see; a plain Go
// error return is wrapped, an *object.Error passes through untouched.
type GoFunc func(gctx context.Context, env *sandbox.Context, args []object.Object) (object.Object, error)

type Metadata struct {
	Public       bool // callable from outside the owning namespace
	Privileged   bool // sees the unsanitized context
	WantsContext bool // receives the sandbox context at all
	Sig          signature.NamedSignature
	Defaults     map[string]object.Object // values for parameters a call may omit
	Doc          string
}

type Entry struct {
	Name      string
	Namespace string // "" for the global namespace
	Kind      Kind
	Metadata  Metadata
	Def       *object.Func // for NATIVE
	Fn        GoFunc       // for HOST and CORE
}

func (e *Entry) fullName() string {
	if e.Namespace == "" {
		return e.Name
	}
	return e.Namespace + "." + e.Name
}

// An Applier runs the body of a native function; the evaluator plugs
// itself in here so that the registry doesn't have to import it.
type Applier func(fn *object.Func, env *sandbox.Context, args []object.Object, tok token.Token) object.Object

const DefaultDeadline = 5 * time.Second

type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	Apply   Applier
}

func New() *Registry {
	return &Registry{entries: map[string]*Entry{}}
}

// Register adds an entry. Overwriting needs the overwrite flag, and
// overwriting a core function additionally needs a privileged registrar,
// whatever flags are passed.
func (r *Registry) Register(entry *Entry, overwrite, privileged bool, tok token.Token) *object.Error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := entry.fullName()
	if existing, ok := r.entries[key]; ok {
		if existing.Kind == CORE && !privileged {
			return object.CreateErr("reg/sec/core", tok, key)
		}
		if !overwrite {
			return object.CreateErr("reg/exists", tok, key)
		}
	}
	r.entries[key] = entry
	return nil
}

// Resolve finds the entry a call by this name, made from this namespace,
// refers to. Lookup order: the caller's own namespace, then the global
// namespace, then the name taken as already qualified.
func (r *Registry) Resolve(name, fromNamespace string, tok token.Token) (*Entry, *object.Error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var entry *Entry
	if fromNamespace != "" {
		entry = r.entries[fromNamespace+"."+name]
	}
	if entry == nil {
		entry = r.entries[name]
	}
	if entry == nil {
		return nil, object.CreateErr("reg/found", tok, name, r.suggestion(name))
	}
	if !entry.Metadata.Public && entry.Namespace != "" && entry.Namespace != fromNamespace {
		return nil, object.CreateErr("reg/sec/private", tok, entry.Name, entry.Namespace)
	}
	return entry, nil
}

// suggestion finds the registered name closest to the misspelling, if any
// is close enough to be worth mentioning. Caller holds the lock.
func (r *Registry) suggestion(name string) string {
	names := make([]string, 0, len(r.entries))
	for key := range r.entries {
		names = append(names, key)
	}
	sort.Strings(names)
	best, bestDistance := "", 3
	for _, candidate := range names {
		if d := editDistance(name, candidate); d < bestDistance {
			best, bestDistance = candidate, d
		}
	}
	return best
}

func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	previous := make([]int, len(rb)+1)
	current := make([]int, len(rb)+1)
	for j := range previous {
		previous[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		current[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			current[j] = min(previous[j]+1, current[j-1]+1, previous[j-1]+cost)
		}
		previous, current = current, previous
	}
	return previous[len(rb)]
}

// A KwPair is one keyword argument at a call site.
type KwPair struct {
	Name  string
	Value object.Object
}

// BindArgs matches positional and keyword arguments against the entry's
// declared signature, producing one value per parameter in declaration
// order.
func BindArgs(entry *Entry, positional []object.Object, keyword []KwPair, tok token.Token) ([]object.Object, *object.Error) {
	sig := entry.Metadata.Sig
	if len(positional) > len(sig) {
		return nil, object.CreateErr("reg/args/bind", tok, entry.fullName(),
			": "+strconv.Itoa(len(positional))+" arguments for "+strconv.Itoa(len(sig))+" parameters")
	}
	bound := make([]object.Object, len(sig))
	for i, arg := range positional {
		bound[i] = arg
	}
	for _, kw := range keyword {
		index := -1
		for i, pair := range sig {
			if pair.VarName == kw.Name {
				index = i
				break
			}
		}
		if index == -1 {
			return nil, object.CreateErr("reg/args/kw", tok, entry.fullName(), kw.Name)
		}
		if bound[index] != nil {
			// A positional argument claimed a slot a keyword also names,
			// which happens when the caller mixed the two orderings. Before
			// failing, re-attempt the binding with the keywords placed
			// first and the positionals filling whatever slots remain.
			if retried, ok := bindKeywordsFirst(sig, positional, keyword); ok {
				bound = retried
				break
			}
			return nil, object.CreateErr("reg/args/repeat", tok, entry.fullName(), kw.Name)
		}
		bound[index] = kw.Value
	}
	for i, value := range bound {
		if value == nil {
			if dflt, ok := entry.Metadata.Defaults[sig[i].VarName]; ok {
				bound[i] = dflt
				continue
			}
			return nil, object.CreateErr("reg/args/bind", tok, entry.fullName(),
				": no value for parameter '"+sig[i].VarName+"'")
		}
	}
	return bound, nil
}

// bindKeywordsFirst is the recovery ordering: keywords take their named
// slots, then the positionals fill the unbound slots left to right. It
// reports failure instead of an error so the caller can keep the error
// from the straightforward ordering.
func bindKeywordsFirst(sig signature.NamedSignature, positional []object.Object, keyword []KwPair) ([]object.Object, bool) {
	bound := make([]object.Object, len(sig))
	for _, kw := range keyword {
		index := -1
		for i, pair := range sig {
			if pair.VarName == kw.Name {
				index = i
				break
			}
		}
		if index == -1 || bound[index] != nil {
			return nil, false
		}
		bound[index] = kw.Value
	}
	next := 0
	for _, arg := range positional {
		for next < len(bound) && bound[next] != nil {
			next++
		}
		if next == len(bound) {
			return nil, false
		}
		bound[next] = arg
	}
	return bound, true
}

// Call runs a resolved entry with already-bound arguments. Native
// functions run on the evaluator in a child context; host and core
// functions run on their own goroutine under the deadline from
// 'system.deadline_ms', and see the context only in sanitized form unless
// registered as privileged.
func (r *Registry) Call(entry *Entry, env *sandbox.Context, args []object.Object, tok token.Token) object.Object {
	if entry.Kind == NATIVE {
		return r.Apply(entry.Def, env, args, tok)
	}
	passed := env
	if !entry.Metadata.Privileged {
		passed = env.Sanitize()
	}
	if !entry.Metadata.WantsContext {
		passed = nil
	}
	deadline := DefaultDeadline
	if value, ok := env.System.Get("deadline_ms"); ok {
		if ms, ok := value.(*object.Integer); ok && ms.Value > 0 {
			deadline = time.Duration(ms.Value) * time.Millisecond
		}
	}
	gctx, cancel := context.WithTimeout(context.Background(), deadline)
	defer cancel()

	type outcome struct {
		value object.Object
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		value, err := entry.Fn(gctx, passed, args)
		done <- outcome{value, err}
	}()
	select {
	case result := <-done:
		if result.err != nil {
			if varaErr, ok := result.err.(*object.Error); ok {
				return varaErr
			}
			return object.CreateErr("reg/host", tok, entry.fullName(), result.err.Error())
		}
		if result.value == nil {
			return object.NULL
		}
		return result.value
	case <-gctx.Done():
		return object.CreateErr("reg/timeout", tok, entry.fullName())
	}
}
