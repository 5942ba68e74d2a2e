// Package sandbox holds the variable state a program runs against: four
// named scopes with different sharing and visibility rules.
//
//	local   - this execution only; function calls get a fresh one
//	private - shared across the service's executions, never leaves it
//	public  - shared and visible to host functions after sanitization
//	system  - runtime configuration; read-only to unprivileged code
package sandbox

import (
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/vara-lang/vara/object"
	"github.com/vara-lang/vara/token"
)

const (
	LOCAL   = "local"
	PRIVATE = "private"
	PUBLIC  = "public"
	SYSTEM  = "system"
)

// A Scope is one name-to-value partition. The private, public and system
// scopes are shared between concurrently running executions of the same
// service, hence the lock; a local scope never is, but locking it anyway
// costs little and keeps the type uniform.
type Scope struct {
	mu   sync.RWMutex
	vars map[string]object.Object
}

func NewScope() *Scope {
	return &Scope{vars: map[string]object.Object{}}
}

func (s *Scope) Get(name string) (object.Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.vars[name]
	return value, ok
}

func (s *Scope) Set(name string, value object.Object) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vars[name] = value
}

func (s *Scope) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.vars))
	for name := range s.vars {
		names = append(names, name)
	}
	return names
}

// A Context is the full variable state of one execution. The Id ties log
// lines and errors back to the execution that produced them.
type Context struct {
	Id         string
	Local      *Scope
	Private    *Scope
	Public     *Scope
	System     *Scope
	Privileged bool
}

func NewContext() *Context {
	return &Context{
		Id:      uuid.NewString(),
		Local:   NewScope(),
		Private: NewScope(),
		Public:  NewScope(),
		System:  NewScope(),
	}
}

// Child makes the context a function body runs in: a fresh local scope,
// with the shared scopes aliased rather than copied.
func (c *Context) Child() *Context {
	return &Context{
		Id:         uuid.NewString(),
		Local:      NewScope(),
		Private:    c.Private,
		Public:     c.Public,
		System:     c.System,
		Privileged: c.Privileged,
	}
}

func (c *Context) scope(name string) *Scope {
	switch name {
	case LOCAL:
		return c.Local
	case PRIVATE:
		return c.Private
	case PUBLIC:
		return c.Public
	case SYSTEM:
		return c.System
	}
	return nil
}

// Get reads a variable. An empty scope name means the bare form, which
// reads the local scope.
func (c *Context) Get(scopeName, name string, tok token.Token) (object.Object, *object.Error) {
	if scopeName == "" {
		scopeName = LOCAL
	}
	scope := c.scope(scopeName)
	if scope == nil {
		return nil, object.CreateErr("sandbox/scope", tok, scopeName)
	}
	value, ok := scope.Get(name)
	if !ok {
		return nil, object.CreateErr("eval/ident/found", tok, name)
	}
	return value, nil
}

// Set writes a variable. Writes to the system scope require privilege;
// the resulting error is not catchable from inside the sandbox.
func (c *Context) Set(scopeName, name string, value object.Object, tok token.Token) *object.Error {
	if scopeName == "" {
		scopeName = LOCAL
	}
	scope := c.scope(scopeName)
	if scope == nil {
		return object.CreateErr("sandbox/scope", tok, scopeName)
	}
	if scopeName == SYSTEM && !c.Privileged {
		return object.CreateErr("sandbox/sec/system", tok)
	}
	scope.Set(name, value)
	return nil
}

// Patterns that mark a variable as carrying a credential. Matched against
// the lowercased name.
var sensitiveName = regexp.MustCompile(`(?:^|_)(?:token|secret|password|key|credential)s?(?:_|$)`)

// jwtShaped matches the three-part dotted base64url form of a JWT.
var jwtShaped = regexp.MustCompile(`^eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]*$`)

const mask = "********"

// Sanitize produces the view of the context that may be handed to host
// functions: private and system are dropped entirely, and anything in the
// remaining scopes that looks like a credential is masked. Sanitizing an
// already sanitized context changes nothing.
func (c *Context) Sanitize() *Context {
	return &Context{
		Id:      c.Id,
		Local:   sanitizeScope(c.Local),
		Private: NewScope(),
		Public:  sanitizeScope(c.Public),
		System:  NewScope(),
	}
}

func sanitizeScope(s *Scope) *Scope {
	out := NewScope()
	s.mu.RLock()
	defer s.mu.RUnlock()
	for name, value := range s.vars {
		if sensitiveName.MatchString(strings.ToLower(name)) {
			out.vars[name] = &object.String{Value: mask}
			continue
		}
		if str, ok := value.(*object.String); ok && jwtShaped.MatchString(str.Value) {
			out.vars[name] = &object.String{Value: mask}
			continue
		}
		// Containers are copied, not aliased: whatever the receiver does
		// with the sanitized context must not reach back into this one.
		out.vars[name] = object.Copy(value)
	}
	return out
}
