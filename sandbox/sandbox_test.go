package sandbox_test

import (
	"testing"

	"github.com/vara-lang/vara/object"
	"github.com/vara-lang/vara/sandbox"
	"github.com/vara-lang/vara/token"
)

var tok = token.Token{Source: "test"}

func TestScopeResolution(t *testing.T) {
	ctx := sandbox.NewContext()
	if err := ctx.Set("", "x", &object.Integer{Value: 1}, tok); err != nil {
		t.Fatalf("unexpected error %s", err.ErrorId)
	}
	// A bare name and an explicit local qualifier address the same variable.
	value, err := ctx.Get("local", "x", tok)
	if err != nil {
		t.Fatalf("unexpected error %s", err.ErrorId)
	}
	if value.(*object.Integer).Value != 1 {
		t.Errorf("got %s, want 1", value.Inspect(object.ViewVaraLiteral))
	}
	if _, err := ctx.Get("global", "x", tok); err == nil || err.ErrorId != "sandbox/scope" {
		t.Errorf("expected sandbox/scope, got %v", err)
	}
	if _, err := ctx.Get("local", "missing", tok); err == nil || err.ErrorId != "eval/ident/found" {
		t.Errorf("expected eval/ident/found, got %v", err)
	}
}

func TestSystemScopeProtection(t *testing.T) {
	ctx := sandbox.NewContext()
	err := ctx.Set("system", "deadline_ms", &object.Integer{Value: 100}, tok)
	if err == nil || err.ErrorId != "sandbox/sec/system" {
		t.Fatalf("expected sandbox/sec/system, got %v", err)
	}
	if err.Catchable() {
		t.Error("a security violation must not be catchable")
	}
	ctx.Privileged = true
	if err := ctx.Set("system", "deadline_ms", &object.Integer{Value: 100}, tok); err != nil {
		t.Errorf("privileged write failed: %s", err.ErrorId)
	}
}

func TestChildSharing(t *testing.T) {
	parent := sandbox.NewContext()
	parent.Set("local", "a", &object.Integer{Value: 1}, tok)
	parent.Set("private", "b", &object.Integer{Value: 2}, tok)
	child := parent.Child()
	if child.Id == parent.Id {
		t.Error("child must have its own id")
	}
	if _, err := child.Get("local", "a", tok); err == nil {
		t.Error("child must not see the parent's locals")
	}
	if _, err := child.Get("private", "b", tok); err != nil {
		t.Errorf("child must share the private scope, got %s", err.ErrorId)
	}
	// Writes through the child land in the shared scope.
	child.Set("private", "c", &object.Integer{Value: 3}, tok)
	if _, err := parent.Get("private", "c", tok); err != nil {
		t.Errorf("shared write not visible to parent, got %s", err.ErrorId)
	}
}

func TestSanitize(t *testing.T) {
	ctx := sandbox.NewContext()
	ctx.Privileged = true
	ctx.Set("local", "plain", &object.String{Value: "hello"}, tok)
	ctx.Set("local", "api_key", &object.String{Value: "hunter2"}, tok)
	ctx.Set("public", "password", &object.String{Value: "hunter2"}, tok)
	ctx.Set("public", "session", &object.String{Value: "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxIn0.dGVzdA"}, tok)
	ctx.Set("private", "seed", &object.Integer{Value: 42}, tok)
	ctx.Set("system", "deadline_ms", &object.Integer{Value: 100}, tok)

	clean := ctx.Sanitize()
	if clean.Id != ctx.Id {
		t.Error("sanitizing must preserve the execution id")
	}
	if value, _ := clean.Get("local", "plain", tok); value.(*object.String).Value != "hello" {
		t.Error("plain values must survive sanitization")
	}
	masked := []struct{ scope, name string }{
		{"local", "api_key"}, {"public", "password"}, {"public", "session"},
	}
	for _, m := range masked {
		scope, name := m.scope, m.name
		value, err := clean.Get(scope, name, tok)
		if err != nil {
			t.Fatalf("%s.%s: unexpected error %s", scope, name, err.ErrorId)
		}
		if value.(*object.String).Value != "********" {
			t.Errorf("%s.%s: got %q, want it masked", scope, name, value.(*object.String).Value)
		}
	}
	if _, err := clean.Get("private", "seed", tok); err == nil {
		t.Error("private scope must be dropped by sanitization")
	}
	if _, err := clean.Get("system", "deadline_ms", tok); err == nil {
		t.Error("system scope must be dropped by sanitization")
	}
	// Sanitizing twice changes nothing.
	again := clean.Sanitize()
	if value, _ := again.Get("local", "api_key", tok); value.(*object.String).Value != "********" {
		t.Error("sanitization must be idempotent")
	}
}

// A sanitized context is a copy, not a view: mutating a container taken
// from it must not reach the original.
func TestSanitizeCopiesContainers(t *testing.T) {
	ctx := sandbox.NewContext()
	key := &object.String{Value: "a"}
	m := object.NewMap()
	m.Pairs[key.HashKey()] = object.MapPair{Key: key, Value: &object.Integer{Value: 1}}
	ctx.Set("public", "m", m, tok)
	set := object.NewSet()
	set.Add(&object.Integer{Value: 1})
	ctx.Set("public", "s", set, tok)

	clean := ctx.Sanitize()
	cleanMap, _ := clean.Get("public", "m", tok)
	cleanMap.(*object.Map).Pairs[key.HashKey()] = object.MapPair{Key: key, Value: &object.Integer{Value: 99}}
	cleanSet, _ := clean.Get("public", "s", tok)
	cleanSet.(*object.Set).Add(&object.Integer{Value: 2})

	original, _ := ctx.Get("public", "m", tok)
	if pair := original.(*object.Map).Pairs[key.HashKey()]; pair.Value.(*object.Integer).Value != 1 {
		t.Errorf("mutating the sanitized map reached the original: got %s, want 1",
			pair.Value.Inspect(object.ViewVaraLiteral))
	}
	originalSet, _ := ctx.Get("public", "s", tok)
	if originalSet.(*object.Set).Contains(&object.Integer{Value: 2}) {
		t.Error("mutating the sanitized set reached the original")
	}
}

// Maps inside maps are copied all the way down.
func TestSanitizeCopiesNestedContainers(t *testing.T) {
	ctx := sandbox.NewContext()
	key := &object.String{Value: "inner"}
	inner := object.NewMap()
	inner.Pairs[key.HashKey()] = object.MapPair{Key: key, Value: &object.Integer{Value: 1}}
	outer := object.NewMap()
	outer.Pairs[key.HashKey()] = object.MapPair{Key: key, Value: inner}
	ctx.Set("public", "m", outer, tok)

	clean := ctx.Sanitize()
	cleanOuter, _ := clean.Get("public", "m", tok)
	cleanInner := cleanOuter.(*object.Map).Pairs[key.HashKey()].Value.(*object.Map)
	cleanInner.Pairs[key.HashKey()] = object.MapPair{Key: key, Value: &object.Integer{Value: 99}}

	if pair := inner.Pairs[key.HashKey()]; pair.Value.(*object.Integer).Value != 1 {
		t.Errorf("mutating a nested sanitized map reached the original: got %s, want 1",
			pair.Value.Inspect(object.ViewVaraLiteral))
	}
}
