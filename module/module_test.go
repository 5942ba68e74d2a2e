package module

import (
	"strings"
	"testing"

	"github.com/vara-lang/vara/object"
	"github.com/vara-lang/vara/token"
)

var testTok = token.Token{Source: "test"}

func TestMapLoader(t *testing.T) {
	ml := NewMapLoader()
	ml.Add("math2", map[string]object.Object{"pi": &object.Float{Value: 3.14159}})

	bindings, err := ml.Load("math2", testTok)
	if err != nil {
		t.Fatal(err.Message)
	}
	if _, ok := bindings["pi"]; !ok {
		t.Error("the loader lost the binding")
	}

	_, err = ml.Load("nowhere", testTok)
	if err == nil || err.ErrorId != "mod/found" {
		t.Errorf("expected mod/found, got %v", err)
	}
}

// A loader that imports itself through the guard, as a module with an
// import statement would.
type selfLoader struct {
	guard *CycleGuard
}

func (sl *selfLoader) Load(name string, tok token.Token) (map[string]object.Object, *object.Error) {
	if name == "a" {
		return sl.guard.Load("b", tok)
	}
	return sl.guard.Load("a", tok)
}

func TestCycleDetection(t *testing.T) {
	sl := &selfLoader{}
	sl.guard = NewCycleGuard(sl)

	_, err := sl.guard.Load("a", testTok)
	if err == nil || err.ErrorId != "mod/cycle" {
		t.Fatalf("expected mod/cycle, got %v", err)
	}
	if !strings.Contains(err.Message, "a -> b -> a") {
		t.Errorf("the chain should name the imports in order: %v", err.Message)
	}

	// The guard unwinds its chain, so a fresh load works afterwards.
	ml := NewMapLoader()
	ml.Add("clean", map[string]object.Object{})
	guard := NewCycleGuard(ml)
	if _, err := guard.Load("clean", testTok); err != nil {
		t.Errorf("unexpected error on a fresh load: %v", err.Message)
	}
}
