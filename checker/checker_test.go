package checker_test

import (
	"testing"

	"github.com/vara-lang/vara/checker"
	"github.com/vara-lang/vara/parser"
)

func check(t *testing.T, source string) string {
	t.Helper()
	program, errors := parser.Parse("test", source)
	if len(errors) > 0 {
		t.Fatalf("source %q: parse error %s", source, errors[0].ErrorId)
	}
	typeErrors := checker.Check(program)
	if len(typeErrors) == 0 {
		return ""
	}
	return typeErrors[0].ErrorId
}

func TestWellTypedPrograms(t *testing.T) {
	sources := []string{
		"x = 1\ny = x + 2\n",
		"x = 1\nx = 2.5\n",
		"s = \"a\" + \"b\"\n",
		"xs = [1, 2] + [3]\n",
		"if 1 < 2:\n    x = 1\n",
		"b = true\nwhile b:\n    b = false\n",
		"def f(n int):\n    return n + 1\nf(3)\n",
		"for i in [1, 2, 3]:\n    print(i)\n",
		"for ch in \"abc\":\n    print(ch)\n",
		"n = len([1, 2])\nm = n + 1\n",
		"x = private.counter\n",
		"try:\n    x = 1\nexcept RuntimeError as e:\n    print(e)\n",
	}
	for _, source := range sources {
		if got := check(t, source); got != "" {
			t.Errorf("source %q: unexpected type error %s", source, got)
		}
	}
}

func TestTypeErrors(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"x = 1\nx = \"moo\"\n", "type/assign"},
		{"x = 2.5\nx = true\n", "type/assign"},
		{"if 42:\n    pass\n", "type/guard"},
		{"while \"yes\":\n    pass\n", "type/guard"},
		{"x = 1 + \"s\"\n", "type/operator"},
		{"x = -\"s\"\n", "type/operator"},
		{"x = true < false\n", "type/operator"},
		{"x = 1 and true\n", "type/operator"},
		{"y = x + 1\n", "type/unbound"},
		{"for i in 42:\n    pass\n", "type/operator"},
		{"x = true[0]\n", "type/operator"},
	}
	for _, test := range tests {
		if got := check(t, test.source); got != test.want {
			t.Errorf("source %q: got %q, want %q", test.source, got, test.want)
		}
	}
}

// Widening an int variable with a float keeps later int assignments legal.
func TestNumericPromotion(t *testing.T) {
	if got := check(t, "x = 1\nx = 2.5\nx = 3\n"); got != "" {
		t.Errorf("unexpected type error %s", got)
	}
}

// The scope a program runs against is flat, so a name first bound inside
// a branch or a loop body is visible to the code after the block.
func TestBranchBindings(t *testing.T) {
	sources := []string{
		"x = 10\nif x > 5:\n    y = \"big\"\nelse:\n    y = \"small\"\nz = y\n",
		"if true:\n    y = 1\nelse:\n    y = 2\nz = y + 1\n",
		"b = true\nwhile b:\n    n = 1\n    b = false\nm = n\n",
		"for i in [1, 2]:\n    last = i\nprint(last)\n",
		"if true:\n    y = 1\nz = y\n",
		"try:\n    x = 1\nexcept RuntimeError:\n    x = 2\nz = x\n",
	}
	for _, source := range sources {
		if got := check(t, source); got != "" {
			t.Errorf("source %q: unexpected type error %s", source, got)
		}
	}
	// A name every branch of an if/else binds keeps its type.
	if got := check(t, "if true:\n    y = \"a\"\nelse:\n    y = \"b\"\nz = y + 1\n"); got != "type/operator" {
		t.Errorf("got %q, want type/operator", got)
	}
	// One bound only in some branches may be unbound afterwards, so its
	// merged type is any and later uses pass unflagged.
	if got := check(t, "if true:\n    y = \"a\"\nz = y + 1\n"); got != "" {
		t.Errorf("unexpected type error %s", got)
	}
}

// Ints and floats mix in either direction; anything else is a contradiction.
func TestAssignmentDirections(t *testing.T) {
	if got := check(t, "x = 2.5\nx = 1\n"); got != "" {
		t.Errorf("unexpected type error %s", got)
	}
	if got := check(t, "x = 2.5\nx = \"s\"\n"); got != "type/assign" {
		t.Errorf("got %q, want type/assign", got)
	}
}
