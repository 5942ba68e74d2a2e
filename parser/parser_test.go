package parser_test

import (
	"testing"

	"github.com/vara-lang/vara/parser"
)

type testItem struct {
	input string
	want  string
}

func parseToString(s string) string {
	node, errors := parser.ParseLine("test", s)
	if len(errors) > 0 {
		return "error: " + errors[0].ErrorId
	}
	return node.String()
}

func firstErrorId(s string) string {
	_, errors := parser.Parse("test", s)
	if len(errors) == 0 {
		return "unexpected successful parsing"
	}
	return errors[0].ErrorId
}

func runTest(t *testing.T, tests []testItem, f func(string) string) {
	t.Helper()
	for _, test := range tests {
		got := f(test.input)
		if got != test.want {
			t.Errorf("input %q: got %q, want %q", test.input, got, test.want)
		}
	}
}

func TestExpressions(t *testing.T) {
	tests := []testItem{
		{`2 + 2`, `(2 + 2)`},
		{`2 + 3 * 4`, `(2 + (3 * 4))`},
		{`2 * 3 + 4`, `((2 * 3) + 4)`},
		{`-5`, `(-5)`},
		{`-5 + 3`, `((-5) + 3)`},
		{`a + b + c`, `((a + b) + c)`},
		{`a + b / c`, `(a + (b / c))`},
		{`-a * b`, `((-a) * b)`},
		{`true or true and true`, `(true or (true and true))`},
		{`true and true or true`, `((true and true) or true)`},
		{`not x and not y`, `((not x) and (not y))`},
		{`1 < 2 == 3 < 4`, `((1 < 2) == (3 < 4))`},
		{`1 != 2 and 3 <= 4`, `((1 != 2) and (3 <= 4))`},
		{`2 + 2 == 4 and true`, `(((2 + 2) == 4) and true)`},
		{`1 * 2 > 3 % 4`, `((1 * 2) > (3 % 4))`},
		{`(2 + 3) * 4`, `((2 + 3) * 4)`},
		{`a + b[c]`, `(a + (b[c]))`},
		{`xs[0][1]`, `((xs[0])[1])`},
		{`0.42`, `0.42`},
		{`nil`, `nil`},
		{`"moo"`, `"moo"`},
	}
	runTest(t, tests, parseToString)
}

func TestScopedIdentifiers(t *testing.T) {
	tests := []testItem{
		{`x`, `x`},
		{`local.x`, `local.x`},
		{`private.counter`, `private.counter`},
		{`public.greeting + "!"`, `(public.greeting + "!")`},
		{`system.deadline_ms`, `system.deadline_ms`},
		{`db.version`, `db.version`},
	}
	runTest(t, tests, parseToString)
}

func TestCollectionLiterals(t *testing.T) {
	tests := []testItem{
		{`[]`, `[]`},
		{`[1, 2, 3]`, `[1, 2, 3]`},
		{`[1 + 2, x]`, `[(1 + 2), x]`},
		{`{}`, `{}`},
		{`{"a": 1, "b": 2}`, `{"a": 1, "b": 2}`},
		{`{1, 2, 3}`, `{1, 2, 3}`},
	}
	runTest(t, tests, parseToString)
}

func TestCalls(t *testing.T) {
	tests := []testItem{
		{`len(xs)`, `len(xs)`},
		{`f()`, `f()`},
		{`f(1, 2)`, `f(1, 2)`},
		{`f(x, limit=10)`, `f(x, limit=10)`},
		{`math.sqrt(2.0)`, `math.sqrt(2.0)`},
		{`f(g(x))`, `f(g(x))`},
	}
	runTest(t, tests, parseToString)
}

func TestStatements(t *testing.T) {
	tests := []testItem{
		{`x = 2 + 2`, `x = (2 + 2)`},
		{`private.x = 1`, `private.x = 1`},
		{`xs[0] = 42`, `(xs[0]) = 42`},
		{`return`, `return`},
		{`return x + 1`, `return (x + 1)`},
		{`pass`, `pass`},
		{`raise RuntimeError "oops"`, `raise RuntimeError "oops"`},
		{`import "math"`, `import "math"`},
		{`import "math" as m`, `import "math" as m`},
	}
	runTest(t, tests, parseToString)
}

func TestBlocks(t *testing.T) {
	tests := []testItem{
		{"if x > 5:\n    y = 1\n",
			"if (x > 5):\n    y = 1"},
		{"if x:\n    y = 1\nelif z:\n    y = 2\nelse:\n    y = 3\n",
			"if x:\n    y = 1\nelif z:\n    y = 2\nelse:\n    y = 3"},
		{"while x < 10:\n    x = x + 1\n",
			"while (x < 10):\n    x = (x + 1)"},
		{"for i in range(3):\n    total = total + i\n",
			"for i in range(3):\n    total = (total + i)"},
		{"def add(a, b):\n    return a + b\n",
			"def add(a, b):\n    return (a + b)"},
		{"def greet(name string):\n    return name\n",
			"def greet(name string):\n    return name"},
		{"try:\n    risky()\nexcept RuntimeError as e:\n    pass\n",
			"try:\n    risky()\nexcept RuntimeError as e:\n    pass"},
		{"if x: y = 1\n", "if x:\n    y = 1"},
	}
	runTest(t, tests, parseToString)
}

// Pretty-printing a parsed program and reparsing the result must produce
// the same pretty-printed text.
func TestRoundTrip(t *testing.T) {
	sources := []string{
		"x = 1\ny = x + 2\n",
		"def fib(n):\n    if n < 2:\n        return n\n    return fib(n - 1) + fib(n - 2)\n",
		"for i in [1, 2, 3]:\n    if i == 2:\n        continue\n    print(i)\n",
		"try:\n    raise RuntimeError \"bad\"\nexcept RuntimeError, TypeError as e:\n    print(e)\n",
		"while true:\n    break\n",
		"greeting = f\"hello {name}!\"\n",
	}
	for _, source := range sources {
		first, errors := parser.Parse("test", source)
		if len(errors) > 0 {
			t.Fatalf("source %q: unexpected error %s", source, errors[0].ErrorId)
		}
		printed := first.String()
		second, errors := parser.Parse("test", printed)
		if len(errors) > 0 {
			t.Fatalf("reparse of %q: unexpected error %s", printed, errors[0].ErrorId)
		}
		if second.String() != printed {
			t.Errorf("round trip of %q: got %q, want %q", source, second.String(), printed)
		}
	}
}

func TestFStrings(t *testing.T) {
	tests := []testItem{
		{`f"hello {name}"`, `f"hello {name}"`},
		{`f"{a} and {b + 1}"`, `f"{a} and {(b + 1)}"`},
		{`f"literal {{braces}}"`, `f"literal {{braces}}"`},
	}
	runTest(t, tests, parseToString)
}

func TestParserErrors(t *testing.T) {
	tests := []testItem{
		{`2 +`, `parse/prefix`},
		{`1 + )`, `parse/prefix`},
		{`(1`, `parse/expect`},
		{`2 + 2 = 4`, `parse/assign/target`},
		{`f(limit=1, 2)`, `parse/kw/order`},
		{"if x\n    y = 1\n", `parse/colon`},
		{"if x:\nz = 2\n", `parse/indent`},
		{"try:\n    pass\n", `parse/expect`},
		{`raise "not a kind"`, `parse/raise/kind`},
		{`import math`, `parse/expect`},
		{`f"{unclosed"`, `lex/fstring/unterm`},
		{`f"bad } brace"`, `lex/fstring/brace`},
	}
	runTest(t, tests, firstErrorId)
}
