package evaluator_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/vara-lang/vara/initializer"
	"github.com/vara-lang/vara/object"
	"github.com/vara-lang/vara/registry"
	"github.com/vara-lang/vara/sandbox"
	"github.com/vara-lang/vara/settings"
	"github.com/vara-lang/vara/signature"
	"github.com/vara-lang/vara/token"
)

func newService(t *testing.T, out *bytes.Buffer) *initializer.Service {
	t.Helper()
	conf := settings.Default()
	conf.TypeCheck = false
	if out == nil {
		out = &bytes.Buffer{}
	}
	s, err := initializer.NewService(conf, out, nil)
	if err != nil {
		t.Fatalf("service setup failed: %s", err.Message)
	}
	return s
}

// run executes a program and renders the result: the literal form of the
// final value, or "error: id" for a runtime failure.
func run(t *testing.T, s *initializer.Service, source string) string {
	t.Helper()
	result, errs := s.Run("test", source)
	if len(errs) > 0 {
		return "error: " + errs[0].ErrorId
	}
	if err, ok := result.(*object.Error); ok {
		return "error: " + err.ErrorId
	}
	return result.Inspect(object.ViewVaraLiteral)
}

func TestExpressions(t *testing.T) {
	tests := []struct{ source, want string }{
		{`2 + 2`, `4`},
		{`2 + 3 * 4`, `14`},
		{`10 / 3`, `3`},
		{`10 % 3`, `1`},
		{`2.5 + 1`, `3.5`},
		{`1 / 2.0`, `0.5`},
		{`-5 + 3`, `-2`},
		{`"foo" + "bar"`, `"foobar"`},
		{`[1, 2] + [3]`, `[1, 2, 3]`},
		{`1 < 2`, `true`},
		{`2 <= 2`, `true`},
		{`"a" < "b"`, `true`},
		{`1 == 1.0`, `false`},
		{`[1, 2] == [1, 2]`, `true`},
		{`nil == nil`, `true`},
		{`not true`, `false`},
		{`true and false`, `false`},
		{`false or true`, `true`},
		{`[10, 20, 30][1]`, `20`},
		{`"abc"[2]`, `"c"`},
		{`{"a": 1}["a"]`, `1`},
		{`1 / 0`, `error: eval/div/zero`},
		{`1 + "s"`, `error: eval/infix/type`},
		{`-"s"`, `error: eval/prefix/type`},
		{`[1][5]`, `error: eval/index/range`},
		{`{"a": 1}["b"]`, `error: eval/index/key`},
		{`42[0]`, `error: eval/index/type`},
		{`nope`, `error: eval/ident/found`},
	}
	for _, test := range tests {
		s := newService(t, nil)
		if got := run(t, s, test.source); got != test.want {
			t.Errorf("source %q: got %q, want %q", test.source, got, test.want)
		}
	}
}

func TestShortCircuit(t *testing.T) {
	s := newService(t, nil)
	// The right operand would fail if evaluated.
	if got := run(t, s, `false and nope`); got != `false` {
		t.Errorf("'and' did not short-circuit: %s", got)
	}
	if got := run(t, s, `true or nope`); got != `true` {
		t.Errorf("'or' did not short-circuit: %s", got)
	}
}

func TestControlFlow(t *testing.T) {
	tests := []struct{ source, want string }{
		{"x = 1\nif x == 1:\n    x = 2\nx\n", `2`},
		{"x = 1\nif x == 2:\n    x = 10\nelif x == 1:\n    x = 20\nelse:\n    x = 30\nx\n", `20`},
		{"total = 0\nn = 0\nwhile n < 5:\n    n = n + 1\n    total = total + n\ntotal\n", `15`},
		{"n = 0\nwhile true:\n    n = n + 1\n    if n == 3:\n        break\nn\n", `3`},
		{"total = 0\nfor i in range(10):\n    if i % 2 == 0:\n        continue\n    total = total + i\ntotal\n", `25`},
		{"out = \"\"\nfor ch in \"abc\":\n    out = out + ch\nout\n", `"abc"`},
		{"total = 0\nfor x in {1, 2, 3}:\n    total = total + x\ntotal\n", `6`},
		{"if 42:\n    pass\n", `error: eval/cond/bool`},
		{"for i in 42:\n    pass\n", `error: eval/iter`},
		{"break\n", `error: eval/break/loop`},
		{"continue\n", `error: eval/continue/loop`},
		{"return 1\n", `error: eval/return/top`},
	}
	for _, test := range tests {
		s := newService(t, nil)
		if got := run(t, s, test.source); got != test.want {
			t.Errorf("source %q: got %q, want %q", test.source, got, test.want)
		}
	}
}

func TestFunctions(t *testing.T) {
	tests := []struct{ source, want string }{
		{"def add(a, b):\n    return a + b\nadd(2, 3)\n", `5`},
		{"def add(a, b):\n    return a + b\nadd(2, b=3)\n", `5`},
		{"def fib(n):\n    if n < 2:\n        return n\n    return fib(n - 1) + fib(n - 2)\nfib(10)\n", `55`},
		{"def noop():\n    pass\nnoop()\n", `nil`},
		{"def f():\n    return\nf()\n", `nil`},
		{"def f(a):\n    return a\nf()\n", `error: reg/args/bind`},
		{"def f(a):\n    return a\nf(1, 2)\n", `error: reg/args/bind`},
		{"def f(a):\n    return a\nf(b=1)\n", `error: reg/args/kw`},
		{"def f(a):\n    return a\nf(1, a=1)\n", `error: reg/args/repeat`},
		{"missing(1)\n", `error: reg/found`},
	}
	for _, test := range tests {
		s := newService(t, nil)
		if got := run(t, s, test.source); got != test.want {
			t.Errorf("source %q: got %q, want %q", test.source, got, test.want)
		}
	}
}

// A function body must not see the caller's locals, and what it assigns
// must not leak back out.
func TestFunctionScopeIsolation(t *testing.T) {
	s := newService(t, nil)
	if got := run(t, s, "secret = 42\ndef peek():\n    return secret\npeek()\n"); got != "error: eval/ident/found" {
		t.Errorf("function saw the caller's locals: %s", got)
	}
	source := "x = 1\ndef scribble():\n    x = 99\n    return x\nscribble()\nx\n"
	if got := run(t, s, source); got != "1" {
		t.Errorf("function assignment leaked out: %s", got)
	}
}

func TestSharedScopes(t *testing.T) {
	s := newService(t, nil)
	// Local state dies with the run; private state survives.
	if got := run(t, s, "x = 1\nprivate.counter = 10\n"); strings.HasPrefix(got, "error") {
		t.Fatal(got)
	}
	if got := run(t, s, "x\n"); got != "error: eval/ident/found" {
		t.Errorf("local state leaked between runs: %s", got)
	}
	if got := run(t, s, "private.counter = private.counter + 1\nprivate.counter\n"); got != "11" {
		t.Errorf("private state did not persist: %s", got)
	}
	// Functions can reach the shared scopes without seeing caller locals.
	source := "def bump():\n    private.counter = private.counter + 1\n    return private.counter\nbump()\n"
	if got := run(t, s, source); got != "12" {
		t.Errorf("function write to private scope failed: %s", got)
	}
	// System scope is readable but not writable from a program.
	if got := run(t, s, "system.deadline_ms\n"); got != "5000" {
		t.Errorf("system read failed: %s", got)
	}
	result := run(t, s, "system.deadline_ms = 1\n")
	if result != "error: sandbox/sec/system" {
		t.Errorf("expected sandbox/sec/system, got %s", result)
	}
	if got := run(t, s, "x = global.y\n"); got != "error: sandbox/scope" {
		t.Errorf("expected sandbox/scope, got %s", got)
	}
}

func TestTryExcept(t *testing.T) {
	tests := []struct{ source, want string }{
		{"try:\n    x = 1 / 0\nexcept RuntimeError:\n    x = -1\nx\n", `-1`},
		{"try:\n    x = 1 / 0\nexcept:\n    x = -1\nx\n", `-1`},
		{"try:\n    x = 1 / 0\nexcept TimeoutError:\n    x = -1\nx\n", `error: eval/div/zero`},
		{"try:\n    missing()\nexcept FunctionNotFound:\n    x = -1\nx\n", `-1`},
		{"try:\n    missing()\nexcept ResolutionError:\n    x = -1\nx\n", `-1`},
		{"try:\n    raise TimeoutError \"too slow\"\nexcept TimeoutError as e:\n    x = e[\"message\"]\nx\n", `"too slow"`},
		{"try:\n    raise RuntimeError\nexcept RuntimeError, TimeoutError as e:\n    x = e[\"type\"]\nx\n", `"RuntimeError"`},
		{"raise RuntimeError \"oops\"\n", `error: user/raise`},
	}
	for _, test := range tests {
		s := newService(t, nil)
		if got := run(t, s, test.source); got != test.want {
			t.Errorf("source %q: got %q, want %q", test.source, got, test.want)
		}
	}
}

// A security violation must sail through every handler.
func TestSecurityViolationUncatchable(t *testing.T) {
	s := newService(t, nil)
	source := "try:\n    system.deadline_ms = 1\nexcept:\n    x = \"caught\"\n"
	if got := run(t, s, source); got != "error: sandbox/sec/system" {
		t.Errorf("a security violation was caught: %s", got)
	}
}

func TestExceptionValue(t *testing.T) {
	s := newService(t, nil)
	source := "try:\n    x = 1 / 0\nexcept RuntimeError as e:\n    pass\ne[\"type\"] + \" \" + e[\"message\"]\n"
	got := run(t, s, source)
	if !strings.Contains(got, "RuntimeError") || !strings.Contains(got, "division by zero") {
		t.Errorf("exception value malformed: %s", got)
	}
	traceSource := "def inner():\n    return 1 / 0\ndef outer():\n    return inner()\ntry:\n    x = outer()\nexcept as e:\n    pass\nlen(e[\"trace\"]) > 1\n"
	if got := run(t, s, traceSource); got != "true" {
		t.Errorf("exception trace did not record the call chain: %s", got)
	}
}

func TestFStrings(t *testing.T) {
	tests := []struct{ source, want string }{
		{"name = \"moo\"\nf\"hello {name}!\"\n", `"hello moo!"`},
		{"f\"{1 + 2} and {2 * 2}\"\n", `"3 and 4"`},
		{"f\"{{literal}}\"\n", `"{literal}"`},
		{"f\"{nope}\"\n", `error: eval/ident/found`},
	}
	for _, test := range tests {
		s := newService(t, nil)
		if got := run(t, s, test.source); got != test.want {
			t.Errorf("source %q: got %q, want %q", test.source, got, test.want)
		}
	}
}

func TestIndexAssignment(t *testing.T) {
	tests := []struct{ source, want string }{
		{"xs = [1, 2, 3]\nxs[1] = 20\nxs\n", `[1, 20, 3]`},
		{"m = {\"a\": 1}\nm[\"b\"] = 2\nm[\"b\"]\n", `2`},
		{"xs = [1]\nxs[5] = 0\n", `error: eval/index/range`},
	}
	for _, test := range tests {
		s := newService(t, nil)
		if got := run(t, s, test.source); got != test.want {
			t.Errorf("source %q: got %q, want %q", test.source, got, test.want)
		}
	}
}

// Lists are persistent values: an alias made before an update must not
// see it.
func TestListPersistence(t *testing.T) {
	s := newService(t, nil)
	source := "xs = [1, 2, 3]\nys = xs\nxs[0] = 99\nys[0]\n"
	if got := run(t, s, source); got != "1" {
		t.Errorf("list update leaked through an alias: %s", got)
	}
}

func TestBuiltins(t *testing.T) {
	tests := []struct{ source, want string }{
		{`len("hello")`, `5`},
		{`len([1, 2, 3])`, `3`},
		{`str(42)`, `"42"`},
		{`int("17")`, `17`},
		{`int(3.9)`, `3`},
		{`float(2)`, `2`},
		{`type(1.5)`, `"float"`},
		{`type(nil)`, `"nil"`},
		{`range(3)`, `[0, 1, 2]`},
		{`append([1], 2)`, `[1, 2]`},
		{`contains([1, 2], 2)`, `true`},
		{`contains("moo", "o")`, `true`},
		{`keys({"b": 2, "a": 1})`, `["a", "b"]`},
		{`values({"b": 2, "a": 1})`, `[1, 2]`},
		{`int("moo")`, `error: core/conv`},
		{`len(42)`, `error: reg/args/type`},
	}
	for _, test := range tests {
		s := newService(t, nil)
		if got := run(t, s, test.source); got != test.want {
			t.Errorf("source %q: got %q, want %q", test.source, got, test.want)
		}
	}
}

func TestPrint(t *testing.T) {
	out := &bytes.Buffer{}
	s := newService(t, out)
	run(t, s, "print(\"hello\")\nprint(42)\n")
	if out.String() != "hello\n42\n" {
		t.Errorf("got %q", out.String())
	}
}

// Core functions can't be shadowed by a user definition of the same name
// in a fresh run, but a local def shadows the registry within its run.
func TestLocalShadowing(t *testing.T) {
	s := newService(t, nil)
	source := "def len(x):\n    return 999\nlen(\"ab\")\n"
	if got := run(t, s, source); got != "999" {
		t.Errorf("local definition did not shadow the registry: %s", got)
	}
	if got := run(t, s, `len("ab")`); got != "2" {
		t.Errorf("shadowing leaked into the next run: %s", got)
	}
}

func TestModules(t *testing.T) {
	s := newService(t, nil)
	s.AddModule("math2", map[string]object.Object{
		"pi": &object.Float{Value: 3.14159},
	})
	s.AddSourceModule("greet", "def hello(name):\n    return \"hello \" + name\nversion = 2\n")

	tests := []struct{ source, want string }{
		{"import \"math2\"\nmath2.pi > 3.0\n", `true`},
		{"import \"math2\" as m\nm.pi > 3.0\n", `true`},
		{"import \"greet\"\ngreet.hello(\"vara\")\n", `"hello vara"`},
		{"import \"greet\" as g\ng.version\n", `2`},
		{"import \"nowhere\"\n", `error: mod/found`},
		{"import \"math2\"\nmath2.tau\n", `error: eval/ident/found`},
	}
	for _, test := range tests {
		if got := run(t, s, test.source); got != test.want {
			t.Errorf("source %q: got %q, want %q", test.source, got, test.want)
		}
	}
}

func TestModuleCycle(t *testing.T) {
	s := newService(t, nil)
	s.AddSourceModule("a", "import \"b\"\n")
	s.AddSourceModule("b", "import \"a\"\n")
	got := run(t, s, "import \"a\"\n")
	// The cycle error comes back wrapped in the mod/run of the outer import.
	if got != "error: mod/run" {
		t.Errorf("expected mod/run for an import cycle, got %s", got)
	}
}

func TestReason(t *testing.T) {
	s := newService(t, nil)
	// The default provider echoes, deterministically.
	if got := run(t, s, `reason("what is 2 + 2?")`); got != `"what is 2 + 2?"` {
		t.Errorf("echo provider broke: %s", got)
	}
	// The options are keyword parameters with defaults.
	if got := run(t, s, `reason("riddle", temperature=0.7, max_tokens=100)`); got != `"riddle"` {
		t.Errorf("options broke the call: %s", got)
	}
}

func TestHostTimeout(t *testing.T) {
	s := newService(t, nil)
	if err := s.SetSysVar("deadline_ms", &object.Integer{Value: 20}); err != nil {
		t.Fatal(err.Message)
	}
	sleepy := &registry.Entry{
		Name:     "sleepy",
		Kind:     registry.HOST,
		Metadata: registry.Metadata{Public: true, Sig: signature.NamedSignature{}},
		Fn: func(gctx context.Context, env *sandbox.Context, args []object.Object) (object.Object, error) {
			select {
			case <-time.After(time.Second):
				return object.NULL, nil
			case <-gctx.Done():
				return nil, gctx.Err()
			}
		},
	}
	if err := s.Reg.Register(sleepy, false, true, token.Token{Source: "test"}); err != nil {
		t.Fatal(err.Message)
	}
	if got := run(t, s, "sleepy()\n"); got != "error: reg/timeout" {
		t.Errorf("expected reg/timeout, got %s", got)
	}
	// A timeout is catchable.
	source := "try:\n    sleepy()\nexcept TimeoutError:\n    x = \"caught\"\nx\n"
	if got := run(t, s, source); got != `"caught"` {
		t.Errorf("timeout not catchable: %s", got)
	}
}

// The same failure must produce the same message every time.
func TestDeterministicErrors(t *testing.T) {
	first := ""
	for i := 0; i < 3; i++ {
		s := newService(t, nil)
		result, _ := s.Run("test", "x = 1 / 0\n")
		err, ok := result.(*object.Error)
		if !ok {
			t.Fatal("expected an error")
		}
		if first == "" {
			first = err.Message
		}
		if err.Message != first {
			t.Fatalf("error message changed between runs: %q vs %q", err.Message, first)
		}
	}
}

// Writing through a map index is a write to the scope holding the map, so
// the system scope's privilege rules apply to it.
func TestIndexAssignmentScopes(t *testing.T) {
	s := newService(t, nil)
	conf := object.NewMap()
	key := &object.String{Value: "mode"}
	conf.Pairs[key.HashKey()] = object.MapPair{Key: key, Value: &object.String{Value: "safe"}}
	s.Ctx.System.Set("conf", conf)
	if got := run(t, s, "system.conf[\"mode\"] = \"unsafe\"\n"); got != "error: sandbox/sec/system" {
		t.Fatalf("got %s, want error: sandbox/sec/system", got)
	}
	after, _ := s.Ctx.System.Get("conf")
	pair := after.(*object.Map).Pairs[key.HashKey()]
	if pair.Value.(*object.String).Value != "safe" {
		t.Errorf("the blocked write still changed the map: got %s", pair.Value.Inspect(object.ViewVaraLiteral))
	}
	// The same statement against an ordinary scope goes through.
	if got := run(t, s, "m = {\"a\": 1}\nm[\"a\"] = 2\nm[\"a\"]\n"); got != "2" {
		t.Errorf("got %s, want 2", got)
	}
	if got := run(t, s, "public.m = {\"a\": 1}\npublic.m[\"b\"] = 9\nlen(public.m)\n"); got != "2" {
		t.Errorf("got %s, want 2", got)
	}
}

// Close float keys must stay distinct map keys.
func TestFloatMapKeys(t *testing.T) {
	s := newService(t, nil)
	if got := run(t, s, "m = {1.5: \"a\", 1.7: \"b\"}\nm[1.5]\n"); got != `"a"` {
		t.Errorf("got %s, want \"a\"", got)
	}
	if got := run(t, s, "m = {1.5: \"a\", 1.7: \"b\"}\nm[1.7]\n"); got != `"b"` {
		t.Errorf("got %s, want \"b\"", got)
	}
	if got := run(t, s, "m = {-1.5: \"neg\"}\nm[-1.5]\n"); got != `"neg"` {
		t.Errorf("got %s, want \"neg\"", got)
	}
}
