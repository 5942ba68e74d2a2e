package object

import (
	"fmt"
	"strings"

	"github.com/vara-lang/vara/text"
	"github.com/vara-lang/vara/token"
)

// A map from error identifiers to functions that supply the corresponding
// error messages and explanations.
//
// Errors are in alphabetical order of their identifiers. The major
// categories are core, db, eval, lex, mod, parse, reason, reg, relex, sandbox,
// and type. Two otherwise identical errors thrown in different places in
// the Go code must be given different identifiers, if only by suffixing
// /a, /b etc.
//
// The identifier prefix also determines which exception kind an error
// presents to the language's try/except construct; see Kind below.

type ErrorCreator struct {
	Message     func(tok token.Token, args ...any) string
	Explanation func(tok token.Token, args ...any) string
}

type Errors []*Error

func (errs Errors) String() string {
	result := ""
	for _, e := range errs {
		result = result + text.BULLET + e.Inspect(ViewStdOut) + "\n"
	}
	return result
}

// The exception kinds of the taxonomy. Scripts match on these names.
const (
	PARSE_ERROR        = "ParseError"
	TYPE_ERROR         = "TypeError"
	FUNCTION_NOT_FOUND = "FunctionNotFound"
	RESOLUTION_ERROR   = "ResolutionError"
	ARGUMENT_ERROR     = "ArgumentError"
	SECURITY_VIOLATION = "SecurityViolation"
	RUNTIME_ERROR      = "RuntimeError"
	TIMEOUT_ERROR      = "TimeoutError"
)

// KnownKind says whether a name is one of the kinds of the taxonomy,
// which is what a raise statement may raise and an except clause match.
func KnownKind(name string) bool {
	switch name {
	case PARSE_ERROR, TYPE_ERROR, FUNCTION_NOT_FOUND, RESOLUTION_ERROR,
		ARGUMENT_ERROR, SECURITY_VIOLATION, RUNTIME_ERROR, TIMEOUT_ERROR:
		return true
	}
	return false
}

// KindOf classifies an error identifier into the exception taxonomy.
func KindOf(errorId string) string {
	switch {
	case strings.HasPrefix(errorId, "lex/"),
		strings.HasPrefix(errorId, "relex/"),
		strings.HasPrefix(errorId, "parse/"):
		return PARSE_ERROR
	case strings.HasPrefix(errorId, "type/"):
		return TYPE_ERROR
	case strings.HasPrefix(errorId, "reg/found"):
		return FUNCTION_NOT_FOUND
	case strings.HasPrefix(errorId, "reg/args"):
		return ARGUMENT_ERROR
	case strings.HasPrefix(errorId, "reg/sec/"), strings.HasPrefix(errorId, "sandbox/sec/"):
		return SECURITY_VIOLATION
	case strings.HasPrefix(errorId, "reg/timeout"):
		return TIMEOUT_ERROR
	}
	return RUNTIME_ERROR
}

// GetKind returns the exception kind of an error: the explicit kind for
// errors raised by a raise statement, the derived kind for everything else.
func (e *Error) GetKind() string {
	if e.Kind != "" {
		return e.Kind
	}
	return KindOf(e.ErrorId)
}

// Error makes *Error satisfy the Go error interface, so that host
// functions can return one directly and have it pass through unwrapped.
func (e *Error) Error() string { return e.Message }

// Catchable says whether the language's own try/except may recover from
// this error. Security violations always terminate the offending call.
func (e *Error) Catchable() bool {
	return e.GetKind() != SECURITY_VIOLATION
}

var ErrorCreatorMap = map[string]ErrorCreator{

	"core/conv": {
		Message: func(tok token.Token, args ...any) string {
			return "can't make a " + text.Emph(args[1].(string)) + " out of " + args[0].(string)
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "The conversion functions only accept values with a sensible reading in the target type."
		},
	},

	"db/driver": {
		Message: func(tok token.Token, args ...any) string {
			return "unknown SQL driver " + text.Emph(args[0].(string))
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "The database module only knows the drivers listed by 'db.drivers()'."
		},
	},

	"db/open": {
		Message: func(tok token.Token, args ...any) string {
			return "can't open database: " + args[0].(string)
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "The main body of the error message was produced by the database driver."
		},
	},

	"db/query": {
		Message: func(tok token.Token, args ...any) string {
			return "query failed: " + args[0].(string)
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "The main body of the error message was produced by the database driver."
		},
	},

	"eval/break/loop": {
		Message: func(tok token.Token, args ...any) string {
			return "'break' outside of a loop"
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "A 'break' statement only means something inside a 'while' or 'for' block."
		},
	},

	"eval/cond/bool": {
		Message: func(tok token.Token, args ...any) string {
			return "condition of type " + text.Emph(args[0].(string)) + " where a bool is required"
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "The guard of an 'if' or 'elif' clause must evaluate to 'true' or 'false'; " +
				"Vara doesn't coerce other types to booleans."
		},
	},

	"eval/continue/loop": {
		Message: func(tok token.Token, args ...any) string {
			return "'continue' outside of a loop"
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "A 'continue' statement only means something inside a 'while' or 'for' block."
		},
	},

	"eval/div/zero": {
		Message: func(tok token.Token, args ...any) string {
			return "division by zero"
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "The result of dividing by zero is undefined, so Vara throws this error when you ask for it."
		},
	},

	"eval/fstring": {
		Message: func(tok token.Token, args ...any) string {
			return "can't interpolate a value of type " + text.Emph(args[0].(string))
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "An expression inside an f-string must produce a value with a string form."
		},
	},

	"eval/hash": {
		Message: func(tok token.Token, args ...any) string {
			return "objects of type " + text.Emph(args[0].(string)) + " can't be used as map keys or set members"
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "Only values of type 'int', 'float', 'string' and 'bool' are hashable."
		},
	},

	"eval/ident/found": {
		Message: func(tok token.Token, args ...any) string {
			return "undefined variable " + text.Emph(args[0].(string))
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "Nothing with this name has been assigned in the scope you're reading from."
		},
	},

	"eval/import": {
		Message: func(tok token.Token, args ...any) string {
			return "can't import " + text.Emph(args[0].(string)) + ": " + args[1].(string)
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "The module loader could not supply this module; the rest of the message says why."
		},
	},

	"eval/index/key": {
		Message: func(tok token.Token, args ...any) string {
			return "map has no key " + args[0].(string)
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "You can only read keys that have been put into the map."
		},
	},

	"eval/index/range": {
		Message: func(tok token.Token, args ...any) string {
			return fmt.Sprintf("index %v out of range", args[0])
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "Lists are indexed from 0 to one less than their length."
		},
	},

	"eval/index/type": {
		Message: func(tok token.Token, args ...any) string {
			return "can't index a value of type " + text.Emph(args[0].(string))
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "Only lists, maps and strings can be indexed."
		},
	},

	"eval/infix/type": {
		Message: func(tok token.Token, args ...any) string {
			return "operator " + text.Emph(args[0].(string)) + " can't be applied to " +
				text.Emph(args[1].(string)) + " and " + text.Emph(args[2].(string))
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "The operands of a binary operator must be of compatible types."
		},
	},

	"eval/iter": {
		Message: func(tok token.Token, args ...any) string {
			return "can't iterate over a value of type " + text.Emph(args[0].(string))
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "A 'for' loop can run over a list, a map, a set, or a string."
		},
	},

	"eval/oops": {
		Message: func(tok token.Token, args ...any) string {
			return "this error should never be thrown; if you are reading this, please report it as a bug"
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "The evaluator was handed a node it has no case for, which the AST validation " +
				"pass should have made impossible."
		},
	},

	"eval/prefix/type": {
		Message: func(tok token.Token, args ...any) string {
			return "operator " + text.Emph(args[0].(string)) + " can't be applied to " + text.Emph(args[1].(string))
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "'-' applies to numbers and 'not' applies to booleans."
		},
	},

	"eval/return/top": {
		Message: func(tok token.Token, args ...any) string {
			return "'return' outside of a function"
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "A 'return' statement only means something inside the body of a 'def'."
		},
	},

	"lex/fstring/brace": {
		Message: func(tok token.Token, args ...any) string {
			return "unmatched '}' in f-string"
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "A literal brace in an f-string is written '{{' or '}}'."
		},
	},

	"lex/fstring/unterm": {
		Message: func(tok token.Token, args ...any) string {
			return "unterminated interpolation in f-string"
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "An expression opened with '{' inside an f-string must be closed with '}' before the closing quote."
		},
	},

	"lex/ill": {
		Message: func(tok token.Token, args ...any) string {
			return "illegal character " + text.Emph(fmt.Sprintf("%c", args[0].(rune)))
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "This character can't begin any Vara token."
		},
	},

	"lex/num": {
		Message: func(tok token.Token, args ...any) string {
			return "can't parse " + text.Emph(args[0].(string)) + " as a number"
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "Numbers are either integers like '42' or floats like '4.2'."
		},
	},

	"lex/quote": {
		Message: func(tok token.Token, args ...any) string {
			return "string unterminated by end of line"
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "A string literal must be closed with '\"' before the end of the line it starts on."
		},
	},

	"lex/wsp": {
		Message: func(tok token.Token, args ...any) string {
			return "inconsistent indentation (" + args[0].(string) + ")"
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "Each line of a block must be indented by the same whitespace as its siblings; " +
				"a dedent must return to an indentation level already on the stack."
		},
	},

	"mod/cycle": {
		Message: func(tok token.Token, args ...any) string {
			return "import cycle detected: " + args[0].(string)
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "A module may not, directly or indirectly, import itself."
		},
	},

	"mod/found": {
		Message: func(tok token.Token, args ...any) string {
			return "no module named " + text.Emph(args[0].(string))
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "The module loader has no module registered under this name."
		},
	},

	"mod/run": {
		Message: func(tok token.Token, args ...any) string {
			return "error while loading module " + text.Emph(args[0].(string)) + ": " + args[1].(string)
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "The module's own top-level code failed; the rest of the message says how."
		},
	},

	"parse/assign/target": {
		Message: func(tok token.Token, args ...any) string {
			return "can't assign to " + text.DescribeTok(tok)
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "The left-hand side of '=' must be a variable, optionally qualified by a scope, " +
				"or an index expression."
		},
	},

	"parse/colon": {
		Message: func(tok token.Token, args ...any) string {
			return "expected ':' to open a block, found " + text.DescribeTok(tok)
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "The header of an 'if', 'while', 'for', 'def', 'try' or 'except' must end in a colon."
		},
	},

	"parse/expect": {
		Message: func(tok token.Token, args ...any) string {
			return "expected " + text.Emph(args[0].(string)) + ", found " + text.DescribeTok(tok)
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "The parser knows what has to come next at this point and this isn't it."
		},
	},

	"parse/expected": {
		Message: func(tok token.Token, args ...any) string {
			return "unexpected occurrence of " + text.DescribeTok(tok)
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "This token can't appear at this point in an expression."
		},
	},

	"parse/indent": {
		Message: func(tok token.Token, args ...any) string {
			return "expected an indented block"
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "A line ending in ':' must be followed by at least one more-indented line forming the block body."
		},
	},

	"parse/kw/order": {
		Message: func(tok token.Token, args ...any) string {
			return "positional argument after keyword argument"
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "In a call, all positional arguments must come before any 'name=value' arguments."
		},
	},

	"parse/prefix": {
		Message: func(tok token.Token, args ...any) string {
			return "can't parse " + text.DescribeTok(tok) + " as the start of an expression"
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "An expression can begin with a literal, an identifier, a prefix operator, or an opening bracket."
		},
	},

	"parse/raise/kind": {
		Message: func(tok token.Token, args ...any) string {
			return "expected an exception kind after 'raise'"
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "A raise statement has the form 'raise Kind' or 'raise Kind expression'."
		},
	},

	"parse/sig": {
		Message: func(tok token.Token, args ...any) string {
			return "malformed parameter list: unexpected " + text.DescribeTok(tok)
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "The parameters of a 'def' are a comma-separated list of names, each optionally followed by a type."
		},
	},

	"parse/node": {
		Message: func(tok token.Token, args ...any) string {
			return "internal error: " + args[0].(string)
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "The validation pass found a node in the parsed tree that isn't a recognized AST variant. " +
				"This is a bug in the parser, not in your script."
		},
	},

	"reason/provider": {
		Message: func(tok token.Token, args ...any) string {
			return "reasoning failed: " + args[0].(string)
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "The external reasoning resource returned an error. These failures are " +
				"recoverable: you can catch this with 'except RuntimeError'."
		},
	},

	"reg/args/bind": {
		Message: func(tok token.Token, args ...any) string {
			return "can't bind arguments to " + text.Emph(args[0].(string)) + args[1].(string)
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "The arguments supplied don't fit the function's declared parameters, even after " +
				"re-attempting the binding by parameter name."
		},
	},

	"reg/args/kw": {
		Message: func(tok token.Token, args ...any) string {
			return text.Emph(args[0].(string)) + " has no parameter named " + text.Emph(args[1].(string))
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "Keyword arguments must name a declared parameter of the function."
		},
	},

	"reg/args/repeat": {
		Message: func(tok token.Token, args ...any) string {
			return "parameter " + text.Emph(args[1].(string)) + " of " + text.Emph(args[0].(string)) + " bound twice"
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "A parameter may be supplied positionally or by keyword, but not both."
		},
	},

	"reg/args/type": {
		Message: func(tok token.Token, args ...any) string {
			return "parameter " + text.Emph(args[1].(string)) + " of " + text.Emph(args[0].(string)) +
				" requires a value of type " + text.Emph(args[2].(string)) + ", not " + text.Emph(args[3].(string))
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "The declared parameter types of a function are checked when it is called."
		},
	},

	"reg/exists": {
		Message: func(tok token.Token, args ...any) string {
			return "a function named " + text.Emph(args[0].(string)) + " is already registered"
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "Registering over an existing entry requires the explicit overwrite flag, to " +
				"prevent accidental clobbering."
		},
	},

	"reg/found": {
		Message: func(tok token.Token, args ...any) string {
			msg := "can't find a function named " + text.Emph(args[0].(string))
			if len(args) > 1 && args[1].(string) != "" {
				msg = msg + "; did you mean " + text.Emph(args[1].(string)) + "?"
			}
			return msg
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "Nothing under this name was found in the local scope, the current namespace, or the " +
				"global registry."
		},
	},

	"reg/host": {
		Message: func(tok token.Token, args ...any) string {
			return text.Emph(args[0].(string)) + " failed: " + args[1].(string)
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "A host-language function raised an error, which Vara has wrapped for you."
		},
	},

	"reg/sec/core": {
		Message: func(tok token.Token, args ...any) string {
			return "can't overwrite core function " + text.Emph(args[0].(string))
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "Core functions are part of the runtime's trusted surface and can only be replaced " +
				"by a privileged registrar, whatever flags are passed."
		},
	},

	"reg/sec/private": {
		Message: func(tok token.Token, args ...any) string {
			return "function " + text.Emph(args[0].(string)) + " is private to namespace " + text.Emph(args[1].(string))
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "A function without public visibility can only be called from inside its own namespace. " +
				"This error can't be caught from inside the sandbox."
		},
	},

	"reg/timeout": {
		Message: func(tok token.Token, args ...any) string {
			return "call to " + text.Emph(args[0].(string)) + " exceeded its deadline"
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "Calls into host functions and external resources are subject to the deadline in " +
				"'system.deadline_ms'. The call was cancelled without touching the shared scopes."
		},
	},

	"relex/indent": {
		Message: func(tok token.Token, args ...any) string {
			return "detached indent"
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "The indentation marking the beginning of a code block should follow a line ending in a colon."
		},
	},

	"sandbox/scope": {
		Message: func(tok token.Token, args ...any) string {
			return "no scope named " + text.Emph(args[0].(string))
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "The scopes of the sandbox are 'local', 'private', 'public' and 'system'."
		},
	},

	"sandbox/sec/system": {
		Message: func(tok token.Token, args ...any) string {
			return "write to 'system' scope from unprivileged code"
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "Only the runtime itself may write to the 'system' scope. This error can't be " +
				"caught from inside the sandbox."
		},
	},

	"type/assign": {
		Message: func(tok token.Token, args ...any) string {
			return "can't assign a value of type " + text.Emph(args[1].(string)) + " to " +
				text.Emph(args[0].(string)) + " of type " + text.Emph(args[2].(string))
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "Once a variable has a type, later assignments must keep it, except that an 'int' " +
				"may be widened to a 'float'."
		},
	},

	"type/guard": {
		Message: func(tok token.Token, args ...any) string {
			return "guard of type " + text.Emph(args[0].(string)) + " where 'bool' is required"
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "The condition of an 'if', 'elif' or 'while' must be of type 'bool'."
		},
	},

	"type/operator": {
		Message: func(tok token.Token, args ...any) string {
			msg := "operator " + text.Emph(args[0].(string)) + " can't be applied to " +
				text.Emph(args[1].(string))
			if len(args) > 2 {
				msg = msg + " and " + text.Emph(args[2].(string))
			}
			return msg
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "The type checker found operands whose types the operator doesn't accept."
		},
	},

	"type/unbound": {
		Message: func(tok token.Token, args ...any) string {
			return "variable " + text.Emph(args[0].(string)) + " is used before it is assigned"
		},
		Explanation: func(tok token.Token, args ...any) string {
			return "Every identifier must be assigned in an enclosing scope before it is read."
		},
	},
}

func CreateErr(ident string, tok token.Token, args ...any) *Error {
	creator, ok := ErrorCreatorMap[ident]
	errorToReturn := &Error{ErrorId: ident, Token: tok, Info: args, Trace: []token.Token{}}
	if ok {
		errorToReturn.Message = creator.Message(tok, args...)
	} else {
		errorToReturn.Message = "oopsie, can't find errorId " + ident
	}
	return errorToReturn
}

func Throw(ident string, errs Errors, tok token.Token, args ...any) Errors {
	return append(errs, CreateErr(ident, tok, args...))
}

// Explain returns the long-form explanation of an error for the REPL's
// "why" facility, or "" if there isn't one.
func Explain(e *Error) string {
	creator, ok := ErrorCreatorMap[e.ErrorId]
	if !ok || creator.Explanation == nil {
		return ""
	}
	return creator.Explanation(e.Token, e.Info...)
}
