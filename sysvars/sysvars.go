package sysvars

import (
	"github.com/vara-lang/vara/object"
	"github.com/vara-lang/vara/text"
)

// The variables of the system scope. Each has a default and a validator;
// the validator returns "" for a legal value and the complaint otherwise.
// Only the runtime may write these, but any script may read them.

type sysvar = struct {
	Dflt      object.Object
	Validator func(object.Object) string
}

var Sysvars = map[string]sysvar{
	"view": {
		Dflt: &object.String{Value: "plain"},
		Validator: func(obj object.Object) string {
			switch obj := obj.(type) {
			case *object.String:
				if obj.Value != "vara" && obj.Value != "plain" {
					return "system variable " + text.Emph("view") + " takes values " +
						text.Emph("\"vara\"") + " or " + text.Emph("\"plain\"")
				}
				return ""
			default:
				return "system variable " + text.Emph("view") + " is of type " + text.Emph("string")
			}
		},
	},
	"deadline_ms": {
		Dflt: &object.Integer{Value: 5000},
		Validator: func(obj object.Object) string {
			switch obj := obj.(type) {
			case *object.Integer:
				if obj.Value <= 0 {
					return "system variable " + text.Emph("deadline_ms") + " must be positive"
				}
				return ""
			default:
				return "system variable " + text.Emph("deadline_ms") + " is of type " + text.Emph("int")
			}
		},
	},
	"typecheck": {
		Dflt: object.TRUE,
		Validator: func(obj object.Object) string {
			if _, ok := obj.(*object.Boolean); !ok {
				return "system variable " + text.Emph("typecheck") + " is of type " + text.Emph("bool")
			}
			return ""
		},
	},
	"agent": {
		Dflt: &object.String{Value: ""},
		Validator: func(obj object.Object) string {
			if _, ok := obj.(*object.String); !ok {
				return "system variable " + text.Emph("agent") + " is of type " + text.Emph("string")
			}
			return ""
		},
	},
	"version": {
		Dflt: &object.String{Value: text.VERSION},
		Validator: func(obj object.Object) string {
			if _, ok := obj.(*object.String); !ok {
				return "system variable " + text.Emph("version") + " is of type " + text.Emph("string")
			}
			return ""
		},
	},
}
