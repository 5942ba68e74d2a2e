package signature

// A NamedSignature describes the declared parameter shape of any callable:
// functions defined in Vara, host functions, and core builtins all carry one
// so that the registry can bind arguments the same way for each kind.

type NameTypePair = struct {
	VarName string
	VarType string
}

type NamedSignature []NameTypePair

func (ns NamedSignature) String() (result string) {
	for _, v := range ns {
		if result != "" {
			result = result + ", "
		}
		result = result + v.VarName
		if v.VarType != "any" && v.VarType != "" {
			result = result + " " + v.VarType
		}
	}
	return "(" + result + ")"
}

func (ns NamedSignature) Names() []string {
	result := make([]string, 0, len(ns))
	for _, v := range ns {
		result = append(result, v.VarName)
	}
	return result
}

func (ns NamedSignature) Contains(name string) bool {
	for _, v := range ns {
		if v.VarName == name {
			return true
		}
	}
	return false
}
