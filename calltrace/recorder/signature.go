package recorder

import (
	"fmt"
)

// Param describes one declared parameter of an instrumented function.
type Param struct {
	Name       string
	Default    any
	HasDefault bool
}

// P declares a required parameter.
func P(name string) Param {
	return Param{Name: name}
}

// PDefault declares an optional parameter with a default value.
func PDefault(name string, def any) Param {
	return Param{Name: name, Default: def, HasDefault: true}
}

// Signature is the declared parameter list of an instrumented function.
// Go offers no runtime access to parameter names, so signatures are declared
// explicitly; binding against one keys every logged argument by its
// parameter name, which is what makes name-based masking work for
// positionally-passed secrets.
type Signature struct {
	Name   string
	Params []Param
}

// NewSignature declares a function signature for instrumentation.
func NewSignature(name string, params ...Param) Signature {
	return Signature{Name: name, Params: params}
}

// bind maps positional arguments onto parameter names, filling defaults for
// unsupplied optional parameters.
func (sig Signature) bind(args []any) (map[string]any, error) {
	if len(args) > len(sig.Params) {
		return nil, fmt.Errorf("%s takes %d parameter(s), got %d argument(s)",
			sig.Name, len(sig.Params), len(args))
	}

	bound := make(map[string]any, len(sig.Params))

	for i, p := range sig.Params {
		if i < len(args) {
			bound[p.Name] = args[i]
			continue
		}

		if !p.HasDefault {
			return nil, fmt.Errorf("%s: missing argument for parameter %q", sig.Name, p.Name)
		}

		bound[p.Name] = p.Default
	}

	return bound, nil
}
