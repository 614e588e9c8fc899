package catalog

import "fmt"

// #region function
// Function is one of the 8 cognitive functions used as scoring dimensions.
// The numeric order is the canonical order and is used everywhere a stable
// iteration order matters.
type Function int

const (
	Ti Function = iota
	Te
	Fi
	Fe
	Ni
	Ne
	Si
	Se
)

// NumFunctions is the size of the function space.
const NumFunctions = 8

var functionNames = [NumFunctions]string{"Ti", "Te", "Fi", "Fe", "Ni", "Ne", "Si", "Se"}

// Functions returns all functions in canonical order.
func Functions() []Function {
	return []Function{Ti, Te, Fi, Fe, Ni, Ne, Si, Se}
}

func (f Function) String() string {
	if f < 0 || int(f) >= NumFunctions {
		return fmt.Sprintf("Function(%d)", int(f))
	}
	return functionNames[f]
}

// Valid reports whether f is one of the 8 functions.
func (f Function) Valid() bool {
	return f >= 0 && int(f) < NumFunctions
}

// ParseFunction maps a two-letter code to a Function.
func ParseFunction(s string) (Function, error) {
	for i, name := range functionNames {
		if name == s {
			return Function(i), nil
		}
	}
	return 0, fmt.Errorf("unknown function %q", s)
}

// MarshalText encodes the function as its two-letter code.
func (f Function) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("invalid function %d", int(f))
	}
	return []byte(f.String()), nil
}

// UnmarshalText decodes a two-letter function code.
func (f *Function) UnmarshalText(b []byte) error {
	parsed, err := ParseFunction(string(b))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// #endregion function
