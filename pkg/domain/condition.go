package domain

import "fmt"

// CompareFunc is the comparison applied by a Condition.
type CompareFunc uint8

const (
	CompareGT CompareFunc = iota
	CompareGE
	CompareLT
	CompareLE
	CompareEQ
)

var compareNames = [...]string{
	CompareGT: "GT",
	CompareGE: "GE",
	CompareLT: "LT",
	CompareLE: "LE",
	CompareEQ: "EQ",
}

func (c CompareFunc) String() string {
	if int(c) < len(compareNames) {
		return compareNames[c]
	}
	return fmt.Sprintf("CompareFunc(%d)", int(c))
}

// ParseCompareFunc maps GT, GE, LT, LE or EQ to a CompareFunc.
func ParseCompareFunc(s string) (CompareFunc, error) {
	for i, name := range compareNames {
		if name == s {
			return CompareFunc(i), nil
		}
	}
	return 0, fmt.Errorf("unknown comparison %q", s)
}

// Condition compares one parameter against a constant.
type Condition struct {
	Parameter int         `json:"parameter"`
	Compare   CompareFunc `json:"compare"`
	Value     float32     `json:"value"`

	// Unbound keeps the authored name of a parameter that did not resolve.
	// Such a condition reads the parameter as zero.
	Unbound string `json:"unbound,omitempty"`
}

// Evaluate reports whether the condition holds. A parameter index outside
// params reads as zero.
func (c Condition) Evaluate(params []float32) bool {
	var v float32
	if c.Parameter >= 0 && c.Parameter < len(params) {
		v = params[c.Parameter]
	}

	switch c.Compare {
	case CompareGT:
		return v > c.Value
	case CompareGE:
		return v >= c.Value
	case CompareLT:
		return v < c.Value
	case CompareLE:
		return v <= c.Value
	case CompareEQ:
		return v == c.Value
	default:
		return false
	}
}
