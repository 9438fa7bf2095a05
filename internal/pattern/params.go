package pattern

import (
	"fmt"
	"strings"

	"mushlight/internal/frame"
)

// ParamKind tags the value type of a pattern parameter.
type ParamKind int

const (
	// NumberParam is a scalar parameter.
	NumberParam ParamKind = iota
	// ColorParam is an RGB triple parameter.
	ColorParam
)

// ParamValue is a tagged parameter value: either a number or a color triple.
type ParamValue struct {
	Kind   ParamKind
	Number float64
	Color  frame.RGB
}

// Number wraps a scalar parameter value.
func Number(v float64) ParamValue {
	return ParamValue{Kind: NumberParam, Number: v}
}

// Color wraps a color parameter value.
func Color(c frame.RGB) ParamValue {
	return ParamValue{Kind: ColorParam, Color: c}
}

// Params is an ordered parameter bag. Keys are fixed at declaration time;
// Set rejects unknown names and kind mismatches.
type Params struct {
	names  []string
	values map[string]ParamValue
}

// NewParams builds an empty bag. Patterns declare their defaults with
// Declare in their constructors.
func NewParams() *Params {
	return &Params{values: make(map[string]ParamValue)}
}

// Declare adds a parameter with its default value. Redeclaring a name
// overwrites the default but keeps the original position.
func (p *Params) Declare(name string, value ParamValue) {
	if _, ok := p.values[name]; !ok {
		p.names = append(p.names, name)
	}
	p.values[name] = value
}

// Set updates an existing parameter.
func (p *Params) Set(name string, value ParamValue) error {
	current, ok := p.values[name]
	if !ok {
		return fmt.Errorf("pattern: unknown parameter %q, valid parameters: %s",
			name, strings.Join(p.names, ", "))
	}
	if current.Kind != value.Kind {
		return fmt.Errorf("pattern: parameter %q kind mismatch", name)
	}
	p.values[name] = value
	return nil
}

// Number returns the scalar value of name. Zero if the name is unknown;
// patterns only read names they declared.
func (p *Params) Number(name string) float64 {
	return p.values[name].Number
}

// Color returns the color value of name.
func (p *Params) Color(name string) frame.RGB {
	return p.values[name].Color
}

// Names lists the declared parameter names in declaration order.
func (p *Params) Names() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}
