package pattern

import (
	"fmt"
	"strings"
)

// Factory builds a pattern sized for one strip.
type Factory func(ledCount int) (Pattern, error)

// Registry is an explicit name-to-factory mapping. It is built once by the
// composition root and passed by reference to whatever needs lookup; there
// is no ambient global registration.
type Registry struct {
	names     []string
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under name.
func (r *Registry) Register(name string, f Factory) error {
	if name == "" {
		return fmt.Errorf("pattern: registry name required")
	}
	if f == nil {
		return fmt.Errorf("pattern: factory for %q is nil", name)
	}
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("pattern: %q already registered", name)
	}
	r.names = append(r.names, name)
	r.factories[name] = f
	return nil
}

// New constructs the named pattern for a strip of ledCount pixels.
func (r *Registry) New(name string, ledCount int) (Pattern, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("pattern: unknown pattern %q, available: %s",
			name, strings.Join(r.names, ", "))
	}
	return f(ledCount)
}

// Names lists registered pattern names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Builtin returns the registry of all shipped patterns.
func Builtin() *Registry {
	r := NewRegistry()

	register := func(name string, f Factory) {
		if err := r.Register(name, f); err != nil {
			// Names are compile-time constants below; a collision is a bug.
			panic(err)
		}
	}

	register("rainbow_wave", func(n int) (Pattern, error) { return NewRainbowWave(n, DefaultFPS) })
	register("rainbow_cycle", func(n int) (Pattern, error) { return NewRainbowCycle(n, DefaultFPS) })
	register("solid", func(n int) (Pattern, error) { return NewSolid(n, DefaultFPS) })
	register("breathing", func(n int) (Pattern, error) { return NewBreathing(n, DefaultFPS) })
	register("wisps", func(n int) (Pattern, error) { return NewWisps(n, DefaultFPS, nil) })
	register("test", func(n int) (Pattern, error) { return NewTestSequence(n, DefaultFPS) })

	return r
}
