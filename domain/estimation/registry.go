package estimation

import (
	"fmt"
	"math"
	"strings"

	"qaebench/domain/core"
)

// Curve is one labelled error curve. Bounds and Stds are optional and, when
// present, have one value per x.
type Curve struct {
	Label  string    `json:"label"`
	X      []float64 `json:"x"`
	Errors []float64 `json:"errors"`
	Bounds []float64 `json:"bounds,omitempty"`
	Stds   []float64 `json:"stds,omitempty"`
}

// Validate checks label, lengths and x positivity.
func (c Curve) Validate() error {
	if strings.TrimSpace(c.Label) == "" {
		return core.NewConfigurationError("label", "cannot be empty")
	}
	if len(c.Errors) != len(c.X) {
		return core.NewLengthMismatchError(c.Label+".errors", len(c.Errors), len(c.X))
	}
	if c.Bounds != nil && len(c.Bounds) != len(c.X) {
		return core.NewLengthMismatchError(c.Label+".bounds", len(c.Bounds), len(c.X))
	}
	if c.Stds != nil && len(c.Stds) != len(c.X) {
		return core.NewLengthMismatchError(c.Label+".stds", len(c.Stds), len(c.X))
	}
	for i, x := range c.X {
		if !(x > 0) || math.IsInf(x, 0) {
			return core.NewInvalidSampleError(i, fmt.Sprintf("%s: x must be finite and > 0", c.Label))
		}
	}
	return nil
}

// HasStds reports whether the curve carries standard deviations.
func (c Curve) HasStds() bool { return c.Stds != nil }

// Clone returns a deep copy.
func (c Curve) Clone() Curve {
	return Curve{
		Label:  c.Label,
		X:      cloneFloats(c.X),
		Errors: cloneFloats(c.Errors),
		Bounds: cloneFloats(c.Bounds),
		Stds:   cloneFloats(c.Stds),
	}
}

func cloneFloats(v []float64) []float64 {
	if v == nil {
		return nil
	}
	out := make([]float64, len(v))
	copy(out, v)
	return out
}

// Registry is an insertion-ordered, immutable set of labelled curves. Add
// and Join return new registries and never modify their inputs. The zero
// value is an empty registry.
type Registry struct {
	order  []string
	curves map[string]Curve
}

// NewRegistry returns an empty registry.
func NewRegistry() Registry {
	return Registry{}
}

// Add returns a registry with a new curve appended. stds may be nil.
func (r Registry) Add(label string, x, errs, stds []float64) (Registry, error) {
	return r.AddCurve(Curve{Label: label, X: x, Errors: errs, Stds: stds})
}

// AddCurve returns a registry with c appended. The curve is copied.
func (r Registry) AddCurve(c Curve) (Registry, error) {
	if err := c.Validate(); err != nil {
		return r, err
	}
	if r.Contains(c.Label) {
		return r, core.NewDuplicateLabelError(c.Label)
	}

	next := Registry{
		order:  make([]string, len(r.order), len(r.order)+1),
		curves: make(map[string]Curve, len(r.curves)+1),
	}
	copy(next.order, r.order)
	for k, v := range r.curves {
		next.curves[k] = v
	}
	next.order = append(next.order, c.Label)
	next.curves[c.Label] = c.Clone()
	return next, nil
}

// Get returns copies of the x, error and std sequences stored under label.
func (r Registry) Get(label string) (x, errs, stds []float64, err error) {
	c, err := r.Curve(label)
	if err != nil {
		return nil, nil, nil, err
	}
	return c.X, c.Errors, c.Stds, nil
}

// Curve returns a copy of the curve stored under label.
func (r Registry) Curve(label string) (Curve, error) {
	c, ok := r.curves[label]
	if !ok {
		return Curve{}, core.NewLabelNotFoundError(label)
	}
	return c.Clone(), nil
}

func (r Registry) Contains(label string) bool {
	_, ok := r.curves[label]
	return ok
}

// Labels returns labels in insertion order.
func (r Registry) Labels() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Curves returns copies of all curves in insertion order.
func (r Registry) Curves() []Curve {
	out := make([]Curve, len(r.order))
	for i, label := range r.order {
		out[i] = r.curves[label].Clone()
	}
	return out
}

func (r Registry) Len() int { return len(r.order) }

// Join merges registries in argument order. Any label present in more than
// one input is an error.
func Join(regs ...Registry) (Registry, error) {
	out := NewRegistry()
	for _, reg := range regs {
		for _, label := range reg.order {
			var err error
			out, err = out.AddCurve(reg.curves[label])
			if err != nil {
				return Registry{}, err
			}
		}
	}
	return out, nil
}
