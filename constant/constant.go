// Package constant collects the named values the firmware publishes to the
// host: identification strings, reserved pin lists and scale factors.
package constant

import (
	"errors"
	"fmt"
	"strconv"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var ErrConflict = errors.New("constant already declared with a different value")

// Fixed is a decimal fixed-point number with three fractional digits.
type Fixed int64

func FixedFromInt(v int64) Fixed {
	return Fixed(v * 1000)
}

func (f Fixed) String() string {
	sign := ""
	v := int64(f)
	if v < 0 {
		sign = "-"
		v = -v
	}
	whole, frac := v/1000, v%1000
	if frac == 0 {
		return sign + strconv.FormatInt(whole, 10)
	}
	s := fmt.Sprintf("%s%d.%03d", sign, whole, frac)
	for s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	return s
}

type Constant struct {
	Name    string
	Value   string
	Numeric bool
}

func (c Constant) String() string {
	if c.Numeric {
		return c.Name + "=" + c.Value
	}
	return c.Name + "=" + strconv.Quote(c.Value)
}

type Registry struct {
	constants map[string]Constant
}

func NewRegistry() *Registry {
	return &Registry{constants: map[string]Constant{}}
}

// String declares a string constant.
func (r *Registry) String(name, value string) error {
	return r.declare(Constant{Name: name, Value: value})
}

// Fixed declares a numeric constant.
func (r *Registry) Fixed(name string, value Fixed) error {
	return r.declare(Constant{Name: name, Value: value.String(), Numeric: true})
}

func (r *Registry) declare(c Constant) error {
	if existing, ok := r.constants[c.Name]; ok && existing != c {
		return fmt.Errorf("%w: %s", ErrConflict, c.Name)
	}
	r.constants[c.Name] = c
	return nil
}

func (r *Registry) Lookup(name string) (Constant, bool) {
	c, ok := r.constants[name]
	return c, ok
}

// All returns every declared constant ordered by name.
func (r *Registry) All() []Constant {
	names := maps.Keys(r.constants)
	slices.Sort(names)
	result := make([]Constant, len(names))
	for i, name := range names {
		result[i] = r.constants[name]
	}
	return result
}
