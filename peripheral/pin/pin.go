package pin

import (
	"fmt"
	"strconv"

	"omibyte.io/h7boot/peripheral"
)

// Ports is the number of GPIO ports, A through K.
const Ports = 11

// Pin identifies one GPIO line by its port (0 for A) and its index in the port.
type Pin struct {
	Port  uint8
	Index uint8
}

func New(port byte, index uint8) (Pin, error) {
	if port < 'A' || port >= 'A'+Ports {
		return Pin{}, fmt.Errorf("%w: port %q", peripheral.ErrInvalidPinout, port)
	}
	if index > 15 {
		return Pin{}, fmt.Errorf("%w: index %d", peripheral.ErrInvalidPinout, index)
	}
	return Pin{Port: port - 'A', Index: index}, nil
}

// Parse reads a pin name such as "PA3".
func Parse(name string) (Pin, error) {
	if len(name) < 3 || len(name) > 4 || name[0] != 'P' {
		return Pin{}, fmt.Errorf("%w: %q", peripheral.ErrInvalidPinout, name)
	}
	index, err := strconv.ParseUint(name[2:], 10, 8)
	if err != nil {
		return Pin{}, fmt.Errorf("%w: %q", peripheral.ErrInvalidPinout, name)
	}
	return New(name[1], uint8(index))
}

// MustParse is like Parse but panics on an invalid name.
func MustParse(name string) Pin {
	p, err := Parse(name)
	if err != nil {
		panic(err)
	}
	return p
}

// FromID decodes a packed pin id.
func FromID(id uint32) (Pin, error) {
	if id >= Ports*16 {
		return Pin{}, fmt.Errorf("%w: id %d", peripheral.ErrInvalidPinout, id)
	}
	return Pin{Port: uint8(id / 16), Index: uint8(id % 16)}, nil
}

// ID returns the packed id port*16+index.
func (p Pin) ID() uint32 {
	return uint32(p.Port)*16 + uint32(p.Index)
}

func (p Pin) String() string {
	return fmt.Sprintf("P%c%d", 'A'+p.Port, p.Index)
}

type Function uint8

const (
	Input Function = iota
	Output
	Alternate
	Analog
)

// Mode is the electrical configuration of a pin.
type Mode struct {
	Function  Function
	Alternate uint8
	OpenDrain bool
}

// Pack returns the packed form function | alternate<<4 | opendrain<<8.
func (m Mode) Pack() uint32 {
	v := uint32(m.Function&0xF) | uint32(m.Alternate&0xF)<<4
	if m.OpenDrain {
		v |= 1 << 8
	}
	return v
}

func DecodeMode(v uint32) (Mode, error) {
	m := Mode{
		Function:  Function(v & 0xF),
		Alternate: uint8(v>>4) & 0xF,
		OpenDrain: v>>8 != 0,
	}
	if m.Function > Analog {
		return Mode{}, fmt.Errorf("%w: mode %#x", peripheral.ErrInvalidConfig, v)
	}
	return m, nil
}

// AlternateFunction returns the mode that routes the pin to alternate
// function af.
func AlternateFunction(af uint8) Mode {
	return Mode{Function: Alternate, Alternate: af}
}

type Pull int8

const (
	PullNone Pull = 0
	PullUp   Pull = 1
	PullDown Pull = -1
)

// bits returns the PUPDR field value.
func (p Pull) bits() uint32 {
	switch {
	case p > 0:
		return 1
	case p < 0:
		return 2
	}
	return 0
}
