package targets

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/inhies/go-bytesize"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"

	"omibyte.io/h7boot/runtime/arm/cortexm"
	"omibyte.io/h7boot/runtime/arm/cortexm/stm32/stm32h7"
)

//go:embed targets.yaml
var rawTargets []byte

var boards Boards

var (
	ErrBoardNotFound = errors.New("board not found")
	ErrInvalidBoard  = errors.New("invalid board profile")
)

func All() Boards {
	return boards
}

type Boards []Board

type Board struct {
	Name      string   `yaml:"name"`
	Chips     []string `yaml:"chips"`
	Clock     Clock    `yaml:"clock"`
	Memory    Memory   `yaml:"memory"`
	USBSerial bool     `yaml:"usbSerial"`
}

type Clock struct {
	Source    string `yaml:"source"`
	Crystal   uint32 `yaml:"crystal"`
	Frequency uint32 `yaml:"frequency"`
}

type Memory struct {
	RAMStart    uintptr           `yaml:"ramStart"`
	RAMSize     bytesize.ByteSize `yaml:"ramSize"`
	FlashStart  uintptr           `yaml:"flashStart"`
	VectorTable uintptr           `yaml:"vectorTable"`
	DataImage   uintptr           `yaml:"dataImage"`
	DataSize    bytesize.ByteSize `yaml:"dataSize"`
	BssSize     bytesize.ByteSize `yaml:"bssSize"`
	StackSize   bytesize.ByteSize `yaml:"stackSize"`
}

func (b Board) ClockConfig() (stm32h7.ClockConfig, error) {
	cfg := stm32h7.ClockConfig{
		RefFrequency: b.Clock.Crystal,
		Frequency:    b.Clock.Frequency,
	}
	switch strings.ToLower(b.Clock.Source) {
	case "hse", "":
		cfg.Source = stm32h7.HSE
	case "hsi":
		cfg.Source = stm32h7.HSI
	default:
		return stm32h7.ClockConfig{}, fmt.Errorf("%w: %s: clock source %q", ErrInvalidBoard, b.Name, b.Clock.Source)
	}
	return cfg, nil
}

// Layout places data and bss at the bottom of RAM and the stack right below
// the boot flag reserve at the top.
func (b Board) Layout() cortexm.Layout {
	m := b.Memory
	ramSize := uintptr(m.RAMSize)
	stackEnd := stm32h7.BootFlagAddress(m.RAMStart, ramSize)
	dataEnd := m.RAMStart + uintptr(m.DataSize)
	bssEnd := dataEnd + uintptr(m.BssSize)
	return cortexm.Layout{
		DataFlash:  m.DataImage,
		DataStart:  m.RAMStart,
		DataEnd:    dataEnd,
		BssStart:   dataEnd,
		BssEnd:     bssEnd,
		StackStart: stackEnd - uintptr(m.StackSize),
		StackEnd:   stackEnd,
	}
}

// Config returns the platform configuration of the board.
func (b Board) Config() (stm32h7.Config, error) {
	clock, err := b.ClockConfig()
	if err != nil {
		return stm32h7.Config{}, err
	}
	if err := clock.Validate(); err != nil {
		return stm32h7.Config{}, fmt.Errorf("%s: %w", b.Name, err)
	}
	if uintptr(b.Memory.RAMSize) < stm32h7.BootFlagReserve+uintptr(b.Memory.StackSize) {
		return stm32h7.Config{}, fmt.Errorf("%w: %s: RAM too small for the stack", ErrInvalidBoard, b.Name)
	}
	return stm32h7.Config{
		Clock:       clock,
		Layout:      b.Layout(),
		RAMStart:    b.Memory.RAMStart,
		RAMSize:     uintptr(b.Memory.RAMSize),
		VectorTable: b.Memory.VectorTable,
		USBSerial:   b.USBSerial,
	}, nil
}

func (b Boards) Find(name string) (Board, error) {
	i := slices.IndexFunc(b, func(board Board) bool {
		return board.Name == strings.ToLower(name)
	})
	if i < 0 {
		return Board{}, fmt.Errorf("%w: %s", ErrBoardNotFound, name)
	}
	return b[i], nil
}

func (b Boards) FindByChip(name string) (Board, error) {
	for _, board := range b {
		if slices.Contains(board.Chips, strings.ToLower(name)) {
			return board, nil
		}
	}
	return Board{}, fmt.Errorf("%w: no board with chip %s", ErrBoardNotFound, name)
}

func (b Boards) Names() []string {
	names := make([]string, len(b))
	for i, board := range b {
		names[i] = board.Name
	}
	slices.Sort(names)
	return names
}

// Parse decodes a list of board profiles.
func Parse(data []byte) (Boards, error) {
	var t struct {
		Elements Boards `yaml:"boards"`
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	for _, board := range t.Elements {
		if board.Name == "" {
			return nil, fmt.Errorf("%w: unnamed board", ErrInvalidBoard)
		}
	}
	return t.Elements, nil
}

func init() {
	var err error
	if boards, err = Parse(rawTargets); err != nil {
		panic(err)
	}
}
