package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/inhies/go-bytesize"

	"omibyte.io/h7boot/peripheral/adc"
	"omibyte.io/h7boot/peripheral/pin"
	"omibyte.io/h7boot/runtime/arm/cortexm/stm32/stm32h7"
	"omibyte.io/h7boot/sim"
	"omibyte.io/h7boot/targets"
)

// maxPolls bounds the number of ADC polls before a sample is abandoned.
const maxPolls = 64

var errNotBooted = errors.New("chip has not booted")

// session is one simulated board and the drivers running on it.
type session struct {
	out io.Writer

	board    targets.Board
	chip     *sim.Chip
	platform *stm32h7.Platform
	gpio     *pin.GPIO
	engine   *adc.Engine
	channels map[pin.Pin]adc.Channel

	boots    int
	last     *sim.Exit
	shutdown string
}

func newSession(board targets.Board, out io.Writer) (*session, error) {
	cfg, err := board.Config()
	if err != nil {
		return nil, err
	}

	s := &session{
		out:      out,
		board:    board,
		chip:     sim.NewH743(),
		channels: map[pin.Pin]adc.Channel{},
	}

	s.platform, err = stm32h7.New(s.chip.Memory, s.chip.Core, cfg, s.schedule, s.fatal)
	if err != nil {
		return nil, err
	}
	s.gpio = pin.NewGPIO(s.chip.Memory, s.platform.Clocks)
	if s.engine, err = adc.New(s.platform, s.gpio); err != nil {
		return nil, err
	}

	glog.V(1).Infof("h7sim: session for %s", board.Name)
	return s, nil
}

func (s *session) schedule() {
	glog.V(1).Info("h7sim: scheduler entered")
}

func (s *session) fatal(reason string) {
	glog.Errorf("h7sim: shutdown: %s", reason)
	s.shutdown = reason
}

// boot runs the reset handler until the core stops.
func (s *session) boot() *sim.Exit {
	s.boots++
	s.last = s.chip.Run(s.platform.Boot().ResetHandler)
	fmt.Fprintf(s.out, "boot %d: %s\n", s.boots, s.last)
	return s.last
}

// reset resets the chip. RAM keeps its contents.
func (s *session) reset() {
	s.chip.Reset()
	s.channels = map[pin.Pin]adc.Channel{}
	s.last = nil
	fmt.Fprintln(s.out, "reset")
}

// requestBootloader runs the bootloader request of the firmware.
func (s *session) requestBootloader() *sim.Exit {
	s.last = s.chip.Run(s.platform.RequestBootloader)
	fmt.Fprintf(s.out, "bootloader requested: %s\n", s.last)
	return s.last
}

func (s *session) booted() error {
	if s.last == nil || s.last.Kind != sim.ExitHalt {
		return errNotBooted
	}
	return nil
}

func (s *session) report() {
	l := s.platform.Config.Layout
	fmt.Fprintf(s.out, "board:     %s (%s)\n", s.board.Name, stm32h7.MCU)
	fmt.Fprintf(s.out, "boots:     %d\n", s.boots)
	fmt.Fprintf(s.out, "pll1:      %s\n", status(s.chip.RCC.PLLLocked(), "locked", "unlocked"))
	fmt.Fprintf(s.out, "sysclk:    %s\n", systemClock(s.chip.RCC.SystemClock()))
	fmt.Fprintf(s.out, "flash:     %d wait states\n", s.chip.RCC.FlashLatency())
	fmt.Fprintf(s.out, "data:      %s at %#x\n", bytesize.New(float64(l.DataSize())), l.DataStart)
	fmt.Fprintf(s.out, "bss:       %s at %#x\n", bytesize.New(float64(l.BssSize())), l.BssStart)
	fmt.Fprintf(s.out, "heap:      %s\n", bytesize.New(float64(l.StackStart-l.BssEnd)))
	fmt.Fprintf(s.out, "stack:     %s below %#x\n", bytesize.New(float64(l.StackSize())), l.StackEnd)
	if sum, err := s.chip.Memory.RegionChecksum(l.DataStart, int(l.DataSize())); err == nil {
		fmt.Fprintf(s.out, "data crc:  %#04x\n", sum)
	}
	if s.shutdown != "" {
		fmt.Fprintf(s.out, "shutdown:  %s\n", status(false, "", s.shutdown))
	}
	for _, c := range s.platform.Constants.All() {
		fmt.Fprintf(s.out, "constant:  %s\n", c)
	}
}

func systemClock(sws uint32) string {
	switch sws {
	case 0:
		return "HSI"
	case 1:
		return "CSI"
	case 2:
		return "HSE"
	case 3:
		return "PLL1"
	}
	return fmt.Sprintf("SWS(%d)", sws)
}

// clocks prints the clock tree of the board.
func (s *session) clocks() error {
	tree, err := stm32h7.NewClockTree(s.platform.Config.Clock)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "source %s\n", s.platform.Config.Clock.Source)
	for _, n := range tree.Nodes() {
		fmt.Fprintf(s.out, "  %-9s %12d Hz", n.Name, n.Frequency)
		if n.Parent != "" {
			fmt.Fprintf(s.out, "  %s * %d / %d", n.Parent, n.Mul, n.Div)
		}
		fmt.Fprintln(s.out)
	}
	return nil
}

// pclock prints the clock gate of a peripheral and enables it if asked to.
func (s *session) pclock(name string, enable bool) error {
	base, err := stm32h7.ParsePeripheral(name)
	if err != nil {
		return err
	}
	clocks := s.platform.Clocks
	if enable {
		clocks.Enable(base)
	}
	gate := stm32h7.Classify(base)
	fmt.Fprintf(s.out, "%#08x %s bit %d (RCC+%#x) %s %d Hz\n",
		base, gate.Domain, gate.Bit, gate.Register,
		status(clocks.IsEnabled(base), "enabled", "disabled"), clocks.Frequency(base))
	return nil
}

// analog sets the level seen by the ADC input of a pin.
func (s *session) analog(name string, value uint16) error {
	p, err := pin.Parse(name)
	if err != nil {
		return err
	}
	inst, ch, ok := adc.Lookup(p)
	if !ok {
		return fmt.Errorf("%s is not an analog input", p)
	}
	s.chip.ADC(inst.Base).SetInput(ch, value)
	return nil
}

// sample converts the analog input of a pin, advancing simulated time while
// the conversion runs.
func (s *session) sample(name string) (uint16, error) {
	if err := s.booted(); err != nil {
		return 0, err
	}
	p, err := pin.Parse(name)
	if err != nil {
		return 0, err
	}
	ch, ok := s.channels[p]
	if !ok {
		if ch, err = s.engine.Setup(p); err != nil {
			return 0, err
		}
		s.channels[p] = ch
	}

	for i := 0; i < maxPolls; i++ {
		value, wait, ok := ch.Poll()
		if ok {
			fmt.Fprintf(s.out, "%s %s/%d = %d (%d polls)\n", p, ch.Instance(), ch.Number(), value, i+1)
			return value, nil
		}
		s.chip.Advance(wait)
	}
	ch.Cancel()
	return 0, fmt.Errorf("%s: no conversion after %d polls", p, maxPolls)
}

// gpio drives or reads a pin. level is nil for a read.
func (s *session) gpioPin(name string, level *bool) (bool, error) {
	p, err := pin.Parse(name)
	if err != nil {
		return false, err
	}
	if level != nil {
		s.gpio.Configure(p, pin.Mode{Function: pin.Output}, pin.PullNone)
		s.gpio.Set(p, *level)
	}
	high := s.gpio.Get(p)
	fmt.Fprintf(s.out, "%s = %d\n", p, boolToInt(high))
	return high, nil
}

// configure applies a packed pin mode the way a host command would. The pin
// is a name or a packed id.
func (s *session) configure(target, packed, pull string) (pin.Mode, error) {
	p, err := pin.Parse(target)
	if err != nil {
		id, perr := strconv.ParseUint(target, 0, 32)
		if perr != nil {
			return pin.Mode{}, err
		}
		if p, err = pin.FromID(uint32(id)); err != nil {
			return pin.Mode{}, err
		}
	}
	v, err := strconv.ParseUint(packed, 0, 32)
	if err != nil {
		return pin.Mode{}, err
	}
	m, err := pin.DecodeMode(uint32(v))
	if err != nil {
		return pin.Mode{}, err
	}
	pl, err := parsePull(pull)
	if err != nil {
		return pin.Mode{}, err
	}

	s.gpio.Configure(p, m, pl)
	got := s.gpio.Mode(p)
	fmt.Fprintf(s.out, "%s (id %d) mode %#x\n", p, p.ID(), got.Pack())
	return got, nil
}

func (s *session) registers() {
	for _, addr := range s.chip.Memory.Registers() {
		fmt.Fprintf(s.out, "%#08x = %#08x\n", addr, s.chip.Memory.Peek(addr))
	}
}

// load programs an Intel HEX image.
func (s *session) load(path string) ([]sim.Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	segments, err := s.chip.Memory.LoadHex(f)
	if err != nil {
		return nil, err
	}
	for _, seg := range segments {
		fmt.Fprintf(s.out, "loaded %s at %#08x crc %#04x\n", bytesize.New(float64(seg.Size)), seg.Address, seg.Checksum)
	}
	return segments, nil
}

// dump writes size bytes at addr as an Intel HEX image.
func (s *session) dump(path string, addr uintptr, size bytesize.ByteSize) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := s.chip.Memory.DumpHex(f, addr, int(size)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

const (
	colorRed   = "\x1b[31m"
	colorGreen = "\x1b[32m"
	colorReset = "\x1b[0m"
)

var useColor = true

func status(ok bool, good, bad string) string {
	text, color := good, colorGreen
	if !ok {
		text, color = bad, colorRed
	}
	if !useColor {
		return text
	}
	return color + text + colorReset
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func parseLevel(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "1", "high", "on":
		return true, nil
	case "0", "low", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid level %q", s)
}

func parsePull(s string) (pin.Pull, error) {
	switch strings.ToLower(s) {
	case "", "none", "0":
		return pin.PullNone, nil
	case "up", "1":
		return pin.PullUp, nil
	case "down", "-1":
		return pin.PullDown, nil
	}
	return pin.PullNone, fmt.Errorf("invalid pull %q", s)
}
