package stm32h7

import (
	"fmt"

	"omibyte.io/h7boot/constant"
	"omibyte.io/h7boot/mmio"
	"omibyte.io/h7boot/peripheral"
	"omibyte.io/h7boot/runtime/arm/cortexm"
)

const MCU = "stm32h743xx"

// IRQs is the number of external interrupts of the STM32H743.
const IRQs = 150

type Config struct {
	Clock  ClockConfig
	Layout cortexm.Layout

	RAMStart uintptr
	RAMSize  uintptr

	// VectorTable is the address of the firmware vector table. SystemInit
	// points VTOR at the start of flash, Main moves it back here.
	VectorTable uintptr

	// USBSerial enables the boot-to-bootloader request.
	USBSerial bool
}

// Platform is one STM32H7 chip: its bring-up sequence and the bookkeeping of
// which peripherals have an owner.
type Platform struct {
	Bus       mmio.Bus
	Core      cortexm.Core
	Config    Config
	Clocks    *Clocks
	Constants *constant.Registry

	scheduler func()
	shutdown  func(reason string)
	claimed   map[uintptr]struct{}
}

// New checks cfg and returns the platform. scheduler is entered once the
// clocks run and must not return. shutdown receives the reason of a fatal
// configuration error.
func New(bus mmio.Bus, core cortexm.Core, cfg Config, scheduler func(), shutdown func(reason string)) (*Platform, error) {
	if err := cfg.Clock.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Layout.Validate(); err != nil {
		return nil, err
	}
	if cfg.RAMSize < BootFlagReserve {
		return nil, fmt.Errorf("%w: RAM of %d bytes cannot hold the boot flag", peripheral.ErrInvalidConfig, cfg.RAMSize)
	}
	if flag := BootFlagAddress(cfg.RAMStart, cfg.RAMSize); cfg.Layout.StackEnd > flag {
		return nil, fmt.Errorf("%w: stack ends at %#x above the boot flag at %#x", cortexm.ErrInvalidLayout, cfg.Layout.StackEnd, flag)
	}

	p := &Platform{
		Bus:       bus,
		Core:      core,
		Config:    cfg,
		Clocks:    NewClocks(bus, cfg.Clock.Frequency),
		Constants: constant.NewRegistry(),
		scheduler: scheduler,
		shutdown:  shutdown,
		claimed:   map[uintptr]struct{}{},
	}

	if err := p.Constants.String("MCU", MCU); err != nil {
		return nil, err
	}
	if err := p.Constants.Fixed("CLOCK_FREQ", constant.FixedFromInt(int64(cfg.Clock.Frequency))); err != nil {
		return nil, err
	}
	if cfg.Clock.Source == HSE {
		if err := p.Constants.String("RESERVE_PINS_crystal", "PH0,PH1"); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Boot returns the reset sequence that enters Main.
func (p *Platform) Boot() *cortexm.Boot {
	return &cortexm.Boot{
		Bus:    p.Bus,
		Core:   p.Core,
		Layout: p.Config.Layout,
		Main:   p.Main,
	}
}

// Vectors returns the vector table of the firmware.
func (p *Platform) Vectors() *cortexm.Vectors {
	return p.Boot().Vectors(IRQs)
}

// BootFlagAddress returns the location of the boot-to-bootloader flag.
func (p *Platform) BootFlagAddress() uintptr {
	return BootFlagAddress(p.Config.RAMStart, p.Config.RAMSize)
}

// Main is the board entry point called by the reset handler.
func (p *Platform) Main() {
	flag := p.BootFlagAddress()
	if p.Config.USBSerial && readBootFlag(p.Bus, flag) {
		clearBootFlag(p.Bus, flag)

		// The ROM bootloader sets up its own clocks
		sp := p.Bus.Load32(SystemMemoryBase)
		pc := p.Bus.Load32(SystemMemoryBase + 4)
		p.Core.JumpAddress(uintptr(sp), uintptr(pc))
		return
	}

	// Run SystemInit and then restore VTOR
	SystemInit(p.Bus)
	cortexm.NewSCS(p.Bus).VTOR.Set(uint32(p.Config.VectorTable))

	if err := SetupClocks(p.Bus, p.Config.Clock); err != nil {
		p.Shutdown(err.Error())
		return
	}

	p.scheduler()

	// The scheduler should not return
	for {
		p.Core.Halt()
	}
}

// RequestBootloader makes the next boot enter the ROM bootloader and resets
// the processor.
func (p *Platform) RequestBootloader() {
	p.Core.DisableInterrupts()
	writeBootFlag(p.Bus, p.BootFlagAddress())
	p.Core.SystemReset()
}

// Shutdown reports a fatal error.
func (p *Platform) Shutdown(reason string) {
	if p.shutdown != nil {
		p.shutdown(reason)
	}
}

// Claim takes ownership of the peripheral at base. Each peripheral can be
// claimed once.
func (p *Platform) Claim(base uintptr) error {
	if _, ok := p.claimed[base]; ok {
		return fmt.Errorf("%w: %#x", peripheral.ErrAlreadyClaimed, base)
	}
	p.claimed[base] = struct{}{}
	return nil
}

// Timebase returns the conversion between time and timer ticks.
func (p *Platform) Timebase() cortexm.Timebase {
	return cortexm.Timebase{Frequency: p.Config.Clock.Frequency}
}
