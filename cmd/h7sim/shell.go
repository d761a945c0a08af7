package main

import (
	"fmt"
	"strconv"

	"github.com/abiosoft/ishell"
	"github.com/inhies/go-bytesize"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slices"

	"omibyte.io/h7boot/peripheral/pin"
)

// command is an operation of the interactive shell and of scripts.
type command struct {
	name string
	args string
	help string
	min  int
	run  func(s *session, args []string) error
}

var commands = []command{
	{name: "boot", help: "boot from reset", run: func(s *session, args []string) error {
		s.boot()
		return nil
	}},
	{name: "reset", help: "reset the chip, RAM is kept", run: func(s *session, args []string) error {
		s.reset()
		return nil
	}},
	{name: "bootloader", help: "request the ROM bootloader from the firmware", run: func(s *session, args []string) error {
		s.requestBootloader()
		return nil
	}},
	{name: "report", help: "print the state of the chip", run: func(s *session, args []string) error {
		s.report()
		return nil
	}},
	{name: "clocks", help: "print the clock tree", run: func(s *session, args []string) error {
		return s.clocks()
	}},
	{name: "pclock", args: "PERIPHERAL...", help: "show clock gates", min: 1, run: func(s *session, args []string) error {
		for _, arg := range args {
			if err := s.pclock(arg, false); err != nil {
				return err
			}
		}
		return nil
	}},
	{name: "enable", args: "PERIPHERAL...", help: "enable clock gates", min: 1, run: func(s *session, args []string) error {
		for _, arg := range args {
			if err := s.pclock(arg, true); err != nil {
				return err
			}
		}
		return nil
	}},
	{name: "analog", args: "PIN VALUE", help: "set the level of an analog input", min: 2, run: func(s *session, args []string) error {
		value, err := strconv.ParseUint(args[1], 0, 16)
		if err != nil {
			return err
		}
		return s.analog(args[0], uint16(value))
	}},
	{name: "adc", args: "PIN...", help: "sample analog inputs", min: 1, run: func(s *session, args []string) error {
		for _, arg := range args {
			if _, err := s.sample(arg); err != nil {
				return err
			}
		}
		return nil
	}},
	{name: "gpio", args: "PIN [LEVEL]", help: "read or drive a pin", min: 1, run: func(s *session, args []string) error {
		var level *bool
		if len(args) > 1 {
			high, err := parseLevel(args[1])
			if err != nil {
				return err
			}
			level = &high
		}
		_, err := s.gpioPin(args[0], level)
		return err
	}},
	{name: "mode", args: "PIN MODE [PULL]", help: "configure a pin from a packed mode", min: 2, run: func(s *session, args []string) error {
		pull := ""
		if len(args) > 2 {
			pull = args[2]
		}
		_, err := s.configure(args[0], args[1], pull)
		return err
	}},
	{name: "input", args: "PIN LEVEL", help: "drive the external level of a pin", min: 2, run: func(s *session, args []string) error {
		p, err := pin.Parse(args[0])
		if err != nil {
			return err
		}
		high, err := parseLevel(args[1])
		if err != nil {
			return err
		}
		s.chip.GPIO.SetInput(p.Port, p.Index, high)
		return nil
	}},
	{name: "regs", help: "dump the written registers", run: func(s *session, args []string) error {
		s.registers()
		return nil
	}},
	{name: "load", args: "FILE", help: "program an Intel HEX image", min: 1, run: func(s *session, args []string) error {
		_, err := s.load(args[0])
		return err
	}},
	{name: "dump", args: "FILE ADDRESS SIZE", help: "save memory as an Intel HEX image", min: 3, run: func(s *session, args []string) error {
		addr, err := strconv.ParseUint(args[1], 0, 32)
		if err != nil {
			return err
		}
		size, err := bytesize.Parse(args[2])
		if err != nil {
			return err
		}
		return s.dump(args[0], uintptr(addr), size)
	}},
}

// exec runs one command line.
func (s *session) exec(args []string) error {
	if len(args) == 0 {
		return nil
	}
	i := slices.IndexFunc(commands, func(c command) bool { return c.name == args[0] })
	if i < 0 {
		return fmt.Errorf("unknown command %q", args[0])
	}
	cmd := commands[i]
	if len(args)-1 < cmd.min {
		return fmt.Errorf("usage: %s %s", cmd.name, cmd.args)
	}
	return cmd.run(s, args[1:])
}

const sessionKey = "$session"

func newShell(s *session) *ishell.Shell {
	sh := ishell.New()
	sh.Set(sessionKey, s)
	sh.SetPrompt(s.board.Name + " > ")

	for _, cmd := range commands {
		cmd := cmd
		sh.AddCmd(&ishell.Cmd{
			Name: cmd.name,
			Help: cmd.help,
			Func: func(c *ishell.Context) {
				sess := c.Get(sessionKey).(*session)
				if err := sess.exec(append([]string{cmd.name}, c.Args...)); err != nil {
					c.Err(err)
				}
			},
		})
	}
	return sh
}

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive shell on a simulated board",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		sh := newShell(s)
		sh.Println("h7sim:", s.board.Name, "- type help for the commands")
		sh.Run()
		return nil
	},
}
