package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"omibyte.io/h7boot/sim"
)

var (
	bootOpts = struct {
		image      string
		bootloader bool
		quiet      bool
	}{}

	bootCmd = &cobra.Command{
		Use:   "boot",
		Short: "Boot the board and print a report",
		Long: "Boot the board from reset. With --bootloader the firmware first requests the ROM bootloader, " +
			"the chip is reset and booted again, which enters the bootloader, and a third boot runs the firmware.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			if bootOpts.image != "" {
				if _, err := s.load(bootOpts.image); err != nil {
					return err
				}
			}

			if bootOpts.bootloader {
				if err := bootToBootloader(s); err != nil {
					return err
				}
			}

			if exit := s.boot(); exit.Kind != sim.ExitHalt {
				return fmt.Errorf("boot ended with %s", exit)
			}
			if !bootOpts.quiet {
				s.report()
			}
			return nil
		},
	}
)

func init() {
	bootCmd.Flags().StringVarP(&bootOpts.image, "image", "i", "", "Intel HEX image to program before booting")
	bootCmd.Flags().BoolVar(&bootOpts.bootloader, "bootloader", false, "go through the bootloader request first")
	bootCmd.Flags().BoolVarP(&bootOpts.quiet, "quiet", "q", false, "do not print the report")
}

// bootToBootloader requests the bootloader from a running firmware and checks
// that the next boot enters it.
func bootToBootloader(s *session) error {
	if exit := s.boot(); exit.Kind != sim.ExitHalt {
		return fmt.Errorf("boot ended with %s", exit)
	}
	if exit := s.requestBootloader(); exit.Kind != sim.ExitReset {
		return fmt.Errorf("bootloader request ended with %s", exit)
	}
	s.reset()

	exit := s.boot()
	if exit.Kind != sim.ExitJump || exit.PC != uintptr(sim.BootloaderEntry) {
		return fmt.Errorf("expected a jump to the bootloader, got %s", exit)
	}
	s.reset()
	return nil
}
