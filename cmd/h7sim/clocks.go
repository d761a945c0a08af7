package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"omibyte.io/h7boot/runtime/arm/cortexm/stm32/stm32h7"
)

var (
	pclockOpts = struct {
		enable bool
		list   bool
	}{}

	clocksCmd = &cobra.Command{
		Use:   "clocks",
		Short: "Print the clock tree of the board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			return s.clocks()
		},
	}

	pclockCmd = &cobra.Command{
		Use:   "pclock [peripheral|address]...",
		Short: "Show the clock gate of peripherals",
		RunE: func(cmd *cobra.Command, args []string) error {
			if pclockOpts.list {
				fmt.Fprintln(stdout, strings.Join(stm32h7.PeripheralNames(), " "))
				return nil
			}
			if len(args) == 0 {
				return cmd.Help()
			}

			s, err := openSession()
			if err != nil {
				return err
			}
			for _, arg := range args {
				if err := s.pclock(arg, pclockOpts.enable); err != nil {
					return err
				}
			}
			return nil
		},
	}
)

func init() {
	pclockCmd.Flags().BoolVarP(&pclockOpts.enable, "enable", "e", false, "enable the clocks")
	pclockCmd.Flags().BoolVarP(&pclockOpts.list, "list", "l", false, "list the known peripherals")
}
