// Command h7sim runs the STM32H7 bring-up code against a simulated chip.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/golang/glog"
	"github.com/inhies/go-bytesize"
	"github.com/mattn/go-colorable"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"omibyte.io/h7boot/targets"
)

var (
	rootOpts = struct {
		board     string
		boardFile string
		ramSize   bytesize.ByteSize
		noColor   bool
	}{}

	stdout io.Writer = colorable.NewColorableStdout()

	rootCmd = &cobra.Command{
		Use:   "h7sim",
		Short: "Simulate the bring-up of an STM32H7 board",
		Long:  "Run the reset, clock, GPIO and ADC code of an STM32H7 board profile on a simulated STM32H743.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// glog reads its flags from the standard flag set
			flag.CommandLine.Parse(nil)
			useColor = !rootOpts.noColor
		},
		SilenceUsage: true,
	}

	boardsCmd = &cobra.Command{
		Use:   "boards",
		Short: "List the board profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			boards, err := loadBoards()
			if err != nil {
				return err
			}
			for _, name := range boards.Names() {
				board, _ := boards.Find(name)
				fmt.Fprintf(stdout, "%-16s %s %d MHz, %s RAM\n", name, board.Clock.Source,
					board.Clock.Frequency/1_000_000, board.Memory.RAMSize)
			}
			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootOpts.board, "board", "b", "generic-h743", "board profile")
	rootCmd.PersistentFlags().StringVar(&rootOpts.boardFile, "boards", "", "YAML file with additional board profiles")
	rootCmd.PersistentFlags().Var(&rootOpts.ramSize, "ram-size", "override the RAM size of the board")
	rootCmd.PersistentFlags().BoolVar(&rootOpts.noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	rootCmd.AddCommand(boardsCmd, bootCmd, clocksCmd, pclockCmd, shellCmd, runCmd)
}

// loadBoards returns the built-in profiles followed by those of --boards.
func loadBoards() (targets.Boards, error) {
	boards := targets.All()
	if rootOpts.boardFile == "" {
		return boards, nil
	}
	data, err := os.ReadFile(rootOpts.boardFile)
	if err != nil {
		return nil, err
	}
	extra, err := targets.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rootOpts.boardFile, err)
	}
	return append(extra, boards...), nil
}

// openSession creates a session for the board selected on the command line.
func openSession() (*session, error) {
	boards, err := loadBoards()
	if err != nil {
		return nil, err
	}
	board, err := boards.Find(rootOpts.board)
	if err != nil {
		return nil, err
	}
	if rootOpts.ramSize != 0 {
		board.Memory.RAMSize = rootOpts.ramSize
	}
	return newSession(board, stdout)
}

func main() {
	defer glog.Flush()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var _ pflag.Value = (*bytesize.ByteSize)(nil)
