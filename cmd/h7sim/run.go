package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/shlex"
	"github.com/spf13/cobra"
)

// parseScript splits a script into command lines. Blank lines and lines
// starting with # are skipped.
func parseScript(r io.Reader) ([][]string, error) {
	var lines [][]string
	scanner := bufio.NewScanner(r)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		args, err := shlex.Split(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		lines = append(lines, args)
	}
	return lines, scanner.Err()
}

// runScript executes the lines of a script and stops at the first error.
func (s *session) runScript(r io.Reader) error {
	lines, err := parseScript(r)
	if err != nil {
		return err
	}
	for _, args := range lines {
		fmt.Fprintf(s.out, "> %s\n", strings.Join(args, " "))
		if err := s.exec(args); err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
	}
	return nil
}

var runCmd = &cobra.Command{
	Use:   "run SCRIPT",
	Short: "Run a script of shell commands",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		if args[0] == "-" {
			return s.runScript(os.Stdin)
		}
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		return s.runScript(f)
	},
}
