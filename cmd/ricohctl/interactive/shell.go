// Package interactive provides the ricohctl shell. The shell keeps one
// device connection open across commands, so repeated reads reuse the
// device session.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
)

// Dispatch runs one command.
type Dispatch func(ctx context.Context, cmd string, args []string, w io.Writer) error

// Shell is a readline loop over a Dispatch.
type Shell struct {
	rl       *readline.Instance
	dispatch Dispatch
	help     func(io.Writer)
}

// New creates a shell. commands feed tab completion; help prints the
// command list.
func New(prompt string, commands []string, dispatch Dispatch, help func(io.Writer)) (*Shell, error) {
	items := make([]readline.PrefixCompleterInterface, 0, len(commands)+2)
	for _, c := range append(commands, "help", "quit") {
		items = append(items, readline.PcItem(c))
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		AutoComplete:    readline.NewPrefixCompleter(items...),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Shell{rl: rl, dispatch: dispatch, help: help}, nil
}

// Stdout returns a writer that coordinates with the readline input.
func (s *Shell) Stdout() io.Writer {
	return s.rl.Stdout()
}

// Run reads commands until quit, EOF or ctx is done.
func (s *Shell) Run(ctx context.Context) error {
	defer s.rl.Close()

	s.help(s.rl.Stdout())
	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := s.rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil {
			fmt.Fprintln(s.rl.Stdout(), "Exiting...")
			return nil
		}
		if quit := execute(ctx, line, s.rl.Stdout(), s.dispatch, s.help); quit {
			fmt.Fprintln(s.rl.Stdout(), "Exiting...")
			return nil
		}
	}
}

// execute runs one input line and reports whether the shell should exit.
// Command errors are printed, never fatal.
func execute(ctx context.Context, line string, w io.Writer, dispatch Dispatch, help func(io.Writer)) bool {
	parts := strings.Fields(strings.TrimSpace(line))
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	switch cmd {
	case "help", "?":
		help(w)
	case "quit", "exit", "q":
		return true
	case "shell":
		fmt.Fprintln(w, "Already in the shell.")
	default:
		if err := dispatch(ctx, cmd, parts[1:], w); err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
		}
	}
	return false
}
