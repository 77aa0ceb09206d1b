package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/shlex"
)

// CacheActions are the valid "cache" subcommands.
var CacheActions = []string{"list", "clear", "delete", "info"}

// Command is one parsed shell line.
type Command struct {
	Name             string
	Image            string
	ProductsDir      string
	SavePreprocessed bool
	PreprocessedDir  string
	Category         string
	Attribute        string
	UseTrained       bool
	CacheAction      string
	CacheKey         string
	Query            string
	Fuzzy            bool
	// Warnings lists arguments that were not understood; parsing continues past them.
	Warnings []string
}

// ParseCommand splits line with shell quoting rules and reads known flags. It returns nil for
// a blank line.
func ParseCommand(line string) (*Command, error) {
	parts, err := shlex.Split(line)
	if err != nil {
		return nil, fmt.Errorf("parse command: %w", err)
	}
	if len(parts) == 0 {
		return nil, nil
	}
	cmd := &Command{Name: parts[0]}
	var words []string
	for i := 1; i < len(parts); i++ {
		p := parts[i]
		hasValue := i+1 < len(parts)
		switch {
		case p == "--image" && hasValue:
			i++
			cmd.Image = parts[i]
		case p == "--products_dir" && hasValue:
			i++
			cmd.ProductsDir = parts[i]
		case p == "--preprocessed_dir" && hasValue:
			i++
			cmd.PreprocessedDir = parts[i]
		case p == "--category" && hasValue:
			i++
			cmd.Category = parts[i]
		case p == "--attribute" && hasValue:
			i++
			cmd.Attribute = parts[i]
		case p == "--key" && hasValue:
			i++
			cmd.CacheKey = parts[i]
		case p == "--save-preprocessed":
			cmd.SavePreprocessed = true
		case p == "--use-trained":
			cmd.UseTrained = true
		case p == "--fuzzy":
			cmd.Fuzzy = true
		case cmd.Name == "cache" && isCacheAction(p):
			cmd.CacheAction = p
		case cmd.Name == "cache":
			cmd.Warnings = append(cmd.Warnings, fmt.Sprintf("Unknown cache subcommand: %s", p))
		case cmd.Name == "find" && !strings.HasPrefix(p, "--"):
			words = append(words, p)
		default:
			cmd.Warnings = append(cmd.Warnings, fmt.Sprintf("Unknown argument: %s", p))
		}
	}
	cmd.Query = strings.Join(words, " ")
	return cmd, nil
}

func isCacheAction(s string) bool {
	for _, a := range CacheActions {
		if a == s {
			return true
		}
	}
	return false
}

// Dispatcher runs one parsed command. Returned errors are printed and the shell continues.
type Dispatcher func(ctx context.Context, cmd *Command) error

// ErrExit may be returned by a Dispatcher to end the shell.
var ErrExit = errors.New("exit")

// REPL reads commands line by line until exit, quit, end of input, or context cancellation.
type REPL struct {
	in       io.Reader
	printer  *Printer
	dispatch Dispatcher
}

// NewREPL creates a shell reading from in.
func NewREPL(in io.Reader, printer *Printer, dispatch Dispatcher) *REPL {
	return &REPL{in: in, printer: printer, dispatch: dispatch}
}

// Run blocks until the shell ends. Cancelling ctx (Ctrl-C) prints "Exiting serve..." and
// returns nil.
func (r *REPL) Run(ctx context.Context) error {
	r.printer.Highlight("Entering interactive serve mode. Type 'exit' to quit.")
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(r.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		fmt.Fprint(r.printer.Writer(), r.printer.highlight.Sprint("\n>>> "))
		select {
		case <-ctx.Done():
			r.printer.Info("\nExiting serve...")
			return nil
		case err := <-readErr:
			if err != nil {
				return fmt.Errorf("read command: %w", err)
			}
			r.printer.Info("\nExiting serve...")
			return nil
		case line := <-lines:
			line = strings.TrimSpace(line)
			if lower := strings.ToLower(line); lower == "exit" || lower == "quit" {
				r.printer.Info("Exiting serve...")
				return nil
			}
			if err := r.runLine(ctx, line); errors.Is(err, ErrExit) {
				r.printer.Info("Exiting serve...")
				return nil
			}
		}
	}
}

func (r *REPL) runLine(ctx context.Context, line string) error {
	cmd, err := ParseCommand(line)
	if err != nil {
		r.printer.Alert("%v", err)
		return nil
	}
	if cmd == nil {
		return nil
	}
	for _, w := range cmd.Warnings {
		r.printer.Alert("%s", w)
	}
	if err := r.dispatch(ctx, cmd); err != nil {
		if errors.Is(err, ErrExit) {
			return err
		}
		r.printer.Alert("%v", err)
	}
	return nil
}
