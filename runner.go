package exhibit

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/exhibit/pkg/trigger"
)

// Runner drives an Exhibit from a line-oriented script, one command per line.
// This allows for easy testing and integration with different frontends (CLI, pipes, files).
//
//	enter <volume> | stay <volume> | exit <volume>
//	switch <region/node> | back | clear
//	state | volumes | describe <region> | quit
type Runner struct {
	Input    io.Reader
	Output   io.Writer
	Headless bool
	Renderer ContentRenderer
}

// ContentRenderer transforms descriptions before they are printed (markdown to ANSI).
type ContentRenderer func(string) (string, error)

// ErrUnknownCommand is returned for a script line the runner does not understand.
var ErrUnknownCommand = errors.New("unknown command")

// NewRunner creates a Runner. Input and Output must be set before Run.
func NewRunner() *Runner {
	return &Runner{}
}

// Run executes commands until quit, EOF or ctx ends. Command failures are printed and do not
// stop the script.
func (r *Runner) Run(ctx context.Context, ex *Exhibit) error {
	if r.Input == nil {
		return fmt.Errorf("input reader must be set (use os.Stdin)")
	}
	if r.Output == nil {
		return fmt.Errorf("output writer must be set (use os.Stdout)")
	}

	lines := bufio.NewScanner(r.Input)
	if !r.Headless {
		fmt.Fprintf(r.Output, "--- %s ---\n", ex.Scene().Name)
	}

	for {
		if !r.Headless {
			fmt.Fprint(r.Output, "> ")
		}
		if !lines.Scan() {
			return lines.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSpace(lines.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if line == "quit" || line == "exit" {
			if !r.Headless {
				fmt.Fprintln(r.Output, "Bye!")
			}
			return nil
		}

		if err := r.exec(ctx, ex, line); err != nil {
			fmt.Fprintf(r.Output, "error: %v\n", err)
		}
	}
}

func (r *Runner) exec(ctx context.Context, ex *Exhibit, line string) error {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "enter", "stay", "exit":
		if arg == "" {
			return fmt.Errorf("%s: volume name required", cmd)
		}
		phase, err := trigger.ParsePhase(cmd)
		if err != nil {
			return err
		}
		passed, err := ex.Fire(ctx, arg, phase, ex.Player())
		if err != nil {
			return err
		}
		if !passed {
			fmt.Fprintf(r.Output, "%s %s: ignored\n", cmd, arg)
		}
		return nil

	case "switch":
		outcome, err := ex.SwitchTo(ctx, arg)
		if err != nil {
			return err
		}
		fmt.Fprintf(r.Output, "switch %s: %s\n", arg, outcome)
		return nil

	case "back":
		outcome, err := ex.Back(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(r.Output, "back: %s\n", outcome)
		return nil

	case "clear":
		ex.ClearHistory(ctx)
		return nil

	case "state":
		data, err := json.MarshalIndent(ex.State(), "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(r.Output, string(data))
		return nil

	case "volumes":
		for _, name := range ex.Volumes() {
			fmt.Fprintln(r.Output, name)
		}
		return nil

	case "describe":
		region, ok := ex.Navigator().Region(arg)
		if !ok {
			return fmt.Errorf("describe: unknown region %q", arg)
		}
		out := region.Description()
		if r.Renderer != nil {
			if rendered, err := r.Renderer(out); err == nil {
				out = rendered
			}
		}
		fmt.Fprintln(r.Output, strings.TrimSpace(out))
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd)
}
