package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aretw0/exhibit"
	"github.com/aretw0/exhibit/internal/presentation/tui"
	"github.com/aretw0/exhibit/pkg/adapters/memory"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate [scene]",
	Short: "Walk through a scene from the terminal",
	Long: `Runs the scene with the headless host and reads trigger commands from stdin:

  enter <volume> | stay <volume> | exit <volume>
  switch <region/node> | back | clear
  state | volumes | describe <region> | quit

Volumes are named "<region>.enter", "<region>.exit", "<region>/<node>.enter"
and "<region>/<node>.exit". Piping a script in runs it unattended.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		headless, _ := cmd.Flags().GetBool("headless")
		trace, _ := cmd.Flags().GetBool("trace")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runSimulate(ctx, cmd, args, headless, trace)
	},
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().Bool("headless", false, "Run in headless mode (no banner, no prompts)")
	simulateCmd.Flags().Bool("trace", false, "Print transitions and host side effects")
}

func runSimulate(ctx context.Context, cmd *cobra.Command, args []string, headless, trace bool) error {
	in := cmd.InOrStdin()
	out := cmd.OutOrStdout()

	tty := false
	if f, ok := in.(*os.File); ok {
		tty = term.IsTerminal(int(f.Fd()))
	}
	if !tty {
		headless = true
	}

	var opts []exhibit.Option
	if trace {
		printer := tui.NewTransitionPrinter(out, tty)
		opts = append(opts,
			exhibit.WithLifecycleHooks(printer.Hooks()),
			exhibit.WithJournal(memory.NewJournal(func(entry string) {
				fmt.Fprintf(out, "  ~ %s\n", entry)
			})),
		)
	}

	ex, _, err := openExhibit(cmd, args, opts...)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = ex.Close(closeCtx)
	}()

	if !headless {
		tui.PrintBanner(out)
	}

	runner := exhibit.NewRunner()
	runner.Input = in
	runner.Output = out
	runner.Headless = headless
	runner.Renderer = tui.NewRenderer(tty)
	return runner.Run(ctx, ex)
}
