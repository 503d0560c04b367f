package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the exhibit banner to w.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	lines := []struct{ text, color string }{
		{"            _     _ _     _ _   ", "#34d399"},
		{"   _____  _| |__ (_) |__ (_) |_ ", "#2dd4bf"},
		{"  / _ \\ \\/ / '_ \\| | '_ \\| | __|", "#22d3ee"},
		{" |  __/>  <| | | | | |_) | | |_ ", "#38bdf8"},
		{"  \\___/_/\\_\\_| |_|_|_.__/|_|\\__|", "#60a5fa"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w)
}
