package tui

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/muesli/termenv"

	"github.com/aretw0/exhibit/pkg/domain"
)

// TransitionPrinter writes one coloured line per lifecycle event.
type TransitionPrinter struct {
	out *termenv.Output

	mu sync.Mutex
	w  io.Writer
}

// NewTransitionPrinter prints to w. Colours are dropped unless color is set.
func NewTransitionPrinter(w io.Writer, color bool) *TransitionPrinter {
	profile := termenv.Ascii
	if color {
		profile = termenv.TrueColor
	}
	return &TransitionPrinter{out: termenv.NewOutput(w, termenv.WithProfile(profile)), w: w}
}

func (p *TransitionPrinter) line(color, label, msg string) {
	tag := p.out.String(fmt.Sprintf("%-9s", label)).Foreground(p.out.Color(color)).Bold()
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "%s %s\n", tag, msg)
}

// Hooks returns lifecycle hooks that print transitions.
func (p *TransitionPrinter) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeSwitch: func(_ context.Context, e *domain.TransitionEvent) {
			from := e.FromNodeID
			if from == "" {
				from = "-"
			}
			p.line("#60a5fa", "switch", fmt.Sprintf("%s -> %s (history %d)", from, e.ToNodeID, e.HistoryDepth))
		},
		OnNodeClose: func(_ context.Context, e *domain.NodeEvent) {
			p.line("#a78bfa", "close", fmt.Sprintf("%s/%s %s", e.Region, e.NodeID, e.Outcome))
		},
		OnRegionActivate: func(_ context.Context, e *domain.RegionEvent) {
			p.line("#34d399", "enter", e.Region)
		},
		OnRegionExit: func(_ context.Context, e *domain.RegionEvent) {
			p.line("#f87171", "leave", e.Region)
		},
		OnRegionComplete: func(_ context.Context, e *domain.RegionEvent) {
			p.line("#fbbf24", "complete", e.Region)
		},
		OnHistoryClear: func(context.Context) {
			p.line("#9ca3af", "clear", "history")
		},
	}
}
