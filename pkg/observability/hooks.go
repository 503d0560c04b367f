package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/exhibit/pkg/domain"
)

// LogHooks returns hooks that log every lifecycle event.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeSwitch: func(ctx context.Context, e *domain.TransitionEvent) {
			logger.InfoContext(ctx, "node_switch",
				"from", e.FromNodeID,
				"to", e.ToNodeID,
				"history_depth", e.HistoryDepth,
			)
		},
		OnNodeClose: func(ctx context.Context, e *domain.NodeEvent) {
			logger.InfoContext(ctx, "node_close",
				"node_id", e.NodeID,
				"region", e.Region,
				"kind", e.Kind.String(),
				"outcome", string(e.Outcome),
				"duration", e.Duration,
			)
		},
		OnRegionActivate: func(ctx context.Context, e *domain.RegionEvent) {
			logger.InfoContext(ctx, "region_activate", "region", e.Region, "nodes", e.Nodes)
		},
		OnRegionExit: func(ctx context.Context, e *domain.RegionEvent) {
			logger.InfoContext(ctx, "region_exit", "region", e.Region, "duration", e.Duration)
		},
		OnRegionComplete: func(ctx context.Context, e *domain.RegionEvent) {
			logger.InfoContext(ctx, "region_complete", "region", e.Region)
		},
		OnHistoryClear: func(ctx context.Context) {
			logger.InfoContext(ctx, "history_clear")
		},
	}
}
