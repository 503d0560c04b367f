package observability_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/exhibit/internal/logging"
	"github.com/aretw0/exhibit/pkg/domain"
	"github.com/aretw0/exhibit/pkg/observability"
)

func TestMetrics_Hooks(t *testing.T) {
	m := observability.NewMetrics()
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnNodeSwitch(ctx, &domain.TransitionEvent{ToNodeID: "hall/a", HistoryDepth: 0})
	hooks.OnNodeSwitch(ctx, &domain.TransitionEvent{FromNodeID: "hall/a", ToNodeID: "hall/b", HistoryDepth: 1})
	hooks.OnNodeClose(ctx, &domain.NodeEvent{NodeID: "a", Region: "hall", Outcome: domain.OutcomeApplied, Duration: time.Millisecond})
	hooks.OnNodeClose(ctx, &domain.NodeEvent{NodeID: "b", Region: "hall", Outcome: domain.OutcomeCancelled})
	hooks.OnRegionActivate(ctx, &domain.RegionEvent{Region: "hall"})
	hooks.OnRegionExit(ctx, &domain.RegionEvent{Region: "hall"})

	expected := `
# HELP exhibit_node_closes_total Total number of node closes by outcome
# TYPE exhibit_node_closes_total counter
exhibit_node_closes_total{outcome="applied",region="hall"} 1
exhibit_node_closes_total{outcome="cancelled",region="hall"} 1
# HELP exhibit_history_depth Current depth of the navigation history
# TYPE exhibit_history_depth gauge
exhibit_history_depth 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected),
		"exhibit_node_closes_total", "exhibit_history_depth"))

	assert.Equal(t, 2, testutil.CollectAndCount(m.Registry(), "exhibit_node_switches_total"))
	assert.Equal(t, 2, testutil.CollectAndCount(m.Registry(), "exhibit_region_transitions_total"))

	hooks.OnHistoryClear(ctx)
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(`
# HELP exhibit_history_depth Current depth of the navigation history
# TYPE exhibit_history_depth gauge
exhibit_history_depth 0
`), "exhibit_history_depth"))
}

func TestMetrics_DispatchAndHandler(t *testing.T) {
	m := observability.NewMetrics()
	m.ObserveDispatch("delivered")
	m.ObserveDispatch("delivered")
	m.ObserveDispatch("mismatch")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `exhibit_dispatch_total{outcome="delivered"} 2`)
	assert.Contains(t, rec.Body.String(), `exhibit_dispatch_total{outcome="mismatch"} 1`)
}

func TestLogHooks(t *testing.T) {
	var buf bytes.Buffer
	hooks := observability.LogHooks(logging.NewWithWriter(&buf, 0))
	ctx := context.Background()

	hooks.OnNodeSwitch(ctx, &domain.TransitionEvent{FromNodeID: "hall/a", ToNodeID: "hall/b", HistoryDepth: 1})
	hooks.OnNodeClose(ctx, &domain.NodeEvent{NodeID: "a", Kind: domain.KindZone, Outcome: domain.OutcomeCancelled})
	hooks.OnHistoryClear(ctx)

	out := buf.String()
	assert.Contains(t, out, "msg=node_switch from=hall/a to=hall/b history_depth=1")
	assert.Contains(t, out, "kind=zone outcome=cancelled")
	assert.Contains(t, out, "msg=history_clear")
}
