package http

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/exhibit"
	"github.com/aretw0/exhibit/internal/logging"
	"github.com/aretw0/exhibit/pkg/dispatch"
	"github.com/aretw0/exhibit/pkg/domain"
	"github.com/aretw0/exhibit/pkg/loader"
	"github.com/aretw0/exhibit/pkg/observability"
)

const gallery = `
name: Gallery
player: {id: visitor}
regions:
  - name: East
    nodes:
      - {id: Vase, kind: zone}
      - {id: Mask, kind: zone}
`

func newTestServer(t *testing.T, opts ...Option) (*exhibit.Exhibit, *httptest.Server) {
	t.Helper()
	s, err := loader.Parse([]byte(gallery))
	require.NoError(t, err)

	streams := NewStreamManager(logging.NewNop())
	ex, err := exhibit.New("", exhibit.WithScene(s), exhibit.WithLifecycleHooks(streams.Hooks()))
	require.NoError(t, err)

	srv := httptest.NewServer(NewHandler(ex, append([]Option{WithStreams(streams)}, opts...)...))
	t.Cleanup(func() {
		srv.Close()
		_ = ex.Close(context.Background())
	})
	return ex, srv
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// addErr drops the unsubscribe func of a registration.
func addErr(_ func(), err error) error { return err }

func TestHealthAndState(t *testing.T) {
	_, srv := newTestServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/state", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	state := decode[exhibit.State](t, resp)
	assert.Equal(t, "Gallery", state.Scene)
	assert.Len(t, state.Regions, 1)
}

func TestFireTrigger(t *testing.T) {
	ex, srv := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/triggers/East%2FVase.enter/enter", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[TriggerResponse](t, resp)
	assert.Equal(t, "East/Vase.enter", got.Volume)
	assert.True(t, got.Delivered)
	assert.Equal(t, "East/Vase", ex.State().Current)

	resp = do(t, http.MethodPost, srv.URL+"/triggers/East%2FMask.enter/enter", `{"actor":{"id":"cat","tag":"Animal"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decode[TriggerResponse](t, resp).Delivered)

	resp = do(t, http.MethodPost, srv.URL+"/triggers/Attic.enter/enter", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/triggers/East.enter/jump", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestNavigation(t *testing.T) {
	_, srv := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/navigation/switch", `{"node":"East/Vase"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.OutcomeApplied, decode[NavigationResponse](t, resp).Outcome)

	resp = do(t, http.MethodPost, srv.URL+"/navigation/switch", `{"node":"East/Mask"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	nav := decode[NavigationResponse](t, resp)
	assert.Equal(t, "East/Mask", nav.State.Current)
	assert.Equal(t, []string{"East/Vase"}, nav.State.History)

	resp = do(t, http.MethodPost, srv.URL+"/navigation/back", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	nav = decode[NavigationResponse](t, resp)
	assert.Equal(t, "East/Vase", nav.State.Current)
	assert.Equal(t, []string{"East/Mask"}, nav.State.History)

	resp = do(t, http.MethodDelete, srv.URL+"/navigation/history", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/navigation/back", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.OutcomeSkipped, decode[NavigationResponse](t, resp).Outcome)

	resp = do(t, http.MethodPost, srv.URL+"/navigation/switch", `{"node":"East/Bowl"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/navigation/switch", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSendMessage(t *testing.T) {
	ex, srv := newTestServer(t)

	var got []any
	require.NoError(t, addErr(dispatch.AddListener2(ex.Dispatcher(), "score", func(who string, points int) {
		got = append(got, who, points)
	})))

	resp := do(t, http.MethodPost, srv.URL+"/messages/score", `["visitor", 3]`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, []any{"visitor", 3}, got)

	resp = do(t, http.MethodPost, srv.URL+"/messages/score", `["visitor"]`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/messages/score", `{"not":"an array"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// No listeners is a normal broadcast.
	resp = do(t, http.MethodPost, srv.URL+"/messages/nobody", "")
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	m := observability.NewMetrics()
	_, srv := newTestServer(t, WithMetrics(m.Handler()))

	resp := do(t, http.MethodGet, srv.URL+"/metrics", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSubscribeEvents(t *testing.T) {
	ex, srv := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events?types=node_switch", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	require.True(t, lines.Scan())
	assert.Equal(t, "event: ping", lines.Text())

	// The handler subscribes before it sends the ping, so the switch below is seen.
	_, err = ex.SwitchTo(context.Background(), "East/Vase")
	require.NoError(t, err)

	deadline := time.After(2 * time.Second)
	found := make(chan string, 1)
	go func() {
		for lines.Scan() {
			if strings.HasPrefix(lines.Text(), "data: {") {
				found <- lines.Text()
				return
			}
		}
	}()
	select {
	case line := <-found:
		assert.Contains(t, line, `"to_node_id":"East/Vase"`)
		assert.Contains(t, line, `"type":"node_switch"`)
	case <-deadline:
		t.Fatal("no event received")
	}
}

func TestStreamManager_Unsubscribe(t *testing.T) {
	sm := NewStreamManager(logging.NewNop())
	ch, cancel := sm.Subscribe()
	assert.Equal(t, 1, sm.Subscribers())

	sm.Broadcast(domain.EventHistoryClear, map[string]int{"n": 1})
	ev := <-ch
	assert.Equal(t, domain.EventHistoryClear, ev.Type)
	assert.JSONEq(t, `{"n":1}`, string(ev.Data))

	cancel()
	cancel()
	assert.Equal(t, 0, sm.Subscribers())
	_, open := <-ch
	assert.False(t, open)
}
