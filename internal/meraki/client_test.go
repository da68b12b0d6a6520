package meraki

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macharpe/meraki-mcp/internal/cache"
	apperrors "github.com/macharpe/meraki-mcp/internal/errors"
	"github.com/macharpe/meraki-mcp/internal/kv"
)

type fakeDashboard struct {
	*httptest.Server

	hits map[string]int
}

// newFakeDashboard serves canned JSON per path and counts requests.
func newFakeDashboard(t *testing.T, responses map[string]any) *fakeDashboard {
	t.Helper()

	fd := &fakeDashboard{hits: map[string]int{}}

	fd.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-api-key", r.Header.Get("X-Cisco-Meraki-API-Key"))

		key := r.URL.Path
		if r.URL.RawQuery != "" {
			key += "?" + r.URL.RawQuery
		}

		fd.hits[key]++

		body, ok := responses[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":["Not found"]}`))

			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(fd.Close)

	return fd
}

func newTestClient(t *testing.T, baseURL string, withCache bool) *Client {
	t.Helper()

	var c *cache.Cache

	if withCache {
		store, err := kv.Open(filepath.Join(t.TempDir(), "state.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })

		c = cache.New(store, slog.New(slog.DiscardHandler))
	}

	client, err := NewClient(Options{APIKey: "test-api-key", BaseURL: baseURL}, c)
	require.NoError(t, err)

	return client
}

// --- construction ---

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(Options{}, nil)
	require.ErrorIs(t, err, apperrors.ErrAPIRequest)
}

// --- organizations and networks ---

func TestOrganizations(t *testing.T) {
	fd := newFakeDashboard(t, map[string]any{
		"/organizations": []map[string]any{
			{"id": "o1", "name": "Acme", "url": "https://dash/o1", "api": map[string]bool{"enabled": true}},
		},
	})

	client := newTestClient(t, fd.URL, false)

	orgs, err := client.Organizations(context.Background())
	require.NoError(t, err)
	require.Len(t, orgs, 1)

	assert.Equal(t, "o1", orgs[0].ID)
	assert.Equal(t, "Acme", orgs[0].Name)
	assert.True(t, orgs[0].API.Enabled)
}

func TestOrganizationsCached(t *testing.T) {
	fd := newFakeDashboard(t, map[string]any{
		"/organizations": []map[string]any{{"id": "o1", "name": "Acme"}},
	})

	client := newTestClient(t, fd.URL, true)

	for range 3 {
		_, err := client.Organizations(context.Background())
		require.NoError(t, err)
	}

	assert.Equal(t, 1, fd.hits["/organizations"])
}

func TestNetworks(t *testing.T) {
	fd := newFakeDashboard(t, map[string]any{
		"/organizations/o1/networks": []map[string]any{
			{"id": "n1", "organizationId": "o1", "name": "HQ", "productTypes": []string{"switch", "wireless"}},
		},
	})

	client := newTestClient(t, fd.URL, false)

	nets, err := client.Networks(context.Background(), "o1")
	require.NoError(t, err)
	require.Len(t, nets, 1)

	assert.Equal(t, "n1", nets[0].ID)
	assert.Equal(t, []string{"switch", "wireless"}, nets[0].ProductTypes)
}

// --- devices and clients ---

func TestDeviceStatuses(t *testing.T) {
	fd := newFakeDashboard(t, map[string]any{
		"/organizations/o1/devices/statuses": []map[string]any{
			{"serial": "Q2XX-1", "status": "online", "model": "MS220"},
			{"serial": "Q2XX-2", "status": "alerting", "model": "MR33"},
		},
	})

	client := newTestClient(t, fd.URL, false)

	statuses, err := client.DeviceStatuses(context.Background(), "o1")
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.Equal(t, "alerting", statuses[1].Status)
}

func TestClientsDefaultTimespan(t *testing.T) {
	fd := newFakeDashboard(t, map[string]any{
		"/networks/n1/clients?timespan=86400": []map[string]any{
			{"id": "c1", "mac": "aa:bb:cc:dd:ee:ff", "status": "online"},
		},
	})

	client := newTestClient(t, fd.URL, false)

	clients, err := client.Clients(context.Background(), "n1", 0)
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", clients[0].MAC)
}

// --- switch and wireless ---

func TestSwitchPortStatuses(t *testing.T) {
	fd := newFakeDashboard(t, map[string]any{
		"/devices/Q2XX-1/switch/ports/statuses?timespan=300": []map[string]any{
			{"portId": "1", "enabled": true, "status": "connected", "speed": "1 Gbps"},
		},
	})

	client := newTestClient(t, fd.URL, false)

	statuses, err := client.SwitchPortStatuses(context.Background(), "Q2XX-1", 0)
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, "connected", statuses[0].Status)
}

func TestWirelessLatencyStats(t *testing.T) {
	fd := newFakeDashboard(t, map[string]any{
		"/devices/Q2XX-9/wireless/latencyStats?timespan=3600": map[string]any{
			"serial":       "Q2XX-9",
			"latencyStats": []map[string]any{{"timespan": 3600, "avgLatencyMs": 12.5}},
		},
	})

	client := newTestClient(t, fd.URL, false)

	stats, err := client.WirelessLatencyStats(context.Background(), "Q2XX-9", 3600)
	require.NoError(t, err)
	require.Len(t, stats.LatencyStats, 1)
	assert.InDelta(t, 12.5, stats.LatencyStats[0].AvgLatencyMs, 0.001)
}

// --- errors ---

func TestAPIErrorExtractsMessage(t *testing.T) {
	fd := newFakeDashboard(t, map[string]any{})

	client := newTestClient(t, fd.URL, false)

	_, err := client.Device(context.Background(), "NOPE")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "Not found", apiErr.Message)
	assert.ErrorIs(t, err, apperrors.ErrAPIResponse)
}

func TestAPIErrorNonJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, false)

	_, err := client.Organizations(context.Background())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Empty(t, apiErr.Message)
}

func TestRequestErrorUnreachable(t *testing.T) {
	client := newTestClient(t, "http://127.0.0.1:1", false)

	_, err := client.Organizations(context.Background())
	require.ErrorIs(t, err, apperrors.ErrAPIRequest)
}
