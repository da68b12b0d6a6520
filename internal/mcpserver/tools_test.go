package mcpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/macharpe/meraki-mcp/internal/meraki"
)

// testSetup stands up a fake Dashboard API, registers the tools, and
// returns a connected client session.
func testSetup(t *testing.T) *mcp.ClientSession {
	t.Helper()

	responses := map[string]any{
		"/organizations": []map[string]any{
			{"id": "o1", "name": "Acme", "url": "https://dash/o1", "api": map[string]bool{"enabled": true}},
			{"id": "o2", "name": "Globex", "url": "https://dash/o2", "api": map[string]bool{"enabled": false}},
		},
		"/organizations/o1": map[string]any{"id": "o1", "name": "Acme"},
		"/organizations/o1/networks": []map[string]any{
			{"id": "n1", "organizationId": "o1", "name": "HQ", "productTypes": []string{"switch"}},
		},
		"/networks/n1": map[string]any{"id": "n1", "name": "HQ"},
		"/networks/n1/devices": []map[string]any{
			{"serial": "Q2XX-1", "mac": "aa:aa", "model": "MS220", "networkId": "n1", "productType": "switch"},
		},
		"/devices/Q2XX-1": map[string]any{"serial": "Q2XX-1", "model": "MS220"},
		"/networks/n1/clients?timespan=86400": []map[string]any{
			{"id": "c1", "mac": "bb:bb", "status": "online"},
		},
		"/devices/Q2XX-1/switch/ports": []map[string]any{
			{"portId": "1", "enabled": true, "type": "access"},
			{"portId": "2", "enabled": false, "type": "trunk"},
		},
		"/devices/Q2XX-9/wireless/status": map[string]any{
			"basicServiceSets": []map[string]any{
				{"ssidName": "corp", "enabled": true, "band": "5 GHz"},
			},
		},
		"/networks/n1/events?perPage=10": []map[string]any{
			{"occurredAt": "2026-02-01T00:00:00Z", "type": "association", "description": "client joined"},
		},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path
		if r.URL.RawQuery != "" {
			key += "?" + r.URL.RawQuery
		}

		body, ok := responses[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":["Not found"]}`))

			return
		}

		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)

	client, err := meraki.NewClient(meraki.Options{APIKey: "k", BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	server := NewServer(client)

	ctx := context.Background()
	t1, t2 := mcp.NewInMemoryTransports()

	_, err = server.Connect(ctx, t1, nil)
	require.NoError(t, err)

	mcpClient := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "test"}, nil)

	session, err := mcpClient.Connect(ctx, t2, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	return session
}

func callTool(t *testing.T, session *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	require.NoError(t, err)

	return result
}

// firstText returns the first text content of a result.
func firstText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()

	require.NotEmpty(t, result.Content, "result has no content")
	tc, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok, "first content is not TextContent")

	return tc.Text
}

func TestToolsAreRegistered(t *testing.T) {
	session := testSetup(t)

	resp, err := session.ListTools(context.Background(), &mcp.ListToolsParams{})
	require.NoError(t, err)

	names := make(map[string]*mcp.Tool, len(resp.Tools))
	for _, tool := range resp.Tools {
		names[tool.Name] = tool
	}

	expected := []string{
		"meraki_get_organizations",
		"meraki_get_organization",
		"meraki_get_networks",
		"meraki_get_network",
		"meraki_get_network_traffic",
		"meraki_get_network_events",
		"meraki_get_devices",
		"meraki_get_device",
		"meraki_get_clients",
		"meraki_get_device_statuses",
		"meraki_get_management_interface",
		"meraki_get_switch_ports",
		"meraki_get_switch_port_statuses",
		"meraki_get_switch_routing_interfaces",
		"meraki_get_switch_static_routes",
		"meraki_get_wireless_radio_settings",
		"meraki_get_wireless_status",
		"meraki_get_wireless_latency_stats",
	}

	for _, name := range expected {
		tool, ok := names[name]
		require.True(t, ok, "missing tool %s", name)
		require.NotNil(t, tool.Annotations, "tool %s has no annotations", name)
		assert.True(t, tool.Annotations.ReadOnlyHint, "tool %s should be read-only", name)
	}

	assert.Len(t, resp.Tools, len(expected))
}

func TestGetOrganizations(t *testing.T) {
	session := testSetup(t)

	result := callTool(t, session, "meraki_get_organizations", nil)
	assert.False(t, result.IsError)

	text := firstText(t, result)
	assert.Equal(t, int64(2), gjson.Get(text, "#").Int())
	assert.Equal(t, "Acme", gjson.Get(text, "0.name").String())
	assert.True(t, gjson.Get(text, "0.api.enabled").Bool())
}

func TestGetNetworks(t *testing.T) {
	session := testSetup(t)

	result := callTool(t, session, "meraki_get_networks", map[string]any{"organizationId": "o1"})
	assert.False(t, result.IsError)

	text := firstText(t, result)
	assert.Equal(t, "HQ", gjson.Get(text, "0.name").String())
	assert.Equal(t, "o1", gjson.Get(text, "0.organizationId").String())
}

func TestGetClientsDefaultsTimespan(t *testing.T) {
	session := testSetup(t)

	result := callTool(t, session, "meraki_get_clients", map[string]any{"networkId": "n1"})
	assert.False(t, result.IsError)

	text := firstText(t, result)
	assert.Equal(t, "bb:bb", gjson.Get(text, "0.mac").String())
}

func TestGetSwitchPorts(t *testing.T) {
	session := testSetup(t)

	result := callTool(t, session, "meraki_get_switch_ports", map[string]any{"serial": "Q2XX-1"})
	assert.False(t, result.IsError)

	text := firstText(t, result)
	assert.Equal(t, int64(2), gjson.Get(text, "#").Int())
	assert.Equal(t, "trunk", gjson.Get(text, "1.type").String())
}

func TestGetWirelessStatus(t *testing.T) {
	session := testSetup(t)

	result := callTool(t, session, "meraki_get_wireless_status", map[string]any{"serial": "Q2XX-9"})
	assert.False(t, result.IsError)

	text := firstText(t, result)
	assert.Equal(t, "corp", gjson.Get(text, "basicServiceSets.0.ssidName").String())
}

func TestAPIErrorSurfacesAsToolError(t *testing.T) {
	session := testSetup(t)

	result := callTool(t, session, "meraki_get_device", map[string]any{"serial": "MISSING"})
	require.True(t, result.IsError)

	text := firstText(t, result)
	assert.Contains(t, text, "404")
}

// --- keep-alive ---

func TestKeepAliveSessionStaysUsable(t *testing.T) {
	dashboard := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"o1","name":"Acme"}]`))
	}))
	t.Cleanup(dashboard.Close)

	client, err := meraki.NewClient(meraki.Options{APIKey: "k", BaseURL: dashboard.URL}, nil)
	require.NoError(t, err)

	server := mcp.NewServer(
		&mcp.Implementation{Name: ServerName, Version: ServerVersion},
		&mcp.ServerOptions{KeepAlive: 20 * time.Millisecond},
	)
	RegisterTools(server, client)

	ctx := context.Background()
	t1, t2 := mcp.NewInMemoryTransports()

	_, err = server.Connect(ctx, t1, nil)
	require.NoError(t, err)

	mcpClient := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "test"}, nil)
	session, err := mcpClient.Connect(ctx, t2, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	// Let several ping rounds pass. An unanswered ping makes the
	// server close the session, which would fail the call below.
	time.Sleep(100 * time.Millisecond)

	result := callTool(t, session, "meraki_get_organizations", map[string]any{})
	assert.False(t, result.IsError)
}
