// Package mcpserver registers MCP tools that expose Meraki Dashboard
// data. It adapts the meraki package to the MCP SDK's tool handler
// interface. Every tool is read-only.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/macharpe/meraki-mcp/internal/meraki"
)

// ServerName is the MCP implementation name presented to clients.
const ServerName = "Cisco Meraki MCP Server"

// ServerVersion is the MCP implementation version presented to
// clients.
const ServerVersion = "1.0.0"

// KeepAliveInterval is how often the server pings connected sessions.
// Long-lived SSE connections depend on this traffic to stay open
// through proxies and to detect dead peers.
const KeepAliveInterval = 30 * time.Second

// NewServer builds an MCP server with all Meraki tools registered.
func NewServer(client *meraki.Client) *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{Name: ServerName, Version: ServerVersion},
		&mcp.ServerOptions{KeepAlive: KeepAliveInterval},
	)
	RegisterTools(server, client)

	return server
}

// addTool registers one read-only tool with a title derived from its
// short name.
func addTool[In, Out any](server *mcp.Server, name, description string, handler mcp.ToolHandlerFor[In, Out]) {
	words := strings.Split(name, "_")
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	title := strings.Join(words, " ")

	mcp.AddTool(server, &mcp.Tool{
		Name:        "meraki_" + name,
		Description: description,
		Annotations: &mcp.ToolAnnotations{
			Title:        title,
			ReadOnlyHint: true,
		},
	}, handler)
}

// RegisterTools adds all Meraki tools to the given MCP server.
func RegisterTools(server *mcp.Server, client *meraki.Client) {
	// Organization and network management.
	addTool(server, "get_organizations", "Get all Meraki organizations",
		func(ctx context.Context, _ *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, []meraki.Organization, error) {
			out, err := client.Organizations(ctx)
			if err != nil {
				return nil, nil, err
			}
			return textResult(out), out, nil
		})

	addTool(server, "get_organization", "Get details for a specific organization",
		func(ctx context.Context, _ *mcp.CallToolRequest, in OrganizationInput) (*mcp.CallToolResult, meraki.Organization, error) {
			out, err := client.Organization(ctx, in.OrganizationID)
			if err != nil {
				return nil, meraki.Organization{}, err
			}
			return textResult(out), out, nil
		})

	addTool(server, "get_networks", "Get all networks in an organization",
		func(ctx context.Context, _ *mcp.CallToolRequest, in OrganizationInput) (*mcp.CallToolResult, []meraki.Network, error) {
			out, err := client.Networks(ctx, in.OrganizationID)
			if err != nil {
				return nil, nil, err
			}
			return textResult(out), out, nil
		})

	addTool(server, "get_network", "Get details for a specific network",
		func(ctx context.Context, _ *mcp.CallToolRequest, in NetworkInput) (*mcp.CallToolResult, meraki.Network, error) {
			out, err := client.Network(ctx, in.NetworkID)
			if err != nil {
				return nil, meraki.Network{}, err
			}
			return textResult(out), out, nil
		})

	addTool(server, "get_network_traffic", "Get network traffic statistics",
		func(ctx context.Context, _ *mcp.CallToolRequest, in NetworkTimespanInput) (*mcp.CallToolResult, []meraki.NetworkTraffic, error) {
			out, err := client.NetworkTraffic(ctx, in.NetworkID, in.Timespan)
			if err != nil {
				return nil, nil, err
			}
			return textResult(out), out, nil
		})

	addTool(server, "get_network_events", "Get recent network events",
		func(ctx context.Context, _ *mcp.CallToolRequest, in NetworkEventsInput) (*mcp.CallToolResult, []meraki.NetworkEvent, error) {
			out, err := client.NetworkEvents(ctx, in.NetworkID, in.PerPage)
			if err != nil {
				return nil, nil, err
			}
			return textResult(out), out, nil
		})

	// Device management.
	addTool(server, "get_devices", "Get all devices in a network",
		func(ctx context.Context, _ *mcp.CallToolRequest, in NetworkInput) (*mcp.CallToolResult, []meraki.Device, error) {
			out, err := client.Devices(ctx, in.NetworkID)
			if err != nil {
				return nil, nil, err
			}
			return textResult(out), out, nil
		})

	addTool(server, "get_device", "Get details for a specific device",
		func(ctx context.Context, _ *mcp.CallToolRequest, in SerialInput) (*mcp.CallToolResult, meraki.Device, error) {
			out, err := client.Device(ctx, in.Serial)
			if err != nil {
				return nil, meraki.Device{}, err
			}
			return textResult(out), out, nil
		})

	addTool(server, "get_clients", "Get clients connected to a network",
		func(ctx context.Context, _ *mcp.CallToolRequest, in NetworkTimespanInput) (*mcp.CallToolResult, []meraki.NetworkClient, error) {
			out, err := client.Clients(ctx, in.NetworkID, in.Timespan)
			if err != nil {
				return nil, nil, err
			}
			return textResult(out), out, nil
		})

	addTool(server, "get_device_statuses", "Get device statuses for an organization",
		func(ctx context.Context, _ *mcp.CallToolRequest, in OrganizationInput) (*mcp.CallToolResult, []meraki.DeviceStatus, error) {
			out, err := client.DeviceStatuses(ctx, in.OrganizationID)
			if err != nil {
				return nil, nil, err
			}
			return textResult(out), out, nil
		})

	addTool(server, "get_management_interface", "Get management interface settings for a device",
		func(ctx context.Context, _ *mcp.CallToolRequest, in SerialInput) (*mcp.CallToolResult, meraki.ManagementInterface, error) {
			out, err := client.ManagementInterface(ctx, in.Serial)
			if err != nil {
				return nil, meraki.ManagementInterface{}, err
			}
			return textResult(out), out, nil
		})

	// Switch tools.
	addTool(server, "get_switch_ports", "Get switch ports for a device",
		func(ctx context.Context, _ *mcp.CallToolRequest, in SerialInput) (*mcp.CallToolResult, []meraki.SwitchPort, error) {
			out, err := client.SwitchPorts(ctx, in.Serial)
			if err != nil {
				return nil, nil, err
			}
			return textResult(out), out, nil
		})

	addTool(server, "get_switch_port_statuses", "Get switch port statuses for a device",
		func(ctx context.Context, _ *mcp.CallToolRequest, in SerialTimespanInput) (*mcp.CallToolResult, []meraki.SwitchPortStatus, error) {
			out, err := client.SwitchPortStatuses(ctx, in.Serial, in.Timespan)
			if err != nil {
				return nil, nil, err
			}
			return textResult(out), out, nil
		})

	addTool(server, "get_switch_routing_interfaces", "Get routing interfaces for a switch",
		func(ctx context.Context, _ *mcp.CallToolRequest, in SerialInput) (*mcp.CallToolResult, []meraki.SwitchRoutingInterface, error) {
			out, err := client.SwitchRoutingInterfaces(ctx, in.Serial)
			if err != nil {
				return nil, nil, err
			}
			return textResult(out), out, nil
		})

	addTool(server, "get_switch_static_routes", "Get static routes for a switch",
		func(ctx context.Context, _ *mcp.CallToolRequest, in SerialInput) (*mcp.CallToolResult, []meraki.SwitchStaticRoute, error) {
			out, err := client.SwitchStaticRoutes(ctx, in.Serial)
			if err != nil {
				return nil, nil, err
			}
			return textResult(out), out, nil
		})

	// Wireless tools.
	addTool(server, "get_wireless_radio_settings", "Get wireless radio settings for an access point",
		func(ctx context.Context, _ *mcp.CallToolRequest, in SerialInput) (*mcp.CallToolResult, meraki.WirelessRadioSettings, error) {
			out, err := client.WirelessRadioSettings(ctx, in.Serial)
			if err != nil {
				return nil, meraki.WirelessRadioSettings{}, err
			}
			return textResult(out), out, nil
		})

	addTool(server, "get_wireless_status", "Get wireless status of an access point",
		func(ctx context.Context, _ *mcp.CallToolRequest, in SerialInput) (*mcp.CallToolResult, meraki.WirelessStatus, error) {
			out, err := client.WirelessStatus(ctx, in.Serial)
			if err != nil {
				return nil, meraki.WirelessStatus{}, err
			}
			return textResult(out), out, nil
		})

	addTool(server, "get_wireless_latency_stats", "Get wireless latency statistics for an access point",
		func(ctx context.Context, _ *mcp.CallToolRequest, in SerialTimespanInput) (*mcp.CallToolResult, meraki.WirelessLatencyStats, error) {
			out, err := client.WirelessLatencyStats(ctx, in.Serial, in.Timespan)
			if err != nil {
				return nil, meraki.WirelessLatencyStats{}, err
			}
			return textResult(out), out, nil
		})
}

// --- Input types ---
// The MCP SDK infers JSON schema from these struct types via
// jsonschema tags.

// EmptyInput has no parameters.
type EmptyInput struct{}

// OrganizationInput identifies one organization.
type OrganizationInput struct {
	OrganizationID string `json:"organizationId" jsonschema:"required,the organization ID"`
}

// NetworkInput identifies one network.
type NetworkInput struct {
	NetworkID string `json:"networkId" jsonschema:"required,the network ID"`
}

// NetworkTimespanInput identifies a network with a lookback window.
type NetworkTimespanInput struct {
	NetworkID string `json:"networkId" jsonschema:"required,the network ID"`
	Timespan  int    `json:"timespan,omitempty" jsonschema:"time span in seconds, defaults to 86400"`
}

// NetworkEventsInput identifies a network with a page size.
type NetworkEventsInput struct {
	NetworkID string `json:"networkId" jsonschema:"required,the network ID"`
	PerPage   int    `json:"perPage,omitempty" jsonschema:"number of events per page, defaults to 10"`
}

// SerialInput identifies one device.
type SerialInput struct {
	Serial string `json:"serial" jsonschema:"required,the device serial number"`
}

// SerialTimespanInput identifies a device with a lookback window.
type SerialTimespanInput struct {
	Serial   string `json:"serial" jsonschema:"required,the device serial number"`
	Timespan int    `json:"timespan,omitempty" jsonschema:"time span in seconds"`
}

// textResult builds a CallToolResult with JSON text content from any
// value, alongside the structured output the SDK populates.
func textResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("error marshaling result: %v", err)}},
			IsError: true,
		}
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}
}
