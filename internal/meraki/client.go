// Package meraki is a read-only client for the Meraki Dashboard API,
// covering the organization, network, device, switch, and wireless
// endpoints the MCP tools expose. Stable listings are cached; live
// status endpoints always hit the API.
package meraki

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/macharpe/meraki-mcp/internal/cache"
	apperrors "github.com/macharpe/meraki-mcp/internal/errors"
)

// DefaultBaseURL is the public Meraki Dashboard API endpoint.
const DefaultBaseURL = "https://api.meraki.com/api/v1"

const (
	requestTimeout = 30 * time.Second

	// DefaultClientTimespan is the lookback for client listings, in
	// seconds.
	DefaultClientTimespan = 86400

	// DefaultPortStatusTimespan is the lookback for switch port
	// status queries, in seconds.
	DefaultPortStatusTimespan = 300
)

// APIError is a non-2xx response from the Dashboard API. Message holds
// the first error string from the response body when one is present.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("meraki api error: %d: %s", e.StatusCode, e.Message)
	}

	return fmt.Sprintf("meraki api error: %d", e.StatusCode)
}

func (e *APIError) Unwrap() error { return apperrors.ErrAPIResponse }

// Client calls the Meraki Dashboard API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	cache      *cache.Cache

	orgTTL     time.Duration
	networkTTL time.Duration
}

// Options configures a Client. Zero TTLs fall back to the package
// defaults in cache.
type Options struct {
	APIKey  string
	BaseURL string

	OrganizationsTTL time.Duration
	NetworksTTL      time.Duration

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// NewClient creates a Dashboard API client. The cache may be nil, in
// which case every call goes to the API.
func NewClient(opts Options, c *cache.Cache) (*Client, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: api key is required", apperrors.ErrAPIRequest)
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}

	orgTTL := opts.OrganizationsTTL
	if orgTTL <= 0 {
		orgTTL = cache.TTLOrganizations
	}

	networkTTL := opts.NetworksTTL
	if networkTTL <= 0 {
		networkTTL = cache.TTLNetworks
	}

	return &Client{
		apiKey:     opts.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		cache:      c,
		orgTTL:     orgTTL,
		networkTTL: networkTTL,
	}, nil
}

// get performs an authenticated GET against the Dashboard API and
// decodes the JSON response into out.
func get[T any](ctx context.Context, c *Client, endpoint string) (T, error) {
	var out T

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return out, fmt.Errorf("%w: building request for %s: %v", apperrors.ErrAPIRequest, endpoint, err)
	}

	req.Header.Set("X-Cisco-Meraki-API-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return out, fmt.Errorf("%w: %s: %v", apperrors.ErrAPIRequest, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))

		return out, &APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(body),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return out, fmt.Errorf("%w: reading %s: %v", apperrors.ErrAPIResponse, endpoint, err)
	}

	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("%w: decoding %s: %v", apperrors.ErrAPIResponse, endpoint, err)
	}

	return out, nil
}

// errorMessage pulls the first human-readable error out of a Dashboard
// error body. The API wraps errors as {"errors": ["..."]}.
func errorMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}

	if first := gjson.GetBytes(body, "errors.0"); first.Exists() {
		return first.String()
	}

	return gjson.GetBytes(body, "error").String()
}

// cached routes a fetch through the TTL cache when one is configured.
func cached[T any](ctx context.Context, c *Client, key string, ttl time.Duration, endpoint string) (T, error) {
	if c.cache == nil {
		return get[T](ctx, c, endpoint)
	}

	return cache.Fetch(c.cache, key, ttl, func() (T, error) {
		return get[T](ctx, c, endpoint)
	})
}

// --- Organizations ---

func (c *Client) Organizations(ctx context.Context) ([]Organization, error) {
	return cached[[]Organization](ctx, c, cache.OrganizationsKey(), c.orgTTL, "/organizations")
}

func (c *Client) Organization(ctx context.Context, organizationID string) (Organization, error) {
	return get[Organization](ctx, c, "/organizations/"+url.PathEscape(organizationID))
}

// --- Networks ---

func (c *Client) Networks(ctx context.Context, organizationID string) ([]Network, error) {
	endpoint := "/organizations/" + url.PathEscape(organizationID) + "/networks"

	return cached[[]Network](ctx, c, cache.NetworksKey(organizationID), c.networkTTL, endpoint)
}

func (c *Client) Network(ctx context.Context, networkID string) (Network, error) {
	return get[Network](ctx, c, "/networks/"+url.PathEscape(networkID))
}

// --- Devices ---

func (c *Client) Devices(ctx context.Context, networkID string) ([]Device, error) {
	endpoint := "/networks/" + url.PathEscape(networkID) + "/devices"

	return cached[[]Device](ctx, c, cache.DevicesKey(networkID), cache.TTLDevices, endpoint)
}

func (c *Client) Device(ctx context.Context, serial string) (Device, error) {
	return get[Device](ctx, c, "/devices/"+url.PathEscape(serial))
}

func (c *Client) DeviceStatuses(ctx context.Context, organizationID string) ([]DeviceStatus, error) {
	endpoint := "/organizations/" + url.PathEscape(organizationID) + "/devices/statuses"

	return get[[]DeviceStatus](ctx, c, endpoint)
}

// --- Clients ---

func (c *Client) Clients(ctx context.Context, networkID string, timespan int) ([]NetworkClient, error) {
	if timespan <= 0 {
		timespan = DefaultClientTimespan
	}

	endpoint := "/networks/" + url.PathEscape(networkID) + "/clients?timespan=" + strconv.Itoa(timespan)

	return cached[[]NetworkClient](ctx, c, cache.ClientsKey(networkID, timespan), cache.TTLClients, endpoint)
}

// --- Switch ---

func (c *Client) SwitchPorts(ctx context.Context, serial string) ([]SwitchPort, error) {
	return get[[]SwitchPort](ctx, c, "/devices/"+url.PathEscape(serial)+"/switch/ports")
}

func (c *Client) SwitchPortStatuses(ctx context.Context, serial string, timespan int) ([]SwitchPortStatus, error) {
	if timespan <= 0 {
		timespan = DefaultPortStatusTimespan
	}

	endpoint := "/devices/" + url.PathEscape(serial) + "/switch/ports/statuses?timespan=" + strconv.Itoa(timespan)

	return get[[]SwitchPortStatus](ctx, c, endpoint)
}

func (c *Client) SwitchRoutingInterfaces(ctx context.Context, serial string) ([]SwitchRoutingInterface, error) {
	return get[[]SwitchRoutingInterface](ctx, c, "/devices/"+url.PathEscape(serial)+"/switch/routing/interfaces")
}

func (c *Client) SwitchStaticRoutes(ctx context.Context, serial string) ([]SwitchStaticRoute, error) {
	return get[[]SwitchStaticRoute](ctx, c, "/devices/"+url.PathEscape(serial)+"/switch/routing/staticRoutes")
}

// --- Management interface ---

func (c *Client) ManagementInterface(ctx context.Context, serial string) (ManagementInterface, error) {
	return get[ManagementInterface](ctx, c, "/devices/"+url.PathEscape(serial)+"/managementInterface")
}

// --- Wireless ---

func (c *Client) WirelessRadioSettings(ctx context.Context, serial string) (WirelessRadioSettings, error) {
	return get[WirelessRadioSettings](ctx, c, "/devices/"+url.PathEscape(serial)+"/wireless/radio/settings")
}

func (c *Client) WirelessStatus(ctx context.Context, serial string) (WirelessStatus, error) {
	return get[WirelessStatus](ctx, c, "/devices/"+url.PathEscape(serial)+"/wireless/status")
}

func (c *Client) WirelessLatencyStats(ctx context.Context, serial string, timespan int) (WirelessLatencyStats, error) {
	if timespan <= 0 {
		timespan = DefaultClientTimespan
	}

	endpoint := "/devices/" + url.PathEscape(serial) + "/wireless/latencyStats?timespan=" + strconv.Itoa(timespan)

	return get[WirelessLatencyStats](ctx, c, endpoint)
}

// --- Network analytics ---

func (c *Client) NetworkTraffic(ctx context.Context, networkID string, timespan int) ([]NetworkTraffic, error) {
	if timespan <= 0 {
		timespan = DefaultClientTimespan
	}

	endpoint := "/networks/" + url.PathEscape(networkID) + "/traffic?timespan=" + strconv.Itoa(timespan)

	return get[[]NetworkTraffic](ctx, c, endpoint)
}

func (c *Client) NetworkEvents(ctx context.Context, networkID string, perPage int) ([]NetworkEvent, error) {
	if perPage <= 0 {
		perPage = 10
	}

	endpoint := "/networks/" + url.PathEscape(networkID) + "/events?perPage=" + strconv.Itoa(perPage)

	return get[[]NetworkEvent](ctx, c, endpoint)
}
