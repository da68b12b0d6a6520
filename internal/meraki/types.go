package meraki

// Organization is a Meraki dashboard organization.
type Organization struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	API       struct {
		Enabled bool `json:"enabled"`
	} `json:"api"`
	Licensing *struct {
		Model string `json:"model"`
	} `json:"licensing,omitempty"`
	Cloud *struct {
		Region struct {
			Name string `json:"name"`
		} `json:"region"`
	} `json:"cloud,omitempty"`
}

// Network is a network within an organization.
type Network struct {
	ID                      string   `json:"id"`
	OrganizationID          string   `json:"organizationId"`
	Name                    string   `json:"name"`
	ProductTypes            []string `json:"productTypes"`
	TimeZone                string   `json:"timeZone"`
	Tags                    []string `json:"tags,omitempty"`
	EnrollmentString        string   `json:"enrollmentString,omitempty"`
	URL                     string   `json:"url"`
	Notes                   string   `json:"notes,omitempty"`
	IsBoundToConfigTemplate bool     `json:"isBoundToConfigTemplate,omitempty"`
}

// Device is a piece of hardware claimed into a network.
type Device struct {
	Serial          string   `json:"serial"`
	MAC             string   `json:"mac"`
	Name            string   `json:"name,omitempty"`
	Model           string   `json:"model"`
	NetworkID       string   `json:"networkId"`
	ProductType     string   `json:"productType"`
	Tags            []string `json:"tags,omitempty"`
	LANIP           string   `json:"lanIp,omitempty"`
	Firmware        string   `json:"firmware,omitempty"`
	URL             string   `json:"url"`
	Address         string   `json:"address,omitempty"`
	Lat             float64  `json:"lat,omitempty"`
	Lng             float64  `json:"lng,omitempty"`
	Notes           string   `json:"notes,omitempty"`
	Details         []NameValue `json:"details,omitempty"`
	SwitchProfileID string   `json:"switchProfileId,omitempty"`
}

// NameValue is a generic labelled value attached to a device.
type NameValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// DeviceStatus is the connectivity status of a device, as reported at
// the organization level.
type DeviceStatus struct {
	Serial         string `json:"serial"`
	Name           string `json:"name,omitempty"`
	Status         string `json:"status"`
	LastReportedAt string `json:"lastReportedAt"`
	NetworkID      string `json:"networkId"`
	ProductType    string `json:"productType"`
	Model          string `json:"model"`
	PublicIP       string `json:"publicIp,omitempty"`
	LANIP          string `json:"lanIp,omitempty"`
	Gateway        string `json:"gateway,omitempty"`
	IPType         string `json:"ipType,omitempty"`
	PrimaryDNS     string `json:"primaryDns,omitempty"`
	SecondaryDNS   string `json:"secondaryDns,omitempty"`
	Components     *struct {
		PowerSupplies []struct {
			Slot   int    `json:"slot"`
			Status string `json:"status"`
		} `json:"powerSupplies,omitempty"`
	} `json:"components,omitempty"`
}

// NetworkClient is an end-user device observed on a network.
type NetworkClient struct {
	ID                   string `json:"id"`
	MAC                  string `json:"mac"`
	IP                   string `json:"ip,omitempty"`
	IP6                  string `json:"ip6,omitempty"`
	Description          string `json:"description,omitempty"`
	FirstSeen            string `json:"firstSeen"`
	LastSeen             string `json:"lastSeen"`
	Manufacturer         string `json:"manufacturer,omitempty"`
	OS                   string `json:"os,omitempty"`
	User                 string `json:"user,omitempty"`
	VLAN                 string `json:"vlan,omitempty"`
	Switchport           string `json:"switchport,omitempty"`
	WirelessCapabilities string `json:"wirelessCapabilities,omitempty"`
	SMInstalled          bool   `json:"smInstalled,omitempty"`
	RecentDeviceMAC      string `json:"recentDeviceMac,omitempty"`
	Status               string `json:"status"`
	Usage                struct {
		Sent  float64 `json:"sent"`
		Recv  float64 `json:"recv"`
		Total float64 `json:"total"`
	} `json:"usage"`
	NamedVLAN            string `json:"namedVlan,omitempty"`
	AdaptivePolicyGroup  string `json:"adaptivePolicyGroup,omitempty"`
	DeviceTypePrediction string `json:"deviceTypePrediction,omitempty"`
}

// SwitchPort is the configuration of one port on a switch.
type SwitchPort struct {
	PortID                  string   `json:"portId"`
	Name                    string   `json:"name,omitempty"`
	Enabled                 bool     `json:"enabled"`
	PoeEnabled              bool     `json:"poeEnabled"`
	Type                    string   `json:"type"`
	VLAN                    int      `json:"vlan,omitempty"`
	VoiceVLAN               int      `json:"voiceVlan,omitempty"`
	AllowedVLANs            string   `json:"allowedVlans,omitempty"`
	IsolationEnabled        bool     `json:"isolationEnabled"`
	RSTPEnabled             bool     `json:"rstpEnabled"`
	STPGuard                string   `json:"stpGuard"`
	LinkNegotiation         string   `json:"linkNegotiation,omitempty"`
	PortScheduleID          string   `json:"portScheduleId,omitempty"`
	UDLD                    string   `json:"udld,omitempty"`
	AccessPolicyType        string   `json:"accessPolicyType,omitempty"`
	AccessPolicyNumber      int      `json:"accessPolicyNumber,omitempty"`
	MACAllowList            []string `json:"macAllowList,omitempty"`
	StickyMACAllowList      []string `json:"stickyMacAllowList,omitempty"`
	StickyMACAllowListLimit int      `json:"stickyMacAllowListLimit,omitempty"`
	StormControlEnabled     bool     `json:"stormControlEnabled,omitempty"`
	AdaptivePolicyGroupID   string   `json:"adaptivePolicyGroupId,omitempty"`
	PeerSGTCapable          bool     `json:"peerSgtCapable,omitempty"`
	FlexibleStackingEnabled bool     `json:"flexibleStackingEnabled,omitempty"`
	DAITrusted              bool     `json:"daiTrusted,omitempty"`
	Profile                 *struct {
		Enabled bool   `json:"enabled"`
		ID      string `json:"id,omitempty"`
		Iname   string `json:"iname,omitempty"`
	} `json:"profile,omitempty"`
}

// SwitchPortStatus is the live state of one switch port.
type SwitchPortStatus struct {
	PortID    string `json:"portId"`
	Enabled   bool   `json:"enabled"`
	Status    string `json:"status"`
	Speed     string `json:"speed,omitempty"`
	Duplex    string `json:"duplex,omitempty"`
	UsageInKb *struct {
		Total float64 `json:"total"`
		Sent  float64 `json:"sent"`
		Recv  float64 `json:"recv"`
	} `json:"usageInKb,omitempty"`
	CDP *struct {
		SystemName          string `json:"systemName,omitempty"`
		Platform            string `json:"platform,omitempty"`
		DeviceID            string `json:"deviceId,omitempty"`
		PortID              string `json:"portId,omitempty"`
		NativeVLAN          int    `json:"nativeVlan,omitempty"`
		Address             string `json:"address,omitempty"`
		ManagementAddress   string `json:"managementAddress,omitempty"`
		Version             string `json:"version,omitempty"`
		VTPManagementDomain string `json:"vtpManagementDomain,omitempty"`
		Capabilities        string `json:"capabilities,omitempty"`
	} `json:"cdp,omitempty"`
	LLDP *struct {
		SystemName         string `json:"systemName,omitempty"`
		SystemDescription  string `json:"systemDescription,omitempty"`
		ChassisID          string `json:"chassisId,omitempty"`
		PortID             string `json:"portId,omitempty"`
		ManagementVLAN     int    `json:"managementVlan,omitempty"`
		PortVLAN           int    `json:"portVlan,omitempty"`
		ManagementAddress  string `json:"managementAddress,omitempty"`
		PortDescription    string `json:"portDescription,omitempty"`
		SystemCapabilities string `json:"systemCapabilities,omitempty"`
	} `json:"lldp,omitempty"`
	ClientCount    int     `json:"clientCount,omitempty"`
	PowerUsageInWh float64 `json:"powerUsageInWh,omitempty"`
	TrafficInKbps  *struct {
		Total float64 `json:"total,omitempty"`
		Sent  float64 `json:"sent,omitempty"`
		Recv  float64 `json:"recv,omitempty"`
	} `json:"trafficInKbps,omitempty"`
	SecurePort *struct {
		Enabled              bool   `json:"enabled"`
		Active               bool   `json:"active"`
		AuthenticationStatus string `json:"authenticationStatus,omitempty"`
		ConfigOverrides      *struct {
			Type      string `json:"type,omitempty"`
			VLAN      int    `json:"vlan,omitempty"`
			VoiceVLAN int    `json:"voiceVlan,omitempty"`
		} `json:"configOverrides,omitempty"`
	} `json:"securePort,omitempty"`
}

// ManagementWAN is one WAN uplink of a device's management interface.
type ManagementWAN struct {
	WANEnabled       string   `json:"wanEnabled,omitempty"`
	UsingStaticIP    bool     `json:"usingStaticIp,omitempty"`
	StaticIP         string   `json:"staticIp,omitempty"`
	StaticSubnetMask string   `json:"staticSubnetMask,omitempty"`
	StaticGatewayIP  string   `json:"staticGatewayIp,omitempty"`
	StaticDNS        []string `json:"staticDns,omitempty"`
	VLAN             int      `json:"vlan,omitempty"`
}

// ManagementInterface is a device's uplink configuration.
type ManagementInterface struct {
	WAN1 *ManagementWAN `json:"wan1,omitempty"`
	WAN2 *ManagementWAN `json:"wan2,omitempty"`
}

// RadioBandSettings are per-band radio limits on an access point.
type RadioBandSettings struct {
	MaxPower          int   `json:"maxPower,omitempty"`
	MinPower          int   `json:"minPower,omitempty"`
	MinBitrate        int   `json:"minBitrate,omitempty"`
	ValidAutoChannels []int `json:"validAutoChannels,omitempty"`
}

// WirelessRadioSettings is the radio configuration of an access point.
type WirelessRadioSettings struct {
	RFProfileID        string             `json:"rfProfileId,omitempty"`
	Channel            int                `json:"channel,omitempty"`
	ChannelWidth       int                `json:"channelWidth,omitempty"`
	TargetPower        int                `json:"targetPower,omitempty"`
	TwoFourGhzSettings *RadioBandSettings `json:"twoFourGhzSettings,omitempty"`
	FiveGhzSettings    *RadioBandSettings `json:"fiveGhzSettings,omitempty"`
}

// WirelessStatus lists the SSIDs an access point is broadcasting.
type WirelessStatus struct {
	BasicServiceSets []struct {
		SSIDName     string `json:"ssidName,omitempty"`
		SSIDNumber   int    `json:"ssidNumber,omitempty"`
		Enabled      bool   `json:"enabled,omitempty"`
		Band         string `json:"band,omitempty"`
		BSSID        string `json:"bssid,omitempty"`
		Channel      int    `json:"channel,omitempty"`
		ChannelWidth int    `json:"channelWidth,omitempty"`
		Power        int    `json:"power,omitempty"`
	} `json:"basicServiceSets,omitempty"`
}

// WirelessLatencyStats are aggregated latency figures for one access
// point over a timespan.
type WirelessLatencyStats struct {
	Serial       string `json:"serial,omitempty"`
	NetworkID    string `json:"networkId,omitempty"`
	LatencyStats []struct {
		Timespan     int     `json:"timespan,omitempty"`
		AvgLatencyMs float64 `json:"avgLatencyMs,omitempty"`
	} `json:"latencyStats,omitempty"`
}

// SwitchRoutingInterface is a layer-3 interface on a switch.
type SwitchRoutingInterface struct {
	InterfaceID      string `json:"interfaceId,omitempty"`
	Name             string `json:"name,omitempty"`
	Subnet           string `json:"subnet,omitempty"`
	InterfaceIP      string `json:"interfaceIp,omitempty"`
	MulticastRouting string `json:"multicastRouting,omitempty"`
	VLANID           int    `json:"vlanId,omitempty"`
	DefaultGateway   string `json:"defaultGateway,omitempty"`
	OSPFSettings     *struct {
		Area             string `json:"area,omitempty"`
		Cost             int    `json:"cost,omitempty"`
		IsPassiveEnabled bool   `json:"isPassiveEnabled,omitempty"`
	} `json:"ospfSettings,omitempty"`
}

// SwitchStaticRoute is a static route configured on a switch.
type SwitchStaticRoute struct {
	RouteID            string `json:"routeId,omitempty"`
	Name               string `json:"name,omitempty"`
	Subnet             string `json:"subnet,omitempty"`
	GatewayIP          string `json:"gatewayIp,omitempty"`
	GatewayVLANID      int    `json:"gatewayVlanId,omitempty"`
	Enabled            bool   `json:"enabled,omitempty"`
	FixedIPAssignments []struct {
		Name string `json:"name,omitempty"`
		IP   string `json:"ip,omitempty"`
	} `json:"fixedIpAssignments,omitempty"`
	ReservedIPRanges []struct {
		Start   string `json:"start,omitempty"`
		End     string `json:"end,omitempty"`
		Comment string `json:"comment,omitempty"`
	} `json:"reservedIpRanges,omitempty"`
}

// NetworkTraffic is one application row of a network's traffic analysis.
type NetworkTraffic struct {
	Application string  `json:"application,omitempty"`
	Destination string  `json:"destination,omitempty"`
	Protocol    string  `json:"protocol,omitempty"`
	Port        int     `json:"port,omitempty"`
	Recv        float64 `json:"recv,omitempty"`
	Sent        float64 `json:"sent,omitempty"`
	NumClients  int     `json:"numClients,omitempty"`
	ActiveTime  int     `json:"activeTime,omitempty"`
	Flows       int     `json:"flows,omitempty"`
}

// NetworkEvent is one entry from a network's event log.
type NetworkEvent struct {
	OccurredAt        string         `json:"occurredAt,omitempty"`
	NetworkID         string         `json:"networkId,omitempty"`
	Type              string         `json:"type,omitempty"`
	Description       string         `json:"description,omitempty"`
	ClientID          string         `json:"clientId,omitempty"`
	ClientDescription string         `json:"clientDescription,omitempty"`
	ClientMAC         string         `json:"clientMac,omitempty"`
	DeviceSerial      string         `json:"deviceSerial,omitempty"`
	DeviceName        string         `json:"deviceName,omitempty"`
	SSIDNumber        int            `json:"ssidNumber,omitempty"`
	EventData         map[string]any `json:"eventData,omitempty"`
}
