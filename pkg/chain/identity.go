package chain

// LocationDetails is the self-reported geographic location of a node.
type LocationDetails struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Country   string  `json:"country"`
}

// NodeIdentity is the descriptive metadata registered for a validator,
// keyed by its public key. The registry's insertion order defines the
// identity-order bit positions of stored voter bitmaps, so entries are
// append-only.
type NodeIdentity struct {
	PublicKey       PubKey           `json:"public_key"`
	Name            string           `json:"name"`
	WalletAddress   string           `json:"wallet_address,omitempty"`
	Location        *LocationDetails `json:"location,omitempty"`
	OperatingSystem string           `json:"operating_system,omitempty"`
	NodeType        string           `json:"node_type,omitempty"`
	NetworkType     string           `json:"network_type,omitempty"`
}
