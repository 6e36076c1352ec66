package transform

import "github.com/sveitser/node-telemetry/pkg/chain"

// NodeIdentity is the view model for one registered validator identity.
// The slice position of an identity matches its bit position in served
// voter bitmaps.
type NodeIdentity struct {
	PublicKey       string                 `json:"public_key"`
	Name            string                 `json:"name"`
	WalletAddress   string                 `json:"wallet_address,omitempty"`
	Location        *chain.LocationDetails `json:"location,omitempty"`
	OperatingSystem string                 `json:"operating_system,omitempty"`
	NodeType        string                 `json:"node_type,omitempty"`
	NetworkType     string                 `json:"network_type,omitempty"`
}

// NodeView converts a chain.NodeIdentity to its view model.
func NodeView(n chain.NodeIdentity) *NodeIdentity {
	return &NodeIdentity{
		PublicKey:       n.PublicKey.Hex(),
		Name:            n.Name,
		WalletAddress:   n.WalletAddress,
		Location:        n.Location,
		OperatingSystem: n.OperatingSystem,
		NodeType:        n.NodeType,
		NetworkType:     n.NetworkType,
	}
}

// NodeViews converts the identity registry in insertion order.
func NodeViews(nodes []chain.NodeIdentity) []*NodeIdentity {
	out := make([]*NodeIdentity, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, NodeView(n))
	}
	return out
}

// StakeTableEntry is the view model for one stake-table row.
type StakeTableEntry struct {
	PublicKey string `json:"public_key"`
	Stake     uint64 `json:"stake"`
	StateKey  string `json:"state_key,omitempty"`
}

// StakeEntryViews converts a stake-table enumeration in its defined order.
func StakeEntryViews(entries []chain.StakeTableEntry) []*StakeTableEntry {
	out := make([]*StakeTableEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, &StakeTableEntry{
			PublicKey: e.PublicKey.Hex(),
			Stake:     e.Stake,
			StateKey:  e.StateKey,
		})
	}
	return out
}
