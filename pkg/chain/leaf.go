package chain

import "github.com/prysmaticlabs/go-bitfield"

// Transaction is the raw payload bytes of a single transaction.
type Transaction []byte

// Payload holds the transactions of one block.
type Payload struct {
	Transactions []Transaction `json:"transactions"`
}

// EmptyPayload returns the canonical empty payload, used when a leaf carries
// no payload at all.
func EmptyPayload() *Payload {
	return &Payload{}
}

// Header is the finalized block header carried by a leaf.
type Header struct {
	Hash      Hash   `json:"hash"`
	Height    uint64 `json:"height"`
	Timestamp uint64 `json:"timestamp"` // unix seconds, as produced by consensus

	Proposer     PubKey `json:"proposer"`
	FeeRecipient PubKey `json:"fee_recipient"`
	FeeBalance   uint64 `json:"fee_balance"`
}

// QuorumCertificate is the aggregate signature artifact that finalized a leaf.
// Signers is a bitlist in stake-table order: bit i is set iff stake-table
// entry i contributed a signature. It may be empty (genesis).
type QuorumCertificate struct {
	Signers bitfield.Bitlist `json:"signers,omitempty"`
}

// Leaf is one finalized unit of consensus output.
type Leaf struct {
	Header  Header            `json:"header"`
	Payload *Payload          `json:"payload,omitempty"`
	QC      QuorumCertificate `json:"qc"`
}
