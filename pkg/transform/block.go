package transform

import (
	"time"

	"github.com/sveitser/node-telemetry/pkg/chain"
)

// BlockSummary is the view model for one finalized block.
type BlockSummary struct {
	Hash            string   `json:"hash"`
	Height          uint64   `json:"height"`
	Time            string   `json:"time"`
	Proposer        string   `json:"proposer"`
	NumTransactions uint64   `json:"num_transactions"`
	BlockReward     []uint64 `json:"block_reward"`
	FeeRecipient    string   `json:"fee_recipient"`
	Size            uint64   `json:"size"`
}

// SummaryView converts a chain.BlockSummary to its view model.
func SummaryView(s chain.BlockSummary) *BlockSummary {
	return &BlockSummary{
		Hash:            s.Hash.Hex(),
		Height:          s.Height,
		Time:            s.Time.Format(time.RFC3339),
		Proposer:        s.Proposer.Hex(),
		NumTransactions: s.NumTransactions,
		BlockReward:     s.BlockReward,
		FeeRecipient:    s.FeeRecipient.Hex(),
		Size:            s.Size,
	}
}

// SummaryViews converts a slice of summaries, oldest first.
func SummaryViews(summaries []chain.BlockSummary) []*BlockSummary {
	out := make([]*BlockSummary, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, SummaryView(s))
	}
	return out
}
