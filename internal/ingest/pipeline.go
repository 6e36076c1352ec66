// Package ingest consumes the stream of finalized leaves, updates the
// shared telemetry state, and fans each result out to the block and voter
// subscribers.
package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prysmaticlabs/go-bitfield"
	"github.com/sveitser/node-telemetry/internal/state"
	"github.com/sveitser/node-telemetry/pkg/chain"
)

// Pipeline processes finalized leaves one at a time, in delivery order.
// Each leaf is summarized, committed to the state under its write lock, and
// then sent on the two outputs with the lock released. A failure on either
// output terminates the pipeline; state already committed is kept.
type Pipeline struct {
	state  *state.State
	leaves <-chan chain.Leaf
	blocks *Output[chain.BlockSummary]
	voters *Output[bitfield.Bitlist]
}

// NewPipeline creates a Pipeline reading from leaves and writing to the
// given outputs.
func NewPipeline(
	st *state.State,
	leaves <-chan chain.Leaf,
	blocks *Output[chain.BlockSummary],
	voters *Output[bitfield.Bitlist],
) *Pipeline {
	return &Pipeline{
		state:  st,
		leaves: leaves,
		blocks: blocks,
		voters: voters,
	}
}

// Run consumes leaves until the inbound channel is closed (clean stop,
// returns nil), a send to a closed subscriber fails (returns the send
// error), or the context is cancelled. There is no restart; a failed
// pipeline must be rebuilt by its supervisor together with fresh outputs.
func (p *Pipeline) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case leaf, ok := <-p.leaves:
			if !ok {
				slog.Info("leaf stream closed, stopping pipeline")
				return nil
			}
			if err := p.processLeaf(ctx, leaf); err != nil {
				slog.Warn("pipeline stopping",
					"height", leaf.Header.Height,
					"err", err,
				)
				return err
			}
		}
	}
}

// processLeaf runs the per-leaf sequence: build the summary outside any
// lock, commit summary + remapped voters as one store mutation, then send
// both results. Saturated outputs block here, which is the backpressure
// that pauses leaf consumption.
func (p *Pipeline) processLeaf(ctx context.Context, leaf chain.Leaf) error {
	summary := chain.SummaryFromLeaf(&leaf)

	voters := p.state.CommitLeaf(summary, leaf.QC.Signers)

	if err := p.blocks.Send(ctx, summary); err != nil {
		return fmt.Errorf("send block summary: %w", err)
	}
	if err := p.voters.Send(ctx, voters); err != nil {
		return fmt.Errorf("send voters: %w", err)
	}

	slog.Debug("leaf processed",
		"height", leaf.Header.Height,
		"txs", summary.NumTransactions,
		"voters", voters.Count(),
	)
	return nil
}
