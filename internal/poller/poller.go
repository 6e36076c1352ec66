// Package poller keeps the store's stake-table snapshot and node identity
// registry current by periodically querying the consensus node.
package poller

import (
	"context"
	"log/slog"
	"time"

	"github.com/sveitser/node-telemetry/internal/state"
	"github.com/sveitser/node-telemetry/pkg/chain"
	"github.com/sveitser/node-telemetry/pkg/rpc"
)

// Poller refreshes the stake table wholesale and appends newly discovered
// node identities. The registry is append-only, so identities whose key has
// been seen before are skipped here; the store itself does not deduplicate.
type Poller struct {
	client   *rpc.HTTPClient
	state    *state.State
	interval time.Duration

	known map[chain.PubKey]bool
}

// New creates a Poller refreshing at the given interval.
func New(client *rpc.HTTPClient, st *state.State, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Poller{
		client:   client,
		state:    st,
		interval: interval,
		known:    make(map[chain.PubKey]bool),
	}
}

// Run polls until the context is cancelled. Fetch failures are logged and
// retried on the next tick; the previously installed snapshot stays in
// place in the meantime.
func (p *Poller) Run(ctx context.Context) error {
	slog.Info("starting stake table poller", "interval", p.interval)

	// Prime the store before the first tick so the pipeline does not run
	// an entire interval against an empty table.
	p.refresh(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.refresh(ctx)
		}
	}
}

func (p *Poller) refresh(ctx context.Context) {
	table, err := p.client.StakeTable(ctx)
	if err != nil {
		slog.Warn("stake table fetch failed", "err", err)
	} else {
		p.state.ReplaceStakeTable(table)
		slog.Debug("stake table replaced",
			"head_entries", len(table.Head),
			"epoch_entries", len(table.LastEpochStart),
		)
	}

	nodes, err := p.client.NodeIdentities(ctx)
	if err != nil {
		slog.Warn("node directory fetch failed", "err", err)
		return
	}

	added := 0
	for _, node := range nodes {
		if p.known[node.PublicKey] {
			continue
		}
		p.known[node.PublicKey] = true
		p.state.RegisterIdentity(node)
		added++
	}
	if added > 0 {
		slog.Info("registered new node identities", "count", added)
	}
}
