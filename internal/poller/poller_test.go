package poller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sveitser/node-telemetry/internal/state"
	"github.com/sveitser/node-telemetry/pkg/chain"
	"github.com/sveitser/node-telemetry/pkg/rpc"
)

func newTestNode(t *testing.T, failing *atomic.Bool) *httptest.Server {
	t.Helper()

	key := chain.PubKey{0x42}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/stake-table":
			w.Write([]byte(`{"head":[{"public_key":"` + key.Hex() + `","stake":700}],` +
				`"last_epoch_start":[{"public_key":"` + key.Hex() + `","stake":700}]}`))
		case "/v1/nodes":
			w.Write([]byte(`{"nodes":[{"public_key":"` + key.Hex() + `","name":"validator-42"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestRefreshInstallsSnapshotAndIdentities(t *testing.T) {
	var failing atomic.Bool
	srv := newTestNode(t, &failing)
	defer srv.Close()

	st := state.New()
	p := New(rpc.NewHTTP(srv.URL), st, time.Minute)

	p.refresh(context.Background())

	table := st.StakeTable()
	require.NotNil(t, table)
	entries, err := table.Entries(chain.SnapshotLastEpochStart)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, uint64(700), entries[0].Stake)

	ids := st.Identities()
	require.Len(t, ids, 1)
	assert.Equal(t, "validator-42", ids[0].Name)

	// A second refresh must not re-register an already known key.
	p.refresh(context.Background())
	assert.Len(t, st.Identities(), 1)
}

func TestRefreshKeepsSnapshotOnFetchFailure(t *testing.T) {
	var failing atomic.Bool
	srv := newTestNode(t, &failing)
	defer srv.Close()

	st := state.New()
	client := rpc.NewHTTPWithOpts(rpc.Opts{
		Endpoints:       []string{srv.URL},
		BreakerFailures: 2,
		BreakerCooldown: time.Minute,
	})
	p := New(client, st, time.Minute)

	ctx := context.Background()
	p.refresh(ctx)
	installed := st.StakeTable()
	require.NotNil(t, installed)

	// Keep failing long enough to open the endpoint's circuit breaker,
	// then refresh once more with the breaker open. The good snapshot
	// must survive every failed refresh.
	failing.Store(true)
	for i := 0; i < 3; i++ {
		p.refresh(ctx)
	}

	table := st.StakeTable()
	require.NotNil(t, table)
	assert.Same(t, installed, table)

	entries, err := table.Entries(chain.SnapshotLastEpochStart)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
