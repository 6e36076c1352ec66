package handler

import (
	"net/http"

	"github.com/go-jose/go-jose/v4/json"
	"go.uber.org/zap"

	"github.com/sveitser/node-telemetry/pkg/chain"
	"github.com/sveitser/node-telemetry/pkg/transform"
)

// HandleBlocksList returns the retained block summaries, oldest first.
func (h *Handler) HandleBlocksList(w http.ResponseWriter, r *http.Request) {
	blocks := transform.SummaryViews(h.State.LatestBlocks())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(blocks)
}

// HandleVotersList returns the retained voter bitmaps, oldest first,
// positionally aligned with the block list. Bit i of each bitmap refers to
// the i-th entry of /api/nodes.
func (h *Handler) HandleVotersList(w http.ResponseWriter, r *http.Request) {
	voters := transform.VoterViews(h.State.LatestVoters())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(voters)
}

// HandleStakeTable returns the current stake-table snapshot at the last
// epoch start. An uninstalled or unavailable snapshot serves as an empty
// enumeration.
func (h *Handler) HandleStakeTable(w http.ResponseWriter, r *http.Request) {
	var entries []chain.StakeTableEntry
	if table := h.State.StakeTable(); table != nil {
		if e, err := table.Entries(chain.SnapshotLastEpochStart); err == nil {
			entries = e
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(transform.StakeEntryViews(entries))
}

// HandleNodesList returns the identity registry in insertion order.
func (h *Handler) HandleNodesList(w http.ResponseWriter, r *http.Request) {
	nodes := transform.NodeViews(h.State.Identities())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(nodes)
}

// HandleNodeRegister appends a node identity to the registry. The caller is
// responsible for not re-registering a key; the registry keeps whatever it
// is given, append-only.
func (h *Handler) HandleNodeRegister(w http.ResponseWriter, r *http.Request) {
	var node chain.NodeIdentity
	if err := json.NewDecoder(r.Body).Decode(&node); err != nil {
		h.Logger.Warn("bad json in node register request", zap.Error(err))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "bad json"})
		return
	}

	if node.PublicKey == (chain.PubKey{}) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "public_key is required"})
		return
	}

	h.State.RegisterIdentity(node)

	h.Logger.Info("node identity registered",
		zap.String("public_key", node.PublicKey.Hex()),
		zap.String("name", node.Name),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(transform.NodeView(node))
}

// HandleStakeTableReplace swaps the stake-table snapshot wholesale.
// Already-stored voter history is not recomputed.
func (h *Handler) HandleStakeTableReplace(w http.ResponseWriter, r *http.Request) {
	var table chain.EpochStakeTable
	if err := json.NewDecoder(r.Body).Decode(&table); err != nil {
		h.Logger.Warn("bad json in stake table replace request", zap.Error(err))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "bad json"})
		return
	}

	h.State.ReplaceStakeTable(&table)

	h.Logger.Info("stake table replaced",
		zap.Int("head_entries", len(table.Head)),
		zap.Int("epoch_entries", len(table.LastEpochStart)),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
