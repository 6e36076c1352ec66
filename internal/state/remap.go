package state

import (
	"github.com/prysmaticlabs/go-bitfield"
	"github.com/sveitser/node-telemetry/pkg/chain"
)

// RemapVoters translates a raw quorum-certificate signer bitmap, expressed
// in stake-table order, into a bitmap expressed in identity-registry order.
//
// The stake table's order can change between epochs, so the raw bitmap's
// positions are not stable over time; the identity registry's insertion
// order is. The translation therefore goes through set membership on public
// keys rather than index arithmetic: collect the keys of the stake-table
// entries whose bit is set, then mark each registry position whose key is a
// member.
//
// The positional pairing of raw bits against stake-table entries is
// truncated to the shorter of the two sequences. An empty bitmap, an empty
// enumeration, or an empty registry all degrade to an all-false result;
// none of these is an error.
func RemapVoters(raw bitfield.Bitlist, entries []chain.StakeTableEntry, identities []chain.NodeIdentity) bitfield.Bitlist {
	voted := make(map[chain.PubKey]struct{})

	n := uint64(len(entries))
	if raw.Len() < n {
		n = raw.Len()
	}
	for i := uint64(0); i < n; i++ {
		if raw.BitAt(i) {
			voted[entries[i].PublicKey] = struct{}{}
		}
	}

	out := bitfield.NewBitlist(uint64(len(identities)))
	for i, identity := range identities {
		if _, ok := voted[identity.PublicKey]; ok {
			out.SetBitAt(uint64(i), true)
		}
	}
	return out
}
