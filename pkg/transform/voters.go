package transform

import "github.com/prysmaticlabs/go-bitfield"

// VotersToBools expands an identity-order voter bitmap into a bool slice,
// one entry per registry position.
func VotersToBools(voters bitfield.Bitlist) []bool {
	out := make([]bool, voters.Len())
	for i := uint64(0); i < voters.Len(); i++ {
		out[i] = voters.BitAt(i)
	}
	return out
}

// VoterViews converts a slice of bitmaps, oldest first.
func VoterViews(voters []bitfield.Bitlist) [][]bool {
	out := make([][]bool, 0, len(voters))
	for _, v := range voters {
		out = append(out, VotersToBools(v))
	}
	return out
}
