// Package transform converts core domain types into the view models served
// by the HTTP API and published on the stream topics.
package transform

import "encoding/hex"

// BytesToHex encodes raw bytes as a lowercase hex string.
func BytesToHex(b []byte) string {
	return hex.EncodeToString(b)
}
