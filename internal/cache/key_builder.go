package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"math/big"
)

const (
	// KeyPrefix starts every sequence key.
	KeyPrefix = "collatz_conjecture_"

	// MaxKeyDigits is the longest decimal start kept verbatim in a key.
	// Longer starts are keyed by the sha256 of their full decimal form so
	// that file names stay short without two starts sharing a key.
	MaxKeyDigits = 200
)

// SequenceKey identifies the stored sequence of one starting number.
type SequenceKey struct {
	// Digits is the full decimal start when it fits in MaxKeyDigits.
	Digits string
	// Hash is the hex sha256 of the decimal start, set only for long starts.
	Hash string
}

// String converts the structured key into the final string used by stores.
func (k SequenceKey) String() string {
	// collatz_conjecture_<DIGITS> or collatz_conjecture_sha256_<HASH_HEX>
	if k.Hash != "" {
		return KeyPrefix + "sha256_" + k.Hash
	}
	return KeyPrefix + k.Digits
}

// BuildSequenceKey builds the key for start from its full decimal form.
func BuildSequenceKey(start *big.Int) SequenceKey {
	decimal := start.String()
	if len(decimal) <= MaxKeyDigits {
		return SequenceKey{Digits: decimal}
	}

	sum := sha256.Sum256([]byte(decimal))
	return SequenceKey{Hash: hex.EncodeToString(sum[:])}
}
