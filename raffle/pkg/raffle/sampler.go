package raffle

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"regexp"

	"golang.org/x/crypto/sha3"
)

var hexSeedPattern = regexp.MustCompile(`^0x[0-9A-Fa-f]*$`)

// Selection is the output of one sampling pass.
type Selection struct {
	// Indices are the chosen tier positions, in acceptance order.
	Indices []int
	// Seed is the chain value after the last hash step of the pass.
	Seed string
	// Steps is the number of hash steps consumed, including rejected draws.
	Steps int
}

// Rejected returns how many hash steps landed on an already chosen index.
func (s Selection) Rejected() int {
	return s.Steps - len(s.Indices)
}

// Sample picks count distinct indices out of [0, size) by walking the hash
// chain from seed. Each step replaces the seed with keccak256(seed) and maps
// the digest to digest mod size; repeats are discarded but still advance the
// chain.
//
// The modulo reduction is slightly biased towards low indices whenever size
// does not divide 2^256. The bias is kept so that runs stay reproducible
// against earlier results.
func Sample(seed string, size, count int) (Selection, error) {
	if size <= 0 {
		return Selection{}, ErrEmptyTier
	}
	if count < 0 || count > size {
		return Selection{}, fmt.Errorf("%w: count %d, size %d", ErrCapacityInvariant, count, size)
	}

	sel := Selection{
		Indices: make([]int, 0, count),
		Seed:    seed,
	}
	chosen := make(map[int]struct{}, count)
	modulus := big.NewInt(int64(size))
	candidate := new(big.Int)

	for len(sel.Indices) < count {
		var digest []byte
		sel.Seed, digest = hashStep(sel.Seed)
		sel.Steps++

		idx := int(candidate.Mod(candidate.SetBytes(digest), modulus).Int64())
		if _, ok := chosen[idx]; ok {
			continue
		}
		chosen[idx] = struct{}{}
		sel.Indices = append(sel.Indices, idx)
	}

	return sel, nil
}

// hashStep advances the chain by one link and returns the new seed along with
// the raw digest it encodes.
func hashStep(seed string) (string, []byte) {
	h := sha3.NewLegacyKeccak256()
	h.Write(seedBytes(seed))
	digest := h.Sum(nil)
	return "0x" + hex.EncodeToString(digest), digest
}

// seedBytes returns the hash input for a seed. 0x-prefixed hex strings are
// hashed as the bytes they encode, anything else as UTF-8 text.
func seedBytes(seed string) []byte {
	if !hexSeedPattern.MatchString(seed) {
		return []byte(seed)
	}
	digits := seed[2:]
	if len(digits)%2 == 1 {
		digits = "0" + digits
	}
	b, err := hex.DecodeString(digits)
	if err != nil {
		// unreachable, the pattern only admits hex digits
		return []byte(seed)
	}
	return b
}
