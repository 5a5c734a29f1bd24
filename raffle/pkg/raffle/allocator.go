package raffle

import (
	"fmt"
	"slices"
)

// State is the run-level accumulator threaded through every allocation step:
// the remaining capacity, the hash chain position and the winners admitted so
// far. It is passed and returned by value; nothing about a draw lives outside
// of it.
type State struct {
	Capacity int
	Seed     string
	Winners  []Winner

	SampledTiers  int
	HashSteps     int
	RejectedDraws int
}

// NewState returns the state a draw starts from.
func NewState(totalSupply int, seed string) State {
	return State{
		Capacity: totalSupply,
		Seed:     seed,
	}
}

// Exhausted reports whether every award has been handed out.
func (s State) Exhausted() bool {
	return s.Capacity <= 0
}

// Allocate admits winners from tiers, highest amount first. A tier that fits
// the remaining capacity is admitted whole, in timestamp order. The first tier
// that does not fit is sampled down to exactly the remaining capacity with the
// hash chain, after which nothing else is admitted.
func Allocate(st State, tiers []Tier) (State, error) {
	// Appends must never write into a backing array the caller still holds.
	st.Winners = slices.Clip(st.Winners)

	for _, tier := range tiers {
		if st.Exhausted() {
			break
		}

		if len(tier.Entries) <= st.Capacity {
			for _, e := range tier.Entries {
				st = st.admit(e)
			}
			continue
		}

		sel, err := Sample(st.Seed, len(tier.Entries), st.Capacity)
		if err != nil {
			return st, fmt.Errorf("failed to sample tier %s: %w", tier.Amount, err)
		}
		st.Seed = sel.Seed
		st.SampledTiers++
		st.HashSteps += sel.Steps
		st.RejectedDraws += sel.Rejected()
		for _, i := range sel.Indices {
			st = st.admit(tier.Entries[i])
		}
	}

	return st, nil
}

func (s State) admit(e Entry) State {
	s.Winners = append(s.Winners, Winner{
		OwnerAddress:  e.Address,
		DepositAmount: e.Amount,
		TokenID:       len(s.Winners) + 1,
		Timestamp:     e.Timestamp,
	})
	s.Capacity--
	return s
}
