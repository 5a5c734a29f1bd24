package raffle

import (
	"cmp"
	"fmt"
	"slices"
)

// BuildEntries flattens every deposit of every account into one entry, sorted
// by ascending timestamp. Deposits with equal timestamps keep their dataset
// order.
func BuildEntries(accounts []Account) ([]Entry, error) {
	var entries []Entry
	for _, a := range accounts {
		for i, d := range a.Deposits {
			amount, err := ParseHexAmount(d.Amount)
			if err != nil {
				return nil, fmt.Errorf("failed to parse amount of deposit %d of %s: %w", i, a.User, err)
			}
			ts, err := ParseHexTimestamp(d.Timestamp)
			if err != nil {
				return nil, fmt.Errorf("failed to parse timestamp of deposit %d of %s: %w", i, a.User, err)
			}
			entries = append(entries, Entry{
				Address:   a.User,
				Amount:    amount.String(),
				Timestamp: ts,
				value:     amount,
			})
		}
	}

	slices.SortStableFunc(entries, func(a, b Entry) int {
		return cmp.Compare(a.Timestamp, b.Timestamp)
	})
	return entries, nil
}

// GroupTiers buckets entries by exact deposit amount and orders the buckets
// from the largest amount to the smallest.
func GroupTiers(entries []Entry) ([]Tier, error) {
	index := make(map[string]int)
	var tiers []Tier
	for _, e := range entries {
		i, ok := index[e.Amount]
		if !ok {
			v, err := e.Value()
			if err != nil {
				return nil, err
			}
			i = len(tiers)
			index[e.Amount] = i
			tiers = append(tiers, Tier{Amount: e.Amount, Value: v})
		}
		tiers[i].Entries = append(tiers[i].Entries, e)
	}

	slices.SortStableFunc(tiers, func(a, b Tier) int {
		return b.Value.Cmp(a.Value)
	})
	return tiers, nil
}

