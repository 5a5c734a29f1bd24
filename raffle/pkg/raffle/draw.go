package raffle

import (
	"fmt"
)

// Draw runs the whole raffle: privileged depositors are allocated first, then
// general depositors draw from whatever capacity is left, and finally every
// depositor is settled. The same input and options always produce the same
// outcome.
func Draw(in Input, opts Options) (*Outcome, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	privileged, general := Partition(in.Accounts, in.Whitelist)
	stats := Stats{
		TotalSupply: opts.TotalSupply,
		Accounts:    len(in.Accounts),
		InitialSeed: opts.Seed,
	}

	st := NewState(opts.TotalSupply, opts.Seed)
	cohorts := []struct {
		cohort   Cohort
		accounts []Account
		entries  *int
		winners  *int
	}{
		{CohortPrivileged, privileged, &stats.PrivilegedEntries, &stats.PrivilegedWinners},
		{CohortGeneral, general, &stats.GeneralEntries, &stats.GeneralWinners},
	}

	for _, c := range cohorts {
		entries, err := BuildEntries(c.accounts)
		if err != nil {
			return nil, fmt.Errorf("failed to build %s entries: %w", c.cohort, err)
		}
		tiers, err := GroupTiers(entries)
		if err != nil {
			return nil, fmt.Errorf("failed to group %s tiers: %w", c.cohort, err)
		}

		admitted := len(st.Winners)
		st, err = Allocate(st, tiers)
		if err != nil {
			return nil, fmt.Errorf("failed to allocate %s cohort: %w", c.cohort, err)
		}

		*c.entries = len(entries)
		*c.winners = len(st.Winners) - admitted
		stats.Tiers += len(tiers)
	}

	results, err := Aggregate(in.Accounts, in.Whitelist, st.Winners)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate results: %w", err)
	}

	stats.SampledTiers = st.SampledTiers
	stats.HashSteps = st.HashSteps
	stats.RejectedDraws = st.RejectedDraws
	stats.FinalSeed = st.Seed

	winners := st.Winners
	if winners == nil {
		winners = []Winner{}
	}

	return &Outcome{
		Winners: winners,
		Results: results,
		Stats:   stats,
	}, nil
}
