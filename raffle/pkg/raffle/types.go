package raffle

import (
	"errors"
	"fmt"
	"math/big"
)

const (
	// DefaultTotalSupply is the number of tokens minted for the airdrop.
	DefaultTotalSupply = 5000

	// DefaultSeed is the initial value of the hash chain.
	DefaultSeed = "xnomad"
)

// Cohort identifies one of the two depositor partitions. Privileged depositors
// are always drawn before general ones.
type Cohort string

const (
	CohortPrivileged Cohort = "privileged"
	CohortGeneral    Cohort = "general"
)

// Deposit is a single deposit event. Amount and Timestamp are hex encoded, as
// they come out of the on-chain account dump.
type Deposit struct {
	NFTAmount uint32
	Amount    string
	Timestamp string
}

// Account is the deposit history of one depositor.
type Account struct {
	User               string
	TotalNFTAmount     uint32
	TotalDepositAmount string
	Vault              string
	Deposits           []Deposit
}

// Entry is one raffle ticket, derived from a single deposit event.
type Entry struct {
	Address   string
	Amount    string
	Timestamp uint64

	value *big.Int
}

// Value returns the parsed deposit amount. Entries built outside
// BuildEntries are parsed from Amount, which must be a decimal integer.
func (e Entry) Value() (*big.Int, error) {
	if e.value != nil {
		return new(big.Int).Set(e.value), nil
	}
	v, ok := new(big.Int).SetString(e.Amount, 10)
	if !ok {
		return nil, fmt.Errorf("%w: entry amount %q of %s", ErrMalformedNumber, e.Amount, e.Address)
	}
	return v, nil
}

// Tier is the set of entries sharing one exact deposit amount, in ascending
// timestamp order.
type Tier struct {
	Amount  string
	Value   *big.Int
	Entries []Entry
}

// Winner is an admitted entry. TokenID is its 1-based admission position
// across the whole run.
type Winner struct {
	OwnerAddress  string `json:"ownerAddress"`
	DepositAmount string `json:"depositAmount"`
	TokenID       int    `json:"tokenId"`
	Timestamp     uint64 `json:"timestamp"`
}

// Input is everything a draw reads.
type Input struct {
	Accounts  []Account
	Whitelist []string
}

// Options parameterize a draw.
type Options struct {
	TotalSupply int
	Seed        string
}

// DefaultOptions returns the options the airdrop was originally run with.
func DefaultOptions() Options {
	return Options{
		TotalSupply: DefaultTotalSupply,
		Seed:        DefaultSeed,
	}
}

func (o *Options) Validate() error {
	if o.TotalSupply < 0 {
		return errors.New("total supply must not be negative")
	}
	if o.Seed == "" {
		return errors.New("seed is required")
	}
	return nil
}

// Stats describes how a draw went. It is informational and never feeds back
// into the draw.
type Stats struct {
	TotalSupply       int
	Accounts          int
	PrivilegedEntries int
	GeneralEntries    int
	PrivilegedWinners int
	GeneralWinners    int
	Tiers             int
	SampledTiers      int
	HashSteps         int
	RejectedDraws     int
	InitialSeed       string
	FinalSeed         string
}

// Entries returns the total number of entries across both cohorts.
func (s Stats) Entries() int {
	return s.PrivilegedEntries + s.GeneralEntries
}

// Winners returns the total number of winners across both cohorts.
func (s Stats) Winners() int {
	return s.PrivilegedWinners + s.GeneralWinners
}

// Outcome is the full result of a draw.
type Outcome struct {
	Winners []Winner
	Results *Results
	Stats   Stats
}
