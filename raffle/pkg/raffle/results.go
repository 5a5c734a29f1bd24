package raffle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
)

// Result is the per-depositor settlement.
type Result struct {
	InWhitelist   bool   `json:"inWhitelist"`
	DepositAmount string `json:"depositAmount"`
	RefundAmount  string `json:"refundAmount"`
	AirdropAmount int    `json:"airdropAmount"`
}

// Results maps depositors to their settlement and remembers the order in which
// depositors first appear in the deposit dataset. It encodes to a JSON object
// in that order.
type Results struct {
	order  []string
	byUser map[string]Result
}

func newResults(capacity int) *Results {
	return &Results{
		order:  make([]string, 0, capacity),
		byUser: make(map[string]Result, capacity),
	}
}

// Len returns the number of depositors.
func (r *Results) Len() int {
	return len(r.order)
}

// Users returns depositors in dataset order.
func (r *Results) Users() []string {
	return append([]string(nil), r.order...)
}

// Get returns the settlement of one depositor.
func (r *Results) Get(user string) (Result, bool) {
	res, ok := r.byUser[user]
	return res, ok
}

func (r *Results) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, user := range r.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSON(&buf, user); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeJSON(&buf, r.byUser[user]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// writeJSON appends v without HTML escaping, so identities are written as is.
func writeJSON(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	buf.Truncate(buf.Len() - 1) // Encode terminates with a newline
	return nil
}

type tally struct {
	deposited *big.Int
	refund    *big.Int
	wins      int
}

// Aggregate settles every depositor in accounts against the winners list.
// The deposited amount is the account-level total; the refund starts from the
// sum of individual deposits and loses the amount of every winning entry.
//
// An account appearing more than once has its totals summed. A refund that
// would go negative, or a winner without a deposit record, fails the run.
func Aggregate(accounts []Account, whitelist []string, winners []Winner) (*Results, error) {
	members := membership(whitelist)
	tallies := make(map[string]*tally, len(accounts))
	var order []string

	for _, a := range accounts {
		total, err := ParseHexAmount(a.TotalDepositAmount)
		if err != nil {
			return nil, fmt.Errorf("failed to parse total deposit of %s: %w", a.User, err)
		}
		t, ok := tallies[a.User]
		if !ok {
			t = &tally{deposited: new(big.Int), refund: new(big.Int)}
			tallies[a.User] = t
			order = append(order, a.User)
		}
		t.deposited.Add(t.deposited, total)
		for i, d := range a.Deposits {
			amount, err := ParseHexAmount(d.Amount)
			if err != nil {
				return nil, fmt.Errorf("failed to parse amount of deposit %d of %s: %w", i, a.User, err)
			}
			t.refund.Add(t.refund, amount)
		}
	}

	for _, w := range winners {
		t, ok := tallies[w.OwnerAddress]
		if !ok {
			return nil, fmt.Errorf("%w: token %d owned by %s", ErrUnknownWinner, w.TokenID, w.OwnerAddress)
		}
		amount, ok := new(big.Int).SetString(w.DepositAmount, 10)
		if !ok {
			return nil, fmt.Errorf("%w: winner amount %q of token %d", ErrMalformedNumber, w.DepositAmount, w.TokenID)
		}
		t.wins++
		t.refund.Sub(t.refund, amount)
	}

	results := newResults(len(order))
	for _, user := range order {
		t := tallies[user]
		if t.refund.Sign() < 0 {
			return nil, fmt.Errorf("%w: %s refund %s", ErrNegativeRefund, user, t.refund)
		}
		_, inWhitelist := members[user]
		results.order = append(results.order, user)
		results.byUser[user] = Result{
			InWhitelist:   inWhitelist,
			DepositAmount: t.deposited.String(),
			RefundAmount:  t.refund.String(),
			AirdropAmount: t.wins,
		}
	}
	return results, nil
}

// Totals returns the deposited and refundable amounts summed over every
// depositor.
func (r *Results) Totals() (deposited, refund *big.Int) {
	deposited, refund = new(big.Int), new(big.Int)
	for _, user := range r.order {
		res := r.byUser[user]
		if v, ok := new(big.Int).SetString(res.DepositAmount, 10); ok {
			deposited.Add(deposited, v)
		}
		if v, ok := new(big.Int).SetString(res.RefundAmount, 10); ok {
			refund.Add(refund, v)
		}
	}
	return deposited, refund
}
