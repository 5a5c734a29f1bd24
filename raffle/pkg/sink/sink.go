package sink

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/malbeclabs/raffle/raffle/pkg/raffle"
)

// Run is one completed draw handed to every configured sink.
type Run struct {
	ID      uuid.UUID
	DrawnAt time.Time
	Options raffle.Options
	Outcome *raffle.Outcome
}

// Sink persists a draw somewhere. Implementations must not modify the run.
type Sink interface {
	Name() string
	Write(ctx context.Context, run *Run) error
}

// ResultRow is one depositor's settlement, in dataset order.
type ResultRow struct {
	Owner string
	raffle.Result
}

// ResultRows flattens the run's results keeping their encoding order.
func (r *Run) ResultRows() []ResultRow {
	if r.Outcome == nil || r.Outcome.Results == nil {
		return nil
	}
	users := r.Outcome.Results.Users()
	rows := make([]ResultRow, 0, len(users))
	for _, u := range users {
		res, _ := r.Outcome.Results.Get(u)
		rows = append(rows, ResultRow{Owner: u, Result: res})
	}
	return rows
}

// ParseAmount parses a base-10 amount as produced by the draw.
func ParseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}
