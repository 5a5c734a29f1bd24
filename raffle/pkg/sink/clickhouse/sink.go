package clickhouse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/malbeclabs/raffle/raffle/pkg/sink"
)

const (
	RunsTable    = "raffle_runs"
	WinnersTable = "raffle_winners"
	ResultsTable = "raffle_results"
)

type Config struct {
	Logger *slog.Logger
	Client Client
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Client == nil {
		return errors.New("clickhouse client is required")
	}
	return nil
}

// Sink appends each run to the raffle_* tables. Winners and results are
// written first so a row in raffle_runs implies the run is complete.
type Sink struct {
	log    *slog.Logger
	client Client
}

func New(cfg Config) (*Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Sink{log: cfg.Logger, client: cfg.Client}, nil
}

func (s *Sink) Name() string { return "clickhouse" }

func (s *Sink) Write(ctx context.Context, run *sink.Run) error {
	if run == nil || run.Outcome == nil {
		return errors.New("run outcome is required")
	}
	conn, err := s.client.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	ctx = ContextWithSyncInsert(ctx)
	out := run.Outcome

	err = writeBatch(ctx, conn, WinnersTable, len(out.Winners), func(i int) ([]any, error) {
		w := out.Winners[i]
		amount, err := sink.ParseAmount(w.DepositAmount)
		if err != nil {
			return nil, err
		}
		return []any{run.ID, uint32(w.TokenID), w.OwnerAddress, amount, w.Timestamp, run.DrawnAt}, nil
	})
	if err != nil {
		return fmt.Errorf("failed to write winners: %w", err)
	}

	rows := run.ResultRows()
	err = writeBatch(ctx, conn, ResultsTable, len(rows), func(i int) ([]any, error) {
		r := rows[i]
		deposited, err := sink.ParseAmount(r.DepositAmount)
		if err != nil {
			return nil, err
		}
		refund, err := sink.ParseAmount(r.RefundAmount)
		if err != nil {
			return nil, err
		}
		return []any{run.ID, r.Owner, r.InWhitelist, deposited, refund, uint32(r.AirdropAmount), run.DrawnAt}, nil
	})
	if err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}

	st := out.Stats
	err = writeBatch(ctx, conn, RunsTable, 1, func(int) ([]any, error) {
		return []any{
			run.ID, run.DrawnAt, st.InitialSeed, st.FinalSeed,
			uint32(st.TotalSupply), uint32(st.PrivilegedEntries), uint32(st.GeneralEntries),
			uint32(st.Winners()), uint64(st.HashSteps), uint64(st.RejectedDraws),
		}, nil
	})
	if err != nil {
		return fmt.Errorf("failed to write run: %w", err)
	}

	s.log.Info("clickhouse: run written", "run", run.ID, "winners", len(out.Winners), "results", len(rows))
	return nil
}

func writeBatch(ctx context.Context, conn Connection, table string, count int, rowFn func(int) ([]any, error)) error {
	if count == 0 {
		return nil
	}

	batch, err := conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s", table))
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}
	defer batch.Close()

	for i := range count {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context cancelled during batch insert: %w", err)
		}
		row, err := rowFn(i)
		if err != nil {
			return fmt.Errorf("failed to get row data %d: %w", i, err)
		}
		if err := batch.Append(row...); err != nil {
			return fmt.Errorf("failed to append row %d: %w", i, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	return nil
}
