package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/malbeclabs/raffle/raffle/pkg/sink"
	"github.com/malbeclabs/raffle/utils/pkg/retry"
)

var (
	winnerColumns = []string{"run_id", "token_id", "owner_address", "deposit_amount", "deposit_timestamp"}
	resultColumns = []string{"run_id", "position", "owner_address", "in_whitelist", "deposit_amount", "refund_amount", "airdrop_amount"}
)

type Config struct {
	Logger *slog.Logger
	Pool   *pgxpool.Pool
	Retry  retry.Config
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Pool == nil {
		return errors.New("postgres pool is required")
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultConfig()
	}
	return nil
}

// Sink stores each run in a single transaction, so a run is either fully
// present or absent.
type Sink struct {
	log   *slog.Logger
	pool  *pgxpool.Pool
	retry retry.Config
}

func New(cfg Config) (*Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Sink{log: cfg.Logger, pool: cfg.Pool, retry: cfg.Retry}, nil
}

func (s *Sink) Name() string { return "postgres" }

func (s *Sink) Write(ctx context.Context, run *sink.Run) error {
	if run == nil || run.Outcome == nil {
		return errors.New("run outcome is required")
	}
	winners, err := winnerRows(run)
	if err != nil {
		return err
	}
	results, err := resultRows(run)
	if err != nil {
		return err
	}

	cfg := s.retry
	cfg.OnRetry = func(attempt int, err error) {
		s.log.Warn("postgres: retrying run write", "run", run.ID, "attempt", attempt, "error", err)
	}
	err = retry.Do(ctx, cfg, func() error {
		return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
			return writeRun(ctx, tx, run, winners, results)
		})
	})
	if err != nil {
		return fmt.Errorf("failed to write run %s: %w", run.ID, err)
	}

	s.log.Info("postgres: run written", "run", run.ID, "winners", len(winners), "results", len(results))
	return nil
}

func writeRun(ctx context.Context, tx pgx.Tx, run *sink.Run, winners, results [][]any) error {
	st := run.Outcome.Stats
	_, err := tx.Exec(ctx, `
		INSERT INTO raffle_runs (
			run_id, drawn_at, seed, final_seed, total_supply,
			privileged_entries, general_entries, winners, hash_steps, rejected_draws
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		run.ID, run.DrawnAt, st.InitialSeed, st.FinalSeed, st.TotalSupply,
		st.PrivilegedEntries, st.GeneralEntries, st.Winners(), int64(st.HashSteps), int64(st.RejectedDraws),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"raffle_winners"}, winnerColumns, pgx.CopyFromRows(winners)); err != nil {
		return fmt.Errorf("failed to copy winners: %w", err)
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"raffle_results"}, resultColumns, pgx.CopyFromRows(results)); err != nil {
		return fmt.Errorf("failed to copy results: %w", err)
	}
	return nil
}

func winnerRows(run *sink.Run) ([][]any, error) {
	rows := make([][]any, 0, len(run.Outcome.Winners))
	for _, w := range run.Outcome.Winners {
		amount, err := numeric(w.DepositAmount)
		if err != nil {
			return nil, fmt.Errorf("winner %d: %w", w.TokenID, err)
		}
		rows = append(rows, []any{run.ID, int32(w.TokenID), w.OwnerAddress, amount, int64(w.Timestamp)})
	}
	return rows, nil
}

func resultRows(run *sink.Run) ([][]any, error) {
	src := run.ResultRows()
	rows := make([][]any, 0, len(src))
	for i, r := range src {
		deposited, err := numeric(r.DepositAmount)
		if err != nil {
			return nil, fmt.Errorf("result %s: %w", r.Owner, err)
		}
		refund, err := numeric(r.RefundAmount)
		if err != nil {
			return nil, fmt.Errorf("result %s: %w", r.Owner, err)
		}
		rows = append(rows, []any{run.ID, int32(i), r.Owner, r.InWhitelist, deposited, refund, int32(r.AirdropAmount)})
	}
	return rows, nil
}

func numeric(s string) (pgtype.Numeric, error) {
	v, err := sink.ParseAmount(s)
	if err != nil {
		return pgtype.Numeric{}, err
	}
	return pgtype.Numeric{Int: v, Valid: true}, nil
}
