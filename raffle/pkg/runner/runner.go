package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/getsentry/sentry-go"
	"golang.org/x/sync/errgroup"

	"github.com/malbeclabs/raffle/raffle/pkg/deposits"
	"github.com/malbeclabs/raffle/raffle/pkg/metrics"
	"github.com/malbeclabs/raffle/raffle/pkg/raffle"
	"github.com/malbeclabs/raffle/raffle/pkg/sink"
	"github.com/malbeclabs/raffle/raffle/pkg/sink/jsonfile"
)

// ErrVerificationFailed is returned when a draw does not reproduce the
// airdrop it is verified against.
var ErrVerificationFailed = errors.New("airdrop verification failed")

// Runner performs one draw: load, draw, verify, then persist to every sink.
type Runner struct {
	log *slog.Logger
	cfg Config
}

func New(cfg Config) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Runner{log: cfg.Logger, cfg: cfg}, nil
}

// Run executes the draw. Nothing is written unless the draw and any
// verification succeed.
func (r *Runner) Run(ctx context.Context) (run *sink.Run, err error) {
	start := r.cfg.Clock.Now()
	span := sentry.StartSpan(ctx, "raffle.run", sentry.WithDescription(r.cfg.Source.Name()))
	ctx = span.Context()
	defer func() {
		status := "success"
		span.Status = sentry.SpanStatusOK
		if err != nil {
			status = "error"
			span.Status = sentry.SpanStatusInternalError
		}
		span.Finish()
		metrics.RunsTotal.WithLabelValues(status).Inc()
		metrics.RunDuration.Observe(r.cfg.Clock.Since(start).Seconds())
		if r.cfg.MetricsTextfile != "" {
			if werr := metrics.WriteTextfile(r.cfg.MetricsTextfile); werr != nil {
				r.log.Warn("raffle: failed to write metrics", "path", r.cfg.MetricsTextfile, "error", werr)
			}
		}
	}()

	in, err := r.cfg.Source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load input from %s: %w", r.cfg.Source.Name(), err)
	}
	r.log.Info("raffle: input loaded", "source", r.cfg.Source.Name(), "accounts", len(in.Accounts), "whitelist", len(in.Whitelist))

	if r.cfg.CheckIdentities {
		if bad := deposits.CheckIdentities(r.log, in); bad > 0 {
			r.log.Warn("raffle: input contains identities that are not addresses", "count", bad)
		}
	}

	out, err := raffle.Draw(in, r.cfg.Options)
	if err != nil {
		return nil, fmt.Errorf("failed to draw: %w", err)
	}

	run = &sink.Run{
		ID:      r.cfg.NewRunID(),
		DrawnAt: start.UTC(),
		Options: r.cfg.Options,
		Outcome: out,
	}
	r.summarize(run)
	recordOutcome(out.Stats)

	if r.cfg.VerifyAgainst != "" {
		if err := r.verify(out); err != nil {
			return nil, err
		}
	}

	if err := r.write(ctx, run); err != nil {
		return nil, err
	}

	r.log.Info("raffle: run complete", "run", run.ID, "sinks", len(r.cfg.Sinks), "duration", r.cfg.Clock.Since(start))
	return run, nil
}

func (r *Runner) summarize(run *sink.Run) {
	st := run.Outcome.Stats
	deposited, refund := run.Outcome.Results.Totals()
	r.log.Info("raffle: draw complete",
		"run", run.ID,
		"supply", st.TotalSupply,
		"accounts", st.Accounts,
		"privilegedEntries", st.PrivilegedEntries,
		"generalEntries", st.GeneralEntries,
		"privilegedWinners", st.PrivilegedWinners,
		"generalWinners", st.GeneralWinners,
		"tiers", st.Tiers,
		"sampledTiers", st.SampledTiers,
		"hashSteps", st.HashSteps,
		"rejectedDraws", st.RejectedDraws,
		"deposited", raffle.FormatAmount(deposited, r.cfg.TokenDecimals),
		"refunded", raffle.FormatAmount(refund, r.cfg.TokenDecimals),
		"finalSeed", st.FinalSeed,
	)
}

func recordOutcome(st raffle.Stats) {
	metrics.TotalSupply.Set(float64(st.TotalSupply))
	metrics.Entries.WithLabelValues(string(raffle.CohortPrivileged)).Set(float64(st.PrivilegedEntries))
	metrics.Entries.WithLabelValues(string(raffle.CohortGeneral)).Set(float64(st.GeneralEntries))
	metrics.Winners.WithLabelValues(string(raffle.CohortPrivileged)).Set(float64(st.PrivilegedWinners))
	metrics.Winners.WithLabelValues(string(raffle.CohortGeneral)).Set(float64(st.GeneralWinners))
	metrics.SampledTiers.Set(float64(st.SampledTiers))
	metrics.HashSteps.Set(float64(st.HashSteps))
	metrics.RejectedDraws.Set(float64(st.RejectedDraws))
}

func (r *Runner) verify(out *raffle.Outcome) error {
	want, err := os.ReadFile(r.cfg.VerifyAgainst)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", r.cfg.VerifyAgainst, err)
	}
	got, err := jsonfile.EncodeWinners(out.Winners)
	if err != nil {
		return err
	}
	if !bytes.Equal(bytes.TrimSpace(want), got) {
		return fmt.Errorf("%w: draw does not reproduce %s (%d bytes, expected %d)",
			ErrVerificationFailed, r.cfg.VerifyAgainst, len(got), len(bytes.TrimSpace(want)))
	}
	r.log.Info("raffle: airdrop verified", "path", r.cfg.VerifyAgainst, "winners", len(out.Winners))
	return nil
}

// write hands the run to every sink concurrently and returns the first failure.
func (r *Runner) write(ctx context.Context, run *sink.Run) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, s := range r.cfg.Sinks {
		g.Go(func() error {
			start := r.cfg.Clock.Now()
			err := s.Write(ctx, run)
			metrics.SinkWriteDuration.WithLabelValues(s.Name()).Observe(r.cfg.Clock.Since(start).Seconds())
			if err != nil {
				metrics.SinkWritesTotal.WithLabelValues(s.Name(), "error").Inc()
				r.log.Error("raffle: sink write failed", "sink", s.Name(), "run", run.ID, "error", err)
				return fmt.Errorf("failed to write to %s: %w", s.Name(), err)
			}
			metrics.SinkWritesTotal.WithLabelValues(s.Name(), "success").Inc()
			r.log.Debug("raffle: sink written", "sink", s.Name(), "run", run.ID)
			return nil
		})
	}
	return g.Wait()
}
