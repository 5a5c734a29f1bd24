package runner

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/malbeclabs/raffle/raffle/pkg/deposits"
	"github.com/malbeclabs/raffle/raffle/pkg/raffle"
	"github.com/malbeclabs/raffle/raffle/pkg/sink"
)

// DefaultTokenDecimals matches an SPL token with 9 decimals, as wrapped SOL.
const DefaultTokenDecimals = 9

type Config struct {
	Logger  *slog.Logger
	Clock   clockwork.Clock
	Source  deposits.Source
	Sinks   []sink.Sink
	Options raffle.Options

	// VerifyAgainst is a previously published airdrop.json the new draw must
	// reproduce byte for byte.
	VerifyAgainst   string
	CheckIdentities bool
	TokenDecimals   int32
	MetricsTextfile string

	NewRunID func() uuid.UUID
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Source == nil {
		return errors.New("source is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if err := cfg.Options.Validate(); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	if cfg.TokenDecimals < 0 {
		return errors.New("token decimals must not be negative")
	}
	if cfg.TokenDecimals == 0 {
		cfg.TokenDecimals = DefaultTokenDecimals
	}
	if cfg.NewRunID == nil {
		cfg.NewRunID = uuid.New
	}
	seen := make(map[string]struct{}, len(cfg.Sinks))
	for _, s := range cfg.Sinks {
		if s == nil {
			return errors.New("sink must not be nil")
		}
		if _, ok := seen[s.Name()]; ok {
			return fmt.Errorf("duplicate sink %q", s.Name())
		}
		seen[s.Name()] = struct{}{}
	}
	return nil
}
