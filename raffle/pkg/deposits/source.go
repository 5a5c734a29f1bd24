package deposits

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/malbeclabs/raffle/raffle/pkg/raffle"
)

// Source produces the draw input.
type Source interface {
	Name() string
	Load(ctx context.Context) (raffle.Input, error)
}

type FileConfig struct {
	Logger          *slog.Logger
	DepositsPath    string
	WhitelistPath   string
	StrictWhitelist bool
}

func (cfg *FileConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.DepositsPath == "" {
		return errors.New("deposits path is required")
	}
	return nil
}

// FileSource reads the deposit dataset and membership list from JSON files.
type FileSource struct {
	log *slog.Logger
	cfg FileConfig
}

func NewFileSource(cfg FileConfig) (*FileSource, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &FileSource{log: cfg.Logger, cfg: cfg}, nil
}

func (s *FileSource) Name() string { return "file" }

func (s *FileSource) Load(ctx context.Context) (raffle.Input, error) {
	records, err := LoadDeposits(s.cfg.DepositsPath)
	if err != nil {
		return raffle.Input{}, err
	}
	whitelist, err := loadMembership(s.log, s.cfg.WhitelistPath, s.cfg.StrictWhitelist)
	if err != nil {
		return raffle.Input{}, err
	}
	s.log.Info("deposits: loaded from file", "path", s.cfg.DepositsPath, "accounts", len(records), "whitelist", len(whitelist))
	return raffle.Input{Accounts: Accounts(records), Whitelist: whitelist}, nil
}

// loadMembership reads the whitelist at path. No path means no privileged
// cohort. A malformed file is treated as an empty list unless strict.
func loadMembership(log *slog.Logger, path string, strict bool) ([]string, error) {
	if path == "" {
		log.Info("deposits: no whitelist configured, every depositor is general")
		return nil, nil
	}
	ids, err := LoadWhitelist(path)
	if err == nil {
		return ids, nil
	}
	if errors.Is(err, ErrMalformedWhitelist) && !strict {
		log.Warn("deposits: ignoring malformed whitelist, every depositor is general", "path", path, "error", err)
		return nil, nil
	}
	return nil, fmt.Errorf("failed to load whitelist: %w", err)
}
