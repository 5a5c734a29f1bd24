package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/malbeclabs/raffle/raffle/pkg/sink"
)

const (
	DefaultAirdropPath = "airdrop.json"
	DefaultResultsPath = "raffle_results.json"
)

type Config struct {
	Logger      *slog.Logger
	AirdropPath string
	ResultsPath string
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.AirdropPath == "" {
		cfg.AirdropPath = DefaultAirdropPath
	}
	if cfg.ResultsPath == "" {
		cfg.ResultsPath = DefaultResultsPath
	}
	if filepath.Clean(cfg.AirdropPath) == filepath.Clean(cfg.ResultsPath) {
		return errors.New("airdrop and results paths must differ")
	}
	return nil
}

// Sink writes airdrop.json and raffle_results.json.
type Sink struct {
	log *slog.Logger
	cfg Config
}

func New(cfg Config) (*Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Sink{log: cfg.Logger, cfg: cfg}, nil
}

func (s *Sink) Name() string { return "jsonfile" }

func (s *Sink) Write(ctx context.Context, run *sink.Run) error {
	if run == nil || run.Outcome == nil {
		return errors.New("run outcome is required")
	}

	winners, err := EncodeWinners(run.Outcome.Winners)
	if err != nil {
		return err
	}
	results, err := EncodeResults(run.Outcome.Results)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := WriteFileAtomic(s.cfg.AirdropPath, winners); err != nil {
		return err
	}
	if err := WriteFileAtomic(s.cfg.ResultsPath, results); err != nil {
		return err
	}

	s.log.Info("jsonfile: outputs written", "airdrop", s.cfg.AirdropPath, "results", s.cfg.ResultsPath)
	return nil
}

// WriteFileAtomic writes data next to path and renames it into place so
// readers never observe a partial file.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}
