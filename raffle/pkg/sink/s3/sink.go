package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/malbeclabs/raffle/raffle/pkg/sink"
	"github.com/malbeclabs/raffle/raffle/pkg/sink/jsonfile"
)

// PutObjectAPI is the part of the S3 client the sink uses.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Config struct {
	Logger *slog.Logger
	Client PutObjectAPI
	Bucket string
	Prefix string
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Client == nil {
		return errors.New("s3 client is required")
	}
	if cfg.Bucket == "" {
		return errors.New("s3 bucket is required")
	}
	cfg.Prefix = strings.Trim(cfg.Prefix, "/")
	return nil
}

// Sink uploads both outputs under <prefix>/<run-id>/.
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

// NewClient builds an S3 client from the default AWS credential chain. A
// non-empty endpoint selects an S3-compatible store with path-style URLs.
func NewClient(ctx context.Context, region, endpoint string) (*s3.Client, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

func (s *Sink) Name() string { return "s3" }

func (s *Sink) Write(ctx context.Context, run *sink.Run) error {
	if run == nil || run.Outcome == nil {
		return errors.New("run outcome is required")
	}

	winners, err := jsonfile.EncodeWinners(run.Outcome.Winners)
	if err != nil {
		return err
	}
	results, err := jsonfile.EncodeResults(run.Outcome.Results)
	if err != nil {
		return err
	}

	for _, obj := range []struct {
		name string
		body []byte
	}{
		{jsonfile.DefaultAirdropPath, winners},
		{jsonfile.DefaultResultsPath, results},
	} {
		key := s.Key(run, obj.name)
		_, err := s.cfg.Client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.cfg.Bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(obj.body),
			ContentType: aws.String("application/json"),
			Metadata: map[string]string{
				"run-id":     run.ID.String(),
				"final-seed": run.Outcome.Stats.FinalSeed,
			},
		})
		if err != nil {
			return fmt.Errorf("failed to upload s3://%s/%s: %w", s.cfg.Bucket, key, err)
		}
		s.log.Debug("s3: object uploaded", "bucket", s.cfg.Bucket, "key", key, "bytes", len(obj.body))
	}

	s.log.Info("s3: outputs uploaded", "bucket", s.cfg.Bucket, "prefix", s.Key(run, ""))
	return nil
}

// Key returns the object key for name within the run's folder.
func (s *Sink) Key(run *sink.Run, name string) string {
	return path.Join(s.cfg.Prefix, run.ID.String(), name)
}
