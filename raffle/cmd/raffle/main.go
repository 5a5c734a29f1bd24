package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/getsentry/sentry-go"
	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/malbeclabs/raffle/raffle/pkg/deposits"
	"github.com/malbeclabs/raffle/raffle/pkg/metrics"
	"github.com/malbeclabs/raffle/raffle/pkg/raffle"
	"github.com/malbeclabs/raffle/raffle/pkg/runner"
	"github.com/malbeclabs/raffle/raffle/pkg/sink"
	"github.com/malbeclabs/raffle/raffle/pkg/sink/clickhouse"
	"github.com/malbeclabs/raffle/raffle/pkg/sink/jsonfile"
	"github.com/malbeclabs/raffle/raffle/pkg/sink/postgres"
	"github.com/malbeclabs/raffle/raffle/pkg/sink/s3"
	"github.com/malbeclabs/raffle/utils/pkg/logger"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	versionFlag := flag.Bool("version", false, "print version and exit")

	// Draw
	depositsFlag := flag.String("deposits", "", "deposit dataset JSON file (or set RAFFLE_DEPOSITS env var)")
	whitelistFlag := flag.String("whitelist", "", "whitelist JSON file; empty means no privileged cohort (or set RAFFLE_WHITELIST env var)")
	strictWhitelistFlag := flag.Bool("strict-whitelist", false, "fail instead of ignoring a malformed whitelist")
	totalSupplyFlag := flag.Int("total-supply", raffle.DefaultTotalSupply, "number of tokens to award (or set RAFFLE_TOTAL_SUPPLY env var)")
	seedFlag := flag.String("seed", raffle.DefaultSeed, "initial seed of the hash chain (or set RAFFLE_SEED env var)")
	checkIdentitiesFlag := flag.Bool("check-identities", false, "warn about identities that are not Solana addresses")
	tokenDecimalsFlag := flag.Int32("token-decimals", runner.DefaultTokenDecimals, "decimals used when logging deposit totals")

	// Outputs
	airdropOutFlag := flag.String("airdrop-out", jsonfile.DefaultAirdropPath, "winners output file")
	resultsOutFlag := flag.String("results-out", jsonfile.DefaultResultsPath, "per-depositor results output file")
	verifyAirdropFlag := flag.String("verify-airdrop", "", "previously published airdrop.json the draw must reproduce")
	metricsTextfileFlag := flag.String("metrics-textfile", "", "write prometheus metrics to this file after the run")

	// Solana source
	solanaRPCURLFlag := flag.String("solana-rpc-url", "", "read deposits from this RPC endpoint instead of --deposits (or set SOLANA_RPC_URL env var)")
	solanaProgramIDFlag := flag.String("solana-program-id", "", "raffle program id (or set SOLANA_PROGRAM_ID env var)")
	solanaAccountNameFlag := flag.String("solana-account-name", deposits.DefaultAccountName, "Anchor account type holding user deposits")
	solanaSnapshotFlag := flag.String("solana-snapshot", "", "write fetched deposits to this file for replay")

	// ClickHouse sink
	clickhouseAddrFlag := flag.String("clickhouse-addr", "", "ClickHouse address (host:port) (or set CLICKHOUSE_ADDR_TCP env var)")
	clickhouseDatabaseFlag := flag.String("clickhouse-database", clickhouse.DefaultDatabase, "ClickHouse database name (or set CLICKHOUSE_DATABASE env var)")
	clickhouseUsernameFlag := flag.String("clickhouse-username", "default", "ClickHouse username (or set CLICKHOUSE_USERNAME env var)")
	clickhousePasswordFlag := flag.String("clickhouse-password", "", "ClickHouse password (or set CLICKHOUSE_PASSWORD env var)")
	clickhouseSecureFlag := flag.Bool("clickhouse-secure", false, "enable TLS for ClickHouse Cloud (or set CLICKHOUSE_SECURE=true env var)")
	clickhouseMigrateFlag := flag.Bool("clickhouse-migrate", true, "apply ClickHouse migrations before writing")

	// Postgres sink
	postgresURLFlag := flag.String("postgres-url", "", "PostgreSQL connection string (or set POSTGRES_URL env var)")

	// S3 sink
	s3BucketFlag := flag.String("s3-bucket", "", "upload outputs to this bucket (or set S3_BUCKET env var)")
	s3PrefixFlag := flag.String("s3-prefix", "raffles", "key prefix for uploads (or set S3_PREFIX env var)")
	s3RegionFlag := flag.String("s3-region", "", "bucket region (or set S3_REGION env var)")
	s3EndpointFlag := flag.String("s3-endpoint", "", "S3-compatible endpoint URL (or set S3_ENDPOINT env var)")

	flag.Parse()

	if *versionFlag {
		fmt.Printf("raffle %s (commit %s, built %s)\n", version, commit, date)
		return nil
	}

	overrideString(depositsFlag, "RAFFLE_DEPOSITS")
	overrideString(whitelistFlag, "RAFFLE_WHITELIST")
	overrideString(seedFlag, "RAFFLE_SEED")
	if v := os.Getenv("RAFFLE_TOTAL_SUPPLY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid RAFFLE_TOTAL_SUPPLY %q: %w", v, err)
		}
		*totalSupplyFlag = n
	}
	overrideString(solanaRPCURLFlag, "SOLANA_RPC_URL")
	overrideString(solanaProgramIDFlag, "SOLANA_PROGRAM_ID")
	overrideString(clickhouseAddrFlag, "CLICKHOUSE_ADDR_TCP")
	overrideString(clickhouseDatabaseFlag, "CLICKHOUSE_DATABASE")
	overrideString(clickhouseUsernameFlag, "CLICKHOUSE_USERNAME")
	overrideString(clickhousePasswordFlag, "CLICKHOUSE_PASSWORD")
	if os.Getenv("CLICKHOUSE_SECURE") == "true" {
		*clickhouseSecureFlag = true
	}
	overrideString(postgresURLFlag, "POSTGRES_URL")
	overrideString(s3BucketFlag, "S3_BUCKET")
	overrideString(s3PrefixFlag, "S3_PREFIX")
	overrideString(s3RegionFlag, "S3_REGION")
	overrideString(s3EndpointFlag, "S3_ENDPOINT")

	log := logger.New(*verboseFlag)
	metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              dsn,
			Release:          version,
			Environment:      os.Getenv("SENTRY_ENVIRONMENT"),
			TracesSampleRate: 1.0,
		}); err != nil {
			return fmt.Errorf("failed to initialize sentry: %w", err)
		}
		defer sentry.Flush(5 * time.Second)
		log.Info("sentry initialized", "environment", os.Getenv("SENTRY_ENVIRONMENT"))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := execute(ctx, log, options{
		depositsPath:      *depositsFlag,
		whitelistPath:     *whitelistFlag,
		strictWhitelist:   *strictWhitelistFlag,
		draw:              raffle.Options{TotalSupply: *totalSupplyFlag, Seed: *seedFlag},
		checkIdentities:   *checkIdentitiesFlag,
		tokenDecimals:     *tokenDecimalsFlag,
		airdropOut:        *airdropOutFlag,
		resultsOut:        *resultsOutFlag,
		verifyAirdrop:     *verifyAirdropFlag,
		metricsTextfile:   *metricsTextfileFlag,
		solanaRPCURL:      *solanaRPCURLFlag,
		solanaProgramID:   *solanaProgramIDFlag,
		solanaAccount:     *solanaAccountNameFlag,
		solanaSnapshot:    *solanaSnapshotFlag,
		clickhouse:        clickhouse.ConnConfig{Addr: *clickhouseAddrFlag, Database: *clickhouseDatabaseFlag, Username: *clickhouseUsernameFlag, Password: *clickhousePasswordFlag, Secure: *clickhouseSecureFlag},
		clickhouseMigrate: *clickhouseMigrateFlag,
		postgresURL:       *postgresURLFlag,
		s3Bucket:          *s3BucketFlag,
		s3Prefix:          *s3PrefixFlag,
		s3Region:          *s3RegionFlag,
		s3Endpoint:        *s3EndpointFlag,
	})
	if err != nil {
		sentry.CaptureException(err)
	}
	return err
}

type options struct {
	depositsPath      string
	whitelistPath     string
	strictWhitelist   bool
	draw              raffle.Options
	checkIdentities   bool
	tokenDecimals     int32
	airdropOut        string
	resultsOut        string
	verifyAirdrop     string
	metricsTextfile   string
	solanaRPCURL      string
	solanaProgramID   string
	solanaAccount     string
	solanaSnapshot    string
	clickhouse        clickhouse.ConnConfig
	clickhouseMigrate bool
	postgresURL       string
	s3Bucket          string
	s3Prefix          string
	s3Region          string
	s3Endpoint        string
}

func execute(ctx context.Context, log *slog.Logger, opts options) error {
	source, err := newSource(log, opts)
	if err != nil {
		return err
	}

	jsonSink, err := jsonfile.New(jsonfile.Config{Logger: log, AirdropPath: opts.airdropOut, ResultsPath: opts.resultsOut})
	if err != nil {
		return fmt.Errorf("failed to create json sink: %w", err)
	}
	sinks := []sink.Sink{jsonSink}

	if opts.clickhouse.Addr != "" {
		if opts.clickhouseMigrate {
			if err := clickhouse.Up(ctx, log, opts.clickhouse); err != nil {
				return err
			}
		}
		client, err := clickhouse.NewClient(ctx, log, opts.clickhouse)
		if err != nil {
			return err
		}
		defer client.Close()
		chSink, err := clickhouse.New(clickhouse.Config{Logger: log, Client: client})
		if err != nil {
			return fmt.Errorf("failed to create clickhouse sink: %w", err)
		}
		sinks = append(sinks, chSink)
	}

	if opts.postgresURL != "" {
		pool, err := postgres.NewPool(ctx, opts.postgresURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := postgres.Up(ctx, log, pool); err != nil {
			return err
		}
		pgSink, err := postgres.New(postgres.Config{Logger: log, Pool: pool})
		if err != nil {
			return fmt.Errorf("failed to create postgres sink: %w", err)
		}
		sinks = append(sinks, pgSink)
	}

	if opts.s3Bucket != "" {
		client, err := s3.NewClient(ctx, opts.s3Region, opts.s3Endpoint)
		if err != nil {
			return err
		}
		s3Sink, err := s3.New(s3.Config{Logger: log, Client: client, Bucket: opts.s3Bucket, Prefix: opts.s3Prefix})
		if err != nil {
			return fmt.Errorf("failed to create s3 sink: %w", err)
		}
		sinks = append(sinks, s3Sink)
	}

	r, err := runner.New(runner.Config{
		Logger:          log,
		Clock:           clockwork.NewRealClock(),
		Source:          source,
		Sinks:           sinks,
		Options:         opts.draw,
		VerifyAgainst:   opts.verifyAirdrop,
		CheckIdentities: opts.checkIdentities,
		TokenDecimals:   opts.tokenDecimals,
		MetricsTextfile: opts.metricsTextfile,
	})
	if err != nil {
		return fmt.Errorf("failed to create runner: %w", err)
	}

	_, err = r.Run(ctx)
	return err
}

func newSource(log *slog.Logger, opts options) (deposits.Source, error) {
	if opts.solanaRPCURL == "" {
		if opts.depositsPath == "" {
			return nil, errors.New("--deposits or --solana-rpc-url is required")
		}
		return deposits.NewFileSource(deposits.FileConfig{
			Logger:          log,
			DepositsPath:    opts.depositsPath,
			WhitelistPath:   opts.whitelistPath,
			StrictWhitelist: opts.strictWhitelist,
		})
	}

	if opts.depositsPath != "" {
		return nil, errors.New("--deposits and --solana-rpc-url are mutually exclusive")
	}
	if opts.solanaProgramID == "" {
		return nil, errors.New("--solana-program-id is required with --solana-rpc-url")
	}
	programID, err := solana.PublicKeyFromBase58(opts.solanaProgramID)
	if err != nil {
		return nil, fmt.Errorf("invalid --solana-program-id: %w", err)
	}
	return deposits.NewSolanaSource(deposits.SolanaConfig{
		Logger:          log,
		Client:          rpc.New(opts.solanaRPCURL),
		ProgramID:       programID,
		AccountName:     opts.solanaAccount,
		WhitelistPath:   opts.whitelistPath,
		StrictWhitelist: opts.strictWhitelist,
		SnapshotPath:    opts.solanaSnapshot,
	})
}

func overrideString(flagValue *string, env string) {
	if v := os.Getenv(env); v != "" {
		*flagValue = v
	}
}
