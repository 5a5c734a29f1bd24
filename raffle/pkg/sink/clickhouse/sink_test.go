package clickhouse_test

import (
	"math/big"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/malbeclabs/raffle/raffle/pkg/raffle"
	"github.com/malbeclabs/raffle/raffle/pkg/sink"
	"github.com/malbeclabs/raffle/raffle/pkg/sink/clickhouse"
	clickhousetesting "github.com/malbeclabs/raffle/raffle/pkg/sink/clickhouse/testing"
	raffletesting "github.com/malbeclabs/raffle/utils/pkg/testing"
)

func testRun(t *testing.T) *sink.Run {
	t.Helper()
	out, err := raffle.Draw(raffle.Input{
		Accounts: []raffle.Account{
			{User: "alice", TotalDepositAmount: "3b9aca00", Deposits: []raffle.Deposit{{Amount: "3b9aca00", Timestamp: "10"}}},
			{User: "bob", TotalDepositAmount: "77359400", Deposits: []raffle.Deposit{
				{Amount: "3b9aca00", Timestamp: "11"},
				{Amount: "3b9aca00", Timestamp: "12"},
			}},
			{User: "carol", TotalDepositAmount: "1dcd6500", Deposits: []raffle.Deposit{{Amount: "1dcd6500", Timestamp: "9"}}},
		},
		Whitelist: []string{"carol"},
	}, raffle.Options{TotalSupply: 2, Seed: raffle.DefaultSeed})
	require.NoError(t, err)
	return &sink.Run{
		ID:      uuid.New(),
		DrawnAt: time.Date(2024, 8, 1, 12, 0, 0, 0, time.UTC),
		Options: raffle.Options{TotalSupply: 2, Seed: raffle.DefaultSeed},
		Outcome: out,
	}
}

func TestRaffle_ClickHouse_Sink(t *testing.T) {
	t.Parallel()
	client, _ := clickhousetesting.NewTestDatabase(t, sharedDB)

	s, err := clickhouse.New(clickhouse.Config{Logger: raffletesting.NewLogger(), Client: client})
	require.NoError(t, err)
	require.Equal(t, "clickhouse", s.Name())

	run := testRun(t)
	require.NoError(t, s.Write(t.Context(), run))

	conn, err := client.Conn(t.Context())
	require.NoError(t, err)

	t.Run("winners keep token order", func(t *testing.T) {
		rows, err := conn.Query(t.Context(),
			"SELECT token_id, owner_address, deposit_amount FROM raffle_winners WHERE run_id = ? ORDER BY token_id", run.ID)
		require.NoError(t, err)
		defer rows.Close()

		var got []raffle.Winner
		for rows.Next() {
			var (
				tokenID uint32
				owner   string
				amount  big.Int
			)
			require.NoError(t, rows.Scan(&tokenID, &owner, &amount))
			got = append(got, raffle.Winner{TokenID: int(tokenID), OwnerAddress: owner, DepositAmount: amount.String()})
		}
		require.NoError(t, rows.Err())
		require.Len(t, got, len(run.Outcome.Winners))
		for i, w := range run.Outcome.Winners {
			require.Equal(t, w.TokenID, got[i].TokenID)
			require.Equal(t, w.OwnerAddress, got[i].OwnerAddress)
			require.Equal(t, w.DepositAmount, got[i].DepositAmount)
		}
	})

	t.Run("results carry refunds", func(t *testing.T) {
		rows, err := conn.Query(t.Context(),
			"SELECT owner_address, in_whitelist, refund_amount, airdrop_amount FROM raffle_results WHERE run_id = ?", run.ID)
		require.NoError(t, err)
		defer rows.Close()

		n := 0
		for rows.Next() {
			var (
				owner   string
				inWL    bool
				refund  big.Int
				airdrop uint32
			)
			require.NoError(t, rows.Scan(&owner, &inWL, &refund, &airdrop))
			want, ok := run.Outcome.Results.Get(owner)
			require.True(t, ok)
			require.Equal(t, want.InWhitelist, inWL)
			require.Equal(t, want.RefundAmount, refund.String())
			require.Equal(t, want.AirdropAmount, int(airdrop))
			n++
		}
		require.NoError(t, rows.Err())
		require.Equal(t, run.Outcome.Results.Len(), n)
	})

	t.Run("run row records the seed chain", func(t *testing.T) {
		var seed, finalSeed string
		var winners uint32
		rows, err := conn.Query(t.Context(),
			"SELECT seed, final_seed, winners FROM raffle_runs WHERE run_id = ?", run.ID)
		require.NoError(t, err)
		defer rows.Close()
		require.True(t, rows.Next())
		require.NoError(t, rows.Scan(&seed, &finalSeed, &winners))
		require.Equal(t, raffle.DefaultSeed, seed)
		require.Equal(t, run.Outcome.Stats.FinalSeed, finalSeed)
		require.Equal(t, uint32(2), winners)
	})
}

func TestRaffle_ClickHouse_Migrations(t *testing.T) {
	t.Parallel()
	log := raffletesting.NewLogger()
	_, cfg := clickhousetesting.NewTestDatabase(t, sharedDB)

	version, err := clickhouse.Version(t.Context(), log, cfg)
	require.NoError(t, err)
	require.Equal(t, int64(1), version)

	require.NoError(t, clickhouse.Down(t.Context(), log, cfg))
	version, err = clickhouse.Version(t.Context(), log, cfg)
	require.NoError(t, err)
	require.Zero(t, version)

	require.NoError(t, clickhouse.Up(t.Context(), log, cfg))
}

func TestRaffle_ClickHouse_Config(t *testing.T) {
	t.Parallel()

	_, err := clickhouse.New(clickhouse.Config{})
	require.ErrorContains(t, err, "logger is required")
	_, err = clickhouse.New(clickhouse.Config{Logger: raffletesting.NewLogger()})
	require.ErrorContains(t, err, "client is required")

	cfg := clickhouse.ConnConfig{}
	require.Error(t, cfg.Validate())
	cfg.Addr = "localhost:9000"
	require.NoError(t, cfg.Validate())
	require.Equal(t, clickhouse.DefaultDatabase, cfg.Database)
	require.Equal(t, "default", cfg.Username)
}
