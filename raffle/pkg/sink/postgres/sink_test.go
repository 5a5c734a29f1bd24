package postgres_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/malbeclabs/raffle/raffle/pkg/raffle"
	"github.com/malbeclabs/raffle/raffle/pkg/sink"
	"github.com/malbeclabs/raffle/raffle/pkg/sink/postgres"
	postgrestesting "github.com/malbeclabs/raffle/raffle/pkg/sink/postgres/testing"
	raffletesting "github.com/malbeclabs/raffle/utils/pkg/testing"
)

func testRun(t *testing.T) *sink.Run {
	t.Helper()
	opts := raffle.Options{TotalSupply: 3, Seed: raffle.DefaultSeed}
	out, err := raffle.Draw(raffle.Input{
		Accounts: []raffle.Account{
			{User: "alice", TotalDepositAmount: "ffffffffffffffffffff", Deposits: []raffle.Deposit{{Amount: "ffffffffffffffffffff", Timestamp: "1"}}},
			{User: "bob", TotalDepositAmount: "2", Deposits: []raffle.Deposit{{Amount: "1", Timestamp: "2"}, {Amount: "1", Timestamp: "3"}}},
			{User: "carol", TotalDepositAmount: "1", Deposits: []raffle.Deposit{{Amount: "1", Timestamp: "4"}}},
		},
	}, opts)
	require.NoError(t, err)
	return &sink.Run{ID: uuid.New(), DrawnAt: time.Now().UTC().Truncate(time.Millisecond), Options: opts, Outcome: out}
}

func TestRaffle_Postgres_Sink(t *testing.T) {
	t.Parallel()
	pool := postgrestesting.NewTestPool(t, sharedDB)

	s, err := postgres.New(postgres.Config{Logger: raffletesting.NewLogger(), Pool: pool})
	require.NoError(t, err)
	require.Equal(t, "postgres", s.Name())

	run := testRun(t)
	require.NoError(t, s.Write(t.Context(), run))

	t.Run("winners", func(t *testing.T) {
		rows, err := pool.Query(t.Context(),
			"SELECT token_id, owner_address, deposit_amount::text FROM raffle_winners WHERE run_id = $1 ORDER BY token_id", run.ID)
		require.NoError(t, err)
		defer rows.Close()

		i := 0
		for rows.Next() {
			var (
				tokenID int
				owner   string
				amount  string
			)
			require.NoError(t, rows.Scan(&tokenID, &owner, &amount))
			want := run.Outcome.Winners[i]
			require.Equal(t, want.TokenID, tokenID)
			require.Equal(t, want.OwnerAddress, owner)
			require.Equal(t, want.DepositAmount, amount)
			i++
		}
		require.NoError(t, rows.Err())
		require.Equal(t, 3, i)
		require.Equal(t, "1208925819614629174706175", run.Outcome.Winners[0].DepositAmount)
	})

	t.Run("results keep dataset order", func(t *testing.T) {
		rows, err := pool.Query(t.Context(),
			"SELECT owner_address, refund_amount::text, airdrop_amount FROM raffle_results WHERE run_id = $1 ORDER BY position", run.ID)
		require.NoError(t, err)
		defer rows.Close()

		var owners []string
		for rows.Next() {
			var (
				owner   string
				refund  string
				airdrop int
			)
			require.NoError(t, rows.Scan(&owner, &refund, &airdrop))
			want, ok := run.Outcome.Results.Get(owner)
			require.True(t, ok)
			require.Equal(t, want.RefundAmount, refund)
			require.Equal(t, want.AirdropAmount, airdrop)
			owners = append(owners, owner)
		}
		require.NoError(t, rows.Err())
		require.Equal(t, run.Outcome.Results.Users(), owners)
	})

	t.Run("run row", func(t *testing.T) {
		var finalSeed string
		var winners int
		err := pool.QueryRow(t.Context(),
			"SELECT final_seed, winners FROM raffle_runs WHERE run_id = $1", run.ID).Scan(&finalSeed, &winners)
		require.NoError(t, err)
		require.Equal(t, run.Outcome.Stats.FinalSeed, finalSeed)
		require.Equal(t, 3, winners)
	})

	t.Run("rewriting the same run fails without partial rows", func(t *testing.T) {
		err := s.Write(t.Context(), run)
		require.Error(t, err)

		var n int
		require.NoError(t, pool.QueryRow(t.Context(),
			"SELECT count(*) FROM raffle_winners WHERE run_id = $1", run.ID).Scan(&n))
		require.Equal(t, 3, n)
	})
}

func TestRaffle_Postgres_Config(t *testing.T) {
	t.Parallel()

	_, err := postgres.New(postgres.Config{})
	require.ErrorContains(t, err, "logger is required")
	_, err = postgres.New(postgres.Config{Logger: raffletesting.NewLogger()})
	require.ErrorContains(t, err, "pool is required")
}
