package jsonfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/malbeclabs/raffle/raffle/pkg/raffle"
	"github.com/malbeclabs/raffle/raffle/pkg/sink"
	raffletesting "github.com/malbeclabs/raffle/utils/pkg/testing"
)

func TestRaffle_JSONFile_Encode(t *testing.T) {
	t.Parallel()

	t.Run("winners use two space indent", func(t *testing.T) {
		t.Parallel()
		b, err := EncodeWinners([]raffle.Winner{{OwnerAddress: "Ab<c>", DepositAmount: "10", TokenID: 1, Timestamp: 5}})
		require.NoError(t, err)
		require.Equal(t, `[
  {
    "ownerAddress": "Ab<c>",
    "depositAmount": "10",
    "tokenId": 1,
    "timestamp": 5
  }
]`, string(b))
	})

	t.Run("no winners is an empty array", func(t *testing.T) {
		t.Parallel()
		b, err := EncodeWinners(nil)
		require.NoError(t, err)
		require.Equal(t, "[]", string(b))
	})

	t.Run("results are keyed in dataset order", func(t *testing.T) {
		t.Parallel()
		results, err := raffle.Aggregate([]raffle.Account{
			{User: "zed", TotalDepositAmount: "1", Deposits: []raffle.Deposit{{Amount: "1", Timestamp: "1"}}},
			{User: "amy", TotalDepositAmount: "2", Deposits: []raffle.Deposit{{Amount: "2", Timestamp: "1"}}},
		}, []string{"amy"}, nil)
		require.NoError(t, err)

		b, err := EncodeResults(results)
		require.NoError(t, err)
		require.Equal(t, `{
  "zed": {
    "inWhitelist": false,
    "depositAmount": "1",
    "refundAmount": "1",
    "airdropAmount": 0
  },
  "amy": {
    "inWhitelist": true,
    "depositAmount": "2",
    "refundAmount": "2",
    "airdropAmount": 0
  }
}`, string(b))
	})

	t.Run("results keep identities unescaped", func(t *testing.T) {
		t.Parallel()
		results, err := raffle.Aggregate([]raffle.Account{
			{User: "Ab<c>&d", TotalDepositAmount: "a", Deposits: []raffle.Deposit{{Amount: "a", Timestamp: "1"}}},
		}, nil, []raffle.Winner{{OwnerAddress: "Ab<c>&d", DepositAmount: "10", TokenID: 1, Timestamp: 1}})
		require.NoError(t, err)

		b, err := EncodeResults(results)
		require.NoError(t, err)
		require.Equal(t, `{
  "Ab<c>&d": {
    "inWhitelist": false,
    "depositAmount": "10",
    "refundAmount": "0",
    "airdropAmount": 1
  }
}`, string(b))
	})

	t.Run("nil results is an empty object", func(t *testing.T) {
		t.Parallel()
		b, err := EncodeResults(nil)
		require.NoError(t, err)
		require.Equal(t, "{}", string(b))
	})
}

func TestRaffle_JSONFile_Sink(t *testing.T) {
	t.Parallel()

	t.Run("writes both files", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		s, err := New(Config{
			Logger:      raffletesting.NewLogger(),
			AirdropPath: filepath.Join(dir, "out", "airdrop.json"),
			ResultsPath: filepath.Join(dir, "out", "raffle_results.json"),
		})
		require.NoError(t, err)
		require.Equal(t, "jsonfile", s.Name())

		out, err := raffle.Draw(raffle.Input{Accounts: []raffle.Account{
			{User: "alice", TotalDepositAmount: "5", Deposits: []raffle.Deposit{{Amount: "5", Timestamp: "1"}}},
		}}, raffle.DefaultOptions())
		require.NoError(t, err)
		require.NoError(t, s.Write(t.Context(), &sink.Run{Outcome: out}))

		airdrop, err := os.ReadFile(filepath.Join(dir, "out", "airdrop.json"))
		require.NoError(t, err)
		want, err := EncodeWinners(out.Winners)
		require.NoError(t, err)
		require.Equal(t, string(want), string(airdrop))

		results, err := os.ReadFile(filepath.Join(dir, "out", "raffle_results.json"))
		require.NoError(t, err)
		require.Contains(t, string(results), `"alice": {`)

		entries, err := os.ReadDir(filepath.Join(dir, "out"))
		require.NoError(t, err)
		require.Len(t, entries, 2, "temp files must not be left behind")
	})

	t.Run("overwrites existing outputs", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "airdrop.json")
		require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))
		require.NoError(t, WriteFileAtomic(path, []byte("[]")))
		b, err := os.ReadFile(path)
		require.NoError(t, err)
		require.Equal(t, "[]", string(b))
	})

	t.Run("config defaults and validation", func(t *testing.T) {
		t.Parallel()
		cfg := Config{Logger: raffletesting.NewLogger()}
		require.NoError(t, cfg.Validate())
		require.Equal(t, DefaultAirdropPath, cfg.AirdropPath)
		require.Equal(t, DefaultResultsPath, cfg.ResultsPath)

		cfg = Config{Logger: raffletesting.NewLogger(), AirdropPath: "x.json", ResultsPath: "./x.json"}
		require.Error(t, cfg.Validate())
		_, err := New(Config{})
		require.ErrorContains(t, err, "logger is required")
	})
}
