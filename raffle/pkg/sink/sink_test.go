package sink

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/malbeclabs/raffle/raffle/pkg/raffle"
)

func TestRaffle_Sink_ResultRows(t *testing.T) {
	t.Parallel()

	t.Run("keeps dataset order", func(t *testing.T) {
		t.Parallel()
		out, err := raffle.Draw(raffle.Input{Accounts: []raffle.Account{
			{User: "zed", TotalDepositAmount: "a", Deposits: []raffle.Deposit{{Amount: "a", Timestamp: "1"}}},
			{User: "amy", TotalDepositAmount: "5", Deposits: []raffle.Deposit{{Amount: "5", Timestamp: "2"}}},
		}}, raffle.Options{TotalSupply: 1, Seed: raffle.DefaultSeed})
		require.NoError(t, err)

		rows := (&Run{Outcome: out}).ResultRows()
		require.Len(t, rows, 2)
		require.Equal(t, "zed", rows[0].Owner)
		require.Equal(t, "10", rows[0].DepositAmount)
		require.Equal(t, "0", rows[0].RefundAmount)
		require.Equal(t, 1, rows[0].AirdropAmount)
		require.Equal(t, "amy", rows[1].Owner)
		require.Equal(t, "5", rows[1].RefundAmount)
	})

	t.Run("empty run has no rows", func(t *testing.T) {
		t.Parallel()
		require.Nil(t, (&Run{}).ResultRows())
	})
}

func TestRaffle_Sink_ParseAmount(t *testing.T) {
	t.Parallel()

	v, err := ParseAmount("340282366920938463463374607431768211456")
	require.NoError(t, err)
	require.Equal(t, 129, v.BitLen())

	for _, s := range []string{"", "-1", "0x10", "1.5"} {
		_, err := ParseAmount(s)
		require.Error(t, err, s)
	}
}
