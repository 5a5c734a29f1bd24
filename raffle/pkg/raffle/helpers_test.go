package raffle

import (
	"fmt"
	"math/big"
)

func deposit(amount, timestamp uint64) Deposit {
	return Deposit{
		NFTAmount: 1,
		Amount:    fmt.Sprintf("%016x", amount),
		Timestamp: fmt.Sprintf("%x", timestamp),
	}
}

func account(user string, deposits ...Deposit) Account {
	total := new(big.Int)
	for _, d := range deposits {
		v, err := ParseHexAmount(d.Amount)
		if err != nil {
			continue
		}
		total.Add(total, v)
	}
	return Account{
		User:               user,
		TotalNFTAmount:     uint32(len(deposits)),
		TotalDepositAmount: total.Text(16),
		Vault:              user + "-vault",
		Deposits:           deposits,
	}
}

func tier(amount int64, entries ...Entry) Tier {
	return Tier{
		Amount:  big.NewInt(amount).String(),
		Value:   big.NewInt(amount),
		Entries: entries,
	}
}

func entry(address string, amount int64, timestamp uint64) Entry {
	return Entry{
		Address:   address,
		Amount:    big.NewInt(amount).String(),
		Timestamp: timestamp,
		value:     big.NewInt(amount),
	}
}
