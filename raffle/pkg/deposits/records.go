package deposits

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/malbeclabs/raffle/raffle/pkg/raffle"
	"github.com/malbeclabs/raffle/raffle/pkg/sink/jsonfile"
)

// DepositRecord is one deposit event as exported from the program. Amounts
// and timestamps are hex strings.
type DepositRecord struct {
	NFTAmount     uint32 `json:"nftAmount"`
	DepositAmount string `json:"depositAmount"`
	Timestamp     string `json:"timestamp"`
}

type AccountRecord struct {
	User               string          `json:"user"`
	TotalNFTAmount     uint32          `json:"totalNftAmount"`
	TotalDepositAmount string          `json:"totalDepositAmount"`
	Vault              string          `json:"vault"`
	Deposits           []DepositRecord `json:"deposits"`
}

// UserDeposit is a program account keyed by its address.
type UserDeposit struct {
	PublicKey string        `json:"publicKey"`
	Account   AccountRecord `json:"account"`
}

func (u UserDeposit) ToAccount() raffle.Account {
	a := raffle.Account{
		User:               u.Account.User,
		TotalNFTAmount:     u.Account.TotalNFTAmount,
		TotalDepositAmount: u.Account.TotalDepositAmount,
		Vault:              u.Account.Vault,
		Deposits:           make([]raffle.Deposit, 0, len(u.Account.Deposits)),
	}
	for _, d := range u.Account.Deposits {
		a.Deposits = append(a.Deposits, raffle.Deposit{
			NFTAmount: d.NFTAmount,
			Amount:    d.DepositAmount,
			Timestamp: d.Timestamp,
		})
	}
	return a
}

// Accounts converts records in order.
func Accounts(records []UserDeposit) []raffle.Account {
	out := make([]raffle.Account, 0, len(records))
	for _, r := range records {
		out = append(out, r.ToAccount())
	}
	return out
}

// DecodeDeposits reads a JSON array of UserDeposit records.
func DecodeDeposits(r io.Reader) ([]UserDeposit, error) {
	var records []UserDeposit
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode deposits: %w", err)
	}
	for i, rec := range records {
		if rec.Account.User == "" {
			return nil, fmt.Errorf("deposit record %d (%s) has no user", i, rec.PublicKey)
		}
	}
	return records, nil
}

// LoadDeposits reads the deposit dataset at path.
func LoadDeposits(path string) ([]UserDeposit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open deposits: %w", err)
	}
	defer f.Close()
	records, err := DecodeDeposits(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// WriteDeposits stores records in the same shape LoadDeposits reads, so a
// fetched snapshot can be replayed.
func WriteDeposits(path string, records []UserDeposit) error {
	if records == nil {
		records = []UserDeposit{}
	}
	b, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode deposits: %w", err)
	}
	return jsonfile.WriteFileAtomic(path, b)
}

// ErrMalformedWhitelist wraps whitelist files that are not a JSON array of strings.
var ErrMalformedWhitelist = errors.New("malformed whitelist")

// DecodeWhitelist reads a JSON array of identities.
func DecodeWhitelist(r io.Reader) ([]string, error) {
	var ids []string
	if err := json.NewDecoder(r).Decode(&ids); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedWhitelist, err)
	}
	return ids, nil
}

// LoadWhitelist reads the membership list at path.
func LoadWhitelist(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open whitelist: %w", err)
	}
	defer f.Close()
	ids, err := DecodeWhitelist(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ids, nil
}
