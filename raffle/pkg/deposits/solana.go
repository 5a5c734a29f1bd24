package deposits

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/malbeclabs/raffle/raffle/pkg/raffle"
	"github.com/malbeclabs/raffle/utils/pkg/retry"
)

const DefaultAccountName = "UserDeposit"

// borsh sizes of the fixed parts of a deposit account
const (
	discriminatorLen = 8
	pubkeyLen        = 32
	depositLen       = 4 + 8 + 8
)

// ProgramAccountsGetter is the RPC call the source needs; *rpc.Client implements it.
type ProgramAccountsGetter interface {
	GetProgramAccountsWithOpts(ctx context.Context, publicKey solana.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error)
}

type SolanaConfig struct {
	Logger          *slog.Logger
	Client          ProgramAccountsGetter
	ProgramID       solana.PublicKey
	AccountName     string
	Commitment      rpc.CommitmentType
	WhitelistPath   string
	StrictWhitelist bool

	// SnapshotPath, if set, receives the fetched records in file format.
	SnapshotPath string
	Retry        retry.Config
}

func (cfg *SolanaConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Client == nil {
		return errors.New("rpc client is required")
	}
	if cfg.ProgramID.IsZero() {
		return errors.New("program id is required")
	}
	if cfg.AccountName == "" {
		cfg.AccountName = DefaultAccountName
	}
	if cfg.Commitment == "" {
		cfg.Commitment = rpc.CommitmentFinalized
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultConfig()
	}
	return nil
}

// SolanaSource reads deposit accounts straight from the raffle program.
// Accounts are ordered by address since RPC nodes return them in no
// particular order.
type SolanaSource struct {
	log *slog.Logger
	cfg SolanaConfig
}

func NewSolanaSource(cfg SolanaConfig) (*SolanaSource, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &SolanaSource{log: cfg.Logger, cfg: cfg}, nil
}

func (s *SolanaSource) Name() string { return "solana" }

func (s *SolanaSource) Load(ctx context.Context) (raffle.Input, error) {
	records, err := s.Fetch(ctx)
	if err != nil {
		return raffle.Input{}, err
	}
	if s.cfg.SnapshotPath != "" {
		if err := WriteDeposits(s.cfg.SnapshotPath, records); err != nil {
			return raffle.Input{}, fmt.Errorf("failed to write deposit snapshot: %w", err)
		}
		s.log.Info("deposits: snapshot written", "path", s.cfg.SnapshotPath)
	}
	whitelist, err := loadMembership(s.log, s.cfg.WhitelistPath, s.cfg.StrictWhitelist)
	if err != nil {
		return raffle.Input{}, err
	}
	return raffle.Input{Accounts: Accounts(records), Whitelist: whitelist}, nil
}

// Fetch returns every deposit account owned by the program.
func (s *SolanaSource) Fetch(ctx context.Context) ([]UserDeposit, error) {
	disc := Discriminator(s.cfg.AccountName)
	opts := &rpc.GetProgramAccountsOpts{
		Commitment: s.cfg.Commitment,
		Encoding:   solana.EncodingBase64,
		Filters: []rpc.RPCFilter{{
			Memcmp: &rpc.RPCFilterMemcmp{Offset: 0, Bytes: solana.Base58(disc[:])},
		}},
	}

	rcfg := s.cfg.Retry
	rcfg.OnRetry = func(attempt int, err error) {
		s.log.Warn("deposits: retrying program accounts fetch", "attempt", attempt, "error", err)
	}
	accounts, err := retry.Value(ctx, rcfg, func() (rpc.GetProgramAccountsResult, error) {
		return s.cfg.Client.GetProgramAccountsWithOpts(ctx, s.cfg.ProgramID, opts)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get program accounts: %w", err)
	}

	accounts = slices.DeleteFunc(accounts, func(acc *rpc.KeyedAccount) bool {
		return acc == nil || acc.Account == nil || acc.Account.Data == nil
	})
	slices.SortFunc(accounts, func(a, b *rpc.KeyedAccount) int {
		return bytes.Compare(a.Pubkey[:], b.Pubkey[:])
	})

	records := make([]UserDeposit, 0, len(accounts))
	for _, acc := range accounts {
		rec, err := DecodeUserDeposit(acc.Pubkey, acc.Account.Data.GetBinary(), disc)
		if err != nil {
			return nil, fmt.Errorf("failed to decode account %s: %w", acc.Pubkey, err)
		}
		records = append(records, rec)
	}

	s.log.Info("deposits: fetched program accounts", "program", s.cfg.ProgramID, "account", s.cfg.AccountName, "count", len(records))
	return records, nil
}

// Discriminator is the Anchor account discriminator for name.
func Discriminator(name string) [discriminatorLen]byte {
	sum := sha256.Sum256([]byte("account:" + name))
	var out [discriminatorLen]byte
	copy(out[:], sum[:discriminatorLen])
	return out
}

// DecodeUserDeposit decodes the borsh account layout
//
//	user Pubkey | totalNftAmount u32 | totalDepositAmount u64 | vault Pubkey |
//	deposits Vec<{nftAmount u32, depositAmount u64, timestamp i64}>
//
// into the hex string shape of the exported dataset.
func DecodeUserDeposit(address solana.PublicKey, data []byte, disc [discriminatorLen]byte) (UserDeposit, error) {
	dec := bin.NewBorshDecoder(data)

	got, err := dec.ReadNBytes(discriminatorLen)
	if err != nil {
		return UserDeposit{}, fmt.Errorf("failed to read discriminator: %w", err)
	}
	if !bytes.Equal(got, disc[:]) {
		return UserDeposit{}, fmt.Errorf("unexpected discriminator %x", got)
	}

	user, err := readPubkey(dec)
	if err != nil {
		return UserDeposit{}, fmt.Errorf("failed to read user: %w", err)
	}
	totalNFT, err := dec.ReadUint32(binary.LittleEndian)
	if err != nil {
		return UserDeposit{}, fmt.Errorf("failed to read total nft amount: %w", err)
	}
	totalDeposit, err := dec.ReadUint64(binary.LittleEndian)
	if err != nil {
		return UserDeposit{}, fmt.Errorf("failed to read total deposit amount: %w", err)
	}
	vault, err := readPubkey(dec)
	if err != nil {
		return UserDeposit{}, fmt.Errorf("failed to read vault: %w", err)
	}
	n, err := dec.ReadUint32(binary.LittleEndian)
	if err != nil {
		return UserDeposit{}, fmt.Errorf("failed to read deposits length: %w", err)
	}
	if int64(n)*depositLen > int64(dec.Remaining()) {
		return UserDeposit{}, fmt.Errorf("deposits length %d exceeds account data", n)
	}

	rec := UserDeposit{
		PublicKey: address.String(),
		Account: AccountRecord{
			User:               user.String(),
			TotalNFTAmount:     totalNFT,
			TotalDepositAmount: strconv.FormatUint(totalDeposit, 16),
			Vault:              vault.String(),
			Deposits:           make([]DepositRecord, 0, n),
		},
	}
	for i := range n {
		nft, err := dec.ReadUint32(binary.LittleEndian)
		if err != nil {
			return UserDeposit{}, fmt.Errorf("deposit %d: failed to read nft amount: %w", i, err)
		}
		amount, err := dec.ReadUint64(binary.LittleEndian)
		if err != nil {
			return UserDeposit{}, fmt.Errorf("deposit %d: failed to read amount: %w", i, err)
		}
		ts, err := dec.ReadInt64(binary.LittleEndian)
		if err != nil {
			return UserDeposit{}, fmt.Errorf("deposit %d: failed to read timestamp: %w", i, err)
		}
		if ts < 0 {
			return UserDeposit{}, fmt.Errorf("deposit %d: negative timestamp %d", i, ts)
		}
		rec.Account.Deposits = append(rec.Account.Deposits, DepositRecord{
			NFTAmount:     nft,
			DepositAmount: strconv.FormatUint(amount, 16),
			Timestamp:     strconv.FormatInt(ts, 16),
		})
	}
	return rec, nil
}

func readPubkey(dec *bin.Decoder) (solana.PublicKey, error) {
	b, err := dec.ReadNBytes(pubkeyLen)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return solana.PublicKeyFromBytes(b), nil
}
