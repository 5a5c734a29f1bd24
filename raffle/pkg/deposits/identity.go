package deposits

import (
	"log/slog"

	"github.com/mr-tron/base58"

	"github.com/malbeclabs/raffle/raffle/pkg/raffle"
)

const identityLen = 32

// ValidIdentity reports whether id is a base58 encoded 32 byte key.
func ValidIdentity(id string) bool {
	b, err := base58.Decode(id)
	return err == nil && len(b) == identityLen
}

// CheckIdentities logs a warning for every whitelist entry and depositor that
// does not look like a Solana address, and returns how many were found. It
// never rejects input; the draw treats identities as opaque strings.
func CheckIdentities(log *slog.Logger, in raffle.Input) int {
	bad := 0
	for _, id := range in.Whitelist {
		if !ValidIdentity(id) {
			log.Warn("deposits: whitelist entry is not a valid address", "identity", id)
			bad++
		}
	}
	for _, a := range in.Accounts {
		if !ValidIdentity(a.User) {
			log.Warn("deposits: depositor is not a valid address", "identity", a.User)
			bad++
		}
	}
	return bad
}
