package raffle

import "errors"

var (
	// ErrMalformedNumber is returned when a hex amount or timestamp cannot be parsed.
	ErrMalformedNumber = errors.New("malformed number")

	// ErrEmptyTier is returned when the sampler is asked to draw from nothing.
	ErrEmptyTier = errors.New("tier is empty")

	// ErrCapacityInvariant is returned when the sampler is asked for more
	// distinct picks than there are entries. It indicates an allocator bug.
	ErrCapacityInvariant = errors.New("requested more winners than entries")

	// ErrNegativeRefund is returned when a depositor's winning entries add up
	// to more than they deposited.
	ErrNegativeRefund = errors.New("refund amount is negative")

	// ErrUnknownWinner is returned when a winner has no matching deposit record.
	ErrUnknownWinner = errors.New("winner has no deposit record")
)
