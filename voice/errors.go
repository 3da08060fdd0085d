package voice

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyOwnsChannel = errors.New("requester already owns a custom channel")
	ErrNoOwnedChannel     = errors.New("requester does not own a custom channel")
	ErrNotJoinedInTime    = errors.New("requester did not join the channel in time")
	ErrUnknownTrigger     = errors.New("channel is not a click-to-create channel")
	ErrInvalidLimit       = errors.New("member limit must not be negative")

	// ErrChannelGone is returned by providers when the platform channel no
	// longer exists.
	ErrChannelGone = errors.New("platform channel no longer exists")

	// ErrProvider matches any *ProviderError.
	ErrProvider = errors.New("guild channel provider failure")
)

// ProviderError wraps a failed Provider call.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func (e *ProviderError) Is(target error) bool {
	return target == ErrProvider
}

func providerError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Op: op, Err: err}
}
