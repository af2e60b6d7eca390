package link

import "errors"

var (
	// ErrUnavailable indicates the channel can't be opened or is gone.
	// It's fatal for the owner of the channel.
	ErrUnavailable = errors.New("link unavailable")
	// ErrUnknownScheme indicates the link URL scheme is not supported.
	ErrUnknownScheme = errors.New("unknown link scheme")
)
