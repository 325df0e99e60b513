package trackapi

import "errors"

// Sentinel kinds for leaderboard fetch errors.
var (
	ErrTransport = errors.New("leaderboard api transport failed")
	ErrMalformed = errors.New("leaderboard api response malformed")
)
