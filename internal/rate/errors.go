package rate

import "errors"

var (
	// ErrRateLimited indicates the caller exceeded a throttle window.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable indicates the throttle backend is unreachable.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
