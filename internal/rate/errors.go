package rate

import "errors"

var (
	// ErrRateLimited is returned by Allow when the window budget is spent.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps transient Redis failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
