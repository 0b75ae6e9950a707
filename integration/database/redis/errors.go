package redis

import "errors"

// Connection errors. Connect wraps the underlying cause with errors.Join.
var (
	ErrEmptyConnectionURL           = errors.New("redis: connection URL is empty")
	ErrFailedToParseRedisConnString = errors.New("redis: invalid connection URL")
	ErrRedisNotReady                = errors.New("redis: not ready before retries ran out")
	ErrHealthcheckFailed            = errors.New("redis: ping failed")
)
