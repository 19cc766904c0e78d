package redis

import "errors"

var (
	ErrEmptyConnectionURL           = errors.New("redis connection url is empty (REDIS_URL)")
	ErrFailedToParseRedisConnString = errors.New("failed to parse redis connection url")
	ErrRedisNotReady                = errors.New("redis did not answer PING in time")
	ErrHealthcheckFailed            = errors.New("redis healthcheck failed")
)
