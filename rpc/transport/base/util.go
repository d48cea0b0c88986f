package base

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// newBackOff returns the dial retry policy: exponential backoff starting at
// 50ms with +-10% jitter, capped at 2s between attempts
func newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.RandomizationFactor = 0.1
	b.Multiplier = 2
	b.MaxInterval = 2 * time.Second
	// the number of attempts bounds the retries, not the elapsed time
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// poolLogger routes the handler pool's log output to the transport logger
type poolLogger struct{}

func (poolLogger) Printf(format string, args ...interface{}) {
	Logger.Warningf(format, args...)
}
