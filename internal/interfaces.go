package internal

import (
	"context"
	"io"
)

// Transport performs one HTTP round trip. Implementations must not treat
// non-2xx statuses as errors; error is reserved for failures to obtain a
// response at all.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// ProgressReporter observes a streamed download
type ProgressReporter interface {
	Start(total int64)
	Wrap(w io.Writer) io.Writer
	Finish()
}

// RateLimiter controls bandwidth usage
type RateLimiter interface {
	Wait(ctx context.Context, n int) error
	SetRate(bytesPerSecond int64)
}
