package stream

import (
	"context"

	"golang.org/x/time/rate"
)

// Throttle wraps src so that all streams opened from it share one token
// bucket of bytesPerSec. A non-positive rate returns src unchanged.
func Throttle(src Source, bytesPerSec int) Source {
	if bytesPerSec <= 0 {
		return src
	}
	return &throttledSource{
		Source:  src,
		limiter: rate.NewLimiter(rate.Limit(bytesPerSec), bytesPerSec),
	}
}

type throttledSource struct {
	Source
	limiter *rate.Limiter
}

func (t *throttledSource) Open(ctx context.Context) (Stream, error) {
	s, err := t.Source.Open(ctx)
	if err != nil {
		return nil, err
	}
	return &throttledStream{Stream: s, ctx: ctx, limiter: t.limiter}, nil
}

type throttledStream struct {
	Stream
	ctx     context.Context
	limiter *rate.Limiter
}

// Read waits for tokens before reading. Reads larger than the burst are
// shortened; callers use io.ReadFull to collect a full chunk.
func (t *throttledStream) Read(p []byte) (int, error) {
	n := len(p)
	if burst := t.limiter.Burst(); n > burst {
		n = burst
	}
	if n == 0 {
		return 0, nil
	}
	if err := t.limiter.WaitN(t.ctx, n); err != nil {
		return 0, err
	}
	return t.Stream.Read(p[:n])
}
