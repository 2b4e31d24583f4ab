package transform

import (
	"context"

	"golang.org/x/time/rate"
)

// rateLimited decorates a Transformer with a token-bucket limiter,
// blocking before each Transform call. It adapts the teacher's
// FlowWriter.limiter (replica/flow_writer.go), which throttles
// concurrent Redis write batches across many flows, to a single
// sequential pipeline throttling invocations of one Transformer.
type rateLimited struct {
	inner   Transformer
	limiter *rate.Limiter
}

// RateLimited wraps inner so that it is invoked no more than limit times
// per second, with burst allowed up to burst calls.
func RateLimited(inner Transformer, limit rate.Limit, burst int) Transformer {
	return &rateLimited{inner: inner, limiter: rate.NewLimiter(limit, burst)}
}

func (t *rateLimited) Transform(ctx context.Context, payload []byte) ([]byte, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.inner.Transform(ctx, payload)
}
