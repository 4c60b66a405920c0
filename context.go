package arena

import "context"

type producerKey struct{}

// NewContext returns a copy of ctx carrying p, so a task's scratch producer
// can follow it down a pipeline.
func NewContext(ctx context.Context, p *Producer) context.Context {
	return context.WithValue(ctx, producerKey{}, p)
}

// FromContext returns the producer stored in ctx, if any.
func FromContext(ctx context.Context) (*Producer, bool) {
	p, ok := ctx.Value(producerKey{}).(*Producer)
	return p, ok
}
