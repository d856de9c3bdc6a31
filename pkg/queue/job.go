package queue

import "context"

// Handler processes one raw job payload. A returned error schedules a retry until the
// retry limit is reached, then the message moves to the dead-letter list.
type Handler interface {
	Handle(ctx context.Context, payload []byte) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, payload []byte) error

func (f HandlerFunc) Handle(ctx context.Context, payload []byte) error { return f(ctx, payload) }
