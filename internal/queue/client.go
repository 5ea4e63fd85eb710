package queue

import "context"

// Client sends messages to a queue backend. Enqueueing the same analysis id
// twice must be deduplicated by the backend.
type Client interface {
	Send(ctx context.Context, msg Message) error
}
