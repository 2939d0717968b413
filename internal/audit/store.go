package audit

import "context"

// Store is an append-only sink for events.
type Store interface {
	Append(ctx context.Context, event Event) error
}
