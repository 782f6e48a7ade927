package uid

import "context"

// UID produces unique string identifiers.
type UID interface {
	New(ctx context.Context) (string, error)
}
