package shared

import "context"

// Invalidator drops derived read models (report caches) after a write.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// NopInvalidator is used when no cache is configured.
type NopInvalidator struct{}

// Bump does nothing.
func (NopInvalidator) Bump(context.Context) error { return nil }
