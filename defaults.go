package cardcache

import "time"

const (
	defaultStaleTime    = time.Minute
	defaultGenRetention = 24 * time.Hour
	defaultSweep        = time.Hour
	defaultRefetchLimit = 4
)

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
