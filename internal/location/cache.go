package location

// cached holds one derived value together with the parameter version it was
// computed from.
type cached[T any] struct {
	version uint64
	ok      bool
	value   T
}

// get returns the cached value when it matches version, recomputing it
// otherwise.
func (c *cached[T]) get(version uint64, compute func() T) T {
	if !c.ok || c.version != version {
		c.value = compute()
		c.version = version
		c.ok = true
	}
	return c.value
}
