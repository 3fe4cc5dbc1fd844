package generation

// Cursor cycles through a fixed list of items.
type Cursor[T any] struct {
	items []T
	next  int
}

// NewCursor copies items into a new cursor.
func NewCursor[T any](items []T) *Cursor[T] {
	return &Cursor[T]{items: append([]T(nil), items...)}
}

// Next returns the current item and advances, wrapping at the end.
// It reports false when the cursor is empty.
func (c *Cursor[T]) Next() (T, bool) {
	var zero T
	if len(c.items) == 0 {
		return zero, false
	}
	item := c.items[c.next]
	c.next = (c.next + 1) % len(c.items)
	return item, true
}

// Len returns the number of items in the cycle.
func (c *Cursor[T]) Len() int {
	return len(c.items)
}
