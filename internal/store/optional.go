// ABOUTME: Three-way update value used by partial patches
// ABOUTME: Distinguishes "leave unchanged" from "clear" and "set to a value"

package store

type optionalOp uint8

const (
	opKeep optionalOp = iota
	opClear
	opSet
)

// Optional is a patch field. The zero value keeps the current value.
type Optional[T any] struct {
	op    optionalOp
	value T
}

// Keep leaves the stored value unchanged.
func Keep[T any]() Optional[T] { return Optional[T]{} }

// Clear resets the stored value to NULL.
func Clear[T any]() Optional[T] { return Optional[T]{op: opClear} }

// Set replaces the stored value.
func Set[T any](v T) Optional[T] { return Optional[T]{op: opSet, value: v} }

// IsKeep reports whether the field is left unchanged.
func (o Optional[T]) IsKeep() bool { return o.op == opKeep }

// IsClear reports whether the field is cleared.
func (o Optional[T]) IsClear() bool { return o.op == opClear }

// Value returns the new value and whether one was set.
func (o Optional[T]) Value() (T, bool) {
	return o.value, o.op == opSet
}

// Apply returns the value that results from patching cur.
func (o Optional[T]) Apply(cur *T) *T {
	switch o.op {
	case opClear:
		return nil
	case opSet:
		v := o.value
		return &v
	default:
		return cur
	}
}
