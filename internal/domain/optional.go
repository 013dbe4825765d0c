package domain

// Optional tracks whether a field was sent at all, sent as null, or sent with a value.
type Optional[T any] struct {
	Value T
	Set   bool
	Null  bool
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

func Null[T any]() Optional[T] {
	return Optional[T]{Set: true, Null: true}
}

// Any returns the value to write: nil for null, Value otherwise. Callers check Set first.
func (o Optional[T]) Any() any {
	if o.Null {
		return nil
	}
	return o.Value
}
