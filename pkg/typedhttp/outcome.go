package typedhttp

// Outcome is the single success-or-classified-failure result of one call.
type Outcome[T any] struct {
	Value T
	Err   error
}

func success[T any](v T) Outcome[T] {
	return Outcome[T]{Value: v}
}

func failure[T any](err error) Outcome[T] {
	return Outcome[T]{Err: err}
}

// Failed reports whether the call ended in a classified failure.
func (o Outcome[T]) Failed() bool { return o.Err != nil }

// Kind returns the failure classification, or KindOK on success.
func (o Outcome[T]) Kind() Kind { return KindOf(o.Err) }
