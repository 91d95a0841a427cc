package typedhttp

import (
	"context"
	"time"
)

// CallReport summarizes one finished call for observers. It never influences
// outcome delivery.
type CallReport struct {
	// Label carries the descriptor's caller-chosen identifier, if any.
	Label      string
	Method     string
	URL        string
	StatusCode int
	Kind       Kind
	Elapsed    time.Duration
	StartedAt  time.Time
}

// OK reports whether the call succeeded.
func (r CallReport) OK() bool { return r.Kind == KindOK }

// Reporter receives one report per finished call. Implementations must be
// safe for concurrent use and should return quickly.
type Reporter interface {
	Report(ctx context.Context, rep CallReport)
}
