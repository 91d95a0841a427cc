package sinks

import "context"

// Sink delivers call records to a downstream destination (log, HTTP, SQS, ...).
type Sink interface {
	ID() string
	Type() string
	Deliver(ctx context.Context, rec Record) error
}
