package sinks

import (
	"context"
	"errors"
	"fmt"
)

// Fanout dispatches records to all configured sinks.
type Fanout struct {
	sinks []Sink
}

// NewFanout builds a dispatcher that fans records out across sinks.
func NewFanout(ss []Sink) *Fanout {
	cp := make([]Sink, 0, len(ss))
	for _, s := range ss {
		if s == nil {
			continue
		}
		cp = append(cp, s)
	}
	return &Fanout{sinks: cp}
}

// Deliver forwards the record to every registered sink.
// It returns the number of sinks that handled the record successfully.
func (f *Fanout) Deliver(ctx context.Context, rec Record) (int, error) {
	if f == nil || len(f.sinks) == 0 {
		return 0, nil
	}

	var errs []error
	successful := 0
	for _, s := range f.sinks {
		if err := s.Deliver(ctx, rec); err != nil {
			errs = append(errs, fmt.Errorf("%s sink[%s]: %w", s.Type(), s.ID(), err))
		} else {
			successful++
		}
	}
	return successful, errors.Join(errs...)
}

// Size returns the number of active sinks.
func (f *Fanout) Size() int {
	if f == nil {
		return 0
	}
	return len(f.sinks)
}
