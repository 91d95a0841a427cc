package sinks

import "context"

// logSink writes call records to the application logger.
type logSink struct {
	id  string
	typ string
	log Logger
}

func newLogSink(_ context.Context, cfg SinkConfig, log Logger) (Sink, error) {
	return &logSink{id: cfg.ID, typ: TypeLog, log: ensureLogger(log)}, nil
}

func (l *logSink) ID() string   { return l.id }
func (l *logSink) Type() string { return l.typ }

func (l *logSink) Deliver(_ context.Context, rec Record) error {
	if rec.OK {
		l.log.InfoObj("call completed", "call_record", rec)
	} else {
		l.log.WarnObj("call failed", "call_record", rec)
	}
	return nil
}
