package typedhttp

import (
	"context"
	"errors"
	"sync"
	"time"
)

const defaultTimeout = 15 * time.Second

// Client executes descriptors against an injected transport. It holds no
// per-call state and is safe for concurrent use; the transport instance is
// shared across calls for connection reuse.
type Client struct {
	transport Transport
	reporter  Reporter
}

// Option customizes a Client at construction time.
type Option func(*Client)

// WithReporter installs an observer invoked once per finished call.
func WithReporter(r Reporter) Option {
	return func(c *Client) { c.reporter = r }
}

// New builds a client over the given transport. A nil transport falls back to
// a resty transport with the default timeout.
func New(transport Transport, opts ...Option) *Client {
	if transport == nil {
		transport = NewRestyTransport(defaultTimeout)
	}
	c := &Client{transport: transport}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Call executes the descriptor synchronously and decodes the response body
// into T. Every failure is classified: an invalid descriptor never reaches
// the transport, a transport failure wraps its cause, an empty body and a
// decode mismatch are reported as distinct kinds. No retries, no caching.
func Call[T any](ctx context.Context, c *Client, d Descriptor, dec Decoder[T]) (T, error) {
	var zero T
	if c == nil || c.transport == nil {
		return zero, newCallError(KindInvalidRequest, errors.New("client is not initialized"))
	}
	if dec == nil {
		dec = JSON[T]()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()

	u, err := d.URL()
	if err != nil {
		c.report(ctx, d, "", 0, KindInvalidRequest, start)
		return zero, newCallError(KindInvalidRequest, err)
	}

	resp, err := c.transport.Do(ctx, RawRequest{
		Method: d.method(),
		URL:    u,
		Header: d.headers(),
		Body:   d.Body,
	})
	if err != nil {
		c.report(ctx, d, u, 0, KindTransport, start)
		return zero, newCallError(KindTransport, err)
	}

	if len(resp.Body) == 0 {
		c.report(ctx, d, u, resp.StatusCode, KindEmptyBody, start)
		return zero, newCallError(KindEmptyBody, nil)
	}

	v, err := dec(resp.Body)
	if err != nil {
		c.report(ctx, d, u, resp.StatusCode, KindDecode, start)
		return zero, newCallError(KindDecode, err)
	}

	c.report(ctx, d, u, resp.StatusCode, KindOK, start)
	return v, nil
}

// Go executes the descriptor asynchronously and delivers the outcome to
// onComplete exactly once, marshaled onto the supplied dispatcher. A nil
// dispatcher runs the callback on the completing goroutine. Concurrent Go
// calls on one client are independent; no ordering holds between their
// callbacks.
func Go[T any](ctx context.Context, c *Client, d Descriptor, dec Decoder[T], disp Dispatcher, onComplete func(Outcome[T])) {
	if onComplete == nil {
		return
	}

	var once sync.Once
	deliver := func(o Outcome[T]) {
		once.Do(func() {
			if disp == nil {
				onComplete(o)
				return
			}
			disp.Dispatch(func() { onComplete(o) })
		})
	}

	go func() {
		v, err := Call(ctx, c, d, dec)
		if err != nil {
			deliver(failure[T](err))
			return
		}
		deliver(success(v))
	}()
}

func (c *Client) report(ctx context.Context, d Descriptor, url string, status int, kind Kind, start time.Time) {
	if c == nil || c.reporter == nil {
		return
	}
	c.reporter.Report(ctx, CallReport{
		Label:      d.Label,
		Method:     d.method(),
		URL:        url,
		StatusCode: status,
		Kind:       kind,
		Elapsed:    time.Since(start),
		StartedAt:  start.UTC(),
	})
}
