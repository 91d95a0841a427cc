package typedhttp

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
)

// RawRequest is the transport-level rendering of a descriptor.
type RawRequest struct {
	Method string
	URL    string
	Header map[string]string
	Body   []byte
}

// RawResponse is the fully-buffered transport result.
type RawResponse struct {
	Body       []byte
	StatusCode int
}

// Transport abstracts network I/O so callers can inject mocks or different
// HTTP stacks. Implementations must be safe for concurrent use.
type Transport interface {
	Do(ctx context.Context, req RawRequest) (*RawResponse, error)
}

// RestyTransport adapts a shared resty.Client to the Transport interface.
type RestyTransport struct {
	client *resty.Client
}

// NewRestyTransport creates a transport with the specified per-request timeout.
func NewRestyTransport(timeout time.Duration) *RestyTransport {
	c := resty.New()
	c.SetTimeout(timeout)
	return &RestyTransport{client: c}
}

// Do executes the request with the underlying resty client.
func (r *RestyTransport) Do(ctx context.Context, req RawRequest) (*RawResponse, error) {
	rr := r.client.R().SetContext(ctx)
	if len(req.Header) > 0 {
		rr.SetHeaders(req.Header)
	}
	if len(req.Body) > 0 {
		rr.SetBody(req.Body)
	}

	resp, err := rr.Execute(req.Method, req.URL)
	if err != nil {
		return nil, err
	}
	return &RawResponse{Body: resp.Body(), StatusCode: resp.StatusCode()}, nil
}
