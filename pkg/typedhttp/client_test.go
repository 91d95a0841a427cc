package typedhttp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// fakeTransport counts invocations and returns a preset response or error.
type fakeTransport struct {
	calls int32
	resp  *RawResponse
	err   error
}

func (f *fakeTransport) Do(_ context.Context, _ RawRequest) (*RawResponse, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

// recordingReporter collects call reports.
type recordingReporter struct {
	mu      sync.Mutex
	reports []CallReport
}

func (r *recordingReporter) Report(_ context.Context, rep CallReport) {
	r.mu.Lock()
	r.reports = append(r.reports, rep)
	r.mu.Unlock()
}

// descriptorFor points a descriptor at the test server.
func descriptorFor(t *testing.T, srv *httptest.Server, path string) Descriptor {
	t.Helper()
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse server URL: %v", err)
	}
	port := 80
	if p := u.Port(); p != "" {
		parsed, err := strconv.Atoi(p)
		if err != nil {
			t.Fatalf("parse server port: %v", err)
		}
		port = parsed
	}
	return Descriptor{Host: u.Hostname(), Port: port, Path: path}
}

func TestCallDecodesLoginResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if got := r.URL.Query().Get("username"); got != "bachld" {
			t.Errorf("unexpected username param: %s", got)
		}
		w.Write([]byte(`{"access_token":"abc"}`))
	}))
	defer srv.Close()

	d := descriptorFor(t, srv, "/auth/login/")
	d.Method = http.MethodPost
	d.Query = map[string]string{"username": "bachld", "password": "12345678"}

	client := New(NewRestyTransport(2 * time.Second))
	got, err := Call(context.Background(), client, d, JSON[tokenResponse]())
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got.AccessToken != "abc" {
		t.Fatalf("unexpected access token: %q", got.AccessToken)
	}
}

func TestCallSendsCookieAndBearerHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Cookie"); got != "session=42" {
			t.Errorf("unexpected cookie header: %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-123" {
			t.Errorf("unexpected authorization header: %q", got)
		}
		w.Write([]byte(`{"access_token":"x"}`))
	}))
	defer srv.Close()

	d := descriptorFor(t, srv, "/v1/me")
	d.CookieHeader = "session=42"
	d.BearerToken = "tok-123"

	client := New(NewRestyTransport(2 * time.Second))
	if _, err := Call(context.Background(), client, d, JSON[tokenResponse]()); err != nil {
		t.Fatalf("Call: %v", err)
	}
}

func TestCallInvalidDescriptorSkipsTransport(t *testing.T) {
	ft := &fakeTransport{resp: &RawResponse{Body: []byte(`{}`), StatusCode: 200}}
	client := New(ft)

	_, err := Call(context.Background(), client, Descriptor{Host: ""}, JSON[tokenResponse]())
	if KindOf(err) != KindInvalidRequest {
		t.Fatalf("expected KindInvalidRequest, got %v (err=%v)", KindOf(err), err)
	}
	if n := atomic.LoadInt32(&ft.calls); n != 0 {
		t.Fatalf("transport invoked %d times for invalid descriptor", n)
	}
}

func TestCallTransportErrorWrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	client := New(&fakeTransport{err: cause})

	_, err := Call(context.Background(), client, Descriptor{Host: "example.com"}, JSON[tokenResponse]())
	if KindOf(err) != KindTransport {
		t.Fatalf("expected KindTransport, got %v", KindOf(err))
	}
	if !errors.Is(err, cause) {
		t.Fatalf("original cause not preserved: %v", err)
	}
}

func TestCallEmptyBodyIsDistinctFromDecodeError(t *testing.T) {
	client := New(&fakeTransport{resp: &RawResponse{Body: nil, StatusCode: 200}})
	_, err := Call(context.Background(), client, Descriptor{Host: "example.com"}, JSON[tokenResponse]())
	if KindOf(err) != KindEmptyBody {
		t.Fatalf("expected KindEmptyBody, got %v", KindOf(err))
	}

	client = New(&fakeTransport{resp: &RawResponse{Body: []byte(`not-json`), StatusCode: 200}})
	_, err = Call(context.Background(), client, Descriptor{Host: "example.com"}, JSON[tokenResponse]())
	if KindOf(err) != KindDecode {
		t.Fatalf("expected KindDecode, got %v", KindOf(err))
	}
}

func TestCallMismatchedShapeStillDecodes(t *testing.T) {
	// Unknown fields are not a decode failure for JSON; the target keeps its
	// zero values. Strict-shape callers supply their own decoder.
	client := New(&fakeTransport{resp: &RawResponse{Body: []byte(`{"unexpected":"shape"}`), StatusCode: 200}})

	strict := func(body []byte) (tokenResponse, error) {
		v, err := JSON[tokenResponse]()(body)
		if err != nil {
			return v, err
		}
		if v.AccessToken == "" {
			return v, errors.New("missing access_token")
		}
		return v, nil
	}

	_, err := Call(context.Background(), client, Descriptor{Host: "example.com"}, strict)
	if KindOf(err) != KindDecode {
		t.Fatalf("expected KindDecode from strict decoder, got %v", KindOf(err))
	}
}

func TestGoDeliversExactlyOnceAcrossBranches(t *testing.T) {
	cases := []struct {
		name string
		ft   *fakeTransport
		host string
		want Kind
	}{
		{"success", &fakeTransport{resp: &RawResponse{Body: []byte(`{"access_token":"a"}`), StatusCode: 200}}, "example.com", KindOK},
		{"invalid", &fakeTransport{}, "", KindInvalidRequest},
		{"transport", &fakeTransport{err: errors.New("boom")}, "example.com", KindTransport},
		{"empty", &fakeTransport{resp: &RawResponse{StatusCode: 204}}, "example.com", KindEmptyBody},
		{"decode", &fakeTransport{resp: &RawResponse{Body: []byte(`x`), StatusCode: 200}}, "example.com", KindDecode},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var calls int32
			done := make(chan Outcome[tokenResponse], 2)

			Go(context.Background(), New(tc.ft), Descriptor{Host: tc.host}, JSON[tokenResponse](), nil, func(o Outcome[tokenResponse]) {
				atomic.AddInt32(&calls, 1)
				done <- o
			})

			var out Outcome[tokenResponse]
			select {
			case out = <-done:
			case <-time.After(2 * time.Second):
				t.Fatalf("callback never fired")
			}

			if out.Kind() != tc.want {
				t.Fatalf("expected kind %v, got %v (err=%v)", tc.want, out.Kind(), out.Err)
			}

			// Give a duplicate delivery a chance to show up.
			time.Sleep(50 * time.Millisecond)
			if n := atomic.LoadInt32(&calls); n != 1 {
				t.Fatalf("callback fired %d times", n)
			}
		})
	}
}

func TestGoMarshalsCallbackOntoDispatcher(t *testing.T) {
	var dispatched int32
	countingDisp := dispatchFunc(func(fn func()) {
		atomic.AddInt32(&dispatched, 1)
		fn()
	})

	ft := &fakeTransport{resp: &RawResponse{Body: []byte(`{"access_token":"a"}`), StatusCode: 200}}
	done := make(chan struct{})

	Go(context.Background(), New(ft), Descriptor{Host: "example.com"}, JSON[tokenResponse](), countingDisp, func(o Outcome[tokenResponse]) {
		if o.Failed() {
			t.Errorf("unexpected failure: %v", o.Err)
		}
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("callback never fired")
	}
	if n := atomic.LoadInt32(&dispatched); n != 1 {
		t.Fatalf("dispatcher used %d times", n)
	}
}

// dispatchFunc adapts a function to the Dispatcher interface.
type dispatchFunc func(fn func())

func (d dispatchFunc) Dispatch(fn func()) { d(fn) }

func TestClientReportsEveryOutcomeKind(t *testing.T) {
	rep := &recordingReporter{}
	ft := &fakeTransport{resp: &RawResponse{Body: []byte(`{"access_token":"a"}`), StatusCode: 200}}
	client := New(ft, WithReporter(rep))

	d := Descriptor{Host: "example.com", Label: "svc/login"}
	if _, err := Call(context.Background(), client, d, JSON[tokenResponse]()); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if _, err := Call(context.Background(), client, Descriptor{}, JSON[tokenResponse]()); KindOf(err) != KindInvalidRequest {
		t.Fatalf("expected invalid request, got %v", err)
	}

	rep.mu.Lock()
	defer rep.mu.Unlock()
	if len(rep.reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(rep.reports))
	}
	if rep.reports[0].Label != "svc/login" || !rep.reports[0].OK() {
		t.Fatalf("unexpected first report: %+v", rep.reports[0])
	}
	if rep.reports[1].Kind != KindInvalidRequest {
		t.Fatalf("unexpected second report: %+v", rep.reports[1])
	}
}
