package typedhttp

import "sync"

// Dispatcher marshals callback execution onto a caller-chosen context,
// regardless of which goroutine completed the transport.
type Dispatcher interface {
	Dispatch(fn func())
}

// inlineDispatcher runs functions on the calling goroutine.
type inlineDispatcher struct{}

func (inlineDispatcher) Dispatch(fn func()) {
	if fn != nil {
		fn()
	}
}

// Inline returns a dispatcher that runs callbacks on the completing goroutine.
func Inline() Dispatcher { return inlineDispatcher{} }

// SerialDispatcher executes dispatched functions one at a time on a single
// dedicated goroutine, in submission order. It stands in for a main/UI
// context: callers that mutate shared state from callbacks dispatch here.
type SerialDispatcher struct {
	work      chan func()
	done      chan struct{}
	closeOnce sync.Once
}

// NewSerialDispatcher starts the dispatch loop. Call Close when finished.
func NewSerialDispatcher() *SerialDispatcher {
	s := &SerialDispatcher{
		work: make(chan func(), 64),
		done: make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *SerialDispatcher) loop() {
	for {
		select {
		case fn := <-s.work:
			if fn != nil {
				fn()
			}
		case <-s.done:
			s.drain()
			return
		}
	}
}

// drain runs functions already queued at close time so no delivery is lost.
func (s *SerialDispatcher) drain() {
	for {
		select {
		case fn := <-s.work:
			if fn != nil {
				fn()
			}
		default:
			return
		}
	}
}

// Dispatch enqueues fn for serial execution. After Close, fn runs on the
// calling goroutine instead of being dropped, preserving delivery.
func (s *SerialDispatcher) Dispatch(fn func()) {
	if s == nil || fn == nil {
		return
	}
	select {
	case <-s.done:
		fn()
		return
	default:
	}

	select {
	case s.work <- fn:
	case <-s.done:
		fn()
	}
}

// Close stops the loop after draining queued work. Safe to call repeatedly.
func (s *SerialDispatcher) Close() {
	if s == nil {
		return
	}
	s.closeOnce.Do(func() { close(s.done) })
}
