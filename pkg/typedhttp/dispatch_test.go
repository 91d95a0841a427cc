package typedhttp

import (
	"sync"
	"testing"
	"time"
)

func TestSerialDispatcherRunsInSubmissionOrder(t *testing.T) {
	disp := NewSerialDispatcher()
	defer disp.Close()

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		i := i
		wg.Add(1)
		disp.Dispatch(func() {
			// No extra locking needed for correctness on the loop goroutine,
			// but the test goroutine reads the slice afterwards.
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
		})
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	for i, got := range order {
		if got != i {
			t.Fatalf("out of order execution: %v", order)
		}
	}
}

func TestSerialDispatcherRunsInlineAfterClose(t *testing.T) {
	disp := NewSerialDispatcher()
	disp.Close()

	// Let the loop observe the close.
	time.Sleep(20 * time.Millisecond)

	ran := make(chan struct{})
	disp.Dispatch(func() { close(ran) })

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatalf("function dropped after Close")
	}
}

func TestSerialDispatcherCloseIsIdempotent(t *testing.T) {
	disp := NewSerialDispatcher()
	disp.Close()
	disp.Close()
}

func TestInlineDispatcherRunsImmediately(t *testing.T) {
	ran := false
	Inline().Dispatch(func() { ran = true })
	if !ran {
		t.Fatalf("inline dispatcher did not run function")
	}
}
