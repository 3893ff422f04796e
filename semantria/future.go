package semantria

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
)

// Future is the pending result of an asynchronous call. It settles exactly
// once; later attempts to settle it are ignored.
type Future struct {
	done chan struct{}
	once sync.Once
	body []byte
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// settle stores the result and wakes up waiters. Returns false if the future
// was already settled.
func (f *Future) settle(body []byte, err error) (ok bool) {
	f.once.Do(func() {
		f.body = body
		f.err = err
		close(f.done)
		ok = true
	})
	return
}

// Done returns a channel which is closed once the future has settled
func (f *Future) Done() <-chan struct{} { return f.done }

// Wait blocks until the future settles or ctx is done, whichever comes first.
// ctx only bounds the wait; the underlying call keeps its own context.
func (f *Future) Wait(ctx context.Context) ([]byte, error) {
	select {
	case <-f.done:
		return f.body, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result blocks until the future settles
func (f *Future) Result() ([]byte, error) {
	<-f.done
	return f.body, f.err
}

// Go runs fn on a new goroutine and returns a Future for its result.
// A panic in fn settles the future with an error.
func (c *Client) Go(ctx context.Context, fn func(context.Context) ([]byte, error)) *Future {
	f := newFuture()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				c.logger().Error("panic in async call: %v\n%s", r, debug.Stack())
				f.settle(nil, fmt.Errorf("panic: %v", r))
			}
		}()
		f.settle(fn(ctx))
	}()
	return f
}

// ExecuteAsync is the non-blocking form of Execute
func (c *Client) ExecuteAsync(ctx context.Context, method, endpoint string, body interface{}) *Future {
	return c.Go(ctx, func(ctx context.Context) ([]byte, error) {
		return c.Execute(ctx, method, endpoint, body)
	})
}
