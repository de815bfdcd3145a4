package pool

// Future holds the eventual result of an asynchronously compressed or
// decompressed frame. Materialize blocks the caller until the result is
// ready, joining the background work into the calling goroutine.
type Future struct {
	ch   chan struct{}
	data []byte
	err  error
}

// Ready wraps an already-computed result, e.g. for frames encoded
// synchronously because parallelism was disabled.
func Ready(data []byte, err error) *Future {
	f := &Future{ch: make(chan struct{}), data: data, err: err}
	close(f.ch)
	return f
}

func newPending() *Future {
	return &Future{ch: make(chan struct{})}
}

func (f *Future) resolve(data []byte, err error) {
	f.data = data
	f.err = err
	close(f.ch)
}

// NewFuture returns an unresolved Future for a caller that wants to submit
// its own background work and later fulfil it with Resolve.
func NewFuture() *Future {
	return newPending()
}

// Resolve fulfils a Future obtained from NewFuture. Calling it twice on the
// same Future panics, matching close(chan)'s own double-close behavior.
func (f *Future) Resolve(data []byte, err error) {
	f.resolve(data, err)
}

// Materialize blocks until the future's producer has finished and returns
// its result. It is safe to call from multiple goroutines and more than
// once.
func (f *Future) Materialize() ([]byte, error) {
	<-f.ch
	return f.data, f.err
}
