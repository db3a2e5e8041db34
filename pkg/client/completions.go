package client

import (
	"sync"
)

const completionQueueSize = 64

// completionLoop delivers continuations on a single dedicated goroutine,
// so callers observe all completions on one consistent context.
type completionLoop struct {
	mu     sync.Mutex
	queue  chan func()
	done   chan struct{}
	closed bool
}

func newCompletionLoop() *completionLoop {
	l := &completionLoop{queue: make(chan func(), completionQueueSize), done: make(chan struct{})}
	go l.run()
	return l
}

func (l *completionLoop) run() {
	for fn := range l.queue {
		fn()
	}
	close(l.done)
}

// deliver enqueues a continuation for the delivery goroutine.
// After stop, late continuations run inline so no completion is ever lost.
func (l *completionLoop) deliver(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		fn()
		return
	}
	l.queue <- fn
}

// stop closes the queue and waits until every enqueued continuation has run.
func (l *completionLoop) stop() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		<-l.done
		return
	}
	l.closed = true
	close(l.queue)
	l.mu.Unlock()
	<-l.done
}
