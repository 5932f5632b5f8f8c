package folio

import "sync"

// Executor runs tasks one at a time, in the order they were posted.
// Post must not block.
type Executor interface {
	Post(task func())
}

// Loop is an Executor backed by a single consumer goroutine and an
// unbounded FIFO, so tasks may post further tasks without deadlocking.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	stop   chan struct{}
	done   chan struct{}
	closed bool
}

// NewLoop starts a loop goroutine.
func NewLoop() *Loop {
	l := &Loop{
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go l.run()
	return l
}

// Post queues a task. Tasks posted after Close are dropped.
func (l *Loop) Post(task func()) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, task)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Do runs task on the loop and waits for it to finish. It must not be
// called from a task already running on the same loop. Returns false if the
// loop is closed and the task did not run.
func (l *Loop) Do(task func()) bool {
	ran := make(chan struct{})
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, func() {
		defer close(ran)
		task()
	})
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}

	select {
	case <-ran:
		return true
	case <-l.done:
		// The loop may have run the task just before stopping.
		select {
		case <-ran:
			return true
		default:
			return false
		}
	}
}

// Close stops the loop after the tasks already queued have run.
func (l *Loop) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		<-l.done
		return
	}
	l.closed = true
	l.mu.Unlock()

	close(l.stop)
	<-l.done
}

func (l *Loop) run() {
	defer close(l.done)

	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			closed := l.closed
			l.mu.Unlock()
			if closed {
				return
			}
			select {
			case <-l.wake:
			case <-l.stop:
			}
			continue
		}
		task := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		task()
	}
}

// SerialQueue is an Executor that runs tasks on whichever goroutine posts
// first, draining everything queued meanwhile before returning. Tasks posted
// from within a running task run after it, never nested inside it.
type SerialQueue struct {
	mu       sync.Mutex
	queue    []func()
	draining bool
}

// Post queues task and drains the queue unless another caller already is.
func (q *SerialQueue) Post(task func()) {
	q.mu.Lock()
	q.queue = append(q.queue, task)
	if q.draining {
		q.mu.Unlock()
		return
	}
	q.draining = true

	for len(q.queue) > 0 {
		next := q.queue[0]
		q.queue[0] = nil
		q.queue = q.queue[1:]
		q.mu.Unlock()

		next()

		q.mu.Lock()
	}
	q.draining = false
	q.mu.Unlock()
}
