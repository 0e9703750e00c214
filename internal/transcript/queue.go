package transcript

import "sync"

// queue is a thread-safe FIFO that doubles its ring when it reaches 70%
// full, up to a hard limit.
type queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []Entry
	head   int
	tail   int
	count  int
	limit  int
	closed bool
}

func newQueue(initial, limit int) *queue {
	if initial < 1 {
		initial = 1
	}
	if limit < initial {
		limit = initial
	}
	q := &queue{
		buf:   make([]Entry, initial),
		limit: limit,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push appends e. It returns false if the queue is closed or at its limit.
func (q *queue) push(e Entry) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || q.count >= q.limit {
		return false
	}

	threshold := (len(q.buf) * 70) / 100
	if threshold < 1 {
		threshold = 1
	}
	if q.count+1 >= threshold && len(q.buf) < q.limit {
		q.grow()
	}
	if q.count == len(q.buf) {
		return false
	}

	q.buf[q.tail] = e
	q.tail = (q.tail + 1) % len(q.buf)
	q.count++

	q.cond.Signal()
	return true
}

// pop blocks until an entry is available. It returns false once the queue
// is closed and empty.
func (q *queue) pop() (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.count == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.count == 0 {
		return Entry{}, false
	}

	e := q.buf[q.head]
	q.buf[q.head] = Entry{}
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	return e, true
}

// close stops pushes and wakes blocked poppers; queued entries remain.
func (q *queue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.cond.Broadcast()
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// grow doubles the ring, capped at limit. Must be called with lock held.
func (q *queue) grow() {
	size := len(q.buf) * 2
	if size > q.limit {
		size = q.limit
	}
	buf := make([]Entry, size)

	if q.count > 0 {
		if q.head < q.tail {
			copy(buf, q.buf[q.head:q.tail])
		} else {
			n := copy(buf, q.buf[q.head:])
			copy(buf[n:], q.buf[:q.tail])
		}
	}

	q.buf = buf
	q.head = 0
	q.tail = q.count
}
