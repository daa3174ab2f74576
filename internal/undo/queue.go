package undo

import "sync"

// EventType distinguishes inbound event kinds.
type EventType int

const (
	// EventNewChange carries an explicit record, such as an entity creation
	// reported by the host.
	EventNewChange EventType = iota + 1
	// EventUndo requests one undo.
	EventUndo
	// EventRedo requests one redo.
	EventRedo
)

// String returns the event name used in logs and journal entries.
func (t EventType) String() string {
	switch t {
	case EventNewChange:
		return "record"
	case EventUndo:
		return "undo"
	case EventRedo:
		return "redo"
	default:
		return "unknown"
	}
}

// Event is an inbound message drained at the start of every tick.
type Event struct {
	Type   EventType
	Change Change
}

// eventQueue is a thread-safe FIFO queue for inbound events.
//
// Hosts may enqueue from any goroutine; only the tick drains it.
// The signal channel lets Run wake on new events and on Close.
type eventQueue struct {
	mu     sync.Mutex
	events []Event
	closed bool
	signal chan struct{} // buffered, size 1
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]Event, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event to the back of the queue.
// Returns false if the queue is closed.
func (q *eventQueue) Enqueue(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.events = append(q.events, e)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front event without blocking.
func (q *eventQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}

	e := q.events[0]
	// Release the record for GC.
	q.events[0] = Event{}
	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}
	return e, true
}

// Drain removes and returns every queued event in FIFO order.
func (q *eventQueue) Drain() []Event {
	var out []Event
	for {
		e, ok := q.TryDequeue()
		if !ok {
			return out
		}
		out = append(out, e)
	}
}

// Wait returns a channel that fires when events may be available, and is
// closed by Close.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Closed reports whether Close has been called.
func (q *eventQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close rejects further events and wakes waiters.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
