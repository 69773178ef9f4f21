// Package progress provides the append-only event feed consumed by the
// CLI, the rotation TUI and the web server. Each rotation run owns its
// own Feed; subscribers always see the full history before live events.
package progress

import (
	"sync"
	"time"
)

// Sentinel messages marking the end of a run. They are always the last
// event a feed carries.
const (
	SentinelSuccess = "PROCESS_COMPLETE_SUCCESS"
	SentinelFailure = "PROCESS_COMPLETE_FAILURE"
)

// Event is one timestamped progress line. Events never contain key
// material; publishers are responsible for redaction before Publish.
type Event struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// Feed is a thread-safe append-only event log with live subscriptions.
type Feed struct {
	mu     sync.Mutex
	events []Event
	subs   []chan Event
	closed bool
}

// NewFeed returns an empty feed.
func NewFeed() *Feed { return &Feed{} }

// liveBuffer is the subscriber channel headroom beyond history replay.
// A consumer that falls this far behind is treated as abandoned.
const liveBuffer = 64

// Publish appends a message to the feed and delivers it to subscribers.
// Publishing after the sentinel is a no-op. Delivery never blocks: a
// subscriber whose buffer is full is evicted and its channel closed, so
// a stalled or disconnected consumer cannot stall the publisher.
func (f *Feed) Publish(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	ev := Event{Time: time.Now().UTC(), Message: msg}
	f.events = append(f.events, ev)
	kept := f.subs[:0]
	for _, ch := range f.subs {
		select {
		case ch <- ev:
			kept = append(kept, ch)
		default:
			close(ch)
		}
	}
	f.subs = kept
	if msg == SentinelSuccess || msg == SentinelFailure {
		f.closed = true
		for _, ch := range f.subs {
			close(ch)
		}
		f.subs = nil
	}
}

// Close ends the feed with a failure sentinel if no sentinel was
// published yet. Safe to call more than once.
func (f *Feed) Close(success bool) {
	msg := SentinelFailure
	if success {
		msg = SentinelSuccess
	}
	f.Publish(msg)
}

// Done reports whether a sentinel has been published.
func (f *Feed) Done() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// History returns a copy of all events published so far.
func (f *Feed) History() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Event, len(f.events))
	copy(out, f.events)
	return out
}

// Subscribe returns a channel that first replays the feed's history and
// then delivers live events in publish order. The channel is closed when
// the sentinel is delivered, when the subscriber is detached with
// Unsubscribe, or when it stops draining and its buffer fills up.
func (f *Feed) Subscribe() <-chan Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan Event, len(f.events)+liveBuffer)
	for _, ev := range f.events {
		ch <- ev
	}
	if f.closed {
		close(ch)
		return ch
	}
	f.subs = append(f.subs, ch)
	return ch
}

// Unsubscribe detaches a channel obtained from Subscribe and closes it.
// Calling it for a channel the feed no longer tracks is a no-op.
func (f *Feed) Unsubscribe(ch <-chan Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.subs {
		if c == ch {
			f.subs = append(f.subs[:i], f.subs[i+1:]...)
			close(c)
			return
		}
	}
}
