// Package logstream implements LogChannel, the named best-effort
// broadcast endpoint used for both an Executable's stdout/stderr and
// the daemon's own log stream. Grounded on canonical-lxd's operations
// event listener (lxd/operations and lxd/events use a fan-out of
// per-subscriber channels with a non-blocking send so one slow
// listener cannot stall the others), adapted here to text lines.
package logstream

import "sync"

const subscriberBuffer = 64

// LogChannel is a named broadcast point. Lines published before a
// subscriber calls Subscribe are never seen by that subscriber; a
// subscriber that falls behind silently loses lines rather than
// blocking the publisher.
type LogChannel struct {
	name string

	mu   sync.Mutex
	subs map[chan string]struct{}
}

// New returns an empty, unstarted LogChannel for the given name (used
// in log messages, not as a routing key).
func New(name string) *LogChannel {
	return &LogChannel{name: name, subs: map[chan string]struct{}{}}
}

// Name returns the channel's label.
func (l *LogChannel) Name() string {
	return l.name
}

// Subscribe registers a new receiver. The caller must read from the
// returned channel until Unsubscribe or the channel is closed by
// Close.
func (l *LogChannel) Subscribe() <-chan string {
	ch := make(chan string, subscriberBuffer)

	l.mu.Lock()
	l.subs[ch] = struct{}{}
	l.mu.Unlock()

	return ch
}

// Unsubscribe removes a receiver previously returned by Subscribe.
func (l *LogChannel) Unsubscribe(ch <-chan string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for c := range l.subs {
		if c == ch {
			delete(l.subs, c)
			close(c)

			return
		}
	}
}

// Publish fans a line out to every current subscriber. A subscriber
// whose buffer is full is skipped for this line rather than blocking.
func (l *LogChannel) Publish(line string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for ch := range l.subs {
		select {
		case ch <- line:
		default:
		}
	}
}

// Close tears down every subscriber channel. Used when the owning
// Executable or daemon is shutting down.
func (l *LogChannel) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for ch := range l.subs {
		close(ch)
		delete(l.subs, ch)
	}
}
