package story

import (
	"sync"
	"sync/atomic"
)

// Feed is a bounded chat-update queue. When the consumer falls behind, the
// oldest pending message is dropped so the producer never blocks.
type Feed struct {
	mu      sync.Mutex
	ch      chan Message
	closed  bool
	dropped atomic.Int64
}

func NewFeed(capacity int) *Feed {
	if capacity <= 0 {
		capacity = 64
	}
	return &Feed{ch: make(chan Message, capacity)}
}

// C is drained by the streaming transport. It is closed by Close.
func (f *Feed) C() <-chan Message {
	return f.ch
}

func (f *Feed) Notify(m Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	for {
		select {
		case f.ch <- m:
			return
		default:
		}
		select {
		case <-f.ch:
			f.dropped.Add(1)
		default:
		}
	}
}

// Dropped reports how many messages were discarded because the feed was full.
func (f *Feed) Dropped() int64 {
	return f.dropped.Load()
}

func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	close(f.ch)
}
