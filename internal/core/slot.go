// internal/core/slot.go
// Latest-frame mailbox shared between the capture goroutine and consumers
package core

import (
	"sync"
)

// FrameSlot holds the most recent frame. Publishing overwrites whatever was
// there; a frame replaced before anyone read it counts as a drop. Changed
// carries at most one pending, payload-less notification, so a slow consumer
// wakes once and reads the newest frame.
type FrameSlot struct {
	mu        sync.Mutex
	frame     *Frame
	unread    bool
	seq       uint64
	published uint64
	drops     uint64

	changed chan struct{}
}

// SlotStats is a snapshot of slot counters.
type SlotStats struct {
	Published uint64
	Drops     uint64
	LastSeq   uint64
	HasFrame  bool
}

func NewFrameSlot() *FrameSlot {
	return &FrameSlot{
		changed: make(chan struct{}, 1),
	}
}

// Publish stores f, taking ownership, and raises the change notification. The
// frame is stamped with the next sequence number.
func (s *FrameSlot) Publish(f *Frame) {
	if f == nil {
		return
	}

	s.mu.Lock()
	if s.frame != nil {
		if s.unread {
			s.drops++
		}
		s.frame.Close()
	}
	s.seq++
	s.published++
	f.Seq = s.seq
	s.frame = f
	s.unread = true
	s.mu.Unlock()

	select {
	case s.changed <- struct{}{}:
	default:
	}
}

// Latest returns a clone of the newest frame, or nil if there is none. The
// caller owns the clone.
func (s *FrameSlot) Latest() *Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frame == nil {
		return nil
	}
	s.unread = false
	return s.frame.Clone()
}

// Changed fires after each Publish.
func (s *FrameSlot) Changed() <-chan struct{} {
	return s.changed
}

// Reset releases the held frame and discards a pending notification. Counters
// survive so a restarted session keeps its history.
func (s *FrameSlot) Reset() {
	s.mu.Lock()
	if s.frame != nil {
		s.frame.Close()
		s.frame = nil
	}
	s.unread = false
	s.mu.Unlock()

	select {
	case <-s.changed:
	default:
	}
}

func (s *FrameSlot) Stats() SlotStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SlotStats{
		Published: s.published,
		Drops:     s.drops,
		LastSeq:   s.seq,
		HasFrame:  s.frame != nil,
	}
}
