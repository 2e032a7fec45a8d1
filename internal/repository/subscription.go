package repository

import (
	"context"
	"sync"
)

// subscriber holds the latest undelivered snapshot for one Subscribe call.
// Offers never block the writer; the pump forwards whatever is newest.
type subscriber struct {
	path   string
	out    chan Snapshot
	notify chan struct{}

	mu      sync.Mutex
	latest  Snapshot
	pending bool
}

func newSubscriber(path string) *subscriber {
	return &subscriber{
		path:   path,
		out:    make(chan Snapshot),
		notify: make(chan struct{}, 1),
	}
}

func (s *subscriber) offer(snap Snapshot) {
	s.mu.Lock()
	s.latest = snap
	s.pending = true
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *subscriber) take() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.pending {
		return Snapshot{}, false
	}
	s.pending = false
	return s.latest, true
}

// pump forwards snapshots until ctx is done, then closes out and calls done
func (s *subscriber) pump(ctx context.Context, done func()) {
	defer func() {
		close(s.out)
		if done != nil {
			done()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.notify:
		}

		snap, ok := s.take()
		if !ok {
			continue
		}
		select {
		case s.out <- snap:
		case <-ctx.Done():
			return
		}
	}
}
