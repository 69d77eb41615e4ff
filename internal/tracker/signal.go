package tracker

import "context"

// signal is a re-armable, one-shot wakeup: Set is non-blocking and
// tolerates being called with no one waiting (the pending wakeup is
// simply absorbed by the next Wait). Grounded on spec §9's "Wakeup
// signal" note (an auto-reset event or a zero-capacity rendezvous
// channel); implemented here as a channel of capacity 1.
type signal struct {
	ch chan struct{}
}

func newSignal() *signal {
	return &signal{ch: make(chan struct{}, 1)}
}

// Set arms the signal. Safe to call repeatedly; extra sets before a
// Wait are coalesced into a single wakeup.
func (s *signal) Set() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

// Wait blocks until Set has been called (possibly before Wait was
// entered) or ctx is done.
func (s *signal) Wait(ctx context.Context) error {
	select {
	case <-s.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Clear drains a pending Set without waiting, so a subsequent Wait
// blocks until the next fresh Set.
func (s *signal) Clear() {
	select {
	case <-s.ch:
	default:
	}
}
