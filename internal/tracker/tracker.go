// Package tracker implements the LifecycleTracker of spec §4.4: the
// todo/doing/done id sets, the received/potential counters, and the
// admission gate that bounds speculative over-fetching against a
// max-records cap.
//
// All mutating operations are serialized by a single mutex, matching
// the single-writer discipline spec §5 mandates for preemptive-thread
// hosts (Go's goroutines are exactly that). Progress emission is a
// single suspension point per spec §4.4; here it is invoked after the
// mutex is released, so a ReportFunc may itself call back into the
// tracker without deadlocking.
package tracker

import (
	"context"
	"errors"
	"sync"

	"geneagrapher/internal/record"
)

// OverageBuffer bounds how many speculative fetches may be admitted
// beyond MaxRecords before ProcessAnother blocks. Spec §4.4's
// reference value.
const OverageBuffer = 10

// ErrMaxRecordsReached is returned by ProcessAnother when the cap has
// been met and no further admission is possible. It is caught by the
// traversal engine and never escapes BuildGraph.
var ErrMaxRecordsReached = errors.New("tracker: max records reached")

// ReportFunc observes every tracker mutation with the current sizes of
// the three id sets.
type ReportFunc func(todoLen, doingLen, doneLen int)

// Tracker holds the lifecycle state of spec §4.4.
type Tracker struct {
	mu sync.Mutex

	todo  map[record.ID]record.TraverseItem
	doing map[record.ID]record.TraverseItem
	done  map[record.ID]struct{}

	received int

	maxRecords int // 0 means unset
	report     ReportFunc

	wakeup    *signal
	slotFree  *signal
}

// New creates an empty Tracker. maxRecords of 0 means no cap.
func New(maxRecords int, report ReportFunc) *Tracker {
	return &Tracker{
		todo:       make(map[record.ID]record.TraverseItem),
		doing:      make(map[record.ID]record.TraverseItem),
		done:       make(map[record.ID]struct{}),
		maxRecords: maxRecords,
		report:     report,
		wakeup:     newSignal(),
		slotFree:   newSignal(),
	}
}

// Wakeup returns the signal the engine's main loop waits on between
// dispatch rounds.
func (t *Tracker) Wakeup() *signalWaiter { return (*signalWaiter)(t.wakeup) }

// signalWaiter exposes only Wait/Clear/Set of *signal, to keep the
// exported surface of Tracker narrow without a second type.
type signalWaiter signal

func (w *signalWaiter) Wait(ctx context.Context) error { return (*signal)(w).Wait(ctx) }
func (w *signalWaiter) Clear()                         { (*signal)(w).Clear() }
func (w *signalWaiter) Set()                           { (*signal)(w).Set() }

// Create inserts (id, dir) into todo iff id has never been seen
// before (I2, I4: idempotent enqueue). Reports true iff it was
// actually inserted.
func (t *Tracker) Create(item record.TraverseItem) bool {
	t.mu.Lock()
	inserted := false
	if !t.seenLocked(item.ID) {
		t.todo[item.ID] = item
		inserted = true
	}
	todoLen, doingLen, doneLen := t.sizesLocked()
	t.mu.Unlock()

	if inserted {
		t.wakeup.Set()
		t.emit(todoLen, doingLen, doneLen)
	}
	return inserted
}

func (t *Tracker) seenLocked(id record.ID) bool {
	if _, ok := t.todo[id]; ok {
		return true
	}
	if _, ok := t.doing[id]; ok {
		return true
	}
	if _, ok := t.done[id]; ok {
		return true
	}
	return false
}

// StartNext removes an arbitrary entry from todo and moves it to
// doing. ok is false iff todo was empty; callers must check TodoLen
// before calling (the removal order is unspecified, per spec §4.4).
func (t *Tracker) StartNext() (item record.TraverseItem, ok bool) {
	t.mu.Lock()
	for id, it := range t.todo {
		delete(t.todo, id)
		t.doing[id] = it
		item, ok = it, true
		break
	}
	todoLen, doingLen, doneLen := t.sizesLocked()
	t.mu.Unlock()

	if ok {
		t.emit(todoLen, doingLen, doneLen)
	}
	return item, ok
}

// Finish moves id from doing to done, incrementing received iff
// gotRecord, and wakes anything blocked in ProcessAnother.
func (t *Tracker) Finish(id record.ID, gotRecord bool) {
	t.mu.Lock()
	delete(t.doing, id)
	t.done[id] = struct{}{}
	if gotRecord {
		t.received++
	}
	todoLen, doingLen, doneLen := t.sizesLocked()
	t.mu.Unlock()

	t.slotFree.Set()
	t.wakeup.Set()
	t.emit(todoLen, doingLen, doneLen)
}

// PurgeTodo clears todo. Used when the engine stops enqueuing further
// work because the cap has been reached.
func (t *Tracker) PurgeTodo() {
	t.mu.Lock()
	t.todo = make(map[record.ID]record.TraverseItem)
	todoLen, doingLen, doneLen := t.sizesLocked()
	t.mu.Unlock()

	t.emit(todoLen, doingLen, doneLen)
}

// ProcessAnother is the admission gate: it blocks while
// potential = |doing| + received is at or beyond maxRecords +
// OverageBuffer, returning ErrMaxRecordsReached if, while blocked,
// received has reached maxRecords outright. It never blocks when
// |doing| == 0 (spec §5's deadlock-avoidance argument: slot_free is
// only signaled by Finish, which only runs while a task is in doing).
func (t *Tracker) ProcessAnother(ctx context.Context) error {
	if t.maxRecords <= 0 {
		return nil
	}

	for {
		// Arm before checking: Clear must happen before we read the
		// current state, not after, so a Finish that signals slot_free
		// anywhere after this point is never missed by the Wait below.
		t.slotFree.Clear()

		t.mu.Lock()
		potential := len(t.doing) + t.received
		received := t.received
		doing := len(t.doing)
		t.mu.Unlock()

		if potential < t.maxRecords+OverageBuffer {
			return nil
		}
		if received >= t.maxRecords {
			return ErrMaxRecordsReached
		}
		if doing == 0 {
			// Nothing in flight can ever signal slot_free; this would
			// otherwise deadlock. Spec's invariant guarantees this
			// branch is unreachable in practice, but guard it anyway.
			return nil
		}

		if err := t.slotFree.Wait(ctx); err != nil {
			return err
		}
	}
}

// AllDone reports whether every enqueued id has reached a terminal
// state (todo and doing are both empty).
func (t *Tracker) AllDone() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.todo) == 0 && len(t.doing) == 0
}

// TodoLen, DoingLen, DoneLen, Received return point-in-time snapshots
// of the tracker's counts.
func (t *Tracker) TodoLen() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.todo)
}

func (t *Tracker) DoingLen() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.doing)
}

func (t *Tracker) DoneLen() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.done)
}

func (t *Tracker) Received() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.received
}

func (t *Tracker) sizesLocked() (todoLen, doingLen, doneLen int) {
	return len(t.todo), len(t.doing), len(t.done)
}

func (t *Tracker) emit(todoLen, doingLen, doneLen int) {
	if t.report != nil {
		t.report(todoLen, doingLen, doneLen)
	}
}
