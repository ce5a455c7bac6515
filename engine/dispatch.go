package engine

import (
	"container/heap"
	"sync"
	"sync/atomic"
	"time"
)

// Handle identifies a scheduled callback for cancellation. The zero
// Handle is never issued.
type Handle uint64

// Dispatcher runs every timed callback in the process on one background
// goroutine. Sessions, note-off timers and UI-originated commands all
// multiplex onto it, so engine state needs no finer locking: whatever a
// callback touches, nothing else is touching.
//
// It keeps a min-heap of pending entries and sleeps until the earliest
// one; fire times are supplied by callers as absolute instants computed
// from loop anchors, which bounds drift to the resolution of the runtime
// timer instead of accumulating per tick.
//
// The command queue is unbounded: callbacks running on the loop schedule
// and cancel freely (a dense event re-arming its session issues dozens of
// At calls mid-tick), so enqueueing must never block.
type Dispatcher struct {
	mu     sync.Mutex
	cmds   []func()
	wake   chan struct{}
	quit   chan struct{}
	done   chan struct{}
	nextID atomic.Uint64
	stop   sync.Once

	// owned by the run loop
	queue   timerQueue
	pending map[Handle]*timerEntry
}

// NewDispatcher starts the dispatch loop.
func NewDispatcher() *Dispatcher {
	d := &Dispatcher{
		wake:    make(chan struct{}, 1),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		pending: make(map[Handle]*timerEntry),
	}
	go d.run()
	return d
}

// At schedules fn to run on the dispatch goroutine at instant t. A t in
// the past fires immediately (still on the loop).
func (d *Dispatcher) At(t time.Time, fn func()) Handle {
	id := Handle(d.nextID.Add(1))
	d.exec(func() {
		e := &timerEntry{at: t, id: id, fn: fn, seq: d.nextID.Add(1)}
		d.pending[id] = e
		heap.Push(&d.queue, e)
	})
	return id
}

// Cancel drops a pending callback. Idempotent: cancelling an already
// fired or already cancelled handle is a no-op.
func (d *Dispatcher) Cancel(h Handle) {
	if h == 0 {
		return
	}
	d.exec(func() {
		if e, ok := d.pending[h]; ok {
			e.fn = nil // lazy removal; the heap skips dead entries
			delete(d.pending, h)
		}
	})
}

// Post runs fn on the dispatch goroutine as soon as possible.
func (d *Dispatcher) Post(fn func()) {
	d.exec(fn)
}

// Call runs fn on the dispatch goroutine and waits for it to finish.
// This is the synchronization point behind "stop returns only after the
// note-offs are enqueued".
func (d *Dispatcher) Call(fn func()) {
	ch := make(chan struct{})
	d.exec(func() {
		fn()
		close(ch)
	})
	select {
	case <-ch:
	case <-d.quit:
	}
}

// Close stops the loop. Pending callbacks are discarded.
func (d *Dispatcher) Close() {
	d.stop.Do(func() { close(d.quit) })
	<-d.done
}

// exec enqueues fn for the run loop. Never blocks, so it is safe to call
// from inside a callback already running on the loop.
func (d *Dispatcher) exec(fn func()) {
	select {
	case <-d.quit:
		return
	default:
	}
	d.mu.Lock()
	d.cmds = append(d.cmds, fn)
	d.mu.Unlock()
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// drain runs queued commands until none remain, including commands the
// commands themselves enqueue.
func (d *Dispatcher) drain() {
	for {
		d.mu.Lock()
		fns := d.cmds
		d.cmds = nil
		d.mu.Unlock()
		if len(fns) == 0 {
			return
		}
		for _, fn := range fns {
			fn()
		}
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for {
		d.drain()
		d.fireDue()

		var wait <-chan time.Time
		var timer *time.Timer
		if next, ok := d.nextAt(); ok {
			timer = time.NewTimer(time.Until(next))
			wait = timer.C
		}

		select {
		case <-d.wake:
		case <-wait:
		case <-d.quit:
			if timer != nil {
				timer.Stop()
			}
			return
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

// fireDue pops and runs every entry whose time has come, in fire-time
// order with FIFO tie-breaking.
func (d *Dispatcher) fireDue() {
	for len(d.queue) > 0 {
		head := d.queue[0]
		if head.fn == nil {
			heap.Pop(&d.queue)
			continue
		}
		if head.at.After(time.Now()) {
			return
		}
		heap.Pop(&d.queue)
		delete(d.pending, head.id)
		head.fn()
	}
}

// nextAt returns the fire time of the earliest live entry.
func (d *Dispatcher) nextAt() (time.Time, bool) {
	for len(d.queue) > 0 {
		if d.queue[0].fn == nil {
			heap.Pop(&d.queue)
			continue
		}
		return d.queue[0].at, true
	}
	return time.Time{}, false
}

type timerEntry struct {
	at  time.Time
	id  Handle
	fn  func()
	seq uint64
}

type timerQueue []*timerEntry

func (q timerQueue) Len() int { return len(q) }

func (q timerQueue) Less(i, j int) bool {
	if q[i].at.Equal(q[j].at) {
		return q[i].seq < q[j].seq
	}
	return q[i].at.Before(q[j].at)
}

func (q timerQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *timerQueue) Push(x interface{}) { *q = append(*q, x.(*timerEntry)) }

func (q *timerQueue) Pop() interface{} {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return e
}
