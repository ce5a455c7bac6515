package engine

import (
	"sync"
	"testing"
	"time"
)

func TestDispatcherFiresInOrder(t *testing.T) {
	d := NewDispatcher()
	defer d.Close()

	var mu sync.Mutex
	var got []int
	record := func(n int) func() {
		return func() {
			mu.Lock()
			got = append(got, n)
			mu.Unlock()
		}
	}

	now := time.Now()
	// Scheduled out of order on purpose.
	d.At(now.Add(60*time.Millisecond), record(3))
	d.At(now.Add(20*time.Millisecond), record(1))
	d.At(now.Add(40*time.Millisecond), record(2))

	settle(d, 120*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("fire order = %v, want [1 2 3]", got)
	}
}

func TestDispatcherSameInstantFIFO(t *testing.T) {
	d := NewDispatcher()
	defer d.Close()

	var mu sync.Mutex
	var got []int
	at := time.Now().Add(30 * time.Millisecond)
	for i := 0; i < 5; i++ {
		i := i
		d.At(at, func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		})
	}

	settle(d, 80*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for i, n := range got {
		if n != i {
			t.Fatalf("tie order = %v, want ascending submission order", got)
		}
	}
	if len(got) != 5 {
		t.Fatalf("fired %d of 5", len(got))
	}
}

func TestDispatcherPastInstantFiresImmediately(t *testing.T) {
	d := NewDispatcher()
	defer d.Close()

	fired := make(chan struct{})
	d.At(time.Now().Add(-time.Second), func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("callback with past instant never fired")
	}
}

func TestDispatcherCancel(t *testing.T) {
	d := NewDispatcher()
	defer d.Close()

	var mu sync.Mutex
	fired := false
	h := d.At(time.Now().Add(40*time.Millisecond), func() {
		mu.Lock()
		fired = true
		mu.Unlock()
	})
	d.Cancel(h)

	settle(d, 90*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if fired {
		t.Fatal("cancelled callback fired anyway")
	}
}

func TestDispatcherCancelIdempotent(t *testing.T) {
	d := NewDispatcher()
	defer d.Close()

	fired := make(chan struct{})
	h := d.At(time.Now(), func() { close(fired) })
	<-fired

	// Already fired; cancelling now (twice) must not panic or block.
	d.Cancel(h)
	d.Cancel(h)
	d.Cancel(0)
}

func TestDispatcherCallIsABarrier(t *testing.T) {
	d := NewDispatcher()
	defer d.Close()

	var mu sync.Mutex
	n := 0
	for i := 0; i < 10; i++ {
		d.Post(func() {
			mu.Lock()
			n++
			mu.Unlock()
		})
	}
	d.Call(func() {})

	mu.Lock()
	defer mu.Unlock()
	if n != 10 {
		t.Fatalf("Call returned with %d of 10 posted funcs run", n)
	}
}

func TestDispatcherScheduleFromCallback(t *testing.T) {
	d := NewDispatcher()
	defer d.Close()

	// A callback that schedules a burst of further work from inside the
	// loop, the way a session tick arms note releases plus its re-arm.
	// None of it may block the loop.
	var mu sync.Mutex
	fired := 0
	done := make(chan struct{})
	d.At(time.Now(), func() {
		for i := 0; i < 64; i++ {
			h := d.At(time.Now(), func() {
				mu.Lock()
				fired++
				mu.Unlock()
			})
			if i%4 == 0 {
				d.Cancel(h)
			}
		}
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop wedged scheduling from its own callback")
	}
	settle(d, 40*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if fired != 48 {
		t.Errorf("fired %d of the 48 uncancelled callbacks", fired)
	}
}

func TestDispatcherCloseUnblocksCall(t *testing.T) {
	d := NewDispatcher()
	d.Close()

	done := make(chan struct{})
	go func() {
		d.Call(func() {})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Call blocked forever on a closed dispatcher")
	}
}
