package async

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDispatcher_RunsTasks(t *testing.T) {
	d := NewDispatcher(4)

	var ran int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		d.Go("count", func(context.Context) error {
			defer wg.Done()
			atomic.AddInt32(&ran, 1)
			return nil
		})
	}
	wg.Wait()
	d.Close()

	if got := atomic.LoadInt32(&ran); got != 10 {
		t.Fatalf("ran %d tasks, want 10", got)
	}
}

func TestDispatcher_ConcurrencyCap(t *testing.T) {
	d := NewDispatcher(2)

	var cur, max int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		d.Go("capped", func(context.Context) error {
			defer wg.Done()
			n := atomic.AddInt32(&cur, 1)
			for {
				m := atomic.LoadInt32(&max)
				if n <= m || atomic.CompareAndSwapInt32(&max, m, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&cur, -1)
			return nil
		})
	}
	wg.Wait()
	d.Close()

	if got := atomic.LoadInt32(&max); got > 2 {
		t.Fatalf("observed %d concurrent tasks, cap is 2", got)
	}
}

func TestDispatcher_SurvivesPanicsAndErrors(t *testing.T) {
	d := NewDispatcher(1)

	d.Go("panics", func(context.Context) error { panic("boom") })
	d.Go("fails", func(context.Context) error { return errors.New("nope") })

	done := make(chan struct{})
	d.Go("after", func(context.Context) error {
		close(done)
		return nil
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("dispatcher stalled after panic/error tasks")
	}
	d.Close()
}

func TestDispatcher_DropsAfterClose(t *testing.T) {
	d := NewDispatcher(1)
	d.Close()

	ran := make(chan struct{}, 1)
	d.Go("late", func(context.Context) error {
		ran <- struct{}{}
		return nil
	})

	select {
	case <-ran:
		t.Fatalf("task ran after Close")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNewDispatcher_CoercesWorkers(t *testing.T) {
	d := NewDispatcher(0)
	done := make(chan struct{})
	d.Go("one", func(context.Context) error {
		close(done)
		return nil
	})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("coerced dispatcher never ran the task")
	}
	d.Close()
}
