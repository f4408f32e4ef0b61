package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"gradticket-bot/internal/calendar"
)

// botServiceStub counts cycles and can be told to fail or panic; only
// RunCycle matters to the worker loop.
type botServiceStub struct {
	cycles  atomic.Int64
	onCycle func(n int64) error
}

func (s *botServiceStub) RunCycle(ctx context.Context) error {
	n := s.cycles.Add(1)
	if s.onCycle != nil {
		return s.onCycle(n)
	}
	return nil
}

func (s *botServiceStub) RefreshCalendar(ctx context.Context) error { return nil }
func (s *botServiceStub) Calendar() *calendar.Calendar              { return calendar.NewCalendar(nil) }
func (s *botServiceStub) Listing(ctx context.Context) (string, error) {
	return "", nil
}
func (s *botServiceStub) MegathreadTitle() (string, error) { return "", nil }

func TestWorkerRunsCyclesUntilCancelled(t *testing.T) {
	stub := &botServiceStub{}
	w := NewBotWorker(stub, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	stub.onCycle = func(n int64) error {
		if n >= 3 {
			cancel()
		}
		return nil
	}

	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after context cancellation")
	}

	assert.GreaterOrEqual(t, stub.cycles.Load(), int64(3))
}

func TestWorkerSurvivesCycleErrors(t *testing.T) {
	stub := &botServiceStub{}
	ctx, cancel := context.WithCancel(context.Background())
	stub.onCycle = func(n int64) error {
		if n >= 3 {
			cancel()
			return nil
		}
		return assert.AnError
	}

	w := NewBotWorker(stub, time.Millisecond)

	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker stopped permanently after a cycle error")
	}

	assert.GreaterOrEqual(t, stub.cycles.Load(), int64(3))
}

func TestWorkerRecoversFromPanic(t *testing.T) {
	stub := &botServiceStub{}
	ctx, cancel := context.WithCancel(context.Background())
	stub.onCycle = func(n int64) error {
		if n == 1 {
			panic("poisoned message")
		}
		cancel()
		return nil
	}

	w := NewBotWorker(stub, time.Millisecond)

	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not keep running after a panic")
	}

	assert.GreaterOrEqual(t, stub.cycles.Load(), int64(2))
}
