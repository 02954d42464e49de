package retention

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeTrimmer struct {
	mu      sync.Mutex
	calls   int
	prefix  string
	keep    int
	deleted int
	err     error
}

func (f *fakeTrimmer) Trim(_ context.Context, prefix string, keep int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.prefix = prefix
	f.keep = keep
	return f.deleted, f.err
}

func (f *fakeTrimmer) snapshot() (int, string, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls, f.prefix, f.keep
}

func TestSweepTrimsPeriodically(t *testing.T) {
	trimmer := &fakeTrimmer{deleted: 2}
	svc := NewService(trimmer, "slack::activity", 5, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		calls, _, _ := trimmer.snapshot()
		if calls >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("sweep never ticked twice")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	_, prefix, keep := trimmer.snapshot()
	if prefix != "slack::activity" || keep != 5 {
		t.Errorf("trim called with prefix=%q keep=%d", prefix, keep)
	}
}

func TestSweepSurvivesTrimErrors(t *testing.T) {
	trimmer := &fakeTrimmer{err: errors.New("database locked")}
	svc := NewService(trimmer, "slack::activity", 5, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		calls, _, _ := trimmer.snapshot()
		if calls >= 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("sweep stopped after trim errors")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done
}

func TestDefaultInterval(t *testing.T) {
	svc := NewService(&fakeTrimmer{}, "p", 5, 0, nil)
	if svc.interval != DefaultInterval {
		t.Errorf("interval: %v, want %v", svc.interval, DefaultInterval)
	}
}
