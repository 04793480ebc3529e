package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestDispatcherSerializesSameKey(t *testing.T) {
	d := NewDispatcher(4)
	defer d.Close()
	ctx := context.Background()

	var mu sync.Mutex
	var order []int
	running := false

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = d.Submit(ctx, "org1|host-1", func() error {
				mu.Lock()
				if running {
					mu.Unlock()
					t.Error("two jobs for the same key ran concurrently")
					return nil
				}
				running = true
				order = append(order, i)
				mu.Unlock()

				mu.Lock()
				running = false
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	if len(order) != 20 {
		t.Fatalf("expected 20 jobs to run, got %d", len(order))
	}
}

func TestDispatcherReturnsJobError(t *testing.T) {
	d := NewDispatcher(1)
	defer d.Close()

	wantErr := errors.New("boom")
	err := d.Submit(context.Background(), "key", func() error { return wantErr })
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected job error, got %v", err)
	}
}

func TestDispatcherHonorsContextCancellation(t *testing.T) {
	d := NewDispatcher(1)
	defer d.Close()

	block := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = d.Submit(context.Background(), "key", func() error {
			close(started)
			<-block
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := d.Submit(ctx, "key", func() error { return nil })
	close(block)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

func TestLaneKeyFallsBackToInventoryID(t *testing.T) {
	if LaneKey("org1", "subman", "inv") != "org1|subman" {
		t.Fatalf("expected subscription-manager key")
	}
	if LaneKey("org1", "", "inv") != "org1|inv" {
		t.Fatalf("expected inventory fallback key")
	}
}
