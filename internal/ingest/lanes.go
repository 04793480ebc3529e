package ingest

import (
	"context"
	"hash/fnv"
	"sync"
)

// Dispatcher serializes event handling per host identity. Events for the
// same (org id, subscription-manager id) always run on the same lane, so
// relationship reads and writes for one host never interleave. Events for
// different hosts proceed in parallel across lanes.
type Dispatcher struct {
	lanes []chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

func NewDispatcher(lanes int) *Dispatcher {
	if lanes <= 0 {
		lanes = 1
	}
	d := &Dispatcher{lanes: make([]chan func(), lanes)}
	for i := range d.lanes {
		d.lanes[i] = make(chan func())
		d.wg.Add(1)
		go d.run(d.lanes[i])
	}
	return d
}

func (d *Dispatcher) run(lane chan func()) {
	defer d.wg.Done()
	for job := range lane {
		job()
	}
}

// Submit runs fn on the lane owned by key and blocks until it returns.
func (d *Dispatcher) Submit(ctx context.Context, key string, fn func() error) error {
	done := make(chan error, 1)
	job := func() { done <- fn() }

	select {
	case d.lanes[laneIndex(key, len(d.lanes))] <- job:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the lanes after in-flight jobs finish.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		for _, lane := range d.lanes {
			close(lane)
		}
	})
	d.wg.Wait()
}

func laneIndex(key string, lanes int) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(lanes))
}

// LaneKey derives the serialization key for a host. Hosts without a
// subscription-manager id fall back to their inventory id.
func LaneKey(orgID, subscriptionManagerID, inventoryID string) string {
	if subscriptionManagerID != "" {
		return orgID + "|" + subscriptionManagerID
	}
	return orgID + "|" + inventoryID
}
