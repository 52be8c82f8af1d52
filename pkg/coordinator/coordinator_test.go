// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

package coordinator

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestCoordinatorRunsInOrder(t *testing.T) {
	c := MakeCoordinator("test")
	c.Start()
	defer c.Stop()

	var lock sync.Mutex
	var order []int
	done := make(chan struct{})
	for i := 0; i < 50; i++ {
		i := i
		c.Run(context.Background(), func(ctx context.Context) {
			lock.Lock()
			order = append(order, i)
			lock.Unlock()
			if i == 49 {
				close(done)
			}
		})
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("tasks did not run")
	}
	lock.Lock()
	defer lock.Unlock()
	for i, v := range order {
		if v != i {
			t.Fatalf("task %d ran at position %d", v, i)
		}
	}
}

func TestCoordinatorRunInlineOnCoordinator(t *testing.T) {
	c := MakeCoordinator("test")
	c.Start()
	defer c.Stop()

	result := make(chan []string, 1)
	c.Post(func(ctx context.Context) {
		if !c.IsCoordinatorContext(ctx) {
			t.Error("task ctx should be a coordinator context")
		}
		var steps []string
		c.Run(ctx, func(ctx context.Context) {
			steps = append(steps, "inner")
		})
		steps = append(steps, "outer")
		result <- steps
	})
	select {
	case steps := <-result:
		if len(steps) != 2 || steps[0] != "inner" {
			t.Errorf("nested Run should execute inline, got %v", steps)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run")
	}
}

func TestCoordinatorNeverBlocksCaller(t *testing.T) {
	c := MakeCoordinator("test")
	c.Start()
	defer c.Stop()

	release := make(chan struct{})
	c.Post(func(ctx context.Context) { <-release })
	start := time.Now()
	for i := 0; i < 1000; i++ {
		c.Run(context.Background(), func(ctx context.Context) {})
	}
	if time.Since(start) > time.Second {
		t.Error("Run blocked while coordinator was busy")
	}
	if c.QueueLen() == 0 {
		t.Error("expected queued tasks while coordinator is busy")
	}
	close(release)
}

func TestCoordinatorStop(t *testing.T) {
	c := MakeCoordinator("test")
	ran := make(chan struct{}, 1)
	// queued before Start
	c.Post(func(ctx context.Context) { ran <- struct{}{} })
	c.Start()
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("task queued before Start did not run")
	}
	c.Stop()
	c.Stop()
	if c.Run(context.Background(), func(ctx context.Context) { t.Error("ran after stop") }) {
		t.Error("Run should report false after Stop")
	}
}

func TestCoordinatorRecoversPanics(t *testing.T) {
	c := MakeCoordinator("test")
	c.Start()
	defer c.Stop()

	done := make(chan struct{})
	c.Post(func(ctx context.Context) { panic("boom") })
	c.Post(func(ctx context.Context) { close(done) })
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("coordinator died after a panicking task")
	}
}
