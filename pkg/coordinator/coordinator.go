// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

// Package coordinator provides a single goroutine that owns all calls across
// the method channel. Work submitted from other goroutines is queued FIFO;
// work submitted from the coordinator itself runs inline.
package coordinator

import (
	"context"
	"sync"

	"github.com/emirpasic/gods/queues/linkedlistqueue"
	"github.com/outrigdev/sessionbridge/pkg/panichandler"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "coordinator")

type TaskFn = func(ctx context.Context)

type ctxKey struct{}

type Coordinator struct {
	lock    sync.Mutex
	name    string
	queue   *linkedlistqueue.Queue // of TaskFn, protected by lock
	wakeCh  chan struct{}
	doneCh  chan struct{}
	exitCh  chan struct{}
	started bool
	stopped bool
	taskCtx context.Context
}

func MakeCoordinator(name string) *Coordinator {
	c := &Coordinator{
		name:   name,
		queue:  linkedlistqueue.New(),
		wakeCh: make(chan struct{}, 1),
		doneCh: make(chan struct{}),
		exitCh: make(chan struct{}),
	}
	c.taskCtx = context.WithValue(context.Background(), ctxKey{}, c)
	return c
}

// Start launches the coordinator goroutine. Tasks queued before Start run once it begins.
func (c *Coordinator) Start() {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.started || c.stopped {
		return
	}
	c.started = true
	go c.runLoop()
}

// Stop ends the loop and waits for the running task (if any) to finish.
// Tasks still queued are discarded.
func (c *Coordinator) Stop() {
	c.lock.Lock()
	if c.stopped {
		c.lock.Unlock()
		return
	}
	c.stopped = true
	started := c.started
	pending := c.queue.Size()
	c.queue.Clear()
	close(c.doneCh)
	c.lock.Unlock()
	if pending > 0 {
		log.Debugf("[%s] discarded %d queued tasks on stop", c.name, pending)
	}
	if started {
		<-c.exitCh
	}
}

// IsCoordinatorContext reports whether ctx belongs to a task running on this coordinator
func (c *Coordinator) IsCoordinatorContext(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	owner, _ := ctx.Value(ctxKey{}).(*Coordinator)
	return owner == c
}

// Run executes fn inline when called from a coordinator task, otherwise queues it.
// Never blocks waiting for the coordinator. Returns false if the coordinator is stopped.
func (c *Coordinator) Run(ctx context.Context, fn TaskFn) bool {
	if c.IsCoordinatorContext(ctx) {
		c.runTask(ctx, fn)
		return true
	}
	return c.Post(fn)
}

// Post always queues fn, even when called from the coordinator
func (c *Coordinator) Post(fn TaskFn) bool {
	if fn == nil {
		return false
	}
	c.lock.Lock()
	if c.stopped {
		c.lock.Unlock()
		return false
	}
	c.queue.Enqueue(fn)
	c.lock.Unlock()
	select {
	case c.wakeCh <- struct{}{}:
	default:
	}
	return true
}

// QueueLen returns the number of tasks waiting to run
func (c *Coordinator) QueueLen() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.queue.Size()
}

func (c *Coordinator) dequeue() (TaskFn, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.stopped {
		return nil, false
	}
	val, ok := c.queue.Dequeue()
	if !ok {
		return nil, false
	}
	return val.(TaskFn), true
}

func (c *Coordinator) runLoop() {
	defer close(c.exitCh)
	for {
		fn, ok := c.dequeue()
		if ok {
			c.runTask(c.taskCtx, fn)
			continue
		}
		select {
		case <-c.wakeCh:
		case <-c.doneCh:
			return
		}
	}
}

func (c *Coordinator) runTask(ctx context.Context, fn TaskFn) {
	defer func() {
		panichandler.PanicHandler("coordinator:"+c.name, recover())
	}()
	fn(ctx)
}
