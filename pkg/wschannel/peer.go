// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

package wschannel

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/outrigdev/sessionbridge/pkg/coordinator"
	"github.com/outrigdev/sessionbridge/pkg/ds"
	"github.com/outrigdev/sessionbridge/pkg/panichandler"
	"github.com/outrigdev/sessionbridge/pkg/utilds"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "wschannel")

const wsReadWaitTimeout = 15 * time.Second
const wsWriteWaitTimeout = 10 * time.Second
const wsPingPeriodTickTime = 10 * time.Second
const wsInitialPingTime = 1 * time.Second
const wsReadLimit = 8 * 1024 * 1024 // attachments travel inline
const outputChSize = 256

const ErrorCodeDisconnected = "disconnected"
const ErrorCodeBackpressure = "backpressure"

var ErrDisconnected = errors.New("websocket peer disconnected")

// Handler serves calls arriving from the remote peer. Calls are served one at
// a time, in the order they arrived. A handler must not Close its own peer.
type Handler func(ctx context.Context, method string, args any) ds.CallResult

// Peer is one end of an established connection. Both the bridge and the
// host side use it: either end may call methods on the other.
type Peer struct {
	ConnId      string
	RemoteHello *HelloPacket
	conn        *websocket.Conn
	handler     Handler
	outputCh    chan *Frame
	closeCh     chan struct{}
	doneCh      chan struct{}
	closeOnce   sync.Once
	closed      atomic.Bool
	pending     *utilds.SyncMap[string, ds.ResultFn]
	calls       *coordinator.Coordinator
	ctx         context.Context
	cancelFn    context.CancelFunc
}

func makePeer(conn *websocket.Conn, remoteHello *HelloPacket, handler Handler) *Peer {
	ctx, cancelFn := context.WithCancel(context.Background())
	connId := uuid.New().String()
	return &Peer{
		ConnId:      connId,
		RemoteHello: remoteHello,
		conn:        conn,
		handler:     handler,
		outputCh:    make(chan *Frame, outputChSize),
		closeCh:     make(chan struct{}),
		doneCh:      make(chan struct{}),
		pending:     utilds.MakeSyncMap[string, ds.ResultFn](),
		calls:       coordinator.MakeCoordinator("wschannel:calls:" + connId),
		ctx:         ctx,
		cancelFn:    cancelFn,
	}
}

// run blocks until both loops have exited
func (p *Peer) run() {
	defer close(p.doneCh)
	p.calls.Start()
	wg := &sync.WaitGroup{}
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer func() {
			panichandler.PanicHandler("wschannel:readloop", recover())
		}()
		p.readLoop()
	}()
	go func() {
		defer wg.Done()
		defer func() {
			panichandler.PanicHandler("wschannel:writeloop", recover())
		}()
		p.writeLoop()
	}()
	wg.Wait()
}

// Done is closed once the connection is fully shut down
func (p *Peer) Done() <-chan struct{} {
	return p.doneCh
}

func (p *Peer) IsClosed() bool {
	return p.closed.Load()
}

// Close shuts the connection. Every pending call resolves with a disconnected error.
func (p *Peer) Close() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		close(p.closeCh)
		p.cancelFn()
		p.conn.Close()
		p.calls.Stop()
		pending := p.pending.Drain()
		for _, resultFn := range pending {
			resultFn(ds.ErrorResult(ErrorCodeDisconnected, ErrDisconnected.Error()))
		}
		if len(pending) > 0 {
			log.Debugf("[websocket] %s closed with %d pending calls", p.ConnId, len(pending))
		}
	})
}

func (p *Peer) NumPending() int {
	return p.pending.Len()
}

// InvokeMethod sends a call to the remote peer. It never waits on the
// remote end; resultFn (optional) receives exactly one result.
func (p *Peer) InvokeMethod(method string, args any, resultFn ds.ResultFn) {
	frame := &Frame{Type: FrameTypeCall, Id: uuid.New().String(), Method: method, Args: args, NoReply: resultFn == nil}
	if resultFn != nil {
		p.pending.Set(frame.Id, resultFn)
	}
	if p.closed.Load() {
		p.failPending(frame.Id, ErrorCodeDisconnected, ErrDisconnected.Error())
		return
	}
	select {
	case p.outputCh <- frame:
	case <-p.closeCh:
		p.failPending(frame.Id, ErrorCodeDisconnected, ErrDisconnected.Error())
	default:
		log.Warnf("[websocket] %s output queue full, failing call %s", p.ConnId, method)
		p.failPending(frame.Id, ErrorCodeBackpressure, "output queue full")
	}
}

func (p *Peer) failPending(id string, code string, msg string) {
	resultFn, ok := p.pending.GetAndDelete(id)
	if ok {
		resultFn(ds.ErrorResult(code, msg))
	}
}

func (p *Peer) readLoop() {
	defer p.Close()
	p.conn.SetReadLimit(wsReadLimit)
	p.conn.SetReadDeadline(time.Now().Add(wsReadWaitTimeout))
	for {
		_, message, err := p.conn.ReadMessage()
		if err != nil {
			if !p.closed.Load() {
				log.Debugf("[websocket] ReadPump error (%s): %v", p.ConnId, err)
			}
			return
		}
		p.conn.SetReadDeadline(time.Now().Add(wsReadWaitTimeout))
		var frame Frame
		if err := json.Unmarshal(message, &frame); err != nil {
			log.Warnf("[websocket] error unmarshalling frame (%s): %v", p.ConnId, err)
			return
		}
		switch frame.Type {
		case FrameTypePong:
			// nothing
		case FrameTypePing:
			p.trySend(&Frame{Type: FrameTypePong, STime: time.Now().UnixMilli()})
		case FrameTypeResult:
			p.handleResult(&frame)
		case FrameTypeCall:
			callFrame := frame
			p.calls.Post(func(ctx context.Context) {
				p.handleCall(&callFrame)
			})
		default:
			log.Debugf("[websocket] ignoring frame type %q (%s)", frame.Type, p.ConnId)
		}
	}
}

func (p *Peer) handleResult(frame *Frame) {
	resultFn, ok := p.pending.GetAndDelete(frame.Id)
	if !ok {
		return
	}
	if frame.Result == nil {
		resultFn(ds.NotImplementedResult())
		return
	}
	resultFn(*frame.Result)
}

func (p *Peer) handleCall(frame *Frame) {
	result := ds.NotImplementedResult()
	func() {
		defer func() {
			if panicErr := panichandler.PanicHandler("wschannel:call:"+frame.Method, recover()); panicErr != nil {
				result = ds.ErrorResult("panic", panicErr.Error())
			}
		}()
		if p.handler != nil {
			result = p.handler(p.ctx, frame.Method, frame.Args)
		}
	}()
	if frame.NoReply {
		return
	}
	p.trySend(&Frame{Type: FrameTypeResult, Id: frame.Id, Result: &result})
}

func (p *Peer) trySend(frame *Frame) {
	select {
	case p.outputCh <- frame:
	case <-p.closeCh:
	}
}

func (p *Peer) writeBytes(barr []byte) error {
	p.conn.SetWriteDeadline(time.Now().Add(wsWriteWaitTimeout))
	return p.conn.WriteMessage(websocket.TextMessage, barr)
}

func (p *Peer) writeLoop() {
	defer p.Close()
	ticker := time.NewTicker(wsInitialPingTime)
	defer ticker.Stop()
	initialPing := true
	for {
		select {
		case frame := <-p.outputCh:
			barr, err := json.Marshal(frame)
			if err != nil {
				log.Warnf("[websocket] cannot marshal frame %s: %v", frame.Method, err)
				p.failPending(frame.Id, "marshal", err.Error())
				continue
			}
			if err := p.writeBytes(barr); err != nil {
				log.Debugf("[websocket] WritePump error (%s): %v", p.ConnId, err)
				return
			}
		case <-ticker.C:
			barr, _ := json.Marshal(&Frame{Type: FrameTypePing, STime: time.Now().UnixMilli()})
			if err := p.writeBytes(barr); err != nil {
				log.Debugf("[websocket] WritePump error (%s): %v", p.ConnId, err)
				return
			}
			if initialPing {
				initialPing = false
				ticker.Reset(wsPingPeriodTickTime)
			}
		case <-p.closeCh:
			return
		}
	}
}
