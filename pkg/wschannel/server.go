// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

package wschannel

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/outrigdev/sessionbridge/pkg/ds"
)

const HttpReadTimeout = 5 * time.Second
const HttpWriteTimeout = 21 * time.Second
const HttpMaxHeaderBytes = 60000
const HttpTimeoutDuration = 21 * time.Second

var WebSocketUpgrader = websocket.Upgrader{
	ReadBufferSize:   4 * 1024,
	WriteBufferSize:  32 * 1024,
	HandshakeTimeout: 1 * time.Second,
	CheckOrigin:      func(r *http.Request) bool { return true },
}

// Server accepts host connections and implements ds.MethodChannel over
// the most recent one. Calls made while no host is connected fail fast.
type Server struct {
	lock         sync.Mutex
	config       ds.Config
	appInfo      ds.AppInfo
	handler      Handler
	peer         *Peer
	disconnectFn func()
	httpServer   *http.Server
}

func MakeServer(config ds.Config, appInfo ds.AppInfo) *Server {
	return &Server{config: config, appInfo: appInfo}
}

// SetHandler installs the handler for calls made by the host
func (s *Server) SetHandler(handler Handler) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.handler = handler
}

// SetDisconnectFn registers fn to run whenever the active host goes away
func (s *Server) SetDisconnectFn(fn func()) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.disconnectFn = fn
}

func (s *Server) ActivePeer() *Peer {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.peer
}

func (s *Server) InvokeMethod(method string, args any, resultFn ds.ResultFn) {
	peer := s.ActivePeer()
	if peer == nil {
		if resultFn != nil {
			resultFn(ds.ErrorResult(ErrorCodeDisconnected, "no host connected"))
		}
		return
	}
	peer.InvokeMethod(method, args, resultFn)
}

func (s *Server) Router() http.Handler {
	gr := mux.NewRouter()
	gr.HandleFunc("/ws", s.handleWs)
	gr.Handle("/health", http.TimeoutHandler(http.HandlerFunc(s.handleHealth), HttpTimeoutDuration, "Timeout"))
	var handler http.Handler = gr
	if s.config.Dev && len(s.config.ServerConfig.AllowedOrigins) > 0 {
		handler = handlers.CORS(handlers.AllowedOrigins(s.config.ServerConfig.AllowedOrigins))(handler)
	}
	return handler
}

func MakeTCPListener(addr string) (net.Listener, error) {
	if addr == "" {
		addr = "127.0.0.1:0" // Use any available port
	}
	rtn, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("error creating listener at %v: %w", addr, err)
	}
	return rtn, nil
}

// Serve blocks until the server is shut down
func (s *Server) Serve(listener net.Listener) error {
	httpServer := &http.Server{
		ReadTimeout:    HttpReadTimeout,
		WriteTimeout:   HttpWriteTimeout,
		MaxHeaderBytes: HttpMaxHeaderBytes,
		Handler:        s.Router(),
	}
	s.lock.Lock()
	s.httpServer = httpServer
	s.lock.Unlock()
	log.Infof("[websocket] running websocket server on %s", listener.Addr())
	err := httpServer.Serve(listener)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops accepting connections and closes the active host
func (s *Server) Shutdown(ctx context.Context) error {
	s.lock.Lock()
	httpServer := s.httpServer
	peer := s.peer
	s.lock.Unlock()
	if peer != nil {
		peer.Close()
	}
	if httpServer == nil {
		return nil
	}
	return httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	peer := s.ActivePeer()
	rtn := map[string]any{
		"success":       true,
		"status":        "ok",
		"time":          time.Now().UnixMilli(),
		"apprunid":      s.appInfo.AppRunId,
		"hostconnected": peer != nil,
	}
	barr, _ := json.Marshal(rtn)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write(barr)
}

func (s *Server) handleWs(w http.ResponseWriter, r *http.Request) {
	conn, err := WebSocketUpgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an http error
		log.Debugf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	remoteHello, err := ServerHandshake(conn, &s.appInfo)
	if err != nil {
		log.Warnf("[websocket] handshake failed from %s: %v", r.RemoteAddr, err)
		return
	}
	s.lock.Lock()
	peer := makePeer(conn, remoteHello, s.handler)
	oldPeer := s.peer
	s.peer = peer
	s.lock.Unlock()
	if oldPeer != nil {
		log.Infof("[websocket] host %s replaced by %s", oldPeer.ConnId, peer.ConnId)
		oldPeer.Close()
	}
	if !s.config.Quiet {
		log.Infof("[websocket] host connected: connid:%s version:%s", peer.ConnId, remoteHello.Version)
	}
	peer.run()
	s.unregisterPeer(peer)
}

func (s *Server) unregisterPeer(peer *Peer) {
	s.lock.Lock()
	if s.peer != peer {
		s.lock.Unlock()
		return
	}
	s.peer = nil
	disconnectFn := s.disconnectFn
	s.lock.Unlock()
	if !s.config.Quiet {
		log.Infof("[websocket] host disconnected: connid:%s", peer.ConnId)
	}
	if disconnectFn != nil {
		disconnectFn()
	}
}
