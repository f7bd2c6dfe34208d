package main

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"warrantywatch/ws"
)

const (
	wsWriteTimeout    = 10 * time.Second
	wsPingPeriod      = 30 * time.Second
	wsReadDeadline    = 90 * time.Second
	wsClientBuffer    = 10
	wsHeartbeatPeriod = 60 * time.Second
)

var wsClientSeq atomic.Int64

// handleProgressSocket upgrades a dashboard connection and streams sync
// progress frames from the hub until the client goes away.
func (s *apiServer) handleProgressSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.UpgradeHTTP(w, r)
	if err != nil {
		s.log.Warn("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()

	clientID := fmt.Sprintf("dashboard-%d", wsClientSeq.Add(1))
	ch := make(chan ws.Message, wsClientBuffer)
	s.hub.Register(clientID, ch)
	defer s.hub.Unregister(clientID)

	s.log.Debug("Dashboard connected", "client", clientID, "remote", conn.RemoteAddr())

	conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
	})

	// Reader: nothing is expected from the dashboard, but the read loop
	// surfaces close frames and keeps pong handling alive.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			if _, err := conn.ReadMessage(); err != nil {
				if ws.IsUnexpectedCloseError(err) {
					s.log.Warn("Dashboard closed abnormally", "client", clientID, "error", err)
				}
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()
	heartbeat := time.NewTicker(wsHeartbeatPeriod)
	defer heartbeat.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				// Hub shut down.
				return
			}
			if err := conn.WriteMessage(&msg, wsWriteTimeout); err != nil {
				s.log.Debug("Dashboard write failed", "client", clientID, "error", err)
				return
			}
		case <-ping.C:
			if err := conn.WritePing(wsWriteTimeout); err != nil {
				return
			}
		case <-heartbeat.C:
			hb := ws.Message{Type: ws.MessageTypeHeartbeat}
			if err := conn.WriteMessage(&hb, wsWriteTimeout); err != nil {
				return
			}
		case <-readDone:
			s.log.Debug("Dashboard disconnected", "client", clientID)
			return
		}
	}
}
