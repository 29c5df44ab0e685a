// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hive-dispatch/internal/logger"
)

var upgrader = websocket.Upgrader{
	// Log streams are read-only and served to local tooling.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	socketWriteWait = 10 * time.Second
	socketPingEvery = 30 * time.Second
)

// handleLogStream streams logs via Server-Sent Events (SSE)
func (s *Server) handleLogStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	l := s.logger()
	ch := l.Subscribe()
	if ch == nil {
		http.Error(w, "Log stream unavailable - logger may be closed", http.StatusServiceUnavailable)
		return
	}
	defer l.Unsubscribe(ch)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "data: Connected to log stream\n\n")
	flusher.Flush()

	for {
		select {
		case line, ok := <-ch:
			if !ok {
				fmt.Fprintf(w, "data: Log stream closed\n\n")
				flusher.Flush()
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", line); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

// handleLogSocket streams logs over a WebSocket, one text message per line.
func (s *Server) handleLogSocket(w http.ResponseWriter, r *http.Request) {
	l := s.logger()
	ch := l.Subscribe()
	if ch == nil {
		http.Error(w, "Log stream unavailable - logger may be closed", http.StatusServiceUnavailable)
		return
	}
	defer l.Unsubscribe(ch)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warnf("handleLogSocket: failed to upgrade connection: %v", err)
		return
	}
	defer conn.Close()

	// Reader goroutine: notices client close frames and disconnects.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(socketPingEvery)
	defer ping.Stop()

	for {
		select {
		case line, ok := <-ch:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "log stream closed"),
					time.Now().Add(socketWriteWait))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(socketWriteWait)); err != nil {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}
