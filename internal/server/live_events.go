package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/smallbiznis/snapcount/internal/liveevents"
	obslogger "github.com/smallbiznis/snapcount/internal/observability/logger"
	"go.uber.org/zap"
)

const (
	sseHeartbeatInterval = 15 * time.Second
	wsPingInterval       = 25 * time.Second
	wsWriteTimeout       = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	// The device UI is served from its own origin on the local network.
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (s *Server) deviceID() string {
	if id := strings.TrimSpace(s.cfg.DeviceID); id != "" {
		return id
	}
	return "local"
}

// subscribe opens the device stream and returns the events a new client
// starts with: the retained backlog or, failing that, a fresh snapshot.
func (s *Server) subscribe(c *gin.Context) (*liveevents.Subscription, []liveevents.Event, bool) {
	if s.events == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return nil, nil, false
	}
	sub, backlog, err := s.events.Subscribe(s.deviceID())
	if err != nil {
		AbortWithError(c, ErrServiceUnavailable)
		return nil, nil, false
	}
	if len(backlog) == 0 {
		data, err := json.Marshal(s.session.Snapshot(c.Request.Context()))
		if err != nil {
			sub.Close()
			AbortWithError(c, err)
			return nil, nil, false
		}
		backlog = []liveevents.Event{{Type: liveevents.EventSnapshot, At: time.Now().UTC(), Data: data}}
	}
	return sub, backlog, true
}

func (s *Server) StreamSessionEvents(c *gin.Context) {
	subscription, backlog, ok := s.subscribe(c)
	if !ok {
		return
	}
	defer subscription.Close()

	writer := c.Writer
	headers := writer.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	headers.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	flusher, ok := writer.(http.Flusher)
	if !ok {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	if _, err := io.WriteString(writer, "retry: 2000\n\n"); err != nil {
		return
	}

	for _, event := range backlog {
		if err := writeSessionEvent(writer, event); err != nil {
			return
		}
	}
	flusher.Flush()

	ctx := c.Request.Context()
	heartbeat := time.NewTicker(sseHeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-subscription.Events():
			if err := writeSessionEvent(writer, event); err != nil {
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := io.WriteString(writer, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeSessionEvent(w io.Writer, event liveevents.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

// SessionWebSocket pushes the same events as StreamSessionEvents over a
// websocket. Client messages are read only to notice the close.
func (s *Server) SessionWebSocket(c *gin.Context) {
	subscription, backlog, ok := s.subscribe(c)
	if !ok {
		return
	}
	defer subscription.Close()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		obslogger.FromContext(c.Request.Context()).Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(event liveevents.Event) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		return conn.WriteJSON(event)
	}
	for _, event := range backlog {
		if err := write(event); err != nil {
			return
		}
	}

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-closed:
			return
		case event := <-subscription.Events():
			if err := write(event); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		}
	}
}
