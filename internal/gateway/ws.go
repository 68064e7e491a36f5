package gateway

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/phazurlabs/openclaw-fortress/internal/audit"
	"github.com/phazurlabs/openclaw-fortress/internal/model"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The gateway binds loopback; same-origin checks would reject the
	// file:// chat page.
	CheckOrigin: func(*http.Request) bool { return true },
}

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 50 * time.Second
	wsMaxMessage = 64 * 1024
)

// wsFrame is both the inbound and outbound websocket message shape.
type wsFrame struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Reply   string `json:"reply,omitempty"`
	Error   string `json:"error,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// wsConn serializes writes to one connection. gorilla/websocket allows
// at most one concurrent writer; replies from the read loop and pings
// from the ping loop must not interleave.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) write(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.conn.WriteMessage(messageType, data)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if !s.authenticate(w, r) {
		return
	}

	raw, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer raw.Close()
	conn := &wsConn{conn: raw}

	ip := clientIP(r)
	s.log.Info("ws_connected", audit.Fields{
		Channel: string(model.ChannelWeb),
		Details: map[string]any{"remote": ip},
	})

	raw.SetReadLimit(wsMaxMessage)
	raw.SetReadDeadline(time.Now().Add(wsPongWait))
	raw.SetPongHandler(func(string) error {
		return raw.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go s.pingLoop(conn, done)

	for {
		var frame wsFrame
		if err := raw.ReadJSON(&frame); err != nil {
			return
		}
		raw.SetReadDeadline(time.Now().Add(wsPongWait))

		if frame.Type != "message" || frame.Text == "" {
			s.writeFrame(conn, wsFrame{Type: "error", Error: "Expected {type: message, text}"})
			continue
		}

		result := s.handler.HandleMessage(r.Context(), model.InboundMessage{
			Channel:   model.ChannelWeb,
			ContactID: ip,
			Text:      frame.Text,
			Timestamp: time.Now().UnixMilli(),
		})

		if !result.Allowed {
			s.writeFrame(conn, wsFrame{Type: "error", Error: result.Reason})
			continue
		}
		s.writeFrame(conn, wsFrame{Type: "reply", Reply: result.Reply, TraceID: result.TraceID})
	}
}

func (s *Server) writeFrame(conn *wsConn, frame wsFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	conn.write(websocket.TextMessage, data)
}

func (s *Server) pingLoop(conn *wsConn, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
