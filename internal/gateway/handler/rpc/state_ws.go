package rpc

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	planservice "archigen/internal/gateway/service/plan"
	"archigen/internal/pipeline"
)

const (
	stateWSWriteWait = 10 * time.Second
	stateWSPongWait  = 60 * time.Second
	stateWSPingEvery = (stateWSPongWait * 9) / 10
)

var stateWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type stateWSInbound struct {
	Type string `json:"type"`
}

type stateWSOutbound struct {
	Type      string             `json:"type"`
	SessionID string             `json:"sessionId,omitempty"`
	Snapshot  *pipeline.Snapshot `json:"snapshot,omitempty"`
	Code      string             `json:"code,omitempty"`
	Message   string             `json:"message,omitempty"`
}

// StateStreamHandler pushes controller snapshots for one session over a
// WebSocket. Clients may send {"type":"reset"}.
type StateStreamHandler struct {
	svc *planservice.Service
	// RefreshEvery is how often an open stream touches its session.
	// Zero means stateWSPingEvery.
	RefreshEvery time.Duration
}

func NewStateStreamHandler(svc *planservice.Service) *StateStreamHandler {
	return &StateStreamHandler{svc: svc}
}

func (h *StateStreamHandler) refresh() time.Duration {
	if h.RefreshEvery > 0 {
		return h.RefreshEvery
	}
	return stateWSPingEvery
}

func (h *StateStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		sessionID = strings.TrimSpace(r.Header.Get(SessionHeader))
	}

	conn, err := stateWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(stateWSPongWait)); err != nil {
		log.Printf("state ws set read deadline failed: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(stateWSPongWait))
	})

	writeCh := make(chan stateWSOutbound, 16)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(stateWSPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(stateWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(stateWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	id, snaps := h.svc.Watch(ctx, sessionID, h.refresh())
	pushStateWS(writeCh, stateWSOutbound{Type: "subscribed", SessionID: id})

	go func() {
		for snap := range snaps {
			pushStateWS(writeCh, stateWSOutbound{Type: "state", SessionID: id, Snapshot: &snap})
		}
	}()

	for {
		var in stateWSInbound
		if err := conn.ReadJSON(&in); err != nil {
			cancel()
			<-writerDone
			return
		}
		switch msgType := strings.ToLower(strings.TrimSpace(in.Type)); msgType {
		case "reset":
			h.svc.Reset(id)
		case "ping":
			pushStateWS(writeCh, stateWSOutbound{Type: "pong", SessionID: id})
		default:
			pushStateWS(writeCh, stateWSOutbound{
				Type:    "error",
				Code:    "invalid_argument",
				Message: "unsupported type: " + msgType,
			})
		}
	}
}

// pushStateWS never blocks; when the buffer is full the oldest message is
// dropped.
func pushStateWS(writeCh chan stateWSOutbound, out stateWSOutbound) {
	select {
	case writeCh <- out:
		return
	default:
	}
	select {
	case <-writeCh:
	default:
	}
	select {
	case writeCh <- out:
	default:
	}
}
