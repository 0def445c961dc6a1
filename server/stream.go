package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"collab_story_weaver/story"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 前端与 API 同源部署之外的场景需要自行收紧
	CheckOrigin: func(r *http.Request) bool { return true },
}

type chatUpdate struct {
	Type    string        `json:"type"`
	Message story.Message `json:"message"`
	Dropped int64         `json:"dropped"`
}

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// handleStream forwards chat updates of one session over a WebSocket.
// A session has a single update queue, so concurrent listeners split it.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "session_id", sess.ID, "error", err)
		return
	}
	defer conn.Close()
	s.logger.Info("stream opened", "session_id", sess.ID)

	// the reader only exists to notice the client going away
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	updates := sess.Updates()
	for {
		select {
		case msg, ok := <-updates:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}
			if err := conn.WriteJSON(chatUpdate{Type: "chat_update", Message: msg, Dropped: sess.DroppedUpdates()}); err != nil {
				s.logger.Debug("stream write failed", "session_id", sess.ID, "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-gone:
			s.logger.Info("stream closed by client", "session_id", sess.ID)
			return
		case <-r.Context().Done():
			return
		}
	}
}
