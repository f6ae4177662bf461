// Websocket chat handler.
//
// This file upgrades GET /ws/chat/:threadId to a websocket and bridges it to
// the realtime broker: committed chat events stream out to the client, and
// text frames from the client are persisted (and fanned back out) through the
// chat service. Thread membership is checked before the upgrade; the socket
// never carries another thread's traffic.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/cargolink/go-freight-backend/internal/http/middleware"
	"github.com/cargolink/go-freight-backend/internal/realtime"
	"github.com/cargolink/go-freight-backend/internal/services"
)

const (
	// writeWait bounds a single frame write.
	writeWait = 10 * time.Second
	// pongWait is how long the connection may stay silent before it is
	// considered dead. Pings go out at a fraction of this.
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	// maxFrameSize bounds inbound frames; chat messages are small.
	maxFrameSize = 8 << 10
)

// upgrader performs the HTTP → websocket handshake. Origin checks are left to
// the CORS layer in front of this service.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// inboundFrame is the JSON shape clients send over the socket.
type inboundFrame struct {
	Content string `json:"content"`
}

// WSHandler serves the realtime chat socket.
type WSHandler struct {
	chatSvc ChatService
	broker  *realtime.Broker
}

// NewWSHandler constructs a WSHandler bound to the chat service and broker.
func NewWSHandler(chatSvc ChatService, broker *realtime.Broker) *WSHandler {
	return &WSHandler{chatSvc: chatSvc, broker: broker}
}

// ChatSocket godoc
// @ID          chatSocket
// @Summary     Attach to a conversation's realtime stream
// @Description Upgrades to a websocket scoped to one thread. Outbound frames are broker events ({topic, kind, payload}); inbound text frames ({content}) are persisted as messages. Participants only.
// @Tags        Chat
//
// @Param       X-User-ID  header  string  true  "User ID"           example(user123)
// @Param       threadId   path    string  true  "Thread ID (UUID)"  format(uuid)
//
// @Success     101  {string}  string  "Switching Protocols"
// @Failure     403  {object}  handlers.Envelope  "Not a participant"
// @Failure     404  {object}  handlers.Envelope  "Thread not found"
// @Router      /ws/chat/{threadId} [get]
func (h *WSHandler) ChatSocket(c *gin.Context) {
	threadID := c.Param("threadId")
	uid := userID(c)

	if _, err := h.chatSvc.Authorize(c.Request.Context(), threadID, uid); err != nil {
		failService(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}

	sub := h.broker.Subscribe(services.TopicForThread(threadID))
	lg := middleware.LoggerFrom(c)
	lg.Info().Str("thread_id", threadID).Msg("websocket attached")

	go h.writePump(conn, sub)
	h.readPump(c, conn, sub, threadID, uid)
}

// readPump consumes client frames until the connection dies, persisting text
// frames as chat messages. It owns connection teardown.
func (h *WSHandler) readPump(c *gin.Context, conn *websocket.Conn, sub *realtime.Subscription, threadID, uid string) {
	defer func() {
		h.broker.Unsubscribe(sub)
		conn.Close()
	}()

	conn.SetReadLimit(maxFrameSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	lg := middleware.LoggerFrom(c)
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				lg.Warn().Err(err).Str("thread_id", threadID).Msg("websocket read error")
			}
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil || strings.TrimSpace(frame.Content) == "" {
			continue
		}
		if _, err := h.chatSvc.PostMessage(c.Request.Context(), threadID, uid, frame.Content); err != nil {
			lg.Warn().Err(err).Str("thread_id", threadID).Msg("websocket message rejected")
		}
	}
}

// writePump streams broker events to the client and keeps the connection
// alive with pings. It exits when the subscription closes or a write fails.
func (h *WSHandler) writePump(conn *websocket.Conn, sub *realtime.Subscription) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case ev, open := <-sub.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !open {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
