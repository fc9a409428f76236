package realtime

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"swap-service/internal/middleware"
	"swap-service/internal/models"
	"swap-service/internal/observability"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxFrame   = 4096
)

// ConversationLookup resolves conversations for typing/presence frames.
type ConversationLookup interface {
	GetConversation(ctx context.Context, conversationID uuid.UUID) (models.Conversation, error)
}

// IdentityVerifier authenticates the websocket handshake token.
type IdentityVerifier interface {
	Verify(token string) (middleware.Identity, error)
}

// WebSocketHandler upgrades authenticated clients and relays their typing
// and presence frames.
type WebSocketHandler struct {
	hub           *Hub
	notifier      *Notifier
	conversations ConversationLookup
	verifier      IdentityVerifier
}

// NewWebSocketHandler constructs a WebSocketHandler.
func NewWebSocketHandler(hub *Hub, notifier *Notifier, conversations ConversationLookup, verifier IdentityVerifier) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, notifier: notifier, conversations: conversations, verifier: verifier}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// inboundFrame is what clients send over the socket.
type inboundFrame struct {
	Type           string    `json:"type"`
	ConversationID uuid.UUID `json:"conversation_id"`
	IsTyping       bool      `json:"is_typing"`
	Online         bool      `json:"online"`
}

// Handle upgrades the connection and registers the client.
func (h *WebSocketHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("swap-service/realtime").Start(c.Request.Context(), "ws.handshake")
	defer span.End()

	token, ok := middleware.BearerToken(c.GetHeader("Authorization"))
	if !ok {
		token = c.Query("token")
	}
	identity, err := h.verifier.Verify(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := NewClient(newConnID(), identity.UserID)
	h.hub.Register(client)
	observability.IncWSActive()
	log.Printf("ws connect conn_id=%s user=%s ip=%s request_id=%s", client.ID, identity.UserID, observability.IPFromRequest(c.Request), observability.RequestIDFromRequest(c.Request))

	go h.writePump(conn, client)
	go h.readPump(context.WithoutCancel(ctx), conn, client, identity)
}

func (h *WebSocketHandler) readPump(ctx context.Context, conn *websocket.Conn, client *Client, identity middleware.Identity) {
	var closeReason string
	defer func() {
		for conversationID, counterpartID := range client.announcedPresences() {
			h.notifier.Presence(ctx, conversationID, identity.UserID, counterpartID, false)
		}
		h.hub.Unregister(client)
		observability.DecWSActive()
		log.Printf("ws disconnect conn_id=%s user=%s reason=%q", client.ID, identity.UserID, closeReason)
		conn.Close()
	}()

	conn.SetReadLimit(maxFrame)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncRealtimeEvent("ws", "read_error")
			}
			return
		}
		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		h.handleFrame(ctx, client, identity, frame)
	}
}

func (h *WebSocketHandler) handleFrame(ctx context.Context, client *Client, identity middleware.Identity, frame inboundFrame) {
	if frame.Type != EventTyping && frame.Type != EventPresence {
		return
	}
	conv, err := h.conversations.GetConversation(ctx, frame.ConversationID)
	if err != nil || !conv.IsParticipant(identity.UserID, identity.Email) {
		return
	}
	counterpart, _ := conv.Counterpart(identity.UserID, identity.Email)
	if !counterpart.Valid {
		return
	}

	switch frame.Type {
	case EventTyping:
		h.notifier.Typing(ctx, conv.ID, identity.UserID, counterpart.UUID, frame.IsTyping)
	case EventPresence:
		client.rememberPresence(conv.ID, counterpart.UUID, frame.Online)
		h.notifier.Presence(ctx, conv.ID, identity.UserID, counterpart.UUID, frame.Online)
	}
}

func (h *WebSocketHandler) writePump(conn *websocket.Conn, client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case payload, ok := <-client.Send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Printf("websocket write error conn_id=%s: %v", client.ID, err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func newConnID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}
