package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"messenger/internal/domain"
	"messenger/internal/service"
	"messenger/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
	sendBufferSize = 32
)

// Client - одно аутентифицированное WebSocket-соединение. Идентичность
// фиксируется при апгрейде и не переопределяется данными клиента.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	userID    uuid.UUID
	send      chan Event
	chat      service.ChatService
	log       logger.Logger
	closeOnce sync.Once
}

func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID, chat service.ChatService, log logger.Logger) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan Event, sendBufferSize),
		chat:   chat,
		log:    log,
	}
}

// Run регистрирует соединение и крутит его до разрыва. Снятие с учета
// происходит ровно один раз, каким бы путем соединение ни завершилось.
func (c *Client) Run() {
	c.hub.Register(c)
	go c.writePump()
	c.readPump()
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.hub.Unregister(c)
		c.conn.Close()
	})
}

func (c *Client) readPump() {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("Unexpected connection close", "error", err, "user_id", c.userID)
			}
			return
		}

		var intent Intent
		if err := json.Unmarshal(raw, &intent); err != nil {
			c.pushError("invalid intent payload")
			continue
		}

		c.handleIntent(context.Background(), intent)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleIntent маршрутизирует команду клиента в движок диалогов. Ошибки
// операции возвращаются только инициатору, без рассылок.
func (c *Client) handleIntent(ctx context.Context, intent Intent) {
	switch intent.Type {
	case IntentSidebar:
		c.chat.PushSidebar(ctx, c.userID)

	case IntentOpen:
		otherID, err := uuid.Parse(intent.UserID)
		if err != nil {
			c.pushError("invalid user_id")
			return
		}
		if err := c.chat.OpenThread(ctx, c.userID, otherID); err != nil {
			c.pushError(err.Error())
		}

	case IntentSend:
		receiverID, err := uuid.Parse(intent.UserID)
		if err != nil {
			c.pushError("invalid user_id")
			return
		}
		content := domain.MessageContent{
			Text:     intent.Text,
			ImageURL: intent.ImageURL,
			VideoURL: intent.VideoURL,
		}
		if _, err := c.chat.Send(ctx, c.userID, receiverID, content); err != nil {
			c.pushError(err.Error())
		}

	case IntentSeen:
		authorID, err := uuid.Parse(intent.UserID)
		if err != nil {
			c.pushError("invalid user_id")
			return
		}
		if err := c.chat.MarkSeen(ctx, c.userID, authorID); err != nil {
			c.pushError(err.Error())
		}

	default:
		c.pushError("unknown intent type")
	}
}

func (c *Client) pushError(message string) {
	select {
	case c.send <- Event{Type: EventError, Payload: map[string]string{"message": message}}:
	default:
	}
}
