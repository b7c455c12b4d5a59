package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shinyyama/marketplace-backend/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	maxEnvelopeLen = 4096
	sendBuffer     = 64
)

// Client is one websocket connection of an authenticated user. The connection
// state machine is: authenticated on construction, joined to zero or more
// conversation channels while alive, gone after readPump returns.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	uid     string
	connID  string
	convSvc service.ConversationService

	// joined is owned by the hub run goroutine.
	joined map[uint64]bool
}

type clientEnvelope struct {
	Type           string `json:"type"`
	ConversationID uint64 `json:"conversationId"`
	Body           string `json:"body"`
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxEnvelopeLen)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { _ = c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws: read error uid=%s: %v", c.uid, err)
			}
			return
		}
		var env clientEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.fault(CodeBadRequest, "invalid json")
			continue
		}
		c.handle(&env)
	}
}

func (c *Client) handle(env *clientEnvelope) {
	if env.ConversationID == 0 {
		c.fault(CodeBadRequest, "conversationId is required")
		return
	}
	switch env.Type {
	case TypeJoin:
		ok, err := c.convSvc.IsParticipant(context.Background(), env.ConversationID, c.uid)
		if err != nil {
			c.faultFrom(err)
			return
		}
		if !ok {
			c.fault(CodeForbidden, "not a participant")
			return
		}
		c.hub.Subscribe(c, env.ConversationID)

	case TypeLeave:
		c.hub.Unsubscribe(c, env.ConversationID)

	case TypeSend:
		// The durable write must finish even if this socket drops mid-flight;
		// delivery fan-out happens post-commit via the dispatcher.
		if _, err := c.convSvc.SendMessage(context.Background(), env.ConversationID, c.uid, env.Body); err != nil {
			c.faultFrom(err)
		}

	case TypeRead:
		if err := c.convSvc.MarkRead(context.Background(), env.ConversationID, c.uid); err != nil {
			c.faultFrom(err)
		}

	default:
		c.fault(CodeBadRequest, "unsupported type")
	}
}

// faultFrom maps a service failure to a client-visible fault event; domain
// failures are never silently dropped.
func (c *Client) faultFrom(err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.fault(CodeNotFound, "conversation not found")
	case errors.Is(err, service.ErrForbidden):
		c.fault(CodeForbidden, "not a participant")
	case errors.Is(err, service.ErrBlocked):
		c.fault(CodeBlocked, "conversation is blocked")
	case errors.Is(err, service.ErrRateLimited):
		c.fault(CodeRateLimited, "too many messages, retry later")
	case errors.Is(err, service.ErrValidation):
		c.fault(CodeValidation, "invalid message body")
	default:
		log.Printf("ws: operation failed uid=%s: %v", c.uid, err)
		c.fault("internal_error", "operation failed")
	}
}

func (c *Client) fault(code, message string) {
	payload := Encode(EventError, ErrorPayload{Code: code, Message: message})
	select {
	case c.send <- payload:
	default:
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker((pongWait * 9) / 10)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// hub closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
