package ws

import (
	"encoding/json"
	"time"
)

// Server -> client event names.
const (
	EventMessageNew          = "message:new"
	EventConversationUpdated = "conversation:updated"
	EventPresenceOnline      = "presence:online"
	EventPresenceOffline     = "presence:offline"
	EventError               = "error"
)

// Client -> server envelope types.
const (
	TypeJoin  = "join"
	TypeLeave = "leave"
	TypeSend  = "send"
	TypeRead  = "read"
)

// Fault codes carried on EventError.
const (
	CodeNotFound    = "not_found"
	CodeForbidden   = "forbidden"
	CodeBlocked     = "blocked"
	CodeRateLimited = "rate_limited"
	CodeValidation  = "validation"
	CodeBadRequest  = "bad_request"
)

type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type MessageNewPayload struct {
	ConversationID uint64    `json:"conversationId"`
	MessageID      uint64    `json:"messageId"`
	SenderID       string    `json:"senderId"`
	Body           string    `json:"body"`
	SentAt         time.Time `json:"sentAt"`
}

type ConversationUpdatedPayload struct {
	ConversationID uint64 `json:"conversationId"`
}

type PresencePayload struct {
	UserID string `json:"userId"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Encode marshals an event envelope; payload structs above are the only
// shapes that go over the wire.
func Encode(typ string, payload interface{}) []byte {
	b, _ := json.Marshal(Event{Type: typ, Payload: payload})
	return b
}
