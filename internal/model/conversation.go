package model

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxMessageBody bounds the message body length in runes.
const MaxMessageBody = 2000

var (
	ErrBlocked        = errors.New("conversation is blocked")
	ErrNotParticipant = errors.New("sender is not a participant")
	ErrEmptyBody      = errors.New("body is required")
	ErrBodyTooLong    = errors.New("body exceeds maximum length")
)

// Conversation is a thread between exactly two users about one listing.
// The unique index on (listing_id, seller_uid, buyer_uid) guarantees a single
// thread per listing/pair; concurrent creators race on it and the loser
// re-fetches the winner's row.
type Conversation struct {
	ID            uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ListingID     uint64     `gorm:"column:listing_id;uniqueIndex:uniq_listing_pair" json:"listingId"`
	SellerUID     string     `gorm:"column:seller_uid;size:128;uniqueIndex:uniq_listing_pair;index" json:"sellerUid"`
	BuyerUID      string     `gorm:"column:buyer_uid;size:128;uniqueIndex:uniq_listing_pair;index" json:"buyerUid"`
	IsBlocked     bool       `gorm:"column:is_blocked;not null;default:false" json:"isBlocked"`
	LastMessageAt *time.Time `gorm:"column:last_message_at" json:"lastMessageAt"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Conversation) TableName() string {
	return "conversations"
}

func (c *Conversation) IsParticipant(uid string) bool {
	return uid == c.SellerUID || uid == c.BuyerUID
}

// OtherParticipant returns the counterpart of uid, or "" if uid is not part
// of the conversation.
func (c *Conversation) OtherParticipant(uid string) string {
	switch uid {
	case c.SellerUID:
		return c.BuyerUID
	case c.BuyerUID:
		return c.SellerUID
	}
	return ""
}

// AddMessage validates a send against the conversation invariants and returns
// the message to persist. It does not persist anything itself.
func (c *Conversation) AddMessage(senderUID, body string, now time.Time) (*Message, error) {
	if c.IsBlocked {
		return nil, ErrBlocked
	}
	if !c.IsParticipant(senderUID) {
		return nil, ErrNotParticipant
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyBody
	}
	if utf8.RuneCountInString(body) > MaxMessageBody {
		return nil, ErrBodyTooLong
	}
	return &Message{
		ConversationID: c.ID,
		SenderUID:      senderUID,
		Body:           body,
		SentAt:         now,
	}, nil
}

// Block and Unblock are idempotent flag flips; either participant (or an
// admin actor) may call them.
func (c *Conversation) Block()   { c.IsBlocked = true }
func (c *Conversation) Unblock() { c.IsBlocked = false }
