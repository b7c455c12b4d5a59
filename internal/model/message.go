package model

import "time"

// Message rows are never physically deleted; each side hides its own copy via
// the per-viewer soft-delete flags.
type Message struct {
	ID                uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID    uint64     `gorm:"column:conversation_id;index:idx_conv_sent,priority:1" json:"conversationId"`
	SenderUID         string     `gorm:"column:sender_uid;size:128;index" json:"senderUid"`
	Body              string     `gorm:"type:text;not null" json:"body"`
	SentAt            time.Time  `gorm:"column:sent_at;index:idx_conv_sent,priority:2;not null" json:"sentAt"`
	ReadAt            *time.Time `gorm:"column:read_at" json:"readAt"`
	DeletedBySender   bool       `gorm:"column:deleted_by_sender;not null;default:false" json:"-"`
	DeletedByReceiver bool       `gorm:"column:deleted_by_receiver;not null;default:false" json:"-"`
}

func (Message) TableName() string {
	return "messages"
}

// VisibleTo reports whether viewerUID still sees this message.
func (m *Message) VisibleTo(viewerUID string) bool {
	if m.SenderUID == viewerUID {
		return !m.DeletedBySender
	}
	return !m.DeletedByReceiver
}

// MarkRead sets readAt exactly once; later calls keep the original timestamp.
func (m *Message) MarkRead(now time.Time) {
	if m.ReadAt == nil {
		m.ReadAt = &now
	}
}
