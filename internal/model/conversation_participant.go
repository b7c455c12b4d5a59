package model

import "time"

// ConversationParticipant is the per-user read cursor; one row per
// (conversation, user). Sending a message moves the sender's own cursor.
type ConversationParticipant struct {
	ID             uint64     `gorm:"primaryKey;autoIncrement"`
	ConversationID uint64     `gorm:"column:conversation_id;uniqueIndex:uniq_conv_uid"`
	UID            string     `gorm:"column:uid;size:128;uniqueIndex:uniq_conv_uid"`
	LastReadAt     *time.Time `gorm:"column:last_read_at"`
	CreatedAt      time.Time  `gorm:"autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime"`
}

func (ConversationParticipant) TableName() string {
	return "conversation_participants"
}
