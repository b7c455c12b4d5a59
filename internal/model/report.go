package model

import "time"

type Report struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ReporterUID    string    `gorm:"column:reporter_uid;size:128;index;not null" json:"reporterUid"`
	ConversationID uint64    `gorm:"column:conversation_id;index;not null" json:"conversationId"`
	Reason         string    `gorm:"size:500;not null" json:"reason"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (Report) TableName() string {
	return "reports"
}
