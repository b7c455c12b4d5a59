package model

import "time"

const (
	ListingStatusDraft     = "draft"
	ListingStatusPublished = "published"
	ListingStatusSold      = "sold"
	ListingStatusHidden    = "hidden"
)

type Listing struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	SellerUID string    `gorm:"column:seller_uid;size:128;index;not null" json:"sellerUid"`
	Title     string    `gorm:"size:120;not null" json:"title"`
	Price     uint      `gorm:"not null" json:"price"`
	Currency  string    `gorm:"size:3;not null;default:'EUR'" json:"currency"`
	Status    string    `gorm:"size:16;not null;default:'draft';index" json:"status"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Listing) TableName() string {
	return "listings"
}

// IsAvailable reports whether the listing can accept new conversations.
func (l *Listing) IsAvailable() bool {
	return l.Status == ListingStatusPublished
}
