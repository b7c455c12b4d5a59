package repository

import (
	"context"
	"time"

	"github.com/shinyyama/marketplace-backend/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InboxEntry is the aggregated per-conversation view for one user's inbox.
// The listing summary fields are filled in by the service from the listing
// catalog; this repository only aggregates conversation and message rows.
type InboxEntry struct {
	Conversation    model.Conversation
	OtherUID        string
	ListingTitle    string
	ListingPrice    uint
	ListingCurrency string
	LastMessageBody string
	LastMessageAt   *time.Time
	UnreadCount     int64
}

type ConversationRepository interface {
	// Create inserts the conversation and both participant rows in one
	// transaction. A unique-constraint race surfaces as gorm.ErrDuplicatedKey.
	Create(ctx context.Context, cv *model.Conversation) error
	FindByListingPair(ctx context.Context, listingID uint64, sellerUID, buyerUID string) (*model.Conversation, error)
	FindByID(ctx context.Context, id uint64) (*model.Conversation, error)
	SetBlocked(ctx context.Context, id uint64, blocked bool) error

	// AppendMessage persists the message, touches the conversation's
	// last_message_at/updated_at, and moves the sender's read cursor, all in
	// one transaction.
	AppendMessage(ctx context.Context, msg *model.Message) error
	ListMessagesBefore(ctx context.Context, convID uint64, viewerUID string, take int, before *time.Time) ([]model.Message, error)
	SoftDeleteForViewer(ctx context.Context, convID, msgID uint64, viewerUID string) error

	MarkRead(ctx context.Context, convID uint64, uid string, now time.Time) error
	Inbox(ctx context.Context, uid string, limit, offset int) ([]InboxEntry, int64, error)

	SetDB(db *gorm.DB)
}

type conversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) SetDB(db *gorm.DB) {
	r.db = db
}

func (r *conversationRepository) Create(ctx context.Context, cv *model.Conversation) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(cv).Error; err != nil {
			return err
		}
		parts := []model.ConversationParticipant{
			{ConversationID: cv.ID, UID: cv.SellerUID},
			{ConversationID: cv.ID, UID: cv.BuyerUID},
		}
		return tx.Create(&parts).Error
	})
}

func (r *conversationRepository) FindByListingPair(ctx context.Context, listingID uint64, sellerUID, buyerUID string) (*model.Conversation, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var cv model.Conversation
	if err := r.db.WithContext(ctx).
		Where("listing_id = ? AND seller_uid = ? AND buyer_uid = ?", listingID, sellerUID, buyerUID).
		First(&cv).Error; err != nil {
		return nil, err
	}
	return &cv, nil
}

func (r *conversationRepository) FindByID(ctx context.Context, id uint64) (*model.Conversation, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var cv model.Conversation
	if err := r.db.WithContext(ctx).First(&cv, id).Error; err != nil {
		return nil, err
	}
	return &cv, nil
}

func (r *conversationRepository) SetBlocked(ctx context.Context, id uint64, blocked bool) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).
		Model(&model.Conversation{}).
		Where("id = ?", id).
		Update("is_blocked", blocked).Error
}

func (r *conversationRepository) AppendMessage(ctx context.Context, msg *model.Message) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Conversation{}).
			Where("id = ?", msg.ConversationID).
			Updates(map[string]interface{}{
				"last_message_at": msg.SentAt,
				"updated_at":      msg.SentAt,
			}).Error; err != nil {
			return err
		}
		// Sending implicitly marks the sender's own cursor current.
		return tx.Model(&model.ConversationParticipant{}).
			Where("conversation_id = ? AND uid = ?", msg.ConversationID, msg.SenderUID).
			Update("last_read_at", msg.SentAt).Error
	})
}

func (r *conversationRepository) ListMessagesBefore(ctx context.Context, convID uint64, viewerUID string, take int, before *time.Time) ([]model.Message, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	q := r.db.WithContext(ctx).
		Where("conversation_id = ?", convID).
		Where("(sender_uid = ? AND deleted_by_sender = false) OR (sender_uid <> ? AND deleted_by_receiver = false)", viewerUID, viewerUID)
	if before != nil {
		q = q.Where("sent_at < ?", *before)
	}
	var msgs []model.Message
	if err := q.Order("sent_at DESC, id DESC").Limit(take).Find(&msgs).Error; err != nil {
		return nil, err
	}
	// Fetched newest-first for the keyset walk; callers read chronologically.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (r *conversationRepository) SoftDeleteForViewer(ctx context.Context, convID, msgID uint64, viewerUID string) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	var m model.Message
	if err := r.db.WithContext(ctx).
		Where("id = ? AND conversation_id = ?", msgID, convID).
		First(&m).Error; err != nil {
		return err
	}
	col := "deleted_by_receiver"
	if m.SenderUID == viewerUID {
		col = "deleted_by_sender"
	}
	return r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("id = ?", m.ID).
		Update(col, true).Error
}

func (r *conversationRepository) MarkRead(ctx context.Context, convID uint64, uid string, now time.Time) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p := model.ConversationParticipant{ConversationID: convID, UID: uid, LastReadAt: &now}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "conversation_id"}, {Name: "uid"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"last_read_at": now}),
		}).Create(&p).Error; err != nil {
			return err
		}
		// read_at is set once and never cleared.
		return tx.Model(&model.Message{}).
			Where("conversation_id = ? AND sender_uid <> ? AND read_at IS NULL AND sent_at <= ?", convID, uid, now).
			Update("read_at", now).Error
	})
}

func (r *conversationRepository) Inbox(ctx context.Context, uid string, limit, offset int) ([]InboxEntry, int64, error) {
	if r.db == nil {
		return nil, 0, ErrDBNotReady
	}

	var total int64
	base := r.db.WithContext(ctx).Model(&model.Conversation{}).
		Where("seller_uid = ? OR buyer_uid = ?", uid, uid)
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var convs []model.Conversation
	if err := r.db.WithContext(ctx).
		Where("seller_uid = ? OR buyer_uid = ?", uid, uid).
		Order("updated_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&convs).Error; err != nil {
		return nil, 0, err
	}
	if len(convs) == 0 {
		return []InboxEntry{}, total, nil
	}

	convIDs := make([]uint64, 0, len(convs))
	for _, cv := range convs {
		convIDs = append(convIDs, cv.ID)
	}

	// Last message per conversation still visible to the viewer.
	visible := r.db.Model(&model.Message{}).
		Select("MAX(id)").
		Where("conversation_id IN ?", convIDs).
		Where("(sender_uid = ? AND deleted_by_sender = false) OR (sender_uid <> ? AND deleted_by_receiver = false)", uid, uid).
		Group("conversation_id")
	var lastMsgs []model.Message
	if err := r.db.WithContext(ctx).Where("id IN (?)", visible).Find(&lastMsgs).Error; err != nil {
		return nil, 0, err
	}
	lastByConv := make(map[uint64]model.Message, len(lastMsgs))
	for _, m := range lastMsgs {
		lastByConv[m.ConversationID] = m
	}

	// Unread = messages from the other party after the viewer's read cursor
	// (all of them when the cursor is still null).
	type unreadRow struct {
		ConversationID uint64
		N              int64
	}
	var unread []unreadRow
	if err := r.db.WithContext(ctx).Model(&model.Message{}).
		Select("messages.conversation_id AS conversation_id, COUNT(*) AS n").
		Joins("JOIN conversation_participants p ON p.conversation_id = messages.conversation_id AND p.uid = ?", uid).
		Where("messages.conversation_id IN ?", convIDs).
		Where("messages.sender_uid <> ?", uid).
		Where("messages.deleted_by_receiver = false").
		Where("p.last_read_at IS NULL OR messages.sent_at > p.last_read_at").
		Group("messages.conversation_id").
		Scan(&unread).Error; err != nil {
		return nil, 0, err
	}
	unreadByConv := make(map[uint64]int64, len(unread))
	for _, u := range unread {
		unreadByConv[u.ConversationID] = u.N
	}

	entries := make([]InboxEntry, 0, len(convs))
	for _, cv := range convs {
		e := InboxEntry{
			Conversation: cv,
			OtherUID:     cv.OtherParticipant(uid),
			UnreadCount:  unreadByConv[cv.ID],
		}
		if m, ok := lastByConv[cv.ID]; ok {
			e.LastMessageBody = m.Body
			t := m.SentAt
			e.LastMessageAt = &t
		}
		entries = append(entries, e)
	}
	return entries, total, nil
}
