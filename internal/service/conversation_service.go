package service

import (
	"context"
	"errors"
	"time"

	"github.com/shinyyama/marketplace-backend/internal/model"
	"github.com/shinyyama/marketplace-backend/internal/repository"
	"gorm.io/gorm"
)

// SendLimiter gates message sends per sender key.
type SendLimiter interface {
	Allow(key string) bool
}

// Notifier receives the post-commit fan-out for a freshly persisted message.
type Notifier interface {
	MessageCreated(cv *model.Conversation, msg *model.Message)
}

type ConversationService interface {
	CreateOrGet(ctx context.Context, listingID uint64, buyerUID string) (*model.Conversation, error)
	Get(ctx context.Context, convID uint64, uid string) (*model.Conversation, error)
	Header(ctx context.Context, convID uint64, uid string) (*model.Conversation, *model.Listing, error)
	IsParticipant(ctx context.Context, convID uint64, uid string) (bool, error)

	SendMessage(ctx context.Context, convID uint64, senderUID, body string) (*model.Message, error)
	ListMessages(ctx context.Context, convID uint64, viewerUID string, take int, before *time.Time) ([]model.Message, error)
	DeleteMessageForMe(ctx context.Context, convID, msgID uint64, uid string) error

	Inbox(ctx context.Context, uid string, limit, offset int) ([]repository.InboxEntry, int64, error)
	MarkRead(ctx context.Context, convID uint64, uid string) error
	SetBlocked(ctx context.Context, convID uint64, uid string, blocked bool) error

	SetNotifier(n Notifier)
}

type conversationService struct {
	convRepo    repository.ConversationRepository
	listingRepo repository.ListingRepository
	limiter     SendLimiter
	notifier    Notifier
	now         func() time.Time
}

func NewConversationService(convRepo repository.ConversationRepository, listingRepo repository.ListingRepository, limiter SendLimiter) ConversationService {
	return &conversationService{
		convRepo:    convRepo,
		listingRepo: listingRepo,
		limiter:     limiter,
		now:         time.Now,
	}
}

// SetNotifier wires the live-channel dispatcher after construction; the hub
// needs the service for sends and the service needs the hub for fan-out.
func (s *conversationService) SetNotifier(n Notifier) {
	s.notifier = n
}

func (s *conversationService) CreateOrGet(ctx context.Context, listingID uint64, buyerUID string) (*model.Conversation, error) {
	listing, err := s.listingRepo.FindByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if listing.SellerUID == buyerUID {
		return nil, ErrSelfMessaging
	}
	if !listing.IsAvailable() {
		return nil, ErrListingNotAvailable
	}

	cv := &model.Conversation{
		ListingID: listing.ID,
		SellerUID: listing.SellerUID,
		BuyerUID:  buyerUID,
	}
	err = s.convRepo.Create(ctx, cv)
	if err == nil {
		return cv, nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Lost the creation race (or the thread already existed): return the
		// winner's row instead of surfacing the conflict.
		return s.convRepo.FindByListingPair(ctx, listing.ID, listing.SellerUID, buyerUID)
	}
	return nil, err
}

func (s *conversationService) Get(ctx context.Context, convID uint64, uid string) (*model.Conversation, error) {
	cv, err := s.convRepo.FindByID(ctx, convID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !cv.IsParticipant(uid) {
		return nil, ErrForbidden
	}
	return cv, nil
}

// Header returns the conversation together with its listing summary for the
// thread view. A missing listing row is tolerated; the thread still opens.
func (s *conversationService) Header(ctx context.Context, convID uint64, uid string) (*model.Conversation, *model.Listing, error) {
	cv, err := s.Get(ctx, convID, uid)
	if err != nil {
		return nil, nil, err
	}
	listing, err := s.listingRepo.FindByID(ctx, cv.ListingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return cv, nil, nil
		}
		return nil, nil, err
	}
	return cv, listing, nil
}

func (s *conversationService) IsParticipant(ctx context.Context, convID uint64, uid string) (bool, error) {
	cv, err := s.convRepo.FindByID(ctx, convID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrNotFound
		}
		return false, err
	}
	return cv.IsParticipant(uid), nil
}

func (s *conversationService) SendMessage(ctx context.Context, convID uint64, senderUID, body string) (*model.Message, error) {
	if s.limiter != nil && !s.limiter.Allow(senderUID) {
		return nil, ErrRateLimited
	}
	cv, err := s.convRepo.FindByID(ctx, convID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	msg, err := cv.AddMessage(senderUID, body, s.now())
	if err != nil {
		switch {
		case errors.Is(err, model.ErrBlocked):
			return nil, ErrBlocked
		case errors.Is(err, model.ErrNotParticipant):
			return nil, ErrForbidden
		default:
			return nil, ErrValidation
		}
	}
	if err := s.convRepo.AppendMessage(ctx, msg); err != nil {
		return nil, err
	}
	// Broadcast only after the durable write; subscribers observe messages in
	// commit order.
	if s.notifier != nil {
		s.notifier.MessageCreated(cv, msg)
	}
	return msg, nil
}

func (s *conversationService) ListMessages(ctx context.Context, convID uint64, viewerUID string, take int, before *time.Time) ([]model.Message, error) {
	if _, err := s.Get(ctx, convID, viewerUID); err != nil {
		return nil, err
	}
	if take <= 0 || take > 100 {
		take = 50
	}
	return s.convRepo.ListMessagesBefore(ctx, convID, viewerUID, take, before)
}

func (s *conversationService) DeleteMessageForMe(ctx context.Context, convID, msgID uint64, uid string) error {
	if _, err := s.Get(ctx, convID, uid); err != nil {
		return err
	}
	if err := s.convRepo.SoftDeleteForViewer(ctx, convID, msgID, uid); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *conversationService) Inbox(ctx context.Context, uid string, limit, offset int) ([]repository.InboxEntry, int64, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	entries, total, err := s.convRepo.Inbox(ctx, uid, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	if len(entries) == 0 {
		return entries, total, nil
	}

	listingIDs := make([]uint64, 0, len(entries))
	for _, e := range entries {
		listingIDs = append(listingIDs, e.Conversation.ListingID)
	}
	listings, err := s.listingRepo.FindByIDs(ctx, listingIDs)
	if err != nil {
		return nil, 0, err
	}
	// A conversation survives its listing; entries without a listing row keep
	// empty summary fields.
	for i := range entries {
		if l, ok := listings[entries[i].Conversation.ListingID]; ok {
			entries[i].ListingTitle = l.Title
			entries[i].ListingPrice = l.Price
			entries[i].ListingCurrency = l.Currency
		}
	}
	return entries, total, nil
}

func (s *conversationService) MarkRead(ctx context.Context, convID uint64, uid string) error {
	if _, err := s.Get(ctx, convID, uid); err != nil {
		return err
	}
	return s.convRepo.MarkRead(ctx, convID, uid, s.now())
}

func (s *conversationService) SetBlocked(ctx context.Context, convID uint64, uid string, blocked bool) error {
	cv, err := s.Get(ctx, convID, uid)
	if err != nil {
		return err
	}
	if blocked {
		cv.Block()
	} else {
		cv.Unblock()
	}
	return s.convRepo.SetBlocked(ctx, convID, cv.IsBlocked)
}
