package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shinyyama/marketplace-backend/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	// One connection keeps the in-memory database alive across queries.
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&model.Listing{}, &model.Conversation{}, &model.ConversationParticipant{}, &model.Message{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func at(sec int) time.Time {
	return time.Date(2026, 8, 1, 12, 0, sec, 0, time.UTC)
}

func createConversation(t *testing.T, repo ConversationRepository, listingID uint64, seller, buyer string) *model.Conversation {
	t.Helper()
	cv := &model.Conversation{ListingID: listingID, SellerUID: seller, BuyerUID: buyer}
	if err := repo.Create(context.Background(), cv); err != nil {
		t.Fatalf("create conversation: %v", err)
	}
	return cv
}

func appendMessage(t *testing.T, repo ConversationRepository, cv *model.Conversation, sender, body string, ts time.Time) *model.Message {
	t.Helper()
	msg, err := cv.AddMessage(sender, body, ts)
	if err != nil {
		t.Fatalf("add message: %v", err)
	}
	if err := repo.AppendMessage(context.Background(), msg); err != nil {
		t.Fatalf("append message: %v", err)
	}
	return msg
}

func bodies(msgs []model.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Body
	}
	return out
}

func sameBodies(got []model.Message, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i, m := range got {
		if m.Body != want[i] {
			return false
		}
	}
	return true
}

func TestConversationRepositoryCreateDuplicate(t *testing.T) {
	repo := NewConversationRepository(newTestDB(t))
	ctx := context.Background()

	cv := createConversation(t, repo, 1, "seller", "buyer")

	dup := &model.Conversation{ListingID: 1, SellerUID: "seller", BuyerUID: "buyer"}
	if err := repo.Create(ctx, dup); !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("err=%v want gorm.ErrDuplicatedKey", err)
	}

	winner, err := repo.FindByListingPair(ctx, 1, "seller", "buyer")
	if err != nil {
		t.Fatalf("find by pair: %v", err)
	}
	if winner.ID != cv.ID {
		t.Fatalf("id=%d want %d", winner.ID, cv.ID)
	}
}

func TestConversationRepositoryListMessagesBefore(t *testing.T) {
	repo := NewConversationRepository(newTestDB(t))
	ctx := context.Background()
	cv := createConversation(t, repo, 1, "seller", "buyer")

	appendMessage(t, repo, cv, "buyer", "one", at(1))
	appendMessage(t, repo, cv, "seller", "two", at(2))
	appendMessage(t, repo, cv, "buyer", "three", at(3))
	m4 := appendMessage(t, repo, cv, "seller", "four", at(4))
	appendMessage(t, repo, cv, "buyer", "five", at(5))

	t.Run("newest page ascending", func(t *testing.T) {
		msgs, err := repo.ListMessagesBefore(ctx, cv.ID, "seller", 3, nil)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if !sameBodies(msgs, []string{"three", "four", "five"}) {
			t.Fatalf("got %v want [three four five]", bodies(msgs))
		}
	})

	t.Run("cursor is exclusive", func(t *testing.T) {
		before := at(4)
		msgs, err := repo.ListMessagesBefore(ctx, cv.ID, "seller", 10, &before)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if !sameBodies(msgs, []string{"one", "two", "three"}) {
			t.Fatalf("got %v want [one two three]", bodies(msgs))
		}
	})

	t.Run("soft delete hides one side only", func(t *testing.T) {
		// Seller deletes their own message: the sender-side flag.
		if err := repo.SoftDeleteForViewer(ctx, cv.ID, m4.ID, "seller"); err != nil {
			t.Fatalf("soft delete: %v", err)
		}
		sellerView, err := repo.ListMessagesBefore(ctx, cv.ID, "seller", 10, nil)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if !sameBodies(sellerView, []string{"one", "two", "three", "five"}) {
			t.Fatalf("seller view %v must not contain four", bodies(sellerView))
		}
		buyerView, err := repo.ListMessagesBefore(ctx, cv.ID, "buyer", 10, nil)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(buyerView) != 5 {
			t.Fatalf("buyer view len=%d want 5", len(buyerView))
		}
	})
}

func TestConversationRepositoryInboxUnread(t *testing.T) {
	db := newTestDB(t)
	repo := NewConversationRepository(db)
	ctx := context.Background()

	a := createConversation(t, repo, 1, "anna", "me")
	b := createConversation(t, repo, 2, "bruno", "me")

	appendMessage(t, repo, a, "anna", "a1", at(1))
	appendMessage(t, repo, a, "anna", "a2", at(2))
	appendMessage(t, repo, a, "me", "mine", at(3)) // moves my cursor in a to at(3)
	appendMessage(t, repo, a, "anna", "a3", at(4))
	em := appendMessage(t, repo, b, "bruno", "b1", at(10))

	entries, total, err := repo.Inbox(ctx, "me", 20, 0)
	if err != nil {
		t.Fatalf("inbox: %v", err)
	}
	if total != 2 || len(entries) != 2 {
		t.Fatalf("total=%d entries=%d want 2/2", total, len(entries))
	}
	// Most recently active conversation first.
	if entries[0].Conversation.ID != b.ID || entries[1].Conversation.ID != a.ID {
		t.Fatalf("order %d,%d want %d,%d", entries[0].Conversation.ID, entries[1].Conversation.ID, b.ID, a.ID)
	}
	// Null cursor counts every message from the other party.
	if entries[0].UnreadCount != 1 || entries[0].OtherUID != "bruno" {
		t.Fatalf("b entry: %+v", entries[0])
	}
	// My cursor sits at at(3); only a3 is newer.
	if entries[1].UnreadCount != 1 {
		t.Fatalf("a unread=%d want 1", entries[1].UnreadCount)
	}
	if entries[1].LastMessageBody != "a3" || entries[1].LastMessageAt == nil || !entries[1].LastMessageAt.Equal(at(4)) {
		t.Fatalf("a preview: %+v", entries[1])
	}

	t.Run("mark read clears unread and stamps messages once", func(t *testing.T) {
		if err := repo.MarkRead(ctx, a.ID, "me", at(4)); err != nil {
			t.Fatalf("mark read: %v", err)
		}
		entries, _, err := repo.Inbox(ctx, "me", 20, 0)
		if err != nil {
			t.Fatalf("inbox: %v", err)
		}
		if entries[1].UnreadCount != 0 {
			t.Fatalf("a unread=%d want 0", entries[1].UnreadCount)
		}

		var a1 model.Message
		if err := db.Where("conversation_id = ? AND body = ?", a.ID, "a1").First(&a1).Error; err != nil {
			t.Fatalf("reload a1: %v", err)
		}
		if a1.ReadAt == nil || !a1.ReadAt.Equal(at(4)) {
			t.Fatalf("a1 readAt=%v want %v", a1.ReadAt, at(4))
		}
		// A later mark-read must not move an existing stamp.
		if err := repo.MarkRead(ctx, a.ID, "me", at(6)); err != nil {
			t.Fatalf("mark read again: %v", err)
		}
		if err := db.Where("conversation_id = ? AND body = ?", a.ID, "a1").First(&a1).Error; err != nil {
			t.Fatalf("reload a1: %v", err)
		}
		if !a1.ReadAt.Equal(at(4)) {
			t.Fatalf("a1 readAt=%v must keep %v", a1.ReadAt, at(4))
		}
	})

	t.Run("viewer-deleted messages leave unread and preview", func(t *testing.T) {
		if err := repo.SoftDeleteForViewer(ctx, b.ID, em.ID, "me"); err != nil {
			t.Fatalf("soft delete: %v", err)
		}
		entries, _, err := repo.Inbox(ctx, "me", 20, 0)
		if err != nil {
			t.Fatalf("inbox: %v", err)
		}
		if entries[0].Conversation.ID != b.ID {
			t.Fatalf("b should stay first by activity")
		}
		if entries[0].UnreadCount != 0 || entries[0].LastMessageBody != "" {
			t.Fatalf("b entry after delete: %+v", entries[0])
		}
	})
}
