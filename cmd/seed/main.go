package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/shinyyama/marketplace-backend/internal/config"
	"github.com/shinyyama/marketplace-backend/internal/db"
	"github.com/shinyyama/marketplace-backend/internal/model"
	"gorm.io/gorm"
)

// Seeds a handful of published listings (and one demo conversation) for local
// development. Refuses to run when listings already exist unless
// FORCE_SEED=true.
func main() {
	if err := run(); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	gdb, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	if err := gdb.AutoMigrate(
		&model.Listing{},
		&model.Conversation{},
		&model.ConversationParticipant{},
		&model.Message{},
		&model.Report{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	var count int64
	if err := gdb.Model(&model.Listing{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count listings: %w", err)
	}
	if count > 0 && os.Getenv("FORCE_SEED") != "true" {
		log.Printf("listings already exist; skipping seed (set FORCE_SEED=true to override)")
		return nil
	}

	listings := buildSeedListings()
	return gdb.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&listings).Error; err != nil {
			return fmt.Errorf("insert listings: %w", err)
		}
		// One ready-made thread so the inbox is not empty on first run.
		cv := &model.Conversation{
			ListingID: listings[0].ID,
			SellerUID: listings[0].SellerUID,
			BuyerUID:  "demo-buyer",
		}
		if err := tx.Create(cv).Error; err != nil {
			return fmt.Errorf("insert conversation: %w", err)
		}
		parts := []model.ConversationParticipant{
			{ConversationID: cv.ID, UID: cv.SellerUID},
			{ConversationID: cv.ID, UID: cv.BuyerUID},
		}
		if err := tx.Create(&parts).Error; err != nil {
			return fmt.Errorf("insert participants: %w", err)
		}
		log.Printf("seeded %d listings and 1 conversation", len(listings))
		return nil
	})
}

func buildSeedListings() []model.Listing {
	type entry struct {
		Title string
		Price uint
	}
	entries := []entry{
		{"14インチモバイルノート", 24000},
		{"ワイヤレスメカニカルキーボード", 8800},
		{"無垢材サイドテーブル", 7800},
		{"ランニングシューズ 27cm", 6200},
		{"コンパクトチェア", 9200},
		{"ミラーレス用単焦点レンズ", 12800},
		{"コードレスドライバー", 5800},
		{"ビンテージポスター複製", 7200},
	}
	listings := make([]model.Listing, 0, len(entries))
	for i, e := range entries {
		listings = append(listings, model.Listing{
			SellerUID: fmt.Sprintf("demo-seller-%d", i%3+1),
			Title:     e.Title,
			Price:     e.Price,
			Currency:  "JPY",
			Status:    model.ListingStatusPublished,
		})
	}
	return listings
}
