package repository

import (
	"context"
	"errors"

	"github.com/shinyyama/marketplace-backend/internal/model"
	"gorm.io/gorm"
)

var ErrDBNotReady = errors.New("database not initialized")

// ListingRepository is the read-only collaborator surface the chat core needs
// from the listing catalog: existence/visibility checks and inbox summaries.
type ListingRepository interface {
	FindByID(ctx context.Context, id uint64) (*model.Listing, error)
	FindByIDs(ctx context.Context, ids []uint64) (map[uint64]model.Listing, error)
	SetDB(db *gorm.DB)
}

type listingRepository struct {
	db *gorm.DB
}

func NewListingRepository(db *gorm.DB) ListingRepository {
	return &listingRepository{db: db}
}

func (r *listingRepository) SetDB(db *gorm.DB) {
	r.db = db
}

func (r *listingRepository) FindByID(ctx context.Context, id uint64) (*model.Listing, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var l model.Listing
	if err := r.db.WithContext(ctx).First(&l, id).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *listingRepository) FindByIDs(ctx context.Context, ids []uint64) (map[uint64]model.Listing, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	out := make(map[uint64]model.Listing, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var list []model.Listing
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&list).Error; err != nil {
		return nil, err
	}
	for _, l := range list {
		out[l.ID] = l
	}
	return out, nil
}
