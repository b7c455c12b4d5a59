package repository

import (
	"context"

	"github.com/shinyyama/marketplace-backend/internal/model"
	"gorm.io/gorm"
)

type ReportRepository interface {
	Create(ctx context.Context, rep *model.Report) error
	SetDB(db *gorm.DB)
}

type reportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) SetDB(db *gorm.DB) {
	r.db = db
}

func (r *reportRepository) Create(ctx context.Context, rep *model.Report) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Create(rep).Error
}
