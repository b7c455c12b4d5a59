package service

import (
	"context"
	"strings"

	"github.com/shinyyama/marketplace-backend/internal/model"
	"github.com/shinyyama/marketplace-backend/internal/repository"
)

// ReportLimiter gates abuse-report submission per reporter (fixed window).
type ReportLimiter interface {
	Allow(key string) bool
}

type ReportService interface {
	Submit(ctx context.Context, reporterUID string, convID uint64, reason string) (*model.Report, error)
}

type reportService struct {
	reportRepo repository.ReportRepository
	convSvc    ConversationService
	limiter    ReportLimiter
}

func NewReportService(reportRepo repository.ReportRepository, convSvc ConversationService, limiter ReportLimiter) ReportService {
	return &reportService{reportRepo: reportRepo, convSvc: convSvc, limiter: limiter}
}

func (s *reportService) Submit(ctx context.Context, reporterUID string, convID uint64, reason string) (*model.Report, error) {
	if s.limiter != nil && !s.limiter.Allow(reporterUID) {
		return nil, ErrRateLimited
	}
	if _, err := s.convSvc.Get(ctx, convID, reporterUID); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" || len(reason) > 500 {
		return nil, ErrValidation
	}
	rep := &model.Report{
		ReporterUID:    reporterUID,
		ConversationID: convID,
		Reason:         reason,
	}
	if err := s.reportRepo.Create(ctx, rep); err != nil {
		return nil, err
	}
	return rep, nil
}
