package usecases

import (
	"context"
	"fmt"

	"github.com/samirrijal/parkpass/internal/core/domain"
	"github.com/samirrijal/parkpass/internal/core/ports"
)

// HistoryService records and lists past orchestrations.
type HistoryService struct {
	searches ports.SearchRepository
}

// NewHistoryService creates a new HistoryService.
func NewHistoryService(searches ports.SearchRepository) *HistoryService {
	return &HistoryService{searches: searches}
}

// Record persists the outcome carried by a route event.
func (s *HistoryService) Record(ctx context.Context, event *domain.RouteEvent) error {
	if event == nil {
		return fmt.Errorf("nil route event")
	}
	rec := event.Record()
	if err := s.searches.Insert(ctx, &rec); err != nil {
		return fmt.Errorf("insert search record: %w", err)
	}
	return nil
}

// List returns a page of records, newest first, and the total count.
func (s *HistoryService) List(ctx context.Context, offset, limit int) ([]domain.SearchRecord, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.searches.List(ctx, offset, limit)
}

// GetByID returns one record.
func (s *HistoryService) GetByID(ctx context.Context, id string) (*domain.SearchRecord, error) {
	if id == "" {
		return nil, fmt.Errorf("record ID is required")
	}
	return s.searches.GetByID(ctx, id)
}
