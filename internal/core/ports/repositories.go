package ports

import (
	"context"

	"github.com/samirrijal/parkpass/internal/core/domain"
)

// SearchRepository persists orchestration outcomes.
type SearchRepository interface {
	Insert(ctx context.Context, rec *domain.SearchRecord) error
	GetByID(ctx context.Context, id string) (*domain.SearchRecord, error)
	// List returns a page of records, newest first, and the total count.
	List(ctx context.Context, offset, limit int) ([]domain.SearchRecord, int, error)
}
