package audit

import (
	"context"
	"fmt"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

// Repository provides read access to the audit trail.
type Repository interface {
	HistoryWindow(ctx context.Context, targetPrincipalID int64, filters HistoryFilters, limit, offset int) ([]Entry, error)
	HistoryAll(ctx context.Context, targetPrincipalID int64, filters HistoryFilters) ([]Entry, error)
}

// Service coordinates audit trail reads for compliance review.
type Service struct {
	repo Repository
}

// NewService constructs an audit service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// History returns a reverse-chronological page of entries for the target
// principal.
func (s *Service) History(ctx context.Context, targetPrincipalID int64, filters HistoryFilters) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * pageSize

	// Fetch one extra row to detect whether a next page exists.
	entries, err := s.repo.HistoryWindow(ctx, targetPrincipalID, filters, pageSize+1, offset)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(entries) > pageSize
	if hasNext {
		entries = entries[:pageSize]
	}

	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Entries: entries, Paging: paging}, nil
}

// Export returns the full filtered history without paging.
func (s *Service) Export(ctx context.Context, targetPrincipalID int64, filters HistoryFilters) ([]Entry, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("audit: repository not configured")
	}
	return s.repo.HistoryAll(ctx, targetPrincipalID, filters)
}
