package audit

import (
	"context"
	"fmt"
)

// TimelinePort abstracts the repository for the timeline service.
type TimelinePort interface {
	Timeline(ctx context.Context, filters TimelineFilters, offset, limit int) ([]Entry, error)
}

// PagingInfo describes the window returned by Timeline.
type PagingInfo struct {
	Page     int
	PageSize int
	PrevPage int
	NextPage int
	HasNext  bool
}

// Result wraps timeline rows with paging information.
type Result struct {
	Entries []Entry
	Paging  PagingInfo
}

// Service serves read-only audit trail queries for reporting.
type Service struct {
	repo TimelinePort
}

// NewService builds the audit query service.
func NewService(repo TimelinePort) *Service {
	return &Service{repo: repo}
}

// Timeline fetches one page of the audit trail. Page sizes clamp to
// [1,50]; one extra row is fetched to detect a following page.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 50 {
		pageSize = 50
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * pageSize
	entries, err := s.repo.Timeline(ctx, filters, offset, pageSize+1)
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
