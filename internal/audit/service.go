package audit

import (
	"context"
	"fmt"
	"time"
)

// Filters narrow the audit listing.
type Filters struct {
	Actor    int64
	Action   string
	From     time.Time
	To       time.Time
	Page     int
	PageSize int
}

// PagingInfo describes the result window.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"pageSize"`
	HasNext  bool `json:"hasNext"`
	NextPage int  `json:"nextPage,omitempty"`
	PrevPage int  `json:"prevPage,omitempty"`
}

// Result bundles a page of records with paging information.
type Result struct {
	Records []Record   `json:"records"`
	Paging  PagingInfo `json:"paging"`
}

// Service coordinates audit log reads.
type Service struct {
	store Store
}

// NewService constructs an audit read service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// List fetches a page of audit records, newest first.
func (s *Service) List(ctx context.Context, filters Filters) (Result, error) {
	if s.store == nil {
		return Result{}, fmt.Errorf("audit: store not configured")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	records, err := s.store.List(ctx, Query{
		Actor:  filters.Actor,
		Action: filters.Action,
		From:   filters.From,
		To:     filters.To,
		Offset: (page - 1) * pageSize,
		Limit:  pageSize + 1,
	})
	if err != nil {
		return Result{}, err
	}
	hasNext := len(records) > pageSize
	if hasNext {
		records = records[:pageSize]
	}
	if records == nil {
		records = []Record{}
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Records: records, Paging: paging}, nil
}
