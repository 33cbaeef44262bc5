package models

import (
	"math"
	"strings"
)

// SortOrder values accepted by listing endpoints.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// ListParams carries the paging and sorting shared by every listing.
type ListParams struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}

// maxOffset keeps (page-1)*limit well inside Postgres' OFFSET range.
const maxOffset = math.MaxInt32

// Normalize fills defaults: page 1, the resource's default limit, newest first.
// Limits above max fall back to max. Pages past maxOffset are clamped, which
// still yields an empty page.
func (p ListParams) Normalize(defaultLimit, max int) ListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if max > 0 && p.Limit > max {
		p.Limit = max
	}
	if p.Limit > 0 {
		if lastPage := maxOffset/p.Limit + 1; p.Page > lastPage {
			p.Page = lastPage
		}
	}
	if strings.EqualFold(p.SortOrder, SortAsc) {
		p.SortOrder = SortAsc
	} else {
		p.SortOrder = SortDesc
	}
	return p
}

// Offset returns the number of rows to skip for the current page.
func (p ListParams) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Total       int `json:"total"`
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
	Limit       int `json:"limit"`
}

// NewPagination computes totalPages = ceil(total/limit).
func NewPagination(total, page, limit int) *Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return &Pagination{Total: total, CurrentPage: page, TotalPages: pages, Limit: limit}
}
