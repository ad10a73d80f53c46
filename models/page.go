package models

import "marketplace-server/types"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Role identifies which dashboard a user acts from
type Role string

const (
	RoleCustomer Role = "customer"
	RoleProvider Role = "provider"
	RoleAdmin    Role = "admin"
)

// ParseRole validates a role string
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleCustomer, RoleProvider, RoleAdmin:
		return r, nil
	}
	return "", types.Validationf("ParseRole", "unknown role %q", s)
}

// Page is one slice of a paginated listing
type Page[T any] struct {
	Items    []T   `json:"items"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
}

// Pages returns the number of pages the listing spans
func (p *Page[T]) Pages() int64 {
	if p.PageSize <= 0 {
		return 0
	}
	return (p.Total + int64(p.PageSize) - 1) / int64(p.PageSize)
}

// NormalizePage clamps page and page size the same way for every store
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}
