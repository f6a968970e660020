package model

import (
	"math"
	"strings"
)

// Contact list sort keys.
const (
	SortLastNameAsc  = "lname_asc"
	SortLastNameDesc = "lname_desc"
	SortCompanyAsc   = "company_asc"
	SortCompanyDesc  = "company_desc"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	// MaxPage keeps (page-1)*pageSize within int.
	MaxPage = math.MaxInt / MaxPageSize
)

// ContactQuery carries search, filter, sort and pagination parameters for
// listing contacts.
type ContactQuery struct {
	// OwnerID restricts results to one owner. Empty means unrestricted.
	// Only the authorization layer sets it; it is never read from requests.
	OwnerID string

	// Search is matched case-insensitively as a substring of first name,
	// last name or email.
	Search string
	// Company is an exact-match filter.
	Company string
	Sort    string

	Page     int
	PageSize int
}

// Normalize trims inputs, replaces unknown sort keys with the default and
// clamps page/page size into range.
func (q ContactQuery) Normalize() ContactQuery {
	q.Search = strings.TrimSpace(q.Search)
	q.Company = strings.TrimSpace(q.Company)
	q.Sort = NormalizeSort(q.Sort)
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Page > MaxPage {
		q.Page = MaxPage
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	return q
}

// Offset returns the number of rows to skip for the current page.
func (q ContactQuery) Offset() int {
	if q.Page < 1 {
		return 0
	}
	return (q.Page - 1) * q.PageSize
}

// NormalizeSort maps a requested sort key to a supported one.
func NormalizeSort(s string) string {
	switch s {
	case SortLastNameDesc, SortCompanyAsc, SortCompanyDesc:
		return s
	default:
		return SortLastNameAsc
	}
}
