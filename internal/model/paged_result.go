package model

import "encoding/json"

// PagedResult is one page of a larger result set. TotalItems counts the
// whole filtered set, not just Items.
type PagedResult[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalItems int `json:"total_items"`
}

// TotalPages returns the number of pages needed for TotalItems.
func (p *PagedResult[T]) TotalPages() int {
	if p.PageSize <= 0 || p.TotalItems <= 0 {
		return 0
	}
	return (p.TotalItems + p.PageSize - 1) / p.PageSize
}

func (p *PagedResult[T]) HasPrevious() bool {
	return p.Page > 1
}

func (p *PagedResult[T]) HasNext() bool {
	return p.Page < p.TotalPages()
}

// MarshalJSON adds the derived navigation fields so clients need not
// recompute them.
func (p PagedResult[T]) MarshalJSON() ([]byte, error) {
	items := p.Items
	if items == nil {
		items = []T{}
	}
	return json.Marshal(struct {
		Items       []T  `json:"items"`
		Page        int  `json:"page"`
		PageSize    int  `json:"page_size"`
		TotalItems  int  `json:"total_items"`
		TotalPages  int  `json:"total_pages"`
		HasPrevious bool `json:"has_previous"`
		HasNext     bool `json:"has_next"`
	}{
		Items:       items,
		Page:        p.Page,
		PageSize:    p.PageSize,
		TotalItems:  p.TotalItems,
		TotalPages:  p.TotalPages(),
		HasPrevious: p.HasPrevious(),
		HasNext:     p.HasNext(),
	})
}
