package pagination

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

const (
	DefaultLimit = 20
	MaxLimit     = 200

	SortAsc  = "asc"
	SortDesc = "desc"
)

// Params carries list query parameters as they arrive on the wire.
type Params struct {
	Limit     int    `form:"limit" json:"limit" binding:"omitempty,gte=1,lte=200"`
	Offset    int    `form:"offset" json:"offset" binding:"omitempty,gte=0"`
	SortBy    string `form:"sort_by" json:"sort_by"`
	SortOrder string `form:"sort_order" json:"sort_order" binding:"omitempty,oneof=asc desc ASC DESC"`
}

type PageInfo struct {
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
	Total  int64 `json:"total"`
}

// Sortable maps public sort keys to column names.
type Sortable map[string]string

// Normalize fills defaults and rejects unknown sort keys.
func (p Params) Normalize(sortable Sortable, defaultSort string) (Params, error) {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}

	p.SortBy = strings.ToLower(strings.TrimSpace(p.SortBy))
	if p.SortBy == "" {
		p.SortBy = defaultSort
	}
	if _, ok := sortable[p.SortBy]; !ok {
		return p, fmt.Errorf("unsupported sort_by %q", p.SortBy)
	}

	p.SortOrder = strings.ToLower(strings.TrimSpace(p.SortOrder))
	switch p.SortOrder {
	case "":
		p.SortOrder = SortDesc
	case SortAsc, SortDesc:
	default:
		return p, fmt.Errorf("unsupported sort_order %q", p.SortOrder)
	}
	return p, nil
}

// Apply adds ORDER BY, LIMIT and OFFSET. Params must be normalized first.
func (p Params) Apply(db *gorm.DB, sortable Sortable) *gorm.DB {
	column := sortable[p.SortBy]
	return db.Order(column + " " + strings.ToUpper(p.SortOrder) + ", id " + strings.ToUpper(p.SortOrder)).
		Limit(p.Limit).
		Offset(p.Offset)
}

func (p Params) PageInfo(total int64) PageInfo {
	return PageInfo{Limit: p.Limit, Offset: p.Offset, Total: total}
}
