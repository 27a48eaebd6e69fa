package repository

import (
	"errors"
	"strings"

	"github.com/straye-as/estate-sales-api/internal/auth"
	"gorm.io/gorm"
)

// MaxPageSize is the maximum allowed page size for paginated queries
const MaxPageSize = 200

// ErrStatusChanged is returned by compare-and-swap status updates when the row exists but is no
// longer in the expected status
var ErrStatusChanged = errors.New("status changed concurrently")

// SortOrder represents the sort direction
type SortOrder string

const (
	SortOrderAsc  SortOrder = "asc"
	SortOrderDesc SortOrder = "desc"
)

// SortConfig holds sorting configuration for list queries
type SortConfig struct {
	Field string // API field name
	Order SortOrder
}

// DefaultSortConfig sorts newest first
func DefaultSortConfig() SortConfig {
	return SortConfig{Field: "createdAt", Order: SortOrderDesc}
}

// ParseSortOrder parses a string into SortOrder, defaulting to desc
func ParseSortOrder(s string) SortOrder {
	if strings.ToLower(s) == "asc" {
		return SortOrderAsc
	}
	return SortOrderDesc
}

// BuildOrderClause maps an API field to a whitelisted column, falling back to defaultColumn
func BuildOrderClause(config SortConfig, fieldMap map[string]string, defaultColumn string) string {
	column, ok := fieldMap[config.Field]
	if !ok {
		column = defaultColumn
	}
	order := "DESC"
	if config.Order == SortOrderAsc {
		order = "ASC"
	}
	return column + " " + order
}

// ApplyProjectScope limits a query to the projects the actor is assigned to. Admins and a nil
// actor are not filtered.
func ApplyProjectScope(query *gorm.DB, actor *auth.Actor, column string) *gorm.DB {
	if actor == nil {
		return query
	}
	projectIDs, restricted := actor.ProjectFilter()
	if !restricted {
		return query
	}
	if len(projectIDs) == 0 {
		return query.Where("1 = 0")
	}
	return query.Where(column+" IN ?", projectIDs)
}

// Paginate normalises page and pageSize and applies offset and limit
func Paginate(query *gorm.DB, page, pageSize int) *gorm.DB {
	page, pageSize = NormalizePage(page, pageSize)
	return query.Offset((page - 1) * pageSize).Limit(pageSize)
}

// NormalizePage clamps page to at least 1 and pageSize to [1, MaxPageSize], defaulting to 20
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// conn returns tx when the caller is inside a transaction
func conn(db, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return db
}
