package option

import (
	"strings"
	"time"

	"github.com/smallbiznis/statement/pkg/db/pagination"
	"gorm.io/gorm"
)

const defaultPageSize = 10

// QueryOption mutates a gorm statement before it is executed.
type QueryOption interface {
	Apply(db *gorm.DB) *gorm.DB
}

type paginationOption struct {
	page pagination.Pagination
}

// ApplyPagination applies keyset pagination on (created_at, id) descending.
// One extra row is fetched so callers can tell whether more pages exist.
func ApplyPagination(page pagination.Pagination) QueryOption {
	return paginationOption{page: page}
}

func (o paginationOption) Apply(db *gorm.DB) *gorm.DB {
	size := o.page.PageSize
	if size <= 0 {
		size = defaultPageSize
	}

	token := strings.TrimSpace(o.page.PageToken)
	if token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err == nil && cursor.CreatedAt != "" {
			if createdAt, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt); err == nil {
				db = db.Where("(created_at < ?) OR (created_at = ? AND id < ?)", createdAt, createdAt, cursor.ID)
			}
		}
	}

	return db.Limit(size + 1)
}
