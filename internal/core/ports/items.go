package ports

import (
	"context"

	"github.com/atvirokodosprendimai/stockapi/internal/core/domain"
)

// ItemRepository persists items. Every mutating method runs the business
// write and its change-log rows in one transaction.
type ItemRepository interface {
	Create(ctx context.Context, item domain.Item, meta domain.MutationMeta) (domain.Item, error)
	Get(ctx context.Context, id int64) (domain.Item, error)
	List(ctx context.Context, req domain.PageRequest) ([]domain.Item, int64, error)
	Update(ctx context.Context, id int64, patch domain.ItemUpdate, meta domain.MutationMeta) (domain.Item, error)
	Delete(ctx context.Context, id int64, meta domain.MutationMeta) (bool, error)
}
