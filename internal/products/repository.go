package products

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Repository reads and writes catalog rows.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository bound to db.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByID returns gorm.ErrRecordNotFound when the product is absent.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDs returns the products that still exist, keyed by id.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := make(map[uuid.UUID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

// Create inserts a product. BeforeSave derives in_stock.
func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// Save writes the whole row, recomputing in_stock.
func (r *Repository) Save(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

// DeleteAll removes every catalog row.
func (r *Repository) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Product{}).Error
}

// Count returns the number of catalog rows.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).Count(&total).Error
	return total, err
}

// List applies filters, ordering and the page window.
func (r *Repository) List(ctx context.Context, filters ListFilters, order []sortField, page pagination.Params) ([]models.Product, int64, error) {
	var total int64
	if err := r.filtered(r.db.WithContext(ctx).Model(&models.Product{}), filters).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.filtered(r.db.WithContext(ctx).Model(&models.Product{}), filters)
	for _, field := range order {
		query = query.Order(field.clause())
	}
	query = query.Order("id ASC")

	var rows []models.Product
	if err := query.Offset(page.Offset()).Limit(page.Limit).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *Repository) filtered(query *gorm.DB, filters ListFilters) *gorm.DB {
	if search := strings.ToLower(strings.TrimSpace(filters.Search)); search != "" {
		pattern := "%" + escapeLike(search) + "%"
		query = query.Where("(LOWER(name) LIKE ? ESCAPE '\\' OR LOWER(description) LIKE ? ESCAPE '\\')", pattern, pattern)
	}
	if filters.Category != nil {
		query = query.Where("category = ?", *filters.Category)
	}
	if filters.Size != nil {
		if r.db.Dialector.Name() == "postgres" {
			query = query.Where("? = ANY(sizes)", string(*filters.Size))
		} else {
			// non-postgres test databases keep sizes as the array literal text
			query = query.Where("sizes LIKE ?", `%"`+string(*filters.Size)+`"%`)
		}
	}
	if filters.MinPrice != nil {
		query = query.Where("price_cents >= ?", types.DecimalToCents(*filters.MinPrice))
	}
	if filters.MaxPrice != nil {
		query = query.Where("price_cents <= ?", types.DecimalToCents(*filters.MaxPrice))
	}
	if filters.InStock != nil {
		query = query.Where("in_stock = ?", *filters.InStock)
	}
	return query
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
