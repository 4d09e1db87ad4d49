package users

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository persists shopper accounts. Emails are stored normalized, so
// every lookup normalizes its input the same way.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) byEmail(ctx context.Context, email string) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", NormalizeEmail(email))
}

// Create inserts the account. A taken email surfaces as a unique violation.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// EmailExists reports whether an account already uses email.
func (r *Repository) EmailExists(ctx context.Context, email string) (bool, error) {
	var n int64
	if err := r.byEmail(ctx, email).Limit(1).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// FindByEmail returns gorm.ErrRecordNotFound for an unknown address.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.byEmail(ctx, email).Take(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID backs checkout and the order views, which embed the buyer's
// contact fields.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Take(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

// NormalizeEmail lower-cases and trims an address before storage or lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
