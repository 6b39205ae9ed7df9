package repository

import (
	"context"
	"errors"
	"log/slog"

	"warden/internal/cache"
	"warden/internal/middleware"
	"warden/internal/models"
	"warden/internal/observability"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	ListByStatus(ctx context.Context, status models.UserStatus) ([]models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	UpdateFields(ctx context.Context, id string, fields map[string]any) (*models.User, error)
}

type userRepository struct {
	db        *gorm.DB
	cache     *cache.Cache
	publisher ChangePublisher
}

// NewUserRepository returns a new UserRepository implementation. cache and
// publisher may be nil.
func NewUserRepository(db *gorm.DB, c *cache.Cache, publisher ChangePublisher) UserRepository {
	return &userRepository{db: db, cache: c, publisher: publisher}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.cache.Aside(ctx, cache.UserKey(id), &user, cache.UserTTL, func() error {
		defer observability.TrackQuery("get", "users")()
		if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
			return readError("User", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail returns nil, nil when no user has that email.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context) ([]models.User, error) {
	defer observability.TrackQuery("list", "users")()
	var users []models.User
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) ListByStatus(ctx context.Context, status models.UserStatus) ([]models.User, error) {
	defer observability.TrackQuery("list_by_status", "users")()
	var users []models.User
	if err := r.db.WithContext(ctx).Where("status = ?", status).Order("created_at ASC").Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewValidationError("User already exists")
		}
		return models.NewStoreWriteError("create user", err)
	}
	return nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	defer observability.TrackQuery("update", "users")()
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		return models.NewStoreWriteError("update user", err)
	}
	r.afterWrite(ctx, *user)
	return nil
}

// UpdateFields writes only the named columns and returns the row as stored.
func (r *userRepository) UpdateFields(ctx context.Context, id string, fields map[string]any) (*models.User, error) {
	defer observability.TrackQuery("update_fields", "users")()

	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return nil, models.NewStoreWriteError("update user", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, models.NewNotFoundError("User", id)
	}

	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, readError("User", id, err)
	}
	r.afterWrite(ctx, user)
	return &user, nil
}

func (r *userRepository) afterWrite(ctx context.Context, user models.User) {
	r.cache.InvalidateUser(ctx, user.ID)
	if r.publisher == nil {
		return
	}
	if err := r.publisher.PublishUserChange(ctx, user); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish user change",
			slog.String("user_id", user.ID), slog.String("error", err.Error()))
	}
}
