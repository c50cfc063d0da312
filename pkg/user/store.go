// Package user is the marketplace user service: MySQL through gorm with a
// Redis read-through cache in front of single-user lookups.
package user

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/example/shipmesh/pkg/apperr"
	"github.com/example/shipmesh/pkg/database"
	"github.com/example/shipmesh/pkg/models"
	"github.com/example/shipmesh/pkg/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	serviceName = "user-service"
	bcryptCost  = 10
)

type RegisterInput struct {
	Name     string
	Email    string
	Phone    *string
	Address  *string
	Password string
}

// UpdateInput mirrors UpdateUserInput. Name, Email and Password apply only
// when non-empty; Phone and Address apply whenever supplied, null included.
type UpdateInput struct {
	Name       string
	Email      string
	Password   string
	Phone      *string
	Address    *string
	SetPhone   bool
	SetAddress bool
}

type Store struct {
	db     *gorm.DB
	cache  repository.Cache
	audit  repository.AuditLog
	logger *zap.Logger
}

func NewStore(db *gorm.DB, cache repository.Cache, audit repository.AuditLog, logger *zap.Logger) *Store {
	return &Store{db: db, cache: cache, audit: audit, logger: logger.Named("user")}
}

func (s *Store) List(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	if err := s.db.WithContext(ctx).Order("user_id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// Get reads through the cache. A missing user is apperr.ErrNotFound.
func (s *Store) Get(ctx context.Context, id int64) (*models.User, error) {
	var cached models.User
	err := s.cache.GetJSON(ctx, repository.UserKey(id), &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, repository.ErrCacheMiss) {
		s.logger.Warn("User cache read failed", zap.Int64("user_id", id), zap.Error(err))
	}

	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "user_id = ?", id).Error; err != nil {
		return nil, database.NotFound(err, "user", id)
	}
	s.remember(ctx, &u)
	return &u, nil
}

func (s *Store) remember(ctx context.Context, u *models.User) {
	if err := s.cache.SetJSON(ctx, repository.UserKey(u.UserID), u, repository.UserCacheTTL); err != nil {
		s.logger.Warn("User cache write failed", zap.Int64("user_id", u.UserID), zap.Error(err))
	}
}

func (s *Store) forget(ctx context.Context, id int64) {
	if err := s.cache.Del(ctx, repository.UserKey(id)); err != nil {
		s.logger.Warn("User cache invalidation failed", zap.Int64("user_id", id), zap.Error(err))
	}
}

func emptyAsNull(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

func (s *Store) Create(ctx context.Context, in RegisterInput) (*models.User, error) {
	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", in.Email).Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if existing > 0 {
		return nil, fmt.Errorf("%w: email already registered", apperr.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &models.User{
		Name:         in.Name,
		Email:        in.Email,
		Phone:        emptyAsNull(in.Phone),
		Address:      emptyAsNull(in.Address),
		PasswordHash: string(hash),
	}
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		s.logger.Error("Failed to create user", zap.Error(err))
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.audit.Record(ctx, &repository.AuditEntry{
		Service:  serviceName,
		Action:   "create_user",
		EntityID: strconv.FormatInt(u.UserID, 10),
		Data:     bson.M{"name": u.Name, "email": u.Email},
	})
	return u, nil
}

func (s *Store) Update(ctx context.Context, id int64, in UpdateInput) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "user_id = ?", id).Error; err != nil {
		return nil, database.NotFound(err, "user", id)
	}

	updates := map[string]any{}
	if in.Name != "" {
		updates["name"] = in.Name
	}
	if in.Email != "" {
		updates["email"] = in.Email
	}
	if in.SetPhone {
		updates["phone"] = in.Phone
	}
	if in.SetAddress {
		updates["address"] = in.Address
	}
	if in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		updates["password"] = string(hash)
	}
	if len(updates) == 0 {
		return nil, fmt.Errorf("%w: no fields to update", apperr.ErrInvalidInput)
	}

	if err := s.db.WithContext(ctx).Model(&u).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update user %d: %w", id, err)
	}
	s.forget(ctx, id)

	if err := s.db.WithContext(ctx).First(&u, "user_id = ?", id).Error; err != nil {
		return nil, database.NotFound(err, "user", id)
	}
	return &u, nil
}

func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	res := s.db.WithContext(ctx).Delete(&models.User{}, "user_id = ?", id)
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete user %d: %w", id, res.Error)
	}
	s.forget(ctx, id)
	if res.RowsAffected > 0 {
		s.audit.Record(ctx, &repository.AuditEntry{
			Service:  serviceName,
			Action:   "delete_user",
			EntityID: strconv.FormatInt(id, 10),
		})
	}
	return res.RowsAffected > 0, nil
}
