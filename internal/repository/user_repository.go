package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dostyq-support/internal/model"
)

// UserRepository handles bot users.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// UpsertFromTelegram inserts the user or overwrites the profile fields and
// last activity of an existing row. CreatedAt is kept from the first insert;
// the returned user is the stored row.
func (r *UserRepository) UpsertFromTelegram(ctx context.Context, telegramID int64, firstName, lastName, username string, seenAt time.Time) (*model.User, error) {
	seenAt = seenAt.UTC()
	user := model.User{
		ID:           telegramID,
		Username:     username,
		FirstName:    firstName,
		LastName:     lastName,
		CreatedAt:    seenAt,
		LastActivity: seenAt,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"username",
			"first_name",
			"last_name",
			"last_activity",
		}),
	}).Create(&user).Error
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	stored, err := r.FindByID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("reload user: %w", err)
	}
	return stored, nil
}

func (r *UserRepository) FindByID(ctx context.Context, telegramID int64) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("id = ?", telegramID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// CountActiveBetween counts users whose last activity falls in [from, to).
func (r *UserRepository) CountActiveBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("last_activity >= ? AND last_activity < ?", from.UTC(), to.UTC()).
		Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count active users: %w", err)
	}
	return n, nil
}
