package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dostyq-support/internal/model"
)

// StatRepository stores per-day activity counters.
type StatRepository struct {
	db *gorm.DB
}

func NewStatRepository(db *gorm.DB) *StatRepository {
	return &StatRepository{db: db}
}

// IncrementMessages bumps the message counter of the given day, creating the row if needed.
func (r *StatRepository) IncrementMessages(ctx context.Context, date string) error {
	row := model.DailyStat{Date: date, MessagesCount: 1}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"messages_count": gorm.Expr("messages_count + ?", 1),
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("increment messages: %w", err)
	}
	return nil
}

// SaveCounts writes the user and ticket counters of a day, keeping its message counter.
func (r *StatRepository) SaveCounts(ctx context.Context, stat model.DailyStat) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"users_count", "tickets_count"}),
	}).Create(&stat).Error
	if err != nil {
		return fmt.Errorf("save daily stat: %w", err)
	}
	return nil
}

func (r *StatRepository) Get(ctx context.Context, date string) (*model.DailyStat, error) {
	var stat model.DailyStat
	if err := r.db.WithContext(ctx).Where("date = ?", date).First(&stat).Error; err != nil {
		return nil, err
	}
	return &stat, nil
}
