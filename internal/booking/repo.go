package booking

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Repo 预约仓储
type Repo struct {
	db *gorm.DB
}

// NewRepo 创建预约仓储
func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// MarkCompleted 把预约置为 completed
func (r *Repo) MarkCompleted(ctx context.Context, bookingID string) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("booking repo is not initialized")
	}
	if bookingID == "" {
		return fmt.Errorf("booking id is empty")
	}
	err := r.db.WithContext(ctx).
		Model(&Booking{}).
		Where("id = ?", bookingID).
		Update("status", StatusCompleted).Error
	if err != nil {
		return fmt.Errorf("failed to complete booking id=%s: %w", bookingID, err)
	}
	return nil
}
