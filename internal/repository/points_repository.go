package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"tasktracker/internal/model"
)

// PointsRepository manages per-user completion points.
type PointsRepository struct {
	db *gorm.DB
}

func NewPointsRepository(db *gorm.DB) *PointsRepository {
	return &PointsRepository{db: db}
}

// Increment adds one point to the owner's total, creating the row on
// first use. Read-then-write without a transaction; good enough at
// personal-bot scale.
func (r *PointsRepository) Increment(ctx context.Context, ownerID int64) (int, error) {
	var row model.UserPoints
	db := r.db.WithContext(ctx)
	err := db.Where("owner_id = ?", ownerID).First(&row).Error
	switch {
	case err == nil:
		row.Points++
		if err := db.Save(&row).Error; err != nil {
			return 0, fmt.Errorf("update points: %w", err)
		}
		return row.Points, nil
	case err == gorm.ErrRecordNotFound:
		row = model.UserPoints{OwnerID: ownerID, Points: 1}
		if err := db.Create(&row).Error; err != nil {
			return 0, fmt.Errorf("create points: %w", err)
		}
		return row.Points, nil
	default:
		return 0, fmt.Errorf("find points: %w", err)
	}
}

// Get returns the stored total, or 0 when the owner has no row yet.
func (r *PointsRepository) Get(ctx context.Context, ownerID int64) (int, error) {
	var row model.UserPoints
	err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&row).Error
	switch {
	case err == nil:
		return row.Points, nil
	case err == gorm.ErrRecordNotFound:
		return 0, nil
	default:
		return 0, fmt.Errorf("find points: %w", err)
	}
}
