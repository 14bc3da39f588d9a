package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"tasktracker/internal/model"
)

// TaskRepository handles CRUD for tasks. Mutations are keyed by
// (owner, name) and touch every matching row; task names are not
// required to be unique.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// DeleteByName removes every task with the given name for the owner.
// Returns the number of rows removed; zero is not an error.
func (r *TaskRepository) DeleteByName(ctx context.Context, ownerID int64, name string) (int64, error) {
	res := r.db.WithContext(ctx).Where("owner_id = ? AND name = ?", ownerID, name).
		Delete(&model.Task{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete task: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// MarkDoneByName sets status=done on every task with the given name for
// the owner and reports how many rows matched.
func (r *TaskRepository) MarkDoneByName(ctx context.Context, ownerID int64, name string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("owner_id = ? AND name = ?", ownerID, name).
		Update("status", model.StatusDone)
	if res.Error != nil {
		return 0, fmt.Errorf("mark task done: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *TaskRepository) ListByOwner(ctx context.Context, ownerID int64) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *TaskRepository) ListHighPriority(ctx context.Context, ownerID int64) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Where("owner_id = ? AND priority = ?", ownerID, model.PriorityHigh).
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, ownerID int64, taskID uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Where("owner_id = ? AND id = ?", ownerID, taskID).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// Statistics returns completed, pending and total task counts for the
// owner. Three separate counting queries; not point-in-time consistent
// with each other under concurrent mutation.
func (r *TaskRepository) Statistics(ctx context.Context, ownerID int64) (completed, pending, total int64, err error) {
	db := r.db.WithContext(ctx).Model(&model.Task{})
	if err = db.Where("owner_id = ? AND status = ?", ownerID, model.StatusDone).Count(&completed).Error; err != nil {
		return 0, 0, 0, fmt.Errorf("count completed: %w", err)
	}
	db = r.db.WithContext(ctx).Model(&model.Task{})
	if err = db.Where("owner_id = ? AND status = ?", ownerID, model.StatusPending).Count(&pending).Error; err != nil {
		return 0, 0, 0, fmt.Errorf("count pending: %w", err)
	}
	db = r.db.WithContext(ctx).Model(&model.Task{})
	if err = db.Where("owner_id = ?", ownerID).Count(&total).Error; err != nil {
		return 0, 0, 0, fmt.Errorf("count total: %w", err)
	}
	return completed, pending, total, nil
}

// ListDuePending returns pending tasks across all owners whose deadline
// string sorts at or before nowStr. The layout is zero-padded and
// fixed-width, so string order matches chronological order.
func (r *TaskRepository) ListDuePending(ctx context.Context, nowStr string) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Where("status = ? AND deadline <> '' AND deadline <= ?", model.StatusPending, nowStr).
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}
