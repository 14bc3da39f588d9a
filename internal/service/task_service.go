package service

import (
	"context"
	"fmt"
	"strings"

	"tasktracker/internal/model"
	"tasktracker/internal/repository"
)

// TaskInput represents data collected by the creation dialog.
type TaskInput struct {
	Name     string
	Theme    string
	Priority string
	Deadline string
}

// Statistics aggregates completion counts and the points total for one owner.
type Statistics struct {
	Completed int64
	Pending   int64
	Total     int64
	Points    int
}

// CompletionRate returns the done share in percent, 0 for an empty list.
func (s Statistics) CompletionRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Completed) / float64(s.Total) * 100
}

// ErrInvalidPriority is returned when the supplied priority is outside the
// low/medium/high enum.
var ErrInvalidPriority = fmt.Errorf("priority must be one of: low, medium, high")

// priorityAliases maps accepted spellings to canonical values. Russian
// forms are kept for continuity with the bot's prompts.
var priorityAliases = map[string]string{
	"low":     model.PriorityLow,
	"medium":  model.PriorityMedium,
	"high":    model.PriorityHigh,
	"низкий":  model.PriorityLow,
	"средний": model.PriorityMedium,
	"высокий": model.PriorityHigh,
}

// NormalizePriority lower-cases the input and resolves it to a canonical
// priority value. An empty input falls back to medium.
func NormalizePriority(raw string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return model.PriorityMedium, nil
	}
	canonical, ok := priorityAliases[value]
	if !ok {
		return "", ErrInvalidPriority
	}
	return canonical, nil
}

// TaskService wraps task-related business logic.
type TaskService struct {
	taskRepo   *repository.TaskRepository
	pointsRepo *repository.PointsRepository
}

func NewTaskService(taskRepo *repository.TaskRepository, pointsRepo *repository.PointsRepository) *TaskService {
	return &TaskService{taskRepo: taskRepo, pointsRepo: pointsRepo}
}

func (s *TaskService) CreateTask(ctx context.Context, ownerID int64, input TaskInput) (*model.Task, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("name is required")
	}

	priority, err := NormalizePriority(input.Priority)
	if err != nil {
		return nil, err
	}

	task := model.Task{
		OwnerID:  ownerID,
		Name:     strings.TrimSpace(input.Name),
		Theme:    strings.TrimSpace(input.Theme),
		Priority: priority,
		Deadline: strings.TrimSpace(input.Deadline),
		Status:   model.StatusPending,
	}

	if err := s.taskRepo.Create(ctx, &task); err != nil {
		return nil, err
	}

	return &task, nil
}

func (s *TaskService) ListTasks(ctx context.Context, ownerID int64) ([]model.Task, error) {
	return s.taskRepo.ListByOwner(ctx, ownerID)
}

func (s *TaskService) ListHighPriority(ctx context.Context, ownerID int64) ([]model.Task, error) {
	return s.taskRepo.ListHighPriority(ctx, ownerID)
}

func (s *TaskService) GetTask(ctx context.Context, ownerID int64, taskID uint) (*model.Task, error) {
	return s.taskRepo.FindByID(ctx, ownerID, taskID)
}

// CompleteTask marks every task with the given name done and credits the
// owner one point. The point is granted even when no row matched — the
// behavior the bot has always had; callers that care check the returned
// match count.
func (s *TaskService) CompleteTask(ctx context.Context, ownerID int64, name string) (matched int64, err error) {
	matched, err = s.taskRepo.MarkDoneByName(ctx, ownerID, name)
	if err != nil {
		return 0, err
	}
	if _, err := s.pointsRepo.Increment(ctx, ownerID); err != nil {
		return matched, err
	}
	return matched, nil
}

// CompleteTaskByID resolves the task first, then completes it by name,
// so inline buttons share the name-keyed semantics of /mark_done.
func (s *TaskService) CompleteTaskByID(ctx context.Context, ownerID int64, taskID uint) (*model.Task, int64, error) {
	task, err := s.taskRepo.FindByID(ctx, ownerID, taskID)
	if err != nil {
		return nil, 0, err
	}
	matched, err := s.CompleteTask(ctx, ownerID, task.Name)
	return task, matched, err
}

// DeleteTask removes every task with the given name. Zero matches is a
// silent no-op, not an error.
func (s *TaskService) DeleteTask(ctx context.Context, ownerID int64, name string) (int64, error) {
	return s.taskRepo.DeleteByName(ctx, ownerID, name)
}

// DeleteTaskByID resolves the task first, then deletes by name.
func (s *TaskService) DeleteTaskByID(ctx context.Context, ownerID int64, taskID uint) (*model.Task, int64, error) {
	task, err := s.taskRepo.FindByID(ctx, ownerID, taskID)
	if err != nil {
		return nil, 0, err
	}
	deleted, err := s.taskRepo.DeleteByName(ctx, ownerID, task.Name)
	return task, deleted, err
}

// Statistics collects counts and the points total for the owner.
func (s *TaskService) Statistics(ctx context.Context, ownerID int64) (Statistics, error) {
	completed, pending, total, err := s.taskRepo.Statistics(ctx, ownerID)
	if err != nil {
		return Statistics{}, err
	}
	points, err := s.pointsRepo.Get(ctx, ownerID)
	if err != nil {
		return Statistics{}, err
	}
	return Statistics{Completed: completed, Pending: pending, Total: total, Points: points}, nil
}
