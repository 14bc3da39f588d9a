package service

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tasktracker/internal/model"
	"tasktracker/internal/repository"
)

// Notifier delivers one due-task reminder to its owner. Implemented by
// the Telegram bot; faked in tests.
type Notifier interface {
	NotifyDue(ctx context.Context, ownerID int64, task model.Task) error
}

// ReminderService scans for due pending tasks and pushes a notification
// per match. The clock is injected so tests can pin time.
type ReminderService struct {
	taskRepo *repository.TaskRepository
	notifier Notifier
	now      func() time.Time
	log      zerolog.Logger
}

func NewReminderService(taskRepo *repository.TaskRepository, notifier Notifier, now func() time.Time, log zerolog.Logger) *ReminderService {
	if now == nil {
		now = time.Now
	}
	return &ReminderService{taskRepo: taskRepo, notifier: notifier, now: now, log: log}
}

// Scan runs one reminder cycle: every pending task whose deadline string
// sorts at or before the current minute gets exactly one notification.
// Tasks stay pending after a reminder, so they come up again next cycle
// until completed or deleted.
func (s *ReminderService) Scan(ctx context.Context) error {
	nowStr := s.now().Format(model.DeadlineLayout)

	tasks, err := s.taskRepo.ListDuePending(ctx, nowStr)
	if err != nil {
		return fmt.Errorf("list due tasks: %w", err)
	}

	for _, task := range tasks {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := s.notifier.NotifyDue(ctx, task.OwnerID, task); err != nil {
			s.log.Error().Err(err).Int64("owner", task.OwnerID).Uint("task", task.ID).Msg("send reminder")
		}
	}

	return nil
}

// RunCycle is the scheduler entry point: it logs a failed cycle instead
// of propagating, so one bad query never stops future reminders.
func (s *ReminderService) RunCycle(ctx context.Context) {
	if err := s.Scan(ctx); err != nil {
		s.log.Error().Err(err).Msg("reminder scan")
	}
}

// DailySummary renders the owner's open tasks as an HTML digest, most
// urgent deadline first.
func (s *ReminderService) DailySummary(ctx context.Context, user model.User, now time.Time) (string, error) {
	tasks, err := s.taskRepo.ListByOwner(ctx, user.TelegramID)
	if err != nil {
		return "", err
	}

	var pending []model.Task
	for _, task := range tasks {
		if task.Status == model.StatusPending {
			pending = append(pending, task)
		}
	}

	sort.SliceStable(pending, func(i, j int) bool {
		switch {
		case pending[i].Deadline == "" && pending[j].Deadline == "":
			return pending[i].ID < pending[j].ID
		case pending[i].Deadline == "":
			return false
		case pending[j].Deadline == "":
			return true
		default:
			return pending[i].Deadline < pending[j].Deadline
		}
	})

	var builder strings.Builder
	builder.WriteString("📋 <b>Ежедневная сводка</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format("02.01.2006")))

	if len(pending) == 0 {
		builder.WriteString("— нет открытых задач")
		return builder.String(), nil
	}

	nowStr := now.Format(model.DeadlineLayout)
	for _, task := range pending {
		builder.WriteString(formatSummaryLine(task, nowStr))
	}

	return strings.TrimSpace(builder.String()), nil
}

func formatSummaryLine(task model.Task, nowStr string) string {
	var sb strings.Builder

	icon := "🟢"
	switch {
	case task.Deadline != "" && task.Deadline <= nowStr:
		icon = "⚠️"
	case task.Priority == model.PriorityHigh:
		icon = "🔴"
	}

	sb.WriteString(fmt.Sprintf("%s %s", icon, html.EscapeString(strings.TrimSpace(task.Name))))

	if task.Theme != "" {
		sb.WriteString(fmt.Sprintf(" <i>(%s)</i>", html.EscapeString(strings.TrimSpace(task.Theme))))
	}

	if task.Deadline != "" {
		if task.Deadline <= nowStr {
			sb.WriteString(fmt.Sprintf("\n   ⏰ до %s — <b>просрочено</b>", html.EscapeString(task.Deadline)))
		} else {
			sb.WriteString(fmt.Sprintf("\n   ⏰ до %s", html.EscapeString(task.Deadline)))
		}
	}

	sb.WriteByte('\n')
	return sb.String()
}
