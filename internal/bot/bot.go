package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"tasktracker/internal/model"
	"tasktracker/internal/repository"
	"tasktracker/internal/service"
)

const (
	cbDonePrefix   = "done:"
	cbDeletePrefix = "delete:"
)

// Bot aggregates the Telegram API with services and holds per-user
// dialog state in memory. State does not survive a restart; an in-flight
// form is silently abandoned.
type Bot struct {
	api           *tgbotapi.BotAPI
	userRepo      *repository.UserRepository
	taskSvc       *service.TaskService
	reminderSvc   *service.ReminderService
	log           zerolog.Logger
	conversations map[int64]*conversationState
	mu            sync.Mutex
}

func New(token string, userRepo *repository.UserRepository, taskSvc *service.TaskService, log zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Info().Str("account", api.Self.UserName).Msg("bot authorized")

	return &Bot{
		api:           api,
		userRepo:      userRepo,
		taskSvc:       taskSvc,
		log:           log,
		conversations: make(map[int64]*conversationState),
	}, nil
}

// SetReminderService wires the reminder service after construction; the
// bot and the service reference each other (the bot is the Notifier).
func (b *Bot) SetReminderService(svc *service.ReminderService) {
	b.reminderSvc = svc
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info().Msg("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				b.log.Error().Err(err).Msg("handle callback")
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				b.log.Error().Err(err).Msg("handle message")
			}
		}
	}

	return nil
}

// NotifyDue implements service.Notifier: one reminder per due task,
// delivered to the owner's private chat.
func (b *Bot) NotifyDue(ctx context.Context, ownerID int64, task model.Task) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	text := fmt.Sprintf("⏰ <b>Напоминание</b>\nЗадача «%s» должна быть выполнена!\n🗓 Дедлайн: %s",
		escape(task.Name), escape(task.Deadline))
	return b.sendText(ownerID, text)
}

// SendDailySummaries pushes the digest to every known user.
func (b *Bot) SendDailySummaries(ctx context.Context) error {
	if b.reminderSvc == nil {
		return nil
	}
	users, err := b.userRepo.ListAll(ctx)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, user := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		text, err := b.reminderSvc.DailySummary(ctx, user, now)
		if err != nil {
			b.log.Error().Err(err).Int64("user", user.TelegramID).Msg("build summary")
			continue
		}
		if err := b.sendText(user.TelegramID, text); err != nil {
			b.log.Error().Err(err).Int64("user", user.TelegramID).Msg("send summary")
		}
	}
	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	// An in-progress dialog consumes the next message whatever its
	// content, command-shaped or not; /cancel is the one escape hatch.
	if b.hasConversation(msg.From.ID) {
		if msg.IsCommand() && msg.Command() == "cancel" {
			b.clearConversation(msg.From.ID)
			return b.sendText(msg.Chat.ID, "⏪ Текущий диалог отменён.")
		}
		return b.handleConversation(ctx, msg)
	}

	if msg.IsCommand() {
		b.log.Info().Int64("user", msg.From.ID).Str("command", msg.Command()).Msg("command")
		return b.handleCommand(ctx, msg)
	}

	return b.sendText(msg.Chat.ID, "Я пока не понял сообщение. Наберите /add_task, чтобы добавить задачу, или /start для списка команд.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.sendText(msg.Chat.ID, helpText())
	case "add_task":
		return b.beginDialog(msg, stageName, "Введите название задачи:")
	case "delete_task":
		return b.beginDialog(msg, stageDeleteName, "Введите имя задачи, которую хотите удалить:")
	case "mark_done":
		return b.beginDialog(msg, stageDoneName, "Введите имя выполненной задачи:")
	case "show":
		return b.handleShow(ctx, msg)
	case "show_high_priority":
		return b.handleShowHighPriority(ctx, msg)
	case "stats":
		return b.handleStats(ctx, msg)
	case "cancel":
		return b.sendText(msg.Chat.ID, "Сейчас нет активного диалога.")
	default:
		return b.sendText(msg.Chat.ID, "Команда не поддерживается. Загляните в /start.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}

	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "друг"
	}

	text := fmt.Sprintf("👋 Привет, %s! Я бот-менеджер задач.\n<b>Помогу тебе сохранить твои задачи!</b>\n\n%s",
		escape(name), helpText())
	return b.sendText(msg.Chat.ID, text)
}

func helpText() string {
	return "Команды:\n" +
		"• /add_task — добавить новую задачу\n" +
		"• /delete_task — удалить задачу\n" +
		"• /mark_done — отметить задачу как выполненную\n" +
		"• /show — показать все задачи\n" +
		"• /show_high_priority — показать только важные задачи\n" +
		"• /stats — статистика выполнения\n" +
		"• /cancel — отменить текущий ввод"
}

func (b *Bot) beginDialog(msg *tgbotapi.Message, stage conversationStage, prompt string) error {
	b.setConversation(msg.From.ID, &conversationState{stage: stage})
	return b.sendText(msg.Chat.ID, prompt)
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.From.ID)
	if state == nil {
		return nil
	}

	result := advanceConversation(state, strings.TrimSpace(msg.Text))
	switch result.action {
	case actionPrompt:
		return b.sendText(msg.Chat.ID, result.prompt)
	case actionSave:
		b.clearConversation(msg.From.ID)
		return b.finishTaskCreation(ctx, msg.From, result.input, msg.Chat.ID)
	case actionDelete:
		b.clearConversation(msg.From.ID)
		return b.deleteByName(ctx, msg.Chat.ID, msg.From.ID, result.target)
	case actionMarkDone:
		b.clearConversation(msg.From.ID)
		return b.completeByName(ctx, msg.Chat.ID, msg.From.ID, result.target)
	default:
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, result.prompt)
	}
}

func (b *Bot) finishTaskCreation(ctx context.Context, from *tgbotapi.User, input service.TaskInput, chatID int64) error {
	if _, err := b.ensureUser(ctx, from); err != nil {
		return err
	}

	task, err := b.taskSvc.CreateTask(ctx, from.ID, input)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Не удалось сохранить задачу: %s", escape(err.Error())))
	}

	b.log.Info().Uint("task", task.ID).Int64("user", from.ID).Msg("task created")

	var summary strings.Builder
	summary.WriteString("✅ <b>Задача добавлена</b>\n")
	summary.WriteString(fmt.Sprintf("• <b>Название:</b> %s\n", escape(task.Name)))
	if task.Theme != "" {
		summary.WriteString(fmt.Sprintf("• <b>Тема:</b> %s\n", escape(task.Theme)))
	}
	summary.WriteString(fmt.Sprintf("• <b>Приоритет:</b> %s\n", priorityLabel(task.Priority)))
	if task.Deadline != "" {
		summary.WriteString(fmt.Sprintf("• <b>Дедлайн:</b> %s\n", escape(task.Deadline)))
	}
	return b.sendText(chatID, strings.TrimSpace(summary.String()))
}

func (b *Bot) deleteByName(ctx context.Context, chatID, ownerID int64, name string) error {
	deleted, err := b.taskSvc.DeleteTask(ctx, ownerID, name)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Не удалось удалить задачу: %s", escape(err.Error())))
	}
	b.log.Info().Int64("user", ownerID).Int64("deleted", deleted).Msg("tasks deleted")
	return b.sendText(chatID, "Задача удалена")
}

func (b *Bot) completeByName(ctx context.Context, chatID, ownerID int64, name string) error {
	matched, err := b.taskSvc.CompleteTask(ctx, ownerID, name)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Не удалось отметить задачу: %s", escape(err.Error())))
	}
	b.log.Info().Int64("user", ownerID).Int64("matched", matched).Msg("tasks marked done")
	return b.sendText(chatID, "✅ Задача отмечена выполненной (+1 балл)")
}

func (b *Bot) handleShow(ctx context.Context, msg *tgbotapi.Message) error {
	tasks, err := b.taskSvc.ListTasks(ctx, msg.From.ID)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Не удалось получить задачи: %s", escape(err.Error())))
	}
	if len(tasks) == 0 {
		return b.sendText(msg.Chat.ID, "Задач нет")
	}

	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })

	var builder strings.Builder
	builder.WriteString("📋 <b>Твои задачи</b>\n\n")

	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, task := range tasks {
		builder.WriteString(formatTaskLine(task))
		if task.Status == model.StatusPending {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("✅ #%d · %s", task.ID, shortName(task.Name, 20)), fmt.Sprintf("%s%d", cbDonePrefix, task.ID)),
				tgbotapi.NewInlineKeyboardButtonData("🗑 Удалить", fmt.Sprintf("%s%d", cbDeletePrefix, task.ID)),
			))
		}
	}

	out := tgbotapi.NewMessage(msg.Chat.ID, strings.TrimSpace(builder.String()))
	out.ParseMode = tgbotapi.ModeHTML
	if len(buttons) > 0 {
		out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	}
	_, err = b.api.Send(out)
	return err
}

func (b *Bot) handleShowHighPriority(ctx context.Context, msg *tgbotapi.Message) error {
	tasks, err := b.taskSvc.ListHighPriority(ctx, msg.From.ID)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Не удалось получить задачи: %s", escape(err.Error())))
	}
	if len(tasks) == 0 {
		return b.sendText(msg.Chat.ID, "Нет высокоприоритетных задач")
	}

	var builder strings.Builder
	builder.WriteString("🔴 <b>Высокоприоритетные задачи:</b>\n")
	for _, task := range tasks {
		builder.WriteString(fmt.Sprintf("• %s\n", escape(task.Name)))
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(builder.String()))
}

func (b *Bot) handleStats(ctx context.Context, msg *tgbotapi.Message) error {
	stats, err := b.taskSvc.Statistics(ctx, msg.From.ID)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Не удалось получить статистику: %s", escape(err.Error())))
	}

	text := fmt.Sprintf("📊 <b>Твоя статистика</b>\n"+
		"✅ Выполнено: %d\n"+
		"⏳ В процессе: %d\n"+
		"📌 Всего задач: %d\n"+
		"🏆 Успешность: %.2f%%\n"+
		"⭐ Баллы: %d",
		stats.Completed, stats.Pending, stats.Total, stats.CompletionRate(), stats.Points)
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}

	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Error().Err(err).Msg("callback ack")
	}

	data := cb.Data
	chatID := cb.Message.Chat.ID

	switch {
	case strings.HasPrefix(data, cbDonePrefix):
		taskID, err := parseTaskID(data, cbDonePrefix)
		if err != nil {
			return nil
		}
		task, _, err := b.taskSvc.CompleteTaskByID(ctx, cb.From.ID, taskID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return b.sendText(chatID, "Задача не найдена или уже удалена.")
			}
			return b.sendText(chatID, fmt.Sprintf("Ошибка: %s", escape(err.Error())))
		}
		b.log.Info().Uint("task", task.ID).Int64("user", cb.From.ID).Msg("task completed via button")
		return b.sendText(chatID, fmt.Sprintf("✅ Задача «%s» выполнена (+1 балл).", escape(task.Name)))
	case strings.HasPrefix(data, cbDeletePrefix):
		taskID, err := parseTaskID(data, cbDeletePrefix)
		if err != nil {
			return nil
		}
		task, _, err := b.taskSvc.DeleteTaskByID(ctx, cb.From.ID, taskID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return b.sendText(chatID, "Задача не найдена или уже удалена.")
			}
			return b.sendText(chatID, fmt.Sprintf("Ошибка: %s", escape(err.Error())))
		}
		b.log.Info().Uint("task", task.ID).Int64("user", cb.From.ID).Msg("task deleted via button")
		return b.sendText(chatID, fmt.Sprintf("🗑 Задача «%s» удалена.", escape(task.Name)))
	default:
		return nil
	}
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*model.User, error) {
	return b.userRepo.UpsertFromTelegram(ctx, from.ID, from.FirstName, from.LastName, from.UserName)
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) setConversation(userID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[userID] = state
}

func (b *Bot) getConversation(userID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[userID]
}

func (b *Bot) hasConversation(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.conversations[userID]
	return ok
}

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
}

func parseTaskID(data, prefix string) (uint, error) {
	raw := strings.TrimPrefix(data, prefix)
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(value), nil
}

func formatTaskLine(task model.Task) string {
	var sb strings.Builder

	icon := "⏳"
	if task.Status == model.StatusDone {
		icon = "✅"
	} else if task.Priority == model.PriorityHigh {
		icon = "🔴"
	}

	sb.WriteString(fmt.Sprintf("%s <b>#%d</b> %s", icon, task.ID, escape(task.Name)))
	if task.Theme != "" {
		sb.WriteString(fmt.Sprintf(" <i>(%s)</i>", escape(task.Theme)))
	}
	sb.WriteString(fmt.Sprintf("\n   Приоритет: %s", priorityLabel(task.Priority)))
	if task.Deadline != "" {
		sb.WriteString(fmt.Sprintf(" · Дедлайн: %s", escape(task.Deadline)))
	}
	sb.WriteString(fmt.Sprintf(" · Статус: %s\n\n", statusLabel(task.Status)))
	return sb.String()
}

func priorityLabel(priority string) string {
	switch priority {
	case model.PriorityLow:
		return "низкий"
	case model.PriorityHigh:
		return "высокий"
	default:
		return "средний"
	}
}

func statusLabel(status string) string {
	if status == model.StatusDone {
		return "выполнена"
	}
	return "в процессе"
}

func shortName(name string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(name, "\n", " "))
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func escape(s string) string {
	return html.EscapeString(s)
}
