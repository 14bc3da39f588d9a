package bot

import (
	"tasktracker/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageName
	stageTheme
	stagePriority
	stageDeadline
	stageDeleteName
	stageDoneName
)

// conversationState is the per-user accumulator for a multi-step dialog.
// Fields travel explicitly through each transition; nothing is captured
// in closures.
type conversationState struct {
	stage conversationStage
	input service.TaskInput
}

type stepAction int

const (
	// actionPrompt: send the prompt and wait for the next message.
	actionPrompt stepAction = iota
	// actionSave: the creation form is complete; persist input.
	actionSave
	// actionDelete: delete all tasks named target.
	actionDelete
	// actionMarkDone: complete all tasks named target.
	actionMarkDone
	// actionAbort: the dialog ends with a rejection; state is discarded.
	actionAbort
)

type stepResult struct {
	action stepAction
	prompt string
	input  service.TaskInput
	target string
}

const (
	promptTheme    = "Введите тематику задачи:"
	promptPriority = "Выберите приоритет (низкий, средний, высокий):"
	promptDeadline = "Введите дату и время дедлайна (ГГГГ-ММ-ДД ЧЧ:ММ):"
	msgBadPriority = "Некорректный приоритет. Используйте: низкий, средний или высокий. Начните заново через /add_task."
)

// advanceConversation feeds one inbound message into the dialog and
// returns what the transport should do next. Inputs are taken verbatim:
// the name and theme are free text, and the deadline is stored as-is — a
// malformed deadline just never matches the reminder scan. An invalid
// priority aborts the whole dialog; there is no in-state retry.
func advanceConversation(state *conversationState, text string) stepResult {
	switch state.stage {
	case stageName:
		state.input.Name = text
		state.stage = stageTheme
		return stepResult{action: actionPrompt, prompt: promptTheme}
	case stageTheme:
		state.input.Theme = text
		state.stage = stagePriority
		return stepResult{action: actionPrompt, prompt: promptPriority}
	case stagePriority:
		priority, err := service.NormalizePriority(text)
		if err != nil {
			return stepResult{action: actionAbort, prompt: msgBadPriority}
		}
		state.input.Priority = priority
		state.stage = stageDeadline
		return stepResult{action: actionPrompt, prompt: promptDeadline}
	case stageDeadline:
		state.input.Deadline = text
		return stepResult{action: actionSave, input: state.input}
	case stageDeleteName:
		return stepResult{action: actionDelete, target: text}
	case stageDoneName:
		return stepResult{action: actionMarkDone, target: text}
	default:
		return stepResult{action: actionAbort, prompt: "Диалог сброшен. Попробуйте ещё раз через /add_task."}
	}
}
