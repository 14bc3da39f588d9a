package bot

import (
	"testing"

	"tasktracker/internal/model"
	"tasktracker/internal/service"
)

func TestConversationCreationHappyPath(t *testing.T) {
	for _, priority := range []string{"low", "Medium", "HIGH", "низкий", "высокий"} {
		state := &conversationState{stage: stageName}

		res := advanceConversation(state, "Report")
		if res.action != actionPrompt || res.prompt != promptTheme {
			t.Fatalf("after name: %+v", res)
		}

		res = advanceConversation(state, "Work")
		if res.action != actionPrompt || res.prompt != promptPriority {
			t.Fatalf("after theme: %+v", res)
		}

		res = advanceConversation(state, priority)
		if res.action != actionPrompt || res.prompt != promptDeadline {
			t.Fatalf("priority %q rejected: %+v", priority, res)
		}

		res = advanceConversation(state, "2024-06-01 09:00")
		if res.action != actionSave {
			t.Fatalf("after deadline: %+v", res)
		}
		if res.input.Name != "Report" || res.input.Theme != "Work" || res.input.Deadline != "2024-06-01 09:00" {
			t.Errorf("accumulator lost fields: %+v", res.input)
		}
	}
}

func TestConversationInvalidPriorityAborts(t *testing.T) {
	state := &conversationState{stage: stageName}
	advanceConversation(state, "Report")
	advanceConversation(state, "Work")

	res := advanceConversation(state, "urgent")
	if res.action != actionAbort {
		t.Fatalf("expected abort on bad priority, got %+v", res)
	}
	if res.prompt != msgBadPriority {
		t.Errorf("unexpected rejection message: %q", res.prompt)
	}
}

// The deadline is taken verbatim, valid date or not; a malformed one is
// stored and simply never matches the reminder scan.
func TestConversationDeadlineNotValidated(t *testing.T) {
	state := &conversationState{stage: stageDeadline, input: testInput("Report", "Work", model.PriorityHigh)}

	res := advanceConversation(state, "tomorrow maybe")
	if res.action != actionSave {
		t.Fatalf("expected save, got %+v", res)
	}
	if res.input.Deadline != "tomorrow maybe" {
		t.Errorf("deadline mangled: %q", res.input.Deadline)
	}
}

func TestConversationSinglePromptChains(t *testing.T) {
	state := &conversationState{stage: stageDeleteName}
	res := advanceConversation(state, "Report")
	if res.action != actionDelete || res.target != "Report" {
		t.Errorf("delete chain: %+v", res)
	}

	state = &conversationState{stage: stageDoneName}
	res = advanceConversation(state, "Report")
	if res.action != actionMarkDone || res.target != "Report" {
		t.Errorf("mark-done chain: %+v", res)
	}
}

func TestConversationUnknownStageResets(t *testing.T) {
	state := &conversationState{stage: stageNone}
	res := advanceConversation(state, "anything")
	if res.action != actionAbort {
		t.Errorf("expected abort for idle stage, got %+v", res)
	}
}

func testInput(name, theme, priority string) service.TaskInput {
	return service.TaskInput{Name: name, Theme: theme, Priority: priority}
}
