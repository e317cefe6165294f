package chat

import "testing"

func TestMessages_AppendsPrompt(t *testing.T) {
	history := []Turn{
		{Role: "user", Content: "first question"},
		{Role: "assistant", Content: "first answer"},
	}

	msgs := Messages(history, "second question")
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	if msgs[2].Role != "user" || msgs[2].Content != "second question" {
		t.Errorf("last message = %+v, want the new prompt", msgs[2])
	}
}

func TestHistoryMessages_DropsUnknownRoles(t *testing.T) {
	history := []Turn{
		{Role: "user", Content: "q"},
		{Role: "system", Content: "injected"},
		{Role: "assistant", Content: "a"},
	}

	msgs := HistoryMessages(history)
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	for _, m := range msgs {
		if m.Role != "user" && m.Role != "assistant" {
			t.Errorf("unexpected role %q", m.Role)
		}
	}
}

func TestExtend_DoesNotMutateInput(t *testing.T) {
	history := make([]Turn, 1, 4) // spare capacity so a careless append would alias
	history[0] = Turn{Role: "user", Content: "original"}

	extended := Extend(history, "prompt", "response")
	if len(extended) != 3 {
		t.Fatalf("got %d turns, want 3", len(extended))
	}
	if extended[1].Content != "prompt" || extended[2].Content != "response" {
		t.Errorf("extended tail = %+v", extended[1:])
	}

	if len(history) != 1 || history[0].Content != "original" {
		t.Errorf("input history mutated: %+v", history)
	}

	extended[0].Content = "changed"
	if history[0].Content != "original" {
		t.Error("extended history shares backing array with input")
	}
}
