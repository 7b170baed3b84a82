package modelroute

import (
	"errors"
	"testing"
)

func TestMessageConstructors(t *testing.T) {
	t.Run("SystemMessage", func(t *testing.T) {
		msg := SystemMessage("You are helpful.")
		if msg.Role != RoleSystem {
			t.Errorf("expected role %q, got %q", RoleSystem, msg.Role)
		}
		if msg.Content != "You are helpful." {
			t.Errorf("expected content %q, got %q", "You are helpful.", msg.Content)
		}
	})

	t.Run("UserMessage", func(t *testing.T) {
		msg := UserMessage("Hello")
		if msg.Role != RoleUser {
			t.Errorf("expected role %q, got %q", RoleUser, msg.Role)
		}
		if msg.Content != "Hello" {
			t.Errorf("expected content %q, got %q", "Hello", msg.Content)
		}
	})

	t.Run("AssistantMessage", func(t *testing.T) {
		msg := AssistantMessage("Hi there")
		if msg.Role != RoleAssistant {
			t.Errorf("expected role %q, got %q", RoleAssistant, msg.Role)
		}
		if msg.Content != "Hi there" {
			t.Errorf("expected content %q, got %q", "Hi there", msg.Content)
		}
	})
}

func TestStreamEventConstructors(t *testing.T) {
	t.Run("StartedEvent", func(t *testing.T) {
		ev := StartedEvent("claude-sonnet-4-5", "anthropic")
		if ev.Type != EventStarted {
			t.Errorf("expected type %q, got %q", EventStarted, ev.Type)
		}
		if ev.Model != "claude-sonnet-4-5" || ev.ProviderID != "anthropic" {
			t.Errorf("unexpected started fields: %+v", ev)
		}
	})

	t.Run("ChunkEvent", func(t *testing.T) {
		ev := ChunkEvent("hello", true)
		if ev.Type != EventChunk {
			t.Errorf("expected type %q, got %q", EventChunk, ev.Type)
		}
		if ev.Content != "hello" || !ev.IsFinal {
			t.Errorf("unexpected chunk fields: %+v", ev)
		}
	})

	t.Run("FinishedEvent", func(t *testing.T) {
		ev := FinishedEvent(FinishReasonStop, 7)
		if ev.Type != EventFinished {
			t.Errorf("expected type %q, got %q", EventFinished, ev.Type)
		}
		if ev.FinishReason != FinishReasonStop || ev.TotalChunks != 7 {
			t.Errorf("unexpected finished fields: %+v", ev)
		}
	})

	t.Run("ErrorEvent", func(t *testing.T) {
		cause := errors.New("stream broke")
		ev := ErrorEvent(cause)
		if ev.Type != EventError {
			t.Errorf("expected type %q, got %q", EventError, ev.Type)
		}
		if ev.Message != "stream broke" {
			t.Errorf("expected message %q, got %q", "stream broke", ev.Message)
		}
		if ev.Err != cause {
			t.Error("expected underlying error to be preserved")
		}
	})

	t.Run("ErrorEvent nil", func(t *testing.T) {
		ev := ErrorEvent(nil)
		if ev.Message != "" {
			t.Errorf("expected empty message for nil error, got %q", ev.Message)
		}
	})
}

func TestUsageAdd(t *testing.T) {
	u := Usage{InputTokens: 10, OutputTokens: 20, TotalTokens: 30}
	u.Add(Usage{InputTokens: 5, OutputTokens: 15, TotalTokens: 20})

	if u.InputTokens != 15 {
		t.Errorf("expected input_tokens 15, got %d", u.InputTokens)
	}
	if u.OutputTokens != 35 {
		t.Errorf("expected output_tokens 35, got %d", u.OutputTokens)
	}
	if u.TotalTokens != 50 {
		t.Errorf("expected total_tokens 50, got %d", u.TotalTokens)
	}
}

func TestResponseHasCalls(t *testing.T) {
	resp := Response{Content: "plain text"}
	if resp.HasCalls() {
		t.Error("expected no calls")
	}

	resp.Calls = []StructuredCall{{Skill: "filesystem", Method: "write_file", Params: map[string]any{"path": "a.txt"}}}
	if !resp.HasCalls() {
		t.Error("expected calls to be reported")
	}
}

func TestFinishReasonValues(t *testing.T) {
	values := []string{
		FinishReasonStop,
		FinishReasonLength,
		FinishReasonToolCalls,
		FinishReasonContentFilter,
	}
	seen := map[string]bool{}
	for _, v := range values {
		if v == "" {
			t.Error("finish reason value must be non-empty")
		}
		if seen[v] {
			t.Errorf("duplicate finish reason value %q", v)
		}
		seen[v] = true
	}
}
