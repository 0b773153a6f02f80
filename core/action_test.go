package core

import (
	"testing"
)

func TestNewSendMessageAction(t *testing.T) {
	a, err := NewSendMessageAction("cust-1", "biz-1", TextMessage{Content: "hi"})
	if err != nil {
		t.Fatalf("build action: %v", err)
	}
	if a.ID == "" || a.AgentID != "cust-1" || a.CreatedAt.IsZero() {
		t.Fatalf("action not initialized: %+v", a)
	}
	if a.Request.Name != ActionSendMessage {
		t.Fatalf("unexpected kind %q", a.Request.Name)
	}
	if a.Result.IsError || a.Result.Content != nil {
		t.Fatalf("result must start empty: %+v", a.Result)
	}

	params, err := SendMessageParamsOf(a)
	if err != nil {
		t.Fatalf("extract params: %v", err)
	}
	if params.FromAgentID != "cust-1" || params.ToAgentID != "biz-1" {
		t.Fatalf("params malformed: %+v", params)
	}
	msg, err := params.DecodedMessage()
	if err != nil {
		t.Fatalf("decode embedded message: %v", err)
	}
	if text, ok := msg.(TextMessage); !ok || text.Content != "hi" {
		t.Fatalf("embedded message malformed: %#v", msg)
	}
}

func TestSendMessageParamsOf_WrongKind(t *testing.T) {
	a := Action{ID: NewActionID(), Request: ActionRequest{Name: ActionEnd}}
	if _, err := SendMessageParamsOf(a); err == nil {
		t.Fatal("extracting send params from an end action must fail")
	}
}

func TestNewActionID_SortableAndUnique(t *testing.T) {
	seen := make(map[string]bool)
	prev := ""
	for i := 0; i < 100; i++ {
		id := NewActionID()
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
		if prev != "" && id <= prev {
			t.Fatalf("ids must be lexicographically increasing: %s after %s", id, prev)
		}
		prev = id
	}
}
