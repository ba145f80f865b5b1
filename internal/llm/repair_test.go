package llm

import (
	"testing"

	"github.com/cloudwego/eino/schema"
)

func call(id, name, args string) schema.ToolCall {
	return schema.ToolCall{
		ID: id,
		Function: schema.FunctionCall{
			Name:      name,
			Arguments: args,
		},
	}
}

func TestRepairFillsMissingIDs(t *testing.T) {
	out := RepairToolCalls([]schema.ToolCall{call("", "get_global_news", `{"curr_date":"2025-06-01"}`)}, nil)
	if len(out) != 1 {
		t.Fatalf("got %d calls", len(out))
	}
	if out[0].ID == "" {
		t.Error("expected generated ID")
	}
}

func TestRepairCoercesEmptyArguments(t *testing.T) {
	out := RepairToolCalls([]schema.ToolCall{call("c1", "get_global_news", "")}, nil)
	if len(out) != 1 {
		t.Fatalf("got %d calls", len(out))
	}
	if out[0].Function.Arguments != "{}" {
		t.Errorf("arguments = %q, want {}", out[0].Function.Arguments)
	}
}

func TestRepairDropsUnknownTools(t *testing.T) {
	known := map[string]bool{"get_company_news": true}
	out := RepairToolCalls([]schema.ToolCall{
		call("c1", "get_company_news", `{"symbol":"AAPL"}`),
		call("c2", "made_up_tool", `{}`),
	}, known)
	if len(out) != 1 {
		t.Fatalf("got %d calls, want 1", len(out))
	}
	if out[0].Function.Name != "get_company_news" {
		t.Errorf("kept %q", out[0].Function.Name)
	}
}

func TestRepairDedupes(t *testing.T) {
	out := RepairToolCalls([]schema.ToolCall{
		call("c1", "get_company_news", `{"symbol":"AAPL"}`),
		call("c2", "get_company_news", `{"symbol":"AAPL"}`),
		call("c3", "get_company_news", `{"symbol":"MSFT"}`),
	}, nil)
	if len(out) != 2 {
		t.Fatalf("got %d calls, want 2", len(out))
	}
}

func TestRepairDropsNamelessCalls(t *testing.T) {
	out := RepairToolCalls([]schema.ToolCall{call("c1", "  ", `{}`)}, nil)
	if len(out) != 0 {
		t.Fatalf("got %d calls, want 0", len(out))
	}
}

func TestCoerceArguments(t *testing.T) {
	cases := map[string]string{
		``:                      `{}`,
		`{"a":1}`:               `{"a":1}`,
		`{'symbol': 'AAPL'}`:    `{"symbol": "AAPL"}`,
		`{"symbol":"AAPL",}`:    `{"symbol":"AAPL"}`,
		`complete garbage here`: `{}`,
	}
	for in, want := range cases {
		if got := coerceArguments(in); got != want {
			t.Errorf("coerceArguments(%q) = %q, want %q", in, got, want)
		}
	}
}
