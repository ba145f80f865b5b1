package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
)

// RepairToolCalls normalizes model tool call output: fills missing
// IDs, coerces empty or malformed argument payloads to valid JSON,
// drops calls naming tools outside the known catalogue, and removes
// duplicates. A nil catalogue skips the name check.
func RepairToolCalls(calls []schema.ToolCall, known map[string]bool) []schema.ToolCall {
	out := make([]schema.ToolCall, 0, len(calls))
	seen := make(map[string]bool, len(calls))

	for _, call := range calls {
		name := strings.TrimSpace(call.Function.Name)
		if name == "" {
			continue
		}
		if known != nil && !known[name] {
			continue
		}

		call.Function.Name = name
		call.Function.Arguments = coerceArguments(call.Function.Arguments)

		if call.ID == "" {
			call.ID = fmt.Sprintf("call_%s", uuid.NewString())
		}

		dedupeKey := name + "\x00" + call.Function.Arguments
		if seen[dedupeKey] {
			continue
		}
		seen[dedupeKey] = true
		out = append(out, call)
	}
	return out
}

// coerceArguments makes the argument payload valid JSON. Empty input
// becomes an empty object; a bare fragment gets wrapped only when it
// cannot be parsed as-is.
func coerceArguments(args string) string {
	args = strings.TrimSpace(args)
	if args == "" {
		return "{}"
	}
	if json.Valid([]byte(args)) {
		return args
	}

	// Single-quoted payloads show up from some providers.
	swapped := strings.ReplaceAll(args, "'", `"`)
	if json.Valid([]byte(swapped)) {
		return swapped
	}

	// Trailing commas before a closing brace.
	trimmed := strings.ReplaceAll(args, ",}", "}")
	trimmed = strings.ReplaceAll(trimmed, ",]", "]")
	if json.Valid([]byte(trimmed)) {
		return trimmed
	}

	return "{}"
}
