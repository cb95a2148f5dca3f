package glazewm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/bryanchriswhite/glazesync/internal/state"
)

const (
	nodeTypeWorkspace = "workspace"
	nodeTypeWindow    = "window"
)

// ParseTopology flattens a query reply tree into a Snapshot.
//
// Every node typed "workspace" becomes a WorkspaceRecord holding all
// descendant "window" nodes found under its children; a window's own
// children are not searched. Object keys are visited in sorted key order and
// arrays in index order, so the result does not depend on map iteration.
func ParseTopology(data json.RawMessage) (state.Snapshot, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return state.Snapshot{}, &QueryError{Kind: KindDecode, Reason: "empty topology"}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var root any
	if err := dec.Decode(&root); err != nil {
		return state.Snapshot{}, &QueryError{Kind: KindDecode, Reason: "malformed topology", Err: err}
	}

	workspaces := make([]state.WorkspaceRecord, 0)
	stack := []any{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if obj, ok := node.(map[string]any); ok && obj["type"] == nodeTypeWorkspace {
			workspaces = append(workspaces, state.NewWorkspaceRecord(
				nodeName(obj["name"]),
				obj["hasFocus"] == true,
				collectWindows(obj["children"]),
			))
			continue
		}
		stack = pushChildren(stack, node)
	}

	return state.NewSnapshot(workspaces), nil
}

// collectWindows gathers window leaves in deterministic key order
func collectWindows(root any) []state.WindowRecord {
	windows := make([]state.WindowRecord, 0)
	stack := []any{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if obj, ok := node.(map[string]any); ok && obj["type"] == nodeTypeWindow {
			windows = append(windows, state.WindowRecord{
				Title:       stringField(obj, "title"),
				ProcessName: stringField(obj, "processName"),
			})
			continue
		}
		stack = pushChildren(stack, node)
	}
	return windows
}

// pushChildren pushes the container values of node in reverse so they pop
// in sorted key order for objects and index order for arrays.
func pushChildren(stack []any, node any) []any {
	var children []any
	switch v := node.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k, child := range v {
			if isContainer(child) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			children = append(children, v[k])
		}
	case []any:
		for _, child := range v {
			if isContainer(child) {
				children = append(children, child)
			}
		}
	}

	for i := len(children) - 1; i >= 0; i-- {
		stack = append(stack, children[i])
	}
	return stack
}

func isContainer(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}

func stringField(obj map[string]any, key string) string {
	if s, ok := obj[key].(string); ok {
		return s
	}
	return ""
}

// nodeName renders a workspace name; GlazeWM may send names as numbers
func nodeName(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case string:
		return n
	case json.Number:
		return n.String()
	default:
		return fmt.Sprint(n)
	}
}
