package state

import "sort"

// UnknownWorkspace is reported until a query has seen a focused workspace
const UnknownWorkspace = "unknown"

// DefaultDegradedThreshold is the consecutive error count above which
// consumers show the connection as degraded
const DefaultDegradedThreshold = 3

// WindowRecord represents a managed window
type WindowRecord struct {
	Title       string `json:"title"`
	ProcessName string `json:"process_name"`
}

// WorkspaceRecord represents a workspace and the windows it holds.
// Build it with NewWorkspaceRecord so HasWindows stays derived.
type WorkspaceRecord struct {
	Name       string         `json:"name"`
	Focused    bool           `json:"focused"`
	HasWindows bool           `json:"has_windows"`
	Windows    []WindowRecord `json:"windows"`
}

// NewWorkspaceRecord creates a workspace record owning a copy of windows
func NewWorkspaceRecord(name string, focused bool, windows []WindowRecord) WorkspaceRecord {
	owned := make([]WindowRecord, len(windows))
	copy(owned, windows)
	return WorkspaceRecord{
		Name:       name,
		Focused:    focused,
		HasWindows: len(owned) > 0,
		Windows:    owned,
	}
}

// Snapshot is the normalized view of the window manager topology
type Snapshot struct {
	Workspaces           []WorkspaceRecord `json:"workspaces"`
	TotalWindowCount     int               `json:"total_window_count"`
	FocusedWorkspaceName string            `json:"focused_workspace_name"`
}

// NewSnapshot orders workspaces by name and derives the window total and the
// focused workspace. When several workspaces claim focus the first one in
// name order wins; when none does FocusedWorkspaceName is left empty.
func NewSnapshot(workspaces []WorkspaceRecord) Snapshot {
	sorted := make([]WorkspaceRecord, len(workspaces))
	copy(sorted, workspaces)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	snap := Snapshot{Workspaces: sorted}
	for _, ws := range sorted {
		snap.TotalWindowCount += len(ws.Windows)
		if ws.Focused && snap.FocusedWorkspaceName == "" {
			snap.FocusedWorkspaceName = ws.Name
		}
	}
	return snap
}

// Clone returns a deep copy
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Workspaces:           make([]WorkspaceRecord, len(s.Workspaces)),
		TotalWindowCount:     s.TotalWindowCount,
		FocusedWorkspaceName: s.FocusedWorkspaceName,
	}
	for i, ws := range s.Workspaces {
		out.Workspaces[i] = NewWorkspaceRecord(ws.Name, ws.Focused, ws.Windows)
	}
	return out
}

// Workspace looks up a workspace by name
func (s Snapshot) Workspace(name string) (WorkspaceRecord, bool) {
	for _, ws := range s.Workspaces {
		if ws.Name == name {
			return ws, true
		}
	}
	return WorkspaceRecord{}, false
}

// ConnectionHealth tracks consecutive failures against the window manager.
// An empty LastError means no error.
type ConnectionHealth struct {
	ConsecutiveErrorCount int    `json:"consecutive_error_count"`
	LastError             string `json:"last_error,omitempty"`
}

// Degraded reports whether the error count is above threshold
func (h ConnectionHealth) Degraded(threshold int) bool {
	return h.ConsecutiveErrorCount > threshold
}
