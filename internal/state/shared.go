package state

import "sync"

// SharedState holds the latest snapshot and connection health.
// Every read and read-modify-write happens under one mutex.
type SharedState struct {
	mu        sync.Mutex
	snapshot  Snapshot
	health    ConnectionHealth
	threshold int
}

// NewSharedState creates an empty state. A threshold <= 0 selects
// DefaultDegradedThreshold.
func NewSharedState(degradedThreshold int) *SharedState {
	if degradedThreshold <= 0 {
		degradedThreshold = DefaultDegradedThreshold
	}
	return &SharedState{
		snapshot: Snapshot{
			Workspaces:           []WorkspaceRecord{},
			FocusedWorkspaceName: UnknownWorkspace,
		},
		threshold: degradedThreshold,
	}
}

// Snapshot returns a copy of the current snapshot
func (s *SharedState) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot.Clone()
}

// Health returns the current connection health
func (s *SharedState) Health() ConnectionHealth {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.health
}

// Read returns snapshot and health from the same critical section
func (s *SharedState) Read() (Snapshot, ConnectionHealth) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot.Clone(), s.health
}

// Threshold returns the degraded threshold. It never changes after creation.
func (s *SharedState) Threshold() int {
	return s.threshold
}

// ApplySnapshot installs a fresh snapshot and resets health. It returns true
// when this success ends a degraded period.
//
// A snapshot without a focused workspace keeps the previous focused name.
func (s *SharedState) ApplySnapshot(snap Snapshot) (restored bool) {
	snap = snap.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	if snap.FocusedWorkspaceName == "" {
		snap.FocusedWorkspaceName = s.snapshot.FocusedWorkspaceName
	}
	restored = s.health.Degraded(s.threshold)
	s.snapshot = snap
	s.health = ConnectionHealth{}
	return restored
}

// RecordFailure increments the error counter and publishes err as the last
// error. It returns the updated health.
func (s *SharedState) RecordFailure(err error) ConnectionHealth {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.health.ConsecutiveErrorCount++
	s.health.LastError = msg
	return s.health
}

// fingerprint builds the change-detection key from one critical section
func (s *SharedState) fingerprint() fingerprint {
	s.mu.Lock()
	defer s.mu.Unlock()

	fp := fingerprint{
		Workspaces:       make([]workspaceKey, len(s.snapshot.Workspaces)),
		TotalWindowCount: s.snapshot.TotalWindowCount,
		Degraded:         s.health.Degraded(s.threshold),
		LastError:        s.health.LastError,
	}
	for i, ws := range s.snapshot.Workspaces {
		titles := make([]string, len(ws.Windows))
		for j, w := range ws.Windows {
			titles[j] = w.Title
		}
		fp.Workspaces[i] = workspaceKey{
			Name:       ws.Name,
			Focused:    ws.Focused,
			HasWindows: ws.HasWindows,
			Titles:     titles,
		}
	}
	return fp
}
