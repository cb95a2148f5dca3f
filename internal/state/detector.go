package state

import (
	"sync"

	"github.com/bryanchriswhite/glazesync/internal/logger"
	"github.com/mitchellh/hashstructure/v2"
)

type workspaceKey struct {
	Name       string
	Focused    bool
	HasWindows bool
	Titles     []string
}

// fingerprint covers everything a presentation surface draws
type fingerprint struct {
	Workspaces       []workspaceKey
	TotalWindowCount int
	Degraded         bool
	LastError        string
}

// ChangeDetector calls the registered callbacks only when the observable
// state differs from what was last published.
type ChangeDetector struct {
	state *SharedState

	mu        sync.Mutex
	last      uint64
	published bool
	callbacks []func()
}

// NewChangeDetector creates a detector over st
func NewChangeDetector(st *SharedState) *ChangeDetector {
	return &ChangeDetector{state: st}
}

// OnChange registers a refresh callback
func (d *ChangeDetector) OnChange(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.callbacks = append(d.callbacks, fn)
}

// MaybeNotify fingerprints the shared state and runs the callbacks if it
// changed. It returns whether callbacks ran.
func (d *ChangeDetector) MaybeNotify() bool {
	hash, err := hashstructure.Hash(d.state.fingerprint(), hashstructure.FormatV2, nil)
	if err != nil {
		logger.WithComponent("detector").Error().Err(err).Msg("Failed to fingerprint state")
	}

	d.mu.Lock()
	if err == nil && d.published && hash == d.last {
		d.mu.Unlock()
		return false
	}
	d.last = hash
	d.published = err == nil
	callbacks := make([]func(), len(d.callbacks))
	copy(callbacks, d.callbacks)
	d.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
	return true
}
