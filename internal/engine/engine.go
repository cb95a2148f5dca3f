package engine

import (
	"context"
	"sync"

	"github.com/bryanchriswhite/glazesync/internal/config"
	"github.com/bryanchriswhite/glazesync/internal/glazewm"
	"github.com/bryanchriswhite/glazesync/internal/logger"
	"github.com/bryanchriswhite/glazesync/internal/state"
)

// Engine keeps shared state synchronized with GlazeWM
type Engine struct {
	state      *state.SharedState
	detector   *state.ChangeDetector
	signal     *DirtySignal
	requests   *RequestConn
	query      *QueryClient
	dispatcher *Dispatcher
	scheduler  *Scheduler
	subscriber *Subscriber

	done     chan struct{}
	stopOnce sync.Once
}

// New wires the engine from configuration. Nothing connects until Run,
// Refresh or Send is called.
func New(configMgr *config.Manager, dialer glazewm.Dialer) *Engine {
	cfg := configMgr.Get()

	e := &Engine{
		state:  state.NewSharedState(cfg.DegradedThreshold),
		signal: NewDirtySignal(),
		done:   make(chan struct{}),
	}
	e.detector = state.NewChangeDetector(e.state)
	e.requests = NewRequestConn(dialer, cfg.QueryTimeout)
	e.query = NewQueryClient(e.requests, e.state)
	e.dispatcher = NewDispatcher(e.requests, e.signal, cfg.VerifyDelay, e.done)
	e.scheduler = NewScheduler(e.signal, e.query, e.detector, cfg.DebounceWindow)
	e.subscriber = NewSubscriber(
		dialer,
		SubscriberConfig{
			Events:           cfg.SubscribeEvents,
			ImmediateEvents:  cfg.ImmediateEvents,
			ConnectTimeout:   cfg.ConnectTimeout,
			ReconnectBackoff: cfg.ReconnectBackoff,
		},
		configMgr,
		e.signal,
		e.dispatcher,
		e.state,
		e.detector,
	)
	return e
}

// Run performs an initial refresh, then runs the subscription and scheduler
// loops until ctx is cancelled. Shutdown wakes every blocked wait and read.
func (e *Engine) Run(ctx context.Context) error {
	log := logger.WithComponent("engine")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.query.Refresh(ctx)
	e.detector.MaybeNotify()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		e.subscriber.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		e.scheduler.Run(ctx)
	}()

	log.Info().Msg("Engine running")
	<-ctx.Done()
	log.Info().Msg("Shutting down engine")

	e.Stop()
	wg.Wait()
	e.dispatcher.Wait()
	return nil
}

// Stop releases delayed verifications and closes both connections
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		close(e.done)
		e.subscriber.Close()
		e.requests.Close()
	})
}

// OnChange registers a callback run whenever observable state changed
func (e *Engine) OnChange(fn func()) {
	e.detector.OnChange(fn)
}

// Refresh queries the peer once and publishes any change
func (e *Engine) Refresh(ctx context.Context) error {
	err := e.query.Refresh(ctx)
	e.detector.MaybeNotify()
	return err
}

// Send issues a command
func (e *Engine) Send(ctx context.Context, command string) error {
	return e.dispatcher.Send(ctx, command)
}

// FocusWorkspace focuses a workspace with delayed verification
func (e *Engine) FocusWorkspace(ctx context.Context, name string) error {
	return e.dispatcher.FocusWorkspace(ctx, name)
}

// Snapshot returns the current snapshot
func (e *Engine) Snapshot() state.Snapshot {
	return e.state.Snapshot()
}

// Read returns the snapshot and connection health as one consistent pair
func (e *Engine) Read() (state.Snapshot, state.ConnectionHealth) {
	return e.state.Read()
}

// Threshold is the error count above which the connection is degraded
func (e *Engine) Threshold() int {
	return e.state.Threshold()
}

// StreamState reports the event stream connection state
func (e *Engine) StreamState() StreamState {
	return e.subscriber.State()
}
