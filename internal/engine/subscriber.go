package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bryanchriswhite/glazesync/internal/glazewm"
	"github.com/bryanchriswhite/glazesync/internal/logger"
	"github.com/bryanchriswhite/glazesync/internal/state"
)

// StreamState is the subscription client's connection state
type StreamState int

const (
	StreamDisconnected StreamState = iota
	StreamConnecting
	StreamSubscribed
)

func (s StreamState) String() string {
	switch s {
	case StreamDisconnected:
		return "disconnected"
	case StreamConnecting:
		return "connecting"
	case StreamSubscribed:
		return "subscribed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// CommandSender issues the commands triggered by stream events
type CommandSender interface {
	SendDebounced(ctx context.Context, command string) error
}

// AutoToggleSource reports the runtime auto-toggle flag
type AutoToggleSource interface {
	AutoToggleTiling() bool
}

// SubscriberConfig holds the immutable subscription settings
type SubscriberConfig struct {
	Events           []string
	ImmediateEvents  []string
	ConnectTimeout   time.Duration
	ReconnectBackoff time.Duration
}

// Subscriber owns the event stream. It marks state dirty for every event,
// runs the auto-toggle side effect for new windows and reconnects with a
// fixed backoff until shut down.
type Subscriber struct {
	dialer     glazewm.Dialer
	cfg        SubscriberConfig
	immediate  map[string]bool
	autoToggle AutoToggleSource
	signal     *DirtySignal
	commands   CommandSender
	state      *state.SharedState
	notifier   Notifier

	// mu guards the teardown/reconnect transition only; reads are lock free.
	mu          sync.Mutex
	conn        glazewm.Conn
	streamState StreamState
	attempts    int
}

// NewSubscriber creates an event subscription client
func NewSubscriber(
	dialer glazewm.Dialer,
	cfg SubscriberConfig,
	autoToggle AutoToggleSource,
	signal *DirtySignal,
	commands CommandSender,
	st *state.SharedState,
	notifier Notifier,
) *Subscriber {
	immediate := make(map[string]bool, len(cfg.ImmediateEvents))
	for _, ev := range cfg.ImmediateEvents {
		immediate[ev] = true
	}
	return &Subscriber{
		dialer:     dialer,
		cfg:        cfg,
		immediate:  immediate,
		autoToggle: autoToggle,
		signal:     signal,
		commands:   commands,
		state:      st,
		notifier:   notifier,
	}
}

// State returns the current stream state
func (s *Subscriber) State() StreamState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamState
}

// Attempts returns the number of connect cycles started so far
func (s *Subscriber) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// Run connects, streams and reconnects until ctx is cancelled
func (s *Subscriber) Run(ctx context.Context) {
	log := logger.WithComponent("subscriber")

	for ctx.Err() == nil {
		err := s.session(ctx)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			err = &glazewm.QueryError{Kind: glazewm.KindTransport, Err: glazewm.ErrStreamClosed}
		}

		health := s.state.RecordFailure(err)
		// No fresh data exists, so publish the fault without waiting on the scheduler.
		s.notifier.MaybeNotify()
		log.Warn().
			Err(err).
			Int("consecutive_errors", health.ConsecutiveErrorCount).
			Dur("backoff", s.cfg.ReconnectBackoff).
			Msg("GlazeWM event stream lost, reconnecting")

		if !sleepContext(ctx, s.cfg.ReconnectBackoff) {
			return
		}
	}
}

// session runs one Connecting -> Subscribed -> Disconnected cycle
func (s *Subscriber) session(ctx context.Context) error {
	log := logger.WithComponent("subscriber")

	s.setState(StreamConnecting, nil)
	defer s.teardown()

	connectCtx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
	defer cancel()

	conn, err := s.dialer.Dial(connectCtx)
	if err != nil {
		return glazewm.Classify(err, "failed to connect event stream")
	}
	s.setState(StreamConnecting, conn)

	if err := s.subscribe(connectCtx, conn); err != nil {
		return err
	}
	cancel()

	s.setState(StreamSubscribed, conn)
	log.Info().Strs("events", s.cfg.Events).Msg("Connected to GlazeWM event stream")

	// After a reconnect anything may have changed while we were away.
	if s.Attempts() > 1 {
		s.signal.MarkImmediate()
	}

	for {
		raw, err := conn.Recv(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return err
		}
		s.handleFrame(ctx, raw)
	}
}

func (s *Subscriber) subscribe(ctx context.Context, conn glazewm.Conn) error {
	if err := conn.Send(ctx, glazewm.SubscribeMessage(s.cfg.Events)); err != nil {
		return glazewm.Classify(err, "failed to send subscribe request")
	}

	raw, err := conn.Recv(ctx)
	if err != nil {
		return glazewm.Classify(err, "no subscription acknowledgment")
	}

	ack, err := glazewm.DecodeResponse(raw)
	if err != nil {
		return err
	}
	if err := ack.Err(); err != nil {
		return fmt.Errorf("subscription failed: %w", err)
	}
	return nil
}

func (s *Subscriber) handleFrame(ctx context.Context, raw []byte) {
	log := logger.WithComponent("subscriber")

	eventType, err := glazewm.DecodeEvent(raw)
	if err != nil {
		log.Debug().Err(err).Msg("Skipping malformed frame")
		return
	}
	if eventType == "" {
		log.Debug().Msg("Skipping frame without event type")
		return
	}

	s.signal.MarkEvent(s.immediate[eventType])

	if eventType == glazewm.EventWindowManaged && s.autoToggle.AutoToggleTiling() {
		log.Info().Msg("New window managed, auto-toggling tiling direction")
		if err := s.commands.SendDebounced(ctx, CmdToggleTilingDirection); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn().Err(err).Msg("Auto-toggle failed")
		}
	}
}

func (s *Subscriber) setState(st StreamState, conn glazewm.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st == StreamConnecting && s.streamState != StreamConnecting {
		s.attempts++
	}
	s.streamState = st
	s.conn = conn
}

func (s *Subscriber) teardown() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.streamState = StreamDisconnected
	s.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

// Close tears down the current stream connection, unblocking a pending read
func (s *Subscriber) Close() {
	s.teardown()
}

// sleepContext sleeps for d; it returns false if ctx ended first
func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
