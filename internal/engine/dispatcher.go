package engine

import (
	"context"
	"sync"
	"time"

	"github.com/bryanchriswhite/glazesync/internal/glazewm"
	"github.com/bryanchriswhite/glazesync/internal/logger"
)

// GlazeWM commands used by the tray surfaces
const (
	CmdToggleTilingDirection = "toggle-tiling-direction"
	CmdToggleFloating        = "toggle-floating"
	CmdClose                 = "close"
	CmdRedraw                = "wm-redraw"
	CmdReloadConfig          = "reload-config"
)

// FocusWorkspaceCommand builds the command focusing a workspace by name
func FocusWorkspaceCommand(name string) string {
	return "focus --workspace " + name
}

// Dispatcher sends fire-and-forget commands over the request connection
type Dispatcher struct {
	conn        *RequestConn
	signal      *DirtySignal
	verifyDelay time.Duration

	// done ends pending delayed verifications
	done     <-chan struct{}
	verifies sync.WaitGroup
}

// NewDispatcher creates a dispatcher. done is closed on shutdown.
func NewDispatcher(conn *RequestConn, signal *DirtySignal, verifyDelay time.Duration, done <-chan struct{}) *Dispatcher {
	return &Dispatcher{
		conn:        conn,
		signal:      signal,
		verifyDelay: verifyDelay,
		done:        done,
	}
}

// Send issues one command. On success an immediate refresh is requested.
// Failures are returned and logged, never retried.
func (d *Dispatcher) Send(ctx context.Context, command string) error {
	if err := d.roundTrip(ctx, command); err != nil {
		return err
	}
	d.signal.MarkImmediate()
	return nil
}

// SendDebounced issues a command caused by a stream event. On success the
// state is marked dirty like a debounced event, so a burst of events and
// their side-effect commands still settles into one refresh.
func (d *Dispatcher) SendDebounced(ctx context.Context, command string) error {
	if err := d.roundTrip(ctx, command); err != nil {
		return err
	}
	d.signal.MarkEvent(false)
	return nil
}

func (d *Dispatcher) roundTrip(ctx context.Context, command string) error {
	log := logger.WithComponent("dispatcher")

	resp, err := d.conn.RoundTrip(ctx, glazewm.CommandMessage(command))
	if err == nil {
		err = resp.Err()
	}
	if err != nil {
		log.Warn().Err(err).Str("command", command).Msg("Command failed")
		return err
	}

	log.Debug().Str("command", command).Msg("Command sent")
	return nil
}

// FocusWorkspace focuses a workspace and schedules one more refresh after
// verifyDelay, since GlazeWM may still be restoring windows when it replies.
func (d *Dispatcher) FocusWorkspace(ctx context.Context, name string) error {
	if err := d.Send(ctx, FocusWorkspaceCommand(name)); err != nil {
		return err
	}
	d.verifyLater()
	return nil
}

// verifyLater spawns a short-lived task marking the state dirty again
func (d *Dispatcher) verifyLater() {
	if d.verifyDelay <= 0 {
		return
	}

	d.verifies.Add(1)
	go func() {
		defer d.verifies.Done()

		timer := time.NewTimer(d.verifyDelay)
		defer timer.Stop()

		select {
		case <-timer.C:
			d.signal.MarkImmediate()
		case <-d.done:
		}
	}()
}

// Wait blocks until pending verifications have finished
func (d *Dispatcher) Wait() {
	d.verifies.Wait()
}
