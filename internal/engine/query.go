package engine

import (
	"context"

	"github.com/bryanchriswhite/glazesync/internal/glazewm"
	"github.com/bryanchriswhite/glazesync/internal/logger"
	"github.com/bryanchriswhite/glazesync/internal/state"
)

// QueryClient fetches the topology and writes it into shared state
type QueryClient struct {
	conn  *RequestConn
	state *state.SharedState
	kind  string
}

// NewQueryClient creates a client querying the monitor tree
func NewQueryClient(conn *RequestConn, st *state.SharedState) *QueryClient {
	return &QueryClient{
		conn:  conn,
		state: st,
		kind:  glazewm.TopologyMonitors,
	}
}

// Refresh queries the peer and updates the snapshot. Every failure is
// counted in shared state; nothing is retried here.
func (q *QueryClient) Refresh(ctx context.Context) error {
	log := logger.WithComponent("query")

	snap, err := q.fetch(ctx)
	if err != nil {
		health := q.state.RecordFailure(err)
		// Log the first failure of a streak and every tenth after it.
		if health.ConsecutiveErrorCount%10 == 1 {
			log.Warn().
				Err(err).
				Int("consecutive_errors", health.ConsecutiveErrorCount).
				Msg("Query failed")
		}
		return err
	}

	if q.state.ApplySnapshot(snap) {
		log.Info().Msg("GlazeWM connection restored")
	}
	log.Debug().
		Int("workspaces", len(snap.Workspaces)).
		Int("windows", snap.TotalWindowCount).
		Msg("Snapshot updated")
	return nil
}

func (q *QueryClient) fetch(ctx context.Context) (state.Snapshot, error) {
	resp, err := q.conn.RoundTrip(ctx, glazewm.QueryMessage(q.kind))
	if err != nil {
		return state.Snapshot{}, err
	}
	if err := resp.Err(); err != nil {
		return state.Snapshot{}, err
	}
	return glazewm.ParseTopology(resp.Data)
}
