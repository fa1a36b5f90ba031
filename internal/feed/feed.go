package feed

import (
	"context"

	"haltwatch/internal/breaker"
)

// SnapshotFetcher retrieves the current circuit-breaker snapshot. A fetch
// failure means no diff is performed this invocation; it is never collapsed
// into an empty snapshot, which would wrongly mark everything as ended.
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context) (breaker.Snapshot, int, error)
}
