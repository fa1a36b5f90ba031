package storage

import (
	"time"

	"github.com/google/uuid"
)

// Alert event kinds.
const (
	KindStarted = "STARTED"
	KindEnded   = "ENDED"
)

// AlertEvent captures an emitted alert line for auditing and the show
// command. Intelligence metadata is stored denormalised; it is cheap and the
// audit trail should reflect what was actually sent.
type AlertEvent struct {
	ID          uuid.UUID
	RecordKey   string
	Kind        string
	Symbol      string
	TriggerDate string
	TriggerTime string
	EndTime     string
	Priority    string
	Frequency   int
	Correlated  bool
	Underlying  string
	EmittedAt   time.Time
}

// DailyCount is the number of breakers triggered on one feed date.
type DailyCount struct {
	Date  string
	Count int
}
