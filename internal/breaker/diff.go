package breaker

// Change is the outcome of diffing two snapshots: breakers that newly
// triggered and breakers that transitioned from open to closed.
type Change struct {
	New   []Record
	Ended []Record
}

// Empty reports whether the diff produced nothing to alert on.
func (c Change) Empty() bool {
	return len(c.New) == 0 && len(c.Ended) == 0
}

// Merge combines another Change into this one, de-duplicating by record key.
// The first-seen record for a key wins, preserving arrival order.
func (c Change) Merge(other Change) Change {
	merged := Change{
		New:   dedupAppend(c.New, other.New),
		Ended: dedupAppend(c.Ended, other.Ended),
	}
	return merged
}

func dedupAppend(base, extra []Record) []Record {
	seen := make(map[string]bool, len(base)+len(extra))
	out := make([]Record, 0, len(base)+len(extra))
	for _, rec := range base {
		if key := rec.Key(); !seen[key] {
			seen[key] = true
			out = append(out, rec)
		}
	}
	for _, rec := range extra {
		if key := rec.Key(); !seen[key] {
			seen[key] = true
			out = append(out, rec)
		}
	}
	return out
}

// Diff computes the change set between the previously persisted snapshot and
// the current one.
//
// A record is new when its key is absent from the previous snapshot. An empty
// previous snapshot therefore reports every current record as new; that is
// the deliberate baseline behaviour, and suppressing the resulting alert
// burst is the caller's policy, not the differ's.
//
// A record is ended when its key existed open in the previous snapshot and
// the current version is closed. The current version is reported so the end
// timestamp travels with the change. A key that matches a previously closed
// record is never re-reported, even if the feed reopens it through a data
// correction.
func Diff(previous, current Snapshot) Change {
	prevIdx := previous.Index()

	var change Change
	seenNew := make(map[string]bool)
	for _, rec := range current {
		key := rec.Key()
		if _, existed := prevIdx[key]; existed || seenNew[key] {
			continue
		}
		seenNew[key] = true
		change.New = append(change.New, rec)
	}

	curIdx := current.Index()
	seenEnded := make(map[string]bool)
	for _, prev := range previous {
		if prev.Closed() {
			continue
		}
		key := prev.Key()
		if seenEnded[key] {
			continue
		}
		cur, ok := curIdx[key]
		if ok && cur.Closed() {
			seenEnded[key] = true
			change.Ended = append(change.Ended, cur)
		}
	}

	return change
}
