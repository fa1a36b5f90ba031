package breaker

// Snapshot is the full set of circuit-breaker records observed at one poll,
// in feed order.
type Snapshot []Record

// Index builds a key lookup over the snapshot. Duplicate keys are not
// expected from the feed but must not break the diff; the first occurrence
// wins.
func (s Snapshot) Index() map[string]Record {
	idx := make(map[string]Record, len(s))
	for _, rec := range s {
		key := rec.Key()
		if _, ok := idx[key]; !ok {
			idx[key] = rec
		}
	}
	return idx
}

// OpenRecords returns the records whose breaker has not ended yet.
func (s Snapshot) OpenRecords() Snapshot {
	open := make(Snapshot, 0, len(s))
	for _, rec := range s {
		if rec.Open() {
			open = append(open, rec)
		}
	}
	return open
}

// Sanitize drops rows that are missing identity fields and reports how many
// were excluded. Malformed rows are an observability concern, not a fatal
// condition.
func Sanitize(rows []Record) (Snapshot, int) {
	clean := make(Snapshot, 0, len(rows))
	excluded := 0
	for _, rec := range rows {
		if !rec.HasIdentity() {
			excluded++
			continue
		}
		clean = append(clean, rec)
	}
	return clean, excluded
}
