package breaker

import "testing"

func rec(symbol, date, tm string) Record {
	return Record{Symbol: symbol, TriggerDate: date, TriggerTime: tm}
}

func closedRec(symbol, date, tm, endDate, endTime string) Record {
	r := rec(symbol, date, tm)
	r.EndDate = endDate
	r.EndTime = endTime
	return r
}

func TestDiffIdempotent(t *testing.T) {
	snap := Snapshot{
		rec("TSLT", "2026-02-10", "09:31:02"),
		closedRec("GME", "2026-02-10", "09:15:00", "2026-02-10", "09:20:00"),
	}

	change := Diff(snap, snap)
	if !change.Empty() {
		t.Fatalf("diff(S, S) 应为空: %+v", change)
	}
}

func TestDiffBaseline(t *testing.T) {
	current := Snapshot{
		rec("TSLT", "2026-02-10", "09:31:02"),
		rec("NVDX", "2026-02-10", "09:32:10"),
	}

	change := Diff(nil, current)
	if len(change.New) != 2 {
		t.Fatalf("空基线应将全部记录视为 new, got %d", len(change.New))
	}
	if len(change.Ended) != 0 {
		t.Fatalf("空基线不应产生 ended, got %d", len(change.Ended))
	}
}

func TestDiffNewTrigger(t *testing.T) {
	previous := Snapshot{rec("GME", "2026-02-10", "09:15:00")}
	current := Snapshot{
		rec("GME", "2026-02-10", "09:15:00"),
		rec("TSLT", "2026-02-10", "09:31:02"),
	}

	change := Diff(previous, current)
	if len(change.New) != 1 || change.New[0].Symbol != "TSLT" {
		t.Fatalf("应只检出 TSLT 为 new: %+v", change.New)
	}
	if len(change.Ended) != 0 {
		t.Fatalf("无结束记录, got %+v", change.Ended)
	}
}

func TestDiffEndedTransition(t *testing.T) {
	previous := Snapshot{rec("TSLT", "2026-02-10", "09:31:02")}
	current := Snapshot{closedRec("TSLT", "2026-02-10", "09:31:02", "2026-02-10", "09:36:02")}

	change := Diff(previous, current)
	if len(change.Ended) != 1 {
		t.Fatalf("open→closed 应检出 ended: %+v", change)
	}
	if change.Ended[0].EndTime != "09:36:02" {
		t.Fatalf("应报告携带结束时间的当前版本, got %+v", change.Ended[0])
	}
	if len(change.New) != 0 {
		t.Fatalf("同一 key 不应同时为 new: %+v", change.New)
	}
}

func TestDiffClosedRecordDisappearing(t *testing.T) {
	// 已 closed 的记录从 feed 中滚出窗口时不应再次告警
	previous := Snapshot{closedRec("TSLT", "2026-02-09", "09:31:02", "2026-02-09", "09:36:02")}
	current := Snapshot{}

	if change := Diff(previous, current); !change.Empty() {
		t.Fatalf("closed 记录消失不应产生变更: %+v", change)
	}
}

func TestDiffClosedKeyReopenNotReported(t *testing.T) {
	previous := Snapshot{closedRec("TSLT", "2026-02-10", "09:31:02", "2026-02-10", "09:36:02")}
	current := Snapshot{rec("TSLT", "2026-02-10", "09:31:02")}

	if change := Diff(previous, current); !change.Empty() {
		t.Fatalf("closed key 经数据修正重开不应重复告警: %+v", change)
	}
}

func TestDiffDuplicateKeysInCurrent(t *testing.T) {
	current := Snapshot{
		rec("TSLT", "2026-02-10", "09:31:02"),
		rec("TSLT", "2026-02-10", "09:31:02"),
	}

	change := Diff(nil, current)
	if len(change.New) != 1 {
		t.Fatalf("重复 key 应去重, got %d", len(change.New))
	}
}

func TestChangeMergeDedup(t *testing.T) {
	a := Change{New: []Record{rec("TSLT", "2026-02-10", "09:31:02")}}
	b := Change{
		New: []Record{
			rec("TSLT", "2026-02-10", "09:31:02"),
			rec("NVDX", "2026-02-10", "09:40:00"),
		},
		Ended: []Record{closedRec("GME", "2026-02-10", "09:15:00", "2026-02-10", "09:20:00")},
	}

	merged := a.Merge(b)
	if len(merged.New) != 2 {
		t.Fatalf("合并后 New 应去重为 2, got %d", len(merged.New))
	}
	if merged.New[0].Symbol != "TSLT" || merged.New[1].Symbol != "NVDX" {
		t.Fatalf("合并应保持先到顺序: %+v", merged.New)
	}
	if len(merged.Ended) != 1 {
		t.Fatalf("Ended 应为 1, got %d", len(merged.Ended))
	}
}

func TestSanitizeExcludesMalformedRows(t *testing.T) {
	rows := []Record{
		rec("TSLT", "2026-02-10", "09:31:02"),
		{Symbol: "", TriggerDate: "2026-02-10", TriggerTime: "09:31:02"},
		{Symbol: "NVDX", TriggerDate: "", TriggerTime: ""},
	}

	clean, excluded := Sanitize(rows)
	if len(clean) != 1 {
		t.Fatalf("应仅保留 1 条完整记录, got %d", len(clean))
	}
	if excluded != 2 {
		t.Fatalf("应剔除 2 条, got %d", excluded)
	}
}

func TestSnapshotOpenRecords(t *testing.T) {
	snap := Snapshot{
		rec("TSLT", "2026-02-10", "09:31:02"),
		closedRec("GME", "2026-02-10", "09:15:00", "2026-02-10", "09:20:00"),
	}

	open := snap.OpenRecords()
	if len(open) != 1 || open[0].Symbol != "TSLT" {
		t.Fatalf("OpenRecords 结果不正确: %+v", open)
	}
}
