package alerting

import (
	"strings"
	"testing"
	"time"

	"haltwatch/internal/breaker"
	"haltwatch/internal/intel"
)

func formatterNow(t *testing.T) (time.Time, *time.Location) {
	t.Helper()
	loc, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Fatalf("加载时区失败: %v", err)
	}
	return time.Date(2026, 2, 10, 9, 45, 30, 0, loc), loc
}

func TestFormatTitleAndSections(t *testing.T) {
	now, loc := formatterNow(t)
	f := NewFormatter(loc)

	started := breaker.Record{Symbol: "TSLT", SecurityName: "T-Rex 2X Long Tesla", TriggerDate: "2026-02-10", TriggerTime: "09:31:02"}
	ended := breaker.Record{Symbol: "GME", SecurityName: "GameStop Corp", TriggerDate: "2026-02-10", TriggerTime: "09:00:00", EndDate: "2026-02-10", EndTime: "09:40:00"}
	change := breaker.Change{New: []breaker.Record{started}, Ended: []breaker.Record{ended}}
	results := map[string]intel.Result{
		started.Key(): {Frequency: 6, Tier: intel.TierStandard, Correlated: true, CorrelatedSymbols: []string{"TSLZ"}, Underlying: "TSLA", Priority: intel.PriorityHigh},
	}

	msg := f.Format(change, results, now)

	if msg.Title != "CBOE Changes: 1 Started, 1 Ended (1 Correlated)" {
		t.Fatalf("标题不正确: %q", msg.Title)
	}
	if !strings.Contains(msg.Body, "**CHANGES DETECTED at 9:45:30 AM CST**") {
		t.Fatalf("缺少检测时间头: %q", msg.Body)
	}
	if !strings.Contains(msg.Body, "**1 STARTED:**") || !strings.Contains(msg.Body, "**1 ENDED:**") {
		t.Fatalf("缺少分节标题: %q", msg.Body)
	}
	if !strings.Contains(msg.Body, "**TSLA** (*TSLT*)") {
		t.Fatalf("关联符号应显示底层资产: %q", msg.Body)
	}
	if !strings.Contains(msg.Body, "[6x]") {
		t.Fatalf("缺少频次标注: %q", msg.Body)
	}
	if !strings.Contains(msg.Body, "Started Today at 09:31:02") {
		t.Fatalf("当日日期应替换为 Today: %q", msg.Body)
	}
	if !strings.Contains(msg.Body, "Ended Today at 09:40:00") {
		t.Fatalf("ended 行应使用结束时间: %q", msg.Body)
	}
	if !strings.Contains(msg.Body, "**CORRELATED UNDERLYINGS:**") || !strings.Contains(msg.Body, "TSLT + TSLZ (TSLA)") {
		t.Fatalf("缺少关联小节: %q", msg.Body)
	}
	if msg.Color != ColorCorrelated {
		t.Fatalf("关联批次颜色应为红色: %#x", msg.Color)
	}
}

func TestFormatColorEscalation(t *testing.T) {
	now, loc := formatterNow(t)
	f := NewFormatter(loc)

	rec := breaker.Record{Symbol: "NVDX", TriggerDate: "2026-02-10", TriggerTime: "10:00:00"}
	change := breaker.Change{New: []breaker.Record{rec}}

	cases := []struct {
		name   string
		result intel.Result
		want   int
	}{
		{"standard", intel.Result{Priority: intel.PriorityStandard}, ColorStandard},
		{"high", intel.Result{Priority: intel.PriorityHigh}, ColorHigh},
		{"correlated", intel.Result{Priority: intel.PriorityHigh, Correlated: true}, ColorCorrelated},
		{"vip", intel.Result{Priority: intel.PriorityVIP}, ColorVIP},
	}
	for _, tc := range cases {
		msg := f.Format(change, map[string]intel.Result{rec.Key(): tc.result}, now)
		if msg.Color != tc.want {
			t.Errorf("%s: 颜色 %#x, want %#x", tc.name, msg.Color, tc.want)
		}
	}
}

func TestFormatVIPMarkerAndOrdering(t *testing.T) {
	now, loc := formatterNow(t)
	f := NewFormatter(loc)

	plain := breaker.Record{Symbol: "ZZZZ", SecurityName: "Late Plain", TriggerDate: "2026-02-10", TriggerTime: "09:44:00"}
	vip := breaker.Record{Symbol: "TSLA", SecurityName: "Tesla Inc", TriggerDate: "2026-02-10", TriggerTime: "09:30:00"}
	change := breaker.Change{New: []breaker.Record{plain, vip}}
	results := map[string]intel.Result{
		vip.Key(): {Frequency: 1, Priority: intel.PriorityVIP, Underlying: "TSLA"},
	}

	msg := f.Format(change, results, now)
	if !strings.Contains(msg.Body, "[VIP] **TSLA**") {
		t.Fatalf("缺少 VIP 标记: %q", msg.Body)
	}
	// VIP 记录虽然触发更早, 仍应排在前面
	if strings.Index(msg.Body, "TSLA") > strings.Index(msg.Body, "ZZZZ") {
		t.Fatalf("VIP 记录应优先展示: %q", msg.Body)
	}
	if msg.Title != "CBOE Changes: 2 Started, 0 Ended (1 VIP)" {
		t.Fatalf("标题不正确: %q", msg.Title)
	}
}

func TestFormatOpenReport(t *testing.T) {
	now, loc := formatterNow(t)
	f := NewFormatter(loc)

	msg := f.FormatOpenReport(nil, now)
	if msg.Color != ColorAllClear {
		t.Fatalf("空报告颜色应为绿色: %#x", msg.Color)
	}
	if !strings.Contains(msg.Body, "No open short sale circuit breakers") {
		t.Fatalf("空报告正文不正确: %q", msg.Body)
	}

	open := breaker.Snapshot{
		{Symbol: "TSLT", SecurityName: "T-Rex 2X Long Tesla", TriggerDate: "2026-02-10", TriggerTime: "09:31:02"},
	}
	msg = f.FormatOpenReport(open, now)
	if msg.Title != "Open Circuit Breaker Report (1 Found)" {
		t.Fatalf("标题不正确: %q", msg.Title)
	}
	if !strings.Contains(msg.Body, "**TSLT**") {
		t.Fatalf("正文应包含符号: %q", msg.Body)
	}
}
