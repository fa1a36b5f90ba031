package intel

import (
	"testing"

	"haltwatch/internal/breaker"
)

func TestFrequencyCountsHistory(t *testing.T) {
	historical := breaker.Snapshot{
		{Symbol: "TSLT", TriggerDate: "2026-02-09", TriggerTime: "10:00:00"},
		{Symbol: "tslt", TriggerDate: "2026-02-10", TriggerTime: "09:31:02"},
		{Symbol: "NVDX", TriggerDate: "2026-02-10", TriggerTime: "09:40:00"},
	}

	if got := Frequency("TSLT", historical); got != 2 {
		t.Fatalf("频次统计应不区分大小写, got %d", got)
	}
	if got := Frequency("GME", historical); got != 1 {
		t.Fatalf("无历史记录的符号频次最小为 1, got %d", got)
	}
}

func TestTierBoundaries(t *testing.T) {
	th := DefaultThresholds()

	cases := []struct {
		freq int
		want Tier
	}{
		{1, TierStandard},
		{9, TierStandard},
		{10, TierActive},
		{14, TierActive},
		{15, TierHot},
		{19, TierHot},
		{20, TierVeryHot},
		{29, TierVeryHot},
		{30, TierSuperHot},
		{32, TierSuperHot},
	}
	for _, tc := range cases {
		if got := th.Tier(tc.freq); got != tc.want {
			t.Errorf("Tier(%d)=%s, want %s", tc.freq, got, tc.want)
		}
	}
}

func TestClassifyVIPWins(t *testing.T) {
	c := NewClassifier([]string{"tsla", "GME"}, DefaultThresholds())

	if got := c.Classify("TSLA", 1, false); got != PriorityVIP {
		t.Fatalf("VIP 名单应直接判为 VIP, got %s", got)
	}
	if !c.IsVIP("gme") {
		t.Fatal("VIP 判定应不区分大小写")
	}
}

func TestClassifyHighFrequency(t *testing.T) {
	c := NewClassifier(nil, DefaultThresholds())

	if got := c.Classify("TSLT", 15, false); got != PriorityHigh {
		t.Fatalf("频次达到阈值应判为 HIGH, got %s", got)
	}
	if got := c.Classify("TSLT", 14, false); got != PriorityStandard {
		t.Fatalf("频次未达阈值应判为 STANDARD, got %s", got)
	}
}

func TestClassifyCorrelatedFloor(t *testing.T) {
	c := NewClassifier(nil, DefaultThresholds())

	if got := c.Classify("TSLZ", 5, true); got != PriorityHigh {
		t.Fatalf("关联且频次达到次级下限应判为 HIGH, got %s", got)
	}
	if got := c.Classify("TSLZ", 4, true); got != PriorityStandard {
		t.Fatalf("关联但频次不足应判为 STANDARD, got %s", got)
	}
	if got := c.Classify("TSLZ", 5, false); got != PriorityStandard {
		t.Fatalf("非关联不应走关联提级, got %s", got)
	}
}
