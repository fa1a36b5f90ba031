package breaker

import "testing"

func TestKeyStability(t *testing.T) {
	a := Record{Symbol: "tslt ", TriggerDate: "2026-02-10", TriggerTime: "09:31:02"}
	b := Record{Symbol: "TSLT", SecurityName: "T-Rex 2X Long Tesla", TriggerDate: "2026-02-10", TriggerTime: "09:31:02", Exchange: "BZX"}

	if a.Key() != b.Key() {
		t.Fatalf("相同标识应生成相同 key: %q vs %q", a.Key(), b.Key())
	}

	closed := b
	closed.EndDate = "2026-02-10"
	closed.EndTime = "09:36:02"
	if closed.Key() != b.Key() {
		t.Fatal("结束字段不应改变 key")
	}
}

func TestKeyDelimiterEscaping(t *testing.T) {
	// 一个符号含 "|" 的行不得伪造其它记录的 key
	forged := Record{Symbol: "AB|2026-02-10", TriggerDate: "09:31:02", TriggerTime: "x"}
	honest := Record{Symbol: "AB", TriggerDate: "2026-02-10", TriggerTime: "09:31:02|x"}

	if forged.Key() == honest.Key() {
		t.Fatalf("转义失败, 两条不同记录 key 冲突: %q", forged.Key())
	}
}

func TestClosedRequiresBothEndFields(t *testing.T) {
	rec := Record{Symbol: "GME", TriggerDate: "2026-02-10", TriggerTime: "10:00:00"}
	if rec.Closed() {
		t.Fatal("无结束字段应视为 open")
	}

	rec.EndTime = "10:05:00"
	if rec.Closed() {
		t.Fatal("仅有 EndTime 应视为 open")
	}

	rec.EndDate = "2026-02-10"
	if !rec.Closed() {
		t.Fatal("两个结束字段齐全应视为 closed")
	}
}

func TestHasIdentity(t *testing.T) {
	cases := []struct {
		name string
		rec  Record
		want bool
	}{
		{"complete", Record{Symbol: "NVDA", TriggerDate: "2026-02-10", TriggerTime: "09:45:00"}, true},
		{"missing symbol", Record{TriggerDate: "2026-02-10", TriggerTime: "09:45:00"}, false},
		{"missing date", Record{Symbol: "NVDA", TriggerTime: "09:45:00"}, false},
		{"blank time", Record{Symbol: "NVDA", TriggerDate: "2026-02-10", TriggerTime: "  "}, false},
	}

	for _, tc := range cases {
		if got := tc.rec.HasIdentity(); got != tc.want {
			t.Errorf("%s: HasIdentity=%v, want %v", tc.name, got, tc.want)
		}
	}
}
