package domain

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

func TestPassReport_Finalize_SortAndSummaryAndUTC(t *testing.T) {
	r := PassReport{
		PassID:     "p1",
		StartedAt:  time.Date(2026, 2, 9, 10, 0, 0, 0, time.FixedZone("X", 8*3600)),
		FinishedAt: time.Date(2026, 2, 9, 10, 0, 1, 0, time.FixedZone("X", 8*3600)),
		Rows: []RowResult{
			{Key: "3", Line: 4, Status: StatusSkipped},
			{Key: "1", Line: 2, Status: StatusProcessed},
			{Key: "#5", Line: 5, Status: StatusFailed},
			{Key: "2", Line: 3, Status: StatusInvalid},
			{Key: "9", Line: 10, Status: StatusEmpty},
		},
	}

	r.Finalize()

	got := []int{r.Rows[0].Line, r.Rows[1].Line, r.Rows[2].Line, r.Rows[3].Line, r.Rows[4].Line}
	want := []int{2, 3, 4, 5, 10}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rows 排序不符合契约：%v", got)
		}
	}
	s := r.Summary
	if s.Processed != 1 || s.Skipped != 1 || s.Invalid != 1 || s.Empty != 1 || s.Failed != 1 {
		t.Fatalf("summary 统计不正确：%+v", s)
	}

	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("json.Marshal 失败：%v", err)
	}
	if !bytes.Contains(b, []byte("\"started_at\":\"2026-02-09T02:00:00Z\"")) {
		t.Fatalf("started_at 不是 UTC RFC3339：%s", string(b))
	}
	if !bytes.Contains(b, []byte("\"missing\":[]")) {
		t.Fatalf("missing 应输出为 []：%s", string(b))
	}
}

func TestPassReport_EmptyRowsMarshalAsArray(t *testing.T) {
	b, err := json.Marshal(PassReport{PassID: "p"})
	if err != nil {
		t.Fatalf("json.Marshal 失败：%v", err)
	}
	if !bytes.Contains(b, []byte("\"rows\":[]")) {
		t.Fatalf("rows 应输出为 []：%s", string(b))
	}
}

func TestRow_KeyFallsBackToLine(t *testing.T) {
	r := Row{Line: 7, Values: map[Column]string{ColNumber: "  "}}
	if r.Key() != "#7" {
		t.Fatalf("期望 #7，实际 %q", r.Key())
	}
	r.Set(ColNumber, "42")
	if r.Key() != "42" {
		t.Fatalf("期望 42，实际 %q", r.Key())
	}
}

func TestRow_CloneIsIndependent(t *testing.T) {
	r := Row{Line: 2, Values: map[Column]string{ColTitle: "a"}}
	c := r.Clone()
	r.Set(ColTitle, "b")
	if c.Get(ColTitle) != "a" {
		t.Fatalf("Clone 不应受原行修改影响：%q", c.Get(ColTitle))
	}
}

func TestNormalizeHeader(t *testing.T) {
	cases := map[string]Column{
		"Nummer":        ColNumber,
		" dumpert-link": ColLink,
		"Media URL":     "media-url",
		"LENGTE ":       ColLength,
	}
	for in, want := range cases {
		if got := NormalizeHeader(in); got != want {
			t.Fatalf("NormalizeHeader(%q)=%q，期望 %q", in, got, want)
		}
	}
}
