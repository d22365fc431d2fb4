package stats

import (
	"math"
	"testing"
	"time"

	"github.com/verte-zerg/topicq/internal/model"
)

func entry(kind model.EntryKind, at time.Time, text string) model.Entry {
	return model.Entry{
		Kind:      kind,
		CreatedAt: at,
		GroupID:   "club",
		GroupName: "Club",
		PersonID:  "p1",
		Text:      text,
	}
}

func TestBuildQuestionStatsFold(t *testing.T) {
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	entries := []model.Entry{
		entry(model.KindQuestionAsked, base, "hobby?"),
		entry(model.KindQuestionPass, base.Add(time.Hour), "hobby?"),
		entry(model.KindQuestionAsked, base.Add(2*time.Hour), "hobby?"),
	}
	got := BuildQuestionStats(entries)
	key := model.StatKey{GroupID: "club", PersonID: "p1", Question: "hobby?"}
	st := got.Lookup(key)
	if st.Asked != 2 || st.Pass != 1 {
		t.Fatalf("unexpected counters: %+v", st)
	}
	if !st.LastAskedAt.Equal(base.Add(2 * time.Hour)) {
		t.Fatalf("expected last asked at third entry, got %v", st.LastAskedAt)
	}
}

func TestBuildQuestionStatsKeepsLatestAsk(t *testing.T) {
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	entries := []model.Entry{
		entry(model.KindQuestionAsked, base.Add(48*time.Hour), "q"),
		entry(model.KindQuestionAsked, base, "q"),
	}
	st := BuildQuestionStats(entries).Lookup(model.StatKey{GroupID: "club", PersonID: "p1", Question: "q"})
	if !st.LastAskedAt.Equal(base.Add(48 * time.Hour)) {
		t.Fatalf("older ask must not move LastAskedAt back: %v", st.LastAskedAt)
	}
}

func TestBuildQuestionStatsIgnoresOtherEntries(t *testing.T) {
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	entries := []model.Entry{
		entry(model.KindMemo, at, "q"),
		{Kind: model.KindOther, RawType: "question_asked", GroupID: "club", PersonID: "p1", Text: "q", CreatedAt: at},
		entry(model.KindQuestionPass, at, "q"),
	}
	got := BuildQuestionStats(entries)
	if len(got) != 1 {
		t.Fatalf("expected one key, got %d", len(got))
	}
	st := got.Lookup(model.StatKey{GroupID: "club", PersonID: "p1", Question: "q"})
	if st.Asked != 0 || st.Pass != 1 || !st.LastAskedAt.IsZero() {
		t.Fatalf("unexpected stat: %+v", st)
	}
}

func TestBuildQuestionStatsSeparatesGroups(t *testing.T) {
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	a := entry(model.KindQuestionAsked, at, "q")
	b := a
	b.GroupID = "work"
	got := BuildQuestionStats([]model.Entry{a, b})
	if len(got) != 2 {
		t.Fatalf("expected per-group keys, got %d", len(got))
	}
}

func TestLookupMissingIsZero(t *testing.T) {
	st := QuestionStats{}.Lookup(model.StatKey{Question: "none"})
	if st != (model.QuestionStat{}) {
		t.Fatalf("expected zero stat, got %+v", st)
	}
}

func TestDaysSince(t *testing.T) {
	now := time.Date(2024, 5, 11, 12, 0, 0, 0, time.UTC)
	if d := DaysSince(now.Add(-36*time.Hour), now); math.Abs(d-1.5) > 1e-9 {
		t.Fatalf("expected 1.5 days, got %f", d)
	}
	if !math.IsInf(DaysSince(time.Time{}, now), 1) {
		t.Fatalf("expected +Inf for never")
	}
}

func TestPassRate(t *testing.T) {
	if r := PassRate(model.QuestionStat{Asked: 1, Pass: 3}); r != 0.75 {
		t.Fatalf("expected 0.75, got %f", r)
	}
	if r := PassRate(model.QuestionStat{}); r != 0 {
		t.Fatalf("expected 0, got %f", r)
	}
}

func TestSparklineFlatAndRange(t *testing.T) {
	if got := Sparkline([]float64{2, 2, 2}); got != "+++" {
		t.Fatalf("unexpected flat sparkline %q", got)
	}
	if got := Sparkline([]float64{0, 0, 0}); got != "   " {
		t.Fatalf("expected blank sparkline for no activity, got %q", got)
	}
	got := Sparkline([]float64{0, 1})
	if got != " @" {
		t.Fatalf("unexpected sparkline %q", got)
	}
}

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{2, 4, 6}, 2)
	want := []float64{2, 3, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
