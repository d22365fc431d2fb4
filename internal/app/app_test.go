package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/verte-zerg/topicq/internal/dataset"
	"github.com/verte-zerg/topicq/internal/logstore"
	"github.com/verte-zerg/topicq/internal/model"
	"github.com/verte-zerg/topicq/internal/store"
	"github.com/verte-zerg/topicq/internal/suggest"
)

var testStart = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func newTestApp(t *testing.T) *App {
	t.Helper()
	raw := model.RawDataset{Groups: []model.RawGroup{
		{ID: "club", Name: "Club", People: []model.Person{
			{ID: "p1", Name: "Chika", Questions: []string{"Favorite racket?", "Weekend plans?"}},
			{ID: "p2", Name: "Aki", Questions: []string{"Best food?"}},
		}},
		{ID: "work", Name: "Work", People: []model.Person{
			{ID: "p3", Name: "Ben", Questions: []string{"Coffee or tea?"}},
			{ID: "p1", Name: "Chika", Questions: []string{"Current project?"}},
		}},
	}}
	catalog := dataset.NewCatalog(dataset.Normalize(raw, dataset.ByteOrder{}), dataset.ByteOrder{})
	blobs := store.NewMemory()

	now := testStart
	clock := func() time.Time { return now }
	seq := 0
	log := logstore.New(blobs,
		logstore.WithClock(func() time.Time {
			now = now.Add(time.Minute)
			return now
		}),
		logstore.WithIDFunc(func() string {
			seq++
			return fmt.Sprintf("log_%d", seq)
		}),
	)
	ranker := suggest.NewRanker(suggest.DefaultPolicy(), suggest.WithJitter(0), suggest.WithClock(clock))
	return New(catalog, log, logstore.NewAccordion(blobs), ranker, WithClock(clock))
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode(" Asked "); err != nil || m != Asked {
		t.Fatalf("expected asked, got %v %v", m, err)
	}
	if m, err := ParseMode("pass"); err != nil || m != Pass {
		t.Fatalf("expected pass, got %v %v", m, err)
	}
	if _, err := ParseMode("skip"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestLogQuestionUsesFocalPersonAndBestGroup(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	sel := model.Selection{GroupIDs: []string{"work", "club"}, PersonID: "p1"}
	e, err := a.LogQuestion(ctx, sel, Pass, " Current project? ", QuestionRef{})
	if err != nil {
		t.Fatalf("log question: %v", err)
	}
	if e.Kind != model.KindQuestionPass || e.GroupID != "club" || e.PersonName != "Chika" || e.Text != "Current project?" {
		t.Fatalf("expected the first group in catalog order, got %+v", e)
	}
}

func TestLogQuestionRefOverridesSelection(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	sel := model.Selection{GroupIDs: []string{"club", "work"}}
	e, err := a.LogQuestion(ctx, sel, Asked, "Best food?", QuestionRef{GroupID: "club", PersonID: "p2"})
	if err != nil {
		t.Fatalf("log question: %v", err)
	}
	if e.GroupID != "club" || e.PersonID != "p2" || e.Kind != model.KindQuestionAsked {
		t.Fatalf("unexpected entry %+v", e)
	}
}

func TestLogQuestionErrors(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	if _, err := a.LogQuestion(ctx, model.Selection{PersonID: "p1"}, Asked, "q", QuestionRef{}); !errors.Is(err, ErrNoGroupSelected) {
		t.Fatalf("expected ErrNoGroupSelected, got %v", err)
	}
	if _, err := a.LogQuestion(ctx, model.Selection{GroupIDs: []string{"club"}}, Asked, "q", QuestionRef{}); !errors.Is(err, ErrNoPerson) {
		t.Fatalf("expected ErrNoPerson, got %v", err)
	}
	if _, err := a.LogQuestion(ctx, model.Selection{GroupIDs: []string{"club"}, PersonID: "p1"}, Asked, "  ", QuestionRef{}); !errors.Is(err, ErrEmptyQuestion) {
		t.Fatalf("expected ErrEmptyQuestion, got %v", err)
	}
}

func TestSaveMemo(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	if _, err := a.SaveMemo(ctx, model.Selection{}, "hi"); !errors.Is(err, ErrNoGroupSelected) {
		t.Fatalf("expected ErrNoGroupSelected, got %v", err)
	}
	if _, err := a.SaveMemo(ctx, model.Selection{GroupIDs: []string{"club"}}, "   "); !errors.Is(err, ErrEmptyMemo) {
		t.Fatalf("expected ErrEmptyMemo, got %v", err)
	}

	e, err := a.SaveMemo(ctx, model.Selection{GroupIDs: []string{"club", "work"}}, " met at lunch ")
	if err != nil {
		t.Fatalf("save memo: %v", err)
	}
	if e.GroupID != "club" || e.PersonID != "" || e.Text != "met at lunch" || e.Kind != model.KindMemo {
		t.Fatalf("unexpected memo %+v", e)
	}

	e, err = a.SaveMemo(ctx, model.Selection{GroupIDs: []string{"club", "work"}, PersonID: "p3"}, "likes tea")
	if err != nil {
		t.Fatalf("save memo: %v", err)
	}
	if e.GroupID != "work" || e.PersonName != "Ben" {
		t.Fatalf("memo must follow the focal person's group: %+v", e)
	}
}

func TestSuggestExcludesRecentlyAsked(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	sel := model.Selection{GroupIDs: []string{"club"}, PersonID: "p1"}
	if got := a.Suggest(ctx, sel); len(got) != 2 {
		t.Fatalf("expected 2 suggestions, got %d", len(got))
	}
	if _, err := a.LogQuestion(ctx, sel, Asked, "Weekend plans?", QuestionRef{}); err != nil {
		t.Fatalf("log question: %v", err)
	}
	got := a.Suggest(ctx, sel)
	if len(got) != 1 || got[0].Text != "Favorite racket?" {
		t.Fatalf("asked question must be in cooldown: %+v", got)
	}

	verdicts := a.Explain(ctx, sel)
	reasons := map[string]suggest.Exclusion{}
	for _, v := range verdicts {
		reasons[v.Text] = v.Exclusion
	}
	if reasons["Weekend plans?"] != suggest.ExcludedCooldown {
		t.Fatalf("expected cooldown reason, got %v", reasons)
	}
	if a.Suggest(ctx, model.Selection{}) != nil {
		t.Fatalf("expected no suggestions without groups")
	}
}

func TestVisibleLogsNewestFirst(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	sel := model.Selection{GroupIDs: []string{"club", "work"}}
	for _, text := range []string{"one", "two", "three"} {
		if _, err := a.SaveMemo(ctx, sel, text); err != nil {
			t.Fatalf("save memo: %v", err)
		}
	}
	got := a.VisibleLogs(ctx, sel)
	if len(got) != 3 || got[0].Text != "three" || got[2].Text != "one" {
		t.Fatalf("unexpected order: %+v", got)
	}
	got = a.VisibleLogs(ctx, model.Selection{GroupIDs: []string{"club"}, Query: "TW"})
	if len(got) != 1 || got[0].Text != "two" {
		t.Fatalf("unexpected filtered logs: %+v", got)
	}
}

func TestDeleteVisibleMatchesView(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	all := model.Selection{GroupIDs: []string{"club", "work"}}
	if _, err := a.SaveMemo(ctx, all, "keep"); err != nil {
		t.Fatalf("save memo: %v", err)
	}
	if _, err := a.LogQuestion(ctx, all, Asked, "Coffee or tea?", QuestionRef{PersonID: "p3"}); err != nil {
		t.Fatalf("log question: %v", err)
	}
	if _, err := a.LogQuestion(ctx, all, Pass, "Best food?", QuestionRef{PersonID: "p2"}); err != nil {
		t.Fatalf("log question: %v", err)
	}

	view := model.Selection{GroupIDs: []string{"work"}}
	visible := a.VisibleLogs(ctx, view)
	n, err := a.DeleteVisible(ctx, view)
	if err != nil {
		t.Fatalf("delete visible: %v", err)
	}
	if n != len(visible) || n != 1 {
		t.Fatalf("expected to delete the %d visible entries, deleted %d", len(visible), n)
	}
	rest := a.VisibleLogs(ctx, model.Selection{})
	if len(rest) != 2 {
		t.Fatalf("expected 2 remaining entries, got %+v", rest)
	}
	for _, e := range rest {
		if e.GroupID == "work" {
			t.Fatalf("visible entry survived: %+v", e)
		}
	}
	if _, err := a.DeleteVisible(ctx, view); !errors.Is(err, ErrNothingToDelete) {
		t.Fatalf("expected ErrNothingToDelete, got %v", err)
	}
}

func TestDeleteEntryAndAll(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	sel := model.Selection{GroupIDs: []string{"club"}}
	first, err := a.SaveMemo(ctx, sel, "a")
	if err != nil {
		t.Fatalf("save memo: %v", err)
	}
	if _, err := a.SaveMemo(ctx, sel, "b"); err != nil {
		t.Fatalf("save memo: %v", err)
	}
	if err := a.DeleteEntry(ctx, first.ID); err != nil {
		t.Fatalf("delete entry: %v", err)
	}
	if err := a.DeleteEntry(ctx, first.ID); !errors.Is(err, logstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := a.DeleteAll(ctx); err != nil {
		t.Fatalf("delete all: %v", err)
	}
	if got := a.VisibleLogs(ctx, model.Selection{}); len(got) != 0 {
		t.Fatalf("expected empty log, got %+v", got)
	}
}

func TestAccordionState(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	if a.IsOpen(ctx, "club", "p1") {
		t.Fatalf("rows start closed")
	}
	if err := a.SetOpen(ctx, "club", "p1", true); err != nil {
		t.Fatalf("set open: %v", err)
	}
	if !a.IsOpen(ctx, "club", "p1") || a.IsOpen(ctx, "work", "p1") {
		t.Fatalf("open state must be per group and person")
	}
}

func TestReportCountsLoggedQuestions(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	sel := model.Selection{GroupIDs: []string{"club"}, PersonID: "p1"}
	if _, err := a.LogQuestion(ctx, sel, Asked, "Weekend plans?", QuestionRef{}); err != nil {
		t.Fatalf("log question: %v", err)
	}
	r := a.Report(ctx, 7, 1)
	st := r.Stats.Lookup(model.StatKey{GroupID: "club", PersonID: "p1", Question: "Weekend plans?"})
	if st.Asked != 1 {
		t.Fatalf("expected one ask in report, got %+v", st)
	}
}

func TestStalePersonDoesNotFilterLog(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	if _, err := a.LogQuestion(ctx, model.Selection{GroupIDs: []string{"work"}, PersonID: "p3"}, Asked, "Coffee or tea?", QuestionRef{}); err != nil {
		t.Fatalf("log question: %v", err)
	}

	stale := model.Selection{GroupIDs: []string{"work"}, PersonID: "p2"}
	if got := a.ResolveSelection(stale); got.PersonID != "" {
		t.Fatalf("expected stale person to be dropped, got %+v", got)
	}
	if _, ok := a.Catalog().FocalPerson(stale); ok {
		t.Fatalf("p2 must not resolve in work")
	}
	if got := a.VisibleLogs(ctx, stale); len(got) != 1 {
		t.Fatalf("log view must match the resolved selection, got %+v", got)
	}
	n, err := a.DeleteVisible(ctx, stale)
	if err != nil || n != 1 {
		t.Fatalf("expected to delete the visible entry, got %d %v", n, err)
	}
}
