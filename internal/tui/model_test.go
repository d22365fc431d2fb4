package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/topicq/internal/app"
	"github.com/verte-zerg/topicq/internal/dataset"
	"github.com/verte-zerg/topicq/internal/logstore"
	"github.com/verte-zerg/topicq/internal/model"
	"github.com/verte-zerg/topicq/internal/stats"
	"github.com/verte-zerg/topicq/internal/store"
	"github.com/verte-zerg/topicq/internal/suggest"
)

func newTestApp(t *testing.T) *app.App {
	t.Helper()
	return newTestAppWith(t, store.NewMemory())
}

func newTestAppWith(t *testing.T, blobs store.Blobs) *app.App {
	t.Helper()
	raw := model.RawDataset{Groups: []model.RawGroup{
		{ID: "club", Name: "Club", People: []model.Person{
			{ID: "p1", Name: "Chika", Questions: []string{"Favorite racket?", "Weekend plans?"}},
			{ID: "p2", Name: "Aki", Questions: []string{"Best food?"}},
		}},
		{ID: "work", Name: "Work", People: []model.Person{
			{ID: "p3", Name: "Ben", Questions: []string{"Coffee or tea?"}},
		}},
	}}
	catalog := dataset.NewCatalog(dataset.Normalize(raw, dataset.ByteOrder{}), dataset.ByteOrder{})
	ranker := suggest.NewRanker(suggest.DefaultPolicy(), suggest.WithJitter(0))
	return app.New(catalog, logstore.New(blobs), logstore.NewAccordion(blobs), ranker)
}

func newTestModel(t *testing.T, sel model.Selection) (*Model, *app.App) {
	t.Helper()
	a := newTestApp(t)
	m := NewModel(a, sel)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m, a
}

func press(m *Model, keys ...string) {
	for _, k := range keys {
		m.Update(keyMsg(k))
	}
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
}

func TestBuildRowsFoldsCandidates(t *testing.T) {
	cands := []model.Candidate{
		{GroupID: "club", GroupName: "Club", PersonID: "p1", PersonName: "Chika", Text: "a"},
		{GroupID: "club", GroupName: "Club", PersonID: "p1", PersonName: "Chika", Text: "b"},
		{GroupID: "club", GroupName: "Club", PersonID: "p2", PersonName: "Aki", Text: "c"},
		{GroupID: "work", GroupName: "Work", PersonID: "p1", PersonName: "Chika", Text: "d"},
	}
	open := func(groupID, personID string) bool { return groupID == "club" && personID == "p1" }
	rows := buildRows(cands, open)
	kinds := make([]rowKind, len(rows))
	for i, r := range rows {
		kinds[i] = r.kind
	}
	want := []rowKind{rowGroup, rowPerson, rowQuestion, rowQuestion, rowPerson, rowGroup, rowPerson}
	if len(kinds) != len(want) {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("row %d: expected kind %d, got %d", i, want[i], kinds[i])
		}
	}
	if rows[1].count != 2 || rows[4].count != 1 || rows[4].open {
		t.Fatalf("unexpected person rows: %+v %+v", rows[1], rows[4])
	}
}

func TestRowLines(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	person := browseRow{kind: rowPerson, personName: "Chika", count: 2, open: true}
	if got := person.line(nil, now); got != "  ▾ Chika (2)" {
		t.Fatalf("unexpected person line %q", got)
	}
	q := browseRow{kind: rowQuestion, groupID: "club", personID: "p1", question: "hobby?"}
	qs := stats.QuestionStats{
		{GroupID: "club", PersonID: "p1", Question: "hobby?"}: {Asked: 2, Pass: 1, LastAskedAt: now.Add(-72 * time.Hour)},
	}
	if got := q.line(qs, now); !strings.Contains(got, "asked 2 · pass 1 · 3 days ago") {
		t.Fatalf("unexpected question line %q", got)
	}
}

func TestAskFromSuggestTab(t *testing.T) {
	m, a := newTestModel(t, model.Selection{GroupIDs: []string{"club"}, PersonID: "p1"})
	if len(m.suggestions) != 2 {
		t.Fatalf("expected 2 suggestions, got %d", len(m.suggestions))
	}
	press(m, "a")
	logs := a.VisibleLogs(context.Background(), model.Selection{})
	if len(logs) != 1 || logs[0].Kind != model.KindQuestionAsked || logs[0].Text != "Favorite racket?" {
		t.Fatalf("unexpected log: %+v", logs)
	}
	if len(m.suggestions) != 1 {
		t.Fatalf("asked question must leave the shortlist, got %d", len(m.suggestions))
	}
	if !strings.Contains(m.status, "Logged asked") {
		t.Fatalf("unexpected status %q", m.status)
	}
}

func TestBrowseExpandAndPass(t *testing.T) {
	m, a := newTestModel(t, model.Selection{GroupIDs: []string{"club"}})
	press(m, "right")
	if m.activeTab != tabBrowse || len(m.rows) != 3 {
		t.Fatalf("expected collapsed browse rows, got tab %d rows %+v", m.activeTab, m.rows)
	}
	press(m, "down", "enter")
	if len(m.rows) != 5 || m.rows[2].kind != rowQuestion {
		t.Fatalf("expected expanded person, got %+v", m.rows)
	}
	if !a.IsOpen(context.Background(), "club", "p1") {
		t.Fatalf("expansion must persist")
	}
	press(m, "down", "s")
	logs := a.VisibleLogs(context.Background(), model.Selection{})
	if len(logs) != 1 || logs[0].Kind != model.KindQuestionPass || logs[0].PersonID != "p1" {
		t.Fatalf("unexpected log: %+v", logs)
	}
}

func TestDeleteVisibleNeedsConfirmation(t *testing.T) {
	m, a := newTestModel(t, model.Selection{GroupIDs: []string{"club"}})
	ctx := context.Background()
	if _, err := a.SaveMemo(ctx, model.Selection{GroupIDs: []string{"club"}}, "note"); err != nil {
		t.Fatalf("save memo: %v", err)
	}
	press(m, "right", "right")
	if m.activeTab != tabLog {
		t.Fatalf("expected log tab, got %d", m.activeTab)
	}
	press(m, "D", "n")
	if got := a.VisibleLogs(ctx, model.Selection{}); len(got) != 1 {
		t.Fatalf("cancelled delete must keep entries, got %d", len(got))
	}
	press(m, "D", "y")
	if got := a.VisibleLogs(ctx, model.Selection{}); len(got) != 0 {
		t.Fatalf("expected entries deleted, got %d", len(got))
	}
	if m.status != "Deleted 1 entries." {
		t.Fatalf("unexpected status %q", m.status)
	}
}

func TestGroupPickerTogglesSelection(t *testing.T) {
	m, _ := newTestModel(t, model.Selection{})
	press(m, "g", " ", "down", " ", "enter")
	ids := m.Selection().GroupIDs
	if len(ids) != 2 || ids[0] != "club" || ids[1] != "work" {
		t.Fatalf("unexpected groups %v", ids)
	}
	press(m, "g", " ", "enter")
	ids = m.Selection().GroupIDs
	if len(ids) != 1 || ids[0] != "work" {
		t.Fatalf("expected club deselected, got %v", ids)
	}
}

func TestPersonPicker(t *testing.T) {
	m, _ := newTestModel(t, model.Selection{GroupIDs: []string{"club"}})
	press(m, "p", "down", "enter")
	if m.Selection().PersonID != "p2" {
		t.Fatalf("expected Aki (sorted first), got %q", m.Selection().PersonID)
	}
	press(m, "p", "enter")
	if m.Selection().PersonID != "" {
		t.Fatalf("expected person cleared, got %q", m.Selection().PersonID)
	}
}

func TestSearchInput(t *testing.T) {
	m, _ := newTestModel(t, model.Selection{GroupIDs: []string{"club", "work"}})
	press(m, "/", "tea", "enter")
	if m.Selection().Query != "tea" {
		t.Fatalf("unexpected query %q", m.Selection().Query)
	}
	if len(m.suggestions) != 1 || m.suggestions[0].Text != "Coffee or tea?" {
		t.Fatalf("unexpected suggestions %+v", m.suggestions)
	}
}

func TestEmptyMemoShowsError(t *testing.T) {
	m, _ := newTestModel(t, model.Selection{GroupIDs: []string{"club"}})
	press(m, "m", "enter")
	if m.errMsg != "Memo is empty." {
		t.Fatalf("unexpected error %q", m.errMsg)
	}
}

func TestViewShowsTabsAndSelection(t *testing.T) {
	m, _ := newTestModel(t, model.Selection{GroupIDs: []string{"club"}, PersonID: "p1"})
	view := m.View()
	for _, want := range []string{"Suggest", "Browse", "Log", "Groups: Club", "Person: Chika", "Favorite racket?"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
	if lines := strings.Split(view, "\n"); len(lines) != 30 {
		t.Fatalf("expected view to fill 30 lines, got %d", len(lines))
	}
}

func TestQueryDropsHiddenPerson(t *testing.T) {
	m, a := newTestModel(t, model.Selection{GroupIDs: []string{"club"}, PersonID: "p1"})
	ref := app.QuestionRef{PersonID: "p2"}
	if _, err := a.LogQuestion(context.Background(), m.Selection(), app.Pass, "Best food?", ref); err != nil {
		t.Fatalf("log question: %v", err)
	}
	press(m, "/", "aki", "enter")
	if m.Selection().PersonID != "" {
		t.Fatalf("expected person filtered out by the query to be cleared, got %+v", m.Selection())
	}
	if len(m.logs) != 1 || m.logs[0].PersonID != "p2" {
		t.Fatalf("log view must not keep the old person filter, got %+v", m.logs)
	}
}

type countingBlobs struct {
	store.Blobs
	accordionReads int
}

func (c *countingBlobs) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if key == logstore.AccordionKey {
		c.accordionReads++
	}
	return c.Blobs.Get(ctx, key)
}

func TestRefreshReadsAccordionOnce(t *testing.T) {
	blobs := &countingBlobs{Blobs: store.NewMemory()}
	a := newTestAppWith(t, blobs)
	m := NewModel(a, model.Selection{GroupIDs: []string{"club", "work"}})
	if len(m.rows) < 3 {
		t.Fatalf("expected several person rows, got %d", len(m.rows))
	}
	blobs.accordionReads = 0
	m.refresh()
	if blobs.accordionReads != 1 {
		t.Fatalf("expected one accordion read per refresh, got %d", blobs.accordionReads)
	}
}
