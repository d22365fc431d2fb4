// Package app ties the dataset, log and ranker into user-level operations.
package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/verte-zerg/topicq/internal/dataset"
	"github.com/verte-zerg/topicq/internal/filter"
	"github.com/verte-zerg/topicq/internal/logstore"
	"github.com/verte-zerg/topicq/internal/model"
	"github.com/verte-zerg/topicq/internal/stats"
	"github.com/verte-zerg/topicq/internal/suggest"
)

var (
	ErrNoGroupSelected = errors.New("no group selected")
	ErrNoPerson        = errors.New("no person selected")
	ErrEmptyMemo       = errors.New("memo is empty")
	ErrEmptyQuestion   = errors.New("question is empty")
	ErrNothingToDelete = errors.New("no visible log entries to delete")
)

// Mode records how a suggested question went.
type Mode int

const (
	Asked Mode = iota
	Pass
)

// ParseMode accepts "asked"/"ask" and "pass".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asked", "ask":
		return Asked, nil
	case "pass", "passed":
		return Pass, nil
	default:
		return 0, fmt.Errorf("unknown mode %q (expected asked or pass)", s)
	}
}

func (m Mode) kind() model.EntryKind {
	if m == Pass {
		return model.KindQuestionPass
	}
	return model.KindQuestionAsked
}

// QuestionRef pins the context of a logged question. Empty fields fall back to
// the selection.
type QuestionRef struct {
	GroupID  string
	PersonID string
}

// App holds the session state shared by the CLI and the TUI.
type App struct {
	catalog   *dataset.Catalog
	log       *logstore.Log
	accordion *logstore.Accordion
	ranker    *suggest.Ranker
	now       func() time.Time
}

// Option configures an App.
type Option func(*App)

// WithClock sets the time source used for reports.
func WithClock(now func() time.Time) Option {
	return func(a *App) {
		if now != nil {
			a.now = now
		}
	}
}

// New assembles an App.
func New(catalog *dataset.Catalog, log *logstore.Log, accordion *logstore.Accordion, ranker *suggest.Ranker, opts ...Option) *App {
	a := &App{
		catalog:   catalog,
		log:       log,
		accordion: accordion,
		ranker:    ranker,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Catalog returns the loaded dataset.
func (a *App) Catalog() *dataset.Catalog {
	return a.catalog
}

// Stats aggregates the current log.
func (a *App) Stats(ctx context.Context) stats.QuestionStats {
	return stats.BuildQuestionStats(a.log.All(ctx))
}

// Suggest returns the ranked shortlist for the selection. The log is read
// once per call.
func (a *App) Suggest(ctx context.Context, sel model.Selection) []model.Suggestion {
	if !sel.HasGroups() {
		return nil
	}
	return a.ranker.Rank(suggest.Candidates(a.catalog, sel), a.Stats(ctx))
}

// Explain evaluates every candidate of the selection, excluded ones included.
func (a *App) Explain(ctx context.Context, sel model.Selection) []suggest.Verdict {
	if !sel.HasGroups() {
		return nil
	}
	return a.ranker.Evaluate(suggest.Candidates(a.catalog, sel), a.Stats(ctx))
}

// PersonOptions lists the people selectable under the current groups and query.
func (a *App) PersonOptions(sel model.Selection) []model.Person {
	return a.catalog.PersonOptions(sel)
}

// ResolveSelection clears a focal person that the selected groups and query no
// longer offer. Callers apply it whenever the selection changes.
func (a *App) ResolveSelection(sel model.Selection) model.Selection {
	return a.catalog.ResolveSelection(sel)
}

// LogQuestion records that question was asked or passed.
func (a *App) LogQuestion(ctx context.Context, sel model.Selection, mode Mode, question string, ref QuestionRef) (model.Entry, error) {
	if len(a.catalog.Selected(sel)) == 0 {
		return model.Entry{}, ErrNoGroupSelected
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return model.Entry{}, ErrEmptyQuestion
	}

	personSel := sel
	if ref.PersonID != "" {
		personSel.PersonID = ref.PersonID
	}
	person, ok := a.catalog.FocalPerson(personSel)
	if !ok {
		return model.Entry{}, ErrNoPerson
	}

	group, ok := a.catalog.Group(ref.GroupID)
	if ref.GroupID == "" || !ok {
		group, ok = a.catalog.BestGroupFor(person.ID, sel)
		if !ok {
			return model.Entry{}, ErrNoGroupSelected
		}
	}

	return a.log.Append(ctx, model.Entry{
		Kind:       mode.kind(),
		GroupID:    group.ID,
		GroupName:  group.Name,
		PersonID:   person.ID,
		PersonName: person.Name,
		Text:       question,
	})
}

// SaveMemo records a free-text memo against the focal person's best group,
// or the first selected group without one.
func (a *App) SaveMemo(ctx context.Context, sel model.Selection, text string) (model.Entry, error) {
	groups := a.catalog.Selected(sel)
	if len(groups) == 0 {
		return model.Entry{}, ErrNoGroupSelected
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Entry{}, ErrEmptyMemo
	}

	e := model.Entry{Kind: model.KindMemo, Text: text}
	group := groups[0]
	if person, ok := a.catalog.FocalPerson(sel); ok {
		if g, ok := a.catalog.BestGroupFor(person.ID, sel); ok {
			group = g
		}
		e.PersonID = person.ID
		e.PersonName = person.Name
	}
	e.GroupID = group.ID
	e.GroupName = group.Name
	return a.log.Append(ctx, e)
}

// VisibleLogs returns the entries matching the selection, newest first.
func (a *App) VisibleLogs(ctx context.Context, sel model.Selection) []model.Entry {
	match := filter.EntryFunc(a.ResolveSelection(sel))
	all := a.log.All(ctx)
	out := make([]model.Entry, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if match(all[i]) {
			out = append(out, all[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// DeleteVisible removes exactly the entries VisibleLogs would show.
func (a *App) DeleteVisible(ctx context.Context, sel model.Selection) (int, error) {
	n, err := a.log.RemoveWhere(ctx, filter.EntryFunc(a.ResolveSelection(sel)))
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrNothingToDelete
	}
	return n, nil
}

// DeleteAll clears the log.
func (a *App) DeleteAll(ctx context.Context) error {
	return a.log.RemoveAll(ctx)
}

// DeleteEntry removes one entry by id.
func (a *App) DeleteEntry(ctx context.Context, id string) error {
	return a.log.Remove(ctx, id)
}

// Report builds the stats report over the last days.
func (a *App) Report(ctx context.Context, days, smoothing int) stats.Report {
	return stats.BuildReport(a.log.All(ctx), a.now(), days, smoothing)
}

// IsOpen reports the persisted expansion state of a person row.
func (a *App) IsOpen(ctx context.Context, groupID, personID string) bool {
	return a.accordion.IsOpen(ctx, groupID, personID)
}

// OpenRows loads the expansion state once for rendering many rows.
func (a *App) OpenRows(ctx context.Context) func(groupID, personID string) bool {
	return a.accordion.Snapshot(ctx)
}

// SetOpen persists the expansion state of a person row.
func (a *App) SetOpen(ctx context.Context, groupID, personID string, open bool) error {
	return a.accordion.SetOpen(ctx, groupID, personID, open)
}
