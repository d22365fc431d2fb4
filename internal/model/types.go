// Package model defines shared data structures.
package model

import "time"

// Group is a named collection of people after normalization.
type Group struct {
	ID     string
	Name   string
	People []Person
}

// Person is a member of a group. The same ID across groups denotes the same individual.
type Person struct {
	ID        string            `json:"id" yaml:"id"`
	Name      string            `json:"name" yaml:"name"`
	Tags      []string          `json:"tags,omitempty" yaml:"tags,omitempty"`
	Info      map[string]string `json:"info,omitempty" yaml:"info,omitempty"`
	Questions []string          `json:"questions,omitempty" yaml:"questions,omitempty"`
}

// RawDataset is the document supplied by the dataset provider.
type RawDataset struct {
	Groups []RawGroup `json:"groups" yaml:"groups"`
}

// RawGroup is an unnormalized group record. ID and Name may hold comma-joined values.
type RawGroup struct {
	ID     string   `json:"id" yaml:"id"`
	Name   string   `json:"name" yaml:"name"`
	People []Person `json:"people" yaml:"people"`
}

// Selection is the user's current view: selected groups, an optional focal
// person and an optional free-text query.
type Selection struct {
	GroupIDs []string
	PersonID string
	Query    string
}

// HasGroups reports whether at least one group is selected.
func (s Selection) HasGroups() bool {
	return len(s.GroupIDs) > 0
}

// GroupSet returns the selected group ids as a set.
func (s Selection) GroupSet() map[string]struct{} {
	set := make(map[string]struct{}, len(s.GroupIDs))
	for _, id := range s.GroupIDs {
		set[id] = struct{}{}
	}
	return set
}

// EntryKind tags a log entry.
type EntryKind string

const (
	KindMemo          EntryKind = "memo"
	KindQuestionAsked EntryKind = "question_asked"
	KindQuestionPass  EntryKind = "question_pass"
	// KindOther covers entries of unknown or untracked type read from storage.
	KindOther EntryKind = "other"
)

// IsQuestion reports whether entries of this kind feed question stats.
func (k EntryKind) IsQuestion() bool {
	return k == KindQuestionAsked || k == KindQuestionPass
}

// Entry is an immutable interaction log record.
type Entry struct {
	ID         string
	CreatedAt  time.Time
	Kind       EntryKind
	GroupID    string
	GroupName  string
	PersonID   string
	PersonName string
	Text       string
	// RawType keeps the stored type string for KindOther entries.
	RawType string
	// Meta carries stored metadata not modeled by Kind as decoded JSON values.
	Meta map[string]any
}

// Type returns the stored type string of the entry.
func (e Entry) Type() string {
	if e.Kind == KindOther {
		return e.RawType
	}
	return string(e.Kind)
}

// StatKey identifies a question within a group/person context.
type StatKey struct {
	GroupID  string
	PersonID string
	Question string
}

// QuestionStat aggregates log activity for a StatKey.
type QuestionStat struct {
	Asked       int
	Pass        int
	LastAskedAt time.Time
}

// Total returns asked plus pass.
func (s QuestionStat) Total() int {
	return s.Asked + s.Pass
}

// Candidate is a (group, person, question) triple eligible for suggestion.
type Candidate struct {
	GroupID    string
	GroupName  string
	PersonID   string
	PersonName string
	Text       string
}

// Key returns the stat key of the candidate.
func (c Candidate) Key() StatKey {
	return StatKey{GroupID: c.GroupID, PersonID: c.PersonID, Question: c.Text}
}

// Suggestion is a scored candidate.
type Suggestion struct {
	Candidate
	Stat  QuestionStat
	Score float64
}

