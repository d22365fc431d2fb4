package tui

import (
	"fmt"
	"time"

	"github.com/verte-zerg/topicq/internal/model"
	"github.com/verte-zerg/topicq/internal/stats"
)

type rowKind int

const (
	rowGroup rowKind = iota
	rowPerson
	rowQuestion
)

type browseRow struct {
	kind       rowKind
	groupID    string
	groupName  string
	personID   string
	personName string
	question   string
	open       bool
	count      int
}

// buildRows folds ordered candidates into group headers, person rows and,
// for open people, their questions.
func buildRows(cands []model.Candidate, isOpen func(groupID, personID string) bool) []browseRow {
	var rows []browseRow
	lastGroup := ""
	personIdx := -1
	for i, c := range cands {
		if i == 0 || c.GroupID != lastGroup {
			rows = append(rows, browseRow{kind: rowGroup, groupID: c.GroupID, groupName: c.GroupName})
			lastGroup = c.GroupID
			personIdx = -1
		}
		if personIdx < 0 || rows[personIdx].personID != c.PersonID {
			rows = append(rows, browseRow{
				kind:       rowPerson,
				groupID:    c.GroupID,
				groupName:  c.GroupName,
				personID:   c.PersonID,
				personName: c.PersonName,
				open:       isOpen(c.GroupID, c.PersonID),
			})
			personIdx = len(rows) - 1
		}
		rows[personIdx].count++
		if !rows[personIdx].open {
			continue
		}
		rows = append(rows, browseRow{
			kind:       rowQuestion,
			groupID:    c.GroupID,
			groupName:  c.GroupName,
			personID:   c.PersonID,
			personName: c.PersonName,
			question:   c.Text,
		})
	}
	return rows
}

func (r browseRow) line(qs stats.QuestionStats, now time.Time) string {
	switch r.kind {
	case rowGroup:
		return r.groupName
	case rowPerson:
		marker := "▸"
		if r.open {
			marker = "▾"
		}
		return fmt.Sprintf("  %s %s (%d)", marker, r.personName, r.count)
	default:
		st := qs.Lookup(model.StatKey{GroupID: r.groupID, PersonID: r.personID, Question: r.question})
		return fmt.Sprintf("      %s  · %s", r.question, statSummary(st, now))
	}
}
