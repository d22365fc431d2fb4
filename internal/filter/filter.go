// Package filter holds the text normalization and match predicates shared by
// candidate generation, person listing and the log view.
package filter

import (
	"sort"
	"strings"

	"github.com/verte-zerg/topicq/internal/model"
)

// Norm trims and lower-cases s.
func Norm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Person reports whether the person's profile (name, tags, info values in key
// order) contains the normalized query. An empty query matches.
func Person(p model.Person, q string) bool {
	if q == "" {
		return true
	}
	parts := make([]string, 0, 1+len(p.Tags)+len(p.Info))
	parts = append(parts, Norm(p.Name))
	for _, tag := range p.Tags {
		parts = append(parts, Norm(tag))
	}
	keys := make([]string, 0, len(p.Info))
	for k := range p.Info {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, Norm(p.Info[k]))
	}
	return strings.Contains(strings.Join(parts, " "), q)
}

// Question reports whether the question text contains the normalized query.
func Question(question, q string) bool {
	if q == "" {
		return true
	}
	return strings.Contains(Norm(question), q)
}

// AnyQuestion reports whether any of the person's questions match q.
func AnyQuestion(p model.Person, q string) bool {
	for _, question := range p.Questions {
		if Question(question, q) {
			return true
		}
	}
	return false
}

// Entry reports whether a log entry is visible under the selection. Group set,
// person and free text must all match.
func Entry(e model.Entry, sel model.Selection) bool {
	return EntryFunc(sel)(e)
}

// EntryFunc binds Entry to a selection. Deleting the visible log relies on
// this exact predicate.
func EntryFunc(sel model.Selection) func(model.Entry) bool {
	groups := sel.GroupSet()
	q := Norm(sel.Query)
	return func(e model.Entry) bool {
		if len(groups) > 0 {
			if _, ok := groups[e.GroupID]; !ok {
				return false
			}
		}
		if sel.PersonID != "" && e.PersonID != sel.PersonID {
			return false
		}
		if q == "" {
			return true
		}
		hay := strings.Join([]string{
			Norm(e.GroupName),
			Norm(e.PersonName),
			Norm(e.Text),
			Norm(e.Type()),
		}, " ")
		return strings.Contains(hay, q)
	}
}
