// Package suggest builds and ranks question suggestions.
package suggest

import (
	"strings"

	"github.com/verte-zerg/topicq/internal/filter"
	"github.com/verte-zerg/topicq/internal/model"
)

// Source resolves a selection against the canonical dataset.
type Source interface {
	Selected(sel model.Selection) []model.Group
	FocalPerson(sel model.Selection) (model.Person, bool)
}

// Candidates enumerates the (group, person, question) triples for a
// selection. With a focal person only that person's questions are listed,
// once per selected group they belong to. Otherwise every person of every
// selected group contributes, subject to the query.
func Candidates(src Source, sel model.Selection) []model.Candidate {
	groups := src.Selected(sel)
	if len(groups) == 0 {
		return nil
	}
	q := filter.Norm(sel.Query)

	if focal, ok := src.FocalPerson(sel); ok {
		return focalCandidates(groups, focal, q)
	}

	var out []model.Candidate
	for _, g := range groups {
		for _, p := range g.People {
			hitP := filter.Person(p, q)
			if q != "" && !hitP && !filter.AnyQuestion(p, q) {
				continue
			}
			for _, question := range p.Questions {
				if strings.TrimSpace(question) == "" {
					continue
				}
				if q != "" && !hitP && !filter.Question(question, q) {
					continue
				}
				out = append(out, candidate(g, p.ID, p.Name, question))
			}
		}
	}
	return out
}

func focalCandidates(groups []model.Group, focal model.Person, q string) []model.Candidate {
	var out []model.Candidate
	for _, g := range groups {
		member, ok := memberOf(g, focal.ID)
		if !ok {
			continue
		}
		for _, question := range member.Questions {
			if strings.TrimSpace(question) == "" {
				continue
			}
			if !filter.Question(question, q) {
				continue
			}
			out = append(out, candidate(g, focal.ID, focal.Name, question))
		}
	}
	return out
}

func memberOf(g model.Group, personID string) (model.Person, bool) {
	for _, p := range g.People {
		if p.ID == personID {
			return p, true
		}
	}
	return model.Person{}, false
}

func candidate(g model.Group, personID, personName, question string) model.Candidate {
	return model.Candidate{
		GroupID:    g.ID,
		GroupName:  g.Name,
		PersonID:   personID,
		PersonName: personName,
		Text:       question,
	}
}
