package dataset

import (
	"sort"

	"github.com/verte-zerg/topicq/internal/filter"
	"github.com/verte-zerg/topicq/internal/model"
)

// Catalog is the read-only canonical dataset for a session.
type Catalog struct {
	groups []model.Group
	byID   map[string]int
	cmp    Comparator
}

// NewCatalog indexes normalized groups.
func NewCatalog(groups []model.Group, cmp Comparator) *Catalog {
	if cmp == nil {
		cmp = ByteOrder{}
	}
	byID := make(map[string]int, len(groups))
	for i, g := range groups {
		byID[g.ID] = i
	}
	return &Catalog{groups: groups, byID: byID, cmp: cmp}
}

// Groups returns all groups in display order.
func (c *Catalog) Groups() []model.Group {
	return c.groups
}

// Group looks up a group by id.
func (c *Catalog) Group(id string) (model.Group, bool) {
	i, ok := c.byID[id]
	if !ok {
		return model.Group{}, false
	}
	return c.groups[i], true
}

// Selected returns the selected groups in catalog order. Unknown ids are ignored.
func (c *Catalog) Selected(sel model.Selection) []model.Group {
	if !sel.HasGroups() {
		return nil
	}
	set := sel.GroupSet()
	out := make([]model.Group, 0, len(set))
	for _, g := range c.groups {
		if _, ok := set[g.ID]; ok {
			out = append(out, g)
		}
	}
	return out
}

// FocalPerson resolves sel.PersonID within the selected groups. A person not
// present in any selected group is treated as unset.
func (c *Catalog) FocalPerson(sel model.Selection) (model.Person, bool) {
	if sel.PersonID == "" {
		return model.Person{}, false
	}
	for _, g := range c.Selected(sel) {
		if p, ok := findPerson(g, sel.PersonID); ok {
			return p, true
		}
	}
	return model.Person{}, false
}

// PersonGroupIDs lists every group, selected or not, that contains the person.
func (c *Catalog) PersonGroupIDs(personID string) []string {
	var ids []string
	for _, g := range c.groups {
		if _, ok := findPerson(g, personID); ok {
			ids = append(ids, g.ID)
		}
	}
	return ids
}

// BestGroupFor picks the group a logged action for personID is attributed to:
// the first selected group (in catalog order) containing the person, else the
// first selected group.
func (c *Catalog) BestGroupFor(personID string, sel model.Selection) (model.Group, bool) {
	groups := c.Selected(sel)
	if len(groups) == 0 {
		return model.Group{}, false
	}
	for _, g := range groups {
		if _, ok := findPerson(g, personID); ok {
			return g, true
		}
	}
	return groups[0], true
}

// ResolveSelection drops a focal person that is no longer among the
// PersonOptions of sel, so every consumer of the selection agrees on it.
func (c *Catalog) ResolveSelection(sel model.Selection) model.Selection {
	if sel.PersonID == "" {
		return sel
	}
	for _, p := range c.PersonOptions(sel) {
		if p.ID == sel.PersonID {
			return sel
		}
	}
	sel.PersonID = ""
	return sel
}

// PersonOptions returns the union of people in the selected groups whose
// profile matches the query, unique by id and sorted by name.
func (c *Catalog) PersonOptions(sel model.Selection) []model.Person {
	q := filter.Norm(sel.Query)
	seen := map[string]struct{}{}
	var people []model.Person
	for _, g := range c.Selected(sel) {
		for _, p := range g.People {
			if !filter.Person(p, q) {
				continue
			}
			if _, ok := seen[p.ID]; ok {
				continue
			}
			seen[p.ID] = struct{}{}
			people = append(people, p)
		}
	}
	sort.SliceStable(people, func(i, j int) bool {
		return c.cmp.Compare(people[i].Name, people[j].Name) < 0
	})
	return people
}

func findPerson(g model.Group, personID string) (model.Person, bool) {
	for _, p := range g.People {
		if p.ID == personID {
			return p, true
		}
	}
	return model.Person{}, false
}
