// Package dataset loads raw group/person datasets and normalizes them into the
// canonical catalog used by suggestions.
package dataset

import (
	"sort"
	"strings"

	"github.com/verte-zerg/topicq/internal/model"
)

type groupAcc struct {
	id     string
	name   string
	people []model.Person
}

// Normalize folds raw group records into canonical groups. Comma-joined ids
// replicate the people list into each named group, records sharing an id are
// merged, people are deduplicated per group and groups are ordered by name.
func Normalize(raw model.RawDataset, cmp Comparator) []model.Group {
	if cmp == nil {
		cmp = ByteOrder{}
	}
	index := map[string]*groupAcc{}
	var order []*groupAcc
	target := func(id string) *groupAcc {
		if g, ok := index[id]; ok {
			return g
		}
		g := &groupAcc{id: id}
		index[id] = g
		order = append(order, g)
		return g
	}

	for _, rg := range raw.Groups {
		ids := splitIDs(rg.ID)
		names := splitNames(rg.Name)

		if len(ids) <= 1 {
			id := rg.ID
			if len(ids) == 1 {
				id = ids[0]
			}
			g := target(id)
			if g.name == "" {
				g.name = strings.TrimSpace(rg.Name)
			}
			g.people = append(g.people, rg.People...)
			continue
		}

		for i, id := range ids {
			g := target(id)
			if g.name == "" {
				g.name = replicaName(names, i, id)
			}
			g.people = append(g.people, rg.People...)
		}
	}

	groups := make([]model.Group, 0, len(order))
	for _, acc := range order {
		name := acc.name
		if name == "" {
			name = acc.id
		}
		groups = append(groups, model.Group{
			ID:     acc.id,
			Name:   name,
			People: dedupePeople(acc.people),
		})
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return cmp.Compare(groups[i].Name, groups[j].Name) < 0
	})
	return groups
}

func splitIDs(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func splitNames(raw string) []string {
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func replicaName(names []string, i int, id string) string {
	if i < len(names) && names[i] != "" {
		return names[i]
	}
	if len(names) > 0 && names[0] != "" {
		return names[0]
	}
	return id
}

// dedupePeople keeps the first person per id, or per name when the id is
// empty. People with neither are dropped.
func dedupePeople(people []model.Person) []model.Person {
	seen := make(map[string]struct{}, len(people))
	out := make([]model.Person, 0, len(people))
	for _, p := range people {
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" {
			p.ID = strings.TrimSpace(p.Name)
		}
		if p.ID == "" {
			continue
		}
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		p.Questions = nonEmpty(p.Questions)
		out = append(out, p)
	}
	return out
}

func nonEmpty(questions []string) []string {
	if len(questions) == 0 {
		return nil
	}
	out := make([]string, 0, len(questions))
	for _, q := range questions {
		if strings.TrimSpace(q) == "" {
			continue
		}
		out = append(out, q)
	}
	return out
}
