// Package stats contains statistics calculations and reporting.
package stats

import (
	"sort"
	"time"

	"github.com/verte-zerg/topicq/internal/model"
)

// Activity holds daily question counts, oldest day first.
type Activity struct {
	Start     time.Time
	Asked     []float64
	Pass      []float64
	Smoothing int
}

// Report contains precomputed data for stats rendering.
type Report struct {
	Stats       QuestionStats
	Keys        []model.StatKey
	GroupNames  map[string]string
	PersonNames map[string]string
	Activity    Activity
	// ActiveDays counts distinct local days with question activity.
	ActiveDays int
}

// BuildReport aggregates a log snapshot. Days bounds the activity window and
// smoothing is the moving-average window applied when rendering it.
func BuildReport(entries []model.Entry, now time.Time, days, smoothing int) Report {
	r := Report{
		Stats:       BuildQuestionStats(entries),
		GroupNames:  map[string]string{},
		PersonNames: map[string]string{},
	}
	seen := map[time.Time]struct{}{}
	for _, e := range entries {
		if !e.Kind.IsQuestion() {
			continue
		}
		r.GroupNames[e.GroupID] = e.GroupName
		r.PersonNames[e.PersonID] = e.PersonName
		if !e.CreatedAt.IsZero() {
			seen[truncateDay(e.CreatedAt.In(now.Location()))] = struct{}{}
		}
	}
	r.ActiveDays = len(seen)
	r.Keys = TopKeys(r.Stats, 0)
	r.Activity = dailyActivity(entries, now, days)
	r.Activity.Smoothing = smoothing
	return r
}

func dailyActivity(entries []model.Entry, now time.Time, days int) Activity {
	if days <= 0 {
		return Activity{}
	}
	end := truncateDay(now)
	start := end.AddDate(0, 0, -(days - 1))
	act := Activity{
		Start: start,
		Asked: make([]float64, days),
		Pass:  make([]float64, days),
	}
	for _, e := range entries {
		if !e.Kind.IsQuestion() || e.CreatedAt.IsZero() {
			continue
		}
		day := truncateDay(e.CreatedAt.In(now.Location()))
		if day.Before(start) || day.After(end) {
			continue
		}
		idx := int(day.Sub(start).Hours()/24 + 0.5)
		if idx < 0 || idx >= days {
			continue
		}
		if e.Kind == model.KindQuestionAsked {
			act.Asked[idx]++
		} else {
			act.Pass[idx]++
		}
	}
	return act
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// TopKeys returns stat keys ordered by total interactions, then by key. A
// positive n limits the result.
func TopKeys(stats QuestionStats, n int) []model.StatKey {
	keys := make([]model.StatKey, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ti, tj := stats[keys[i]].Total(), stats[keys[j]].Total()
		if ti != tj {
			return ti > tj
		}
		if keys[i].GroupID != keys[j].GroupID {
			return keys[i].GroupID < keys[j].GroupID
		}
		if keys[i].PersonID != keys[j].PersonID {
			return keys[i].PersonID < keys[j].PersonID
		}
		return keys[i].Question < keys[j].Question
	})
	if n > 0 && n < len(keys) {
		keys = keys[:n]
	}
	return keys
}
