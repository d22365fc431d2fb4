// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/verte-zerg/topicq/internal/model"
)

const sparkChars = " .:-=+*#%@"

// QuestionStats maps stat keys to their aggregated counters.
type QuestionStats map[model.StatKey]model.QuestionStat

// Lookup returns the stat for key, or zero counters when absent.
func (s QuestionStats) Lookup(key model.StatKey) model.QuestionStat {
	return s[key]
}

// BuildQuestionStats folds the log into per-question counters. Only question
// entries participate: asks bump Asked and advance LastAskedAt, passes bump Pass.
func BuildQuestionStats(entries []model.Entry) QuestionStats {
	out := QuestionStats{}
	for _, e := range entries {
		if !e.Kind.IsQuestion() {
			continue
		}
		key := model.StatKey{GroupID: e.GroupID, PersonID: e.PersonID, Question: e.Text}
		cur := out[key]
		switch e.Kind {
		case model.KindQuestionAsked:
			cur.Asked++
			if cur.LastAskedAt.IsZero() || e.CreatedAt.After(cur.LastAskedAt) {
				cur.LastAskedAt = e.CreatedAt
			}
		case model.KindQuestionPass:
			cur.Pass++
		}
		out[key] = cur
	}
	return out
}

// DaysSince returns fractional days from t to now. A zero t is treated as
// never and returns +Inf.
func DaysSince(t, now time.Time) float64 {
	if t.IsZero() {
		return math.Inf(1)
	}
	return now.Sub(t).Hours() / 24
}

// PassRate returns pass/(asked+pass), or 0 with no interactions.
func PassRate(st model.QuestionStat) float64 {
	total := st.Total()
	if total == 0 {
		return 0
	}
	return float64(st.Pass) / float64(total)
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		if math.Abs(maxVal) < 1e-9 {
			return strings.Repeat(string(sparkChars[0]), len(values))
		}
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = max(0, min(idx, len(sparkChars)-1))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderSummary prints totals over every aggregated question, independent of
// how r.Keys was trimmed for display.
func RenderSummary(w io.Writer, r Report) error {
	if len(r.Stats) == 0 {
		_, err := fmt.Fprintln(w, "No question activity found.")
		return err
	}
	var asked, pass int
	for _, st := range r.Stats {
		asked += st.Asked
		pass += st.Pass
	}
	lines := []string{
		"Summary",
		fmt.Sprintf("Questions: %d", len(r.Stats)),
		fmt.Sprintf("Asked: %d", asked),
		fmt.Sprintf("Passed: %d", pass),
		fmt.Sprintf("Pass rate: %.1f%%", PassRate(model.QuestionStat{Asked: asked, Pass: pass})*100),
		fmt.Sprintf("Active days: %d", r.ActiveDays),
	}
	if len(r.Activity.Asked) > 0 {
		lines = append(lines,
			fmt.Sprintf("Asked/day  [%s]", Sparkline(MovingAverage(r.Activity.Asked, r.Activity.Smoothing))),
			fmt.Sprintf("Passed/day [%s]", Sparkline(MovingAverage(r.Activity.Pass, r.Activity.Smoothing))),
		)
	}
	lines = append(lines, "")
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderQuestionTable prints per-question counters, busiest first.
func RenderQuestionTable(w io.Writer, r Report, now time.Time, width int) error {
	if len(r.Keys) == 0 {
		return nil
	}
	headers := []string{"Group", "Person", "Question", "Asked", "Pass", "Last asked"}
	rows := make([][]string, 0, len(r.Keys))
	for _, k := range r.Keys {
		st := r.Stats[k]
		rows = append(rows, []string{
			r.GroupNames[k.GroupID],
			r.PersonNames[k.PersonID],
			k.Question,
			fmt.Sprintf("%d", st.Asked),
			fmt.Sprintf("%d", st.Pass),
			FormatAgo(st.LastAskedAt, now),
		})
	}
	return WriteTable(w, headers, rows, map[int]bool{3: true, 4: true}, width)
}

// FormatAgo renders the elapsed time since t in whole days.
func FormatAgo(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	days := DaysSince(t, now)
	switch {
	case days < 1:
		return "today"
	case days < 2:
		return "1 day ago"
	default:
		return fmt.Sprintf("%d days ago", int(days))
	}
}
