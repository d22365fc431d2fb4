package suggest

import (
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/verte-zerg/topicq/internal/model"
	"github.com/verte-zerg/topicq/internal/stats"
)

// Default ranking policy values.
const (
	DefaultLimit          = 8
	DefaultCooldownDays   = 7.0
	DefaultPassHardLimit  = 3
	DefaultPassRateLimit  = 0.6
	DefaultRateMinTotal   = 3
	DefaultRecencyCapDays = 30.0
	DefaultJitter         = 3.0

	baseScore    = 100.0
	askedPenalty = 18.0
	passPenalty  = 28.0
)

// Policy holds the eligibility limits and scoring knobs.
type Policy struct {
	Limit          int
	CooldownDays   float64
	PassHardLimit  int
	PassRateLimit  float64
	RateMinTotal   int
	RecencyCapDays float64
	Jitter         float64
}

// DefaultPolicy returns the stock ranking policy.
func DefaultPolicy() Policy {
	return Policy{
		Limit:          DefaultLimit,
		CooldownDays:   DefaultCooldownDays,
		PassHardLimit:  DefaultPassHardLimit,
		PassRateLimit:  DefaultPassRateLimit,
		RateMinTotal:   DefaultRateMinTotal,
		RecencyCapDays: DefaultRecencyCapDays,
		Jitter:         DefaultJitter,
	}
}

// Exclusion explains why a candidate was filtered out.
type Exclusion int

const (
	Eligible Exclusion = iota
	ExcludedPassLimit
	ExcludedPassRate
	ExcludedCooldown
)

func (e Exclusion) String() string {
	switch e {
	case ExcludedPassLimit:
		return "pass-limit"
	case ExcludedPassRate:
		return "pass-rate"
	case ExcludedCooldown:
		return "cooldown"
	default:
		return "eligible"
	}
}

// Verdict is the evaluation of one candidate.
type Verdict struct {
	model.Suggestion
	Exclusion Exclusion
}

// Ranker filters and scores candidates.
type Ranker struct {
	policy Policy
	now    func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

// Option configures a Ranker.
type Option func(*Ranker)

// WithRand sets the random generator used for jitter.
func WithRand(rnd *rand.Rand) Option {
	return func(r *Ranker) {
		if rnd != nil {
			r.rnd = rnd
		}
	}
}

// WithSeed seeds the jitter generator.
func WithSeed(seed int64) Option {
	return WithRand(rand.New(rand.NewSource(seed)))
}

// WithJitter overrides the policy jitter bound. Zero makes ranking
// deterministic.
func WithJitter(bound float64) Option {
	return func(r *Ranker) {
		r.policy.Jitter = bound
	}
}

// WithClock sets the time source for recency.
func WithClock(now func() time.Time) Option {
	return func(r *Ranker) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRanker returns a Ranker seeded with the current time.
func NewRanker(policy Policy, opts ...Option) *Ranker {
	r := &Ranker{
		policy: policy,
		now:    time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Policy returns the ranker's policy.
func (r *Ranker) Policy() Policy {
	return r.policy
}

// Check applies the hard pass limit, the pass-rate limit and the cooldown.
func (r *Ranker) Check(st model.QuestionStat, now time.Time) Exclusion {
	p := r.policy
	if st.Pass >= p.PassHardLimit {
		return ExcludedPassLimit
	}
	if st.Total() >= p.RateMinTotal && stats.PassRate(st) > p.PassRateLimit {
		return ExcludedPassRate
	}
	if stats.DaysSince(st.LastAskedAt, now) < p.CooldownDays {
		return ExcludedCooldown
	}
	return Eligible
}

// BaseScore is the score without jitter.
func (r *Ranker) BaseScore(st model.QuestionStat, now time.Time) float64 {
	recency := math.Min(r.policy.RecencyCapDays, stats.DaysSince(st.LastAskedAt, now))
	return baseScore + recency - askedPenalty*float64(st.Asked) - passPenalty*float64(st.Pass)
}

// Evaluate checks and scores every candidate without dropping any.
func (r *Ranker) Evaluate(cands []model.Candidate, qs stats.QuestionStats) []Verdict {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Verdict, 0, len(cands))
	for _, c := range cands {
		st := qs.Lookup(c.Key())
		v := Verdict{
			Suggestion: model.Suggestion{Candidate: c, Stat: st},
			Exclusion:  r.Check(st, now),
		}
		if v.Exclusion == Eligible {
			v.Score = r.BaseScore(st, now) + r.jitter()
		}
		out = append(out, v)
	}
	return out
}

// Rank returns the eligible candidates by descending score, bounded by the
// policy limit.
func (r *Ranker) Rank(cands []model.Candidate, qs stats.QuestionStats) []model.Suggestion {
	var out []model.Suggestion
	for _, v := range r.Evaluate(cands, qs) {
		if v.Exclusion != Eligible {
			continue
		}
		out = append(out, v.Suggestion)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	if r.policy.Limit > 0 && len(out) > r.policy.Limit {
		out = out[:r.policy.Limit]
	}
	return out
}

func (r *Ranker) jitter() float64 {
	if r.policy.Jitter <= 0 {
		return 0
	}
	return r.rnd.Float64() * r.policy.Jitter
}
