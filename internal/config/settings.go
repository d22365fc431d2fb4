package config

import (
	"fmt"

	"github.com/verte-zerg/topicq/internal/suggest"
)

// DefaultLang is the collation locale used when none is configured.
const DefaultLang = "ja"

// Settings is the resolved configuration after defaults, file and flags.
type Settings struct {
	DataPath  string
	Lang      string
	StorePath string
	Policy    suggest.Policy
}

// Defaults returns settings with XDG paths and the stock ranking policy.
func Defaults() Settings {
	return Settings{
		DataPath:  DefaultDataPath(),
		Lang:      DefaultLang,
		StorePath: DefaultDBPath(),
		Policy:    suggest.DefaultPolicy(),
	}
}

// Apply overlays values set in the file onto s.
func (s *Settings) Apply(fc FileConfig) {
	setString(&s.DataPath, fc.Data.Path)
	setString(&s.Lang, fc.Data.Lang)
	setString(&s.StorePath, fc.Store.Path)
	setInt(&s.Policy.Limit, fc.Suggest.Limit)
	setFloat(&s.Policy.CooldownDays, fc.Suggest.CooldownDays)
	setInt(&s.Policy.PassHardLimit, fc.Suggest.PassHardLimit)
	setFloat(&s.Policy.PassRateLimit, fc.Suggest.PassRateLimit)
	setInt(&s.Policy.RateMinTotal, fc.Suggest.RateMinTotal)
	setFloat(&s.Policy.RecencyCapDays, fc.Suggest.RecencyCapDays)
	setFloat(&s.Policy.Jitter, fc.Suggest.Jitter)
}

// Validate rejects settings the ranker or loaders cannot use.
func (s Settings) Validate() error {
	if s.DataPath == "" {
		return fmt.Errorf("data path must not be empty")
	}
	if s.StorePath == "" {
		return fmt.Errorf("store path must not be empty")
	}
	p := s.Policy
	if p.Limit <= 0 {
		return fmt.Errorf("--limit must be > 0")
	}
	if p.CooldownDays < 0 {
		return fmt.Errorf("--cooldown-days must be >= 0")
	}
	if p.PassHardLimit < 0 {
		return fmt.Errorf("--pass-hard-limit must be >= 0")
	}
	if p.PassRateLimit < 0 || p.PassRateLimit > 1 {
		return fmt.Errorf("--pass-rate-limit must be between 0 and 1")
	}
	if p.RateMinTotal < 0 {
		return fmt.Errorf("--rate-min-total must be >= 0")
	}
	if p.RecencyCapDays < 0 {
		return fmt.Errorf("--recency-cap-days must be >= 0")
	}
	if p.Jitter < 0 {
		return fmt.Errorf("--jitter must be >= 0")
	}
	return nil
}

// Template returns the commented config file written by `topicq config`.
func Template() string {
	d := Defaults()
	return fmt.Sprintf(`# topicq configuration
# Uncomment a value to enable it. CLI flags override config values.

[data]
# path = %q   # Dataset file (.json, .yaml or .yml)
# lang = %q                 # Locale for sorting names

[store]
# path = %q   # SQLite file holding the log

[suggest]
# limit = %d                # Suggestions shown
# cooldown-days = %.0f        # Days before an asked question returns
# pass-hard-limit = %d      # Passes that retire a question
# pass-rate-limit = %.1f    # Pass rate that retires a question
# rate-min-total = %d       # Interactions before the pass rate applies
# recency-cap-days = %.0f    # Cap on the recency bonus
# jitter = %.1f             # Random tie-breaking range
`,
		d.DataPath,
		d.Lang,
		d.StorePath,
		d.Policy.Limit,
		d.Policy.CooldownDays,
		d.Policy.PassHardLimit,
		d.Policy.PassRateLimit,
		d.Policy.RateMinTotal,
		d.Policy.RecencyCapDays,
		d.Policy.Jitter,
	)
}

func setString(target, value *string) {
	if value != nil {
		*target = *value
	}
}

func setInt(target, value *int) {
	if value != nil {
		*target = *value
	}
}

func setFloat(target, value *float64) {
	if value != nil {
		*target = *value
	}
}
