package score

import (
	"time"

	"ossmk/internal/core/rules"
	"ossmk/internal/platform/config"
)

// FromConfig collects the scoring knobs from the OSSMK_ namespace once.
// cfg must already be scoped (cfg.Prefix("OSSMK_")).
func FromConfig(cfg config.Conf, now time.Time) Options {
	opts := Options{
		SelfRepoPenalty: cfg.MayFloat64("SELF_REPO_PENALTY", 1.0),
		UserOrgs:        cfg.MayCSV("USER_ORGS", nil),
		OrgRepoPenalty:  cfg.MayFloat64("ORG_REPO_PENALTY", 1.0),
		Now:             now,
	}
	if mode := cfg.MayEnum("DECAY_MODE", "", "exponential", "linear", "window", "none"); mode != "" {
		opts.Decay = &rules.Decay{
			Mode:         rules.DecayMode(mode),
			HalfLifeDays: cfg.MayFloat64("DECAY_HALF_LIFE_DAYS", 0),
			WindowDays:   cfg.MayFloat64("DECAY_WINDOW_DAYS", 0),
		}
	}
	return opts
}
