package rules

import (
	"os"
	"strings"

	"ossmk/internal/core/event"
	perr "ossmk/internal/platform/errors"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml"
)

var validate = validator.New()

// fileDoc is the on-disk TOML schema
type fileDoc struct {
	DecayMode         string             `toml:"decay_mode" validate:"omitempty,oneof=exponential linear window none"`
	DecayHalfLifeDays float64            `toml:"decay_half_life_days" validate:"gte=0"`
	DecayWindowDays   float64            `toml:"decay_window_days" validate:"gte=0"`
	Dimensions        map[string]fileDim `toml:"dimensions" validate:"dive"`
	Fairness          fileFairness       `toml:"fairness"`
}

type fileDim struct {
	Kinds          []string           `toml:"kinds" validate:"required,min=1,dive,oneof=commit pr review issue"`
	Weight         *float64           `toml:"weight" validate:"omitempty,gte=0"`
	WeightsByKind  map[string]float64 `toml:"weights_by_kind" validate:"dive,gte=0"`
	ClipPerUserDay map[string]int     `toml:"clip_per_user_day" validate:"dive,gte=0"`
}

type fileFairness struct {
	ClipPerUserDay map[string]int `toml:"clip_per_user_day" validate:"dive,gte=0"`
}

// Resolve maps a rule identifier to a RuleSet.
// "default", "auto" and "" use the built-ins unless OSSMK_RULES_FILE points
// at a readable file. A name ending in .toml is loaded directly. Anything
// else is an error.
func Resolve(name string) (RuleSet, error) {
	switch name {
	case "", "default", "auto":
		if p := os.Getenv("OSSMK_RULES_FILE"); p != "" {
			if _, err := os.Stat(p); err == nil {
				return LoadFile(p)
			}
		}
		return Default(), nil
	}
	if strings.HasSuffix(name, ".toml") {
		return LoadFile(name)
	}
	return RuleSet{}, perr.InvalidArgf("unknown rule set %q", name)
}

// LoadFile parses and validates a TOML rule file
func LoadFile(path string) (RuleSet, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return RuleSet{}, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "rules file %s", path)
	}
	var doc fileDoc
	if err := toml.Unmarshal(b, &doc); err != nil {
		return RuleSet{}, perr.Wrapf(err, perr.ErrorCodeValidation, "rules file %s: parse", path)
	}
	if err := validate.Struct(doc); err != nil {
		return RuleSet{}, perr.Wrapf(err, perr.ErrorCodeValidation, "rules file %s: invalid", path)
	}
	return fromDoc(doc)
}

// fromDoc converts the TOML document to the closed in-memory form,
// falling back to built-ins for absent sections
func fromDoc(doc fileDoc) (RuleSet, error) {
	def := Default()
	rs := RuleSet{
		Dimensions: make(map[string]Dimension, len(doc.Dimensions)),
		Fairness:   def.Fairness,
		Decay:      Decay{Mode: DecayNone},
	}

	for name, fd := range doc.Dimensions {
		dim := Dimension{Kinds: make(map[event.Kind]struct{}, len(fd.Kinds)), Weight: 1.0}
		for _, ks := range fd.Kinds {
			k, err := event.ParseKind(ks)
			if err != nil {
				return RuleSet{}, perr.Wrapf(err, perr.ErrorCodeValidation, "dimension %s", name)
			}
			dim.Kinds[k] = struct{}{}
		}
		if fd.Weight != nil {
			dim.Weight = *fd.Weight
		}
		if len(fd.WeightsByKind) > 0 {
			dim.ByKind = make(map[event.Kind]float64, len(fd.WeightsByKind))
			for ks, w := range fd.WeightsByKind {
				k, err := event.ParseKind(ks)
				if err != nil {
					return RuleSet{}, perr.Wrapf(err, perr.ErrorCodeValidation, "dimension %s weights_by_kind", name)
				}
				dim.ByKind[k] = w
			}
		}
		if len(fd.ClipPerUserDay) > 0 {
			dim.ClipPerUserDay = make(map[event.Kind]int, len(fd.ClipPerUserDay))
			for ks, n := range fd.ClipPerUserDay {
				k, err := event.ParseKind(ks)
				if err != nil {
					return RuleSet{}, perr.Wrapf(err, perr.ErrorCodeValidation, "dimension %s clip_per_user_day", name)
				}
				dim.ClipPerUserDay[k] = n
			}
		}
		rs.Dimensions[name] = dim
	}
	if len(rs.Dimensions) == 0 {
		rs.Dimensions = def.Dimensions
	}

	if len(doc.Fairness.ClipPerUserDay) > 0 {
		rs.Fairness = make(map[event.Kind]int, len(doc.Fairness.ClipPerUserDay))
		for ks, n := range doc.Fairness.ClipPerUserDay {
			k, err := event.ParseKind(ks)
			if err != nil {
				return RuleSet{}, perr.Wrapf(err, perr.ErrorCodeValidation, "fairness clip_per_user_day")
			}
			rs.Fairness[k] = n
		}
	}

	if doc.DecayMode != "" {
		rs.Decay = Decay{
			Mode:         DecayMode(doc.DecayMode),
			HalfLifeDays: doc.DecayHalfLifeDays,
			WindowDays:   doc.DecayWindowDays,
		}
	}
	return rs, nil
}
