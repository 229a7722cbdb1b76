// Package validator re-validates the accumulated collections of a run:
// field-level checks, duplicate detection, list-field parsing,
// cross-reference integrity, and completeness warnings.
package validator

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Rules bounds field values and sets the import gate thresholds. The
// defaults can be overridden by a YAML rules file.
type Rules struct {
	// MaxNameLength bounds saint/location display and legal names.
	MaxNameLength int `yaml:"max_name_length"`
	// MaxBeverageNameLength bounds each parsed beverage name.
	MaxBeverageNameLength int `yaml:"max_beverage_name_length"`
	// MaxTextLength bounds free-text fields (burger, description).
	MaxTextLength int `yaml:"max_text_length"`
	// EmptyTokens are list-field values equivalent to "no entries".
	EmptyTokens []string `yaml:"empty_tokens"`
	// MinSuccessRate is the gate's minimum valid/total ratio.
	MinSuccessRate float64 `yaml:"min_success_rate"`
	// MaxErrorRate is the gate's maximum error fraction.
	MaxErrorRate float64 `yaml:"max_error_rate"`
}

// DefaultRules returns the built-in rule set.
func DefaultRules() Rules {
	return Rules{
		MaxNameLength:         100,
		MaxBeverageNameLength: 100,
		MaxTextLength:         500,
		EmptyTokens:           []string{"n/a", "none", "-"},
		MinSuccessRate:        0.90,
		MaxErrorRate:          0.10,
	}
}

// LoadRules reads a YAML rules file over the defaults.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()

	data, err := os.ReadFile(path)
	if err != nil {
		return rules, eris.Wrapf(err, "validator: read rules %s", path)
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return rules, eris.Wrapf(err, "validator: parse rules %s", path)
	}
	if rules.MinSuccessRate <= 0 || rules.MinSuccessRate > 1 {
		return rules, eris.Errorf("validator: min_success_rate %v out of (0,1]", rules.MinSuccessRate)
	}
	if rules.MaxErrorRate < 0 || rules.MaxErrorRate >= 1 {
		return rules, eris.Errorf("validator: max_error_rate %v out of [0,1)", rules.MaxErrorRate)
	}
	return rules, nil
}
