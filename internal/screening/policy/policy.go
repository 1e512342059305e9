// Package policy holds the tunable screening parameters: sanctioned countries,
// similarity threshold, keyword lists and risk-level cut-offs. Defaults match
// production behaviour; a policy file or GEOPULSE_* env vars may override them.
package policy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	pstrings "geopulse/pkg/platform/strings"
)

// Policy is immutable once handed to the screening components.
type Policy struct {
	SanctionedCountries []string `mapstructure:"sanctioned_countries"`
	SimilarityThreshold float64  `mapstructure:"similarity_threshold"`

	RiskKeywords   []string `mapstructure:"risk_keywords"`
	EntityKeywords []string `mapstructure:"entity_keywords"`
	EntityPenalty  float64  `mapstructure:"entity_penalty"`

	VolatilitySamples int `mapstructure:"volatility_samples"`

	MediumThreshold float64 `mapstructure:"medium_threshold"`
	HighThreshold   float64 `mapstructure:"high_threshold"`
	BlockThreshold  float64 `mapstructure:"block_threshold"`
}

// Default returns the built-in screening policy.
func Default() Policy {
	return Policy{
		SanctionedCountries: []string{"NK", "IR", "SY", "CU", "VE", "RU"},
		SimilarityThreshold: 0.75,
		RiskKeywords: []string{
			"sanction", "war", "embargo", "laundering",
			"fraud", "corruption", "violation", "ban",
		},
		EntityKeywords:    []string{"limited", "shell", "offshore", "trust"},
		EntityPenalty:     15,
		VolatilitySamples: 30,
		MediumThreshold:   30,
		HighThreshold:     60,
		BlockThreshold:    80,
	}
}

// Load reads an optional policy file (yaml, json or toml) on top of the
// defaults. An empty path applies only env overrides.
func Load(path string) (Policy, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix("GEOPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Policy{}, fmt.Errorf("read policy file %s: %w", path, err)
		}
	}

	var p Policy
	if err := v.Unmarshal(&p); err != nil {
		return Policy{}, fmt.Errorf("decode policy: %w", err)
	}
	p = p.normalized()
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

func setDefaults(v *viper.Viper, p Policy) {
	v.SetDefault("sanctioned_countries", p.SanctionedCountries)
	v.SetDefault("similarity_threshold", p.SimilarityThreshold)
	v.SetDefault("risk_keywords", p.RiskKeywords)
	v.SetDefault("entity_keywords", p.EntityKeywords)
	v.SetDefault("entity_penalty", p.EntityPenalty)
	v.SetDefault("volatility_samples", p.VolatilitySamples)
	v.SetDefault("medium_threshold", p.MediumThreshold)
	v.SetDefault("high_threshold", p.HighThreshold)
	v.SetDefault("block_threshold", p.BlockThreshold)
}

// normalized upper-cases country codes and lower-cases keywords so matching
// code never has to.
func (p Policy) normalized() Policy {
	out := p
	out.SanctionedCountries = pstrings.Upper(p.SanctionedCountries)
	out.RiskKeywords = pstrings.Lower(p.RiskKeywords)
	out.EntityKeywords = pstrings.Lower(p.EntityKeywords)
	return out
}

// Validate rejects policies that would break the [0,100] score contract.
func (p Policy) Validate() error {
	var errs []error
	if p.SimilarityThreshold <= 0 || p.SimilarityThreshold > 1 {
		errs = append(errs, fmt.Errorf("similarity_threshold must be in (0,1], got %v", p.SimilarityThreshold))
	}
	if p.VolatilitySamples < 2 {
		errs = append(errs, fmt.Errorf("volatility_samples must be at least 2, got %d", p.VolatilitySamples))
	}
	if p.EntityPenalty < 0 || p.EntityPenalty > 100 {
		errs = append(errs, fmt.Errorf("entity_penalty must be in [0,100], got %v", p.EntityPenalty))
	}
	if !(0 <= p.MediumThreshold && p.MediumThreshold < p.HighThreshold && p.HighThreshold <= 100) {
		errs = append(errs, fmt.Errorf("risk levels must satisfy 0 <= medium < high <= 100, got %v/%v", p.MediumThreshold, p.HighThreshold))
	}
	if p.BlockThreshold < 0 || p.BlockThreshold > 100 {
		errs = append(errs, fmt.Errorf("block_threshold must be in [0,100], got %v", p.BlockThreshold))
	}
	return errors.Join(errs...)
}
