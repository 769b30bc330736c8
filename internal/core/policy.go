package core

import (
	"errors"
	"fmt"
	"math"

	"churn_service/internal/domain/model"
)

// TierThreshold assigns Tier to every probability >= Min.
type TierThreshold struct {
	Min  float64        `yaml:"min" json:"min"`
	Tier model.RiskTier `yaml:"tier" json:"tier"`
}

// WeightedFeature adds Weight to the heuristic estimate when the named
// condition holds for a record.
type WeightedFeature struct {
	Name   string  `yaml:"name" json:"name"`
	Weight float64 `yaml:"weight" json:"weight"`
}

type HeuristicWeights struct {
	Base     float64           `yaml:"base" json:"base"`
	Cap      float64           `yaml:"cap" json:"cap"`
	Features []WeightedFeature `yaml:"features" json:"features"`
}

// Policy holds every threshold and weight used to score customers.
// Thresholds must be sorted by Min, highest first.
type Policy struct {
	Thresholds             []TierThreshold             `yaml:"thresholds" json:"thresholds"`
	Floor                  model.RiskTier              `yaml:"floor" json:"floor"`
	Heuristic              HeuristicWeights            `yaml:"heuristic" json:"heuristic"`
	Actions                map[model.RiskTier][]string `yaml:"actions" json:"actions"`
	AtRiskThreshold        float64                     `yaml:"at_risk_threshold" json:"at_risk_threshold"`
	HighRiskThreshold      float64                     `yaml:"high_risk_threshold" json:"high_risk_threshold"`
	ChurnDecisionThreshold float64                     `yaml:"churn_decision_threshold" json:"churn_decision_threshold"`
}

// Feature conditions known to the heuristic, keyed by WeightedFeature.Name.
var featureConditions = map[string]func(model.CustomerRecord) bool{
	"month_to_month_contract": func(r model.CustomerRecord) bool { return r.Contract == model.ContractMonthToMonth },
	"short_tenure":            func(r model.CustomerRecord) bool { return r.Tenure < 12 },
	"fiber_internet":          func(r model.CustomerRecord) bool { return r.InternetService == model.InternetFiber },
	"electronic_check":        func(r model.CustomerRecord) bool { return r.PaymentMethod == model.PaymentElectronicCheck },
}

func DefaultPolicy() Policy {
	return Policy{
		Thresholds: []TierThreshold{
			{Min: 0.70, Tier: model.TierCritical},
			{Min: 0.50, Tier: model.TierHigh},
			{Min: 0.30, Tier: model.TierMedium},
		},
		Floor: model.TierLow,
		Heuristic: HeuristicWeights{
			Base: 0.20,
			Cap:  0.95,
			Features: []WeightedFeature{
				{Name: "month_to_month_contract", Weight: 0.30},
				{Name: "short_tenure", Weight: 0.20},
				{Name: "fiber_internet", Weight: 0.10},
				{Name: "electronic_check", Weight: 0.10},
			},
		},
		Actions: map[model.RiskTier][]string{
			model.TierCritical: {"Offer contract upgrade discount", "Assign dedicated support"},
			model.TierHigh:     {"Schedule check-in call", "Review pricing options"},
			model.TierMedium:   {"Continue standard engagement"},
			model.TierLow:      {"Continue standard engagement"},
		},
		AtRiskThreshold:        0.50,
		HighRiskThreshold:      0.70,
		ChurnDecisionThreshold: 0.50,
	}
}

func (p Policy) Validate() error {
	if len(p.Thresholds) == 0 {
		return errors.New("at least one tier threshold is required")
	}
	seen := map[model.RiskTier]bool{p.Floor: true}
	if p.Floor.Severity() < 0 {
		return fmt.Errorf("unknown floor tier %q", p.Floor)
	}
	for i, th := range p.Thresholds {
		if th.Min <= 0 || th.Min > 1 {
			return fmt.Errorf("threshold %d: min %.4f out of range (0, 1]", i, th.Min)
		}
		if th.Tier.Severity() < 0 {
			return fmt.Errorf("threshold %d: unknown tier %q", i, th.Tier)
		}
		if seen[th.Tier] {
			return fmt.Errorf("threshold %d: tier %q assigned twice", i, th.Tier)
		}
		seen[th.Tier] = true
		if i > 0 {
			prev := p.Thresholds[i-1]
			if th.Min >= prev.Min {
				return fmt.Errorf("thresholds must be strictly descending: %.4f after %.4f", th.Min, prev.Min)
			}
			if th.Tier.Severity() >= prev.Tier.Severity() {
				return fmt.Errorf("tier %q must be less severe than %q", th.Tier, prev.Tier)
			}
		}
	}
	if p.Floor.Severity() >= p.Thresholds[len(p.Thresholds)-1].Tier.Severity() {
		return fmt.Errorf("floor tier %q must be less severe than every threshold tier", p.Floor)
	}

	h := p.Heuristic
	if h.Base < 0 || h.Base > 1 {
		return fmt.Errorf("heuristic base %.4f out of range [0, 1]", h.Base)
	}
	if h.Cap <= 0 || h.Cap > 1 {
		return fmt.Errorf("heuristic cap %.4f out of range (0, 1]", h.Cap)
	}
	for _, f := range h.Features {
		if _, ok := featureConditions[f.Name]; !ok {
			return fmt.Errorf("unknown heuristic feature %q", f.Name)
		}
	}

	for name, v := range map[string]float64{
		"at_risk_threshold":        p.AtRiskThreshold,
		"high_risk_threshold":      p.HighRiskThreshold,
		"churn_decision_threshold": p.ChurnDecisionThreshold,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s %.4f out of range [0, 1]", name, v)
		}
	}
	return nil
}

// Clamp forces p into [0, 1]. NaN becomes 0.
func Clamp(p float64) float64 {
	switch {
	case math.IsNaN(p), p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}

// Classify maps a probability onto a tier. Each threshold is inclusive on
// its lower edge, so a probability equal to a boundary lands in the more
// severe tier.
func (p Policy) Classify(probability float64) model.RiskTier {
	probability = Clamp(probability)
	for _, th := range p.Thresholds {
		if probability >= th.Min {
			return th.Tier
		}
	}
	return p.Floor
}

// Estimate is a crude additive stand-in for a trained model. It is used
// only when no model score is available for a record.
func (p Policy) Estimate(rec model.CustomerRecord) float64 {
	prob := p.Heuristic.Base
	for _, f := range p.Heuristic.Features {
		cond, ok := featureConditions[f.Name]
		if ok && cond(rec) {
			prob += f.Weight
		}
	}
	if prob > p.Heuristic.Cap {
		prob = p.Heuristic.Cap
	}
	// Rounding keeps sums such as 0.2+0.3+0.2 exactly on the 0.70 boundary.
	return math.Round(prob*1e4) / 1e4
}

// Recommend returns a fresh copy of the actions for tier.
func (p Policy) Recommend(tier model.RiskTier) []string {
	actions, ok := p.Actions[tier]
	if !ok {
		actions = p.Actions[p.Floor]
	}
	out := make([]string, len(actions))
	copy(out, actions)
	return out
}

func (p Policy) Assess(probability float64) model.ChurnAssessment {
	probability = Clamp(probability)
	tier := p.Classify(probability)
	return model.ChurnAssessment{
		Probability: probability,
		Tier:        tier,
		Actions:     p.Recommend(tier),
		WillChurn:   probability >= p.ChurnDecisionThreshold,
	}
}
