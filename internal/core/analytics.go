package core

import (
	"errors"
	"sort"
	"strings"

	"churn_service/internal/domain/model"
)

type TierCount struct {
	Tier  model.RiskTier `json:"tier"`
	Count int            `json:"count"`
}

type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

type DashboardKPIs struct {
	TotalCustomers int          `json:"total_customers"`
	AvgChurnPct    float64      `json:"avg_churn_pct"`
	HighRiskCount  int          `json:"high_risk_count"`
	RevenueAtRisk  float64      `json:"revenue_at_risk"`
	Distribution   []TierCount  `json:"distribution"`
	Contracts      []LabelCount `json:"contracts"`
	Segments       []LabelCount `json:"segments,omitempty"`
}

// RiskDistribution counts customers per tier, from Low to Critical. It
// uses the same Classify rule as single-customer assessment.
func RiskDistribution(rows []model.ScoredCustomer, policy Policy) []TierCount {
	counts := make(map[model.RiskTier]int, len(model.Tiers))
	for _, row := range rows {
		counts[policy.Classify(row.Probability)]++
	}
	out := make([]TierCount, 0, len(model.Tiers))
	for _, tier := range model.Tiers {
		out = append(out, TierCount{Tier: tier, Count: counts[tier]})
	}
	return out
}

func ContractBreakdown(rows []model.ScoredCustomer) []LabelCount {
	return countBy(rows, func(r model.ScoredCustomer) string { return string(r.Record.Contract) })
}

func SegmentBreakdown(rows []model.ScoredCustomer) []LabelCount {
	return countBy(rows, func(r model.ScoredCustomer) string { return r.Record.Segment })
}

// countBy skips empty labels and orders by count desc, then label.
func countBy(rows []model.ScoredCustomer, label func(model.ScoredCustomer) string) []LabelCount {
	counts := map[string]int{}
	for _, row := range rows {
		if l := label(row); l != "" {
			counts[l]++
		}
	}
	out := make([]LabelCount, 0, len(counts))
	for l, c := range counts {
		out = append(out, LabelCount{Label: l, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

func Dashboard(rows []model.ScoredCustomer, policy Policy) DashboardKPIs {
	kpi := DashboardKPIs{
		TotalCustomers: len(rows),
		Distribution:   RiskDistribution(rows, policy),
		Contracts:      ContractBreakdown(rows),
		Segments:       SegmentBreakdown(rows),
	}
	if len(rows) == 0 {
		return kpi
	}
	var sum float64
	for _, row := range rows {
		p := Clamp(row.Probability)
		sum += p
		if p >= policy.HighRiskThreshold {
			kpi.HighRiskCount++
		}
		if p >= policy.AtRiskThreshold {
			kpi.RevenueAtRisk += row.Record.MonthlyCharges
		}
	}
	kpi.AvgChurnPct = sum / float64(len(rows)) * 100
	return kpi
}

type CustomerFilter struct {
	Tier        model.RiskTier
	Contract    model.Contract
	IDSubstring string
	Limit       int
}

const DefaultCustomerLimit = 100

// FilterCustomers keeps input order. Empty filter fields match everything.
func FilterCustomers(rows []model.ScoredCustomer, f CustomerFilter, policy Policy) []model.ScoredCustomer {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultCustomerLimit
	}
	needle := strings.ToLower(strings.TrimSpace(f.IDSubstring))

	out := make([]model.ScoredCustomer, 0)
	for _, row := range rows {
		if len(out) == limit {
			break
		}
		if f.Tier != "" && policy.Classify(row.Probability) != f.Tier {
			continue
		}
		if f.Contract != "" && row.Record.Contract != f.Contract {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(row.Record.CustomerID), needle) {
			continue
		}
		out = append(out, row)
	}
	return out
}

type RetentionAction struct {
	CustomerID  string         `json:"customer_id"`
	Contract    model.Contract `json:"contract"`
	Probability float64        `json:"churn_probability"`
	Priority    model.RiskTier `json:"priority"`
	Strategies  []string       `json:"strategies"`
}

// RetentionPlan lists actions for every customer at Medium risk or worse,
// most likely churners first.
func RetentionPlan(rows []model.ScoredCustomer, policy Policy) []RetentionAction {
	out := make([]RetentionAction, 0)
	for _, row := range rows {
		tier := policy.Classify(row.Probability)
		if tier.Severity() < model.TierMedium.Severity() {
			continue
		}
		out = append(out, RetentionAction{
			CustomerID:  row.Record.CustomerID,
			Contract:    row.Record.Contract,
			Probability: Clamp(row.Probability),
			Priority:    tier,
			Strategies:  policy.Recommend(tier),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Probability > out[j].Probability })
	return out
}

var ErrNoModels = errors.New("no models available")

// BestModel picks the model with the highest ROC-AUC; the first one wins ties.
func BestModel(models []model.ModelInfo) (model.ModelInfo, error) {
	if len(models) == 0 {
		return model.ModelInfo{}, ErrNoModels
	}
	best := models[0]
	for _, m := range models[1:] {
		if m.ROCAUC > best.ROCAUC {
			best = m
		}
	}
	return best, nil
}
