package core

import (
	"errors"
	"fmt"
	"math"

	"churn_service/internal/domain/model"
)

// AnnualizationFactor turns a monthly revenue delta into a yearly figure.
const AnnualizationFactor = 12

const profitLossBasis = "estimate: -(monthly revenue-at-risk change) x 12, not an accounting figure"

var (
	ErrInvalidComparison = errors.New("invalid comparison")
	ErrIdenticalDataset  = errors.New("identical dataset")
)

// InvalidComparisonError reports a snapshot that cannot take part in a
// comparison, such as one with no customers.
type InvalidComparisonError struct {
	DatasetID string
	Reason    string
}

func (e *InvalidComparisonError) Error() string {
	if e.DatasetID == "" {
		return fmt.Sprintf("invalid comparison: %s", e.Reason)
	}
	return fmt.Sprintf("invalid comparison: dataset %s: %s", e.DatasetID, e.Reason)
}

func (e *InvalidComparisonError) Is(target error) bool { return target == ErrInvalidComparison }

// IdenticalDatasetError reports a comparison of a dataset against itself.
type IdenticalDatasetError struct {
	DatasetID string
}

func (e *IdenticalDatasetError) Error() string {
	return fmt.Sprintf("dataset %s compared with itself", e.DatasetID)
}

func (e *IdenticalDatasetError) Is(target error) bool { return target == ErrIdenticalDataset }

func validateSnapshot(role string, s model.DatasetSnapshot) error {
	invalid := func(reason string) error {
		return &InvalidComparisonError{DatasetID: s.ID, Reason: role + " " + reason}
	}
	switch {
	case s.CustomerCount < 0:
		return invalid("has a negative customer count")
	case s.CustomerCount == 0:
		return invalid("has no customers")
	case s.AtRiskCount < 0 || s.AtRiskCount > s.CustomerCount:
		return invalid("has an at-risk count outside [0, customer count]")
	case s.TotalRevenue < 0 || s.RevenueAtRisk < 0:
		return invalid("has negative revenue")
	case isBad(s.ChurnRatePct) || isBad(s.TotalRevenue) || isBad(s.RevenueAtRisk):
		return invalid("has a non-finite value")
	}
	return nil
}

func isBad(f float64) bool { return math.IsNaN(f) || math.IsInf(f, 0) }

// Compare reports how current differs from baseline. The whole comparison
// fails if either snapshot is unusable; no partial result is returned.
func Compare(baseline, current model.DatasetSnapshot) (model.ComparisonResult, error) {
	if err := validateSnapshot("baseline", baseline); err != nil {
		return model.ComparisonResult{}, err
	}
	if err := validateSnapshot("current", current); err != nil {
		return model.ComparisonResult{}, err
	}
	if baseline.ID != "" && baseline.ID == current.ID {
		return model.ComparisonResult{}, &IdenticalDatasetError{DatasetID: baseline.ID}
	}

	res := model.ComparisonResult{
		BaselineID:           baseline.ID,
		CurrentID:            current.ID,
		CustomerChange:       current.CustomerCount - baseline.CustomerCount,
		ChurnRateChange:      current.ChurnRatePct - baseline.ChurnRatePct,
		RevenueChange:        current.TotalRevenue - baseline.TotalRevenue,
		RiskChange:           current.RevenueAtRisk - baseline.RevenueAtRisk,
		ProfitLossIsEstimate: true,
		ProfitLossBasis:      profitLossBasis,
	}
	// Less monthly revenue at risk reads as retained annual revenue.
	res.ProfitLossAmount = -res.RiskChange * AnnualizationFactor
	if res.ProfitLossAmount == 0 {
		res.ProfitLossAmount = 0 // drop negative zero
	}
	res.IsImprovement = res.ChurnRateChange < 0
	res.Insights = insights(res)
	return res, nil
}

type insightRule func(model.ComparisonResult) (string, bool)

var insightRules = []insightRule{
	func(r model.ComparisonResult) (string, bool) {
		switch {
		case r.CustomerChange > 0:
			return fmt.Sprintf("Customer base grew by %d customers", r.CustomerChange), true
		case r.CustomerChange < 0:
			return fmt.Sprintf("Customer base shrank by %d customers", -r.CustomerChange), true
		}
		return "Customer base is unchanged", true
	},
	func(r model.ComparisonResult) (string, bool) {
		switch {
		case r.ChurnRateChange < 0:
			return fmt.Sprintf("Churn rate improved by %.1f points", -r.ChurnRateChange), true
		case r.ChurnRateChange > 0:
			return fmt.Sprintf("Churn rate worsened by %.1f points", r.ChurnRateChange), true
		}
		return "Churn rate is unchanged", true
	},
	func(r model.ComparisonResult) (string, bool) {
		switch {
		case r.RevenueChange > 0:
			return fmt.Sprintf("Monthly revenue increased by %s", formatMoney(r.RevenueChange)), true
		case r.RevenueChange < 0:
			return fmt.Sprintf("Monthly revenue decreased by %s", formatMoney(-r.RevenueChange)), true
		}
		return "", false
	},
	func(r model.ComparisonResult) (string, bool) {
		switch {
		case r.RiskChange < 0:
			return fmt.Sprintf("Monthly revenue at risk fell by %s", formatMoney(-r.RiskChange)), true
		case r.RiskChange > 0:
			return fmt.Sprintf("Monthly revenue at risk rose by %s", formatMoney(r.RiskChange)), true
		}
		return "", false
	},
	func(r model.ComparisonResult) (string, bool) {
		switch {
		case r.ProfitLossAmount > 0:
			return fmt.Sprintf("Estimated annual revenue retained: %s", formatMoney(r.ProfitLossAmount)), true
		case r.ProfitLossAmount < 0:
			return fmt.Sprintf("Projected annual revenue loss: %s", formatMoney(-r.ProfitLossAmount)), true
		}
		return "", false
	},
}

func insights(r model.ComparisonResult) []string {
	out := make([]string, 0, len(insightRules))
	for _, rule := range insightRules {
		if msg, ok := rule(r); ok {
			out = append(out, msg)
		}
	}
	return out
}

// formatMoney renders an amount as $1,234.56.
func formatMoney(v float64) string {
	neg := v < 0
	cents := int64(math.Round(math.Abs(v) * 100))
	whole, frac := cents/100, cents%100

	digits := fmt.Sprintf("%d", whole)
	var grouped []byte
	for i := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			grouped = append(grouped, ',')
		}
		grouped = append(grouped, digits[i])
	}
	s := fmt.Sprintf("$%s.%02d", grouped, frac)
	if neg {
		s = "-" + s
	}
	return s
}
