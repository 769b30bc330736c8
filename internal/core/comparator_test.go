package core

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"churn_service/internal/domain/model"
)

func baselineSnapshot() model.DatasetSnapshot {
	return model.DatasetSnapshot{
		ID:            "ds_jan",
		CustomerCount: 1000,
		ChurnRatePct:  30.0,
		AtRiskCount:   300,
		TotalRevenue:  50000,
		RevenueAtRisk: 15000,
	}
}

func currentSnapshot() model.DatasetSnapshot {
	return model.DatasetSnapshot{
		ID:            "ds_feb",
		CustomerCount: 1050,
		ChurnRatePct:  25.0,
		AtRiskCount:   240,
		TotalRevenue:  52000,
		RevenueAtRisk: 12000,
	}
}

func TestCompare(t *testing.T) {
	got, err := Compare(baselineSnapshot(), currentSnapshot())
	if err != nil {
		t.Fatalf("Compare error: %v", err)
	}
	if got.CustomerChange != 50 {
		t.Fatalf("CustomerChange = %d", got.CustomerChange)
	}
	if got.ChurnRateChange != -5.0 {
		t.Fatalf("ChurnRateChange = %v", got.ChurnRateChange)
	}
	if got.RevenueChange != 2000 {
		t.Fatalf("RevenueChange = %v", got.RevenueChange)
	}
	if got.RiskChange != -3000 {
		t.Fatalf("RiskChange = %v", got.RiskChange)
	}
	if got.ProfitLossAmount != 36000 {
		t.Fatalf("ProfitLossAmount = %v", got.ProfitLossAmount)
	}
	if !got.IsImprovement {
		t.Fatalf("expected improvement")
	}
	if !got.ProfitLossIsEstimate || got.ProfitLossBasis == "" {
		t.Fatalf("profit/loss must be labelled as an estimate")
	}
	want := []string{
		"Customer base grew by 50 customers",
		"Churn rate improved by 5.0 points",
		"Monthly revenue increased by $2,000.00",
		"Monthly revenue at risk fell by $3,000.00",
		"Estimated annual revenue retained: $36,000.00",
	}
	if !reflect.DeepEqual(got.Insights, want) {
		t.Fatalf("Insights = %#v", got.Insights)
	}
}

func TestCompareRegression(t *testing.T) {
	got, err := Compare(currentSnapshot(), baselineSnapshot())
	if err != nil {
		t.Fatalf("Compare error: %v", err)
	}
	if got.IsImprovement {
		t.Fatalf("higher churn must not be an improvement")
	}
	if got.ProfitLossAmount != -36000 {
		t.Fatalf("ProfitLossAmount = %v", got.ProfitLossAmount)
	}
	want := []string{
		"Customer base shrank by 50 customers",
		"Churn rate worsened by 5.0 points",
		"Monthly revenue decreased by $2,000.00",
		"Monthly revenue at risk rose by $3,000.00",
		"Projected annual revenue loss: $36,000.00",
	}
	if !reflect.DeepEqual(got.Insights, want) {
		t.Fatalf("Insights = %#v", got.Insights)
	}
}

func TestCompareEqualChurnIsNotImprovement(t *testing.T) {
	cur := baselineSnapshot()
	cur.ID = "ds_copy"
	got, err := Compare(baselineSnapshot(), cur)
	if err != nil {
		t.Fatalf("Compare error: %v", err)
	}
	if got.IsImprovement {
		t.Fatalf("unchanged churn rate must not be an improvement")
	}
	if got.ProfitLossAmount != 0 {
		t.Fatalf("ProfitLossAmount = %v", got.ProfitLossAmount)
	}
	want := []string{"Customer base is unchanged", "Churn rate is unchanged"}
	if !reflect.DeepEqual(got.Insights, want) {
		t.Fatalf("Insights = %#v", got.Insights)
	}
}

func TestCompareInvalid(t *testing.T) {
	empty := currentSnapshot()
	empty.CustomerCount = 0
	negative := currentSnapshot()
	negative.CustomerCount = -3

	cases := []struct {
		name              string
		baseline, current model.DatasetSnapshot
	}{
		{"empty baseline", empty, currentSnapshot()},
		{"empty current", baselineSnapshot(), empty},
		{"negative count", baselineSnapshot(), negative},
	}
	for _, tc := range cases {
		_, err := Compare(tc.baseline, tc.current)
		var invalid *InvalidComparisonError
		if !errors.As(err, &invalid) {
			t.Fatalf("%s: expected InvalidComparisonError, got %v", tc.name, err)
		}
		if !errors.Is(err, ErrInvalidComparison) || errors.Is(err, ErrIdenticalDataset) {
			t.Fatalf("%s: wrong sentinel for %v", tc.name, err)
		}
	}
}

func TestCompareIdentical(t *testing.T) {
	s := currentSnapshot()
	_, err := Compare(s, s)
	var identical *IdenticalDatasetError
	if !errors.As(err, &identical) {
		t.Fatalf("expected IdenticalDatasetError, got %v", err)
	}
	if identical.DatasetID != s.ID || !errors.Is(err, ErrIdenticalDataset) {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestCompareIdempotent(t *testing.T) {
	first, err := Compare(baselineSnapshot(), currentSnapshot())
	if err != nil {
		t.Fatalf("Compare error: %v", err)
	}
	second, err := Compare(baselineSnapshot(), currentSnapshot())
	if err != nil {
		t.Fatalf("Compare error: %v", err)
	}
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Fatalf("results differ:\n%s\n%s", a, b)
	}
}

func TestFormatMoney(t *testing.T) {
	cases := map[float64]string{
		0:           "$0.00",
		0.5:         "$0.50",
		999.999:     "$1,000.00",
		1234567.891: "$1,234,567.89",
		-2500:       "-$2,500.00",
	}
	for in, want := range cases {
		if got := formatMoney(in); got != want {
			t.Fatalf("formatMoney(%v) = %s, want %s", in, got, want)
		}
	}
}
