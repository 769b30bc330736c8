package core

import (
	"math"
	"reflect"
	"testing"

	"churn_service/internal/domain/model"
)

func TestClassifyBoundaries(t *testing.T) {
	policy := DefaultPolicy()
	cases := []struct {
		p    float64
		want model.RiskTier
	}{
		{0, model.TierLow},
		{0.2999, model.TierLow},
		{0.30, model.TierMedium},
		{0.4999, model.TierMedium},
		{0.50, model.TierHigh},
		{0.6999, model.TierHigh},
		{0.70, model.TierCritical},
		{1, model.TierCritical},
		{-0.5, model.TierLow},
		{1.7, model.TierCritical},
		{math.NaN(), model.TierLow},
	}
	for _, tc := range cases {
		if got := policy.Classify(tc.p); got != tc.want {
			t.Fatalf("Classify(%v) = %s, want %s", tc.p, got, tc.want)
		}
	}
}

func TestClassifyMonotonic(t *testing.T) {
	policy := DefaultPolicy()
	prev := -1
	for i := 0; i <= 10000; i++ {
		sev := policy.Classify(float64(i) / 10000).Severity()
		if sev < prev {
			t.Fatalf("severity dropped at p=%v", float64(i)/10000)
		}
		prev = sev
	}
}

func TestEstimate(t *testing.T) {
	policy := DefaultPolicy()
	cases := []struct {
		name string
		rec  model.CustomerRecord
		want float64
		tier model.RiskTier
	}{
		{
			name: "every risk factor",
			rec: model.CustomerRecord{
				Contract:        model.ContractMonthToMonth,
				Tenure:          3,
				InternetService: model.InternetFiber,
				PaymentMethod:   model.PaymentElectronicCheck,
			},
			want: 0.90,
			tier: model.TierCritical,
		},
		{
			name: "no risk factor",
			rec: model.CustomerRecord{
				Contract:        model.ContractTwoYear,
				Tenure:          48,
				InternetService: model.InternetDSL,
				PaymentMethod:   model.PaymentBankTransfer,
			},
			want: 0.20,
			tier: model.TierLow,
		},
		{
			name: "contract and tenure land on the critical boundary",
			rec: model.CustomerRecord{
				Contract:        model.ContractMonthToMonth,
				Tenure:          11,
				InternetService: model.InternetDSL,
				PaymentMethod:   model.PaymentCreditCard,
			},
			want: 0.70,
			tier: model.TierCritical,
		},
		{
			name: "tenure of twelve is not short",
			rec: model.CustomerRecord{
				Contract:        model.ContractOneYear,
				Tenure:          12,
				InternetService: model.InternetFiber,
				PaymentMethod:   model.PaymentMailedCheck,
			},
			want: 0.30,
			tier: model.TierMedium,
		},
		{
			name: "other fields are ignored",
			rec: model.CustomerRecord{
				Contract:        model.ContractTwoYear,
				Tenure:          60,
				InternetService: model.InternetNone,
				PaymentMethod:   model.PaymentMailedCheck,
				SeniorCitizen:   true,
				MonthlyCharges:  118.75,
				TotalCharges:    7000,
			},
			want: 0.20,
			tier: model.TierLow,
		},
	}
	for _, tc := range cases {
		got := policy.Estimate(tc.rec)
		if got != tc.want {
			t.Fatalf("%s: Estimate = %v, want %v", tc.name, got, tc.want)
		}
		if tier := policy.Classify(got); tier != tc.tier {
			t.Fatalf("%s: tier = %s, want %s", tc.name, tier, tc.tier)
		}
		if again := policy.Estimate(tc.rec); again != got {
			t.Fatalf("%s: Estimate not deterministic: %v then %v", tc.name, got, again)
		}
	}
}

func TestEstimateCapped(t *testing.T) {
	policy := DefaultPolicy()
	policy.Heuristic.Base = 0.5
	rec := model.CustomerRecord{
		Contract:        model.ContractMonthToMonth,
		Tenure:          1,
		InternetService: model.InternetFiber,
		PaymentMethod:   model.PaymentElectronicCheck,
	}
	if got := policy.Estimate(rec); got != 0.95 {
		t.Fatalf("expected cap 0.95, got %v", got)
	}
}

func TestRecommend(t *testing.T) {
	policy := DefaultPolicy()
	cases := map[model.RiskTier][]string{
		model.TierCritical: {"Offer contract upgrade discount", "Assign dedicated support"},
		model.TierHigh:     {"Schedule check-in call", "Review pricing options"},
		model.TierMedium:   {"Continue standard engagement"},
		model.TierLow:      {"Continue standard engagement"},
	}
	for tier, want := range cases {
		if got := policy.Recommend(tier); !reflect.DeepEqual(got, want) {
			t.Fatalf("Recommend(%s) = %v, want %v", tier, got, want)
		}
	}

	got := policy.Recommend(model.TierCritical)
	got[0] = "changed"
	if policy.Recommend(model.TierCritical)[0] == "changed" {
		t.Fatalf("Recommend must return a copy")
	}
}

func TestAssess(t *testing.T) {
	policy := DefaultPolicy()
	a := policy.Assess(1.4)
	if a.Probability != 1 || a.Tier != model.TierCritical || !a.WillChurn {
		t.Fatalf("unexpected assessment %+v", a)
	}
	a = policy.Assess(0.49)
	if a.WillChurn || a.Tier != model.TierMedium || len(a.Actions) != 1 {
		t.Fatalf("unexpected assessment %+v", a)
	}
}

func TestValidate(t *testing.T) {
	if err := DefaultPolicy().Validate(); err != nil {
		t.Fatalf("default policy invalid: %v", err)
	}

	cases := map[string]func(*Policy){
		"no thresholds":     func(p *Policy) { p.Thresholds = nil },
		"ascending":         func(p *Policy) { p.Thresholds[0], p.Thresholds[2] = p.Thresholds[2], p.Thresholds[0] },
		"out of range":      func(p *Policy) { p.Thresholds[0].Min = 1.2 },
		"unknown tier":      func(p *Policy) { p.Thresholds[1].Tier = "Severe" },
		"duplicate tier":    func(p *Policy) { p.Thresholds[1].Tier = model.TierCritical },
		"unknown feature":   func(p *Policy) { p.Heuristic.Features[0].Name = "gender" },
		"bad cap":           func(p *Policy) { p.Heuristic.Cap = 0 },
		"bad at-risk":       func(p *Policy) { p.AtRiskThreshold = 2 },
		"floor above tiers": func(p *Policy) { p.Floor = model.TierHigh },
	}
	for name, mutate := range cases {
		p := DefaultPolicy()
		mutate(&p)
		if err := p.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}
