package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"churn_service/internal/core"
	"churn_service/internal/domain/model"
)

func TestLoadPolicyDefault(t *testing.T) {
	policy, err := LoadPolicy("")
	if err != nil {
		t.Fatalf("LoadPolicy error: %v", err)
	}
	if !reflect.DeepEqual(policy, core.DefaultPolicy()) {
		t.Fatalf("expected default policy")
	}
}

func TestParsePolicyOverride(t *testing.T) {
	raw := []byte(`
thresholds:
  - {min: 0.8, tier: Critical}
  - {min: 0.6, tier: High}
  - {min: 0.4, tier: Medium}
heuristic:
  base: 0.1
  cap: 0.9
  features:
    - {name: month_to_month_contract, weight: 0.4}
`)
	policy, err := ParsePolicy(raw)
	if err != nil {
		t.Fatalf("ParsePolicy error: %v", err)
	}
	if got := policy.Classify(0.75); got != model.TierHigh {
		t.Fatalf("Classify(0.75) = %s, want High", got)
	}
	if got := policy.Estimate(model.CustomerRecord{Contract: model.ContractMonthToMonth, Tenure: 1}); got != 0.5 {
		t.Fatalf("Estimate = %v, want 0.5", got)
	}
	// Keys absent from the document keep their defaults.
	if policy.AtRiskThreshold != 0.5 || len(policy.Recommend(model.TierCritical)) != 2 {
		t.Fatalf("defaults lost: %+v", policy)
	}
}

func TestParsePolicyEmpty(t *testing.T) {
	policy, err := ParsePolicy(nil)
	if err != nil {
		t.Fatalf("ParsePolicy error: %v", err)
	}
	if !reflect.DeepEqual(policy, core.DefaultPolicy()) {
		t.Fatalf("expected default policy")
	}
}

func TestParsePolicyErrors(t *testing.T) {
	cases := map[string]string{
		"unknown key":     "treshold: 0.5\n",
		"ascending":       "thresholds:\n  - {min: 0.3, tier: Medium}\n  - {min: 0.7, tier: Critical}\n",
		"unknown feature": "heuristic:\n  features:\n    - {name: gender, weight: 0.1}\n",
		"not yaml":        "thresholds: [\n",
	}
	for name, raw := range cases {
		if _, err := ParsePolicy([]byte(raw)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadPolicyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte("churn_decision_threshold: 0.6\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	policy, err := LoadPolicy(path)
	if err != nil {
		t.Fatalf("LoadPolicy error: %v", err)
	}
	if policy.ChurnDecisionThreshold != 0.6 {
		t.Fatalf("ChurnDecisionThreshold = %v", policy.ChurnDecisionThreshold)
	}

	if _, err := LoadPolicy(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for a missing file")
	}
}

func TestExamplePolicyMatchesDefaults(t *testing.T) {
	policy, err := LoadPolicy(filepath.Join("..", "..", "configs", "policy.example.yaml"))
	if err != nil {
		t.Fatalf("LoadPolicy error: %v", err)
	}
	if !reflect.DeepEqual(policy, core.DefaultPolicy()) {
		t.Fatalf("example policy drifted from the defaults: %+v", policy)
	}
}
