package model

import (
	"strings"
	"time"
)

type Contract string

const (
	ContractMonthToMonth Contract = "Month-to-month"
	ContractOneYear      Contract = "One year"
	ContractTwoYear      Contract = "Two year"
)

type InternetService string

const (
	InternetDSL   InternetService = "DSL"
	InternetFiber InternetService = "Fiber optic"
	InternetNone  InternetService = "No"
)

type PaymentMethod string

const (
	PaymentElectronicCheck PaymentMethod = "Electronic check"
	PaymentMailedCheck     PaymentMethod = "Mailed check"
	PaymentBankTransfer    PaymentMethod = "Bank transfer (automatic)"
	PaymentCreditCard      PaymentMethod = "Credit card (automatic)"
)

// CustomerRecord is one row of a customer table. It is treated as
// read-only once parsed.
type CustomerRecord struct {
	CustomerID       string          `json:"customer_id"`
	Gender           string          `json:"gender"`
	SeniorCitizen    bool            `json:"senior_citizen"`
	Partner          bool            `json:"partner"`
	Dependents       bool            `json:"dependents"`
	Tenure           int             `json:"tenure"`
	PhoneService     bool            `json:"phone_service"`
	InternetService  InternetService `json:"internet_service"`
	TechSupport      bool            `json:"tech_support"`
	OnlineSecurity   bool            `json:"online_security"`
	Contract         Contract        `json:"contract"`
	PaperlessBilling bool            `json:"paperless_billing"`
	PaymentMethod    PaymentMethod   `json:"payment_method"`
	MonthlyCharges   float64         `json:"monthly_charges"`
	TotalCharges     float64         `json:"total_charges"`

	// Segment is an optional precomputed value/risk segment label.
	Segment string `json:"segment,omitempty"`
	// Probability is a precomputed model score, nil when the table has none.
	Probability *float64 `json:"churn_probability,omitempty"`
}

// ParseContract maps free-form contract labels onto the known values.
// Unknown labels are returned as-is.
func ParseContract(raw string) Contract {
	switch normalize(raw) {
	case "month-to-month", "monthtomonth", "month to month":
		return ContractMonthToMonth
	case "one year", "one-year", "oneyear":
		return ContractOneYear
	case "two year", "two-year", "twoyear":
		return ContractTwoYear
	default:
		return Contract(strings.TrimSpace(raw))
	}
}

func ParseInternetService(raw string) InternetService {
	switch normalize(raw) {
	case "dsl":
		return InternetDSL
	case "fiber optic", "fiber", "fibre":
		return InternetFiber
	case "no", "none", "":
		return InternetNone
	default:
		return InternetService(strings.TrimSpace(raw))
	}
}

func ParsePaymentMethod(raw string) PaymentMethod {
	switch normalize(raw) {
	case "electronic check":
		return PaymentElectronicCheck
	case "mailed check":
		return PaymentMailedCheck
	case "bank transfer (automatic)", "bank transfer":
		return PaymentBankTransfer
	case "credit card (automatic)", "credit card":
		return PaymentCreditCard
	default:
		return PaymentMethod(strings.TrimSpace(raw))
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

type RiskTier string

const (
	TierLow      RiskTier = "Low"
	TierMedium   RiskTier = "Medium"
	TierHigh     RiskTier = "High"
	TierCritical RiskTier = "Critical"
)

// Tiers lists every tier from least to most severe.
var Tiers = []RiskTier{TierLow, TierMedium, TierHigh, TierCritical}

// Severity orders tiers; unknown tiers sort below Low.
func (t RiskTier) Severity() int {
	for i, tier := range Tiers {
		if tier == t {
			return i
		}
	}
	return -1
}

func ParseRiskTier(raw string) (RiskTier, bool) {
	for _, tier := range Tiers {
		if strings.EqualFold(string(tier), strings.TrimSpace(raw)) {
			return tier, true
		}
	}
	return "", false
}

type ChurnAssessment struct {
	Probability float64  `json:"churn_probability"`
	Tier        RiskTier `json:"risk_level"`
	Actions     []string `json:"recommended_actions"`
	WillChurn   bool     `json:"will_churn"`
}

// ScoredCustomer pairs a record with the probability used for it.
type ScoredCustomer struct {
	Record      CustomerRecord `json:"record"`
	Probability float64        `json:"churn_probability"`
	Source      string         `json:"source"`
}

// DatasetSnapshot aggregates one uploaded customer table.
type DatasetSnapshot struct {
	ID            string    `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	Owner         string    `json:"owner" db:"owner"`
	CustomerCount int       `json:"customer_count" db:"customer_count"`
	ChurnRatePct  float64   `json:"churn_rate_pct" db:"churn_rate_pct"`
	AtRiskCount   int       `json:"at_risk_count" db:"at_risk_count"`
	HighRiskCount int       `json:"high_risk_count" db:"high_risk_count"`
	TotalRevenue  float64   `json:"total_revenue" db:"total_revenue"`
	RevenueAtRisk float64   `json:"revenue_at_risk" db:"revenue_at_risk"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

type ComparisonResult struct {
	BaselineID           string   `json:"baseline_id"`
	CurrentID            string   `json:"current_id"`
	CustomerChange       int      `json:"customer_change"`
	ChurnRateChange      float64  `json:"churn_rate_change"`
	RevenueChange        float64  `json:"revenue_change"`
	RiskChange           float64  `json:"risk_change"`
	ProfitLossAmount     float64  `json:"profit_loss_amount"`
	ProfitLossIsEstimate bool     `json:"profit_loss_is_estimate"`
	ProfitLossBasis      string   `json:"profit_loss_basis"`
	IsImprovement        bool     `json:"is_improvement"`
	Insights             []string `json:"insights"`
}
