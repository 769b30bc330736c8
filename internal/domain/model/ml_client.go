package model

import "context"

// ProbabilitySource produces a churn probability for a single customer.
type ProbabilitySource interface {
	// Name identifies the source in assessments and logs
	Name() string

	// Probability returns a churn probability, not necessarily clamped
	Probability(ctx context.Context, rec CustomerRecord) (float64, error)
}

// ModelCatalog lists the models behind a remote prediction service.
type ModelCatalog interface {
	GetAvailableModels(ctx context.Context) ([]ModelInfo, error)
}

// ModelInfo holds evaluation metrics of a trained model
type ModelInfo struct {
	Name      string  `json:"name"`
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	ROCAUC    float64 `json:"roc_auc"`
}

// Prediction is the response of the remote prediction service
type Prediction struct {
	ChurnProbability float64 `json:"churn_probability"`
	RiskLevel        string  `json:"risk_level,omitempty"`
}
