package mlclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"churn_service/internal/domain/model"
)

const SourceName = "remote-model"

type HTTPMLClient struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewHTTPMLClient(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPMLClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPMLClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger.Named("mlclient"),
	}
}

// PredictRequest mirrors the customer form accepted by the prediction API.
type PredictRequest struct {
	Gender           string  `json:"Gender"`
	SeniorCitizen    int     `json:"SeniorCitizen"`
	Partner          string  `json:"Partner"`
	Dependents       string  `json:"Dependents"`
	Tenure           int     `json:"Tenure"`
	PhoneService     string  `json:"PhoneService"`
	InternetService  string  `json:"InternetService"`
	TechSupport      string  `json:"TechSupport"`
	OnlineSecurity   string  `json:"OnlineSecurity"`
	Contract         string  `json:"Contract"`
	PaperlessBilling string  `json:"PaperlessBilling"`
	PaymentMethod    string  `json:"PaymentMethod"`
	MonthlyCharges   float64 `json:"MonthlyCharges"`
	TotalCharges     float64 `json:"TotalCharges"`
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func NewPredictRequest(rec model.CustomerRecord) PredictRequest {
	senior := 0
	if rec.SeniorCitizen {
		senior = 1
	}
	return PredictRequest{
		Gender:           rec.Gender,
		SeniorCitizen:    senior,
		Partner:          yesNo(rec.Partner),
		Dependents:       yesNo(rec.Dependents),
		Tenure:           rec.Tenure,
		PhoneService:     yesNo(rec.PhoneService),
		InternetService:  string(rec.InternetService),
		TechSupport:      yesNo(rec.TechSupport),
		OnlineSecurity:   yesNo(rec.OnlineSecurity),
		Contract:         string(rec.Contract),
		PaperlessBilling: yesNo(rec.PaperlessBilling),
		PaymentMethod:    string(rec.PaymentMethod),
		MonthlyCharges:   rec.MonthlyCharges,
		TotalCharges:     rec.TotalCharges,
	}
}

func (c *HTTPMLClient) Name() string { return SourceName }

// Probability implements model.ProbabilitySource.
func (c *HTTPMLClient) Probability(ctx context.Context, rec model.CustomerRecord) (float64, error) {
	pred, err := c.GetPrediction(ctx, rec)
	if err != nil {
		return 0, err
	}
	return pred.ChurnProbability, nil
}

// GetPrediction posts one customer to the prediction API
func (c *HTTPMLClient) GetPrediction(ctx context.Context, rec model.CustomerRecord) (*model.Prediction, error) {
	body, err := json.Marshal(NewPredictRequest(rec))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ML request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create ML request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ML service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ML service returned status: %d", resp.StatusCode)
	}

	// Pointer so a response without the field is an error, not 0.
	var raw struct {
		ChurnProbability *float64 `json:"churn_probability"`
		RiskLevel        string   `json:"risk_level"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode ML response: %w", err)
	}
	if raw.ChurnProbability == nil {
		return nil, fmt.Errorf("ML response has no churn_probability")
	}

	c.logger.Debug("Prediction received",
		zap.String("customer_id", rec.CustomerID),
		zap.Float64("probability", *raw.ChurnProbability),
		zap.String("remote_risk_level", raw.RiskLevel))

	return &model.Prediction{
		ChurnProbability: *raw.ChurnProbability,
		RiskLevel:        raw.RiskLevel,
	}, nil
}

// GetAvailableModels returns the models known to the prediction API
func (c *HTTPMLClient) GetAvailableModels(ctx context.Context) ([]model.ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create models request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get models: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ML service returned error: %s", resp.Status)
	}

	var models []model.ModelInfo
	if err := json.NewDecoder(resp.Body).Decode(&models); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return models, nil
}
