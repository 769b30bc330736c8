package core

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"churn_service/internal/domain/model"
)

const (
	SourceHeuristic = "heuristic"
	// SourceRequest marks a probability supplied by the API caller.
	SourceRequest = "request"
)

// HeuristicSource answers from Policy.Estimate and never fails.
type HeuristicSource struct {
	Policy Policy
}

func (h HeuristicSource) Name() string { return SourceHeuristic }

func (h HeuristicSource) Probability(_ context.Context, rec model.CustomerRecord) (float64, error) {
	return h.Policy.Estimate(rec), nil
}

// AssessmentRecorder persists single-customer predictions.
type AssessmentRecorder interface {
	Record(ctx context.Context, customerID string, assessment model.ChurnAssessment, source string) error
}

// Prediction is one assessed customer together with the source that
// produced its probability.
type Prediction struct {
	CustomerID string                `json:"customer_id,omitempty"`
	Assessment model.ChurnAssessment `json:"assessment"`
	Source     string                `json:"source"`
	// Fallback is set when the remote model failed and the heuristic answered.
	Fallback bool `json:"fallback"`
}

type PredictionService struct {
	policy   Policy
	remote   model.ProbabilitySource
	fallback model.ProbabilitySource
	catalog  model.ModelCatalog
	recorder AssessmentRecorder
	logger   *zap.Logger
}

type PredictionServiceOption func(*PredictionService)

func WithRemote(src model.ProbabilitySource) PredictionServiceOption {
	return func(s *PredictionService) { s.remote = src }
}

func WithCatalog(c model.ModelCatalog) PredictionServiceOption {
	return func(s *PredictionService) { s.catalog = c }
}

func WithRecorder(r AssessmentRecorder) PredictionServiceOption {
	return func(s *PredictionService) { s.recorder = r }
}

func WithLogger(l *zap.Logger) PredictionServiceOption {
	return func(s *PredictionService) { s.logger = l }
}

func NewPredictionService(policy Policy, opts ...PredictionServiceOption) *PredictionService {
	s := &PredictionService{
		policy:   policy,
		fallback: HeuristicSource{Policy: policy},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("prediction")
	return s
}

func (s *PredictionService) Policy() Policy { return s.policy }

// Probability asks the remote model first and falls back to the heuristic
// when there is no remote model or it fails.
func (s *PredictionService) Probability(ctx context.Context, rec model.CustomerRecord) (float64, string, bool) {
	if s.remote != nil {
		p, err := s.remote.Probability(ctx, rec)
		if err == nil {
			return p, s.remote.Name(), false
		}
		s.logger.Warn("Remote prediction failed, using heuristic",
			zap.String("customer_id", rec.CustomerID),
			zap.String("source", s.remote.Name()),
			zap.Error(err))
		// The heuristic cannot fail.
		p, _ = s.fallback.Probability(ctx, rec)
		return p, s.fallback.Name(), true
	}
	p, _ := s.fallback.Probability(ctx, rec)
	return p, s.fallback.Name(), false
}

// Predict assesses one customer. Tiers always come from the local policy,
// whatever source supplied the probability.
func (s *PredictionService) Predict(ctx context.Context, rec model.CustomerRecord) (*Prediction, error) {
	p, source, fellBack := s.Probability(ctx, rec)
	pred := &Prediction{
		CustomerID: rec.CustomerID,
		Assessment: s.policy.Assess(p),
		Source:     source,
		Fallback:   fellBack,
	}
	s.record(ctx, pred)
	return pred, nil
}

// PredictWithProbability assesses a probability computed elsewhere. It is
// recorded like any other prediction.
func (s *PredictionService) PredictWithProbability(ctx context.Context, rec model.CustomerRecord, probability float64, source string) *Prediction {
	pred := &Prediction{
		CustomerID: rec.CustomerID,
		Assessment: s.policy.Assess(probability),
		Source:     source,
	}
	s.record(ctx, pred)
	return pred
}

func (s *PredictionService) record(ctx context.Context, pred *Prediction) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(ctx, pred.CustomerID, pred.Assessment, pred.Source); err != nil {
		s.logger.Warn("Failed to record assessment", zap.String("customer_id", pred.CustomerID), zap.Error(err))
	}
}

// GetAvailableModels lists the remote models with the best one by ROC-AUC.
func (s *PredictionService) GetAvailableModels(ctx context.Context) ([]model.ModelInfo, *model.ModelInfo, error) {
	if s.catalog == nil {
		return nil, nil, fmt.Errorf("no model catalog configured")
	}
	models, err := s.catalog.GetAvailableModels(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get models: %w", err)
	}
	best, err := BestModel(models)
	if err != nil {
		return models, nil, nil
	}
	return models, &best, nil
}
