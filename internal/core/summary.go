package core

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"churn_service/internal/domain/model"
)

var ErrEmptyDataset = errors.New("dataset has no customers")

// ScoreTable attaches a probability to every row. Precomputed scores from
// the table win; other rows go through the prediction service. Once the
// remote model fails, the rest of the table is scored by the heuristic.
func ScoreTable(ctx context.Context, rows []model.CustomerRecord, svc *PredictionService) ([]model.ScoredCustomer, error) {
	scorer := &tableScorer{svc: svc}
	out := make([]model.ScoredCustomer, 0, len(rows))
	for _, rec := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if rec.Probability != nil {
			out = append(out, model.ScoredCustomer{Record: rec, Probability: Clamp(*rec.Probability), Source: "dataset"})
			continue
		}
		p, source := scorer.probability(ctx, rec)
		out = append(out, model.ScoredCustomer{Record: rec, Probability: Clamp(p), Source: source})
	}
	if scorer.fallbacks > 0 {
		svc.logger.Info("Table scored with heuristic fallback",
			zap.Int("rows", len(rows)),
			zap.Int("fallback_rows", scorer.fallbacks))
	}
	return out, nil
}

// tableScorer keeps the remote-failure state of a single table.
type tableScorer struct {
	svc          *PredictionService
	remoteFailed bool
	fallbacks    int
}

func (t *tableScorer) probability(ctx context.Context, rec model.CustomerRecord) (float64, string) {
	remote := t.svc.remote
	if remote != nil && !t.remoteFailed {
		p, err := remote.Probability(ctx, rec)
		if err == nil {
			return p, remote.Name()
		}
		t.remoteFailed = true
		t.svc.logger.Warn("Remote prediction failed, scoring the rest of the table with the heuristic",
			zap.String("customer_id", rec.CustomerID),
			zap.String("source", remote.Name()),
			zap.Error(err))
	}
	if t.remoteFailed {
		t.fallbacks++
	}
	p, _ := t.svc.fallback.Probability(ctx, rec)
	return p, t.svc.fallback.Name()
}

// Summarize builds the snapshot of one scored customer table.
func Summarize(id, name, owner string, rows []model.ScoredCustomer, policy Policy) (model.DatasetSnapshot, error) {
	if len(rows) == 0 {
		return model.DatasetSnapshot{}, ErrEmptyDataset
	}

	snap := model.DatasetSnapshot{
		ID:            id,
		Name:          name,
		Owner:         owner,
		CustomerCount: len(rows),
		CreatedAt:     time.Now().UTC(),
	}
	var probSum float64
	for _, row := range rows {
		p := Clamp(row.Probability)
		probSum += p
		snap.TotalRevenue += row.Record.MonthlyCharges
		if p >= policy.AtRiskThreshold {
			snap.AtRiskCount++
			snap.RevenueAtRisk += row.Record.MonthlyCharges
		}
		if p >= policy.HighRiskThreshold {
			snap.HighRiskCount++
		}
	}
	snap.ChurnRatePct = probSum / float64(len(rows)) * 100
	return snap, nil
}
