package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"churn_service/internal/domain/model"
)

type PostgresAssessmentRecorder struct {
	db *sqlx.DB
}

func NewPostgresAssessmentRecorder(db *sqlx.DB) *PostgresAssessmentRecorder {
	return &PostgresAssessmentRecorder{db: db}
}

func (r *PostgresAssessmentRecorder) Record(
	ctx context.Context,
	customerID string,
	assessment model.ChurnAssessment,
	source string,
) error {
	const query = `
		INSERT INTO churn_assessments (
			customer_id, probability, risk_level, actions, source, recorded_at
		) VALUES (
			$1, $2, $3, $4, $5, NOW()
		)`

	_, err := r.db.ExecContext(ctx, query,
		customerID,
		assessment.Probability,
		string(assessment.Tier),
		pq.Array(assessment.Actions),
		source,
	)
	if err != nil {
		return fmt.Errorf("failed to record assessment: %w", err)
	}
	return nil
}
