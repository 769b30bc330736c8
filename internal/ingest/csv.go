// Package ingest reads customer tables.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"churn_service/internal/domain/model"
)

var ErrMissingColumn = errors.New("missing required column")

// RowError points at the offending line of the input, counting the header as line 1.
type RowError struct {
	Line   int
	Column string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d, column %s: %v", e.Line, e.Column, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// headerKey folds "Churn_Probability", "churn probability" and
// "ChurnProbability" onto the same key.
func headerKey(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	return strings.NewReplacer("_", "", " ", "", "-", "").Replace(h)
}

var requiredColumns = []string{"customerid", "monthlycharges"}

// ReadCustomers parses a CSV customer table. Column names are matched
// case-insensitively; unknown columns are ignored.
func ReadCustomers(r io.Reader) ([]model.CustomerRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty input", ErrMissingColumn)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[headerKey(h)] = i
	}
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}

	var records []model.CustomerRecord
	line := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read line %d: %w", line, err)
		}
		rec, err := parseRow(row, idx, line)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseRow(row []string, idx map[string]int, line int) (model.CustomerRecord, error) {
	get := func(key string) string {
		i, ok := idx[key]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var rec model.CustomerRecord
	rec.CustomerID = get("customerid")
	if rec.CustomerID == "" {
		return rec, &RowError{Line: line, Column: "CustomerID", Err: errors.New("empty value")}
	}
	rec.Gender = get("gender")
	rec.SeniorCitizen = parseFlag(get("seniorcitizen"))
	rec.Partner = parseFlag(get("partner"))
	rec.Dependents = parseFlag(get("dependents"))
	rec.PhoneService = parseFlag(get("phoneservice"))
	rec.TechSupport = parseFlag(get("techsupport"))
	rec.OnlineSecurity = parseFlag(get("onlinesecurity"))
	rec.PaperlessBilling = parseFlag(get("paperlessbilling"))
	rec.InternetService = model.ParseInternetService(get("internetservice"))
	rec.Contract = model.ParseContract(get("contract"))
	rec.PaymentMethod = model.ParsePaymentMethod(get("paymentmethod"))
	rec.Segment = get("segment")

	var err error
	if v := get("tenure"); v != "" {
		if rec.Tenure, err = strconv.Atoi(v); err != nil || rec.Tenure < 0 {
			return rec, &RowError{Line: line, Column: "Tenure", Err: fmt.Errorf("invalid tenure %q", v)}
		}
	}
	if rec.MonthlyCharges, err = parseAmount(get("monthlycharges")); err != nil {
		return rec, &RowError{Line: line, Column: "MonthlyCharges", Err: err}
	}
	// New customers often have a blank total; treat it as zero.
	if rec.TotalCharges, err = parseAmount(get("totalcharges")); err != nil {
		return rec, &RowError{Line: line, Column: "TotalCharges", Err: err}
	}
	if v := get("churnprobability"); v != "" {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil || !isFinite(p) {
			return rec, &RowError{Line: line, Column: "Churn_Probability", Err: fmt.Errorf("invalid probability %q", v)}
		}
		rec.Probability = &p
	}
	return rec, nil
}

func parseAmount(v string) (float64, error) {
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(strings.TrimPrefix(v, "$"), 64)
	if err != nil || !isFinite(f) {
		return 0, fmt.Errorf("invalid amount %q", v)
	}
	if f < 0 {
		return 0, fmt.Errorf("negative amount %q", v)
	}
	return f, nil
}

// ParseFloat accepts "NaN" and "Inf"; neither is a usable amount or score.
func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func parseFlag(v string) bool {
	switch strings.ToLower(v) {
	case "1", "yes", "y", "true":
		return true
	default:
		return false
	}
}
