package mlclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"churn_service/internal/domain/model"
)

var customer = model.CustomerRecord{
	CustomerID:      "7590-VHVEG",
	Gender:          "Female",
	SeniorCitizen:   true,
	Partner:         true,
	Tenure:          1,
	InternetService: model.InternetDSL,
	Contract:        model.ContractMonthToMonth,
	PaymentMethod:   model.PaymentElectronicCheck,
	MonthlyCharges:  29.85,
	TotalCharges:    29.85,
}

func TestGetPrediction(t *testing.T) {
	var got PredictRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/predict" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"churn_probability": 0.64, "risk_level": "High"}`))
	}))
	defer srv.Close()

	client := NewHTTPMLClient(srv.URL+"/", time.Second, nil)
	pred, err := client.GetPrediction(context.Background(), customer)
	if err != nil {
		t.Fatalf("GetPrediction error: %v", err)
	}
	if pred.ChurnProbability != 0.64 || pred.RiskLevel != "High" {
		t.Fatalf("unexpected prediction %+v", pred)
	}
	if got.SeniorCitizen != 1 || got.Partner != "Yes" || got.Dependents != "No" {
		t.Fatalf("unexpected flags in request %+v", got)
	}
	if got.Contract != "Month-to-month" || got.PaymentMethod != "Electronic check" || got.Tenure != 1 {
		t.Fatalf("unexpected request %+v", got)
	}

	p, err := client.Probability(context.Background(), customer)
	if err != nil || p != 0.64 {
		t.Fatalf("Probability = %v, %v", p, err)
	}
}

func TestGetPredictionErrors(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "model not loaded", http.StatusInternalServerError)
		},
		"missing probability": func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"risk_level": "Low"}`))
		},
		"not json": func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`<html>`))
		},
	}
	for name, h := range cases {
		srv := httptest.NewServer(h)
		_, err := NewHTTPMLClient(srv.URL, time.Second, nil).GetPrediction(context.Background(), customer)
		srv.Close()
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestGetPredictionTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	client := NewHTTPMLClient(srv.URL, 20*time.Millisecond, nil)
	if _, err := client.Probability(context.Background(), customer); err == nil {
		t.Fatalf("expected timeout error")
	}
}

func TestGetAvailableModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`[
			{"name": "logistic_regression", "accuracy": 0.80, "roc_auc": 0.84},
			{"name": "xgboost", "accuracy": 0.79, "roc_auc": 0.86}
		]`))
	}))
	defer srv.Close()

	models, err := NewHTTPMLClient(srv.URL, time.Second, nil).GetAvailableModels(context.Background())
	if err != nil {
		t.Fatalf("GetAvailableModels error: %v", err)
	}
	if len(models) != 2 || models[1].Name != "xgboost" || models[1].ROCAUC != 0.86 {
		t.Fatalf("unexpected models %+v", models)
	}
}
