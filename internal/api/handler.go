package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"churn_service/internal/core"
	"churn_service/internal/domain/model"
	"churn_service/internal/domain/repository"
	"churn_service/internal/ingest"
)

const (
	defaultOwner          = "default"
	defaultMaxUploadBytes = 32 << 20
)

type Handler struct {
	service        *core.PredictionService
	datasets       repository.DatasetRepository
	logger         *zap.Logger
	maxUploadBytes int64
}

func NewHandler(service *core.PredictionService, datasets repository.DatasetRepository, logger *zap.Logger, maxUploadBytes int64) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{
		service:        service,
		datasets:       datasets,
		logger:         logger.Named("api"),
		maxUploadBytes: maxUploadBytes,
	}
}

// PredictRequest carries the customer form fields.
type PredictRequest struct {
	CustomerID       string   `json:"CustomerID"`
	Gender           string   `json:"Gender"`
	SeniorCitizen    int      `json:"SeniorCitizen"`
	Partner          string   `json:"Partner"`
	Dependents       string   `json:"Dependents"`
	Tenure           int      `json:"Tenure"`
	PhoneService     string   `json:"PhoneService"`
	InternetService  string   `json:"InternetService"`
	TechSupport      string   `json:"TechSupport"`
	OnlineSecurity   string   `json:"OnlineSecurity"`
	Contract         string   `json:"Contract"`
	PaperlessBilling string   `json:"PaperlessBilling"`
	PaymentMethod    string   `json:"PaymentMethod"`
	MonthlyCharges   float64  `json:"MonthlyCharges"`
	TotalCharges     float64  `json:"TotalCharges"`
	ChurnProbability *float64 `json:"churn_probability,omitempty"`
}

func isYes(v string) bool {
	return strings.EqualFold(strings.TrimSpace(v), "yes")
}

func (req PredictRequest) validate() error {
	switch {
	case req.Tenure < 0:
		return fmt.Errorf("tenure must not be negative")
	case req.MonthlyCharges < 0:
		return fmt.Errorf("monthly charges must not be negative")
	case req.TotalCharges < 0:
		return fmt.Errorf("total charges must not be negative")
	case strings.TrimSpace(req.Contract) == "":
		return fmt.Errorf("contract is required")
	}
	return nil
}

func (req PredictRequest) record() model.CustomerRecord {
	return model.CustomerRecord{
		CustomerID:       strings.TrimSpace(req.CustomerID),
		Gender:           strings.TrimSpace(req.Gender),
		SeniorCitizen:    req.SeniorCitizen == 1,
		Partner:          isYes(req.Partner),
		Dependents:       isYes(req.Dependents),
		Tenure:           req.Tenure,
		PhoneService:     isYes(req.PhoneService),
		InternetService:  model.ParseInternetService(req.InternetService),
		TechSupport:      isYes(req.TechSupport),
		OnlineSecurity:   isYes(req.OnlineSecurity),
		Contract:         model.ParseContract(req.Contract),
		PaperlessBilling: isYes(req.PaperlessBilling),
		PaymentMethod:    model.ParsePaymentMethod(req.PaymentMethod),
		MonthlyCharges:   req.MonthlyCharges,
		TotalCharges:     req.TotalCharges,
		Probability:      req.ChurnProbability,
	}
}

func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFromContext(r.Context())

	var req PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_json", "Invalid request body", requestID)
		return
	}
	if err := req.validate(); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", err.Error(), requestID)
		return
	}

	rec := req.record()
	if rec.Probability != nil {
		// A caller-supplied score is classified as-is.
		pred := h.service.PredictWithProbability(r.Context(), rec, *rec.Probability, core.SourceRequest)
		h.writeSuccess(w, http.StatusOK, "", pred)
		return
	}

	prediction, err := h.service.Predict(r.Context(), rec)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeSuccess(w, http.StatusOK, "", prediction)
}

// readUpload returns the CSV from a multipart "file" field or the raw body.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) ([]model.CustomerRecord, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	var src io.Reader = r.Body
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		file, _, err := r.FormFile("file")
		if errors.Is(err, http.ErrMissingFile) {
			return nil, fmt.Errorf("%w: multipart field \"file\"", ingest.ErrMissingColumn)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read multipart upload: %w", err)
		}
		defer file.Close()
		src = file
	}
	return ingest.ReadCustomers(src)
}

func (h *Handler) scoreUpload(w http.ResponseWriter, r *http.Request) ([]model.ScoredCustomer, bool) {
	rows, err := h.readUpload(w, r)
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	scored, err := core.ScoreTable(r.Context(), rows, h.service)
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	return scored, true
}

type UploadResponse struct {
	Snapshot  model.DatasetSnapshot `json:"snapshot"`
	Dashboard core.DashboardKPIs    `json:"dashboard"`
}

func (h *Handler) UploadDataset(w http.ResponseWriter, r *http.Request) {
	scored, ok := h.scoreUpload(w, r)
	if !ok {
		return
	}

	policy := h.service.Policy()
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	owner := ownerParam(r)
	if name == "" {
		name = "upload"
	}
	snap, err := core.Summarize(uuid.NewString(), name, owner, scored, policy)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.datasets.Save(r.Context(), snap); err != nil {
		h.fail(w, r, err)
		return
	}

	h.logger.Info("Dataset stored",
		zap.String("id", snap.ID),
		zap.String("owner", snap.Owner),
		zap.Int("customers", snap.CustomerCount),
		zap.Float64("churn_rate_pct", snap.ChurnRatePct))

	h.writeSuccess(w, http.StatusCreated, "", UploadResponse{
		Snapshot:  snap,
		Dashboard: core.Dashboard(scored, policy),
	})
}

type AnalyzeResponse struct {
	Dashboard core.DashboardKPIs     `json:"dashboard"`
	Customers []model.ScoredCustomer `json:"customers"`
	Matched   int                    `json:"matched"`
	Retention []core.RetentionAction `json:"retention"`
}

// Analyze scores an uploaded table without storing it.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := core.CustomerFilter{
		IDSubstring: q.Get("q"),
	}
	if raw := q.Get("tier"); raw != "" && !strings.EqualFold(raw, "all") {
		tier, ok := model.ParseRiskTier(raw)
		if !ok {
			h.writeError(w, http.StatusBadRequest, "invalid_request", fmt.Sprintf("unknown tier %q", raw), requestIDFromContext(r.Context()))
			return
		}
		filter.Tier = tier
	}
	if raw := q.Get("contract"); raw != "" && !strings.EqualFold(raw, "all") {
		filter.Contract = model.ParseContract(raw)
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "limit must be a non-negative integer", requestIDFromContext(r.Context()))
			return
		}
		filter.Limit = limit
	}

	scored, ok := h.scoreUpload(w, r)
	if !ok {
		return
	}
	policy := h.service.Policy()
	customers := core.FilterCustomers(scored, filter, policy)
	h.writeSuccess(w, http.StatusOK, "", AnalyzeResponse{
		Dashboard: core.Dashboard(scored, policy),
		Customers: customers,
		Matched:   len(customers),
		Retention: core.RetentionPlan(scored, policy),
	})
}

func (h *Handler) GetDataset(w http.ResponseWriter, r *http.Request) {
	snap, err := h.datasets.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeSuccess(w, http.StatusOK, "", snap)
}

func (h *Handler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		var err error
		if limit, err = strconv.Atoi(raw); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "limit must be an integer", requestIDFromContext(r.Context()))
			return
		}
	}
	snaps, err := h.datasets.ListByOwner(r.Context(), ownerParam(r), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeSuccess(w, http.StatusOK, "", snaps)
}

func (h *Handler) Compare(w http.ResponseWriter, r *http.Request) {
	baselineID := strings.TrimSpace(r.URL.Query().Get("baseline"))
	currentID := strings.TrimSpace(r.URL.Query().Get("current"))
	if baselineID == "" || currentID == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "baseline and current are required", requestIDFromContext(r.Context()))
		return
	}

	baseline, err := h.datasets.Get(r.Context(), baselineID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	current, err := h.datasets.Get(r.Context(), currentID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	result, err := core.Compare(baseline, current)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeSuccess(w, http.StatusOK, "", result)
}

type ModelsResponse struct {
	Models []model.ModelInfo `json:"models"`
	Best   *model.ModelInfo  `json:"best,omitempty"`
}

func (h *Handler) GetModels(w http.ResponseWriter, r *http.Request) {
	models, best, err := h.service.GetAvailableModels(r.Context())
	if err != nil {
		h.writeError(w, http.StatusBadGateway, "upstream_error", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	h.writeSuccess(w, http.StatusOK, "", ModelsResponse{Models: models, Best: best})
}

func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	h.writeSuccess(w, http.StatusOK, "ok", nil)
}

func (h *Handler) GetPolicy(w http.ResponseWriter, _ *http.Request) {
	h.writeSuccess(w, http.StatusOK, "", h.service.Policy())
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := mapDomainError(err)
	requestID := requestIDFromContext(r.Context())
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("request_id", requestID),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	h.writeError(w, status, code, err.Error(), requestID)
}

func ownerParam(r *http.Request) string {
	if owner := strings.TrimSpace(r.URL.Query().Get("owner")); owner != "" {
		return owner
	}
	return defaultOwner
}
