package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"marketplace-server/models"
	"marketplace-server/types"
	"marketplace-server/utils"
)

const maxResponseBytes = 4 << 20

// HTTPConfig holds the REST client settings
type HTTPConfig struct {
	BaseURL string
	Token   string
	Locale  string
	Timeout time.Duration
	// Client overrides the default http.Client, mostly for tests
	Client *http.Client
}

// HTTPRepository talks to the marketplace REST backend. Every response is
// the {success, data, message} envelope; status codes and transport
// failures are mapped onto types.Error kinds and legacy status encodings
// are normalized before an entity leaves this type.
type HTTPRepository struct {
	baseURL    string
	token      string
	locale     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPRepository creates a REST client
func NewHTTPRepository(cfg HTTPConfig) *HTTPRepository {
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 15 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPRepository{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		locale:     cfg.Locale,
		httpClient: client,
		logger:     utils.GetLogger().Named("http_repository"),
	}
}

func (r *HTTPRepository) FetchMine(ctx context.Context, role models.Role, page, pageSize int) (*models.Page[models.ServiceRequest], error) {
	var path string
	switch role {
	case models.RoleCustomer:
		path = "/requests/mine"
	case models.RoleProvider:
		path = "/requests/provider"
	case models.RoleAdmin:
		path = "/requests"
	default:
		return nil, types.Validationf("FetchMine", "unknown role %q", role)
	}
	page, pageSize = models.NormalizePage(page, pageSize)
	path = fmt.Sprintf("%s?page=%d&page_size=%d", path, page, pageSize)

	data, err := r.do(ctx, "FetchMine", http.MethodGet, path, nil, types.KindConflict)
	if err != nil {
		return nil, err
	}
	return decodePage(data, page, pageSize)
}

func (r *HTTPRepository) Get(ctx context.Context, id uint) (*models.ServiceRequest, error) {
	data, err := r.do(ctx, "Get", http.MethodGet, fmt.Sprintf("/requests/%d", id), nil, types.KindConflict)
	if err != nil {
		return nil, err
	}
	return decodeRequest(data)
}

func (r *HTTPRepository) Create(ctx context.Context, input models.ServiceRequestCreate) (*models.ServiceRequest, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	data, err := r.do(ctx, "Create", http.MethodPost, "/requests", input, types.KindConflict)
	if err != nil {
		return nil, err
	}
	return decodeRequest(data)
}

func (r *HTTPRepository) UpdateStatus(ctx context.Context, id uint, status models.Status) (*models.ServiceRequest, error) {
	if !status.Valid() {
		return nil, types.Validationf("UpdateStatus", "unknown status %q", status)
	}
	data, err := r.do(ctx, "UpdateStatus", http.MethodPut, fmt.Sprintf("/requests/%d/status", id),
		models.StatusUpdate{Status: status}, types.KindConflict)
	if err != nil {
		return nil, err
	}
	return decodeRequest(data)
}

func (r *HTTPRepository) Complete(ctx context.Context, id uint, finalPrice float64) (*models.ServiceRequest, error) {
	if err := models.ValidateFinalPrice(finalPrice); err != nil {
		return nil, err
	}
	finalPrice = models.RoundPrice(finalPrice)
	data, err := r.do(ctx, "Complete", http.MethodPut, fmt.Sprintf("/requests/%d/complete", id),
		models.CompletionUpdate{FinalPrice: finalPrice}, types.KindConflict)
	if err != nil {
		return nil, err
	}
	return decodeRequest(data)
}

func (r *HTTPRepository) CreateReview(ctx context.Context, input models.ReviewCreate) (*models.Review, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	// a 409 on this route means the review already exists
	data, err := r.do(ctx, "CreateReview", http.MethodPost, "/reviews", input, types.KindDuplicate)
	if err != nil {
		return nil, err
	}
	return decodeReview(data)
}

func (r *HTTPRepository) ReviewForRequest(ctx context.Context, requestID uint) (*models.Review, error) {
	data, err := r.do(ctx, "ReviewForRequest", http.MethodGet, fmt.Sprintf("/reviews/request/%d", requestID), nil, types.KindDuplicate)
	if err != nil {
		return nil, err
	}
	return decodeReview(data)
}

// do sends one call and returns the envelope's data. conflictKind is the
// kind a 409 maps to on this route.
func (r *HTTPRepository) do(ctx context.Context, op, method, path string, body interface{}, conflictKind types.ErrorKind) (gjson.Result, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return gjson.Result{}, types.WrapError(types.KindValidation, op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return gjson.Result{}, types.WrapError(types.KindNetwork, op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	if r.locale != "" {
		req.Header.Set("Accept-Language", r.locale)
	}

	start := time.Now()
	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.logger.Warn("Request failed", zap.String("op", op), zap.String("path", path), zap.Error(err))
		return gjson.Result{}, types.WrapError(types.KindNetwork, op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return gjson.Result{}, types.WrapError(types.KindNetwork, op, err)
	}
	r.logger.Debug("Backend call",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	if kind, failed := kindForStatus(resp.StatusCode, conflictKind); failed {
		return gjson.Result{}, types.NewError(kind, op, envelopeMessage(raw, resp.Status))
	}

	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, types.NewError(types.KindServer, op, "malformed response body")
	}
	root := gjson.ParseBytes(raw)
	if ok := root.Get("success"); ok.Exists() && !ok.Bool() {
		return gjson.Result{}, types.NewError(types.KindServer, op, envelopeMessage(raw, "request was not successful"))
	}
	if data := root.Get("data"); data.Exists() {
		return data, nil
	}
	return root, nil
}

// kindForStatus maps an HTTP status to an error kind; failed is false for 2xx
func kindForStatus(code int, conflictKind types.ErrorKind) (types.ErrorKind, bool) {
	switch {
	case code >= 200 && code < 300:
		return "", false
	case code == http.StatusBadRequest, code == http.StatusUnprocessableEntity:
		return types.KindValidation, true
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return types.KindAuth, true
	case code == http.StatusNotFound:
		return types.KindNotFound, true
	case code == http.StatusConflict:
		return conflictKind, true
	}
	return types.KindServer, true
}

func envelopeMessage(raw []byte, fallback string) string {
	for _, key := range []string{"message", "error"} {
		if msg := gjson.GetBytes(raw, key).String(); msg != "" {
			return msg
		}
	}
	return fallback
}

// pick returns the first of the given paths present in r. The backend has
// shipped snake_case, camelCase and nested shapes for the same field.
func pick(r gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		if v := r.Get(p); v.Exists() && v.Type != gjson.Null {
			return v
		}
	}
	return gjson.Result{}
}

func decodeRequest(r gjson.Result) (*models.ServiceRequest, error) {
	if !r.IsObject() {
		return nil, types.NewError(types.KindServer, "decodeRequest", "expected a request object")
	}

	statusField := pick(r, "status", "status_id", "statusId", "state")
	if !statusField.Exists() {
		return nil, types.NewError(types.KindServer, "decodeRequest", "request has no status")
	}
	status, err := models.ParseStatus(statusField.Value())
	if err != nil {
		return nil, types.WrapError(types.KindServer, "decodeRequest", err)
	}

	req := &models.ServiceRequest{
		ID:                 uint(pick(r, "id", "_id", "request_id").Uint()),
		CustomerID:         uint(pick(r, "customer_id", "customerId", "customer.id", "user_id").Uint()),
		ProviderID:         uint(pick(r, "provider_id", "providerId", "provider.id", "worker_id", "workerId").Uint()),
		ServiceID:          uint(pick(r, "service_id", "serviceId", "service.id").Uint()),
		Status:             status,
		ProblemDescription: pick(r, "problem_description", "problemDescription").String(),
		Address:            pick(r, "address", "location.address").String(),
		Details:            pick(r, "details", "notes").String(),
		ScheduledDate:      decodeTime(pick(r, "scheduled_date", "scheduledDate")),
		CompletedAt:        decodeTime(pick(r, "completed_at", "completedAt")),
	}
	if t := decodeTime(pick(r, "created_at", "createdAt")); t != nil {
		req.CreatedAt = *t
	}
	if t := decodeTime(pick(r, "updated_at", "updatedAt")); t != nil {
		req.UpdatedAt = *t
	}
	if price := pick(r, "final_price", "finalPrice"); price.Exists() {
		p := price.Float()
		req.FinalPrice = &p
	}
	if req.ID == 0 {
		return nil, types.NewError(types.KindServer, "decodeRequest", "request has no id")
	}
	return req, nil
}

func decodeTime(v gjson.Result) *time.Time {
	if !v.Exists() {
		return nil
	}
	if v.Type == gjson.Number {
		t := time.UnixMilli(v.Int()).UTC()
		return &t
	}
	s := v.String()
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func decodePage(data gjson.Result, page, pageSize int) (*models.Page[models.ServiceRequest], error) {
	items := data
	total := int64(-1)
	if !data.IsArray() {
		items = pick(data, "items", "requests", "rows")
		if t := pick(data, "total", "pagination.total", "count"); t.Exists() {
			total = t.Int()
		}
		if p := pick(data, "page", "pagination.page"); p.Exists() {
			page = int(p.Int())
		}
		if ps := pick(data, "page_size", "pageSize", "pagination.page_size"); ps.Exists() {
			pageSize = int(ps.Int())
		}
	}

	result := &models.Page[models.ServiceRequest]{Items: []models.ServiceRequest{}, Page: page, PageSize: pageSize}
	var decodeErr error
	items.ForEach(func(_, v gjson.Result) bool {
		req, err := decodeRequest(v)
		if err != nil {
			decodeErr = err
			return false
		}
		result.Items = append(result.Items, *req)
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}
	if total < 0 {
		total = int64(len(result.Items))
	}
	result.Total = total
	return result, nil
}

func decodeReview(r gjson.Result) (*models.Review, error) {
	if !r.IsObject() {
		return nil, types.NewError(types.KindServer, "decodeReview", "expected a review object")
	}
	review := &models.Review{
		ID:         uint(pick(r, "id", "_id").Uint()),
		RequestID:  uint(pick(r, "request_id", "requestId", "service_request_id").Uint()),
		CustomerID: uint(pick(r, "customer_id", "customerId").Uint()),
		Rating:     int(pick(r, "rating", "stars").Int()),
		Comment:    pick(r, "comment", "review").String(),
	}
	if t := decodeTime(pick(r, "created_at", "createdAt")); t != nil {
		review.CreatedAt = *t
	}
	return review, nil
}
