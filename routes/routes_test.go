package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-server/metrics"
	"marketplace-server/models"
	"marketplace-server/repository"
	"marketplace-server/services"
	"marketplace-server/types"
)

const (
	customerID = 1
	providerID = 2
	strangerID = 3
	adminID    = 9
)

type testServer struct {
	srv    *httptest.Server
	store  *repository.MemoryStore
	tokens *services.JWTService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := repository.NewMemoryStore()
	tokens := services.NewJWTService("routes-test-secret", time.Hour)
	router := gin.New()
	RegisterRoutes(router, Deps{Store: store, Tokens: tokens})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, store: store, tokens: tokens}
}

func (ts *testServer) token(t *testing.T, userID uint, role models.Role) string {
	t.Helper()
	token, _, err := ts.tokens.GenerateAccessToken(userID, role)
	require.NoError(t, err)
	return token
}

func (ts *testServer) client(t *testing.T, userID uint, role models.Role) *repository.HTTPRepository {
	t.Helper()
	return repository.NewHTTPRepository(repository.HTTPConfig{
		BaseURL: ts.srv.URL + "/api/v1",
		Token:   ts.token(t, userID, role),
		Locale:  "en",
	})
}

func (ts *testServer) call(t *testing.T, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var envelope map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return resp.StatusCode, envelope
}

func sampleInput() models.ServiceRequestCreate {
	scheduled := time.Date(2026, 11, 3, 9, 30, 0, 0, time.UTC)
	return models.ServiceRequestCreate{
		ServiceID:          4,
		ProviderID:         providerID,
		ProblemDescription: "Kitchen sink is leaking",
		ScheduledDate:      &scheduled,
		Address:            "12 Nile St",
		Details:            "Ring twice",
	}
}

func TestCreateThenFetchMineRoundTrip(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	customer := ts.client(t, customerID, models.RoleCustomer)

	created, err := customer.Create(ctx, sampleInput())
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, created.Status)
	assert.Equal(t, uint(customerID), created.CustomerID)

	page, err := customer.FetchMine(ctx, models.RoleCustomer, 1, 20)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(1), page.Total)

	got := page.Items[0]
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.ServiceID, got.ServiceID)
	assert.Equal(t, created.ProviderID, got.ProviderID)
	assert.Equal(t, created.ProblemDescription, got.ProblemDescription)
	assert.Equal(t, created.Address, got.Address)
	assert.Equal(t, created.Details, got.Details)
	require.NotNil(t, got.ScheduledDate)
	assert.True(t, created.ScheduledDate.Equal(*got.ScheduledDate))
	assert.True(t, created.CreatedAt.Equal(got.CreatedAt))

	provider := ts.client(t, providerID, models.RoleProvider)
	inbox, err := provider.FetchMine(ctx, models.RoleProvider, 1, 20)
	require.NoError(t, err)
	require.Len(t, inbox.Items, 1)
	assert.Equal(t, created.ID, inbox.Items[0].ID)
}

func TestFullLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	customerRepo := ts.client(t, customerID, models.RoleCustomer)
	providerRepo := ts.client(t, providerID, models.RoleProvider)

	req, err := customerRepo.Create(ctx, sampleInput())
	require.NoError(t, err)

	lifecycle := services.NewLifecycleService(providerRepo)
	req, err = lifecycle.Accept(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, req.Status)

	req, err = lifecycle.Advance(ctx, req, models.StatusOnTheWay)
	require.NoError(t, err)
	req, err = lifecycle.Advance(ctx, req, models.StatusInProgress)
	require.NoError(t, err)

	req, err = lifecycle.Complete(ctx, req, 150)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, req.Status)
	require.NotNil(t, req.FinalPrice)
	assert.Equal(t, 150.0, *req.FinalPrice)

	gate := services.NewReviewGate(customerRepo, nil)
	assert.True(t, gate.CanReview(ctx, req))

	review, err := gate.Submit(ctx, req.ID, 5, "Quick and clean")
	require.NoError(t, err)
	assert.Equal(t, req.ID, review.RequestID)
	assert.False(t, gate.CanReview(ctx, req))

	// a fresh gate only learns about the review from the backend
	_, err = services.NewReviewGate(customerRepo, nil).Submit(ctx, req.ID, 4, "again")
	assert.True(t, errors.Is(err, types.ErrDuplicate))

	reviewed, err := services.NewReviewGate(customerRepo, nil).Reviewed(ctx, req.ID)
	require.NoError(t, err)
	assert.True(t, reviewed)
}

func TestStaleProviderSessionGetsLatestState(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	customerRepo := ts.client(t, customerID, models.RoleCustomer)
	lifecycle := services.NewLifecycleService(ts.client(t, providerID, models.RoleProvider))

	req, err := customerRepo.Create(ctx, sampleInput())
	require.NoError(t, err)
	stale := req.Clone()

	_, err = lifecycle.Accept(ctx, req)
	require.NoError(t, err)

	// the second tab still shows pending and tries to reject
	_, err = lifecycle.Reject(ctx, stale)
	var staleErr *services.StaleStateError
	require.True(t, errors.As(err, &staleErr))
	assert.True(t, errors.Is(err, types.ErrConflict))
	require.NotNil(t, staleErr.Latest)
	assert.Equal(t, models.StatusAccepted, staleErr.Latest.Status)
}

func TestOnlyAssignedProviderMutates(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	req, err := ts.client(t, customerID, models.RoleCustomer).Create(ctx, sampleInput())
	require.NoError(t, err)

	_, err = ts.client(t, strangerID, models.RoleProvider).UpdateStatus(ctx, req.ID, models.StatusAccepted)
	assert.True(t, errors.Is(err, types.ErrAuth))

	// customers are stopped by role before the handler runs
	status, envelope := ts.call(t, http.MethodPut, "/api/v1/requests/1/status",
		ts.token(t, customerID, models.RoleCustomer), models.StatusUpdate{Status: models.StatusAccepted})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, false, envelope["success"])
}

func TestRequestVisibility(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	req, err := ts.client(t, customerID, models.RoleCustomer).Create(ctx, sampleInput())
	require.NoError(t, err)

	_, err = ts.client(t, strangerID, models.RoleCustomer).Get(ctx, req.ID)
	assert.True(t, errors.Is(err, types.ErrAuth))

	got, err := ts.client(t, adminID, models.RoleAdmin).Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, req.ID, got.ID)

	all, err := ts.client(t, adminID, models.RoleAdmin).FetchMine(ctx, models.RoleAdmin, 1, 20)
	require.NoError(t, err)
	assert.Len(t, all.Items, 1)

	_, err = ts.client(t, customerID, models.RoleCustomer).Get(ctx, 404)
	assert.True(t, errors.Is(err, types.ErrNotFound))
}

func TestRouteErrorEnvelopes(t *testing.T) {
	ts := newTestServer(t)
	provider := ts.token(t, providerID, models.RoleProvider)

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		body       interface{}
		wantStatus int
	}{
		{"missing token", http.MethodGet, "/api/v1/requests/mine", "", nil, http.StatusUnauthorized},
		{"bad token", http.MethodGet, "/api/v1/requests/mine", "not-a-jwt", nil, http.StatusUnauthorized},
		{"bad id", http.MethodGet, "/api/v1/requests/abc", provider, nil, http.StatusBadRequest},
		{"unknown status", http.MethodPut, "/api/v1/requests/1/status", provider, gin.H{"status": "archived"}, http.StatusBadRequest},
		{"completed via status", http.MethodPut, "/api/v1/requests/1/status", provider, gin.H{"status": "completed"}, http.StatusBadRequest},
		{"zero price", http.MethodPut, "/api/v1/requests/1/complete", provider, gin.H{"final_price": 0}, http.StatusBadRequest},
		{"missing request", http.MethodPut, "/api/v1/requests/77/status", provider, gin.H{"status": "accepted"}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, envelope := ts.call(t, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, false, envelope["success"])
			assert.NotEmpty(t, envelope["message"])
		})
	}
}

func TestReviewRules(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	customerRepo := ts.client(t, customerID, models.RoleCustomer)
	req, err := customerRepo.Create(ctx, sampleInput())
	require.NoError(t, err)

	_, err = customerRepo.CreateReview(ctx, models.ReviewCreate{RequestID: req.ID, Rating: 5})
	assert.True(t, errors.Is(err, types.ErrValidation), "pending requests cannot be reviewed, got %v", err)

	_, err = customerRepo.ReviewForRequest(ctx, req.ID)
	assert.True(t, errors.Is(err, types.ErrNotFound))

	_, err = ts.client(t, strangerID, models.RoleCustomer).ReviewForRequest(ctx, req.ID)
	assert.True(t, errors.Is(err, types.ErrAuth))
}

func transitionCount(t *testing.T, to, outcome string) float64 {
	t.Helper()
	families, err := metrics.Registry.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "marketplace_lifecycle_transitions_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["to"] == to && labels["outcome"] == outcome {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestHandlersCountTransitions(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	customer := ts.client(t, customerID, models.RoleCustomer)
	provider := ts.client(t, providerID, models.RoleProvider)

	req, err := customer.Create(ctx, sampleInput())
	require.NoError(t, err)

	acceptedOK := transitionCount(t, "accepted", "ok")
	completedConflict := transitionCount(t, "completed", "conflict")
	completedOK := transitionCount(t, "completed", "ok")

	_, err = provider.UpdateStatus(ctx, req.ID, models.StatusAccepted)
	require.NoError(t, err)
	_, err = provider.Complete(ctx, req.ID, 45)
	assert.True(t, errors.Is(err, types.ErrConflict))
	_, err = provider.UpdateStatus(ctx, req.ID, models.StatusInProgress)
	require.NoError(t, err)
	done, err := provider.Complete(ctx, req.ID, 45.001)
	require.NoError(t, err)
	assert.Equal(t, 45.0, *done.FinalPrice)

	assert.Equal(t, acceptedOK+1, transitionCount(t, "accepted", "ok"))
	assert.Equal(t, completedConflict+1, transitionCount(t, "completed", "conflict"))
	assert.Equal(t, completedOK+1, transitionCount(t, "completed", "ok"))
}

func TestCreateKeepsSurroundingWhitespace(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	customer := ts.client(t, customerID, models.RoleCustomer)

	input := sampleInput()
	input.ProblemDescription = "  Kitchen sink is leaking\n"
	input.Address = " 12 Nile St "
	input.Details = "Ring twice\t"
	_, err := customer.Create(ctx, input)
	require.NoError(t, err)

	page, err := customer.FetchMine(ctx, models.RoleCustomer, 1, 20)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, input.ProblemDescription, page.Items[0].ProblemDescription)
	assert.Equal(t, input.Address, page.Items[0].Address)
	assert.Equal(t, input.Details, page.Items[0].Details)
}
