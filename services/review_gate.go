package services

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"marketplace-server/metrics"
	"marketplace-server/models"
	"marketplace-server/repository"
	"marketplace-server/types"
	"marketplace-server/utils"
)

// ReviewedSet remembers which requests already carry a review. It is a
// read-after-write cache; the backend stays authoritative.
type ReviewedSet interface {
	Contains(ctx context.Context, requestID uint) (bool, error)
	Add(ctx context.Context, requestID uint) error
}

// MemoryReviewedSet keeps reviewed ids for the life of the process
type MemoryReviewedSet struct {
	mu  sync.RWMutex
	ids map[uint]struct{}
}

func NewMemoryReviewedSet(ids ...uint) *MemoryReviewedSet {
	set := &MemoryReviewedSet{ids: make(map[uint]struct{}, len(ids))}
	for _, id := range ids {
		set.ids[id] = struct{}{}
	}
	return set
}

func (m *MemoryReviewedSet) Contains(_ context.Context, requestID uint) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.ids[requestID]
	return ok, nil
}

func (m *MemoryReviewedSet) Add(_ context.Context, requestID uint) error {
	m.mu.Lock()
	m.ids[requestID] = struct{}{}
	m.mu.Unlock()
	return nil
}

const reviewedKeyPrefix = "reviewed:customer:"

// RedisReviewedSet shares reviewed ids between CLI runs and processes, one
// set per customer.
type RedisReviewedSet struct {
	client *redis.Client
	key    string
}

func NewRedisReviewedSet(client *redis.Client, customerID uint) *RedisReviewedSet {
	return &RedisReviewedSet{
		client: client,
		key:    reviewedKeyPrefix + strconv.FormatUint(uint64(customerID), 10),
	}
}

func (r *RedisReviewedSet) Contains(ctx context.Context, requestID uint) (bool, error) {
	return r.client.SIsMember(ctx, r.key, requestID).Result()
}

func (r *RedisReviewedSet) Add(ctx context.Context, requestID uint) error {
	return r.client.SAdd(ctx, r.key, requestID).Err()
}

// CanReview reports whether the review action should be offered: the
// request is completed and not yet known to be reviewed. A failing cache
// lookup offers the action; a duplicate submit is caught by the backend.
func CanReview(ctx context.Context, req *models.ServiceRequest, existing ReviewedSet) bool {
	if req == nil || req.Status != models.StatusCompleted {
		return false
	}
	if existing == nil {
		return true
	}
	reviewed, err := existing.Contains(ctx, req.ID)
	if err != nil {
		utils.GetLogger().Warn("Reviewed set lookup failed", zap.Uint("request_id", req.ID), zap.Error(err))
		return true
	}
	return !reviewed
}

// ReviewGate decides when a customer may review and submits reviews
type ReviewGate struct {
	repo     repository.ReviewRepository
	reviewed ReviewedSet
	logger   *zap.Logger
}

// NewReviewGate creates a gate. A nil set falls back to an in-memory one.
func NewReviewGate(repo repository.ReviewRepository, reviewed ReviewedSet) *ReviewGate {
	if reviewed == nil {
		reviewed = NewMemoryReviewedSet()
	}
	return &ReviewGate{
		repo:     repo,
		reviewed: reviewed,
		logger:   utils.GetLogger().Named("review_gate"),
	}
}

// CanReview checks req against the gate's own reviewed set
func (g *ReviewGate) CanReview(ctx context.Context, req *models.ServiceRequest) bool {
	return CanReview(ctx, req, g.reviewed)
}

// Submit sends a review. Both success and a duplicate answer mark the
// request as reviewed.
func (g *ReviewGate) Submit(ctx context.Context, requestID uint, rating int, comment string) (*models.Review, error) {
	input := models.ReviewCreate{RequestID: requestID, Rating: rating, Comment: comment}
	if err := input.Validate(); err != nil {
		metrics.RecordReview(string(types.KindValidation))
		return nil, err
	}

	review, err := g.repo.CreateReview(ctx, input)
	if err != nil {
		kind := types.KindOf(err)
		metrics.RecordReview(string(kind))
		if errors.Is(err, types.ErrDuplicate) {
			g.remember(ctx, requestID)
		}
		g.logger.Warn("Review submission failed",
			zap.Uint("request_id", requestID),
			zap.String("kind", string(kind)),
			zap.Error(err))
		return nil, err
	}

	metrics.RecordReview("ok")
	g.remember(ctx, requestID)
	g.logger.Info("Review submitted", zap.Uint("request_id", requestID), zap.Int("rating", rating))
	return review, nil
}

// Reviewed answers from the cache first and then asks the backend,
// caching a positive answer.
func (g *ReviewGate) Reviewed(ctx context.Context, requestID uint) (bool, error) {
	if ok, err := g.reviewed.Contains(ctx, requestID); err == nil && ok {
		return true, nil
	}
	_, err := g.repo.ReviewForRequest(ctx, requestID)
	if errors.Is(err, types.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	g.remember(ctx, requestID)
	return true, nil
}

func (g *ReviewGate) remember(ctx context.Context, requestID uint) {
	if err := g.reviewed.Add(ctx, requestID); err != nil {
		g.logger.Warn("Could not cache reviewed request", zap.Uint("request_id", requestID), zap.Error(err))
	}
}
