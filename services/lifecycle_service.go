package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"marketplace-server/metrics"
	"marketplace-server/models"
	"marketplace-server/repository"
	"marketplace-server/types"
	"marketplace-server/utils"
)

// StaleStateError is returned when the backend refused a change because the
// caller's copy of the request was out of date. Latest holds the refetched
// entity when the refetch succeeded.
type StaleStateError struct {
	Latest *models.ServiceRequest
	Err    error
}

func (e *StaleStateError) Error() string {
	return fmt.Sprintf("state changed, please retry: %v", e.Err)
}

func (e *StaleStateError) Unwrap() error {
	return e.Err
}

// LifecycleService is the only path through which a request changes status.
// Illegal moves are refused before the repository is contacted; the
// repository's answer is returned as is, never merged into the caller's copy.
type LifecycleService struct {
	repo   repository.RequestRepository
	logger *zap.Logger
}

// NewLifecycleService creates a lifecycle service over a repository
func NewLifecycleService(repo repository.RequestRepository) *LifecycleService {
	return &LifecycleService{
		repo:   repo,
		logger: utils.GetLogger().Named("lifecycle"),
	}
}

// Accept moves a pending request to accepted
func (s *LifecycleService) Accept(ctx context.Context, req *models.ServiceRequest) (*models.ServiceRequest, error) {
	return s.transition(ctx, "Accept", req, models.StatusAccepted)
}

// Reject moves a pending request to rejected
func (s *LifecycleService) Reject(ctx context.Context, req *models.ServiceRequest) (*models.ServiceRequest, error) {
	return s.transition(ctx, "Reject", req, models.StatusRejected)
}

// Advance toggles between the working states. Completion goes through Complete.
func (s *LifecycleService) Advance(ctx context.Context, req *models.ServiceRequest, to models.Status) (*models.ServiceRequest, error) {
	if !to.Valid() {
		return nil, types.Validationf("Advance", "unknown status %q", to)
	}
	if to == models.StatusCompleted {
		return nil, types.Validationf("Advance", "completing a request requires a final price")
	}
	return s.transition(ctx, "Advance", req, to)
}

// Complete closes a request that is being worked on with its final price
func (s *LifecycleService) Complete(ctx context.Context, req *models.ServiceRequest, finalPrice float64) (*models.ServiceRequest, error) {
	if req == nil {
		return nil, types.Validationf("Complete", "no request given")
	}
	if err := models.ValidateFinalPrice(finalPrice); err != nil {
		s.record(req, models.StatusCompleted, err)
		return nil, err
	}
	// completed goes to the backend too: same price is a no-op there
	if req.Status != models.StatusCompleted && !models.IsLegalTransition(req.Status, models.StatusCompleted) {
		err := illegal("Complete", req, models.StatusCompleted)
		s.record(req, models.StatusCompleted, err)
		return nil, err
	}

	updated, err := s.repo.Complete(ctx, req.ID, finalPrice)
	return s.settle(ctx, "Complete", req, models.StatusCompleted, updated, err)
}

func (s *LifecycleService) transition(ctx context.Context, op string, req *models.ServiceRequest, to models.Status) (*models.ServiceRequest, error) {
	if req == nil {
		return nil, types.Validationf(op, "no request given")
	}
	// Re-sending the current status lets the backend confirm or report a conflict
	if req.Status != to && !models.IsLegalTransition(req.Status, to) {
		err := illegal(op, req, to)
		s.record(req, to, err)
		return nil, err
	}

	updated, err := s.repo.UpdateStatus(ctx, req.ID, to)
	return s.settle(ctx, op, req, to, updated, err)
}

// settle handles the repository answer: conflicts trigger a refetch so the
// caller can show the real state.
func (s *LifecycleService) settle(ctx context.Context, op string, req *models.ServiceRequest, to models.Status, updated *models.ServiceRequest, err error) (*models.ServiceRequest, error) {
	if err == nil && updated != nil && updated.Status != to {
		err = types.NewError(types.KindServer, op,
			fmt.Sprintf("backend answered with status %s instead of %s", updated.Status, to))
	}
	s.record(req, to, err)
	if err == nil {
		return updated, nil
	}

	if !errors.Is(err, types.ErrConflict) {
		return nil, err
	}
	latest, getErr := s.repo.Get(ctx, req.ID)
	if getErr != nil {
		s.logger.Warn("Refetch after conflict failed",
			zap.Uint("request_id", req.ID),
			zap.Error(getErr))
		return nil, &StaleStateError{Err: err}
	}
	return nil, &StaleStateError{Latest: latest, Err: err}
}

func (s *LifecycleService) record(req *models.ServiceRequest, to models.Status, err error) {
	fields := []zap.Field{
		zap.Uint("request_id", req.ID),
		zap.String("from", req.Status.String()),
		zap.String("to", to.String()),
	}
	if err == nil {
		metrics.RecordTransition(to.String(), "ok")
		s.logger.Info("Request status changed", fields...)
		return
	}

	kind := types.KindOf(err)
	if kind == "" {
		kind = types.KindServer
	}
	metrics.RecordTransition(to.String(), string(kind))
	s.logger.Warn("Request status change refused", append(fields, zap.String("kind", string(kind)), zap.Error(err))...)
}

func illegal(op string, req *models.ServiceRequest, to models.Status) error {
	return types.NewError(types.KindIllegalTransition, op,
		fmt.Sprintf("request %d cannot move from %s to %s", req.ID, req.Status, to))
}
