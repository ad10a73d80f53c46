package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"marketplace-server/models"
	"marketplace-server/types"
)

// GormStore is the PostgreSQL system of record. Status changes are
// conditional UPDATEs so concurrent actors cannot both win a transition.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStore wraps an open gorm connection
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db, now: time.Now}
}

func (s *GormStore) ListByCustomer(ctx context.Context, customerID uint, page, pageSize int) (*models.Page[models.ServiceRequest], error) {
	return s.list(ctx, "ListByCustomer", page, pageSize, func(db *gorm.DB) *gorm.DB {
		return db.Where("customer_id = ?", customerID)
	})
}

func (s *GormStore) ListByProvider(ctx context.Context, providerID uint, page, pageSize int) (*models.Page[models.ServiceRequest], error) {
	return s.list(ctx, "ListByProvider", page, pageSize, func(db *gorm.DB) *gorm.DB {
		return db.Where("provider_id = ?", providerID)
	})
}

func (s *GormStore) ListAll(ctx context.Context, page, pageSize int) (*models.Page[models.ServiceRequest], error) {
	return s.list(ctx, "ListAll", page, pageSize, func(db *gorm.DB) *gorm.DB { return db })
}

func (s *GormStore) list(ctx context.Context, op string, page, pageSize int, scope func(*gorm.DB) *gorm.DB) (*models.Page[models.ServiceRequest], error) {
	page, pageSize = models.NormalizePage(page, pageSize)
	base := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&models.ServiceRequest{}).Scopes(scope)
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, types.WrapError(types.KindServer, op, err)
	}

	items := []models.ServiceRequest{}
	if err := base().
		Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&items).Error; err != nil {
		return nil, types.WrapError(types.KindServer, op, err)
	}

	return &models.Page[models.ServiceRequest]{Items: items, Page: page, PageSize: pageSize, Total: total}, nil
}

func (s *GormStore) Get(ctx context.Context, id uint) (*models.ServiceRequest, error) {
	var req models.ServiceRequest
	if err := s.db.WithContext(ctx).First(&req, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("Get", "request", id)
		}
		return nil, types.WrapError(types.KindServer, "Get", err)
	}
	return &req, nil
}

func (s *GormStore) Create(ctx context.Context, req *models.ServiceRequest) error {
	req.ID = 0
	req.Status = models.StatusPending
	req.FinalPrice = nil
	req.CompletedAt = nil
	if err := s.db.WithContext(ctx).Create(req).Error; err != nil {
		return types.WrapError(types.KindServer, "Create", err)
	}
	return nil
}

func (s *GormStore) UpdateStatus(ctx context.Context, id uint, to models.Status) (*models.ServiceRequest, bool, error) {
	if err := checkStatusTarget(to); err != nil {
		return nil, false, err
	}

	res := s.db.WithContext(ctx).
		Model(&models.ServiceRequest{}).
		Where("id = ? AND status IN ?", id, statusStrings(models.Predecessors(to))).
		Updates(map[string]interface{}{
			"status":     string(to),
			"updated_at": s.now(),
		})
	if res.Error != nil {
		return nil, false, types.WrapError(types.KindServer, "UpdateStatus", res.Error)
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if res.RowsAffected > 0 {
		return current, true, nil
	}

	// Nothing matched: either the request already has `to`, or another
	// actor moved it somewhere the transition is not allowed from.
	applied, err := applyStatus(current, to)
	if err != nil {
		return nil, false, err
	}
	if applied {
		return nil, false, types.NewError(types.KindConflict, "UpdateStatus",
			fmt.Sprintf("request %d changed concurrently, please retry", id))
	}
	return current, false, nil
}

func (s *GormStore) Complete(ctx context.Context, id uint, finalPrice float64) (*models.ServiceRequest, bool, error) {
	if err := models.ValidateFinalPrice(finalPrice); err != nil {
		return nil, false, err
	}
	finalPrice = models.RoundPrice(finalPrice)

	now := s.now()
	res := s.db.WithContext(ctx).
		Model(&models.ServiceRequest{}).
		Where("id = ? AND status IN ?", id, statusStrings(models.Predecessors(models.StatusCompleted))).
		Updates(map[string]interface{}{
			"status":       string(models.StatusCompleted),
			"final_price":  finalPrice,
			"completed_at": now,
			"updated_at":   now,
		})
	if res.Error != nil {
		return nil, false, types.WrapError(types.KindServer, "Complete", res.Error)
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if res.RowsAffected > 0 {
		return current, true, nil
	}

	applied, err := applyCompletion(current, finalPrice)
	if err != nil {
		return nil, false, err
	}
	if applied {
		return nil, false, types.NewError(types.KindConflict, "Complete",
			fmt.Sprintf("request %d changed concurrently, please retry", id))
	}
	return current, false, nil
}

func (s *GormStore) CreateReview(ctx context.Context, review *models.Review) error {
	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.Review{}).
		Where("request_id = ?", review.RequestID).
		Count(&existing).Error; err != nil {
		return types.WrapError(types.KindServer, "CreateReview", err)
	}
	if existing > 0 {
		return types.NewError(types.KindDuplicate, "CreateReview",
			fmt.Sprintf("request %d already has a review", review.RequestID))
	}

	// The unique index on request_id settles the race the count above cannot
	if err := s.db.WithContext(ctx).Create(review).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return types.NewError(types.KindDuplicate, "CreateReview",
				fmt.Sprintf("request %d already has a review", review.RequestID))
		}
		return types.WrapError(types.KindServer, "CreateReview", err)
	}
	return nil
}

func (s *GormStore) ReviewForRequest(ctx context.Context, requestID uint) (*models.Review, error) {
	var review models.Review
	if err := s.db.WithContext(ctx).Where("request_id = ?", requestID).First(&review).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("ReviewForRequest", "review for request", requestID)
		}
		return nil, types.WrapError(types.KindServer, "ReviewForRequest", err)
	}
	return &review, nil
}

func statusStrings(statuses []models.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
