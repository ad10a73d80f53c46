package repository

import (
	"context"

	"marketplace-server/models"
	"marketplace-server/types"
)

// LocalRepository answers the RequestRepository contract straight from a
// Store for one user. The backend routes build one per call; requestctl uses
// it in offline mode.
type LocalRepository struct {
	store  Store
	userID uint
}

// NewLocalRepository binds a store to the session user
func NewLocalRepository(store Store, userID uint) *LocalRepository {
	return &LocalRepository{store: store, userID: userID}
}

func (r *LocalRepository) session(op string) error {
	if r.userID == 0 {
		return types.NewError(types.KindAuth, op, "no signed-in user")
	}
	return nil
}

// providerOf checks that the session user is the provider assigned to the request
func (r *LocalRepository) providerOf(ctx context.Context, op string, id uint) error {
	if err := r.session(op); err != nil {
		return err
	}
	req, err := r.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if req.ProviderID != r.userID {
		return types.NewError(types.KindAuth, op, "only the assigned provider can change this request")
	}
	return nil
}

func (r *LocalRepository) FetchMine(ctx context.Context, role models.Role, page, pageSize int) (*models.Page[models.ServiceRequest], error) {
	if err := r.session("FetchMine"); err != nil {
		return nil, err
	}
	switch role {
	case models.RoleCustomer:
		return r.store.ListByCustomer(ctx, r.userID, page, pageSize)
	case models.RoleProvider:
		return r.store.ListByProvider(ctx, r.userID, page, pageSize)
	case models.RoleAdmin:
		return r.store.ListAll(ctx, page, pageSize)
	}
	return nil, types.Validationf("FetchMine", "unknown role %q", role)
}

func (r *LocalRepository) Get(ctx context.Context, id uint) (*models.ServiceRequest, error) {
	if err := r.session("Get"); err != nil {
		return nil, err
	}
	return r.store.Get(ctx, id)
}

func (r *LocalRepository) Create(ctx context.Context, input models.ServiceRequestCreate) (*models.ServiceRequest, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if err := r.session("Create"); err != nil {
		return nil, err
	}
	req, err := models.NewServiceRequest(r.userID, input)
	if err != nil {
		return nil, err
	}
	if err := r.store.Create(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

func (r *LocalRepository) UpdateStatus(ctx context.Context, id uint, status models.Status) (*models.ServiceRequest, error) {
	if err := checkStatusTarget(status); err != nil {
		return nil, err
	}
	if err := r.providerOf(ctx, "UpdateStatus", id); err != nil {
		return nil, err
	}
	req, _, err := r.store.UpdateStatus(ctx, id, status)
	return req, err
}

func (r *LocalRepository) Complete(ctx context.Context, id uint, finalPrice float64) (*models.ServiceRequest, error) {
	if err := models.ValidateFinalPrice(finalPrice); err != nil {
		return nil, err
	}
	finalPrice = models.RoundPrice(finalPrice)
	if err := r.providerOf(ctx, "Complete", id); err != nil {
		return nil, err
	}
	req, _, err := r.store.Complete(ctx, id, finalPrice)
	return req, err
}

func (r *LocalRepository) CreateReview(ctx context.Context, input models.ReviewCreate) (*models.Review, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if err := r.session("CreateReview"); err != nil {
		return nil, err
	}
	req, err := r.store.Get(ctx, input.RequestID)
	if err != nil {
		return nil, err
	}
	if req.CustomerID != r.userID {
		return nil, types.NewError(types.KindAuth, "CreateReview", "only the customer who placed the request can review it")
	}
	if req.Status != models.StatusCompleted {
		return nil, types.Validationf("CreateReview", "only completed requests can be reviewed")
	}
	review := &models.Review{
		RequestID:  input.RequestID,
		CustomerID: r.userID,
		Rating:     input.Rating,
		Comment:    input.Comment,
	}
	if err := r.store.CreateReview(ctx, review); err != nil {
		return nil, err
	}
	return review, nil
}

func (r *LocalRepository) ReviewForRequest(ctx context.Context, requestID uint) (*models.Review, error) {
	if err := r.session("ReviewForRequest"); err != nil {
		return nil, err
	}
	return r.store.ReviewForRequest(ctx, requestID)
}
