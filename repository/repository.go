// Package repository is the boundary between the lifecycle core and whatever
// holds the service requests: the REST backend, or a local store in offline mode.
package repository

import (
	"context"

	"marketplace-server/models"
)

// RequestRepository fetches and mutates service requests on behalf of the
// signed-in user. Every mutation returns the entity as persisted.
type RequestRepository interface {
	FetchMine(ctx context.Context, role models.Role, page, pageSize int) (*models.Page[models.ServiceRequest], error)
	Get(ctx context.Context, id uint) (*models.ServiceRequest, error)
	Create(ctx context.Context, input models.ServiceRequestCreate) (*models.ServiceRequest, error)
	UpdateStatus(ctx context.Context, id uint, status models.Status) (*models.ServiceRequest, error)
	Complete(ctx context.Context, id uint, finalPrice float64) (*models.ServiceRequest, error)
}

// ReviewRepository submits and looks up reviews
type ReviewRepository interface {
	CreateReview(ctx context.Context, input models.ReviewCreate) (*models.Review, error)
	ReviewForRequest(ctx context.Context, requestID uint) (*models.Review, error)
}

// Store is the system of record behind the backend routes and the offline
// repository. UpdateStatus and Complete are atomic per request: the boolean
// result is false when the call was a no-op because the request already
// had the requested state.
type Store interface {
	ListByCustomer(ctx context.Context, customerID uint, page, pageSize int) (*models.Page[models.ServiceRequest], error)
	ListByProvider(ctx context.Context, providerID uint, page, pageSize int) (*models.Page[models.ServiceRequest], error)
	ListAll(ctx context.Context, page, pageSize int) (*models.Page[models.ServiceRequest], error)
	Get(ctx context.Context, id uint) (*models.ServiceRequest, error)
	Create(ctx context.Context, req *models.ServiceRequest) error
	UpdateStatus(ctx context.Context, id uint, to models.Status) (*models.ServiceRequest, bool, error)
	Complete(ctx context.Context, id uint, finalPrice float64) (*models.ServiceRequest, bool, error)
	CreateReview(ctx context.Context, review *models.Review) error
	ReviewForRequest(ctx context.Context, requestID uint) (*models.Review, error)
}
