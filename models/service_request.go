package models

import (
	"math"
	"strings"
	"time"

	"gorm.io/gorm"

	"marketplace-server/types"
)

// ServiceRequest represents a customer's request for a provider's service
type ServiceRequest struct {
	ID                 uint           `json:"id" gorm:"primaryKey"`
	CustomerID         uint           `json:"customer_id" gorm:"not null;index"`
	ProviderID         uint           `json:"provider_id" gorm:"not null;index"`
	ServiceID          uint           `json:"service_id" gorm:"not null"`
	Status             Status         `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	ProblemDescription string         `json:"problem_description" gorm:"type:text;not null"`
	ScheduledDate      *time.Time     `json:"scheduled_date"`
	Address            string         `json:"address" gorm:"type:text;not null"`
	Details            string         `json:"details" gorm:"type:text"`
	FinalPrice         *float64       `json:"final_price" gorm:"type:decimal(10,2)"`
	CompletedAt        *time.Time     `json:"completed_at"`
	CreatedAt          time.Time      `json:"created_at" gorm:"<-:create"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName specifies the table name for the ServiceRequest model
func (ServiceRequest) TableName() string {
	return "service_requests"
}

// IsParty reports whether the user is the customer or the provider of the request
func (r *ServiceRequest) IsParty(userID uint) bool {
	return r.CustomerID == userID || r.ProviderID == userID
}

// Counterparty returns the other side of the request for the given actor
func (r *ServiceRequest) Counterparty(actorID uint) uint {
	if actorID == r.CustomerID {
		return r.ProviderID
	}
	return r.CustomerID
}

// Clone returns a deep copy so cached entities never share pointers with stores
func (r *ServiceRequest) Clone() *ServiceRequest {
	if r == nil {
		return nil
	}
	c := *r
	if r.ScheduledDate != nil {
		t := *r.ScheduledDate
		c.ScheduledDate = &t
	}
	if r.FinalPrice != nil {
		p := *r.FinalPrice
		c.FinalPrice = &p
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// ServiceRequestCreate represents the input for creating a service request
type ServiceRequestCreate struct {
	ServiceID          uint       `json:"service_id"`
	ProviderID         uint       `json:"provider_id"`
	ProblemDescription string     `json:"problem_description"`
	ScheduledDate      *time.Time `json:"scheduled_date,omitempty"`
	Address            string     `json:"address"`
	Details            string     `json:"details,omitempty"`
}

// Validate checks the fields every request must carry before it is sent anywhere
func (in *ServiceRequestCreate) Validate() error {
	var missing []string
	if in.ServiceID == 0 {
		missing = append(missing, "service_id")
	}
	if strings.TrimSpace(in.ProblemDescription) == "" {
		missing = append(missing, "problem_description")
	}
	if strings.TrimSpace(in.Address) == "" {
		missing = append(missing, "address")
	}
	if len(missing) > 0 {
		return types.Validationf("Create", "missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// NewServiceRequest builds a pending request owned by customerID.
// Unlike Validate it also requires the provider, which only the system of
// record can check against its catalog. Text fields are stored as given;
// whitespace only matters for the blank checks.
func NewServiceRequest(customerID uint, in ServiceRequestCreate) (*ServiceRequest, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if customerID == 0 {
		return nil, types.NewError(types.KindAuth, "Create", "no authenticated customer")
	}
	if in.ProviderID == 0 {
		return nil, types.Validationf("Create", "missing required fields: provider_id")
	}
	if in.ProviderID == customerID {
		return nil, types.Validationf("Create", "customer cannot request their own service")
	}
	return &ServiceRequest{
		CustomerID:         customerID,
		ProviderID:         in.ProviderID,
		ServiceID:          in.ServiceID,
		Status:             StatusPending,
		ProblemDescription: in.ProblemDescription,
		ScheduledDate:      in.ScheduledDate,
		Address:            in.Address,
		Details:            in.Details,
	}, nil
}

// StatusUpdate is the body of PUT /requests/:id/status
type StatusUpdate struct {
	Status Status `json:"status"`
}

// CompletionUpdate is the body of PUT /requests/:id/complete
type CompletionUpdate struct {
	FinalPrice float64 `json:"final_price"`
}

// RoundPrice normalizes a price to whole cents, the precision final_price
// is stored with
func RoundPrice(price float64) float64 {
	return math.Round(price*100) / 100
}

// ValidateFinalPrice rejects prices that cannot close a request, including
// positive amounts that round to zero cents
func ValidateFinalPrice(price float64) error {
	if math.IsNaN(price) || math.IsInf(price, 0) || math.Round(price*100) < 1 {
		return types.Validationf("Complete", "final price must be at least 0.01, got %v", price)
	}
	return nil
}
