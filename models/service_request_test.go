package models

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"marketplace-server/types"
)

func TestServiceRequestCreateValidate(t *testing.T) {
	valid := ServiceRequestCreate{ServiceID: 3, ProblemDescription: "Leaking sink", Address: "12 Nile St"}
	assert.NoError(t, valid.Validate())

	blank := ServiceRequestCreate{ServiceID: 0, ProblemDescription: "   ", Address: ""}
	err := blank.Validate()
	assert.True(t, errors.Is(err, types.ErrValidation))
	assert.Contains(t, err.Error(), "service_id, problem_description, address")
}

func TestValidateFinalPrice(t *testing.T) {
	for _, p := range []float64{0, -5, 0.004, math.NaN(), math.Inf(1)} {
		assert.True(t, errors.Is(ValidateFinalPrice(p), types.ErrValidation), "price %v", p)
	}
	assert.NoError(t, ValidateFinalPrice(0.01))
	assert.NoError(t, ValidateFinalPrice(0.005))
}

func TestRoundPrice(t *testing.T) {
	assert.Equal(t, 45.0, RoundPrice(45.001))
	assert.Equal(t, 0.01, RoundPrice(0.005))
	assert.Equal(t, 19.99, RoundPrice(19.99))
}

func TestNewServiceRequestKeepsTextAsGiven(t *testing.T) {
	in := ServiceRequestCreate{
		ServiceID:          3,
		ProviderID:         7,
		ProblemDescription: "  Leaking sink\n",
		Address:            " 12 Nile St ",
		Details:            "\tback door",
	}
	req, err := NewServiceRequest(9, in)
	assert.NoError(t, err)
	assert.Equal(t, in.ProblemDescription, req.ProblemDescription)
	assert.Equal(t, in.Address, req.Address)
	assert.Equal(t, in.Details, req.Details)
	assert.Equal(t, StatusPending, req.Status)
}

func TestReviewCreateValidate(t *testing.T) {
	assert.NoError(t, (&ReviewCreate{RequestID: 1, Rating: 5}).Validate())
	assert.NoError(t, (&ReviewCreate{RequestID: 1, Rating: 1}).Validate())
	assert.Error(t, (&ReviewCreate{RequestID: 1, Rating: 0}).Validate())
	assert.Error(t, (&ReviewCreate{RequestID: 1, Rating: 6}).Validate())
	assert.Error(t, (&ReviewCreate{Rating: 3}).Validate())
}

func TestCloneDoesNotSharePointers(t *testing.T) {
	price := 45.0
	r := &ServiceRequest{ID: 1, FinalPrice: &price}
	c := r.Clone()
	*c.FinalPrice = 10
	assert.Equal(t, 45.0, *r.FinalPrice)
}

func TestCounterparty(t *testing.T) {
	r := &ServiceRequest{CustomerID: 10, ProviderID: 20}
	assert.Equal(t, uint(20), r.Counterparty(10))
	assert.Equal(t, uint(10), r.Counterparty(20))
	assert.True(t, r.IsParty(20))
	assert.False(t, r.IsParty(30))
}

func TestNormalizePage(t *testing.T) {
	p, s := NormalizePage(0, 0)
	assert.Equal(t, 1, p)
	assert.Equal(t, DefaultPageSize, s)

	_, s = NormalizePage(2, 1000)
	assert.Equal(t, MaxPageSize, s)

	page := Page[ServiceRequest]{PageSize: 20, Total: 41}
	assert.Equal(t, int64(3), page.Pages())
}
