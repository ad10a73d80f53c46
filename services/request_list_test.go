package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-server/models"
)

func TestRequestListApplyReplacesWholeEntity(t *testing.T) {
	list := NewRequestList()
	list.Replace(&models.Page[models.ServiceRequest]{
		Items: []models.ServiceRequest{
			{ID: 1, Status: models.StatusPending, Details: "ring twice"},
			{ID: 2, Status: models.StatusPending},
		},
		Total: 2,
	})

	list.Apply(&models.ServiceRequest{ID: 1, Status: models.StatusAccepted})

	got, ok := list.Get(1)
	require.True(t, ok)
	assert.Equal(t, models.StatusAccepted, got.Status)
	assert.Empty(t, got.Details, "fields are not merged")
	assert.Len(t, list.Items(), 2)

	list.Apply(&models.ServiceRequest{ID: 3, Status: models.StatusPending})
	items := list.Items()
	assert.Equal(t, uint(3), items[0].ID)
	assert.Equal(t, int64(3), list.Total())
}

func TestRequestListDoesNotShareMemory(t *testing.T) {
	price := 20.0
	when := time.Now()
	list := NewRequestList()
	src := &models.ServiceRequest{ID: 1, FinalPrice: &price, ScheduledDate: &when}
	list.Apply(src)

	price = 99
	got, _ := list.Get(1)
	assert.Equal(t, 20.0, *got.FinalPrice)

	items := list.Items()
	items[0].Status = models.StatusRejected
	again, _ := list.Get(1)
	assert.NotEqual(t, models.StatusRejected, again.Status)

	_, ok := list.Get(42)
	assert.False(t, ok)
}
