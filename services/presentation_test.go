package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"marketplace-server/models"
	"marketplace-server/types"
)

func TestStatusLabelLocales(t *testing.T) {
	assert.Equal(t, "On the way", StatusLabel(models.StatusOnTheWay, "en"))
	assert.Equal(t, "في الطريق", StatusLabel(models.StatusOnTheWay, "ar-EG"))
	assert.Equal(t, "Completed", StatusLabel(models.StatusCompleted, "fr"), "unsupported locale falls back to English")

	for _, s := range models.AllStatuses {
		assert.NotEmpty(t, StatusLabel(s, "ar"))
		assert.NotEqual(t, "secondary", StatusBadge(s))
	}
}

func TestErrorMessageCoversEveryKind(t *testing.T) {
	kinds := []types.ErrorKind{
		types.KindValidation, types.KindIllegalTransition, types.KindConflict, types.KindDuplicate,
		types.KindAuth, types.KindNetwork, types.KindServer, types.KindNotFound,
	}
	for _, locale := range []string{"en", "ar"} {
		for _, kind := range kinds {
			err := types.NewError(kind, "Op", "raw detail 42")
			msg := ErrorMessage(err, locale)
			assert.NotEmpty(t, msg, "%s/%s", locale, kind)
			assert.NotContains(t, msg, "raw detail")
			assert.NotContains(t, msg, string(kind))
		}
	}
}

func TestErrorMessageUnwrapsAndDefaults(t *testing.T) {
	stale := &StaleStateError{Err: types.NewError(types.KindConflict, "Accept", "stale")}
	assert.Equal(t, errorMessages["en"][types.KindConflict], ErrorMessage(stale, "en"))

	wrapped := fmt.Errorf("ui: %w", types.NewError(types.KindAuth, "FetchMine", "401"))
	assert.Equal(t, errorMessages["en"][types.KindAuth], ErrorMessage(wrapped, "en"))

	assert.Equal(t, errorMessages["en"][types.KindNetwork], ErrorMessage(context.DeadlineExceeded, "en"))
	assert.Equal(t, errorMessages["en"][types.KindServer], ErrorMessage(errors.New("boom"), "de"))
	assert.Empty(t, ErrorMessage(nil, "en"))
}

func TestNotificationText(t *testing.T) {
	title, body := NotificationText(models.StatusCompleted, "en")
	assert.Equal(t, "Service Completed", title)
	assert.Contains(t, body, "rate")

	title, _ = NotificationText(models.StatusAccepted, "ar")
	assert.Equal(t, "تم قبول الطلب", title)

	title, _ = NotificationText(models.Status("archived"), "en")
	assert.Equal(t, "Service Update", title)
}
