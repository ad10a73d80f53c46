package repository

import (
	"fmt"

	"marketplace-server/models"
	"marketplace-server/types"
)

// checkStatusTarget rejects targets UpdateStatus can never reach
func checkStatusTarget(to models.Status) error {
	if !to.Valid() {
		return types.Validationf("UpdateStatus", "unknown status %q", to)
	}
	if to == models.StatusCompleted {
		return types.Validationf("UpdateStatus", "completing a request requires a final price")
	}
	if to == models.StatusPending {
		return types.Validationf("UpdateStatus", "a request cannot return to pending")
	}
	return nil
}

// applyStatus moves current to `to` in place. It reports false without error
// when current already has that status.
func applyStatus(current *models.ServiceRequest, to models.Status) (bool, error) {
	if err := checkStatusTarget(to); err != nil {
		return false, err
	}
	if current.Status == to {
		return false, nil
	}
	if !models.IsLegalTransition(current.Status, to) {
		return false, conflict("UpdateStatus", current, to)
	}
	current.Status = to
	return true, nil
}

// applyCompletion closes current with the given price in whole cents.
// Completing twice with the same price is a no-op; any other attempt on a
// completed request conflicts.
func applyCompletion(current *models.ServiceRequest, price float64) (bool, error) {
	if err := models.ValidateFinalPrice(price); err != nil {
		return false, err
	}
	price = models.RoundPrice(price)
	if current.Status == models.StatusCompleted {
		if current.FinalPrice != nil && models.RoundPrice(*current.FinalPrice) == price {
			return false, nil
		}
		return false, types.NewError(types.KindConflict, "Complete",
			fmt.Sprintf("request %d is already completed with a different price", current.ID))
	}
	if !models.IsLegalTransition(current.Status, models.StatusCompleted) {
		return false, conflict("Complete", current, models.StatusCompleted)
	}
	current.Status = models.StatusCompleted
	current.FinalPrice = &price
	return true, nil
}

func conflict(op string, current *models.ServiceRequest, to models.Status) error {
	return types.NewError(types.KindConflict, op,
		fmt.Sprintf("request %d is %s and cannot move to %s", current.ID, current.Status, to))
}

func notFound(op string, what string, id uint) error {
	return types.NewError(types.KindNotFound, op, fmt.Sprintf("%s %d not found", what, id))
}
