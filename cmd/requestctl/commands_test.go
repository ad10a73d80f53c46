package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-server/repository"
	"marketplace-server/services"
	"marketplace-server/types"
)

type harness struct {
	t        *testing.T
	dataFile string
}

func newHarness(t *testing.T) *harness {
	t.Setenv("REDIS_ADDR", "")
	return &harness{t: t, dataFile: filepath.Join(t.TempDir(), "requests.json")}
}

// as runs one command line for a user, like a fresh process would
func (h *harness) as(userID, role string, args ...string) (string, error) {
	h.t.Helper()
	var out bytes.Buffer
	base := []string{"--mode", "local", "--data-file", h.dataFile, "--user", userID, "--role", role}
	err := newApp(&out).run(context.Background(), append(args, base...))
	return out.String(), err
}

func TestLocalLifecycleAcrossInvocations(t *testing.T) {
	h := newHarness(t)

	out, err := h.as("1", "customer", "create",
		"--service", "4", "--provider", "2",
		"--problem", "Boiler makes noise", "--address", "5 Cedar Rd")
	require.NoError(t, err)
	assert.Contains(t, out, "Request #1")
	assert.Contains(t, out, "Pending")

	out, err = h.as("2", "provider", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "5 Cedar Rd")
	assert.Contains(t, out, "accepted,rejected")

	_, err = h.as("2", "provider", "accept", "1")
	require.NoError(t, err)
	_, err = h.as("2", "provider", "advance", "1", "on_the_way")
	require.NoError(t, err)

	out, err = h.as("2", "provider", "complete", "1", "--price", "45")
	require.NoError(t, err)
	assert.Contains(t, out, "Completed")
	assert.Contains(t, out, "45.00")

	out, err = h.as("1", "customer", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "review")

	out, err = h.as("1", "customer", "review", "1", "--rating", "5", "--comment", "great")
	require.NoError(t, err)
	assert.Contains(t, out, "Review #1")

	_, err = h.as("1", "customer", "review", "1", "--rating", "4")
	assert.True(t, errors.Is(err, types.ErrDuplicate))

	out, err = h.as("1", "customer", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "5 Cedar Rd")
	assert.NotContains(t, out, "review", "a reviewed request offers no review action")

	store := repository.NewMemoryStore()
	require.NoError(t, store.LoadFile(h.dataFile))
	review, err := store.ReviewForRequest(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 5, review.Rating)
}

func TestLocalRejectedRequestCannotBeAccepted(t *testing.T) {
	h := newHarness(t)
	_, err := h.as("1", "customer", "create",
		"--service", "4", "--provider", "2", "--problem", "Door lock", "--address", "1 Elm St")
	require.NoError(t, err)

	_, err = h.as("2", "provider", "reject", "1")
	require.NoError(t, err)

	_, err = h.as("2", "provider", "accept", "1")
	assert.True(t, errors.Is(err, types.ErrIllegalTransition))
}

func TestShowListAfterChange(t *testing.T) {
	h := newHarness(t)
	_, err := h.as("1", "customer", "create",
		"--service", "4", "--provider", "2", "--problem", "Tap drips", "--address", "8 Oak Ave")
	require.NoError(t, err)

	out, err := h.as("2", "provider", "accept", "1", "--show-list")
	require.NoError(t, err)
	assert.Contains(t, out, "Request #1")
	assert.Contains(t, out, "ACTIONS")
	assert.Contains(t, out, "in_progress,on_the_way")
	assert.Contains(t, out, "1 of 1 request(s)")

	out, err = h.as("2", "provider", "reject", "1")
	require.Error(t, err)
	assert.NotContains(t, out, "ACTIONS")
}

func TestValidationFailuresAreLocalized(t *testing.T) {
	h := newHarness(t)
	_, err := h.as("1", "customer", "create", "--service", "4", "--provider", "2")
	require.Error(t, err)

	var out bytes.Buffer
	printError(&out, err, "ar")
	assert.Contains(t, out.String(), services.ErrorMessage(err, "ar"))
	assert.Contains(t, out.String(), "problem_description")

	_, err = h.as("2", "provider", "complete", "1", "--price", "0")
	assert.True(t, errors.Is(err, types.ErrValidation))

	_, err = h.as("2", "provider", "complete", "1", "--price", "0.004")
	assert.True(t, errors.Is(err, types.ErrValidation))
}

func TestUnknownModeIsReportedPlainly(t *testing.T) {
	var out bytes.Buffer
	err := newApp(&out).run(context.Background(), []string{"list", "--mode", "carrier-pigeon", "--role", "customer"})
	require.Error(t, err)

	var msg bytes.Buffer
	printError(&msg, err, "en")
	assert.True(t, strings.HasPrefix(msg.String(), "Error:"))
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-test-secret")
	var out bytes.Buffer
	require.NoError(t, newApp(&out).run(context.Background(), []string{"token", "--user", "2", "--role", "provider"}))

	claims, err := services.NewJWTService("cli-test-secret", 0).ValidateAccessToken(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, uint(2), claims.UserID)
	assert.Equal(t, "provider", claims.Role)
}
