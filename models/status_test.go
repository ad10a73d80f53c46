package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-server/types"
)

func TestIsLegalTransitionGrid(t *testing.T) {
	legal := map[[2]Status]bool{
		{StatusPending, StatusAccepted}:     true,
		{StatusPending, StatusRejected}:     true,
		{StatusAccepted, StatusInProgress}:  true,
		{StatusAccepted, StatusOnTheWay}:    true,
		{StatusInProgress, StatusOnTheWay}:  true,
		{StatusOnTheWay, StatusInProgress}:  true,
		{StatusInProgress, StatusCompleted}: true,
		{StatusOnTheWay, StatusCompleted}:   true,
	}

	for _, from := range AllStatuses {
		for _, to := range AllStatuses {
			want := legal[[2]Status{from, to}]
			assert.Equal(t, want, IsLegalTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestNoSelfLoopsAndTerminalsAreClosed(t *testing.T) {
	for _, s := range AllStatuses {
		assert.False(t, IsLegalTransition(s, s), "self loop on %s", s)
	}
	for _, to := range AllStatuses {
		assert.False(t, IsLegalTransition(StatusRejected, to))
		assert.False(t, IsLegalTransition(StatusCompleted, to))
	}
	assert.False(t, IsLegalTransition("", StatusAccepted))
	assert.False(t, IsLegalTransition(StatusPending, "cancelled"))
}

func TestTerminalStates(t *testing.T) {
	terminal := TerminalStates()
	assert.Len(t, terminal, 2)
	assert.Contains(t, terminal, StatusRejected)
	assert.Contains(t, terminal, StatusCompleted)

	assert.True(t, StatusCompleted.IsTerminal())
	assert.False(t, StatusOnTheWay.IsTerminal())
}

func TestLegalTargetsAndPredecessors(t *testing.T) {
	assert.Equal(t, []Status{StatusAccepted, StatusRejected}, LegalTargets(StatusPending))
	assert.Empty(t, LegalTargets(StatusCompleted))
	assert.Equal(t, []Status{StatusInProgress, StatusOnTheWay}, Predecessors(StatusCompleted))
	assert.Equal(t, []Status{StatusAccepted, StatusOnTheWay}, Predecessors(StatusInProgress))
}

func TestParseStatusLegacyEncodings(t *testing.T) {
	cases := []struct {
		name string
		in   interface{}
		want Status
	}{
		{"snake", "in_progress", StatusInProgress},
		{"camel", "inProgress", StatusInProgress},
		{"kebab", "on-the-way", StatusOnTheWay},
		{"title", "OnTheWay", StatusOnTheWay},
		{"upper", "ON_THE_WAY", StatusOnTheWay},
		{"spaced", "On The Way", StatusOnTheWay},
		{"alias", "declined", StatusRejected},
		{"numeric string", "2", StatusAccepted},
		{"json number", float64(6), StatusCompleted},
		{"int", 1, StatusPending},
		{"object id", map[string]interface{}{"id": float64(3)}, StatusRejected},
		{"object name", map[string]interface{}{"name": "Completed"}, StatusCompleted},
		{"object code", map[string]interface{}{"code": "accepted"}, StatusAccepted},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseStatus(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseStatusRejectsUnknown(t *testing.T) {
	for _, in := range []interface{}{"", "cancelled", float64(9), 1.5, map[string]interface{}{"label": "x"}, nil, true} {
		_, err := ParseStatus(in)
		assert.True(t, errors.Is(err, types.ErrValidation), "input %v", in)
	}
}

func TestStatusJSON(t *testing.T) {
	var payload struct {
		Status Status `json:"status"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"status":{"id":5,"name":"on the way"}}`), &payload))
	assert.Equal(t, StatusOnTheWay, payload.Status)

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"on_the_way"}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"status":"archived"}`), &payload))
}

func TestStatusID(t *testing.T) {
	assert.Equal(t, 4, StatusInProgress.ID())
	assert.Equal(t, 0, Status("archived").ID())
}
