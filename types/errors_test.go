package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesKind(t *testing.T) {
	err := NewError(KindConflict, "UpdateStatus", "status changed")
	wrapped := fmt.Errorf("accept: %w", err)

	assert.True(t, errors.Is(wrapped, ErrConflict))
	assert.False(t, errors.Is(wrapped, ErrDuplicate))
	assert.Equal(t, KindConflict, KindOf(wrapped))
}

func TestErrorMessage(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := WrapError(KindNetwork, "FetchMine", cause)

	assert.Equal(t, "FetchMine: network: dial tcp: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewError(KindNetwork, "", "")))
	assert.True(t, IsRetryable(NewError(KindServer, "", "")))
	assert.False(t, IsRetryable(NewError(KindConflict, "", "")))
	assert.False(t, IsRetryable(errors.New("plain")))
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
}
