package stage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuccess(t *testing.T) {
	result := Success(42)

	assert.True(t, result.IsSuccess())
	assert.False(t, result.IsPending())
	assert.Equal(t, 42, result.Data)
	assert.Empty(t, result.Err)
}

func TestFailed(t *testing.T) {
	result := Failed[string]("renderer unavailable")

	assert.False(t, result.IsSuccess())
	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, "renderer unavailable", result.Err)
	assert.Empty(t, result.Data)
}

func TestFailed_EmptyMessage(t *testing.T) {
	assert.Equal(t, "unknown error", Failed[int]("").Err)
	assert.Equal(t, "unknown error", FailedErr[int](nil).Err)
	assert.Equal(t, "boom", FailedErr[int](errors.New("boom")).Err)
}

func TestZeroValueIsPending(t *testing.T) {
	var result Result[int]

	assert.True(t, result.IsPending())
	assert.False(t, result.IsSuccess())
}
