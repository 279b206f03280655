package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttemptRepositoryDisabled(t *testing.T) {
	repo := NewAttemptRepository(nil)

	assert.False(t, repo.Enabled())
	n, err := repo.Increment(context.Background(), "1.2.3.4", time.Minute)
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = repo.Count(context.Background(), "1.2.3.4")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, repo.Close())
}
