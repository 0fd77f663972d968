package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certus/internal/anchor/models"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	c := NewMemoryCache(time.Minute)
	c.now = func() time.Time { return now }

	_, err := c.Get(ctx, "0xnft")
	assert.ErrorIs(t, err, ErrMiss)

	valid := models.Validation{IsValid: true, Message: models.MessageValid, Data: &models.TokenData{ObjectID: "0xnft", DataHash: "abc"}}
	require.NoError(t, c.Put(ctx, "0xnft", valid))

	got, err := c.Get(ctx, "0xnft")
	require.NoError(t, err)
	assert.Equal(t, valid, *got)

	now = now.Add(time.Minute)
	_, err = c.Get(ctx, "0xnft")
	assert.ErrorIs(t, err, ErrMiss)
}
