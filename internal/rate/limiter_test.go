package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketFirstWaitIsImmediate(t *testing.T) {
	tb := NewTokenBucket(1, 1)
	defer tb.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.NoError(t, tb.Wait(ctx))
}

func TestTokenBucketBlocksUntilRefill(t *testing.T) {
	tb := NewTokenBucket(1, 1)
	defer tb.Stop()

	require.NoError(t, tb.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := tb.Wait(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestTokenBucketRefills(t *testing.T) {
	tb := NewTokenBucket(50, 1)
	defer tb.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for i := 0; i < 3; i++ {
		require.NoError(t, tb.Wait(ctx))
	}
}

func TestUnlimitedHonorsCancel(t *testing.T) {
	assert.NoError(t, Unlimited{}.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Unlimited{}.Wait(ctx), context.Canceled)
}

func TestTokenBucketClampsExtremeRate(t *testing.T) {
	var tb *TokenBucket
	require.NotPanics(t, func() { tb = NewTokenBucket(2_000_000_000, 1) })
	defer tb.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, tb.Wait(ctx))
	require.NoError(t, tb.Wait(ctx))
}
