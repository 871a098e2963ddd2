package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTryAcquireRespectsBurst(t *testing.T) {
	l := New(1, 3)
	defer l.Close()

	require.True(t, l.TryAcquire("rpc", 1))
	require.True(t, l.TryAcquire("rpc", 1))
	require.True(t, l.TryAcquire("rpc", 1))
	require.False(t, l.TryAcquire("rpc", 1))
}

func TestTryAcquireRefillsOverTime(t *testing.T) {
	l := New(100, 1)
	defer l.Close()

	require.True(t, l.TryAcquire("ws-message", 1))
	require.False(t, l.TryAcquire("ws-message", 1))

	time.Sleep(20 * time.Millisecond)
	require.True(t, l.TryAcquire("ws-message", 1))
}

func TestAcquireBlocksUntilAvailable(t *testing.T) {
	l := New(50, 1)
	defer l.Close()

	require.True(t, l.TryAcquire("mint-validate", 1))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	start := time.Now()
	err := l.Acquire(ctx, "mint-validate", 1)
	require.NoError(t, err)
	require.Greater(t, time.Since(start), time.Duration(0))
}

func TestAcquireRespectsContextCancellation(t *testing.T) {
	l := New(0.001, 1)
	defer l.Close()

	require.True(t, l.TryAcquire("rpc", 1))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := l.Acquire(ctx, "rpc", 1)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestKeysAreIndependent(t *testing.T) {
	l := New(1, 1)
	defer l.Close()

	require.True(t, l.TryAcquire("ws-message", 1))
	require.True(t, l.TryAcquire("rpc", 1))
	require.False(t, l.TryAcquire("ws-message", 1))
}
