package redcache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestRedisCache_GetSetDel(t *testing.T) {
	mr := miniredis.RunT(t)
	c := New(mr.Addr())

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))

	b, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v"), b)

	require.NoError(t, c.Del(ctx, "k"))
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRateLimiter_Allow(t *testing.T) {
	mr := miniredis.RunT(t)
	rl := NewRateLimiter(mr.Addr())

	ctx := context.Background()
	ok, n, err := rl.Allow(ctx, "rl:test", 2, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(1), n)

	ok, n, _ = rl.Allow(ctx, "rl:test", 2, time.Minute)
	require.True(t, ok)
	require.Equal(t, int64(2), n)

	ok, n, _ = rl.Allow(ctx, "rl:test", 2, time.Minute)
	require.False(t, ok)
	require.Equal(t, int64(3), n)
}

func TestOTPStore_IssueVerify(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewOTPStore(mr.Addr(), time.Minute)

	ctx := context.Background()
	code, err := s.Issue(ctx, "a@b.c")
	require.NoError(t, err)
	require.Len(t, code, 6)

	ok, err := s.Verify(ctx, "a@b.c", "000000x")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = s.Verify(ctx, "a@b.c", code)
	require.NoError(t, err)
	require.True(t, ok)

	// Код одноразовый.
	ok, err = s.Verify(ctx, "a@b.c", code)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestOTPStore_Reissue(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewOTPStore(mr.Addr(), time.Minute)

	ctx := context.Background()
	first, err := s.Issue(ctx, "a@b.c")
	require.NoError(t, err)
	second, err := s.Issue(ctx, "a@b.c")
	require.NoError(t, err)

	if first != second {
		ok, err := s.Verify(ctx, "a@b.c", first)
		require.NoError(t, err)
		require.False(t, ok)
	}
	ok, err := s.Verify(ctx, "a@b.c", second)
	require.NoError(t, err)
	require.True(t, ok)
}
