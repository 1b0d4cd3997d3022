package fetch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostLimiter_PerHost(t *testing.T) {
	hl := NewHostLimiter(1, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	require.NoError(t, hl.WaitURL(ctx, "https://a.example/x"))
	require.NoError(t, hl.WaitURL(ctx, "https://b.example/x"), "other hosts have their own bucket")
	assert.Error(t, hl.WaitURL(ctx, "https://a.example/y"), "second hit on a.example must wait ~1s")
}

func TestHostLimiter_ZeroRateIsUnlimited(t *testing.T) {
	hl := NewHostLimiter(0, 0)
	for i := 0; i < 50; i++ {
		require.NoError(t, hl.WaitURL(context.Background(), "https://a.example/"))
	}
}

func TestHostLimiter_Nil(t *testing.T) {
	var hl *HostLimiter
	assert.NoError(t, hl.WaitURL(context.Background(), "https://a.example/"))
}
