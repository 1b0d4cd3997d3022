package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsBadSpec(t *testing.T) {
	_, err := New("x", "every tuesday-ish", func(context.Context) error { return nil })
	assert.Error(t, err)
}

func TestRunNow_TracksStatus(t *testing.T) {
	fail := true
	s, err := New("x", "@every 1h", func(context.Context) error {
		if fail {
			return errors.New("boom")
		}
		return nil
	})
	require.NoError(t, err)

	assert.Error(t, s.RunNow(context.Background()))
	st := s.Status()
	assert.False(t, st.Running)
	assert.Equal(t, "boom", st.LastError)
	assert.Empty(t, st.LastOkAt)

	fail = false
	require.NoError(t, s.RunNow(context.Background()))
	st = s.Status()
	assert.Empty(t, st.LastError)
	assert.NotEmpty(t, st.LastOkAt)
}

func TestStart_RunsAndSkipsOverlap(t *testing.T) {
	var runs, concurrent, peak atomic.Int32
	s, err := New("x", "@every 1s", func(ctx context.Context) error {
		n := concurrent.Add(1)
		defer concurrent.Add(-1)
		if n > peak.Load() {
			peak.Store(n)
		}
		runs.Add(1)
		time.Sleep(1500 * time.Millisecond)
		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 3500*time.Millisecond)
	defer cancel()
	s.Start(ctx)

	assert.GreaterOrEqual(t, runs.Load(), int32(1))
	assert.Equal(t, int32(1), peak.Load())
}

func TestNew_EmptySpecIsManualOnly(t *testing.T) {
	var runs atomic.Int32
	s, err := New("x", "", func(context.Context) error {
		runs.Add(1)
		return nil
	})
	require.NoError(t, err)
	assert.Empty(t, s.Status().Next)

	require.NoError(t, s.RunNow(context.Background()))
	assert.Equal(t, int32(1), runs.Load())
}
