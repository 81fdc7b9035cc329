package chrono

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"gwtdownloads/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

func TestDate(t *testing.T) {
	input := time.Date(2012, 1, 10, 17, 45, 3, 99, time.UTC)
	require.Equal(t, time.Date(2012, 1, 10, 0, 0, 0, 0, time.UTC), Date(input))
}

func TestStandardImplIsUTC(t *testing.T) {
	clock := NewStandardImpl()
	require.Equal(t, time.UTC, clock.Location())
	require.Equal(t, time.UTC, clock.Now().Location())
}

func TestCronScheduler(t *testing.T) {
	scheduler := NewCronScheduler(NewStandardImpl(), telemetry.SlogAPI{})
	require.Error(t, scheduler.Schedule("not a schedule", func(context.Context) {}))

	var runs atomic.Int64
	require.NoError(t, scheduler.Schedule("@every 1s", func(ctx context.Context) {
		require.NotNil(t, ctx)
		runs.Add(1)
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()
	err := scheduler.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.GreaterOrEqual(t, runs.Load(), int64(1))
}
