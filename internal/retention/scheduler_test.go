package retention

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixora/tracker/internal/ports"
)

func TestScheduler_Start(t *testing.T) {
	tests := []struct {
		name        string
		schedule    string
		wantRunning bool
		wantError   bool
	}{
		{
			name:        "valid daily schedule",
			schedule:    "0 3 * * *",
			wantRunning: true,
		},
		{
			name:        "valid hourly schedule",
			schedule:    "0 * * * *",
			wantRunning: true,
		},
		{
			name:        "empty schedule - no error, not running",
			schedule:    "",
			wantRunning: false,
		},
		{
			name:        "invalid schedule",
			schedule:    "invalid cron",
			wantRunning: false,
			wantError:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			purger := env.purger(nil, ports.Repositories{})
			purger.config.Schedule = tt.schedule

			scheduler := NewScheduler(purger, env.log)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			err := scheduler.Start(ctx)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantRunning, scheduler.IsRunning())

			if tt.wantRunning {
				next := scheduler.NextRun()
				require.NotNil(t, next)
				assert.True(t, next.After(time.Now()))
				scheduler.Stop()
				assert.False(t, scheduler.IsRunning())
			} else {
				assert.Nil(t, scheduler.NextRun())
			}
		})
	}
}

func TestScheduler_StopsOnContextCancel(t *testing.T) {
	env := newTestEnv(t)
	scheduler := NewScheduler(env.purger(nil, ports.Repositories{}), env.log)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, scheduler.Start(ctx))
	require.True(t, scheduler.IsRunning())

	cancel()
	assert.Eventually(t, func() bool { return !scheduler.IsRunning() }, time.Second, 10*time.Millisecond)
}

func TestScheduler_RunPurgeSkipsWhileInFlight(t *testing.T) {
	env := newTestEnv(t)
	env.seedTrashedProject(t, "org-a", "OPS", jan1, 0)
	purger := env.purger(nil, ports.Repositories{})
	scheduler := NewScheduler(purger, env.log)

	purger.inFlight.Lock()
	scheduler.runPurge(context.Background())
	purger.inFlight.Unlock()
	assert.Empty(t, env.store.Audit().Entries())

	scheduler.runPurge(context.Background())
	assert.Len(t, env.store.Audit().Entries(), 1)
}
