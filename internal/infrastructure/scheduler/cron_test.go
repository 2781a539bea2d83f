package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronScheduler_InvalidExpression(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler("not a cron", time.UTC)
	err := s.Start(context.Background(), func(time.Time) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse cron expression")
}

func TestCronScheduler_NilJob(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler("@hourly", time.UTC)
	assert.Error(t, s.Start(context.Background(), nil))
}

func TestCronScheduler_RunsJob(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)

	s := NewCronScheduler("@every 1s", loc)
	fired := make(chan time.Time, 1)
	require.NoError(t, s.Start(context.Background(), func(at time.Time) {
		select {
		case fired <- at:
		default:
		}
	}))

	select {
	case at := <-fired:
		assert.Equal(t, loc, at.Location())
	case <-time.After(5 * time.Second):
		t.Fatal("job did not run")
	}

	require.NoError(t, s.Stop(context.Background()))
	assert.NoError(t, s.Stop(context.Background()), "second stop is a no-op")
}
