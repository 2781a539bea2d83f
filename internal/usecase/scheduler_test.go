package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"MetadataExtractor/internal/domain"
	"MetadataExtractor/internal/ports/mocks"
)

type countingRunner struct {
	runs int
	err  error
}

func (r *countingRunner) Run(context.Context) (RunReport, error) {
	r.runs++
	return RunReport{}, r.err
}

func TestScheduler_JobRunsPipeline(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	driver := mocks.NewMockScheduler(ctrl)
	runner := &countingRunner{err: domain.ErrCircuitOpen}

	driver.EXPECT().Start(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, job func(time.Time)) error {
			job(time.Now())
			job(time.Now())
			return nil
		})
	driver.EXPECT().Stop(gomock.Any()).Return(nil)

	s := NewScheduler(driver, runner, discardLogger())
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, 2, runner.runs, "a failed run does not stop the schedule")
}

func TestScheduler_NoDriver(t *testing.T) {
	t.Parallel()

	s := NewScheduler(nil, &countingRunner{}, nil)
	assert.NoError(t, s.Start(context.Background()))
	assert.NoError(t, s.Stop(context.Background()))
}
