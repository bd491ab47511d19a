package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"logclassifier/internal/infrastructure"
	"logclassifier/internal/operations"
	"logclassifier/pkg/contracts/domain"
)

func newJobEnv(t *testing.T) (*testEnv, *JobService) {
	t.Helper()
	env := newTestEnv(t)

	queue := operations.NewJobQueue(1, operations.NewMemoryJobStore(), env.svc, nil, nil)
	queue.Start(context.Background())
	t.Cleanup(func() { queue.Stop(5 * time.Second) })

	return env, NewJobService(env.svc.uploads, queue, nil)
}

func TestJobService_SubmitCompletes(t *testing.T) {
	env, jobs := newJobEnv(t)
	up := env.upload(t, sampleCSV)
	env.classifier.On("ClassifyAll", mock.Anything, mock.Anything).Return(sampleResults, nil)

	ctx := infrastructure.WithTraceID(context.Background(), "trace-123")
	job, err := jobs.Submit(ctx, up.UploadID)
	require.NoError(t, err)
	assert.Equal(t, up.UploadID, job.UploadID)
	assert.Equal(t, "logs.csv", job.FileName)
	assert.Equal(t, 3, job.Total)
	assert.Equal(t, "trace-123", job.TraceID)

	var final *operations.Job
	require.Eventually(t, func() bool {
		final, err = jobs.Get(job.ID)
		return err == nil && final.Status.Terminal()
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, domain.JobStatusCompleted, final.Status)
	assert.Equal(t, 100, final.Progress)
	require.NotEmpty(t, final.RunID)

	_, err = env.svc.GetRun(context.Background(), final.RunID)
	assert.NoError(t, err)
}

func TestJobService_UnknownUpload(t *testing.T) {
	_, jobs := newJobEnv(t)

	_, err := jobs.Submit(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUploadNotFound)
}

func TestJobService_UnknownJob(t *testing.T) {
	_, jobs := newJobEnv(t)

	_, err := jobs.Get("missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
	assert.ErrorIs(t, jobs.Cancel("missing"), ErrJobNotFound)
}
