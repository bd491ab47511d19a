package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logclassifier/pkg/contracts/domain"
)

func openTestStore(t *testing.T) (*SQLiteStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "runs.db")
	st, err := Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st, path
}

func sampleRun(id string, created time.Time) *domain.Run {
	return &domain.Run{
		ID:                id,
		FileName:          "logs.csv",
		CreatedAt:         created,
		Total:             2,
		ProcessingSeconds: 1.25,
		Header:            []string{"id", "source", "log_message", "target_label"},
		Logs: []domain.ClassifiedLog{
			{Source: "ModernCRM", LogMessage: "User User1 logged in.", TargetLabel: "User Action", Stage: "regex", Confidence: 1, Extra: map[string]string{"id": "7"}},
			{Source: "LegacyCRM", LogMessage: "x", TargetLabel: "Unclassified", Stage: "llm", Error: "llm: status 500"},
		},
	}
}

func TestSaveAndGetRun(t *testing.T) {
	ctx := context.Background()
	st, _ := openTestStore(t)

	created := time.Date(2025, 3, 1, 10, 0, 0, 123, time.UTC)
	require.NoError(t, st.SaveRun(ctx, sampleRun("r1", created)))

	got, err := st.GetRun(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "logs.csv", got.FileName)
	assert.True(t, created.Equal(got.CreatedAt))
	assert.Equal(t, 2, got.Total)
	assert.Equal(t, 1.25, got.ProcessingSeconds)
	assert.Equal(t, []string{"id", "source", "log_message", "target_label"}, got.Header)
	require.Len(t, got.Logs, 2)
	assert.Equal(t, map[string]string{"id": "7"}, got.Logs[0].Extra)
	assert.Nil(t, got.Logs[1].Extra)
	assert.Equal(t, "llm: status 500", got.Logs[1].Error)
	assert.Equal(t, [][]string{
		{"7", "ModernCRM", "User User1 logged in.", "User Action"},
		{"", "LegacyCRM", "x", "Unclassified"},
	}, got.Rows())
}

func TestGetRunNotFound(t *testing.T) {
	st, _ := openTestStore(t)
	_, err := st.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestSaveRunDuplicateID(t *testing.T) {
	ctx := context.Background()
	st, _ := openTestStore(t)
	require.NoError(t, st.SaveRun(ctx, sampleRun("r1", time.Now())))
	assert.Error(t, st.SaveRun(ctx, sampleRun("r1", time.Now())))
}

func TestListRuns(t *testing.T) {
	ctx := context.Background()
	st, _ := openTestStore(t)

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, st.SaveRun(ctx, sampleRun(id, base.Add(time.Duration(i)*time.Hour))))
	}

	runs, err := st.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{runs[0].ID, runs[1].ID, runs[2].ID})

	runs, err = st.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestListRunsEmpty(t *testing.T) {
	st, _ := openTestStore(t)
	runs, err := st.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}

func TestDeleteRunCascades(t *testing.T) {
	ctx := context.Background()
	st, _ := openTestStore(t)
	require.NoError(t, st.SaveRun(ctx, sampleRun("r1", time.Now())))

	require.NoError(t, st.DeleteRun(ctx, "r1"))
	assert.ErrorIs(t, st.DeleteRun(ctx, "r1"), ErrRunNotFound)

	var n int
	require.NoError(t, st.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM results").Scan(&n))
	assert.Zero(t, n)
}

func TestReopenPreservesRuns(t *testing.T) {
	ctx := context.Background()
	st, path := openTestStore(t)
	require.NoError(t, st.SaveRun(ctx, sampleRun("r1", time.Now())))
	require.NoError(t, st.Close())

	st2, err := Open(ctx, path)
	require.NoError(t, err)
	defer st2.Close()

	got, err := st2.GetRun(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, got.Logs, 2)
	assert.NoError(t, st2.Ping(ctx))
}
