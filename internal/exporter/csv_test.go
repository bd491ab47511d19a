package exporter

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logclassifier/internal/config"
	"logclassifier/pkg/contracts/domain"
)

func setupTestEnv(t *testing.T) (*CSVWriter, *config.Paths) {
	t.Helper()

	tempDir := t.TempDir()
	paths, err := config.ResolvePaths(config.PathsConfig{BaseDir: tempDir})
	require.NoError(t, err)

	return NewCSVWriter(paths, nil), paths
}

func testRun() *domain.Run {
	return &domain.Run{
		ID:     "run-1",
		Header: []string{"source", "log_message", "target_label"},
		Logs: []domain.ClassifiedLog{
			{Source: "ModernCRM", LogMessage: "User User1 logged in.", TargetLabel: "User Action", Stage: "regex", Confidence: 1},
			{Source: "LegacyCRM", LogMessage: "Lead conversion failed, retrying", TargetLabel: "Workflow Error", Stage: "llm", Confidence: 1},
		},
	}
}

func TestCSVWriter_WriteRun(t *testing.T) {
	writer, paths := setupTestEnv(t)

	// resources dir does not exist yet
	_, err := os.Stat(paths.ResourcesDir)
	require.True(t, os.IsNotExist(err))

	path, err := writer.WriteRun(testRun())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(paths.ResourcesDir, "output.csv"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "source,log_message,target_label\n"+
		"ModernCRM,User User1 logged in.,User Action\n"+
		"LegacyCRM,\"Lead conversion failed, retrying\",Workflow Error\n", string(content))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
}

func TestCSVWriter_WriteRunOverwrites(t *testing.T) {
	writer, _ := setupTestEnv(t)

	run := testRun()
	_, err := writer.WriteRun(run)
	require.NoError(t, err)

	run.Logs = run.Logs[:1]
	path, err := writer.WriteRun(run)
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "source,log_message,target_label\nModernCRM,User User1 logged in.,User Action\n", string(content))

	// no temp files left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCSVWriter_WriteCSVRelativePath(t *testing.T) {
	writer, paths := setupTestEnv(t)

	err := writer.WriteCSV("nested/x.csv", WriteOptions{
		Headers:   []string{"a"},
		Records:   [][]string{{"1"}},
		BOMPrefix: true,
	})
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(paths.ResourcesDir, "nested", "x.csv"))
	require.NoError(t, err)
	assert.Equal(t, "\xEF\xBB\xBFa\n1\n", string(content))
}

func TestEncodeRun(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeRun(&buf, testRun()))
	assert.Contains(t, buf.String(), "source,log_message,target_label\n")
	assert.NotContains(t, buf.String(), "\xEF\xBB\xBF")
}
