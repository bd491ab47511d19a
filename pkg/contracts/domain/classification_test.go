package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunRows(t *testing.T) {
	run := &Run{
		Header: []string{"id", "source", "log_message", "target_label"},
		Logs: []ClassifiedLog{
			{Source: "A", LogMessage: "m1", TargetLabel: "Error", Extra: map[string]string{"id": "1"}},
			{Source: "B", LogMessage: "m2", TargetLabel: "Unclassified"},
		},
	}

	assert.Equal(t, [][]string{
		{"1", "A", "m1", "Error"},
		{"", "B", "m2", "Unclassified"},
	}, run.Rows())
}

func TestJobStatusTerminal(t *testing.T) {
	assert.False(t, JobStatusPending.Terminal())
	assert.False(t, JobStatusRunning.Terminal())
	assert.True(t, JobStatusCompleted.Terminal())
	assert.True(t, JobStatusFailed.Terminal())
	assert.True(t, JobStatusCancelled.Terminal())
}
