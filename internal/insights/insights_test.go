package insights

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logclassifier/pkg/contracts/domain"
)

func logs() []domain.ClassifiedLog {
	return []domain.ClassifiedLog{
		{Source: "ModernCRM", LogMessage: "m1", TargetLabel: "User Action", Stage: "regex"},
		{Source: "LegacyCRM", LogMessage: "m2", TargetLabel: "Workflow Error", Stage: "llm"},
		{Source: "ModernCRM", LogMessage: "m3", TargetLabel: "Error", Stage: "model"},
		{Source: "BillingSystem", LogMessage: "m4", TargetLabel: "Error", Stage: "model"},
		{Source: "ModernCRM", LogMessage: "m5", TargetLabel: "User Action", Stage: "regex"},
		{Source: "ModernHR", LogMessage: "m6", TargetLabel: "Error", Stage: "model"},
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(logs(), 1.234)

	assert.Equal(t, 6, s.Total)
	assert.Equal(t, "1.23 sec", s.ProcessingTime)

	assert.Equal(t, []CategoryCount{
		{Label: "Error", Count: 3},
		{Label: "User Action", Count: 2},
		{Label: "Workflow Error", Count: 1},
	}, s.Categories)

	require.Len(t, s.Sources, 4)
	assert.Equal(t, "ModernCRM", s.Sources[0].Source)
	assert.Equal(t, "50.0%", s.Sources[0].Percentage)
	// ties keep first appearance
	assert.Equal(t, []string{"LegacyCRM", "BillingSystem", "ModernHR"},
		[]string{s.Sources[1].Source, s.Sources[2].Source, s.Sources[3].Source})
	assert.Equal(t, "16.7%", s.Sources[1].Percentage)

	assert.Equal(t, []StageCount{
		{Stage: "model", Count: 3},
		{Stage: "regex", Count: 2},
		{Stage: "llm", Count: 1},
	}, s.Stages)

	require.Len(t, s.Samples, 5)
	assert.Equal(t, Sample{Source: "ModernCRM", LogMessage: "m1", TargetLabel: "User Action"}, s.Samples[0])
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, 0)
	assert.Equal(t, 0, s.Total)
	assert.Empty(t, s.Categories)
	assert.Empty(t, s.Sources)
	assert.Empty(t, s.Samples)
	assert.Equal(t, "0.00 sec", s.ProcessingTime)
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "100.0%", FormatPercent(1))
	assert.Equal(t, "33.3%", FormatPercent(1.0/3))
}
