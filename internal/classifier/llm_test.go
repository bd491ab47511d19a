package classifier

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockChatClient struct {
	mock.Mock
}

func (m *mockChatClient) Chat(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func TestExtractCategory(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   string
	}{
		{"plain", "<category>Workflow Error</category>", "Workflow Error"},
		{"with reasoning", "<think>maybe <category>Deprecation Warning</category>?</think>\n<category> Workflow Error </category>", "Workflow Error"},
		{"upper case tags", "<CATEGORY>Deprecation Warning</CATEGORY>", "Deprecation Warning"},
		{"multi line", "<category>\nUnclassified\n</category>", "Unclassified"},
		{"no tag", "Workflow Error", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractCategory(tt.answer))
		})
	}
}

func TestNormalize(t *testing.T) {
	c := NewLLMClassifier(nil, "m", nil)

	label, conf := c.Normalize("Workflow Error")
	assert.Equal(t, "Workflow Error", label)
	assert.Equal(t, 1.0, conf)

	label, conf = c.Normalize("workflow eror")
	assert.Equal(t, "Workflow Error", label)
	assert.Less(t, conf, 1.0)
	assert.Greater(t, conf, 0.5)

	label, _ = c.Normalize("Deprecation Warnings")
	assert.Equal(t, "Deprecation Warning", label)

	label, conf = c.Normalize("Unclassified")
	assert.Equal(t, LabelUnclassified, label)
	assert.Zero(t, conf)

	label, _ = c.Normalize("Security Alert")
	assert.Equal(t, LabelUnclassified, label)

	label, _ = c.Normalize("")
	assert.Equal(t, LabelUnclassified, label)
}

func TestPrompt(t *testing.T) {
	c := NewLLMClassifier(nil, "m", nil)
	p := c.Prompt("Case escalation for ticket ID 7324 failed")
	assert.Contains(t, p, "(1) Workflow Error, (2) Deprecation Warning")
	assert.Contains(t, p, `"Unclassified"`)
	assert.Contains(t, p, "<category> </category>")
	assert.Contains(t, p, "Log message: Case escalation for ticket ID 7324 failed")
}

func TestLLMClassify(t *testing.T) {
	client := new(mockChatClient)
	client.On("Chat", mock.Anything, mock.MatchedBy(func(p string) bool {
		return len(p) > 0
	})).Return("<think>It is a failure in a workflow.</think><category>Workflow Error</category>", nil).Once()
	client.On("Chat", mock.Anything, mock.Anything).Return("", errors.New("boom")).Once()

	c := NewLLMClassifier(client, "deepseek-r1-distill-llama-70b", nil)
	assert.Equal(t, "deepseek-r1-distill-llama-70b", c.ModelName())

	label, conf, err := c.Classify(context.Background(), "Case escalation for ticket ID 7324 failed")
	require.NoError(t, err)
	assert.Equal(t, "Workflow Error", label)
	assert.Equal(t, 1.0, conf)

	label, _, err = c.Classify(context.Background(), "again")
	assert.Error(t, err)
	assert.Equal(t, LabelUnclassified, label)

	client.AssertExpectations(t)
}
