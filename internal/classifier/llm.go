package classifier

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"
)

// ChatClient sends one prompt to a chat model
type ChatClient interface {
	Chat(ctx context.Context, prompt string) (string, error)
}

// DefaultLLMLabels are the categories the chat model may answer with
var DefaultLLMLabels = []string{"Workflow Error", "Deprecation Warning"}

// maxLabelDistance is how far a model answer may drift from an allowed label
const maxLabelDistance = 3

var (
	thinkBlock  = regexp.MustCompile(`(?is)<think>.*?</think>`)
	categoryTag = regexp.MustCompile(`(?is)<category>(.*?)</category>`)
)

// LLMClassifier asks a chat model for one of a fixed set of labels
type LLMClassifier struct {
	client ChatClient
	model  string
	labels []string
}

// NewLLMClassifier wraps client; model is only used for display
func NewLLMClassifier(client ChatClient, model string, labels []string) *LLMClassifier {
	if len(labels) == 0 {
		labels = DefaultLLMLabels
	}
	return &LLMClassifier{client: client, model: model, labels: labels}
}

// ModelName returns the configured chat model
func (c *LLMClassifier) ModelName() string {
	return c.model
}

// Labels returns the categories offered to the model
func (c *LLMClassifier) Labels() []string {
	return append([]string(nil), c.labels...)
}

// Prompt builds the classification request for message
func (c *LLMClassifier) Prompt(message string) string {
	var b strings.Builder
	b.WriteString("Classify the log message into one of these categories:\n")
	for i, label := range c.labels {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "(%d) %s", i+1, label)
	}
	fmt.Fprintf(&b, ".\nIf you can't figure out a category, use %q.\n", LabelUnclassified)
	b.WriteString("Put the category inside <category> </category> tags.\n")
	b.WriteString("Log message: ")
	b.WriteString(message)
	return b.String()
}

// Classify returns the normalised label and a confidence derived from how
// closely the answer matched it.
func (c *LLMClassifier) Classify(ctx context.Context, message string) (string, float64, error) {
	answer, err := c.client.Chat(ctx, c.Prompt(message))
	if err != nil {
		return LabelUnclassified, 0, err
	}
	label, confidence := c.Normalize(ExtractCategory(answer))
	return label, confidence, nil
}

// ExtractCategory pulls the text between <category> tags, ignoring any
// <think> reasoning block. It returns "" when no tag is present.
func ExtractCategory(answer string) string {
	answer = thinkBlock.ReplaceAllString(answer, "")
	m := categoryTag.FindStringSubmatch(answer)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// Normalize maps a free-form category to the closest allowed label
func (c *LLMClassifier) Normalize(category string) (string, float64) {
	category = strings.TrimSpace(category)
	if category == "" {
		return LabelUnclassified, 0
	}

	lower := strings.ToLower(category)
	best, bestDist := "", maxLabelDistance+1
	for _, label := range c.labels {
		d := levenshtein.ComputeDistance(lower, strings.ToLower(label))
		if d < bestDist {
			best, bestDist = label, d
		}
	}
	if best == "" {
		return LabelUnclassified, 0
	}
	return best, 1 - float64(bestDist)/float64(len(best))
}
