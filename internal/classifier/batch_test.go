package classifier

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"logclassifier/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// echoPredictor labels each message with itself so ordering is observable
type echoPredictor struct {
	delay time.Duration
}

func (e echoPredictor) Predict(message string) (string, float64) {
	time.Sleep(e.delay)
	return message, 1
}
func (e echoPredictor) Labels() []string { return nil }

func TestClassifyAllPreservesOrder(t *testing.T) {
	p := newTestPipeline(t, echoPredictor{delay: time.Millisecond}, nil, nil)

	inputs := make([]Input, 50)
	for i := range inputs {
		inputs[i] = Input{Source: "ModernCRM", Message: fmt.Sprintf("message %d", i)}
	}

	var last int32
	var calls int32
	results, err := p.ClassifyAll(context.Background(), inputs, func(done, total int) {
		assert.Equal(t, 50, total)
		assert.Equal(t, atomic.LoadInt32(&last)+1, int32(done))
		atomic.StoreInt32(&last, int32(done))
		atomic.AddInt32(&calls, 1)
	})
	require.NoError(t, err)
	require.Len(t, results, 50)
	for i, r := range results {
		assert.Equal(t, fmt.Sprintf("message %d", i), r.Label)
	}
	assert.Equal(t, int32(50), atomic.LoadInt32(&calls))
}

func TestClassifyAllEmpty(t *testing.T) {
	p := newTestPipeline(t, echoPredictor{}, nil, nil)
	results, err := p.ClassifyAll(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestClassifyAllCancellation(t *testing.T) {
	p := newTestPipeline(t, echoPredictor{delay: 5 * time.Millisecond}, nil, nil)

	inputs := make([]Input, 200)
	for i := range inputs {
		inputs[i] = Input{Source: "ModernCRM", Message: fmt.Sprintf("m%d", i)}
	}

	ctx, cancel := context.WithCancel(context.Background())
	var seen int32
	_, err := p.ClassifyAll(ctx, inputs, func(done, total int) {
		if atomic.AddInt32(&seen, 1) == 10 {
			cancel()
		}
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, int(atomic.LoadInt32(&seen)), 200)
}

func TestNewFromConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default().Classifier
	cfg.ModelFile = filepath.Join(dir, "model.json")
	cfg.Epochs = 60

	llmCfg := config.Default().LLM
	llmCfg.APIKey = ""

	p, err := NewFromConfig(cfg, llmCfg, nil, discardLogger())
	require.NoError(t, err)
	_, err = os.Stat(cfg.ModelFile)
	require.NoError(t, err, "trained model is persisted")

	res, err := p.Classify(context.Background(), Input{Source: "ModernCRM", Message: "Backup completed successfully."})
	require.NoError(t, err)
	assert.Equal(t, Result{Label: "System Notification", Stage: StageRegex, Confidence: 1}, res)

	res, err = p.Classify(context.Background(), Input{Source: "LegacyCRM", Message: "Case escalation for ticket ID 7324 failed"})
	require.NoError(t, err)
	assert.Equal(t, LabelUnclassified, res.Label)
	assert.Equal(t, StageLLM, res.Stage)
	assert.NotEmpty(t, res.Error)

	// second construction loads the saved model instead of retraining
	cfg.TrainingFile = filepath.Join(dir, "does-not-exist.csv")
	p2, err := NewFromConfig(cfg, llmCfg, nil, discardLogger())
	require.NoError(t, err)
	assert.Contains(t, p2.Describe().Stages[1].Description, "4,096")
}

func TestNewFromConfigBadRules(t *testing.T) {
	cfg := config.Default().Classifier
	cfg.RulesFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := NewFromConfig(cfg, config.Default().LLM, nil, discardLogger())
	assert.Error(t, err)
}
