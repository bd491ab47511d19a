// Package classifier assigns a category label to (source, log message) pairs.
//
// Messages from LLM-routed sources go straight to a chat model. Everything
// else is tried against an ordered regex rule list first and then a hashed
// n-gram logistic regression model; low-confidence predictions come back as
// Unclassified.
package classifier

import (
	"context"
	"time"
)

// LabelUnclassified is returned whenever no stage can decide
const LabelUnclassified = "Unclassified"

// Stage names which part of the pipeline decided a label
type Stage string

const (
	StageRegex Stage = "regex"
	StageModel Stage = "model"
	StageLLM   Stage = "llm"
	StageNone  Stage = "none"
)

// Input is one log line to classify
type Input struct {
	Source  string `json:"source"`
	Message string `json:"log_message"`
}

// Result is the outcome for a single Input
type Result struct {
	Label      string  `json:"label"`
	Stage      Stage   `json:"stage"`
	Confidence float64 `json:"confidence"`
	// Error is set when a stage failed and the label fell back to Unclassified
	Error string `json:"error,omitempty"`
}

// Predictor is the statistical stage
type Predictor interface {
	Predict(message string) (label string, probability float64)
	Labels() []string
}

// LLMStage classifies messages from sources the local stages cannot handle
type LLMStage interface {
	Classify(ctx context.Context, message string) (label string, confidence float64, err error)
	ModelName() string
	// Labels lists the categories the stage can answer besides Unclassified
	Labels() []string
}

// Observer is notified after every single-message classification
type Observer interface {
	ObserveClassification(ctx context.Context, source, stage, label string, d time.Duration, err error)
}
