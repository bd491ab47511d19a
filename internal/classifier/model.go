package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
)

// modelFormat is bumped when the JSON layout changes
const modelFormat = 1

// Sample is one labeled training message
type Sample struct {
	Message string
	Label   string
}

// TrainOptions controls Train
type TrainOptions struct {
	Dim          int
	Epochs       int
	LearningRate float64
	L2           float64
	Seed         int64
}

// DefaultTrainOptions returns settings that fit a few hundred samples in
// well under a second.
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		Dim:          4096,
		Epochs:       200,
		LearningRate: 0.5,
		L2:           1e-4,
		Seed:         1,
	}
}

// Model is a multinomial logistic regression over hashed n-gram features
type Model struct {
	Format  int         `json:"format"`
	Dim     int         `json:"dim"`
	Classes []string    `json:"classes"`
	Weights [][]float64 `json:"weights"`
	Bias    []float64   `json:"bias"`

	vec Vectorizer
}

// Train fits a model with shuffled per-sample gradient descent. Training is
// deterministic for a given seed.
func Train(samples []Sample, opts TrainOptions) (*Model, error) {
	if len(samples) == 0 {
		return nil, errors.New("no training samples")
	}
	if opts.Dim <= 0 {
		opts.Dim = DefaultTrainOptions().Dim
	}
	if opts.Epochs <= 0 {
		opts.Epochs = DefaultTrainOptions().Epochs
	}
	if opts.LearningRate <= 0 {
		opts.LearningRate = DefaultTrainOptions().LearningRate
	}

	classIndex := make(map[string]int)
	for _, s := range samples {
		if _, ok := classIndex[s.Label]; !ok {
			classIndex[s.Label] = 0
		}
	}
	if len(classIndex) < 2 {
		return nil, fmt.Errorf("need at least two labels, got %d", len(classIndex))
	}
	classes := make([]string, 0, len(classIndex))
	for label := range classIndex {
		classes = append(classes, label)
	}
	sort.Strings(classes)
	for i, label := range classes {
		classIndex[label] = i
	}

	m := &Model{
		Format:  modelFormat,
		Dim:     opts.Dim,
		Classes: classes,
		Weights: make([][]float64, len(classes)),
		Bias:    make([]float64, len(classes)),
		vec:     Vectorizer{Dim: opts.Dim},
	}
	for k := range m.Weights {
		m.Weights[k] = make([]float64, opts.Dim)
	}

	type example struct {
		x []Feature
		y int
	}
	data := make([]example, len(samples))
	for i, s := range samples {
		data[i] = example{x: m.vec.Transform(s.Message), y: classIndex[s.Label]}
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	probs := make([]float64, len(classes))
	for epoch := 0; epoch < opts.Epochs; epoch++ {
		lr := opts.LearningRate / (1 + float64(epoch)*0.01)
		rng.Shuffle(len(data), func(i, j int) { data[i], data[j] = data[j], data[i] })

		for _, ex := range data {
			m.probabilities(ex.x, probs)
			for k := range classes {
				grad := probs[k]
				if k == ex.y {
					grad -= 1
				}
				w := m.Weights[k]
				for _, f := range ex.x {
					w[f.Index] -= lr * (grad*f.Value + opts.L2*w[f.Index])
				}
				m.Bias[k] -= lr * grad
			}
		}
	}

	return m, nil
}

// probabilities writes the softmax over class scores into out
func (m *Model) probabilities(x []Feature, out []float64) {
	maxScore := math.Inf(-1)
	for k := range m.Classes {
		score := m.Bias[k]
		w := m.Weights[k]
		for _, f := range x {
			score += w[f.Index] * f.Value
		}
		out[k] = score
		if score > maxScore {
			maxScore = score
		}
	}
	var sum float64
	for k := range out {
		out[k] = math.Exp(out[k] - maxScore)
		sum += out[k]
	}
	for k := range out {
		out[k] /= sum
	}
}

// Predict returns the most probable label and its probability
func (m *Model) Predict(message string) (string, float64) {
	probs := m.Probabilities(message)
	best := 0
	for k := range probs {
		if probs[k] > probs[best] {
			best = k
		}
	}
	return m.Classes[best], probs[best]
}

// Probabilities returns one probability per entry of Labels()
func (m *Model) Probabilities(message string) []float64 {
	probs := make([]float64, len(m.Classes))
	m.probabilities(m.vec.Transform(message), probs)
	return probs
}

// Labels returns the classes the model can predict, sorted
func (m *Model) Labels() []string {
	out := make([]string, len(m.Classes))
	copy(out, m.Classes)
	return out
}

// Save writes the model as JSON, replacing path atomically
func (m *Model) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".model-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := json.NewEncoder(tmp).Encode(m); err != nil {
		tmp.Close()
		return fmt.Errorf("encode model: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// LoadModel reads a model written by Save
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode model %s: %w", path, err)
	}
	if m.Format != modelFormat {
		return nil, fmt.Errorf("model %s has format %d, want %d", path, m.Format, modelFormat)
	}
	if m.Dim <= 0 || len(m.Classes) < 2 || len(m.Weights) != len(m.Classes) || len(m.Bias) != len(m.Classes) {
		return nil, fmt.Errorf("model %s is malformed", path)
	}
	for k, w := range m.Weights {
		if len(w) != m.Dim {
			return nil, fmt.Errorf("model %s: class %q has %d weights, want %d", path, m.Classes[k], len(w), m.Dim)
		}
	}
	m.vec = Vectorizer{Dim: m.Dim}
	return &m, nil
}
