package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultConfidenceThreshold is the minimum model probability to accept a label
const DefaultConfidenceThreshold = 0.5

// Options configures a Pipeline
type Options struct {
	Rules      *RuleSet
	Model      Predictor
	LLM        LLMStage
	LLMSources []string
	Threshold  float64
	Workers    int
	Observer   Observer
	Logger     *slog.Logger

	// ModelDescription is shown in the pipeline summary
	ModelDescription string
}

// Pipeline routes each input through the llm, regex and model stages
type Pipeline struct {
	rules      *RuleSet
	model      Predictor
	llm        LLMStage
	llmSources map[string]struct{}
	threshold  float64
	workers    int
	observer   Observer
	logger     *slog.Logger
	modelDesc  string

	noKeyWarning sync.Once
}

// New builds a pipeline. A nil model or llm stage makes those routes answer
// Unclassified.
func New(opts Options) (*Pipeline, error) {
	if opts.Threshold < 0 || opts.Threshold > 1 {
		return nil, fmt.Errorf("confidence threshold %v outside [0,1]", opts.Threshold)
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	sources := make(map[string]struct{}, len(opts.LLMSources))
	for _, s := range opts.LLMSources {
		if s = strings.TrimSpace(s); s != "" {
			sources[s] = struct{}{}
		}
	}

	return &Pipeline{
		rules:      opts.Rules,
		model:      opts.Model,
		llm:        opts.LLM,
		llmSources: sources,
		threshold:  opts.Threshold,
		workers:    opts.Workers,
		observer:   opts.Observer,
		logger:     opts.Logger.With(slog.String("component", "classifier")),
		modelDesc:  opts.ModelDescription,
	}, nil
}

// RoutesToLLM reports whether source bypasses the local stages
func (p *Pipeline) RoutesToLLM(source string) bool {
	_, ok := p.llmSources[strings.TrimSpace(source)]
	return ok
}

// Classify labels a single input. The only errors returned are context
// errors; stage failures degrade to Unclassified with Result.Error set.
func (p *Pipeline) Classify(ctx context.Context, in Input) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	start := time.Now()
	res, stageErr := p.route(ctx, in)
	if stageErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		if errors.Is(stageErr, context.Canceled) || errors.Is(stageErr, context.DeadlineExceeded) {
			return Result{}, stageErr
		}
		res.Error = stageErr.Error()
	}

	if p.observer != nil {
		p.observer.ObserveClassification(ctx, in.Source, string(res.Stage), res.Label, time.Since(start), stageErr)
	}
	return res, nil
}

func (p *Pipeline) route(ctx context.Context, in Input) (Result, error) {
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return Result{Label: LabelUnclassified, Stage: StageNone}, nil
	}

	if p.RoutesToLLM(in.Source) {
		return p.classifyLLM(ctx, message)
	}

	if label, ok := p.rules.Match(message); ok {
		return Result{Label: label, Stage: StageRegex, Confidence: 1}, nil
	}

	if p.model == nil {
		return Result{Label: LabelUnclassified, Stage: StageNone}, nil
	}

	label, prob := p.model.Predict(message)
	if prob < p.threshold {
		label = LabelUnclassified
	}
	return Result{Label: label, Stage: StageModel, Confidence: prob}, nil
}

func (p *Pipeline) classifyLLM(ctx context.Context, message string) (Result, error) {
	if p.llm == nil {
		return Result{Label: LabelUnclassified, Stage: StageNone}, nil
	}

	label, confidence, err := p.llm.Classify(ctx, message)
	if err != nil {
		if isNoKey(err) {
			p.noKeyWarning.Do(func() {
				p.logger.WarnContext(ctx, "llm api key not configured, llm-routed logs will be Unclassified")
			})
		} else if ctx.Err() == nil {
			p.logger.WarnContext(ctx, "llm classification failed", slog.String("error", err.Error()))
		}
		return Result{Label: LabelUnclassified, Stage: StageLLM}, err
	}
	return Result{Label: label, Stage: StageLLM, Confidence: confidence}, nil
}

// Labels lists every label the pipeline can emit, without duplicates
func (p *Pipeline) Labels() []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(label string) {
		if _, ok := seen[label]; ok {
			return
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}

	if p.rules != nil {
		for _, r := range p.rules.rules {
			add(r.label)
		}
	}
	if p.model != nil {
		for _, l := range p.model.Labels() {
			add(l)
		}
	}
	if p.llm != nil {
		for _, l := range p.llm.Labels() {
			add(l)
		}
	}
	add(LabelUnclassified)
	return out
}

// StageInfo describes one pipeline stage for display
type StageInfo struct {
	Name        Stage  `json:"name"`
	Description string `json:"description"`
}

// Description summarises the pipeline configuration
type Description struct {
	Stages              []StageInfo `json:"stages"`
	LLMSources          []string    `json:"llm_sources"`
	ConfidenceThreshold float64     `json:"confidence_threshold"`
	RuleCount           int         `json:"rule_count"`
	Labels              []string    `json:"labels"`
	Workers             int         `json:"workers"`
}

// Describe returns the pipeline summary shown in the debug panel
func (p *Pipeline) Describe() Description {
	stages := []StageInfo{
		{Name: StageRegex, Description: "Regex Pattern Matching (First Pass)"},
	}
	if p.model != nil {
		desc := p.modelDesc
		if desc == "" {
			desc = "Statistical model"
		}
		stages = append(stages, StageInfo{Name: StageModel, Description: desc})
	}
	if p.llm != nil {
		stages = append(stages, StageInfo{Name: StageLLM, Description: fmt.Sprintf("LLM Model: %s via Groq", p.llm.ModelName())})
	}

	sources := make([]string, 0, len(p.llmSources))
	for s := range p.llmSources {
		sources = append(sources, s)
	}
	sort.Strings(sources)

	return Description{
		Stages:              stages,
		LLMSources:          sources,
		ConfidenceThreshold: p.threshold,
		RuleCount:           p.rules.Len(),
		Labels:              p.Labels(),
		Workers:             p.workers,
	}
}
