package classifier

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"

	"logclassifier/internal/config"
	"logclassifier/internal/llm"
)

func isNoKey(err error) bool {
	return errors.Is(err, llm.ErrNoAPIKey)
}

// NewFromConfig assembles the rules, model and LLM stages from configuration.
//
// The model is loaded from ModelFile when that file exists. Otherwise it is
// trained from TrainingFile, or from the built-in seed data, and saved to
// ModelFile if one is configured.
func NewFromConfig(cfg config.ClassifierConfig, llmCfg config.LLMConfig, observer Observer, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With(slog.String("component", "classifier_setup"))

	rules, err := loadRuleSet(cfg.RulesFile)
	if err != nil {
		return nil, err
	}

	model, err := loadOrTrainModel(cfg, log)
	if err != nil {
		return nil, err
	}

	client := llm.NewClient(llmCfg, logger)
	if !client.Configured() {
		log.Warn("llm api key not set; sources routed to the llm will be Unclassified",
			slog.Any("llm_sources", cfg.LLMSources))
	}

	return New(Options{
		Rules:            rules,
		Model:            model,
		LLM:              NewLLMClassifier(client, llmCfg.Model, nil),
		LLMSources:       cfg.LLMSources,
		Threshold:        cfg.ConfidenceThreshold,
		Workers:          cfg.Workers,
		Observer:         observer,
		Logger:           logger,
		ModelDescription: fmt.Sprintf("Hashed n-gram Logistic Regression (%s features)", humanize.Comma(int64(model.Dim))),
	})
}

func loadRuleSet(path string) (*RuleSet, error) {
	if path == "" {
		return NewRuleSet(DefaultRules)
	}
	return LoadRules(path)
}

func loadOrTrainModel(cfg config.ClassifierConfig, log *slog.Logger) (*Model, error) {
	if cfg.ModelFile != "" {
		m, err := LoadModel(cfg.ModelFile)
		switch {
		case err == nil:
			log.Info("loaded classifier model",
				slog.String("path", cfg.ModelFile),
				slog.Any("labels", m.Classes))
			return m, nil
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("load model: %w", err)
		}
	}

	var (
		samples []Sample
		err     error
		origin  = "built-in seed data"
	)
	if cfg.TrainingFile != "" {
		samples, err = LoadSamples(cfg.TrainingFile)
		origin = cfg.TrainingFile
	} else {
		samples, err = SeedSamples()
	}
	if err != nil {
		return nil, fmt.Errorf("load training data: %w", err)
	}

	opts := DefaultTrainOptions()
	if cfg.FeatureDim > 0 {
		opts.Dim = cfg.FeatureDim
	}
	if cfg.Epochs > 0 {
		opts.Epochs = cfg.Epochs
	}

	m, err := Train(samples, opts)
	if err != nil {
		return nil, fmt.Errorf("train model: %w", err)
	}
	log.Info("trained classifier model",
		slog.String("source", origin),
		slog.String("samples", humanize.Comma(int64(len(samples)))),
		slog.Any("labels", m.Classes))

	if cfg.ModelFile != "" {
		if err := m.Save(cfg.ModelFile); err != nil {
			return nil, fmt.Errorf("save model: %w", err)
		}
	}
	return m, nil
}
