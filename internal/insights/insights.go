// Package insights derives the chart and debug figures shown after a run.
package insights

import (
	"fmt"
	"sort"

	"logclassifier/internal/config"
	"logclassifier/pkg/contracts/domain"
)

// CategoryCount is one bar of the category chart
type CategoryCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// SourceShare is one slice of the source pie chart
type SourceShare struct {
	Source     string  `json:"source"`
	Count      int     `json:"count"`
	Fraction   float64 `json:"fraction"`
	Percentage string  `json:"percentage"`
}

// StageCount tells how many rows each classifier stage decided
type StageCount struct {
	Stage string `json:"stage"`
	Count int    `json:"count"`
}

// Sample is a row of the sample classifications table
type Sample struct {
	Source      string `json:"source"`
	LogMessage  string `json:"log_message"`
	TargetLabel string `json:"target_label"`
}

// Summary holds everything the result view needs for one run
type Summary struct {
	Total             int             `json:"total"`
	ProcessingSeconds float64         `json:"processing_seconds"`
	ProcessingTime    string          `json:"processing_time"`
	Categories        []CategoryCount `json:"categories"`
	Sources           []SourceShare   `json:"sources"`
	Stages            []StageCount    `json:"stages"`
	Samples           []Sample        `json:"samples"`
}

// Summarize computes the summary. Counts are ordered by descending count;
// equal counts keep the order in which the value first appeared.
func Summarize(logs []domain.ClassifiedLog, processingSeconds float64) Summary {
	s := Summary{
		Total:             len(logs),
		ProcessingSeconds: processingSeconds,
		ProcessingTime:    FormatSeconds(processingSeconds),
	}

	for _, kc := range countBy(logs, func(l domain.ClassifiedLog) string { return l.TargetLabel }) {
		s.Categories = append(s.Categories, CategoryCount{Label: kc.key, Count: kc.count})
	}

	for _, kc := range countBy(logs, func(l domain.ClassifiedLog) string { return l.Source }) {
		frac := float64(kc.count) / float64(len(logs))
		s.Sources = append(s.Sources, SourceShare{
			Source:     kc.key,
			Count:      kc.count,
			Fraction:   frac,
			Percentage: FormatPercent(frac),
		})
	}

	for _, kc := range countBy(logs, func(l domain.ClassifiedLog) string { return l.Stage }) {
		s.Stages = append(s.Stages, StageCount{Stage: kc.key, Count: kc.count})
	}

	n := config.PreviewRows
	if n > len(logs) {
		n = len(logs)
	}
	s.Samples = make([]Sample, 0, n)
	for _, l := range logs[:n] {
		s.Samples = append(s.Samples, Sample{Source: l.Source, LogMessage: l.LogMessage, TargetLabel: l.TargetLabel})
	}

	return s
}

// FormatSeconds renders a duration in seconds with two decimals
func FormatSeconds(sec float64) string {
	return fmt.Sprintf("%.2f sec", sec)
}

// FormatPercent renders a fraction as a percentage with one decimal
func FormatPercent(frac float64) string {
	return fmt.Sprintf("%.1f%%", frac*100)
}

type keyCount struct {
	key   string
	count int
}

func countBy(logs []domain.ClassifiedLog, key func(domain.ClassifiedLog) string) []keyCount {
	index := make(map[string]int)
	var out []keyCount
	for _, l := range logs {
		k := key(l)
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, keyCount{key: k})
		}
		out[i].count++
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].count > out[b].count })
	return out
}
