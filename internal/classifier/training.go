package classifier

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

//go:embed data/seed_training.csv
var seedTraining []byte

// SeedSamples returns the built-in labeled examples
func SeedSamples() ([]Sample, error) {
	return ReadSamples(bytes.NewReader(seedTraining))
}

// LoadSamples reads a labeled CSV file from disk
func LoadSamples(path string) ([]Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	samples, err := ReadSamples(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return samples, nil
}

// ReadSamples parses CSV with log_message and target_label columns.
// Other columns are ignored; rows with an empty message or label are skipped.
func ReadSamples(r io.Reader) ([]Sample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("training data is empty")
		}
		return nil, err
	}

	msgIdx, labelIdx := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) {
		case "log_message":
			msgIdx = i
		case "target_label":
			labelIdx = i
		}
	}
	if msgIdx < 0 || labelIdx < 0 {
		return nil, errors.New("training data must contain 'log_message' and 'target_label' columns")
	}

	var samples []Sample
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if msgIdx >= len(rec) || labelIdx >= len(rec) {
			continue
		}
		msg := strings.TrimSpace(rec[msgIdx])
		label := strings.TrimSpace(rec[labelIdx])
		if msg == "" || label == "" {
			continue
		}
		samples = append(samples, Sample{Message: msg, Label: label})
	}

	if len(samples) == 0 {
		return nil, errors.New("training data has no usable rows")
	}
	return samples, nil
}
