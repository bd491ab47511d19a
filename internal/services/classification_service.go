package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"logclassifier/internal/classifier"
	"logclassifier/internal/config"
	"logclassifier/internal/exporter"
	"logclassifier/internal/insights"
	"logclassifier/internal/logcsv"
	"logclassifier/internal/operations"
	"logclassifier/internal/store"
	"logclassifier/pkg/contracts/domain"
)

// Classifier is the part of the classification pipeline the service uses
type Classifier interface {
	Classify(ctx context.Context, in classifier.Input) (classifier.Result, error)
	ClassifyAll(ctx context.Context, inputs []classifier.Input, progress classifier.ProgressFunc) ([]classifier.Result, error)
	Describe() classifier.Description
}

// RunStore persists classification runs
type RunStore interface {
	SaveRun(ctx context.Context, run *domain.Run) error
	ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error)
	GetRun(ctx context.Context, id string) (*domain.Run, error)
}

// OutputWriter writes the latest run to the output file
type OutputWriter interface {
	WriteRun(run *domain.Run) (string, error)
}

// RunRecorder records run metrics
type RunRecorder interface {
	RunStarted(ctx context.Context)
	RunFinished(ctx context.Context, rows int, err error)
}

// UploadResult is returned after a CSV upload is accepted
type UploadResult struct {
	UploadID string              `json:"upload_id"`
	FileName string              `json:"file_name"`
	Rows     int                 `json:"rows"`
	Columns  []string            `json:"columns"`
	Preview  []map[string]string `json:"preview"`
	Message  string              `json:"message"`
}

// RunDetail is a run with its computed insights
type RunDetail struct {
	Run         *domain.Run      `json:"run"`
	Insights    insights.Summary `json:"insights"`
	DownloadURL string           `json:"download_url"`
	Message     string           `json:"message,omitempty"`
}

// Prediction is the outcome of a real-time classification
type Prediction struct {
	Source            string  `json:"source"`
	LogMessage        string  `json:"log_message"`
	Label             string  `json:"label"`
	Stage             string  `json:"stage"`
	Confidence        float64 `json:"confidence"`
	ProcessingSeconds float64 `json:"processing_seconds"`
	ProcessingTime    string  `json:"processing_time"`
	Message           string  `json:"message"`
	Error             string  `json:"error,omitempty"`
}

// Export is a rendered download
type Export struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Export formats
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// ExportFormats lists the accepted download formats
var ExportFormats = []string{FormatCSV, FormatXLSX}

// ClassificationService runs uploads through the classifier and keeps the
// results
type ClassificationService struct {
	classifier Classifier
	uploads    *UploadStore
	runs       RunStore
	output     OutputWriter
	recorder   RunRecorder
	logger     *slog.Logger
}

// NewClassificationService creates the service. recorder may be nil.
func NewClassificationService(c Classifier, uploads *UploadStore, runs RunStore, output OutputWriter, recorder RunRecorder, logger *slog.Logger) *ClassificationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClassificationService{
		classifier: c,
		uploads:    uploads,
		runs:       runs,
		output:     output,
		recorder:   recorder,
		logger:     logger.With(slog.String("service", "classification")),
	}
}

// Upload parses a CSV and keeps it for classification. Parse failures are
// returned as logcsv errors.
func (s *ClassificationService) Upload(ctx context.Context, fileName string, size int64, r io.Reader) (*UploadResult, error) {
	table, err := logcsv.Parse(r)
	if err != nil {
		s.logger.WarnContext(ctx, "rejected upload",
			slog.String("file_name", fileName),
			slog.String("error", err.Error()))
		return nil, err
	}

	upload := &Upload{
		ID:        uuid.NewString(),
		FileName:  fileName,
		Size:      size,
		CreatedAt: time.Now(),
		Table:     table,
	}
	s.uploads.Put(upload)

	s.logger.InfoContext(ctx, "upload accepted",
		slog.String("upload_id", upload.ID),
		slog.String("file_name", fileName),
		slog.Int("rows", table.Len()))

	return &UploadResult{
		UploadID: upload.ID,
		FileName: fileName,
		Rows:     table.Len(),
		Columns:  table.Header,
		Preview:  table.Preview(config.PreviewRows),
		Message:  "File uploaded successfully!",
	}, nil
}

// ClassifyUpload classifies a stored upload and returns the saved run
func (s *ClassificationService) ClassifyUpload(ctx context.Context, uploadID string) (*RunDetail, error) {
	upload, err := s.uploads.Get(uploadID)
	if err != nil {
		return nil, err
	}

	run, err := s.classifyUpload(ctx, upload, nil)
	if err != nil {
		return nil, err
	}

	detail := s.detail(run)
	detail.Message = "Classification complete!"
	return detail, nil
}

// RunJob classifies the upload a job refers to
func (s *ClassificationService) RunJob(ctx context.Context, job *operations.Job, progress operations.ProgressFunc) (string, error) {
	upload, err := s.uploads.Get(job.UploadID)
	if err != nil {
		return "", err
	}

	run, err := s.classifyUpload(ctx, upload, classifier.ProgressFunc(progress))
	if err != nil {
		return "", err
	}
	return run.ID, nil
}

func (s *ClassificationService) classifyUpload(ctx context.Context, upload *Upload, progress classifier.ProgressFunc) (run *domain.Run, err error) {
	logger := s.logger.With(slog.String("upload_id", upload.ID))

	if s.recorder != nil {
		s.recorder.RunStarted(ctx)
		defer func() {
			rows := 0
			if run != nil {
				rows = run.Total
			}
			s.recorder.RunFinished(ctx, rows, err)
		}()
	}

	start := time.Now()
	results, err := s.classifier.ClassifyAll(ctx, upload.Table.Inputs(), progress)
	if err != nil {
		return nil, fmt.Errorf("classification failed: %w", err)
	}

	labels := make([]string, len(results))
	for i, res := range results {
		labels[i] = res.Label
	}
	labeled, err := upload.Table.WithLabels(labels)
	if err != nil {
		return nil, fmt.Errorf("failed to attach labels: %w", err)
	}
	elapsed := time.Since(start)

	run = BuildRun(upload.FileName, labeled, results, elapsed)

	path, err := s.output.WriteRun(run)
	if err != nil {
		return nil, fmt.Errorf("failed to write output: %w", err)
	}
	if err := s.runs.SaveRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to save run: %w", err)
	}

	logger.InfoContext(ctx, "classification run saved",
		slog.String("run_id", run.ID),
		slog.Int("rows", run.Total),
		slog.String("output", path),
		slog.Duration("duration", elapsed))
	return run, nil
}

// BuildRun assembles a run from a labeled table and the per-row results
// that produced its labels.
func BuildRun(fileName string, labeled *logcsv.Table, results []classifier.Result, elapsed time.Duration) *domain.Run {
	return &domain.Run{
		ID:                uuid.NewString(),
		FileName:          fileName,
		CreatedAt:         time.Now().UTC(),
		Total:             labeled.Len(),
		ProcessingSeconds: elapsed.Seconds(),
		Header:            labeled.Header,
		Logs:              toClassifiedLogs(labeled, results),
	}
}

func toClassifiedLogs(t *logcsv.Table, results []classifier.Result) []domain.ClassifiedLog {
	logs := make([]domain.ClassifiedLog, len(t.Rows))
	for i, row := range t.Rows {
		l := domain.ClassifiedLog{
			Stage:      string(results[i].Stage),
			Confidence: results[i].Confidence,
			Error:      results[i].Error,
		}
		for j, col := range t.Header {
			switch col {
			case config.ColumnSource:
				l.Source = row[j]
			case config.ColumnMessage:
				l.LogMessage = row[j]
			case config.ColumnLabel:
				l.TargetLabel = row[j]
			default:
				if l.Extra == nil {
					l.Extra = make(map[string]string)
				}
				l.Extra[col] = row[j]
			}
		}
		logs[i] = l
	}
	return logs
}

func (s *ClassificationService) detail(run *domain.Run) *RunDetail {
	return &RunDetail{
		Run:         run,
		Insights:    insights.Summarize(run.Logs, run.ProcessingSeconds),
		DownloadURL: fmt.Sprintf("/api/runs/%s/download", run.ID),
	}
}

// Predict classifies a single message. The message is trimmed first and an
// empty message is rejected with ErrEmptyMessage.
func (s *ClassificationService) Predict(ctx context.Context, source, message string) (*Prediction, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	start := time.Now()
	res, err := s.classifier.Classify(ctx, classifier.Input{Source: source, Message: message})
	if err != nil {
		return nil, fmt.Errorf("classification failed: %w", err)
	}
	elapsed := time.Since(start).Seconds()

	return &Prediction{
		Source:            source,
		LogMessage:        message,
		Label:             res.Label,
		Stage:             string(res.Stage),
		Confidence:        res.Confidence,
		ProcessingSeconds: elapsed,
		ProcessingTime:    insights.FormatSeconds(elapsed),
		Message:           fmt.Sprintf("Predicted Label: %s", res.Label),
		Error:             res.Error,
	}, nil
}

// ListRuns returns the newest runs first
func (s *ClassificationService) ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	runs, err := s.runs.ListRuns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// GetRun returns a run with its insights
func (s *ClassificationService) GetRun(ctx context.Context, id string) (*RunDetail, error) {
	run, err := s.getRun(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.detail(run), nil
}

func (s *ClassificationService) getRun(ctx context.Context, id string) (*domain.Run, error) {
	run, err := s.runs.GetRun(ctx, id)
	if errors.Is(err, store.ErrRunNotFound) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}
	return run, nil
}

// Export renders a run as a CSV or XLSX download
func (s *ClassificationService) Export(ctx context.Context, id, format string) (*Export, error) {
	if format == "" {
		format = FormatCSV
	}
	if format != FormatCSV && format != FormatXLSX {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	run, err := s.getRun(ctx, id)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if format == FormatXLSX {
		if err := exporter.WriteXLSX(&buf, run, insights.Summarize(run.Logs, run.ProcessingSeconds)); err != nil {
			return nil, fmt.Errorf("failed to render workbook: %w", err)
		}
		return &Export{
			FileName:    config.DownloadXLSXName,
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:        buf.Bytes(),
		}, nil
	}

	if err := exporter.EncodeRun(&buf, run); err != nil {
		return nil, fmt.Errorf("failed to render csv: %w", err)
	}
	return &Export{
		FileName:    config.DownloadFileName,
		ContentType: "text/csv; charset=utf-8",
		Data:        buf.Bytes(),
	}, nil
}

// Pipeline describes the classification pipeline for the debug panel
func (s *ClassificationService) Pipeline() classifier.Description {
	return s.classifier.Describe()
}
