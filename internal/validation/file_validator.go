package validation

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Output formats accepted by ResolveOutput
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

var (
	// ErrUnsupportedFormat is returned for formats other than csv and xlsx
	ErrUnsupportedFormat = errors.New("unsupported output format")
	// ErrOverwritesInput is returned when the output path equals the input path
	ErrOverwritesInput = errors.New("output would overwrite the input file")
)

// FileValidator checks the files handed to the command line tools
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// ValidateFile checks that a file exists, is not a directory and can be opened
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist",
			slog.String("file", path))
		return fmt.Errorf("file %s does not exist", path)
	}
	if err != nil {
		v.logger.Error("Failed to stat file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a file",
			slog.String("path", path))
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateCSVFile checks that path is a readable file with a .csv extension
func (v *FileValidator) ValidateCSVFile(path string) error {
	if err := v.ValidateFile(path); err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".csv" {
		v.logger.Error("File is not a CSV file",
			slog.String("file", path),
			slog.String("extension", ext))
		return fmt.Errorf("file %s is not a CSV file (extension: %s)", path, ext)
	}

	return nil
}

// ValidateOutputDirectory ensures the directory exists and is writable
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	probe, err := os.CreateTemp(dir, ".write_test-*")
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	probe.Close()
	os.Remove(probe.Name())

	v.logger.Debug("Output directory validated",
		slog.String("directory", dir))
	return nil
}

// ResolveOutput works out where a classified copy of input goes and in which
// format. An empty format is taken from the output extension, defaulting to
// csv. An empty output becomes "<input>_classified.<format>" next to input.
func (v *FileValidator) ResolveOutput(input, output, format string) (string, string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatCSV
		if strings.EqualFold(filepath.Ext(output), "."+FormatXLSX) {
			format = FormatXLSX
		}
	}
	if format != FormatCSV && format != FormatXLSX {
		return "", "", fmt.Errorf("%w: %q (use %s or %s)", ErrUnsupportedFormat, format, FormatCSV, FormatXLSX)
	}

	if output == "" {
		base := strings.TrimSuffix(input, filepath.Ext(input))
		output = base + "_classified." + format
	} else if ext := strings.ToLower(filepath.Ext(output)); ext != "."+format {
		return "", "", fmt.Errorf("output %s does not match format %s", output, format)
	}

	inAbs, err := filepath.Abs(input)
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve input path: %w", err)
	}
	outAbs, err := filepath.Abs(output)
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve output path: %w", err)
	}
	if inAbs == outAbs {
		return "", "", ErrOverwritesInput
	}

	if err := v.ValidateOutputDirectory(filepath.Dir(outAbs)); err != nil {
		return "", "", err
	}

	v.logger.Debug("Output resolved",
		slog.String("output", outAbs),
		slog.String("format", format))
	return outAbs, format, nil
}
