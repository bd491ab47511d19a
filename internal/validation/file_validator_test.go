package validation

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFileValidator_ValidateCSVFile(t *testing.T) {
	tests := []struct {
		name          string
		setupFunc     func(t *testing.T) string
		wantErr       bool
		errorContains string
	}{
		{
			name: "valid csv",
			setupFunc: func(t *testing.T) string {
				file := filepath.Join(t.TempDir(), "logs.csv")
				require.NoError(t, os.WriteFile(file, []byte("source,log_message\n"), 0644))
				return file
			},
		},
		{
			name: "uppercase extension",
			setupFunc: func(t *testing.T) string {
				file := filepath.Join(t.TempDir(), "LOGS.CSV")
				require.NoError(t, os.WriteFile(file, []byte("source,log_message\n"), 0644))
				return file
			},
		},
		{
			name: "missing file",
			setupFunc: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "missing.csv")
			},
			wantErr:       true,
			errorContains: "does not exist",
		},
		{
			name: "directory",
			setupFunc: func(t *testing.T) string {
				dir := filepath.Join(t.TempDir(), "dir.csv")
				require.NoError(t, os.Mkdir(dir, 0755))
				return dir
			},
			wantErr:       true,
			errorContains: "is a directory",
		},
		{
			name: "wrong extension",
			setupFunc: func(t *testing.T) string {
				file := filepath.Join(t.TempDir(), "logs.txt")
				require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
				return file
			},
			wantErr:       true,
			errorContains: "not a CSV file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validator := NewFileValidator(quietLogger())
			err := validator.ValidateCSVFile(tt.setupFunc(t))

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFileValidator_ValidateOutputDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "new", "nested", "dir")
	validator := NewFileValidator(quietLogger())

	require.NoError(t, validator.ValidateOutputDirectory(dir))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "write probe should be removed")
}

func TestFileValidator_ResolveOutput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "logs.csv")

	tests := []struct {
		name       string
		output     string
		format     string
		wantOutput string
		wantFormat string
		wantErr    error
		errContain string
	}{
		{
			name:       "defaults next to input",
			wantOutput: filepath.Join(dir, "logs_classified.csv"),
			wantFormat: FormatCSV,
		},
		{
			name:       "xlsx default name",
			format:     "XLSX",
			wantOutput: filepath.Join(dir, "logs_classified.xlsx"),
			wantFormat: FormatXLSX,
		},
		{
			name:       "format inferred from output",
			output:     filepath.Join(dir, "out", "report.xlsx"),
			wantOutput: filepath.Join(dir, "out", "report.xlsx"),
			wantFormat: FormatXLSX,
		},
		{
			name:       "explicit csv output",
			output:     filepath.Join(dir, "out.csv"),
			format:     "csv",
			wantOutput: filepath.Join(dir, "out.csv"),
			wantFormat: FormatCSV,
		},
		{
			name:    "unsupported format",
			format:  "json",
			wantErr: ErrUnsupportedFormat,
		},
		{
			name:       "extension mismatch",
			output:     filepath.Join(dir, "out.csv"),
			format:     "xlsx",
			errContain: "does not match format",
		},
		{
			name:    "overwrite input",
			output:  input,
			wantErr: ErrOverwritesInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validator := NewFileValidator(quietLogger())
			out, format, err := validator.ResolveOutput(input, tt.output, tt.format)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.errContain != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContain)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.wantOutput, out)
				assert.Equal(t, tt.wantFormat, format)
				_, statErr := os.Stat(filepath.Dir(out))
				assert.NoError(t, statErr)
			}
		})
	}
}
