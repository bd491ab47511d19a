package logcsv

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logclassifier/internal/classifier"
)

const sample = `source,log_message
ModernCRM,User User123 logged in.
LegacyCRM,"Case escalation for ticket ID 7324 failed, retrying"
BillingSystem,Backup completed successfully.
`

func TestParse(t *testing.T) {
	table, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	assert.Equal(t, []string{"source", "log_message"}, table.Header)
	assert.Equal(t, 3, table.Len())
	assert.Equal(t, []classifier.Input{
		{Source: "ModernCRM", Message: "User User123 logged in."},
		{Source: "LegacyCRM", Message: "Case escalation for ticket ID 7324 failed, retrying"},
		{Source: "BillingSystem", Message: "Backup completed successfully."},
	}, table.Inputs())
	assert.Equal(t, []string{"ModernCRM", "LegacyCRM", "BillingSystem"}, table.Sources())
}

func TestParse_ExtraColumnsAndBOM(t *testing.T) {
	in := "\ufeff id , log_message ,source\n1,hello,A\n2,world\n"
	table, err := Parse(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "log_message", "source"}, table.Header)
	require.Equal(t, 2, table.Len())
	// short rows are padded
	assert.Equal(t, []string{"2", "world", ""}, table.Rows[1])
	assert.Equal(t, classifier.Input{Source: "A", Message: "hello"}, table.Inputs()[0])
}

func TestParse_EmptyLinesAndEmptyFields(t *testing.T) {
	table, err := Parse(strings.NewReader("source,log_message\n\n,\nA,x\n\n"))
	require.NoError(t, err)

	require.Equal(t, 2, table.Len(), "rows of empty fields are data, empty lines are not")
	assert.Equal(t, []string{"", ""}, table.Rows[0])
	assert.Equal(t, []string{"A", "x"}, table.Rows[1])
}

func TestParse_RepeatedColumnNames(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantHeader []string
		wantRow    []string
		wantInput  classifier.Input
	}{
		{
			name:       "repeated extra column",
			input:      "source,log_message,note,note\nA,hello,x,y\n",
			wantHeader: []string{"source", "log_message", "note", "note.1"},
			wantRow:    []string{"A", "hello", "x", "y"},
			wantInput:  classifier.Input{Source: "A", Message: "hello"},
		},
		{
			name:       "repeated source column",
			input:      "source,log_message,source\nA,hello,B\n",
			wantHeader: []string{"source", "log_message", "source.1"},
			wantRow:    []string{"A", "hello", "B"},
			wantInput:  classifier.Input{Source: "A", Message: "hello"},
		},
		{
			name:       "renamed repeat collides with existing name",
			input:      "source,log_message,a,a,a.1\nS,m,1,2,3\n",
			wantHeader: []string{"source", "log_message", "a", "a.1", "a.1.1"},
			wantRow:    []string{"S", "m", "1", "2", "3"},
			wantInput:  classifier.Input{Source: "S", Message: "m"},
		},
		{
			name:       "unnamed columns",
			input:      "source,log_message,,\nS,m,1,2\n",
			wantHeader: []string{"source", "log_message", "Unnamed: 2", "Unnamed: 3"},
			wantRow:    []string{"S", "m", "1", "2"},
			wantInput:  classifier.Input{Source: "S", Message: "m"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := Parse(strings.NewReader(tt.input))
			require.NoError(t, err)

			assert.Equal(t, tt.wantHeader, table.Header)
			require.Equal(t, 1, table.Len())
			assert.Equal(t, tt.wantRow, table.Rows[0])
			assert.Equal(t, tt.wantInput, table.Inputs()[0])
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMsg string
		missing bool
	}{
		{
			name:    "missing message column",
			input:   "source,message\nA,b\n",
			wantMsg: "CSV must contain 'source' and 'log_message' columns.",
			missing: true,
		},
		{
			name:    "missing source column",
			input:   "log_message\nhello\n",
			wantMsg: "CSV must contain 'source' and 'log_message' columns.",
			missing: true,
		},
		{
			name:    "empty file",
			input:   "",
			wantMsg: "Error processing file: No columns to parse from file",
		},
		{
			name:    "too many fields",
			input:   "source,log_message\nA,b,c\n",
			wantMsg: "Error processing file: expected 2 fields in line 2, saw 3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Equal(t, tt.wantMsg, err.Error())
			assert.Equal(t, tt.missing, errors.Is(err, ErrMissingColumns))

			var pe *ParseError
			assert.Equal(t, !tt.missing, errors.As(err, &pe))
		})
	}
}

func TestPreview(t *testing.T) {
	var b strings.Builder
	b.WriteString("source,log_message\n")
	for i := 0; i < 8; i++ {
		b.WriteString("S,m\n")
	}
	table, err := Parse(strings.NewReader(b.String()))
	require.NoError(t, err)

	preview := table.Preview(5)
	assert.Len(t, preview, 5)
	assert.Equal(t, map[string]string{"source": "S", "log_message": "m"}, preview[0])

	assert.Len(t, table.Preview(20), 8)
}

func TestWithLabels(t *testing.T) {
	table, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	labeled, err := table.WithLabels([]string{"User Action", "Workflow Error", "System Notification"})
	require.NoError(t, err)
	assert.Equal(t, []string{"source", "log_message", "target_label"}, labeled.Header)
	assert.Equal(t, "Workflow Error", labeled.Rows[1][2])
	// original untouched
	assert.Len(t, table.Rows[0], 2)

	_, err = table.WithLabels([]string{"x"})
	assert.Error(t, err)
}

func TestWithLabels_OverwritesExistingColumn(t *testing.T) {
	table, err := Parse(strings.NewReader("target_label,source,log_message\nold,A,m\n"))
	require.NoError(t, err)

	labeled, err := table.WithLabels([]string{"new"})
	require.NoError(t, err)
	assert.Equal(t, []string{"target_label", "source", "log_message"}, labeled.Header)
	assert.Equal(t, []string{"new", "A", "m"}, labeled.Rows[0])
}

func TestWrite(t *testing.T) {
	table, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	labeled, err := table.WithLabels([]string{"a", "b", "c"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, labeled.Write(&buf))

	want := "source,log_message,target_label\n" +
		"ModernCRM,User User123 logged in.,a\n" +
		"LegacyCRM,\"Case escalation for ticket ID 7324 failed, retrying\",b\n" +
		"BillingSystem,Backup completed successfully.,c\n"
	assert.Equal(t, want, buf.String())

	// round trip
	again, err := Parse(&buf)
	require.NoError(t, err)
	assert.Equal(t, labeled.Rows, again.Rows)
}
