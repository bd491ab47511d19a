package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// SampleLogsCSV has one row per default regex rule family plus an extra
// column, so every row classifies without the model or the LLM.
const SampleLogsCSV = `source,log_message,host
ModernCRM,User User123 logged in.,web-1
BillingSystem,Backup completed successfully.,db-1
ModernHR,Account with ID 42 created by admin.,hr-1
ModernCRM,User User9 logged out.,web-2
`

// SampleLogsRows is the number of data rows in SampleLogsCSV
const SampleLogsRows = 4

// MissingColumnsCSV lacks the log_message column
const MissingColumnsCSV = "source,message\nModernCRM,hello\n"

// WriteFile writes content to name inside dir and returns the full path
func WriteFile(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
