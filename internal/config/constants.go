package config

// Application constants
const (
	AppName    = "Log Classification System"
	AppVersion = "1.0.0"

	// File names
	OutputFileName   = "output.csv"
	DownloadFileName = "classified_logs.csv"
	DownloadXLSXName = "classified_logs.xlsx"

	// Default directories relative to the base dir
	DefaultResourcesDir = "resources"
	DefaultDataDir      = "data"
	DefaultLogsDir      = "logs"
	DefaultDatabaseFile = "data/runs.db"

	// CSV columns
	ColumnSource  = "source"
	ColumnMessage = "log_message"
	ColumnLabel   = "target_label"

	// Number of rows shown in previews and debug samples
	PreviewRows = 5
)

// KnownSources are the source systems offered by the real-time form
var KnownSources = []string{
	"ModernCRM",
	"BillingSystem",
	"AnalyticsEngine",
	"ThirdPartyAPI",
	"ModernHR",
	"LegacyCRM",
}
