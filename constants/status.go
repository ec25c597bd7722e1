package constants

// Stage is the workflow position of a session.
type Stage string

// Stable values; they appear in event log details and metrics labels.
const (
	StageIdle            Stage = "Idle"
	StageSchemaLoaded    Stage = "SchemaLoaded"
	StageDocumentsLoaded Stage = "DocumentsLoaded"
	StageExtracting      Stage = "Extracting"
	StageMapped          Stage = "Mapped"
	StageCommitted       Stage = "Committed"
)

// LogStatus is the outcome attached to an event log entry.
type LogStatus string

const (
	LogSuccess LogStatus = "success"
	LogError   LogStatus = "error"
	LogInfo    LogStatus = "info"
)

// SentinelNotFound fills every cell for which no extracted value was found.
const SentinelNotFound = "Not Found"

// MaxCellRunes is the spreadsheet limit for a single cell.
const MaxCellRunes = 32767
