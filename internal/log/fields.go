package log

// Canonical field name constants for structured logging.
const (
	FieldComponent = "component"
	FieldSessionID = "session_id"
	FieldEvent     = "event"

	FieldPhase    = "phase"
	FieldStatus   = "status"
	FieldProgress = "progress"

	FieldProvider = "provider"
	FieldResolver = "resolver"
	FieldQuery    = "query"
	FieldResults  = "results"
	FieldDuration = "duration"
)
