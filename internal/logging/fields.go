package logging

// Standardized attribute keys used across components so log output stays
// greppable and the console handler can order them consistently.
const (
	FieldComponent = "component"
	FieldEventType = "event_type"
	FieldJobID     = "job_id"
	FieldOwnerID   = "owner_id"
	FieldRequestID = "request_id"
	FieldErrorHint = "error_hint"
	FieldErrorKind = "error_kind"
	FieldImpact    = "impact"
)
