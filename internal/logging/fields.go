package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRecordingID is the standardized structured logging key for recording row identifiers.
	FieldRecordingID = "recording_id"
	// FieldProviderID is the standardized structured logging key for the telephony provider's recording id.
	FieldProviderID = "provider_id"
	// FieldWorkerID is the standardized structured logging key for coordinator worker identifiers.
	FieldWorkerID = "worker_id"
	// FieldJobID is the standardized structured logging key for external transcription job identifiers.
	FieldJobID = "job_id"
	// FieldStatus is the standardized structured logging key for recording lifecycle statuses.
	FieldStatus = "status"
	// FieldAttempt is the standardized structured logging key for transcription attempt counts.
	FieldAttempt = "attempt"
	// FieldEventType tags log records for machine filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step for an operator reading a warning or error.
	FieldErrorHint = "error_hint"
)
