package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldAlbumID is the standardized structured logging key for library album identifiers.
	FieldAlbumID = "album_id"
	// FieldSource is the standardized structured logging key for resolved source keys.
	FieldSource = "source"
	// FieldProvider is the standardized structured logging key for provider display names.
	FieldProvider = "provider"
	// FieldRunID is the standardized structured logging key for reconciliation run identifiers.
	FieldRunID = "run_id"
	// FieldReason is the standardized structured logging key for skip reason codes.
	FieldReason = "reason"
	// FieldEventType is the standardized structured logging key for machine-readable event names.
	FieldEventType = "event_type"
	// FieldErrorHint is the standardized structured logging key for operator guidance on failures.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
)
