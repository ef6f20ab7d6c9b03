package logger

// Field names shared across packages so log queries stay consistent.
const (
	FieldLinkID   = "linkId"
	FieldURL      = "url"
	FieldDomain   = "domain"
	FieldOp       = "op"
	FieldKind     = "kind"
	FieldCount    = "count"
	FieldFile     = "file"
	FieldFormat   = "format"
	FieldIndex    = "index"
	FieldDuration = "duration"
	FieldDriver   = "driver"
)
