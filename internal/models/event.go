package models

// UnknownField is the sentinel recorded for any audit-record field that could
// not be resolved. Downstream stages rely on it being a non-empty string.
const UnknownField = "unknown"

// Actor identifies who performed the audited API call.
type Actor struct {
	Email    string
	SourceIP string
}

// Resource identifies the target of the audited API call.
type Resource struct {
	Type   string
	Name   string
	Method string
}

// ChangeEvent is the canonical form of one audit-log record. It is built once
// by the normalizer and treated as read-only by every later stage.
type ChangeEvent struct {
	Actor     Actor
	Resource  Resource
	Timestamp string
	ProjectID string
	Request   map[string]any
}
