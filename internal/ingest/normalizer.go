package ingest

import (
	"strings"

	"github.com/sentrystack/audit-sentry/internal/models"
)

// ParseAuditRecord converts one raw cloud audit-log record into a ChangeEvent.
// Every missing or mistyped field degrades to the "unknown" sentinel (or an
// empty request document) so the pipeline always has a complete event to work
// with; this function has no error path.
func ParseAuditRecord(record map[string]any) models.ChangeEvent {
	proto := nestedMap(record, "protoPayload")
	resource := nestedMap(record, "resource")
	labels := nestedMap(resource, "labels")

	return models.ChangeEvent{
		Actor: models.Actor{
			Email:    stringField(nestedMap(proto, "authenticationInfo"), "principalEmail"),
			SourceIP: stringField(nestedMap(proto, "requestMetadata"), "callerIp"),
		},
		Resource: models.Resource{
			Type:   stringField(resource, "type"),
			Name:   stringField(proto, "resourceName"),
			Method: stringField(proto, "methodName"),
		},
		Timestamp: stringField(record, "timestamp"),
		ProjectID: stringField(labels, "project_id"),
		Request:   requestPayload(proto),
	}
}

// Summary renders a one-line digest of the change for log output.
func Summary(event models.ChangeEvent) string {
	method := lastSegment(event.Resource.Method, ".")
	resource := lastSegment(event.Resource.Name, "/")
	return event.Actor.Email + " ran " + method + " on " + resource
}

func nestedMap(doc map[string]any, key string) map[string]any {
	if doc == nil {
		return nil
	}
	child, _ := doc[key].(map[string]any)
	return child
}

func stringField(doc map[string]any, key string) string {
	if doc == nil {
		return models.UnknownField
	}
	value, ok := doc[key].(string)
	if !ok || value == "" {
		return models.UnknownField
	}
	return value
}

func requestPayload(proto map[string]any) map[string]any {
	payload := nestedMap(proto, "request")
	if payload == nil {
		return map[string]any{}
	}
	return payload
}

func lastSegment(value, sep string) string {
	parts := strings.Split(value, sep)
	return parts[len(parts)-1]
}
