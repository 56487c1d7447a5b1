package events

import "strings"

// Error is an application-layer error that can be mapped to an HTTP response.
type Error struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeNoFields         = "NO_FIELDS_TO_UPDATE"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeNotFound         = "EVENT_NOT_FOUND"
	CodeIDConflict       = "EVENT_ID_CONFLICT"
	CodeAlreadyAttending = "ALREADY_ATTENDING"
	CodeNotAttending     = "NOT_ATTENDING"
)

func errNotFound() *Error {
	return &Error{Status: 404, Code: CodeNotFound, Message: "event not found"}
}

func errUnauthorized() *Error {
	return &Error{Status: 401, Code: CodeUnauthorized, Message: "authentication required"}
}

// ValidationError collects per-field messages in check order.
type ValidationError struct {
	fields []string
	msgs   []string
}

func (v *ValidationError) add(field, msg string) {
	v.fields = append(v.fields, field)
	v.msgs = append(v.msgs, msg)
}

func (v *ValidationError) empty() bool { return len(v.fields) == 0 }

// asError converts the collected failures into a 400 *Error. The message is the
// first failure; Details carries every field.
func (v *ValidationError) asError() *Error {
	details := make(map[string]any, len(v.fields))
	for i, f := range v.fields {
		details[f] = v.msgs[i]
	}
	return &Error{Status: 400, Code: CodeValidation, Message: strings.Join(v.msgs, "; "), Details: details}
}
