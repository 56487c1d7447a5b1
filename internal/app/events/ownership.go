package events

import (
	"github.com/gather-events/events-api/internal/domain"
	"github.com/gather-events/events-api/internal/ports/out/eventrepo"
)

// Authorize fails with 403 unless caller owns ev.
// Both sides are canonical subject strings, so plain equality is sufficient.
func Authorize(caller domain.SubjectID, ev eventrepo.Event) error {
	if caller == "" || string(caller) != string(ev.CreatedBy) {
		return &Error{Status: 403, Code: CodeForbidden, Message: "only the event owner may modify this event"}
	}
	return nil
}
