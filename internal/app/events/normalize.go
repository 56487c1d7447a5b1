package events

import (
	"github.com/oapi-codegen/nullable"

	"github.com/gather-events/events-api/internal/domain"
	"github.com/gather-events/events-api/internal/ports/out/eventrepo"
)

// Normalize shapes a validated payload into the stored field set.
//
// ModeFull sets all five mutable fields, defaulting absent ones to "".
// ModePartial sets only the fields present in the payload.
// Values are trimmed. Normalize performs no validation.
func Normalize(in RawEvent, mode Mode) eventrepo.Fields {
	pick := func(f nullable.Nullable[Text]) *string {
		if mode == ModePartial && !f.IsSpecified() {
			return nil
		}
		v := domain.NormalizeText(textOf(f))
		return &v
	}
	return eventrepo.Fields{
		Title:       pick(in.Title),
		Description: pick(in.Description),
		Details:     pick(in.Details),
		Date:        pick(in.Date),
		Image:       pick(in.Image),
	}
}
