package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/oapi-codegen/nullable"
)

// Mode selects full (create) or partial (update) validation and normalization.
type Mode int

const (
	ModeFull Mode = iota
	ModePartial
)

func (m Mode) String() string {
	if m == ModePartial {
		return "partial"
	}
	return "full"
}

// ErrNotScalar is returned when a text field is sent as a JSON object or array.
var ErrNotScalar = errors.New("must be a string, number or boolean")

// Text is a JSON scalar coerced to its string form.
// Strings decode as-is, numbers keep their literal form and booleans become "true"/"false".
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return ErrNotScalar
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
	case 't', 'f':
		v, err := strconv.ParseBool(string(b))
		if err != nil {
			return err
		}
		*t = Text(strconv.FormatBool(v))
	case 'n':
		*t = ""
	case '{', '[':
		return ErrNotScalar
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*t = Text(n.String())
	}
	return nil
}

// RawEvent is the untrusted event payload as received.
// Each field distinguishes absent, explicit null and a value.
// Unknown keys (id, createdBy, attendees, ...) are ignored on decode.
type RawEvent struct {
	Title       nullable.Nullable[Text] `json:"title"`
	Description nullable.Nullable[Text] `json:"description"`
	Details     nullable.Nullable[Text] `json:"details"`
	Date        nullable.Nullable[Text] `json:"date"`
	Image       nullable.Nullable[Text] `json:"image"`
}

// textOf coerces a field to a string; absent and null both become "".
func textOf(f nullable.Nullable[Text]) string {
	if !f.IsSpecified() || f.IsNull() {
		return ""
	}
	v, err := f.Get()
	if err != nil {
		return ""
	}
	return string(v)
}
