package events

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gather-events/events-api/internal/domain"
)

// MaxTitleLength is measured in characters after trimming.
const MaxTitleLength = 200

const (
	msgTitleRequired = "title is required"
	msgTitleBlank    = "title must not be blank"
	msgTitleTooLong  = "title must be at most 200 characters"
	msgDateRequired  = "date is required"
	msgDateShape     = "date must be an ISO date string (YYYY-MM-DD)"
	msgDateCalendar  = "date is not a real calendar date"
)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Validate checks title and date.
//
// In ModeFull both are required. In ModePartial each is checked only when present;
// an explicit null counts as present and coerces to "". Other fields are free text
// and never fail.
func Validate(in RawEvent, mode Mode) error {
	var verr ValidationError

	switch {
	case in.Title.IsSpecified():
		if msg := checkTitle(textOf(in.Title)); msg != "" {
			verr.add("title", msg)
		}
	case mode == ModeFull:
		verr.add("title", msgTitleRequired)
	}

	switch {
	case in.Date.IsSpecified():
		if msg := checkDate(textOf(in.Date)); msg != "" {
			verr.add("date", msg)
		}
	case mode == ModeFull:
		verr.add("date", msgDateRequired)
	}

	if verr.empty() {
		return nil
	}
	return verr.asError()
}

func checkTitle(raw string) string {
	title := domain.NormalizeText(raw)
	if title == "" {
		return msgTitleBlank
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return msgTitleTooLong
	}
	return ""
}

// checkDate separates a wrong shape from a wrong calendar value.
func checkDate(raw string) string {
	date := strings.TrimSpace(raw)
	if !datePattern.MatchString(date) {
		return msgDateShape
	}
	parsed, err := time.Parse(domain.DateLayout, date)
	if err != nil || parsed.Year() < 1 {
		return msgDateCalendar
	}
	return ""
}
