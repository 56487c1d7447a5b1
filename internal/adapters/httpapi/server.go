package httpapi

import (
	"github.com/gather-events/events-api/internal/app/events"
	"github.com/gather-events/events-api/internal/app/users"
	"github.com/gather-events/events-api/internal/domain"
	"github.com/gather-events/events-api/internal/ports/out/idempotency"
)

// Server holds the HTTP handlers. Each handler resolves the caller explicitly,
// then checks the path, the content type and the body before calling a service.
type Server struct {
	Events *events.Service
	Users  *users.Service
	Auth   *Authenticator
	Idem   idempotency.Store
}

func NewServer(eventsSvc *events.Service, usersSvc *users.Service, auth *Authenticator, idem idempotency.Store) *Server {
	return &Server{
		Events: eventsSvc,
		Users:  usersSvc,
		Auth:   auth,
		Idem:   idem,
	}
}

type eventResponse struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	Details        string `json:"details"`
	Date           string `json:"date"`
	Image          string `json:"image"`
	CreatedBy      string `json:"createdBy"`
	AttendeesCount int    `json:"attendeesCount"`
	Attending      *bool  `json:"attending,omitempty"`
}

type attendanceResponse struct {
	Message       string `json:"message"`
	AttendeeCount int    `json:"attendeeCount"`
}

type userResponse struct {
	ID          string  `json:"id"`
	Email       string  `json:"email"`
	FirstName   string  `json:"firstName"`
	LastName    string  `json:"lastName"`
	DateOfBirth *string `json:"dateOfBirth"`
}

type sessionResponse struct {
	User   userResponse `json:"user"`
	Access string       `json:"access"`
}

func toEventResponse(e domain.Event) eventResponse {
	return eventResponse{
		ID:             string(e.ID),
		Title:          e.Title,
		Description:    e.Description,
		Details:        e.Details,
		Date:           e.Date,
		Image:          e.Image,
		CreatedBy:      string(e.CreatedBy),
		AttendeesCount: e.AttendeeCount,
	}
}

func toEventViewResponse(v domain.EventView) eventResponse {
	out := toEventResponse(v.Event)
	out.Attending = v.Attending
	return out
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:          string(u.ID),
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		DateOfBirth: u.DateOfBirth,
	}
}
