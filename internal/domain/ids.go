package domain

// SubjectID is the authenticated subject extracted from token claims ("sub").
// It is always the canonical string form of a user ID.
type SubjectID string

// UserID is the identifier of a user record (canonical UUID string).
type UserID string

// EventID is the identifier of an event record (canonical UUID string).
type EventID string

// Subject returns the token subject that identifies this user.
func (id UserID) Subject() SubjectID { return SubjectID(id) }
