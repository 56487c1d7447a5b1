package httpapi

import (
	"context"

	"github.com/gather-events/events-api/internal/domain"
)

// Identity is the caller resolved from a bearer token. The zero value is anonymous.
type Identity struct {
	Subject domain.SubjectID
	Email   string
}

// Anonymous is the identity of a caller without a valid credential.
var Anonymous = Identity{}

func (id Identity) IsAnonymous() bool { return id.Subject == "" }

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	v, ok := ctx.Value(identityKey{}).(Identity)
	return v, ok && !v.IsAnonymous()
}
