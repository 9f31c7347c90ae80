package services

// Identity is the result of resolving a request's session token: either an
// authenticated username or anonymous.
type Identity struct {
	Username      string
	Authenticated bool
}

// Anonymous is the identity of a caller without a valid session.
var Anonymous = Identity{}

func Authenticated(username string) Identity {
	return Identity{Username: username, Authenticated: true}
}

// SessionResolver turns an opaque token back into the identity it was issued for.
type SessionResolver interface {
	Resolve(token string) (string, bool)
}

// Guard resolves session tokens for protected operations. It never renders
// or redirects; callers decide what to do with an anonymous identity.
type Guard struct {
	sessions SessionResolver
}

func NewGuard(sessions SessionResolver) *Guard {
	return &Guard{sessions: sessions}
}

// ResolveIdentity returns the authenticated identity carried by token, or
// Anonymous when the token is absent or does not verify.
func (g *Guard) ResolveIdentity(token string) Identity {
	if token == "" {
		return Anonymous
	}
	username, ok := g.sessions.Resolve(token)
	if !ok {
		return Anonymous
	}
	return Authenticated(username)
}
