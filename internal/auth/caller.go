package auth

// Caller identifies who authenticated a request. It is a closed set of two
// variants so every authorization check is forced to handle both paths
// explicitly rather than threading a boolean through handlers.
type Caller interface {
	caller()
}

// TrustedService marks a request authenticated by the pre-shared service key.
// It carries no per-user identity and bypasses ownership checks.
type TrustedService struct{}

// AuthenticatedUser marks a request authenticated by a valid access cookie.
type AuthenticatedUser struct {
	ID       string
	Username string
}

func (TrustedService) caller()    {}
func (AuthenticatedUser) caller() {}

// MayAct reports whether the caller is allowed to act on a resource owned by
// ownerID. The service-key path is authorized for any resource; the cookie
// path requires ownership.
func MayAct(c Caller, ownerID string) bool {
	switch v := c.(type) {
	case TrustedService:
		return true
	case AuthenticatedUser:
		return v.ID == ownerID
	default:
		return false
	}
}
