package auth

import (
	"net/http"

	"github.com/debemdeboas/blockpress/internal/model"
)

// AuthProvider identifies the author of a request.
type AuthProvider interface {
	WithHeaderAuthorization() func(http.Handler) http.Handler

	GetUserIDFromSession(r *http.Request) (model.UserID, error)

	EnforceUserAndGetID(w http.ResponseWriter, r *http.Request) (model.UserID, error)
}

var (
	_ AuthProvider = (*Ed25519AuthProvider)(nil)
	_ AuthProvider = (*ClerkAuthProvider)(nil)
	_ AuthProvider = (*AnonymousProvider)(nil)
)
