package auth

import (
	"net/http"

	"github.com/debemdeboas/blockpress/internal/model"
)

// AnonymousProvider attributes every request to one fixed user. It backs
// deployments with authentication turned off.
type AnonymousProvider struct {
	userID model.UserID
}

func NewAnonymousProvider(userID model.UserID) *AnonymousProvider {
	return &AnonymousProvider{userID: userID}
}

func (p *AnonymousProvider) WithHeaderAuthorization() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), p.userID)))
		})
	}
}

func (p *AnonymousProvider) GetUserIDFromSession(r *http.Request) (model.UserID, error) {
	if userID, ok := UserIDFromContext(r.Context()); ok {
		return userID, nil
	}
	return p.userID, nil
}

func (p *AnonymousProvider) EnforceUserAndGetID(w http.ResponseWriter, r *http.Request) (model.UserID, error) {
	return enforce(p, w, r)
}
