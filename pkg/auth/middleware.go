package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/bookslot/bookslot/internal/rest"
	"github.com/bookslot/bookslot/pkg/subscriber"
	log "github.com/sirupsen/logrus"
)

type Middleware struct {
	authenticator *Authenticator
}

func NewMiddleware(authenticator *Authenticator) *Middleware {
	return &Middleware{authenticator: authenticator}
}

// Require rejects requests without a valid bearer token.
func (m *Middleware) Require(next http.Handler) http.Handler {
	return m.authenticate(false, false, next)
}

// RequireOneTime accepts only one-time tokens and consumes them.
func (m *Middleware) RequireOneTime(next http.Handler) http.Handler {
	return m.authenticate(true, false, next)
}

// RequireAdmin authenticates and then applies the admin allow list.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return m.authenticate(false, true, next)
}

// Optional puts the subscriber into the context when the request carries a valid token.
func (m *Middleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if sub, ok := m.authenticator.SubscriberOrNone(ctx, bearerToken(r)).Get(); ok {
			ctx = subscriber.WithSubscriber(ctx, sub)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) authenticate(oneTime bool, admin bool, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			rest.WriteError(w, http.StatusUnauthorized, "Missing bearer token", "")
			return
		}
		sub, err := m.authenticator.Authenticate(r.Context(), token, oneTime)
		if err != nil {
			if errors.Is(err, ErrInvalidToken) {
				rest.WriteError(w, http.StatusUnauthorized, "Invalid token", "")
				return
			}
			log.Errorf("authentication failed: %v", err)
			rest.WriteError(w, http.StatusInternalServerError, "Authentication failed", "")
			return
		}
		if admin {
			if err := m.authenticator.RequireAdmin(sub); err != nil {
				log.Debugf("subscriber %d is not an admin", sub.Id)
				rest.WriteError(w, http.StatusForbidden, "Insufficient permission", "")
				return
			}
		}
		log.Tracef("authenticated subscriber %d", sub.Id)
		next.ServeHTTP(w, r.WithContext(subscriber.WithSubscriber(r.Context(), sub)))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
