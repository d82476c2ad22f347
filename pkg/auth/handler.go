package auth

import (
	"net/http"
	"time"

	"github.com/bookslot/bookslot/internal/rest"
	"github.com/bookslot/bookslot/pkg/subscriber"
	log "github.com/sirupsen/logrus"
)

type TokenDTO struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	ExpiresAt   time.Time `json:"expiresAt,omitempty"`
}

type SessionDTO struct {
	Authenticated bool                      `json:"authenticated"`
	Subscriber    *subscriber.SubscriberDTO `json:"subscriber,omitempty"`
}

type Handler struct {
	authenticator *Authenticator
}

func NewHandler(authenticator *Authenticator) *Handler {
	return &Handler{authenticator: authenticator}
}

// Exchange godoc
// @Summary Exchange a one-time token for an access token
// @Tags Auth
// @Produce json
// @Success 200 {object} TokenDTO
// @Failure 401 {object} rest.ErrorResponse "Invalid token"
// @Router /api/auth/exchange [post]
// @Security Bearer
func (h *Handler) Exchange(w http.ResponseWriter, r *http.Request) {
	sub, err := subscriber.Current(r.Context())
	if err != nil {
		rest.WriteError(w, http.StatusUnauthorized, "Invalid token", "")
		return
	}
	issued, err := h.authenticator.Issue(sub.Id, false)
	if err != nil {
		log.Errorf("failed to issue access token: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, "Failed to issue token", "")
		return
	}
	log.Debugf("Exchanged one-time token of subscriber %d", sub.Id)
	rest.WriteJSON(w, http.StatusOK, TokenDTO{AccessToken: issued.Token, TokenType: "bearer", ExpiresAt: issued.ExpiresAt})
}

// Session godoc
// @Summary Report whether the request is authenticated
// @Tags Auth
// @Produce json
// @Success 200 {object} SessionDTO
// @Router /api/auth/session [get]
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	sub, err := subscriber.Current(r.Context())
	if err != nil {
		rest.WriteJSON(w, http.StatusOK, SessionDTO{Authenticated: false})
		return
	}
	dto := subscriber.ToDTO(sub)
	rest.WriteJSON(w, http.StatusOK, SessionDTO{Authenticated: true, Subscriber: &dto})
}
