package link

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bookslot/bookslot/internal/rest"
	"github.com/bookslot/bookslot/pkg/subscriber"
	log "github.com/sirupsen/logrus"
)

type LinkDTO struct {
	Url string `json:"url"`
}

type VerifiedDTO struct {
	Valid bool `json:"valid"`
}

// PublicSubscriberDTO is what an anonymous visitor may learn about a link's owner.
type PublicSubscriberDTO struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
}

type Handler struct {
	signer   *Signer
	resolver *Resolver
}

func NewHandler(signer *Signer, resolver *Resolver) *Handler {
	return &Handler{signer: signer, resolver: resolver}
}

// Signature godoc
// @Summary Get the current subscriber's signed booking link
// @Tags Link
// @Produce json
// @Success 200 {object} LinkDTO
// @Router /api/me/signature [get]
// @Security Bearer
func (h *Handler) Signature(w http.ResponseWriter, r *http.Request) {
	sub, err := subscriber.Current(r.Context())
	if err != nil {
		rest.WriteError(w, http.StatusUnauthorized, "Not authenticated", "")
		return
	}
	signed, err := h.signer.Sign(sub.Username)
	if err != nil {
		log.Errorf("failed to sign link of subscriber %d: %v", sub.Id, err)
		rest.WriteError(w, http.StatusInternalServerError, "Failed to sign link", "")
		return
	}
	rest.WriteJSON(w, http.StatusOK, LinkDTO{Url: signed})
}

// VerifySignature godoc
// @Summary Verify a signed subscriber link
// @Tags Link
// @Accept json
// @Produce json
// @Param link body LinkDTO true "Link"
// @Success 200 {object} VerifiedDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid link"
// @Router /api/verify/signature [post]
func (h *Handler) VerifySignature(w http.ResponseWriter, r *http.Request) {
	dto, ok := decodeLink(w, r)
	if !ok {
		return
	}
	if _, err := h.resolver.ResolveSigned(r.Context(), dto.Url); err != nil {
		writeLinkError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, VerifiedDTO{Valid: true})
}

// PublicSchedule godoc
// @Summary Resolve a signed link or schedule link to its owner
// @Tags Link
// @Accept json
// @Produce json
// @Param link body LinkDTO true "Link"
// @Success 200 {object} PublicSubscriberDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid link"
// @Router /api/schedule/public [post]
func (h *Handler) PublicSchedule(w http.ResponseWriter, r *http.Request) {
	dto, ok := decodeLink(w, r)
	if !ok {
		return
	}
	sub, err := h.resolver.Resolve(r.Context(), dto.Url)
	if err != nil {
		writeLinkError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, PublicSubscriberDTO{Username: sub.Username, Name: sub.DisplayName(), Timezone: sub.Timezone})
}

func decodeLink(w http.ResponseWriter, r *http.Request) (LinkDTO, bool) {
	var dto LinkDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil || dto.Url == "" {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", "")
		return LinkDTO{}, false
	}
	return dto, true
}

func writeLinkError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrInvalidLink) {
		rest.WriteError(w, http.StatusBadRequest, "Invalid link", "")
		return
	}
	log.Errorf("failed to resolve link: %v", err)
	rest.WriteError(w, http.StatusInternalServerError, "Failed to resolve link", "")
}
