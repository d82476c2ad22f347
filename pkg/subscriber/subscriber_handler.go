package subscriber

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/bookslot/bookslot/internal/rest"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type SubscriberDTO struct {
	Id        int    `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Timezone  string `json:"timezone"`
	Level     Level  `json:"level"`
	IsDeleted bool   `json:"isDeleted,omitempty"`
}

type CreatedSubscriberDTO struct {
	Subscriber SubscriberDTO `json:"subscriber"`
	// LoginToken is a one-time token the new subscriber exchanges for an access token.
	LoginToken string `json:"loginToken"`
}

// TokenIssuer mints one-time login tokens for newly created subscribers.
type TokenIssuer interface {
	IssueOneTime(subscriberId int) (string, error)
}

type Handler struct {
	service Service
	issuer  TokenIssuer
}

func NewHandler(service Service, issuer TokenIssuer) *Handler {
	return &Handler{service: service, issuer: issuer}
}

// Me godoc
// @Summary Get current subscriber
// @Tags Subscriber
// @Produce json
// @Success 200 {object} SubscriberDTO
// @Failure 401 {object} rest.ErrorResponse "Invalid token"
// @Router /api/me [get]
// @Security Bearer
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	log.Trace("Getting current subscriber")
	sub, err := h.service.GetCurrent(r.Context())
	if err != nil {
		if errors.Is(err, ErrSubscriberNotFound) {
			rest.WriteError(w, http.StatusNotFound, "Subscriber not found", "")
			return
		}
		rest.WriteError(w, http.StatusInternalServerError, "Failed to get subscriber", err.Error())
		return
	}
	rest.WriteJSON(w, http.StatusOK, ToDTO(sub))
}

// UpdateMe godoc
// @Summary Update current subscriber's profile
// @Tags Subscriber
// @Accept json
// @Produce json
// @Param subscriber body SubscriberDTO true "Profile"
// @Success 200 {object} SubscriberDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Failure 409 {object} rest.ErrorResponse "Username taken"
// @Router /api/me [put]
// @Security Bearer
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	log.Trace("Updating current subscriber")
	var dto SubscriberDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", "")
		return
	}

	updated, err := h.service.UpdateCurrent(r.Context(), Subscriber{
		Username: dto.Username,
		Name:     dto.Name,
		Timezone: dto.Timezone,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrSubscriberDataInvalid):
			rest.WriteError(w, http.StatusBadRequest, "Invalid subscriber data", err.Error())
		case errors.Is(err, ErrSubscriberExists):
			rest.WriteError(w, http.StatusConflict, "Username is already taken", "")
		case errors.Is(err, ErrSubscriberNotFound):
			rest.WriteError(w, http.StatusNotFound, "Subscriber not found", "")
		default:
			rest.WriteError(w, http.StatusInternalServerError, "Failed to update subscriber", err.Error())
		}
		return
	}
	log.Debugf("Updated subscriber %d", updated.Id)
	rest.WriteJSON(w, http.StatusOK, ToDTO(updated))
}

// ListSubscribers godoc
// @Summary List all subscribers
// @Tags Admin
// @Produce json
// @Success 200 {array} SubscriberDTO
// @Failure 403 {object} rest.ErrorResponse "Insufficient permission"
// @Router /api/admin/subscribers [get]
// @Security Bearer
func (h *Handler) ListSubscribers(w http.ResponseWriter, r *http.Request) {
	subscribers, err := h.service.ListSubscribers(r.Context())
	if err != nil {
		rest.WriteError(w, http.StatusInternalServerError, "Failed to list subscribers", err.Error())
		return
	}
	dtos := make([]SubscriberDTO, 0, len(subscribers))
	for _, sub := range subscribers {
		dtos = append(dtos, ToDTO(sub))
	}
	rest.WriteJSON(w, http.StatusOK, dtos)
}

// CreateSubscriber godoc
// @Summary Create a subscriber and issue a one-time login token
// @Tags Admin
// @Accept json
// @Produce json
// @Param subscriber body SubscriberDTO true "Subscriber"
// @Success 201 {object} CreatedSubscriberDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Failure 409 {object} rest.ErrorResponse "Subscriber exists"
// @Router /api/admin/subscribers [post]
// @Security Bearer
func (h *Handler) CreateSubscriber(w http.ResponseWriter, r *http.Request) {
	var dto SubscriberDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", "")
		return
	}
	created, err := h.service.CreateSubscriber(r.Context(), Subscriber{
		Username: dto.Username,
		Email:    dto.Email,
		Name:     dto.Name,
		Timezone: dto.Timezone,
		Level:    dto.Level,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrSubscriberDataInvalid):
			rest.WriteError(w, http.StatusBadRequest, "Invalid subscriber data", err.Error())
		case errors.Is(err, ErrSubscriberExists):
			rest.WriteError(w, http.StatusConflict, "Subscriber already exists", "")
		default:
			rest.WriteError(w, http.StatusInternalServerError, "Failed to create subscriber", err.Error())
		}
		return
	}

	token, err := h.issuer.IssueOneTime(created.Id)
	if err != nil {
		rest.WriteError(w, http.StatusInternalServerError, "Failed to issue login token", err.Error())
		return
	}
	rest.WriteJSON(w, http.StatusCreated, CreatedSubscriberDTO{Subscriber: ToDTO(created), LoginToken: token})
}

// DisableSubscriber godoc
// @Summary Soft-delete a subscriber
// @Tags Admin
// @Param id path int true "Subscriber ID"
// @Success 204 "No Content"
// @Failure 404 {object} rest.ErrorResponse "Subscriber not found"
// @Router /api/admin/subscribers/{id}/disable [put]
// @Security Bearer
func (h *Handler) DisableSubscriber(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid subscriber id", "")
		return
	}
	if err := h.service.DisableSubscriber(r.Context(), id); err != nil {
		if errors.Is(err, ErrSubscriberNotFound) {
			rest.WriteError(w, http.StatusNotFound, "Subscriber not found", "")
			return
		}
		rest.WriteError(w, http.StatusInternalServerError, "Failed to disable subscriber", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func ToDTO(sub Subscriber) SubscriberDTO {
	return SubscriberDTO{
		Id:        sub.Id,
		Username:  sub.Username,
		Email:     sub.Email,
		Name:      sub.Name,
		Timezone:  sub.Timezone,
		Level:     sub.Level,
		IsDeleted: sub.IsDeleted,
	}
}
