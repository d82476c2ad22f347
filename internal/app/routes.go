package app

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API endpoints. Public routes go first so the
// authenticated subrouters never shadow them.
func RegisterRoutes(r *mux.Router, deps *Dependencies) {
	api := r.PathPrefix("/api").Subrouter()
	authn := deps.AuthMiddleware

	// Token exchange and session check
	api.Handle("/auth/exchange", authn.RequireOneTime(http.HandlerFunc(deps.AuthHandler.Exchange))).Methods("POST")
	api.Handle("/auth/session", authn.Optional(http.HandlerFunc(deps.AuthHandler.Session))).Methods("GET")

	// Public booking
	api.HandleFunc("/apmt/public/{slug}", deps.AppointmentHandler.GetPublicAppointment).Methods("GET")
	api.Handle("/apmt/public/{slug}", deps.BookingLimiter.Middleware(http.HandlerFunc(deps.AppointmentHandler.ClaimSlot))).Methods("PUT")
	api.HandleFunc("/serve/ics/{slug}/{slotId}", deps.AppointmentHandler.ServeICS).Methods("GET")

	// Public links
	api.HandleFunc("/verify/signature", deps.LinkHandler.VerifySignature).Methods("POST")
	api.HandleFunc("/schedule/public", deps.LinkHandler.PublicSchedule).Methods("POST")

	// Google redirects back without a bearer token; the stored nonce identifies the subscriber.
	api.HandleFunc("/integrations/google/auth/callback", deps.GoogleAuth.OAuthCallback).Methods("GET")

	// Administration
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(authn.RequireAdmin)
	admin.HandleFunc("/subscribers", deps.SubscriberHandler.ListSubscribers).Methods("GET")
	admin.HandleFunc("/subscribers", deps.SubscriberHandler.CreateSubscriber).Methods("POST")
	admin.HandleFunc("/subscribers/{id}/disable", deps.SubscriberHandler.DisableSubscriber).Methods("PUT")

	private := api.NewRoute().Subrouter()
	private.Use(authn.Require)

	// Current subscriber
	private.HandleFunc("/me", deps.SubscriberHandler.Me).Methods("GET")
	private.HandleFunc("/me", deps.SubscriberHandler.UpdateMe).Methods("PUT")
	private.HandleFunc("/me/calendars", deps.CalendarHandler.ListCalendars).Methods("GET")
	private.HandleFunc("/me/appointments", deps.AppointmentHandler.ListAppointments).Methods("GET")
	private.HandleFunc("/me/schedules", deps.ScheduleHandler.ListSchedules).Methods("GET")
	private.HandleFunc("/me/signature", deps.LinkHandler.Signature).Methods("GET")

	// Calendars
	private.HandleFunc("/cal", deps.CalendarHandler.CreateCalendar).Methods("POST")
	private.HandleFunc("/cal/{id}", deps.CalendarHandler.GetCalendar).Methods("GET")
	private.HandleFunc("/cal/{id}", deps.CalendarHandler.UpdateCalendar).Methods("PUT")
	private.HandleFunc("/cal/{id}", deps.CalendarHandler.DeleteCalendar).Methods("DELETE")
	private.HandleFunc("/rmt/calendars", deps.CalendarHandler.DiscoverRemoteCalendars).Methods("POST")
	private.HandleFunc("/rmt/cal/{id}/{start}/{end}", deps.CalendarHandler.ListRemoteEvents).Methods("GET")

	// Schedules
	private.HandleFunc("/schedule", deps.ScheduleHandler.CreateSchedule).Methods("POST")

	// Appointments
	private.HandleFunc("/apmt", deps.AppointmentHandler.CreateAppointment).Methods("POST")
	private.HandleFunc("/apmt/{id}", deps.AppointmentHandler.GetAppointment).Methods("GET")
	private.HandleFunc("/apmt/{id}", deps.AppointmentHandler.UpdateAppointment).Methods("PUT")
	private.HandleFunc("/apmt/{id}", deps.AppointmentHandler.DeleteAppointment).Methods("DELETE")

	// Google authorization
	private.HandleFunc("/integrations/google/auth/login", deps.GoogleAuth.OAuthLogin).Methods("GET")
	private.HandleFunc("/integrations/google/auth/logout", deps.GoogleAuth.OAuthLogout).Methods("DELETE")
}
