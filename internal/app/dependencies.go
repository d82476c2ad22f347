package app

import (
	"fmt"

	"github.com/bookslot/bookslot/internal/config"
	"github.com/bookslot/bookslot/internal/event_bus"
	"github.com/bookslot/bookslot/internal/ratelimit"
	"github.com/bookslot/bookslot/internal/secret"
	"github.com/bookslot/bookslot/internal/utils"
	"github.com/bookslot/bookslot/pkg/appointment"
	"github.com/bookslot/bookslot/pkg/auth"
	"github.com/bookslot/bookslot/pkg/calendar"
	"github.com/bookslot/bookslot/pkg/connector"
	"github.com/bookslot/bookslot/pkg/google"
	"github.com/bookslot/bookslot/pkg/link"
	"github.com/bookslot/bookslot/pkg/schedule"
	"github.com/bookslot/bookslot/pkg/subscriber"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	Clock     utils.Clock
	EventBus  *event_bus.EventBus
	SecretBox *secret.Box

	SubscriberRepo    *subscriber.SubscriberRepoImpl
	SubscriberService *subscriber.ServiceImpl
	SubscriberHandler *subscriber.Handler

	Authenticator  *auth.Authenticator
	AuthMiddleware *auth.Middleware
	AuthHandler    *auth.Handler

	GoogleAuth *google.GoogleAuth
	Connectors *connector.Provider

	CalendarRepo    *calendar.RepositoryImpl
	LimitPolicy     *calendar.LimitPolicy
	CalendarService *calendar.Service
	CalendarHandler *calendar.Handler

	ScheduleRepo    *schedule.RepositoryImpl
	ScheduleService *schedule.Service
	ScheduleHandler *schedule.Handler

	LinkSigner   *link.Signer
	LinkResolver *link.Resolver
	LinkHandler  *link.Handler

	AppointmentRepo    *appointment.RepositoryImpl
	AppointmentService *appointment.Service
	BookingService     *appointment.BookingService
	AppointmentHandler *appointment.Handler
	ReservationJanitor *appointment.ReservationJanitor

	BookingLimiter *ratelimit.Limiter
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(db *pgxpool.Pool, cfg config.Application) (*Dependencies, error) {
	deps := &Dependencies{}

	deps.Clock = &utils.SystemClock{}
	deps.EventBus = event_bus.NewEventBus()

	box, err := secret.NewBox(cfg.Secret.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secret box: %w", err)
	}
	deps.SecretBox = box

	deps.SubscriberRepo = subscriber.NewSubscriberRepo(db)
	deps.SubscriberService = subscriber.NewService(deps.SubscriberRepo, deps.EventBus)

	authConfig, err := auth.NewConfig(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("invalid auth configuration: %w", err)
	}
	deps.Authenticator = auth.NewAuthenticator(authConfig, deps.SubscriberRepo, deps.Clock)
	deps.AuthMiddleware = auth.NewMiddleware(deps.Authenticator)
	deps.AuthHandler = auth.NewHandler(deps.Authenticator)
	deps.SubscriberHandler = subscriber.NewHandler(deps.SubscriberService, deps.Authenticator)

	deps.GoogleAuth = google.NewGoogleAuth(db, deps.SecretBox, cfg)
	deps.Connectors = connector.NewProvider(deps.GoogleAuth)

	deps.CalendarRepo = calendar.NewRepository(db, deps.SecretBox)
	deps.LimitPolicy = calendar.NewLimitPolicy(cfg.Limits)
	deps.CalendarService = calendar.NewService(deps.CalendarRepo, deps.LimitPolicy, deps.Connectors, deps.EventBus)
	deps.CalendarHandler = calendar.NewHandler(deps.CalendarService)

	deps.ScheduleRepo = schedule.NewRepository(db)
	deps.ScheduleService = schedule.NewService(deps.ScheduleRepo, deps.CalendarService)
	deps.ScheduleHandler = schedule.NewHandler(deps.ScheduleService)

	deps.LinkSigner, err = link.NewSigner(cfg.Auth, cfg.FrontendUrl, deps.Clock)
	if err != nil {
		return nil, fmt.Errorf("invalid signed link configuration: %w", err)
	}
	deps.LinkResolver = link.NewResolver(deps.LinkSigner, deps.SubscriberRepo, deps.ScheduleRepo)
	deps.LinkHandler = link.NewHandler(deps.LinkSigner, deps.LinkResolver)

	deps.AppointmentRepo = appointment.NewRepository(db)
	deps.AppointmentService = appointment.NewService(deps.AppointmentRepo, deps.CalendarService)
	deps.BookingService = appointment.NewBookingService(deps.AppointmentRepo, deps.CalendarRepo, deps.SubscriberRepo, deps.Connectors, deps.EventBus, deps.Clock)
	deps.AppointmentHandler = appointment.NewHandler(deps.AppointmentService, deps.BookingService)
	deps.ReservationJanitor = appointment.NewReservationJanitor(deps.AppointmentRepo, cfg.Booking, deps.Clock)

	deps.BookingLimiter = ratelimit.NewLimiter(cfg.Booking.RateLimit, cfg.Booking.RateLimitBurst)

	registerEventHandlers(deps)

	return deps, nil
}
