package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bookslot/bookslot/internal/event_bus"
	"github.com/bookslot/bookslot/pkg/connector"
	"github.com/bookslot/bookslot/pkg/ownership"
	"github.com/bookslot/bookslot/pkg/subscriber"
	log "github.com/sirupsen/logrus"
)

var ErrInvalidCalendar = errors.New("invalid calendar data")
var ErrRemoteUnavailable = errors.New("remote calendar unavailable")

type Service struct {
	repo       Repository
	policy     *LimitPolicy
	connectors connector.Factory
	eventBus   *event_bus.EventBus
}

func NewService(repo Repository, policy *LimitPolicy, connectors connector.Factory, eventBus *event_bus.EventBus) *Service {
	return &Service{repo: repo, policy: policy, connectors: connectors, eventBus: eventBus}
}

func (s *Service) ListCalendars(ctx context.Context) ([]Calendar, error) {
	subscriberId, err := subscriber.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current subscriber: %w", err)
	}
	return s.repo.ListCalendars(ctx, subscriberId)
}

// GetCalendar returns the calendar if the current subscriber owns it.
func (s *Service) GetCalendar(ctx context.Context, id int) (Calendar, error) {
	subscriberId, err := subscriber.CurrentId(ctx)
	if err != nil {
		return Calendar{}, fmt.Errorf("failed to get current subscriber: %w", err)
	}
	return s.ownedCalendar(ctx, id, subscriberId)
}

func (s *Service) ownedCalendar(ctx context.Context, id int, subscriberId int) (Calendar, error) {
	cal, err := s.repo.GetCalendar(ctx, id)
	found := true
	if errors.Is(err, ErrCalendarNotFound) {
		found = false
	} else if err != nil {
		return Calendar{}, err
	}
	if err := ownership.Check(cal, found, subscriberId); err != nil {
		return Calendar{}, err
	}
	return cal, nil
}

func (s *Service) CreateCalendar(ctx context.Context, cal Calendar) (Calendar, error) {
	sub, err := subscriber.Current(ctx)
	if err != nil {
		return Calendar{}, fmt.Errorf("failed to get current subscriber: %w", err)
	}
	if err := validate(cal); err != nil {
		return Calendar{}, err
	}

	cal.OwnerId = sub.Id
	created, err := s.repo.CreateCalendarWithin(ctx, cal, s.policy.LimitFor(sub.Level))
	if errors.Is(err, ErrQuotaExceeded) {
		log.Debugf("Subscriber %d reached the calendar limit", sub.Id)
		return Calendar{}, err
	} else if err != nil {
		return Calendar{}, fmt.Errorf("failed to store calendar: %w", err)
	}
	log.Infof("Subscriber %d connected %s calendar %d", sub.Id, created.Provider, created.Id)
	s.publishConnected(ctx, created)
	return created, nil
}

func (s *Service) UpdateCalendar(ctx context.Context, id int, cal Calendar) (Calendar, error) {
	existing, err := s.GetCalendar(ctx, id)
	if err != nil {
		return Calendar{}, err
	}
	if err := validate(cal); err != nil {
		return Calendar{}, err
	}
	existing.Title = cal.Title
	existing.Color = cal.Color
	existing.Url = cal.Url
	existing.User = cal.User
	if cal.Password != "" {
		existing.Password = cal.Password
	}
	existing.Connected = cal.Connected
	return s.repo.UpdateCalendar(ctx, existing)
}

func (s *Service) DeleteCalendar(ctx context.Context, id int) error {
	if _, err := s.GetCalendar(ctx, id); err != nil {
		return err
	}
	deleted, err := s.repo.DeleteCalendar(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ownership.ErrNotFound
	}
	return nil
}

// DiscoverRemoteCalendars lists calendars reachable with the given connection details.
func (s *Service) DiscoverRemoteCalendars(ctx context.Context, cal Calendar) ([]connector.RemoteCalendar, error) {
	subscriberId, err := subscriber.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current subscriber: %w", err)
	}
	cal.OwnerId = subscriberId
	conn, err := s.connectors.For(ctx, cal.Credentials())
	if err != nil {
		return nil, err
	}
	remote, err := conn.ListCalendars(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	return remote, nil
}

// ListRemoteEvents reads events of an owned calendar from the remote provider.
func (s *Service) ListRemoteEvents(ctx context.Context, id int, from time.Time, to time.Time) ([]connector.Event, error) {
	cal, err := s.GetCalendar(ctx, id)
	if err != nil {
		return nil, err
	}
	if !to.After(from) {
		return nil, fmt.Errorf("%w: end must be after start", ErrInvalidCalendar)
	}
	conn, err := s.connectors.For(ctx, cal.Credentials())
	if err != nil {
		return nil, err
	}
	events, err := conn.ListEvents(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	return events, nil
}

func (s *Service) publishConnected(ctx context.Context, cal Calendar) {
	if s.eventBus == nil {
		return
	}
	err := s.eventBus.Publish(event_bus.NewEvent(ctx, event_bus.CalendarConnectedType, event_bus.CalendarConnected{
		CalendarId: cal.Id,
		OwnerId:    cal.OwnerId,
		Provider:   string(cal.Provider),
	}))
	if err != nil {
		log.Errorf("failed to publish calendar connected event: %v", err)
	}
}

func validate(cal Calendar) error {
	switch cal.Provider {
	case connector.CalDAV:
		if cal.Url == "" {
			return fmt.Errorf("%w: url is required", ErrInvalidCalendar)
		}
	case connector.Google:
	default:
		return fmt.Errorf("%w: unknown provider %q", ErrInvalidCalendar, cal.Provider)
	}
	return nil
}
