package schedule

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bookslot/bookslot/pkg/calendar"
	"github.com/bookslot/bookslot/pkg/subscriber"
	log "github.com/sirupsen/logrus"
)

var ErrInvalidSchedule = errors.New("invalid schedule data")
var ErrSlugTaken = errors.New("schedule slug already in use")

// CalendarReader returns a calendar only when the current subscriber owns it.
type CalendarReader interface {
	GetCalendar(ctx context.Context, id int) (calendar.Calendar, error)
}

type Service struct {
	repo      Repository
	calendars CalendarReader
}

func NewService(repo Repository, calendars CalendarReader) *Service {
	return &Service{repo: repo, calendars: calendars}
}

func (s *Service) ListSchedules(ctx context.Context) ([]Schedule, error) {
	subscriberId, err := subscriber.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current subscriber: %w", err)
	}
	return s.repo.ListSchedules(ctx, subscriberId)
}

// CreateSchedule publishes one of the current subscriber's calendars under a slug.
// An empty slug is derived from the name.
func (s *Service) CreateSchedule(ctx context.Context, sched Schedule) (Schedule, error) {
	subscriberId, err := subscriber.CurrentId(ctx)
	if err != nil {
		return Schedule{}, fmt.Errorf("failed to get current subscriber: %w", err)
	}
	sched.Name = strings.TrimSpace(sched.Name)
	if sched.Name == "" {
		return Schedule{}, fmt.Errorf("%w: name is required", ErrInvalidSchedule)
	}
	if sched.Slug == "" {
		sched.Slug = Slugify(sched.Name)
	}
	if err := validSlug(sched.Slug); err != nil {
		return Schedule{}, err
	}

	cal, err := s.calendars.GetCalendar(ctx, sched.CalendarId)
	if err != nil {
		return Schedule{}, err
	}
	taken, err := s.repo.SlugTaken(ctx, subscriberId, sched.Slug)
	if err != nil {
		return Schedule{}, err
	}
	if taken {
		return Schedule{}, ErrSlugTaken
	}

	sched.OwnerId = cal.OwnerId
	created, err := s.repo.CreateSchedule(ctx, sched)
	if err != nil {
		return Schedule{}, err
	}
	log.Infof("Subscriber %d published calendar %d as schedule %q", subscriberId, cal.Id, created.Slug)
	return created, nil
}
