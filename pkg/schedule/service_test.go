package schedule

import (
	"context"
	"testing"

	"github.com/bookslot/bookslot/internal/config"
	"github.com/bookslot/bookslot/pkg/calendar"
	"github.com/bookslot/bookslot/pkg/connector"
	"github.com/bookslot/bookslot/pkg/ownership"
	"github.com/bookslot/bookslot/pkg/subscriber"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var alice = subscriber.Subscriber{Id: 1, Username: "alice"}
var bob = subscriber.Subscriber{Id: 2, Username: "bob"}

func setup(t *testing.T) (*Service, *RepositoryStub, calendar.Calendar) {
	calendars := calendar.NewRepositoryStub()
	calendarService := calendar.NewService(calendars, calendar.NewLimitPolicy(config.Limits{}), connector.NewStubFactory(nil), nil)
	cal, err := calendarService.CreateCalendar(subscriber.WithSubscriber(context.Background(), alice), calendar.Calendar{
		Provider: connector.CalDAV, Title: "Work", Url: "https://dav.example.org/work/",
	})
	require.NoError(t, err)
	repo := NewRepositoryStub()
	repo.SetUsername(alice.Id, alice.Username)
	return NewService(repo, calendarService), repo, cal
}

func TestService_CreateSchedule(t *testing.T) {
	t.Run("should derive the slug from the name", func(t *testing.T) {
		// given
		service, repo, cal := setup(t)
		ctx := subscriber.WithSubscriber(context.Background(), alice)

		// when
		created, err := service.CreateSchedule(ctx, Schedule{CalendarId: cal.Id, Name: "Office Hours!", Active: true})

		// then
		require.NoError(t, err)
		assert.Equal(t, "office-hours", created.Slug)
		assert.Equal(t, alice.Id, created.OwnerId)
		found, err := repo.GetBySlug(ctx, "alice", "office-hours")
		require.NoError(t, err)
		assert.Equal(t, created.Id, found.Id)
	})

	t.Run("should refuse a slug used twice by the same owner", func(t *testing.T) {
		service, _, cal := setup(t)
		ctx := subscriber.WithSubscriber(context.Background(), alice)
		_, err := service.CreateSchedule(ctx, Schedule{CalendarId: cal.Id, Name: "Intro", Active: true})
		require.NoError(t, err)

		_, err = service.CreateSchedule(ctx, Schedule{CalendarId: cal.Id, Name: "Intro", Active: true})

		assert.ErrorIs(t, err, ErrSlugTaken)
	})

	t.Run("should refuse an invalid slug", func(t *testing.T) {
		service, _, cal := setup(t)
		ctx := subscriber.WithSubscriber(context.Background(), alice)

		_, err := service.CreateSchedule(ctx, Schedule{CalendarId: cal.Id, Name: "Intro", Slug: "Not/Valid"})

		assert.ErrorIs(t, err, ErrInvalidSchedule)
	})

	t.Run("should not publish another subscriber's calendar", func(t *testing.T) {
		service, _, cal := setup(t)

		_, err := service.CreateSchedule(subscriber.WithSubscriber(context.Background(), bob), Schedule{CalendarId: cal.Id, Name: "Stolen"})

		assert.ErrorIs(t, err, ownership.ErrForbidden)
	})

	t.Run("should report a missing calendar", func(t *testing.T) {
		service, _, _ := setup(t)

		_, err := service.CreateSchedule(subscriber.WithSubscriber(context.Background(), alice), Schedule{CalendarId: 42, Name: "Ghost"})

		assert.ErrorIs(t, err, ownership.ErrNotFound)
	})
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "quick-chat", Slugify("  Quick   Chat "))
	assert.Equal(t, "a-b-c", Slugify("A_B.C"))
	assert.Equal(t, "", Slugify("!!!"))
}
