package subscriber

import (
	"context"
	"testing"

	"github.com/bookslot/bookslot/internal/event_bus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*ServiceImpl, *StubSubscriberRepo, *event_bus.EventBus) {
	repo := NewStubSubscriberRepo()
	bus := event_bus.NewEventBus()
	return NewService(repo, bus), repo, bus
}

func TestServiceImpl_CreateSubscriber(t *testing.T) {
	t.Run("should normalize email and derive username", func(t *testing.T) {
		service, _, _ := setup(t)

		created, err := service.CreateSubscriber(context.Background(), Subscriber{Email: " Ann@Example.org "})

		require.NoError(t, err)
		assert.Equal(t, "ann@example.org", created.Email)
		assert.Equal(t, "ann", created.Username)
		assert.Equal(t, LevelBasic, created.Level)
	})

	t.Run("should reject missing email", func(t *testing.T) {
		service, _, _ := setup(t)

		_, err := service.CreateSubscriber(context.Background(), Subscriber{Username: "x"})

		assert.ErrorIs(t, err, ErrSubscriberDataInvalid)
	})

	t.Run("should reject duplicates", func(t *testing.T) {
		service, _, _ := setup(t)
		_, err := service.CreateSubscriber(context.Background(), Subscriber{Email: "a@b.c"})
		require.NoError(t, err)

		_, err = service.CreateSubscriber(context.Background(), Subscriber{Email: "a@b.c"})

		assert.ErrorIs(t, err, ErrSubscriberExists)
	})
}

func TestServiceImpl_UpdateCurrent(t *testing.T) {
	t.Run("should update the subscriber from context", func(t *testing.T) {
		// given
		service, repo, _ := setup(t)
		id, _ := repo.CreateSubscriber(context.Background(), Subscriber{Username: "ann", Email: "ann@x.org", Timezone: "UTC"})
		ctx := WithSubscriber(context.Background(), Subscriber{Id: id})

		// when
		updated, err := service.UpdateCurrent(ctx, Subscriber{Name: "Ann", Timezone: "Europe/Warsaw"})

		// then
		require.NoError(t, err)
		assert.Equal(t, "Ann", updated.Name)
		assert.Equal(t, "Europe/Warsaw", updated.Timezone)
		assert.Equal(t, "ann", updated.Username)
	})

	t.Run("should reject unknown timezone", func(t *testing.T) {
		service, repo, _ := setup(t)
		id, _ := repo.CreateSubscriber(context.Background(), Subscriber{Username: "ann", Email: "ann@x.org"})
		ctx := WithSubscriber(context.Background(), Subscriber{Id: id})

		_, err := service.UpdateCurrent(ctx, Subscriber{Timezone: "Mars/Olympus"})

		assert.ErrorIs(t, err, ErrSubscriberDataInvalid)
	})

	t.Run("should fail without subscriber in context", func(t *testing.T) {
		service, _, _ := setup(t)

		_, err := service.UpdateCurrent(context.Background(), Subscriber{Name: "x"})

		assert.ErrorIs(t, err, ErrNoSubscriber)
	})
}

func TestServiceImpl_DisableSubscriber(t *testing.T) {
	t.Run("should soft delete and publish event", func(t *testing.T) {
		// given
		service, repo, bus := setup(t)
		id, _ := repo.CreateSubscriber(context.Background(), Subscriber{Username: "ann", Email: "ann@x.org"})
		var disabled []int
		event_bus.SubscribeTyped(bus, event_bus.SubscriberDisabledType, func(e event_bus.EventT[event_bus.SubscriberDisabled]) error {
			disabled = append(disabled, e.Data.SubscriberId)
			return nil
		})

		// when
		err := service.DisableSubscriber(context.Background(), id)

		// then
		require.NoError(t, err)
		stored, _ := repo.GetSubscriber(context.Background(), id)
		assert.True(t, stored.IsDeleted)
		assert.Equal(t, []int{id}, disabled)
	})

	t.Run("should return not found for unknown id", func(t *testing.T) {
		service, _, _ := setup(t)

		err := service.DisableSubscriber(context.Background(), 99)

		assert.ErrorIs(t, err, ErrSubscriberNotFound)
	})
}
