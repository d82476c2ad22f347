package subscriber

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bookslot/bookslot/internal/test_utils"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pg *test_utils.Postgres

func TestMain(m *testing.M) {
	var err error
	pg, err = test_utils.StartPostgres()
	if err != nil {
		log.Warnf("database tests will be skipped: %v", err)
	}
	code := m.Run()
	pg.Close()
	os.Exit(code)
}

func TestSubscriberRepo_CreateAndGet(t *testing.T) {
	// given
	repo := NewSubscriberRepo(test_utils.Require(t, pg))
	ctx := context.Background()

	// when
	id, err := repo.CreateSubscriber(ctx, Subscriber{Username: "alice", Email: "alice@example.org", Name: "Alice"})
	require.NoError(t, err)

	// then
	byId, err := repo.GetSubscriber(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, LevelBasic, byId.Level)
	assert.Equal(t, "UTC", byId.Timezone)
	assert.Nil(t, byId.MinimumValidIatTime)

	byName, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, id, byName.Id)

	_, err = repo.CreateSubscriber(ctx, Subscriber{Username: "alice", Email: "other@example.org"})
	assert.ErrorIs(t, err, ErrSubscriberExists)

	_, err = repo.GetByEmail(ctx, "nobody@example.org")
	assert.ErrorIs(t, err, ErrSubscriberNotFound)
}

func TestSubscriberRepo_SoftDelete(t *testing.T) {
	repo := NewSubscriberRepo(test_utils.Require(t, pg))
	ctx := context.Background()
	id, err := repo.CreateSubscriber(ctx, Subscriber{Username: "bob", Email: "bob@example.org"})
	require.NoError(t, err)

	deleted, err := repo.SoftDelete(ctx, id)
	require.NoError(t, err)
	assert.True(t, deleted)

	sub, err := repo.GetSubscriber(ctx, id)
	require.NoError(t, err)
	assert.True(t, sub.IsDeleted)

	_, err = repo.UpdateSubscriber(ctx, Subscriber{Id: id, Username: "bob2", Timezone: "UTC"})
	assert.ErrorIs(t, err, ErrSubscriberNotFound)
}

func TestSubscriberRepo_ConsumeTokenFloor(t *testing.T) {
	t.Run("should move the floor only once for the same iat", func(t *testing.T) {
		// given
		repo := NewSubscriberRepo(test_utils.Require(t, pg))
		ctx := context.Background()
		id, err := repo.CreateSubscriber(ctx, Subscriber{Username: "carol", Email: "carol@example.org"})
		require.NoError(t, err)
		iat := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
		now := iat.Add(30 * time.Second)

		// when
		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := repo.ConsumeTokenFloor(ctx, id, iat, now)
				if err == nil && ok {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()

		// then
		assert.Equal(t, int32(1), wins.Load())
		sub, err := repo.GetSubscriber(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, sub.MinimumValidIatTime)
		assert.True(t, now.Equal(*sub.MinimumValidIatTime))
	})

	t.Run("should refuse deleted subscribers", func(t *testing.T) {
		repo := NewSubscriberRepo(test_utils.Require(t, pg))
		ctx := context.Background()
		id, err := repo.CreateSubscriber(ctx, Subscriber{Username: "dave", Email: "dave@example.org"})
		require.NoError(t, err)
		_, err = repo.SoftDelete(ctx, id)
		require.NoError(t, err)

		ok, err := repo.ConsumeTokenFloor(ctx, id, time.Now(), time.Now())

		require.NoError(t, err)
		assert.False(t, ok)
	})
}
