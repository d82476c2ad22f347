package schedule

import (
	"context"
	"os"
	"testing"

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

func TestRepository_GetBySlug(t *testing.T) {
	db := test_utils.Require(t, pg)
	ctx := context.Background()
	aliceId := test_utils.InsertSubscriber(t, db, "alice", "alice@example.org")
	bobId := test_utils.InsertSubscriber(t, db, "bob", "bob@example.org")
	repo := NewRepository(db)

	aliceSchedule, err := repo.CreateSchedule(ctx, Schedule{CalendarId: test_utils.InsertCalendar(t, db, aliceId), Name: "Intro", Slug: "intro", Active: true})
	require.NoError(t, err)
	_, err = repo.CreateSchedule(ctx, Schedule{CalendarId: test_utils.InsertCalendar(t, db, bobId), Name: "Intro", Slug: "intro", Active: true})
	require.NoError(t, err)
	_, err = repo.CreateSchedule(ctx, Schedule{CalendarId: test_utils.InsertCalendar(t, db, aliceId), Name: "Old", Slug: "old", Active: false})
	require.NoError(t, err)

	t.Run("should namespace slugs by username", func(t *testing.T) {
		found, err := repo.GetBySlug(ctx, "alice", "intro")

		require.NoError(t, err)
		assert.Equal(t, aliceSchedule.Id, found.Id)
		assert.Equal(t, aliceId, found.OwnerId)
	})

	t.Run("should ignore inactive schedules", func(t *testing.T) {
		_, err := repo.GetBySlug(ctx, "alice", "old")

		assert.ErrorIs(t, err, ErrScheduleNotFound)
	})

	t.Run("should ignore deleted subscribers", func(t *testing.T) {
		_, err := db.Exec(ctx, `UPDATE subscribers SET is_deleted = TRUE WHERE id = $1`, bobId)
		require.NoError(t, err)

		_, err = repo.GetBySlug(ctx, "bob", "intro")

		assert.ErrorIs(t, err, ErrScheduleNotFound)
	})

	t.Run("should report taken slugs per owner", func(t *testing.T) {
		taken, err := repo.SlugTaken(ctx, aliceId, "intro")
		require.NoError(t, err)
		assert.True(t, taken)

		taken, err = repo.SlugTaken(ctx, aliceId, "other")
		require.NoError(t, err)
		assert.False(t, taken)
	})

	t.Run("should list schedules of the owner", func(t *testing.T) {
		schedules, err := repo.ListSchedules(ctx, aliceId)

		require.NoError(t, err)
		assert.Len(t, schedules, 2)
	})
}
