package link

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bookslot/bookslot/internal/config"
	"github.com/bookslot/bookslot/internal/utils"
	"github.com/bookslot/bookslot/pkg/schedule"
	"github.com/bookslot/bookslot/pkg/subscriber"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseUrl = "https://book.example.org"

type fixture struct {
	signer      *Signer
	resolver    *Resolver
	subscribers *subscriber.StubSubscriberRepo
	schedules   *schedule.RepositoryStub
	clock       *utils.MockClock
	alice       subscriber.Subscriber
}

func setup(t *testing.T) fixture {
	clock := &utils.MockClock{FixedNow: time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)}
	signer, err := NewSigner(config.Auth{JwtSecret: "jwt", SignedUrlSecret: "links", SignedUrlTTL: time.Hour}, baseUrl+"/", clock)
	require.NoError(t, err)

	subscribers := subscriber.NewStubSubscriberRepo()
	id, err := subscribers.CreateSubscriber(context.Background(), subscriber.Subscriber{Username: "alice", Email: "alice@example.org", Name: "Alice"})
	require.NoError(t, err)
	alice, _ := subscribers.GetSubscriber(context.Background(), id)

	schedules := schedule.NewRepositoryStub()
	schedules.SetUsername(alice.Id, alice.Username)

	return fixture{
		signer:      signer,
		resolver:    NewResolver(signer, subscribers, schedules),
		subscribers: subscribers,
		schedules:   schedules,
		clock:       clock,
		alice:       alice,
	}
}

func TestNewSigner(t *testing.T) {
	_, err := NewSigner(config.Auth{JwtSecret: "jwt"}, baseUrl, utils.SystemClock{})
	assert.Error(t, err)

	_, err = NewSigner(config.Auth{JwtSecret: "same", SignedUrlSecret: "same"}, baseUrl, utils.SystemClock{})
	assert.Error(t, err)
}

func TestResolver_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("should resolve a signed link", func(t *testing.T) {
		// given
		f := setup(t)
		signed, err := f.signer.Sign("alice")
		require.NoError(t, err)

		// when
		sub, err := f.resolver.Resolve(ctx, signed)

		// then
		require.NoError(t, err)
		assert.Equal(t, f.alice.Id, sub.Id)
		assert.True(t, strings.HasPrefix(signed, baseUrl+"/alice/"))
	})

	t.Run("should resolve a schedule slug", func(t *testing.T) {
		f := setup(t)
		_, err := f.schedules.CreateSchedule(ctx, schedule.Schedule{OwnerId: f.alice.Id, Slug: "intro", Active: true})
		require.NoError(t, err)

		sub, err := f.resolver.Resolve(ctx, baseUrl+"/alice/intro/")

		require.NoError(t, err)
		assert.Equal(t, f.alice.Id, sub.Id)
	})

	t.Run("should reject an expired link", func(t *testing.T) {
		f := setup(t)
		signed, err := f.signer.Sign("alice")
		require.NoError(t, err)
		f.clock.Advance(2 * time.Hour)

		_, err = f.resolver.Resolve(ctx, signed)

		assert.ErrorIs(t, err, ErrInvalidLink)
	})

	t.Run("should reject a link moved to another username", func(t *testing.T) {
		f := setup(t)
		_, err := f.subscribers.CreateSubscriber(ctx, subscriber.Subscriber{Username: "mallory", Email: "m@example.org"})
		require.NoError(t, err)
		signed, err := f.signer.Sign("alice")
		require.NoError(t, err)

		_, err = f.resolver.Resolve(ctx, strings.Replace(signed, "/alice/", "/mallory/", 1))

		assert.ErrorIs(t, err, ErrInvalidLink)
	})

	t.Run("should reject a link signed with the bearer secret", func(t *testing.T) {
		f := setup(t)
		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "alice"}).SignedString([]byte("jwt"))
		require.NoError(t, err)

		_, err = f.resolver.Resolve(ctx, baseUrl+"/alice/"+forged)

		assert.ErrorIs(t, err, ErrInvalidLink)
	})

	t.Run("should reject links of deleted subscribers", func(t *testing.T) {
		f := setup(t)
		signed, err := f.signer.Sign("alice")
		require.NoError(t, err)
		_, err = f.subscribers.SoftDelete(ctx, f.alice.Id)
		require.NoError(t, err)

		_, err = f.resolver.Resolve(ctx, signed)

		assert.ErrorIs(t, err, ErrInvalidLink)
	})

	t.Run("should reject unknown and inactive slugs", func(t *testing.T) {
		f := setup(t)
		_, err := f.schedules.CreateSchedule(ctx, schedule.Schedule{OwnerId: f.alice.Id, Slug: "paused", Active: false})
		require.NoError(t, err)

		for _, link := range []string{baseUrl + "/alice/paused", baseUrl + "/alice/unknown", baseUrl + "/alice", "::not a url"} {
			_, err := f.resolver.Resolve(ctx, link)
			assert.ErrorIs(t, err, ErrInvalidLink, link)
		}
	})

	t.Run("should not accept schedule links as signed links", func(t *testing.T) {
		f := setup(t)
		_, err := f.schedules.CreateSchedule(ctx, schedule.Schedule{OwnerId: f.alice.Id, Slug: "intro", Active: true})
		require.NoError(t, err)

		_, err = f.resolver.ResolveSigned(ctx, baseUrl+"/alice/intro")

		assert.ErrorIs(t, err, ErrInvalidLink)
	})
}
