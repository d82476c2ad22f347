package link

import (
	"context"
	"errors"
	"fmt"

	"github.com/bookslot/bookslot/pkg/schedule"
	"github.com/bookslot/bookslot/pkg/subscriber"
	log "github.com/sirupsen/logrus"
)

var ErrInvalidLink = errors.New("invalid link")

type SubscriberFinder interface {
	GetSubscriber(ctx context.Context, id int) (subscriber.Subscriber, error)
	GetByUsername(ctx context.Context, username string) (subscriber.Subscriber, error)
}

type ScheduleFinder interface {
	GetBySlug(ctx context.Context, username string, slug string) (schedule.Schedule, error)
}

// Resolver maps a public link to the subscriber that granted it.
type Resolver struct {
	signer      *Signer
	subscribers SubscriberFinder
	schedules   ScheduleFinder
}

func NewResolver(signer *Signer, subscribers SubscriberFinder, schedules ScheduleFinder) *Resolver {
	return &Resolver{signer: signer, subscribers: subscribers, schedules: schedules}
}

// Resolve tries the link as a signed subscriber link first, then as a
// <username>/<slug> schedule link. Any failure is reported as ErrInvalidLink.
func (r *Resolver) Resolve(ctx context.Context, rawUrl string) (subscriber.Subscriber, error) {
	sub, signedErr := r.resolveSigned(ctx, rawUrl)
	if signedErr == nil {
		return sub, nil
	}
	sub, slugErr := r.resolveSchedule(ctx, rawUrl)
	if slugErr == nil {
		return sub, nil
	}
	log.Debugf("link rejected: signed: %v; schedule: %v", signedErr, slugErr)
	return subscriber.Subscriber{}, ErrInvalidLink
}

// ResolveSigned accepts signed subscriber links only.
func (r *Resolver) ResolveSigned(ctx context.Context, rawUrl string) (subscriber.Subscriber, error) {
	sub, err := r.resolveSigned(ctx, rawUrl)
	if err != nil {
		log.Debugf("signed link rejected: %v", err)
		return subscriber.Subscriber{}, ErrInvalidLink
	}
	return sub, nil
}

func (r *Resolver) resolveSigned(ctx context.Context, rawUrl string) (subscriber.Subscriber, error) {
	username, err := r.signer.Verify(rawUrl)
	if err != nil {
		return subscriber.Subscriber{}, err
	}
	sub, err := r.subscribers.GetByUsername(ctx, username)
	if err != nil {
		return subscriber.Subscriber{}, err
	}
	return active(sub)
}

func (r *Resolver) resolveSchedule(ctx context.Context, rawUrl string) (subscriber.Subscriber, error) {
	username, slug, err := lastSegments(rawUrl)
	if err != nil {
		return subscriber.Subscriber{}, err
	}
	sched, err := r.schedules.GetBySlug(ctx, username, slug)
	if err != nil {
		return subscriber.Subscriber{}, err
	}
	sub, err := r.subscribers.GetSubscriber(ctx, sched.OwnerId)
	if err != nil {
		return subscriber.Subscriber{}, err
	}
	return active(sub)
}

func active(sub subscriber.Subscriber) (subscriber.Subscriber, error) {
	if sub.IsDeleted {
		return subscriber.Subscriber{}, fmt.Errorf("subscriber %d is deleted", sub.Id)
	}
	return sub, nil
}
