package subscriber

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
)

type contextKey string

const SubscriberKey contextKey = "subscriber"

var ErrNoSubscriber = errors.New("subscriber not found in context")

// CurrentId retrieves the authenticated subscriber's id from the context.
func CurrentId(ctx context.Context) (int, error) {
	sub, ok := ctx.Value(SubscriberKey).(Subscriber)
	if !ok {
		log.Trace("subscriber not found in context")
		return 0, ErrNoSubscriber
	}
	return sub.Id, nil
}

func Current(ctx context.Context) (Subscriber, error) {
	sub, ok := ctx.Value(SubscriberKey).(Subscriber)
	if !ok {
		log.Trace("subscriber not found in context")
		return Subscriber{}, ErrNoSubscriber
	}
	return sub, nil
}

func WithSubscriber(ctx context.Context, sub Subscriber) context.Context {
	return context.WithValue(ctx, SubscriberKey, sub)
}
