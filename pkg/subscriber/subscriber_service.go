package subscriber

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bookslot/bookslot/internal/event_bus"
	log "github.com/sirupsen/logrus"
)

var ErrSubscriberDataInvalid = errors.New("subscriber data is invalid")

type Service interface {
	GetCurrent(ctx context.Context) (Subscriber, error)
	UpdateCurrent(ctx context.Context, sub Subscriber) (Subscriber, error)
	GetSubscriber(ctx context.Context, id int) (Subscriber, error)
	CreateSubscriber(ctx context.Context, sub Subscriber) (Subscriber, error)
	ListSubscribers(ctx context.Context) ([]Subscriber, error)
	DisableSubscriber(ctx context.Context, id int) error
}

type ServiceImpl struct {
	repo     Repo
	eventBus *event_bus.EventBus
}

func NewService(repo Repo, eventBus *event_bus.EventBus) *ServiceImpl {
	return &ServiceImpl{repo: repo, eventBus: eventBus}
}

func (s *ServiceImpl) GetCurrent(ctx context.Context) (Subscriber, error) {
	id, err := CurrentId(ctx)
	if err != nil {
		return Subscriber{}, fmt.Errorf("failed to get current subscriber: %w", err)
	}
	return s.repo.GetSubscriber(ctx, id)
}

func (s *ServiceImpl) UpdateCurrent(ctx context.Context, sub Subscriber) (Subscriber, error) {
	current, err := s.GetCurrent(ctx)
	if err != nil {
		return Subscriber{}, err
	}
	if sub.Timezone != "" {
		if _, err := time.LoadLocation(sub.Timezone); err != nil {
			return Subscriber{}, fmt.Errorf("%w: unknown timezone %q", ErrSubscriberDataInvalid, sub.Timezone)
		}
		current.Timezone = sub.Timezone
	}
	if sub.Username != "" {
		current.Username = strings.TrimSpace(sub.Username)
	}
	current.Name = sub.Name
	return s.repo.UpdateSubscriber(ctx, current)
}

func (s *ServiceImpl) GetSubscriber(ctx context.Context, id int) (Subscriber, error) {
	return s.repo.GetSubscriber(ctx, id)
}

func (s *ServiceImpl) CreateSubscriber(ctx context.Context, sub Subscriber) (Subscriber, error) {
	sub.Email = strings.TrimSpace(strings.ToLower(sub.Email))
	sub.Username = strings.TrimSpace(sub.Username)
	if sub.Email == "" || !strings.Contains(sub.Email, "@") {
		return Subscriber{}, fmt.Errorf("%w: email is required", ErrSubscriberDataInvalid)
	}
	if sub.Username == "" {
		sub.Username, _, _ = strings.Cut(sub.Email, "@")
	}
	switch sub.Level {
	case "":
		sub.Level = LevelBasic
	case LevelBasic, LevelPlus, LevelPro:
	default:
		return Subscriber{}, fmt.Errorf("%w: unknown level %q", ErrSubscriberDataInvalid, sub.Level)
	}
	id, err := s.repo.CreateSubscriber(ctx, sub)
	if err != nil {
		return Subscriber{}, err
	}
	sub.Id = id
	log.Infof("Created subscriber %d (%s)", id, sub.Username)
	return sub, nil
}

func (s *ServiceImpl) ListSubscribers(ctx context.Context) ([]Subscriber, error) {
	return s.repo.ListSubscribers(ctx)
}

func (s *ServiceImpl) DisableSubscriber(ctx context.Context, id int) error {
	deleted, err := s.repo.SoftDelete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrSubscriberNotFound
	}
	log.Infof("Disabled subscriber %d", id)
	if s.eventBus != nil {
		err = s.eventBus.Publish(event_bus.NewEvent(ctx, event_bus.SubscriberDisabledType, event_bus.SubscriberDisabled{SubscriberId: id}))
		if err != nil {
			log.Errorf("failed to publish subscriber disabled event: %v", err)
		}
	}
	return nil
}
