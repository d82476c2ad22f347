package subscriber

import (
	"context"
	"sort"
	"sync"
	"time"
)

type StubSubscriberRepo struct {
	mu     sync.RWMutex
	nextId int
	data   map[int]Subscriber
}

func NewStubSubscriberRepo() *StubSubscriberRepo {
	return &StubSubscriberRepo{data: map[int]Subscriber{}}
}

func (s *StubSubscriberRepo) CreateSubscriber(ctx context.Context, sub Subscriber) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.data {
		if existing.Username == sub.Username || existing.Email == sub.Email {
			return 0, ErrSubscriberExists
		}
	}
	if sub.Level == "" {
		sub.Level = LevelBasic
	}
	s.nextId++
	sub.Id = s.nextId
	s.data[sub.Id] = sub
	return sub.Id, nil
}

func (s *StubSubscriberRepo) GetSubscriber(ctx context.Context, id int) (Subscriber, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.data[id]
	if !ok {
		return Subscriber{}, ErrSubscriberNotFound
	}
	return sub, nil
}

func (s *StubSubscriberRepo) find(match func(Subscriber) bool) (Subscriber, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.data {
		if match(sub) {
			return sub, nil
		}
	}
	return Subscriber{}, ErrSubscriberNotFound
}

func (s *StubSubscriberRepo) GetByUsername(ctx context.Context, username string) (Subscriber, error) {
	return s.find(func(sub Subscriber) bool { return sub.Username == username })
}

func (s *StubSubscriberRepo) GetByEmail(ctx context.Context, email string) (Subscriber, error) {
	return s.find(func(sub Subscriber) bool { return sub.Email == email })
}

func (s *StubSubscriberRepo) UpdateSubscriber(ctx context.Context, sub Subscriber) (Subscriber, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.data[sub.Id]
	if !ok || existing.IsDeleted {
		return Subscriber{}, ErrSubscriberNotFound
	}
	existing.Name = sub.Name
	existing.Timezone = sub.Timezone
	existing.Username = sub.Username
	s.data[sub.Id] = existing
	return existing, nil
}

func (s *StubSubscriberRepo) ListSubscribers(ctx context.Context) ([]Subscriber, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	subscribers := make([]Subscriber, 0, len(s.data))
	for _, sub := range s.data {
		subscribers = append(subscribers, sub)
	}
	sort.Slice(subscribers, func(i, j int) bool { return subscribers[i].Id < subscribers[j].Id })
	return subscribers, nil
}

func (s *StubSubscriberRepo) SoftDelete(ctx context.Context, id int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.data[id]
	if !ok {
		return false, nil
	}
	sub.IsDeleted = true
	s.data[id] = sub
	return true, nil
}

func (s *StubSubscriberRepo) ConsumeTokenFloor(ctx context.Context, id int, iat time.Time, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.data[id]
	if !ok || sub.IsDeleted {
		return false, nil
	}
	if sub.MinimumValidIatTime != nil && sub.MinimumValidIatTime.After(iat) {
		return false, nil
	}
	floor := now
	sub.MinimumValidIatTime = &floor
	s.data[id] = sub
	return true, nil
}

// SetFloor sets the revocation floor directly.
func (s *StubSubscriberRepo) SetFloor(id int, floor time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := s.data[id]
	sub.MinimumValidIatTime = &floor
	s.data[id] = sub
}
