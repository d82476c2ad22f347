package schedule

import (
	"context"
	"sync"
)

type RepositoryStub struct {
	mu        sync.RWMutex
	schedules []Schedule
	usernames map[int]string
	nextId    int
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{usernames: make(map[int]string)}
}

// SetUsername tells the stub which username owns ownerId, for slug lookups.
func (r *RepositoryStub) SetUsername(ownerId int, username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.usernames[ownerId] = username
}

func (r *RepositoryStub) CreateSchedule(ctx context.Context, s Schedule) (Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextId++
	s.Id = r.nextId
	r.schedules = append(r.schedules, s)
	return s, nil
}

func (r *RepositoryStub) ListSchedules(ctx context.Context, ownerId int) ([]Schedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Schedule, 0)
	for _, s := range r.schedules {
		if s.OwnerId == ownerId {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *RepositoryStub) GetBySlug(ctx context.Context, username string, slug string) (Schedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.schedules {
		if s.Active && s.Slug == slug && r.usernames[s.OwnerId] == username {
			return s, nil
		}
	}
	return Schedule{}, ErrScheduleNotFound
}

func (r *RepositoryStub) SlugTaken(ctx context.Context, ownerId int, slug string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.schedules {
		if s.OwnerId == ownerId && s.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}
