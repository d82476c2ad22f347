package calendar

import (
	"context"
	"sort"
	"sync"
)

type RepositoryStub struct {
	mu     sync.RWMutex
	items  map[int]Calendar
	nextId int
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{items: make(map[int]Calendar)}
}

func (r *RepositoryStub) CreateCalendar(ctx context.Context, cal Calendar) (Calendar, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextId++
	cal.Id = r.nextId
	r.items[cal.Id] = cal
	return cal, nil
}

func (r *RepositoryStub) CreateCalendarWithin(ctx context.Context, cal Calendar, limit int) (Calendar, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit > 0 {
		count := 0
		for _, existing := range r.items {
			if existing.OwnerId == cal.OwnerId {
				count++
			}
		}
		if count >= limit {
			return Calendar{}, ErrQuotaExceeded
		}
	}
	r.nextId++
	cal.Id = r.nextId
	r.items[cal.Id] = cal
	return cal, nil
}

func (r *RepositoryStub) GetCalendar(ctx context.Context, id int) (Calendar, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cal, ok := r.items[id]
	if !ok {
		return Calendar{}, ErrCalendarNotFound
	}
	return cal, nil
}

func (r *RepositoryStub) ListCalendars(ctx context.Context, ownerId int) ([]Calendar, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	calendars := make([]Calendar, 0)
	for _, cal := range r.items {
		if cal.OwnerId == ownerId {
			calendars = append(calendars, cal)
		}
	}
	sort.Slice(calendars, func(i, j int) bool { return calendars[i].Id < calendars[j].Id })
	return calendars, nil
}

func (r *RepositoryStub) CountCalendars(ctx context.Context, ownerId int) (int, error) {
	calendars, _ := r.ListCalendars(ctx, ownerId)
	return len(calendars), nil
}

func (r *RepositoryStub) UpdateCalendar(ctx context.Context, cal Calendar) (Calendar, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.items[cal.Id]
	if !ok {
		return Calendar{}, ErrCalendarNotFound
	}
	cal.OwnerId = existing.OwnerId
	r.items[cal.Id] = cal
	return cal, nil
}

func (r *RepositoryStub) DeleteCalendar(ctx context.Context, id int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return false, nil
	}
	delete(r.items, id)
	return true, nil
}
