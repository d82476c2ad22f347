package appointment

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RepositoryStub keeps appointments in memory. Slot transitions are
// compare-and-set under one mutex, like the conditional updates of RepositoryImpl.
type RepositoryStub struct {
	mu           sync.RWMutex
	appointments map[int]Appointment
	slots        map[int]Slot
	owners       map[int]int    // calendar id -> owner id
	reservations map[int]string // slot id -> reservation id
	nextId       int
	nextSlotId   int
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{
		appointments: make(map[int]Appointment),
		slots:        make(map[int]Slot),
		owners:       make(map[int]int),
		reservations: make(map[int]string),
	}
}

// SetCalendarOwner records who owns a calendar, standing in for the calendars join.
func (r *RepositoryStub) SetCalendarOwner(calendarId int, ownerId int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.owners[calendarId] = ownerId
}

func (r *RepositoryStub) CreateAppointment(ctx context.Context, a Appointment) (Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextId++
	a.Id = r.nextId
	a.OwnerId = r.owners[a.CalendarId]
	a.Slots = r.insertSlots(a.Id, a.Slots)
	stored := a
	stored.Slots = nil
	r.appointments[a.Id] = stored
	return a, nil
}

func (r *RepositoryStub) insertSlots(appointmentId int, slots []Slot) []Slot {
	out := make([]Slot, 0, len(slots))
	for _, s := range slots {
		r.nextSlotId++
		s.Id = r.nextSlotId
		s.AppointmentId = appointmentId
		s.Status = StatusOpen
		s.Attendee = nil
		s.ReservedAt = nil
		r.slots[s.Id] = s
		out = append(out, s)
	}
	return out
}

func (r *RepositoryStub) withSlots(a Appointment) Appointment {
	a.Slots = make([]Slot, 0)
	for _, s := range r.slots {
		if s.AppointmentId == a.Id {
			a.Slots = append(a.Slots, s)
		}
	}
	sort.Slice(a.Slots, func(i, j int) bool {
		if a.Slots[i].Start.Equal(a.Slots[j].Start) {
			return a.Slots[i].Id < a.Slots[j].Id
		}
		return a.Slots[i].Start.Before(a.Slots[j].Start)
	})
	return a
}

func (r *RepositoryStub) GetAppointment(ctx context.Context, id int) (Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.appointments[id]
	if !ok {
		return Appointment{}, ErrAppointmentNotFound
	}
	return r.withSlots(a), nil
}

func (r *RepositoryStub) GetBySlug(ctx context.Context, slug string) (Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.appointments {
		if a.Slug == slug {
			return r.withSlots(a), nil
		}
	}
	return Appointment{}, ErrAppointmentNotFound
}

func (r *RepositoryStub) ListAppointments(ctx context.Context, ownerId int) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Appointment, 0)
	for _, a := range r.appointments {
		if a.OwnerId == ownerId {
			out = append(out, r.withSlots(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Id < out[j].Id })
	return out, nil
}

func (r *RepositoryStub) UpdateAppointment(ctx context.Context, a Appointment) (Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.appointments[a.Id]
	if !ok {
		return Appointment{}, ErrAppointmentNotFound
	}
	existing.CalendarId = a.CalendarId
	existing.OwnerId = r.owners[a.CalendarId]
	existing.Title = a.Title
	existing.Details = a.Details
	existing.Duration = a.Duration
	existing.LocationUrl = a.LocationUrl
	r.appointments[a.Id] = existing

	for id, s := range r.slots {
		if s.AppointmentId == a.Id && s.Status == StatusOpen {
			delete(r.slots, id)
		}
	}
	r.insertSlots(a.Id, a.Slots)
	return r.withSlots(existing), nil
}

func (r *RepositoryStub) DeleteAppointment(ctx context.Context, id int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.appointments[id]; !ok {
		return false, nil
	}
	delete(r.appointments, id)
	for slotId, s := range r.slots {
		if s.AppointmentId == id {
			delete(r.slots, slotId)
			delete(r.reservations, slotId)
		}
	}
	return true, nil
}

func (r *RepositoryStub) ReserveSlot(ctx context.Context, appointmentId int, slotId int, attendee Attendee, at time.Time) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[slotId]
	if !ok || s.AppointmentId != appointmentId || !s.Available() {
		return "", nil
	}
	a := attendee
	reservedAt := at
	s.Attendee = &a
	s.Status = StatusReserved
	s.ReservedAt = &reservedAt
	r.slots[slotId] = s
	reservationId := uuid.NewString()
	r.reservations[slotId] = reservationId
	return reservationId, nil
}

func (r *RepositoryStub) ConfirmSlot(ctx context.Context, slotId int, reservationId string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[slotId]
	if !ok || !r.holds(s, reservationId) {
		return false, nil
	}
	s.Status = StatusClaimed
	s.ReservedAt = nil
	r.slots[slotId] = s
	delete(r.reservations, slotId)
	return true, nil
}

func (r *RepositoryStub) ReleaseSlot(ctx context.Context, slotId int, reservationId string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[slotId]
	if !ok || !r.holds(s, reservationId) {
		return false, nil
	}
	r.slots[slotId] = reopen(s)
	delete(r.reservations, slotId)
	return true, nil
}

func (r *RepositoryStub) ReleaseStale(ctx context.Context, olderThan time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	released := 0
	for id, s := range r.slots {
		if s.Status == StatusReserved && s.ReservedAt != nil && s.ReservedAt.Before(olderThan) {
			r.slots[id] = reopen(s)
			delete(r.reservations, id)
			released++
		}
	}
	return released, nil
}

func (r *RepositoryStub) holds(s Slot, reservationId string) bool {
	return s.Status == StatusReserved && reservationId != "" && r.reservations[s.Id] == reservationId
}

func reopen(s Slot) Slot {
	s.Attendee = nil
	s.Status = StatusOpen
	s.ReservedAt = nil
	return s
}
