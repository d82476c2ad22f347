package appointment

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/bookslot/bookslot/internal/event_bus"
	"github.com/bookslot/bookslot/internal/utils"
	"github.com/bookslot/bookslot/pkg/calendar"
	"github.com/bookslot/bookslot/pkg/connector"
	"github.com/bookslot/bookslot/pkg/ics"
	"github.com/bookslot/bookslot/pkg/subscriber"
	log "github.com/sirupsen/logrus"
)

var ErrCalendarNotFound = errors.New("calendar of appointment not found")
var ErrSlotUnavailable = errors.New("slot no longer available")
var ErrUpstreamFailure = errors.New("remote calendar could not create the event")
var ErrInvalidAttendee = errors.New("invalid attendee")

// CalendarStore reads calendars without an ownership check.
type CalendarStore interface {
	GetCalendar(ctx context.Context, id int) (calendar.Calendar, error)
}

type SubscriberFinder interface {
	GetSubscriber(ctx context.Context, id int) (subscriber.Subscriber, error)
}

// BookingService serves the public side of appointments. Knowing the slug is
// the only authorization needed.
type BookingService struct {
	repo        Repository
	calendars   CalendarStore
	subscribers SubscriberFinder
	connectors  connector.Factory
	eventBus    *event_bus.EventBus
	clock       utils.Clock
}

func NewBookingService(repo Repository, calendars CalendarStore, subscribers SubscriberFinder, connectors connector.Factory, eventBus *event_bus.EventBus, clock utils.Clock) *BookingService {
	return &BookingService{
		repo:        repo,
		calendars:   calendars,
		subscribers: subscribers,
		connectors:  connectors,
		eventBus:    eventBus,
		clock:       clock,
	}
}

// GetPublicAppointment returns the appointment without credentials or attendees.
func (b *BookingService) GetPublicAppointment(ctx context.Context, slug string) (PublicAppointment, error) {
	a, err := b.repo.GetBySlug(ctx, slug)
	if err != nil {
		return PublicAppointment{}, err
	}
	owner, err := b.owner(ctx, a)
	if err != nil {
		return PublicAppointment{}, err
	}
	slots := make([]PublicSlot, 0, len(a.Slots))
	for _, s := range a.Slots {
		slots = append(slots, PublicSlot{Id: s.Id, Start: s.Start, Duration: s.Duration, Available: s.Available()})
	}
	return PublicAppointment{
		Id:          a.Id,
		Title:       a.Title,
		Details:     a.Details,
		Slug:        a.Slug,
		LocationUrl: a.LocationUrl,
		OwnerName:   owner.DisplayName(),
		Slots:       slots,
	}, nil
}

// ClaimSlot books an open slot for the attendee and writes the event to the
// owner's remote calendar.
//
// The slot is first reserved with a conditional update, so that of several
// concurrent claims exactly one proceeds and the others get ErrSlotUnavailable.
// The remote call runs with no database lock held. When it fails the
// reservation is released and ErrUpstreamFailure is returned; the slot is only
// claimed after the remote event exists. Failed remote calls are not retried.
// Confirm and release act on this claim's own reservation id, so a reservation
// that expired and was taken by another claim is left alone. A remote event
// whose reservation could not be confirmed is deleted again.
func (b *BookingService) ClaimSlot(ctx context.Context, slug string, slotId int, attendee Attendee) (SlotAttendee, error) {
	attendee, err := validAttendee(attendee)
	if err != nil {
		return SlotAttendee{}, err
	}

	a, err := b.repo.GetBySlug(ctx, slug)
	if err != nil {
		return SlotAttendee{}, err
	}
	cal, err := b.calendars.GetCalendar(ctx, a.CalendarId)
	if errors.Is(err, calendar.ErrCalendarNotFound) {
		log.Errorf("appointment %d refers to missing calendar %d", a.Id, a.CalendarId)
		return SlotAttendee{}, ErrCalendarNotFound
	} else if err != nil {
		return SlotAttendee{}, err
	}
	if _, err := b.owner(ctx, a); err != nil {
		return SlotAttendee{}, err
	}
	slot, ok := a.Slot(slotId)
	if !ok {
		return SlotAttendee{}, ErrSlotNotFound
	}

	reservationId, err := b.repo.ReserveSlot(ctx, a.Id, slot.Id, attendee, b.clock.Now())
	if err != nil {
		return SlotAttendee{}, fmt.Errorf("failed to reserve slot: %w", err)
	}
	if reservationId == "" {
		log.Debugf("slot %d of appointment %d is not available", slot.Id, a.Id)
		return SlotAttendee{}, ErrSlotUnavailable
	}

	created, err := b.createRemoteEvent(ctx, a, cal, slot, attendee)
	if err != nil {
		b.release(ctx, slot.Id, reservationId)
		return SlotAttendee{}, fmt.Errorf("%w: %v", ErrUpstreamFailure, err)
	}

	confirmed, err := b.repo.ConfirmSlot(context.WithoutCancel(ctx), slot.Id, reservationId)
	if err != nil {
		log.Errorf("remote event %s created but slot %d could not be confirmed: %v", created.UID, slot.Id, err)
		b.discardRemoteEvent(ctx, cal, created.UID)
		return SlotAttendee{}, fmt.Errorf("failed to confirm slot: %w", err)
	}
	if !confirmed {
		log.Warnf("reservation of slot %d expired before the remote event %s was confirmed", slot.Id, created.UID)
		b.discardRemoteEvent(ctx, cal, created.UID)
		return SlotAttendee{}, ErrSlotUnavailable
	}

	log.Infof("Slot %d of appointment %d claimed", slot.Id, a.Id)
	b.publishClaimed(ctx, a, cal, slot, attendee)
	return SlotAttendee{SlotId: slot.Id, Attendee: attendee}, nil
}

func (b *BookingService) createRemoteEvent(ctx context.Context, a Appointment, cal calendar.Calendar, slot Slot, attendee Attendee) (connector.Event, error) {
	conn, err := b.connectors.For(ctx, cal.Credentials())
	if err != nil {
		return connector.Event{}, err
	}
	return conn.CreateEvent(ctx, connector.Event{
		Title:       a.Title,
		Description: a.Details,
		Location:    a.LocationUrl,
		Start:       slot.Start,
		End:         slot.End(),
	}, &connector.Attendee{Email: attendee.Email, Name: attendee.Name})
}

// discardRemoteEvent deletes an event that no longer backs a claimed slot.
// A failed delete leaves the event in the owner's calendar and is only logged.
func (b *BookingService) discardRemoteEvent(ctx context.Context, cal calendar.Calendar, uid string) {
	ctx = context.WithoutCancel(ctx)
	conn, err := b.connectors.For(ctx, cal.Credentials())
	if err == nil {
		err = conn.DeleteEvent(ctx, uid)
	}
	if err != nil {
		log.Errorf("failed to delete remote event %s of calendar %d: %v", uid, cal.Id, err)
		return
	}
	log.Debugf("remote event %s of calendar %d deleted", uid, cal.Id)
}

// release reopens the slot even when the caller has gone away.
func (b *BookingService) release(ctx context.Context, slotId int, reservationId string) {
	released, err := b.repo.ReleaseSlot(context.WithoutCancel(ctx), slotId, reservationId)
	if err != nil {
		log.Errorf("failed to release slot %d, the janitor will reopen it: %v", slotId, err)
		return
	}
	if !released {
		log.Warnf("reservation of slot %d was already gone when releasing it", slotId)
	}
}

func (b *BookingService) publishClaimed(ctx context.Context, a Appointment, cal calendar.Calendar, slot Slot, attendee Attendee) {
	if b.eventBus == nil {
		return
	}
	err := b.eventBus.Publish(event_bus.NewEvent(ctx, event_bus.SlotClaimedType, event_bus.SlotClaimed{
		AppointmentId: a.Id,
		SlotId:        slot.Id,
		CalendarId:    cal.Id,
		OwnerId:       cal.OwnerId,
		AttendeeEmail: attendee.Email,
		AttendeeName:  attendee.Name,
		Start:         slot.Start,
		Duration:      slot.End().Sub(slot.Start),
	}))
	if err != nil {
		log.Errorf("failed to publish slot claimed event: %v", err)
	}
}

// SlotFile renders the calendar file for a slot of the appointment.
func (b *BookingService) SlotFile(ctx context.Context, slug string, slotId int) ([]byte, error) {
	a, err := b.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	slot, ok := a.Slot(slotId)
	if !ok {
		return nil, ErrSlotNotFound
	}
	owner, err := b.owner(ctx, a)
	if err != nil {
		return nil, err
	}
	return ics.Format(
		ics.Appointment{Slug: a.Slug, Title: a.Title, Details: a.Details, LocationUrl: a.LocationUrl},
		ics.Slot{Id: slot.Id, Start: slot.Start, Duration: slot.End().Sub(slot.Start)},
		ics.Organizer{Name: owner.DisplayName(), Email: owner.Email},
	)
}

func (b *BookingService) owner(ctx context.Context, a Appointment) (subscriber.Subscriber, error) {
	owner, err := b.subscribers.GetSubscriber(ctx, a.OwnerId)
	if errors.Is(err, subscriber.ErrSubscriberNotFound) {
		return subscriber.Subscriber{}, ErrAppointmentNotFound
	} else if err != nil {
		return subscriber.Subscriber{}, err
	}
	if owner.IsDeleted {
		return subscriber.Subscriber{}, ErrAppointmentNotFound
	}
	return owner, nil
}

func validAttendee(attendee Attendee) (Attendee, error) {
	attendee.Email = strings.ToLower(strings.TrimSpace(attendee.Email))
	attendee.Name = strings.TrimSpace(attendee.Name)
	addr, err := mail.ParseAddress(attendee.Email)
	if err != nil || addr.Address != attendee.Email {
		return Attendee{}, fmt.Errorf("%w: email %q", ErrInvalidAttendee, attendee.Email)
	}
	if len(attendee.Name) > 255 {
		return Attendee{}, fmt.Errorf("%w: name too long", ErrInvalidAttendee)
	}
	return attendee, nil
}
