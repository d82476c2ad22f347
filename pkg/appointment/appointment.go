package appointment

import (
	"time"
)

type BookingStatus string

const (
	StatusOpen BookingStatus = "open"
	// StatusReserved holds a slot while the remote event is being written. It is
	// never shown as claimable and ends in either StatusClaimed or StatusOpen.
	StatusReserved BookingStatus = "reserved"
	StatusClaimed  BookingStatus = "claimed"
)

const DefaultDuration = 30

type Attendee struct {
	Email string
	Name  string
}

type Slot struct {
	Id            int
	AppointmentId int
	Start         time.Time
	// Duration in minutes.
	Duration   int
	Attendee   *Attendee
	Status     BookingStatus
	ReservedAt *time.Time
}

func (s Slot) Available() bool {
	return s.Status == StatusOpen && s.Attendee == nil
}

func (s Slot) End() time.Time {
	return s.Start.Add(time.Duration(s.Duration) * time.Minute)
}

// Appointment is owned by the subscriber owning its calendar.
type Appointment struct {
	Id          int
	CalendarId  int
	OwnerId     int
	Title       string
	Details     string
	Slug        string
	Duration    int
	LocationUrl string
	Slots       []Slot
}

func (a Appointment) OwnedBy() int {
	return a.OwnerId
}

func (a Appointment) Slot(id int) (Slot, bool) {
	for _, s := range a.Slots {
		if s.Id == id {
			return s, true
		}
	}
	return Slot{}, false
}

// SlotAttendee confirms a claim.
type SlotAttendee struct {
	SlotId   int
	Attendee Attendee
}

type PublicSlot struct {
	Id        int
	Start     time.Time
	Duration  int
	Available bool
}

// PublicAppointment is what anonymous visitors see of an appointment.
type PublicAppointment struct {
	Id          int
	Title       string
	Details     string
	Slug        string
	LocationUrl string
	OwnerName   string
	Slots       []PublicSlot
}
