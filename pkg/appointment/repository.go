package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

var ErrAppointmentNotFound = errors.New("appointment not found")
var ErrSlotNotFound = errors.New("slot not found for appointment")

type Repository interface {
	CreateAppointment(ctx context.Context, a Appointment) (Appointment, error)
	GetAppointment(ctx context.Context, id int) (Appointment, error)
	GetBySlug(ctx context.Context, slug string) (Appointment, error)
	ListAppointments(ctx context.Context, ownerId int) ([]Appointment, error)
	// UpdateAppointment stores the appointment fields and replaces its open slots.
	// Reserved and claimed slots are kept.
	UpdateAppointment(ctx context.Context, a Appointment) (Appointment, error)
	DeleteAppointment(ctx context.Context, id int) (bool, error)

	// ReserveSlot moves an open slot of the appointment to reserved for the attendee
	// and returns the id of the new reservation. The id is empty when the slot is
	// not open anymore.
	ReserveSlot(ctx context.Context, appointmentId int, slotId int, attendee Attendee, at time.Time) (string, error)
	// ConfirmSlot moves the slot to claimed if it still holds the given reservation.
	ConfirmSlot(ctx context.Context, slotId int, reservationId string) (bool, error)
	// ReleaseSlot moves the slot back to open if it still holds the given reservation.
	ReleaseSlot(ctx context.Context, slotId int, reservationId string) (bool, error)
	// ReleaseStale reopens reservations made before olderThan.
	ReleaseStale(ctx context.Context, olderThan time.Time) (int, error)
}

type queryer interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) withTransaction(ctx context.Context, fn func(q queryer) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Errorf("rollback error: %v", rbErr)
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

const appointmentColumns = `a.id, a.calendar_id, c.owner_id, a.title, a.details, a.slug, a.duration, a.location_url`

func (r *RepositoryImpl) CreateAppointment(ctx context.Context, a Appointment) (Appointment, error) {
	err := r.withTransaction(ctx, func(q queryer) error {
		query := `INSERT INTO appointments (calendar_id, title, details, slug, duration, location_url)
					VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
		if err := q.QueryRow(ctx, query, a.CalendarId, a.Title, a.Details, a.Slug, a.Duration, a.LocationUrl).Scan(&a.Id); err != nil {
			return fmt.Errorf("could not insert appointment: %w", err)
		}
		slots, err := insertSlots(ctx, q, a.Id, a.Slots)
		if err != nil {
			return err
		}
		a.Slots = slots
		return nil
	})
	if err != nil {
		log.Error(err)
		return Appointment{}, err
	}
	return a, nil
}

func insertSlots(ctx context.Context, q queryer, appointmentId int, slots []Slot) ([]Slot, error) {
	stored := make([]Slot, 0, len(slots))
	for _, s := range slots {
		s.AppointmentId = appointmentId
		s.Status = StatusOpen
		s.Attendee = nil
		s.ReservedAt = nil
		err := q.QueryRow(ctx, `INSERT INTO slots (appointment_id, start, duration) VALUES ($1, $2, $3) RETURNING id`,
			appointmentId, s.Start, s.Duration).Scan(&s.Id)
		if err != nil {
			return nil, fmt.Errorf("could not insert slot: %w", err)
		}
		stored = append(stored, s)
	}
	return stored, nil
}

func (r *RepositoryImpl) getOne(ctx context.Context, where string, arg any) (Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments a JOIN calendars c ON c.id = a.calendar_id WHERE ` + where
	var a Appointment
	err := r.db.QueryRow(ctx, query, arg).Scan(&a.Id, &a.CalendarId, &a.OwnerId, &a.Title, &a.Details, &a.Slug, &a.Duration, &a.LocationUrl)
	if errors.Is(err, pgx.ErrNoRows) {
		return Appointment{}, ErrAppointmentNotFound
	} else if err != nil {
		log.Errorf("failed to get appointment: %v", err)
		return Appointment{}, err
	}
	a.Slots, err = r.slotsOf(ctx, r.db, a.Id)
	if err != nil {
		return Appointment{}, err
	}
	return a, nil
}

func (r *RepositoryImpl) GetAppointment(ctx context.Context, id int) (Appointment, error) {
	return r.getOne(ctx, `a.id = $1`, id)
}

func (r *RepositoryImpl) GetBySlug(ctx context.Context, slug string) (Appointment, error) {
	return r.getOne(ctx, `a.slug = $1`, slug)
}

func (r *RepositoryImpl) slotsOf(ctx context.Context, q queryer, appointmentId int) ([]Slot, error) {
	query := `SELECT id, appointment_id, start, duration, attendee_email, attendee_name, booking_status, reserved_at
				FROM slots WHERE appointment_id = $1 ORDER BY start, id`
	rows, err := q.Query(ctx, query, appointmentId)
	if err != nil {
		return nil, fmt.Errorf("could not query slots: %w", err)
	}
	defer rows.Close()

	slots := make([]Slot, 0)
	for rows.Next() {
		var s Slot
		var email, name *string
		if err := rows.Scan(&s.Id, &s.AppointmentId, &s.Start, &s.Duration, &email, &name, &s.Status, &s.ReservedAt); err != nil {
			return nil, err
		}
		if email != nil {
			s.Attendee = &Attendee{Email: *email}
			if name != nil {
				s.Attendee.Name = *name
			}
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

func (r *RepositoryImpl) ListAppointments(ctx context.Context, ownerId int) ([]Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments a JOIN calendars c ON c.id = a.calendar_id
				WHERE c.owner_id = $1 ORDER BY a.id`
	rows, err := r.db.Query(ctx, query, ownerId)
	if err != nil {
		err := fmt.Errorf("could not query appointments: %w", err)
		log.Error(err)
		return nil, err
	}
	appointments := make([]Appointment, 0)
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(&a.Id, &a.CalendarId, &a.OwnerId, &a.Title, &a.Details, &a.Slug, &a.Duration, &a.LocationUrl); err != nil {
			rows.Close()
			return nil, err
		}
		appointments = append(appointments, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range appointments {
		appointments[i].Slots, err = r.slotsOf(ctx, r.db, appointments[i].Id)
		if err != nil {
			return nil, err
		}
	}
	return appointments, nil
}

func (r *RepositoryImpl) UpdateAppointment(ctx context.Context, a Appointment) (Appointment, error) {
	err := r.withTransaction(ctx, func(q queryer) error {
		query := `UPDATE appointments SET calendar_id = $1, title = $2, details = $3, duration = $4, location_url = $5,
					updated_at = NOW() WHERE id = $6`
		tag, err := q.Exec(ctx, query, a.CalendarId, a.Title, a.Details, a.Duration, a.LocationUrl, a.Id)
		if err != nil {
			return fmt.Errorf("could not update appointment: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrAppointmentNotFound
		}
		if _, err := q.Exec(ctx, `DELETE FROM slots WHERE appointment_id = $1 AND booking_status = 'open'`, a.Id); err != nil {
			return fmt.Errorf("could not delete open slots: %w", err)
		}
		if _, err := insertSlots(ctx, q, a.Id, a.Slots); err != nil {
			return err
		}
		a.Slots, err = r.slotsOf(ctx, q, a.Id)
		return err
	})
	if err != nil {
		if !errors.Is(err, ErrAppointmentNotFound) {
			log.Error(err)
		}
		return Appointment{}, err
	}
	return a, nil
}

func (r *RepositoryImpl) DeleteAppointment(ctx context.Context, id int) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		log.Errorf("failed to delete appointment %d: %v", id, err)
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ReserveSlot is a single conditional update: of several concurrent callers for
// the same slot at most one sees a row affected.
func (r *RepositoryImpl) ReserveSlot(ctx context.Context, appointmentId int, slotId int, attendee Attendee, at time.Time) (string, error) {
	reservationId := uuid.NewString()
	query := `UPDATE slots SET attendee_email = $1, attendee_name = $2, booking_status = 'reserved', reserved_at = $3, reservation_id = $4
				WHERE id = $5 AND appointment_id = $6 AND booking_status = 'open' AND attendee_email IS NULL`
	tag, err := r.db.Exec(ctx, query, attendee.Email, attendee.Name, at, reservationId, slotId, appointmentId)
	if err != nil {
		log.Errorf("failed to reserve slot %d: %v", slotId, err)
		return "", err
	}
	if tag.RowsAffected() != 1 {
		return "", nil
	}
	return reservationId, nil
}

func (r *RepositoryImpl) ConfirmSlot(ctx context.Context, slotId int, reservationId string) (bool, error) {
	query := `UPDATE slots SET booking_status = 'claimed', reserved_at = NULL, reservation_id = NULL
				WHERE id = $1 AND booking_status = 'reserved' AND reservation_id = $2`
	tag, err := r.db.Exec(ctx, query, slotId, reservationId)
	if err != nil {
		log.Errorf("failed to confirm slot %d: %v", slotId, err)
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *RepositoryImpl) ReleaseSlot(ctx context.Context, slotId int, reservationId string) (bool, error) {
	query := `UPDATE slots SET attendee_email = NULL, attendee_name = NULL, booking_status = 'open', reserved_at = NULL, reservation_id = NULL
				WHERE id = $1 AND booking_status = 'reserved' AND reservation_id = $2`
	tag, err := r.db.Exec(ctx, query, slotId, reservationId)
	if err != nil {
		log.Errorf("failed to release slot %d: %v", slotId, err)
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *RepositoryImpl) ReleaseStale(ctx context.Context, olderThan time.Time) (int, error) {
	query := `UPDATE slots SET attendee_email = NULL, attendee_name = NULL, booking_status = 'open', reserved_at = NULL, reservation_id = NULL
				WHERE booking_status = 'reserved' AND reserved_at < $1`
	tag, err := r.db.Exec(ctx, query, olderThan)
	if err != nil {
		log.Errorf("failed to release stale reservations: %v", err)
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
