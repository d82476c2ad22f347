package calendar

import (
	"context"
	"errors"
	"fmt"

	"github.com/bookslot/bookslot/internal/secret"
	"github.com/bookslot/bookslot/pkg/subscriber"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

var ErrCalendarNotFound = errors.New("calendar not found")

type Repository interface {
	CreateCalendar(ctx context.Context, cal Calendar) (Calendar, error)
	// CreateCalendarWithin stores the calendar unless its owner already has
	// limit calendars, in which case it returns ErrQuotaExceeded. Concurrent
	// calls for the same owner never exceed the limit. A limit of zero or less
	// means unlimited.
	CreateCalendarWithin(ctx context.Context, cal Calendar, limit int) (Calendar, error)
	GetCalendar(ctx context.Context, id int) (Calendar, error)
	ListCalendars(ctx context.Context, ownerId int) ([]Calendar, error)
	CountCalendars(ctx context.Context, ownerId int) (int, error)
	UpdateCalendar(ctx context.Context, cal Calendar) (Calendar, error)
	DeleteCalendar(ctx context.Context, id int) (bool, error)
}

// RepositoryImpl stores calendar passwords sealed with the configured secret.
type RepositoryImpl struct {
	db  *pgxpool.Pool
	box *secret.Box
}

func NewRepository(db *pgxpool.Pool, box *secret.Box) *RepositoryImpl {
	return &RepositoryImpl{db: db, box: box}
}

const calendarColumns = `id, owner_id, provider, title, color, url, "user", password, connected`

func (r *RepositoryImpl) scan(row pgx.Row) (Calendar, error) {
	var cal Calendar
	var sealed string
	err := row.Scan(&cal.Id, &cal.OwnerId, &cal.Provider, &cal.Title, &cal.Color, &cal.Url, &cal.User, &sealed, &cal.Connected)
	if err != nil {
		return Calendar{}, err
	}
	cal.Password, err = r.box.Open(sealed)
	if err != nil {
		return Calendar{}, fmt.Errorf("unable to decrypt password of calendar %d: %w", cal.Id, err)
	}
	return cal, nil
}

func (r *RepositoryImpl) CreateCalendar(ctx context.Context, cal Calendar) (Calendar, error) {
	sealed, err := r.box.Seal(cal.Password)
	if err != nil {
		return Calendar{}, err
	}
	query := `INSERT INTO calendars (owner_id, provider, title, color, url, "user", password, connected)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	err = r.db.QueryRow(ctx, query, cal.OwnerId, cal.Provider, cal.Title, cal.Color, cal.Url, cal.User, sealed, cal.Connected).
		Scan(&cal.Id)
	if err != nil {
		err := fmt.Errorf("could not insert calendar: %w", err)
		log.Error(err)
		return Calendar{}, err
	}
	return cal, nil
}

func (r *RepositoryImpl) CreateCalendarWithin(ctx context.Context, cal Calendar, limit int) (Calendar, error) {
	if limit <= 0 {
		return r.CreateCalendar(ctx, cal)
	}
	sealed, err := r.box.Seal(cal.Password)
	if err != nil {
		return Calendar{}, err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return Calendar{}, fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// The owner row lock serializes creates of the same subscriber until commit.
	var ownerId int
	err = tx.QueryRow(ctx, `SELECT id FROM subscribers WHERE id = $1 FOR NO KEY UPDATE`, cal.OwnerId).Scan(&ownerId)
	if errors.Is(err, pgx.ErrNoRows) {
		return Calendar{}, subscriber.ErrSubscriberNotFound
	} else if err != nil {
		log.Errorf("failed to lock subscriber %d: %v", cal.OwnerId, err)
		return Calendar{}, err
	}

	var count int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM calendars WHERE owner_id = $1`, ownerId).Scan(&count); err != nil {
		log.Errorf("failed to count calendars of subscriber %d: %v", ownerId, err)
		return Calendar{}, err
	}
	if count >= limit {
		return Calendar{}, ErrQuotaExceeded
	}

	query := `INSERT INTO calendars (owner_id, provider, title, color, url, "user", password, connected)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	err = tx.QueryRow(ctx, query, ownerId, cal.Provider, cal.Title, cal.Color, cal.Url, cal.User, sealed, cal.Connected).
		Scan(&cal.Id)
	if err != nil {
		err := fmt.Errorf("could not insert calendar: %w", err)
		log.Error(err)
		return Calendar{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Calendar{}, fmt.Errorf("could not commit calendar: %w", err)
	}
	return cal, nil
}

func (r *RepositoryImpl) GetCalendar(ctx context.Context, id int) (Calendar, error) {
	cal, err := r.scan(r.db.QueryRow(ctx, `SELECT `+calendarColumns+` FROM calendars WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Calendar{}, ErrCalendarNotFound
	} else if err != nil {
		log.Errorf("failed to get calendar %d: %v", id, err)
		return Calendar{}, err
	}
	return cal, nil
}

func (r *RepositoryImpl) ListCalendars(ctx context.Context, ownerId int) ([]Calendar, error) {
	rows, err := r.db.Query(ctx, `SELECT `+calendarColumns+` FROM calendars WHERE owner_id = $1 ORDER BY id`, ownerId)
	if err != nil {
		err := fmt.Errorf("could not query calendars: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	calendars := make([]Calendar, 0)
	for rows.Next() {
		cal, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		calendars = append(calendars, cal)
	}
	return calendars, rows.Err()
}

func (r *RepositoryImpl) CountCalendars(ctx context.Context, ownerId int) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM calendars WHERE owner_id = $1`, ownerId).Scan(&count)
	if err != nil {
		log.Errorf("failed to count calendars of subscriber %d: %v", ownerId, err)
		return 0, err
	}
	return count, nil
}

func (r *RepositoryImpl) UpdateCalendar(ctx context.Context, cal Calendar) (Calendar, error) {
	sealed, err := r.box.Seal(cal.Password)
	if err != nil {
		return Calendar{}, err
	}
	query := `UPDATE calendars SET title = $1, color = $2, url = $3, "user" = $4, password = $5, connected = $6
				WHERE id = $7`
	tag, err := r.db.Exec(ctx, query, cal.Title, cal.Color, cal.Url, cal.User, sealed, cal.Connected, cal.Id)
	if err != nil {
		err := fmt.Errorf("could not update calendar: %w", err)
		log.Error(err)
		return Calendar{}, err
	}
	if tag.RowsAffected() == 0 {
		return Calendar{}, ErrCalendarNotFound
	}
	return cal, nil
}

func (r *RepositoryImpl) DeleteCalendar(ctx context.Context, id int) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM calendars WHERE id = $1`, id)
	if err != nil {
		log.Errorf("failed to delete calendar %d: %v", id, err)
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
