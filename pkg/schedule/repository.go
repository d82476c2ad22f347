package schedule

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

var ErrScheduleNotFound = errors.New("schedule not found")

type Repository interface {
	CreateSchedule(ctx context.Context, s Schedule) (Schedule, error)
	ListSchedules(ctx context.Context, ownerId int) ([]Schedule, error)
	// GetBySlug finds an active schedule of a non-deleted subscriber.
	GetBySlug(ctx context.Context, username string, slug string) (Schedule, error)
	SlugTaken(ctx context.Context, ownerId int, slug string) (bool, error)
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) CreateSchedule(ctx context.Context, s Schedule) (Schedule, error) {
	query := `INSERT INTO schedules (calendar_id, name, slug, active) VALUES ($1, $2, $3, $4) RETURNING id`
	err := r.db.QueryRow(ctx, query, s.CalendarId, s.Name, s.Slug, s.Active).Scan(&s.Id)
	if err != nil {
		err := fmt.Errorf("could not insert schedule: %w", err)
		log.Error(err)
		return Schedule{}, err
	}
	return s, nil
}

func (r *RepositoryImpl) ListSchedules(ctx context.Context, ownerId int) ([]Schedule, error) {
	query := `SELECT s.id, s.calendar_id, c.owner_id, s.name, s.slug, s.active
				FROM schedules s JOIN calendars c ON c.id = s.calendar_id
				WHERE c.owner_id = $1 ORDER BY s.id`
	rows, err := r.db.Query(ctx, query, ownerId)
	if err != nil {
		err := fmt.Errorf("could not query schedules: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	schedules := make([]Schedule, 0)
	for rows.Next() {
		var s Schedule
		if err := rows.Scan(&s.Id, &s.CalendarId, &s.OwnerId, &s.Name, &s.Slug, &s.Active); err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}
	return schedules, rows.Err()
}

func (r *RepositoryImpl) GetBySlug(ctx context.Context, username string, slug string) (Schedule, error) {
	query := `SELECT s.id, s.calendar_id, c.owner_id, s.name, s.slug, s.active
				FROM schedules s
				JOIN calendars c ON c.id = s.calendar_id
				JOIN subscribers u ON u.id = c.owner_id
				WHERE u.username = $1 AND s.slug = $2 AND s.active AND NOT u.is_deleted
				ORDER BY s.id LIMIT 1`
	var s Schedule
	err := r.db.QueryRow(ctx, query, username, slug).Scan(&s.Id, &s.CalendarId, &s.OwnerId, &s.Name, &s.Slug, &s.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return Schedule{}, ErrScheduleNotFound
	} else if err != nil {
		log.Errorf("failed to get schedule %s/%s: %v", username, slug, err)
		return Schedule{}, err
	}
	return s, nil
}

func (r *RepositoryImpl) SlugTaken(ctx context.Context, ownerId int, slug string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM schedules s JOIN calendars c ON c.id = s.calendar_id
				WHERE c.owner_id = $1 AND s.slug = $2)`
	var taken bool
	if err := r.db.QueryRow(ctx, query, ownerId, slug).Scan(&taken); err != nil {
		log.Errorf("failed to check schedule slug: %v", err)
		return false, err
	}
	return taken, nil
}
