package subscriber

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

var ErrSubscriberNotFound = errors.New("subscriber not found")
var ErrSubscriberExists = errors.New("subscriber with this username or email already exists")

type Repo interface {
	CreateSubscriber(ctx context.Context, sub Subscriber) (int, error)
	GetSubscriber(ctx context.Context, id int) (Subscriber, error)
	GetByUsername(ctx context.Context, username string) (Subscriber, error)
	GetByEmail(ctx context.Context, email string) (Subscriber, error)
	UpdateSubscriber(ctx context.Context, sub Subscriber) (Subscriber, error)
	ListSubscribers(ctx context.Context) ([]Subscriber, error)
	SoftDelete(ctx context.Context, id int) (bool, error)
	// ConsumeTokenFloor moves the revocation floor to now, but only while the
	// current floor is unset or not later than iat. Returns false when another
	// request already moved the floor past iat.
	ConsumeTokenFloor(ctx context.Context, id int, iat time.Time, now time.Time) (bool, error)
}

type SubscriberRepoImpl struct {
	db *pgxpool.Pool
}

func NewSubscriberRepo(db *pgxpool.Pool) *SubscriberRepoImpl {
	return &SubscriberRepoImpl{db: db}
}

const subscriberColumns = `id, username, email, name, timezone, level, is_deleted, minimum_valid_iat_time`

func scanSubscriber(row pgx.Row) (Subscriber, error) {
	var sub Subscriber
	err := row.Scan(
		&sub.Id,
		&sub.Username,
		&sub.Email,
		&sub.Name,
		&sub.Timezone,
		&sub.Level,
		&sub.IsDeleted,
		&sub.MinimumValidIatTime,
	)
	return sub, err
}

func (r *SubscriberRepoImpl) CreateSubscriber(ctx context.Context, sub Subscriber) (int, error) {
	if sub.Level == "" {
		sub.Level = LevelBasic
	}
	if sub.Timezone == "" {
		sub.Timezone = "UTC"
	}
	query := `INSERT INTO subscribers (username, email, name, timezone, level) VALUES ($1, $2, $3, $4, $5) RETURNING id`
	var id int
	err := r.db.QueryRow(ctx, query, sub.Username, sub.Email, sub.Name, sub.Timezone, sub.Level).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrSubscriberExists
		}
		log.Errorf("failed to create subscriber: %v", err)
		return 0, err
	}
	return id, nil
}

func (r *SubscriberRepoImpl) getOne(ctx context.Context, where string, arg any) (Subscriber, error) {
	query := `SELECT ` + subscriberColumns + ` FROM subscribers WHERE ` + where
	sub, err := scanSubscriber(r.db.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return Subscriber{}, ErrSubscriberNotFound
	} else if err != nil {
		log.Errorf("failed to get subscriber: %v", err)
		return Subscriber{}, err
	}
	return sub, nil
}

func (r *SubscriberRepoImpl) GetSubscriber(ctx context.Context, id int) (Subscriber, error) {
	return r.getOne(ctx, "id = $1", id)
}

func (r *SubscriberRepoImpl) GetByUsername(ctx context.Context, username string) (Subscriber, error) {
	return r.getOne(ctx, "username = $1", username)
}

func (r *SubscriberRepoImpl) GetByEmail(ctx context.Context, email string) (Subscriber, error) {
	return r.getOne(ctx, "email = $1", email)
}

func (r *SubscriberRepoImpl) UpdateSubscriber(ctx context.Context, sub Subscriber) (Subscriber, error) {
	query := `UPDATE subscribers SET name = $1, timezone = $2, username = $3, updated_at = NOW()
				WHERE id = $4 AND is_deleted = FALSE RETURNING ` + subscriberColumns
	updated, err := scanSubscriber(r.db.QueryRow(ctx, query, sub.Name, sub.Timezone, sub.Username, sub.Id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Subscriber{}, ErrSubscriberNotFound
	} else if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Subscriber{}, ErrSubscriberExists
		}
		log.Errorf("failed to update subscriber: %v", err)
		return Subscriber{}, err
	}
	return updated, nil
}

func (r *SubscriberRepoImpl) ListSubscribers(ctx context.Context) ([]Subscriber, error) {
	rows, err := r.db.Query(ctx, `SELECT `+subscriberColumns+` FROM subscribers ORDER BY id`)
	if err != nil {
		log.Errorf("failed to list subscribers: %v", err)
		return nil, err
	}
	defer rows.Close()

	subscribers := make([]Subscriber, 0)
	for rows.Next() {
		sub, err := scanSubscriber(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning subscriber: %w", err)
		}
		subscribers = append(subscribers, sub)
	}
	return subscribers, rows.Err()
}

func (r *SubscriberRepoImpl) SoftDelete(ctx context.Context, id int) (bool, error) {
	tag, err := r.db.Exec(ctx, `UPDATE subscribers SET is_deleted = TRUE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		log.Errorf("failed to delete subscriber %d: %v", id, err)
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *SubscriberRepoImpl) ConsumeTokenFloor(ctx context.Context, id int, iat time.Time, now time.Time) (bool, error) {
	query := `UPDATE subscribers SET minimum_valid_iat_time = $1
				WHERE id = $2 AND is_deleted = FALSE
				  AND (minimum_valid_iat_time IS NULL OR minimum_valid_iat_time <= $3)`
	tag, err := r.db.Exec(ctx, query, now, id, iat)
	if err != nil {
		log.Errorf("failed to update revocation floor for subscriber %d: %v", id, err)
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
