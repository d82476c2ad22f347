package test_utils

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

// InsertSubscriber adds a subscriber row and returns its id.
func InsertSubscriber(t *testing.T, db *pgxpool.Pool, username string, email string) int {
	t.Helper()
	var id int
	err := db.QueryRow(context.Background(),
		`INSERT INTO subscribers (username, email, name) VALUES ($1, $2, $1) RETURNING id`, username, email).Scan(&id)
	if err != nil {
		t.Fatalf("failed to insert subscriber: %v", err)
	}
	return id
}

// InsertCalendar adds a CalDAV calendar row owned by ownerId and returns its id.
func InsertCalendar(t *testing.T, db *pgxpool.Pool, ownerId int) int {
	t.Helper()
	var id int
	err := db.QueryRow(context.Background(),
		`INSERT INTO calendars (owner_id, provider, title, url) VALUES ($1, 'caldav', 'Work', 'https://dav.example.org/work/') RETURNING id`,
		ownerId).Scan(&id)
	if err != nil {
		t.Fatalf("failed to insert calendar: %v", err)
	}
	return id
}
