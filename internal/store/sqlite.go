package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/chida-tennis/chida-crawler/internal/tournament"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLite is a Store backed by a SQLite database file.
type SQLite struct {
	db *sql.DB
	q  querier
}

// OpenSQLite opens the database at dsn, enabling foreign keys, and applies
// the embedded migrations.
func OpenSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	if path := sqliteFilePath(dsn); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("error creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", ensureForeignKeysEnabledDSN(dsn))
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	// One connection keeps writes serialized and lets :memory: databases
	// survive between statements.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	s := &SQLite{db: db, q: db}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func sqliteFilePath(dsn string) string {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return ""
	}
	return path
}

// ensureForeignKeysEnabledDSN adds _fk=1 to the DSN unless it already sets
// _fk. SQLite ignores REFERENCES ... ON DELETE CASCADE without it.
func ensureForeignKeysEnabledDSN(dsn string) string {
	if strings.Contains(dsn, "_fk=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_fk=1"
	}
	return dsn + "?_fk=1"
}

func (s *SQLite) Migrate(ctx context.Context) error {
	if err := runMigrations(s.db, "sqlite3"); err != nil {
		return fmt.Errorf("error running migrations: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// WithinTx runs fn against a Store bound to a single transaction.
func (s *SQLite) WithinTx(ctx context.Context, fn func(Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&SQLite{db: s.db, q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("error rolling back: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing: %w", err)
	}
	return nil
}

func (s *SQLite) TournamentExists(ctx context.Context, title string, date tournament.Date) (bool, error) {
	var exists bool
	err := s.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM tournaments WHERE title = ? AND date = ?)`,
		title, date,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking tournament: %w", err)
	}
	return exists, nil
}

func (s *SQLite) InsertTournament(ctx context.Context, t *Tournament) (uuid.UUID, error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	stamp(&t.CreatedAt, &t.UpdatedAt)

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO tournaments (
			id, title, date, location, location_city, location_detail, organizer,
			thumbnail_url, crawled_url, registration_start_date, registration_end_date,
			status, description, fee, view_count, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Date, t.Location, t.LocationCity, t.LocationDetail, t.Organizer,
		t.ThumbnailURL, t.CrawledURL, t.RegistrationStartDate, t.RegistrationEndDate,
		t.Status, t.Description, t.Fee, t.ViewCount, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("inserting tournament: %w", err)
	}
	return t.ID, nil
}

const divisionColumns = 14

func (s *SQLite) InsertDivisions(ctx context.Context, divisions []Division) error {
	if len(divisions) == 0 {
		return nil
	}

	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", divisionColumns), ", ") + ")"
	rows := make([]string, 0, len(divisions))
	args := make([]any, 0, len(divisions)*divisionColumns)
	for i := range divisions {
		d := &divisions[i]
		if d.ID == uuid.Nil {
			d.ID = uuid.New()
		}
		stamp(&d.CreatedAt, &d.UpdatedAt)
		rows = append(rows, placeholder)
		args = append(args,
			d.ID, d.TournamentID, d.Name, d.DateStart, d.DateEnd, d.TimeStart,
			d.Capacity, d.CurrentParticipants, d.Fee,
			d.RegistrationStartDate, d.RegistrationEndDate, d.Status,
			d.CreatedAt, d.UpdatedAt,
		)
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO tournament_divisions (
			id, tournament_id, name, date_start, date_end, time_start,
			capacity, current_participants, fee,
			registration_start_date, registration_end_date, status,
			created_at, updated_at
		) VALUES `+strings.Join(rows, ", "), args...)
	if err != nil {
		return fmt.Errorf("inserting divisions: %w", err)
	}
	return nil
}

func (s *SQLite) DeleteTournament(ctx context.Context, id uuid.UUID) error {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM tournaments WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting tournament: %w", err)
	}
	return nil
}

func (s *SQLite) GetTournament(ctx context.Context, id uuid.UUID) (*Tournament, error) {
	var t Tournament
	err := s.q.QueryRowContext(ctx, `
		SELECT id, title, date, location, location_city, location_detail, organizer,
			thumbnail_url, crawled_url, registration_start_date, registration_end_date,
			status, description, fee, view_count, created_at, updated_at
		FROM tournaments WHERE id = ?`, id,
	).Scan(
		&t.ID, &t.Title, &t.Date, &t.Location, &t.LocationCity, &t.LocationDetail, &t.Organizer,
		&t.ThumbnailURL, &t.CrawledURL, &t.RegistrationStartDate, &t.RegistrationEndDate,
		&t.Status, &t.Description, &t.Fee, &t.ViewCount, &t.CreatedAt, &t.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting tournament: %w", err)
	}
	return &t, nil
}

func (s *SQLite) ListDivisions(ctx context.Context, tournamentID uuid.UUID) ([]Division, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, tournament_id, name, date_start, date_end, time_start,
			capacity, current_participants, fee,
			registration_start_date, registration_end_date, status,
			created_at, updated_at
		FROM tournament_divisions
		WHERE tournament_id = ?
		ORDER BY date_start, name`, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("listing divisions: %w", err)
	}
	defer rows.Close()

	var divisions []Division
	for rows.Next() {
		var d Division
		if err := rows.Scan(
			&d.ID, &d.TournamentID, &d.Name, &d.DateStart, &d.DateEnd, &d.TimeStart,
			&d.Capacity, &d.CurrentParticipants, &d.Fee,
			&d.RegistrationStartDate, &d.RegistrationEndDate, &d.Status,
			&d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning division: %w", err)
		}
		divisions = append(divisions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing divisions: %w", err)
	}
	return divisions, nil
}
