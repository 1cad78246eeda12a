// Package store persists imported tournaments and their divisions.
//
// Two backends implement Store: Postgres (through gorm), the production
// target, and SQLite (through database/sql), used for local runs and tests.
// Both apply the schema from the embedded migrations directory and both
// implement Transactor, so a parent row and its divisions can be written
// atomically.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/chida-tennis/chida-crawler/internal/tournament"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Tournament is a row of the tournaments table.
type Tournament struct {
	ID                    uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Title                 string          `gorm:"not null"`
	Date                  tournament.Date `gorm:"type:date;not null"`
	Location              string          `gorm:"not null"`
	LocationCity          string          `gorm:"not null"`
	LocationDetail        string
	Organizer             string
	ThumbnailURL          string            `gorm:"column:thumbnail_url"`
	CrawledURL            string            `gorm:"column:crawled_url"`
	RegistrationStartDate tournament.Date   `gorm:"type:date"`
	RegistrationEndDate   tournament.Date   `gorm:"type:date"`
	Status                tournament.Status `gorm:"not null"`
	Description           string
	Fee                   int `gorm:"not null"`
	ViewCount             int `gorm:"not null"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (Tournament) TableName() string { return "tournaments" }

// Division is a row of the tournament_divisions table.
type Division struct {
	ID                    uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TournamentID          uuid.UUID       `gorm:"type:uuid;not null"`
	Name                  string          `gorm:"not null"`
	DateStart             tournament.Date `gorm:"type:date;not null"`
	DateEnd               tournament.Date `gorm:"type:date;not null"`
	TimeStart             string
	Capacity              int               `gorm:"not null"`
	CurrentParticipants   int               `gorm:"not null"`
	Fee                   int               `gorm:"not null"`
	RegistrationStartDate tournament.Date   `gorm:"type:date"`
	RegistrationEndDate   tournament.Date   `gorm:"type:date"`
	Status                tournament.Status `gorm:"not null"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (Division) TableName() string { return "tournament_divisions" }

// Store is the persistence surface used by the importer.
type Store interface {
	// TournamentExists reports whether a tournament with exactly this title
	// and date is already stored.
	TournamentExists(ctx context.Context, title string, date tournament.Date) (bool, error)
	// InsertTournament stores t and returns its id. An id is generated when
	// t.ID is zero.
	InsertTournament(ctx context.Context, t *Tournament) (uuid.UUID, error)
	// InsertDivisions stores all divisions in one statement.
	InsertDivisions(ctx context.Context, divisions []Division) error
	// DeleteTournament removes a tournament; its divisions go with it.
	DeleteTournament(ctx context.Context, id uuid.UUID) error
	GetTournament(ctx context.Context, id uuid.UUID) (*Tournament, error)
	ListDivisions(ctx context.Context, tournamentID uuid.UUID) ([]Division, error)
	// Migrate applies pending schema migrations.
	Migrate(ctx context.Context) error
	Close() error
}

// Transactor is implemented by stores that can run several writes in one
// database transaction. fn receives a Store bound to the transaction; the
// transaction commits when fn returns nil and rolls back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(Store) error) error
}

func stamp(created, updated *time.Time) {
	now := time.Now().UTC()
	if created.IsZero() {
		*created = now
	}
	*updated = now
}
