package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/chida-tennis/chida-crawler/internal/tournament"
)

// Postgres is a Store backed by a Postgres database through gorm.
type Postgres struct {
	db *gorm.DB
}

// OpenPostgres connects to the database at rawURL. serviceKey, when set, is
// used as the connection password.
func OpenPostgres(ctx context.Context, rawURL, serviceKey string) (*Postgres, error) {
	dsn, err := postgresDSN(rawURL, serviceKey)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	return &Postgres{db: db}, nil
}

// postgresDSN injects serviceKey as the password of a URL or key=value DSN
// that does not already carry one.
func postgresDSN(rawURL, serviceKey string) (string, error) {
	if serviceKey == "" {
		return rawURL, nil
	}

	if strings.HasPrefix(rawURL, "postgres://") || strings.HasPrefix(rawURL, "postgresql://") {
		u, err := url.Parse(rawURL)
		if err != nil {
			return "", fmt.Errorf("parsing store URL: %w", err)
		}
		if _, hasPassword := u.User.Password(); hasPassword {
			return rawURL, nil
		}
		username := "postgres"
		if u.User != nil && u.User.Username() != "" {
			username = u.User.Username()
		}
		u.User = url.UserPassword(username, serviceKey)
		return u.String(), nil
	}

	if strings.Contains(rawURL, "password=") {
		return rawURL, nil
	}
	return strings.TrimSpace(rawURL + " password='" + dsnValueEscaper.Replace(serviceKey) + "'"), nil
}

// dsnValueEscaper quotes a libpq key/value DSN value.
var dsnValueEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func (p *Postgres) Migrate(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return fmt.Errorf("error running migrations: %w", err)
	}
	if err := runMigrations(sqlDB, "postgres"); err != nil {
		return fmt.Errorf("error running migrations: %w", err)
	}
	return nil
}

func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WithinTx runs fn against a Store bound to a gorm transaction.
func (p *Postgres) WithinTx(ctx context.Context, fn func(Store) error) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Postgres{db: tx})
	})
}

func (p *Postgres) TournamentExists(ctx context.Context, title string, date tournament.Date) (bool, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Model(&Tournament{}).
		Where("title = ? AND date = ?", title, date).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("checking tournament: %w", err)
	}
	return count > 0, nil
}

func (p *Postgres) InsertTournament(ctx context.Context, t *Tournament) (uuid.UUID, error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if err := p.db.WithContext(ctx).Create(t).Error; err != nil {
		return uuid.Nil, fmt.Errorf("inserting tournament: %w", err)
	}
	return t.ID, nil
}

func (p *Postgres) InsertDivisions(ctx context.Context, divisions []Division) error {
	if len(divisions) == 0 {
		return nil
	}
	for i := range divisions {
		if divisions[i].ID == uuid.Nil {
			divisions[i].ID = uuid.New()
		}
	}
	if err := p.db.WithContext(ctx).Create(&divisions).Error; err != nil {
		return fmt.Errorf("inserting divisions: %w", err)
	}
	return nil
}

func (p *Postgres) DeleteTournament(ctx context.Context, id uuid.UUID) error {
	if err := p.db.WithContext(ctx).Where("id = ?", id).Delete(&Tournament{}).Error; err != nil {
		return fmt.Errorf("deleting tournament: %w", err)
	}
	return nil
}

func (p *Postgres) GetTournament(ctx context.Context, id uuid.UUID) (*Tournament, error) {
	var t Tournament
	err := p.db.WithContext(ctx).Where("id = ?", id).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting tournament: %w", err)
	}
	return &t, nil
}

func (p *Postgres) ListDivisions(ctx context.Context, tournamentID uuid.UUID) ([]Division, error) {
	var divisions []Division
	err := p.db.WithContext(ctx).
		Where("tournament_id = ?", tournamentID).
		Order("date_start, name").
		Find(&divisions).Error
	if err != nil {
		return nil, fmt.Errorf("listing divisions: %w", err)
	}
	return divisions, nil
}
