package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chida-tennis/chida-crawler/internal/tournament"
)

// LatestFile is the name of the file holding the most recent crawl.
const LatestFile = "latest.json"

// ErrNoSnapshot is returned by LoadLatest when nothing has been saved yet.
var ErrNoSnapshot = errors.New("no snapshot saved")

// Snapshot is one crawl's worth of tournaments.
type Snapshot struct {
	CrawledAt   time.Time                       `json:"crawled_at"`
	Source      string                          `json:"source"`
	Tournaments []*tournament.CrawledTournament `json:"tournaments"`
}

// New wraps tournaments crawled from source at crawledAt.
func New(source string, crawledAt time.Time, tournaments []*tournament.CrawledTournament) *Snapshot {
	if tournaments == nil {
		tournaments = []*tournament.CrawledTournament{}
	}
	return &Snapshot{
		CrawledAt:   crawledAt.UTC(),
		Source:      source,
		Tournaments: tournaments,
	}
}

// Storage handles persistence of crawl snapshots
type Storage struct {
	dataDir string
}

// NewStorage creates a Storage rooted at dataDir, creating it if needed.
func NewStorage(dataDir string) (*Storage, error) {
	dir, err := expandHome(dataDir)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	return &Storage{dataDir: dir}, nil
}

// Dir returns the resolved data directory.
func (s *Storage) Dir() string {
	return s.dataDir
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path[1:], "/")), nil
}

// Save writes snap to a timestamped file and to latest.json, returning the
// timestamped path.
func (s *Storage) Save(snap *Snapshot) (string, error) {
	data, err := encode(snap)
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("crawl_%s.json", snap.CrawledAt.UTC().Format("20060102T150405Z"))
	path := filepath.Join(s.dataDir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing snapshot: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dataDir, LatestFile), data, 0644); err != nil {
		return "", fmt.Errorf("writing latest snapshot: %w", err)
	}
	return path, nil
}

// LoadLatest reads latest.json. It returns ErrNoSnapshot when the file does
// not exist.
func (s *Storage) LoadLatest() (*Snapshot, error) {
	snap, err := ReadFile(filepath.Join(s.dataDir, LatestFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSnapshot
	}
	return snap, err
}

// ReadFile reads a snapshot from path; "-" reads standard input.
func ReadFile(path string) (*Snapshot, error) {
	if path == "-" {
		return Read(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read decodes a snapshot. A bare JSON array of tournaments is accepted as
// well as the full object. Tournaments without a location_city get one
// derived from their location and venue text.
func Read(r io.Reader) (*Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	data = bytes.TrimSpace(data)

	var snap Snapshot
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &snap.Tournaments); err != nil {
			return nil, fmt.Errorf("parsing snapshot: %w", err)
		}
	} else if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}

	for _, t := range snap.Tournaments {
		if t != nil {
			fillLocation(t)
		}
	}
	return &snap, nil
}

// Write encodes snap as indented JSON.
func Write(w io.Writer, snap *Snapshot) error {
	data, err := encode(snap)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

func encode(snap *Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return append(data, '\n'), nil
}

func fillLocation(t *tournament.CrawledTournament) {
	if t.LocationCity != "" || (t.Location == "" && t.LocationDetail == "") {
		return
	}
	loc := tournament.ParseLocation(t.Location, t.LocationDetail)
	t.LocationCity = loc.Region
	if t.Location == "" {
		t.Location = loc.Region
	}
	if t.LocationDetail == "" {
		t.LocationDetail = loc.Detail
	}
}
