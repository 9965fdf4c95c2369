// Package sqlite stores board layouts in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/zeusync/tileboard/internal/core/board"
	"github.com/zeusync/tileboard/internal/core/storage/interfaces"
)

var _ interfaces.LayoutStore = (*LayoutStore)(nil)

type LayoutStore struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates the database and its parent directory when missing.
func Open(path string) (*LayoutStore, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrap(err, "create layout store directory")
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open layout store")
	}
	// Writers serialise on one connection; this also keeps :memory: databases alive.
	db.SetMaxOpenConns(1)

	s := &LayoutStore{db: db, now: time.Now}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *LayoutStore) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS layouts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		tiles INTEGER NOT NULL,
		active INTEGER NOT NULL,
		body BLOB NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_layouts_updated ON layouts(updated_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return errors.Wrap(err, "init layout schema")
	}
	return nil
}

func (s *LayoutStore) Save(ctx context.Context, name string, layout board.Layout) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", errors.New("layout name is empty")
	}
	body, err := json.Marshal(layout)
	if err != nil {
		return "", errors.Wrap(err, "encode layout")
	}
	tiles := 0
	for _, g := range layout.Groups {
		tiles += len(g.Transforms)
	}
	now := s.now().UnixMilli()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO layouts (id, name, tiles, active, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			tiles = excluded.tiles,
			active = excluded.active,
			body = excluded.body,
			updated_at = excluded.updated_at`,
		uuid.NewString(), name, tiles, len(layout.Active), body, now, now)
	if err != nil {
		return "", errors.Wrapf(err, "save layout %q", name)
	}

	var id string
	if err := s.db.QueryRowContext(ctx, `SELECT id FROM layouts WHERE name = ?`, name).Scan(&id); err != nil {
		return "", errors.Wrapf(err, "read layout id %q", name)
	}
	return id, nil
}

func (s *LayoutStore) Load(ctx context.Context, name string) (board.Layout, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT body FROM layouts WHERE name = ?`, name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return board.Layout{}, errors.Wrapf(interfaces.ErrLayoutNotFound, "%q", name)
	}
	if err != nil {
		return board.Layout{}, errors.Wrapf(err, "load layout %q", name)
	}
	var layout board.Layout
	if err := json.Unmarshal(body, &layout); err != nil {
		return board.Layout{}, errors.Wrapf(err, "decode layout %q", name)
	}
	return layout, nil
}

// List returns every layout, most recently updated first.
func (s *LayoutStore) List(ctx context.Context) ([]interfaces.LayoutInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, tiles, active, created_at, updated_at
		FROM layouts ORDER BY updated_at DESC, name ASC`)
	if err != nil {
		return nil, errors.Wrap(err, "list layouts")
	}
	defer rows.Close()

	var out []interfaces.LayoutInfo
	for rows.Next() {
		var (
			info             interfaces.LayoutInfo
			created, updated int64
		)
		if err := rows.Scan(&info.ID, &info.Name, &info.Tiles, &info.Active, &created, &updated); err != nil {
			return nil, errors.Wrap(err, "scan layout")
		}
		info.CreatedAt = time.UnixMilli(created)
		info.UpdatedAt = time.UnixMilli(updated)
		out = append(out, info)
	}
	return out, errors.Wrap(rows.Err(), "list layouts")
}

func (s *LayoutStore) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM layouts WHERE name = ?`, name)
	if err != nil {
		return errors.Wrapf(err, "delete layout %q", name)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(interfaces.ErrLayoutNotFound, "%q", name)
	}
	return nil
}

func (s *LayoutStore) Close() error {
	return s.db.Close()
}
