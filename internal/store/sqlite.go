package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"mermanager/internal/domain"
)

// SQLite is the durable local substitute for the external document
// database: the listings collection as a table plus the identity bucket,
// with the in-process hub standing in for cross-session change feeds.
type SQLite struct {
	db  *sqlx.DB
	hub *hub
}

func OpenSQLite(dsn string) (*SQLite, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}
	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	return &SQLite{db: db, hub: newHub()}, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS listings(
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL,
  title TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  price INTEGER NOT NULL DEFAULT 0 CHECK (price >= 0),
  cost INTEGER NOT NULL DEFAULT 0 CHECK (cost >= 0),
  status TEXT NOT NULL CHECK (status IN ('ACTIVE','SOLD','DRAFT')),
  category TEXT NOT NULL DEFAULT '',
  image_url TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_listings_owner      ON listings(owner_id);
CREATE INDEX IF NOT EXISTS idx_listings_updated_at ON listings(updated_at);

CREATE TABLE IF NOT EXISTS identity(
  key TEXT PRIMARY KEY,
  doc TEXT NOT NULL
);
`
	_, err := db.Exec(schema)
	return err
}

func (s *SQLite) listByOwner(ownerID string) ([]domain.Listing, error) {
	var out []domain.Listing
	err := s.db.Select(&out, `
	  SELECT id, owner_id, title, description, price, cost, status, category, image_url, created_at, updated_at
	  FROM listings
	  WHERE owner_id = ?
	  ORDER BY updated_at DESC, id DESC
	`, ownerID)
	return out, err
}

func (s *SQLite) Subscribe(ownerID string, fn func([]domain.Listing)) (func(), error) {
	refresh := func() {
		ls, err := s.listByOwner(ownerID)
		if err != nil {
			log.Printf("[store] snapshot refresh failed for %s: %v", ownerID, err)
			return
		}
		fn(ls)
	}
	remove := s.hub.add(ownerID, refresh)
	refresh()
	return remove, nil
}

func (s *SQLite) Get(ctx context.Context, id string) (domain.Listing, error) {
	var l domain.Listing
	err := s.db.GetContext(ctx, &l, `
	  SELECT id, owner_id, title, description, price, cost, status, category, image_url, created_at, updated_at
	  FROM listings WHERE id = ?
	`, id)
	if err == sql.ErrNoRows {
		return l, ErrNotFound
	}
	return l, err
}

func (s *SQLite) Create(ctx context.Context, l domain.Listing) (string, error) {
	l.ID = uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
	  INSERT INTO listings(id, owner_id, title, description, price, cost, status, category, image_url, created_at, updated_at)
	  VALUES(?,?,?,?,?,?,?,?,?,?,?)
	`, l.ID, l.OwnerID, l.Title, l.Description, l.Price, l.Cost, l.Status, l.Category, l.ImageURL, l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return "", err
	}
	s.hub.notify(l.OwnerID)
	return l.ID, nil
}

func (s *SQLite) Update(ctx context.Context, id string, fields map[string]any) error {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	set := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields)+1)
	for col, v := range fields {
		if !updatableFields[col] {
			return fmt.Errorf("update listing %s: field %q is not updatable", id, col)
		}
		set = append(set, col+" = ?")
		args = append(args, v)
	}
	if len(set) == 0 {
		return nil
	}
	args = append(args, id)

	_, err = s.db.ExecContext(ctx, `UPDATE listings SET `+strings.Join(set, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return err
	}
	s.hub.notify(cur.OwnerID)
	return nil
}

func (s *SQLite) Delete(ctx context.Context, id string) error {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM listings WHERE id = ?`, id); err != nil {
		return err
	}
	s.hub.notify(cur.OwnerID)
	return nil
}

func (s *SQLite) SaveIdentity(ctx context.Context, key string, doc []byte) error {
	_, err := s.db.ExecContext(ctx, `
	  INSERT INTO identity(key, doc) VALUES(?,?)
	  ON CONFLICT(key) DO UPDATE SET doc = excluded.doc
	`, key, string(doc))
	return err
}

func (s *SQLite) LoadIdentity(ctx context.Context, key string) ([]byte, error) {
	var doc string
	err := s.db.GetContext(ctx, &doc, `SELECT doc FROM identity WHERE key = ?`, key)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(doc), nil
}

func (s *SQLite) DeleteIdentity(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM identity WHERE key = ?`, key)
	return err
}

func (s *SQLite) Close(ctx context.Context) error { return s.db.Close() }
