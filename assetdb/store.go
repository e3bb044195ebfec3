// Package assetdb persists fetched image assets, rendered composites and
// weapon records in a single SQLite file.
package assetdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ErrEmptyKey is returned when a lookup or upsert is given a blank key.
var ErrEmptyKey = errors.New("assetdb: empty key")

// expiryLayout keeps stored expiry text lexically ordered.
const expiryLayout = "2006-01-02T15:04:05Z"

// Store wraps a SQLite database holding the image_data, image_temp and
// weapon_data tables.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the SQLite database at path, ensures the data
// directory exists, and creates the schema when it is missing.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("assetdb: database path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("assetdb: create data dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("assetdb: open: %w", err)
	}
	// WAL lets the HTTP surface read assets while a fetch writes one; the
	// busy timeout makes writers wait instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("assetdb: pragmas: %w", err)
	}
	// Every connection to :memory: opens its own empty database.
	conns := 4
	if path == ":memory:" {
		conns = 1
	}
	db.SetMaxOpenConns(conns)
	db.SetMaxIdleConns(conns)
	s := &Store{db: db, now: time.Now}
	if err := s.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("assetdb: ensure schema: %w", err)
	}
	log.Printf("assetdb: opened %s", path)
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	log.Printf("assetdb: closed")
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS image_data (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    image_name TEXT NOT NULL UNIQUE,
    image_data BLOB NOT NULL,
    display_name TEXT NOT NULL DEFAULT '',
    source_type TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS image_temp (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    trigger_word TEXT NOT NULL UNIQUE,
    image_data BLOB NOT NULL,
    expires_at TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS weapon_data (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    image BLOB,
    sub_name TEXT NOT NULL DEFAULT '',
    sub_image BLOB,
    special_name TEXT NOT NULL DEFAULT '',
    special_image BLOB,
    special_points INTEGER NOT NULL DEFAULT 0,
    level INTEGER NOT NULL DEFAULT 0,
    weapon_class TEXT NOT NULL DEFAULT '',
    weapon_class_image BLOB,
    display_name TEXT NOT NULL DEFAULT '',
    sub_display_name TEXT NOT NULL DEFAULT '',
    special_display_name TEXT NOT NULL DEFAULT ''
);
`)
	return err
}

// GetImage returns the asset stored under name. The bool is false when no
// row matches.
func (s *Store) GetImage(ctx context.Context, name string) (ImageAsset, bool, error) {
	if strings.TrimSpace(name) == "" {
		return ImageAsset{}, false, ErrEmptyKey
	}
	asset := ImageAsset{Name: name}
	err := s.db.QueryRowContext(ctx,
		`SELECT image_data, display_name, source_type FROM image_data WHERE image_name = ?`, name).
		Scan(&asset.Data, &asset.DisplayName, &asset.SourceType)
	if errors.Is(err, sql.ErrNoRows) {
		return ImageAsset{}, false, nil
	}
	if err != nil {
		return ImageAsset{}, false, fmt.Errorf("get image %q: %w", name, err)
	}
	return asset, true, nil
}

// UpsertImage inserts the asset or replaces every non-key column of the
// existing row with the same name.
func (s *Store) UpsertImage(ctx context.Context, a ImageAsset) error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyKey
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO image_data (image_name, image_data, display_name, source_type)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(image_name) DO UPDATE SET
		    image_data = excluded.image_data,
		    display_name = excluded.display_name,
		    source_type = excluded.source_type`,
		a.Name, a.Data, a.DisplayName, a.SourceType)
	if err != nil {
		return fmt.Errorf("upsert image %q: %w", a.Name, err)
	}
	return nil
}

// ListImages returns every stored asset without its payload, ordered by name.
func (s *Store) ListImages(ctx context.Context) ([]ImageSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT image_name, display_name, source_type, length(image_data) FROM image_data ORDER BY image_name`)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	defer rows.Close()

	var out []ImageSummary
	for rows.Next() {
		var sum ImageSummary
		if err := rows.Scan(&sum.Name, &sum.DisplayName, &sum.SourceType, &sum.Size); err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// GetRender returns the cached composite for trigger. Entries past their
// expiry read as absent.
func (s *Store) GetRender(ctx context.Context, trigger string) (RenderCacheEntry, bool, error) {
	if strings.TrimSpace(trigger) == "" {
		return RenderCacheEntry{}, false, ErrEmptyKey
	}
	entry := RenderCacheEntry{Trigger: trigger}
	var expires string
	err := s.db.QueryRowContext(ctx,
		`SELECT image_data, expires_at FROM image_temp WHERE trigger_word = ?`, trigger).
		Scan(&entry.Data, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return RenderCacheEntry{}, false, nil
	}
	if err != nil {
		return RenderCacheEntry{}, false, fmt.Errorf("get render %q: %w", trigger, err)
	}
	if entry.ExpiresAt, err = parseExpiry(expires); err != nil {
		return RenderCacheEntry{}, false, fmt.Errorf("get render %q: %w", trigger, err)
	}
	if entry.Expired(s.now()) {
		return RenderCacheEntry{}, false, nil
	}
	return entry, true, nil
}

// UpsertRender stores a rendered composite under its trigger phrase.
func (s *Store) UpsertRender(ctx context.Context, e RenderCacheEntry) error {
	if strings.TrimSpace(e.Trigger) == "" {
		return ErrEmptyKey
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO image_temp (trigger_word, image_data, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT(trigger_word) DO UPDATE SET
		    image_data = excluded.image_data,
		    expires_at = excluded.expires_at`,
		e.Trigger, e.Data, formatExpiry(e.ExpiresAt))
	if err != nil {
		return fmt.Errorf("upsert render %q: %w", e.Trigger, err)
	}
	return nil
}

// ClearRenders deletes every cached composite. Hosts call it once at
// startup, before serving render requests.
func (s *Store) ClearRenders(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM image_temp`)
	if err != nil {
		return 0, fmt.Errorf("clear renders: %w", err)
	}
	n, _ := res.RowsAffected()
	log.Printf("assetdb: cleared %d cached renders", n)
	return n, nil
}

// PurgeExpiredRenders deletes cached composites whose expiry is at or
// before now.
func (s *Store) PurgeExpiredRenders(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM image_temp WHERE expires_at != '' AND expires_at <= ?`, formatExpiry(now))
	if err != nil {
		return 0, fmt.Errorf("purge renders: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// StartExpiryScheduler runs PurgeExpiredRenders every interval. The returned
// stop function blocks until the goroutine has exited and may be called
// more than once.
func (s *Store) StartExpiryScheduler(interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	exited := make(chan struct{})

	go func() {
		defer close(exited)
		for {
			select {
			case <-ticker.C:
				n, err := s.PurgeExpiredRenders(context.Background(), s.now())
				if err != nil {
					log.Printf("assetdb: purge error: %v", err)
				} else if n > 0 {
					log.Printf("assetdb: purged %d expired renders", n)
				}
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
		<-exited
	}
}

// GetWeapon returns the weapon record stored under name.
func (s *Store) GetWeapon(ctx context.Context, name string) (WeaponRecord, bool, error) {
	if strings.TrimSpace(name) == "" {
		return WeaponRecord{}, false, ErrEmptyKey
	}
	w := WeaponRecord{Name: name}
	err := s.db.QueryRowContext(ctx, `
		SELECT image, sub_name, sub_image, special_name, special_image, special_points,
		       level, weapon_class, weapon_class_image, display_name, sub_display_name, special_display_name
		FROM weapon_data WHERE name = ?`, name).
		Scan(&w.Image, &w.SubName, &w.SubImage, &w.SpecialName, &w.SpecialImage, &w.SpecialPoints,
			&w.Level, &w.Class, &w.ClassImage, &w.DisplayName, &w.SubDisplayName, &w.SpecialDisplayName)
	if errors.Is(err, sql.ErrNoRows) {
		return WeaponRecord{}, false, nil
	}
	if err != nil {
		return WeaponRecord{}, false, fmt.Errorf("get weapon %q: %w", name, err)
	}
	return w, true, nil
}

// UpsertWeapon inserts the record or replaces the whole existing row.
func (s *Store) UpsertWeapon(ctx context.Context, w WeaponRecord) error {
	if strings.TrimSpace(w.Name) == "" {
		return ErrEmptyKey
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO weapon_data (name, image, sub_name, sub_image, special_name, special_image,
		    special_points, level, weapon_class, weapon_class_image, display_name, sub_display_name,
		    special_display_name)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
		    image = excluded.image,
		    sub_name = excluded.sub_name,
		    sub_image = excluded.sub_image,
		    special_name = excluded.special_name,
		    special_image = excluded.special_image,
		    special_points = excluded.special_points,
		    level = excluded.level,
		    weapon_class = excluded.weapon_class,
		    weapon_class_image = excluded.weapon_class_image,
		    display_name = excluded.display_name,
		    sub_display_name = excluded.sub_display_name,
		    special_display_name = excluded.special_display_name`,
		w.Name, w.Image, w.SubName, w.SubImage, w.SpecialName, w.SpecialImage,
		w.SpecialPoints, w.Level, w.Class, w.ClassImage, w.DisplayName, w.SubDisplayName,
		w.SpecialDisplayName)
	if err != nil {
		return fmt.Errorf("upsert weapon %q: %w", w.Name, err)
	}
	return nil
}

func formatExpiry(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(expiryLayout)
}

func parseExpiry(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(expiryLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse expiry %q: %w", s, err)
	}
	return t, nil
}
