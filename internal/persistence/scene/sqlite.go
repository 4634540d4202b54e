package scene

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"voxelnav.ai/internal/voxel"
)

// Store keeps many scenes in one SQLite file, one row per non-empty section.
type Store struct {
	db *sql.DB
}

func OpenStore(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return errors.Wrap(err, p)
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scenes (
			name TEXT PRIMARY KEY,
			start_x INTEGER, start_y INTEGER, start_z INTEGER,
			end_x INTEGER, end_y INTEGER, end_z INTEGER,
			palette_digest TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS palette (
			scene TEXT NOT NULL REFERENCES scenes(name) ON DELETE CASCADE,
			id INTEGER NOT NULL,
			block TEXT NOT NULL,
			PRIMARY KEY (scene, id)
		);`,
		`CREATE TABLE IF NOT EXISTS sections (
			scene TEXT NOT NULL REFERENCES scenes(name) ON DELETE CASCADE,
			sx INTEGER NOT NULL,
			sy INTEGER NOT NULL,
			sz INTEGER NOT NULL,
			blocks BLOB NOT NULL,
			PRIMARY KEY (scene, sx, sy, sz)
		);`,
	}
	for _, st := range stmts {
		if _, err := db.Exec(st); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}

func nullPos(v *voxel.Vec3i) (x, y, z sql.NullInt64) {
	if v == nil {
		return
	}
	return sql.NullInt64{Int64: int64(v.X), Valid: true},
		sql.NullInt64{Int64: int64(v.Y), Valid: true},
		sql.NullInt64{Int64: int64(v.Z), Valid: true}
}

func posOf(x, y, z sql.NullInt64) *voxel.Vec3i {
	if !x.Valid || !y.Valid || !z.Valid {
		return nil
	}
	return &voxel.Vec3i{X: int(x.Int64), Y: int(y.Int64), Z: int(z.Int64)}
}

// Save replaces any scene stored under the same name.
func (s *Store) Save(ctx context.Context, sc *Scene) error {
	if sc.Name == "" {
		return errors.New("scene needs a name")
	}
	cat := sc.Grid.Catalog()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, q := range []string{
		`DELETE FROM sections WHERE scene = ?`,
		`DELETE FROM palette WHERE scene = ?`,
		`DELETE FROM scenes WHERE name = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, sc.Name); err != nil {
			return errors.Wrap(err, "delete scene")
		}
	}
	sx, sy, sz := nullPos(sc.Start)
	ex, ey, ez := nullPos(sc.End)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO scenes(name, start_x, start_y, start_z, end_x, end_y, end_z, palette_digest, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sc.Name, sx, sy, sz, ex, ey, ez, cat.PaletteDigest, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return errors.Wrap(err, "insert scene")
	}

	pal, err := tx.PrepareContext(ctx, `INSERT INTO palette(scene, id, block) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer pal.Close()
	for i, name := range cat.Palette {
		if _, err := pal.ExecContext(ctx, sc.Name, i, name); err != nil {
			return errors.Wrap(err, "insert palette")
		}
	}

	secs, err := tx.PrepareContext(ctx, `INSERT INTO sections(scene, sx, sy, sz, blocks) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer secs.Close()
	for _, k := range sc.Grid.SectionKeys() {
		sec := sc.Grid.Section(k)
		if sec == nil {
			continue
		}
		if _, err := secs.ExecContext(ctx, sc.Name, k.SX, k.SY, k.SZ, encodeSection(sec)); err != nil {
			return errors.Wrapf(err, "insert section %v", k)
		}
	}
	return tx.Commit()
}

// Load rebuilds a stored scene against cat (nil: the default catalog).
func (s *Store) Load(ctx context.Context, name string, cat *voxel.Catalog) (*Scene, error) {
	var sx, sy, sz, ex, ey, ez sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT start_x, start_y, start_z, end_x, end_y, end_z FROM scenes WHERE name = ?`, name,
	).Scan(&sx, &sy, &sz, &ex, &ey, &ez)
	if err == sql.ErrNoRows {
		return nil, errors.Errorf("scene %q not found", name)
	}
	if err != nil {
		return nil, err
	}

	names, err := s.palette(ctx, name)
	if err != nil {
		return nil, err
	}
	g := voxel.NewGrid(cat)
	remap, err := paletteRemap(names, g.Catalog())
	if err != nil {
		return nil, errors.Wrapf(err, "scene %q", name)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT sx, sy, sz, blocks FROM sections WHERE scene = ?`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var k voxel.SectionKey
		var raw []byte
		if err := rows.Scan(&k.SX, &k.SY, &k.SZ, &raw); err != nil {
			return nil, err
		}
		sec, err := decodeSection(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "section %v", k)
		}
		for i, b := range sec.Blocks {
			if int(b.ID) >= len(remap) {
				return nil, errors.Errorf("section %v: palette index %d out of range", k, b.ID)
			}
			sec.Blocks[i].ID = remap[b.ID]
		}
		g.PutSection(k, sec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &Scene{Name: name, Start: posOf(sx, sy, sz), End: posOf(ex, ey, ez), Grid: g}, nil
}

func (s *Store) palette(ctx context.Context, scene string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT block FROM palette WHERE scene = ? ORDER BY id`, scene)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var b string
		if err := rows.Scan(&b); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Names lists stored scenes in name order.
func (s *Store) Names(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM scenes ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) Delete(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, q := range []string{
		`DELETE FROM sections WHERE scene = ?`,
		`DELETE FROM palette WHERE scene = ?`,
		`DELETE FROM scenes WHERE name = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, name); err != nil {
			return errors.Wrap(err, "delete scene")
		}
	}
	return tx.Commit()
}
