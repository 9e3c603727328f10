// Package migrate applies the SQL files of a migrations directory to
// Postgres, tracking applied versions in querystudy_schema_migrations.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

const (
	// TrackingTable records every applied version.
	TrackingTable = "querystudy_schema_migrations"

	defaultDirectory = "."
	defaultLockID    = int64(0x717374)

	ensureTrackingSQL = "CREATE TABLE IF NOT EXISTS " + TrackingTable + " (version text PRIMARY KEY, applied_at timestamptz NOT NULL DEFAULT now())"
	lockSQL           = "SELECT pg_advisory_xact_lock($1)"
	appliedSQL        = "SELECT version FROM " + TrackingTable + " ORDER BY applied_at, version"
	latestSQL         = "SELECT version FROM " + TrackingTable + " ORDER BY applied_at DESC, version DESC LIMIT 1"
	recordSQL         = "INSERT INTO " + TrackingTable + " (version) VALUES ($1) ON CONFLICT DO NOTHING"
	forgetSQL         = "DELETE FROM " + TrackingTable + " WHERE version = $1"
)

// Direction tells forward scripts from rollback scripts.
type Direction int

const (
	Up Direction = iota
	Down
)

func (d Direction) String() string {
	if d == Down {
		return "down"
	}
	return "up"
}

// TxStarter abstracts pgx connections and pools capable of starting a transaction.
type TxStarter interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// Migration is a single SQL file.
type Migration struct {
	Version   string
	Name      string
	Path      string
	Direction Direction
}

// Status lists applied versions and pending forward migrations.
type Status struct {
	Applied []string
	Pending []Migration
}

// SchemaDriftError reports recorded versions whose files are gone.
type SchemaDriftError struct {
	Missing []string
}

func (e SchemaDriftError) Error() string {
	return "migrate: schema drift, no file for applied versions " + strings.Join(e.Missing, ", ")
}

// ErrNothingToRollback is returned by Down when no migration is recorded.
var ErrNothingToRollback = errors.New("migrate: no applied migrations to roll back")

type options struct {
	dir       string
	batchSize int
	lockID    int64
	log       zerolog.Logger
}

// Option configures a Migrator.
type Option func(*options)

// WithDirectory sets the directory within the filesystem that holds the files.
func WithDirectory(dir string) Option {
	return func(o *options) {
		if dir != "" {
			o.dir = dir
		}
	}
}

// WithBatchSize limits how many pending migrations one Up call applies.
func WithBatchSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithLockID overrides the advisory lock key that serialises runs.
func WithLockID(id int64) Option {
	return func(o *options) {
		if id != 0 {
			o.lockID = id
		}
	}
}

// WithLogger logs every applied or reverted file.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) { o.log = log }
}

// Migrator applies and reverts migrations from an fs.FS.
type Migrator struct {
	conn TxStarter
	fsys fs.FS
	opts options
}

// New builds a Migrator reading files from fsys.
func New(conn TxStarter, fsys fs.FS, opts ...Option) *Migrator {
	o := options{dir: defaultDirectory, lockID: defaultLockID, log: zerolog.Nop()}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return &Migrator{conn: conn, fsys: fsys, opts: o}
}

// ParseVersion takes the part of a file name before the first "__", "_" or
// "-" separator as its version.
func ParseVersion(name string) (string, error) {
	base := strings.TrimSuffix(name, path.Ext(name))
	if base == "" {
		return "", fmt.Errorf("migrate: no version in %q", name)
	}
	for _, sep := range []string{"__", "_", "-"} {
		if idx := strings.Index(base, sep); idx > 0 {
			return base[:idx], nil
		}
	}
	return base, nil
}

func directionOf(name string) Direction {
	lower := strings.ToLower(name)
	for _, suffix := range []string{"_down.sql", "-down.sql", ".down.sql"} {
		if strings.HasSuffix(lower, suffix) {
			return Down
		}
	}
	return Up
}

// Discover lists the .sql files under dir ordered by version. Two forward
// files sharing a version are an error. A missing directory yields nothing.
func Discover(ctx context.Context, fsys fs.FS, dir string) ([]Migration, error) {
	if fsys == nil {
		return nil, errors.New("migrate: nil filesystem")
	}
	if dir == "" {
		dir = defaultDirectory
	}
	if _, err := fs.Stat(fsys, dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("migrate: inspect %s: %w", dir, err)
	}

	var found []Migration
	err := fs.WalkDir(fsys, dir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !strings.EqualFold(path.Ext(d.Name()), ".sql") {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		version, err := ParseVersion(d.Name())
		if err != nil {
			return err
		}
		found = append(found, Migration{Version: version, Name: d.Name(), Path: p, Direction: directionOf(d.Name())})
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(found, func(a, b Migration) int {
		if c := strings.Compare(a.Version, b.Version); c != 0 {
			return c
		}
		return strings.Compare(a.Path, b.Path)
	})

	seen := make(map[string]string, len(found))
	for _, m := range found {
		if m.Direction != Up {
			continue
		}
		if prev, ok := seen[m.Version]; ok {
			return nil, fmt.Errorf("migrate: duplicate version %q in %s and %s", m.Version, prev, m.Path)
		}
		seen[m.Version] = m.Path
	}
	return found, nil
}

type catalog struct {
	up   []Migration
	down map[string]Migration
}

func (m *Migrator) catalog(ctx context.Context) (catalog, error) {
	if m.conn == nil {
		return catalog{}, errors.New("migrate: nil connection")
	}
	files, err := Discover(ctx, m.fsys, m.opts.dir)
	if err != nil {
		return catalog{}, err
	}
	c := catalog{down: make(map[string]Migration)}
	for _, f := range files {
		if f.Direction == Down {
			c.down[f.Version] = f
		} else {
			c.up = append(c.up, f)
		}
	}
	return c, nil
}

func (c catalog) hasUp(version string) bool {
	return slices.ContainsFunc(c.up, func(m Migration) bool { return m.Version == version })
}

// locked runs fn in a transaction holding the migration advisory lock. The
// transaction commits only when fn succeeds and commit is true.
func (m *Migrator) locked(ctx context.Context, commit bool, fn func(pgx.Tx) error) error {
	tx, err := m.conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("migrate: begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err := tx.Exec(ctx, lockSQL, m.opts.lockID); err != nil {
		return fmt.Errorf("migrate: acquire lock: %w", err)
	}
	if err := fn(tx); err != nil {
		return err
	}
	if !commit {
		return nil
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("migrate: commit: %w", err)
	}
	committed = true
	return nil
}

func appliedVersions(ctx context.Context, tx pgx.Tx) ([]string, error) {
	rows, err := tx.Query(ctx, appliedSQL)
	if err != nil {
		return nil, err
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("migrate: read applied versions: %w", err)
	}
	return versions, nil
}

// Status reports applied and pending migrations without changing anything.
func (m *Migrator) Status(ctx context.Context) (Status, error) {
	c, err := m.catalog(ctx)
	if err != nil {
		return Status{}, err
	}
	var st Status
	err = m.locked(ctx, false, func(tx pgx.Tx) error {
		applied, err := appliedVersions(ctx, tx)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "42P01" {
			st.Pending = c.up
			return nil
		}
		if err != nil {
			return fmt.Errorf("migrate: list applied versions: %w", err)
		}
		var missing []string
		for _, v := range applied {
			if !c.hasUp(v) {
				missing = append(missing, v)
			}
		}
		if len(missing) > 0 {
			return SchemaDriftError{Missing: missing}
		}
		st.Applied = applied
		for _, mig := range c.up {
			if !slices.Contains(applied, mig.Version) {
				st.Pending = append(st.Pending, mig)
			}
		}
		return nil
	})
	return st, err
}

// Up applies pending forward migrations in version order inside a single
// transaction and returns the ones it applied.
func (m *Migrator) Up(ctx context.Context) ([]Migration, error) {
	c, err := m.catalog(ctx)
	if err != nil {
		return nil, err
	}
	var done []Migration
	err = m.locked(ctx, true, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, ensureTrackingSQL); err != nil {
			return fmt.Errorf("migrate: ensure tracking table: %w", err)
		}
		applied, err := appliedVersions(ctx, tx)
		if err != nil {
			return fmt.Errorf("migrate: list applied versions: %w", err)
		}
		for _, mig := range c.up {
			if slices.Contains(applied, mig.Version) {
				continue
			}
			if m.opts.batchSize > 0 && len(done) == m.opts.batchSize {
				break
			}
			if err := m.run(ctx, tx, mig); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, recordSQL, mig.Version); err != nil {
				return fmt.Errorf("migrate: record %s: %w", mig.Version, err)
			}
			done = append(done, mig)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return done, nil
}

// Down reverts the most recently applied migration with its rollback file.
func (m *Migrator) Down(ctx context.Context) (Migration, error) {
	c, err := m.catalog(ctx)
	if err != nil {
		return Migration{}, err
	}
	var reverted Migration
	err = m.locked(ctx, true, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, ensureTrackingSQL); err != nil {
			return fmt.Errorf("migrate: ensure tracking table: %w", err)
		}
		var latest string
		if err := tx.QueryRow(ctx, latestSQL).Scan(&latest); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNothingToRollback
			}
			return fmt.Errorf("migrate: latest version: %w", err)
		}
		if !c.hasUp(latest) {
			return SchemaDriftError{Missing: []string{latest}}
		}
		down, ok := c.down[latest]
		if !ok {
			return fmt.Errorf("migrate: no rollback file for version %s", latest)
		}
		if err := m.run(ctx, tx, down); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, forgetSQL, latest); err != nil {
			return fmt.Errorf("migrate: forget %s: %w", latest, err)
		}
		reverted = down
		return nil
	})
	return reverted, err
}

func (m *Migrator) run(ctx context.Context, tx pgx.Tx, mig Migration) error {
	raw, err := fs.ReadFile(m.fsys, mig.Path)
	if err != nil {
		return fmt.Errorf("migrate: %s: %w", mig.Path, err)
	}
	sql := string(raw)
	if _, err := tx.Exec(ctx, sql); err != nil {
		return locate(mig.Path, sql, err)
	}
	m.opts.log.Info().
		Str("version", mig.Version).
		Str("file", mig.Name).
		Stringer("direction", mig.Direction).
		Msg("migration executed")
	return nil
}

// locate prefixes err with the file position Postgres reported.
func locate(file, sql string, err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return fmt.Errorf("%s: %w", file, err)
	}
	if pgErr.Line > 0 {
		return fmt.Errorf("%s:%d: %w", file, pgErr.Line, err)
	}
	if pgErr.Position > 0 {
		line, col := lineColumn(sql, int(pgErr.Position))
		return fmt.Errorf("%s:%d:%d: %w", file, line, col, err)
	}
	return fmt.Errorf("%s: %w", file, err)
}

// lineColumn converts a 1-based character position into a line and column.
func lineColumn(sql string, position int) (int, int) {
	line, col := 1, 1
	for i, r := range []rune(sql) {
		if i+1 >= position {
			break
		}
		if r == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
