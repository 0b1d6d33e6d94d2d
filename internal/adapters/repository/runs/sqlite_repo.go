package runs

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/capybara-io/capydeploy/internal/domain"
	"github.com/capybara-io/capydeploy/internal/usecase"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// HistoryDB is the database file name inside the data directory
const HistoryDB = "history.db"

// timeLayout is fixed width so stored timestamps sort as text
const timeLayout = "2006-01-02T15:04:05.000000000Z"

//go:embed migrations/*.sql
var migrationsFS embed.FS

// executor is shared by the database and its transactions
type executor interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	Rebind(query string) string
}

// SQLiteRepository stores run records in a SQLite database
type SQLiteRepository struct {
	db *sqlx.DB
}

// NewSQLiteRepository opens (creating if needed) history.db in dir and
// applies pending migrations
func NewSQLiteRepository(dir string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return OpenSQLiteRepository(filepath.Join(dir, HistoryDB))
}

// OpenSQLiteRepository opens the database at dsn
func OpenSQLiteRepository(dsn string) (*SQLiteRepository, error) {
	db, err := sqlx.Open("sqlite3", dsn+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection keeps :memory: databases alive across queries
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteRepository{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

type runRow struct {
	ID         string         `db:"id"`
	Group      string         `db:"group_name"`
	Network    string         `db:"network"`
	DryRun     bool           `db:"dry_run"`
	Status     string         `db:"status"`
	FailedUnit string         `db:"failed_unit"`
	Error      string         `db:"error"`
	StartedAt  string         `db:"started_at"`
	FinishedAt sql.NullString `db:"finished_at"`
}

type unitRow struct {
	RunID    string `db:"run_id"`
	Position int    `db:"position"`
	UnitID   string `db:"unit_id"`
	Contract string `db:"contract"`
	Args     string `db:"args"`
	Address  string `db:"address"`
	Error    string `db:"error"`
}

// SaveRun inserts or replaces run and its units in one transaction
func (r *SQLiteRepository) SaveRun(ctx context.Context, run *domain.RunRecord) error {
	if err := validRunID(run.ID); err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := saveRun(ctx, tx, run); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed after error %v: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", run.ID, err)
	}
	return nil
}

func saveRun(ctx context.Context, exec executor, run *domain.RunRecord) error {
	row := runRow{
		ID:         run.ID,
		Group:      run.Group,
		Network:    run.Network,
		DryRun:     run.DryRun,
		Status:     string(run.Status),
		FailedUnit: run.FailedUnit,
		Error:      run.Error,
		StartedAt:  run.StartedAt.UTC().Format(timeLayout),
	}
	if run.FinishedAt != nil {
		row.FinishedAt = sql.NullString{String: run.FinishedAt.UTC().Format(timeLayout), Valid: true}
	}

	query := `
		INSERT INTO runs (id, group_name, network, dry_run, status, failed_unit, error, started_at, finished_at)
		VALUES (:id, :group_name, :network, :dry_run, :status, :failed_unit, :error, :started_at, :finished_at)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			failed_unit = excluded.failed_unit,
			error = excluded.error,
			finished_at = excluded.finished_at`
	if _, err := exec.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}

	if _, err := exec.ExecContext(ctx, exec.Rebind(`DELETE FROM run_units WHERE run_id = ?`), run.ID); err != nil {
		return fmt.Errorf("failed to clear units of run %s: %w", run.ID, err)
	}

	for i, unit := range run.Units {
		args, err := json.Marshal(unit.Args)
		if err != nil {
			return fmt.Errorf("failed to encode args of unit %s: %w", unit.ID, err)
		}
		urow := unitRow{
			RunID:    run.ID,
			Position: i,
			UnitID:   unit.ID,
			Contract: unit.Contract,
			Args:     string(args),
			Address:  unit.Address,
			Error:    unit.Error,
		}
		query := `
			INSERT INTO run_units (run_id, position, unit_id, contract, args, address, error)
			VALUES (:run_id, :position, :unit_id, :contract, :args, :address, :error)`
		if _, err := exec.NamedExecContext(ctx, query, urow); err != nil {
			return fmt.Errorf("failed to save unit %s of run %s: %w", unit.ID, run.ID, err)
		}
	}

	return nil
}

// GetRun returns the run with id, or the only run whose id starts with id
func (r *SQLiteRepository) GetRun(ctx context.Context, id string) (*domain.RunRecord, error) {
	if err := validRunID(id); err != nil {
		return nil, err
	}

	var rows []runRow
	query := r.db.Rebind(`SELECT * FROM runs WHERE id = ? OR id LIKE ? ESCAPE '\' ORDER BY id = ? DESC LIMIT 2`)
	if err := r.db.SelectContext(ctx, &rows, query, id, likePrefix(id), id); err != nil {
		return nil, fmt.Errorf("failed to query run %s: %w", id, err)
	}

	switch {
	case len(rows) == 0:
		return nil, fmt.Errorf("run %s: %w", id, domain.ErrNotFound)
	case rows[0].ID != id && len(rows) > 1:
		return nil, fmt.Errorf("run id prefix '%s' is ambiguous", id)
	}

	runs, err := r.withUnits(ctx, rows[:1])
	if err != nil {
		return nil, err
	}
	return runs[0], nil
}

// likePrefix turns id into a LIKE pattern matching ids that start with it.
// validRunID has already rejected backslashes.
func likePrefix(id string) string {
	return strings.NewReplacer("%", `\%`, "_", `\_`).Replace(id) + "%"
}

// ListRuns returns every stored run on network (all networks when empty), newest first
func (r *SQLiteRepository) ListRuns(ctx context.Context, network string) ([]*domain.RunRecord, error) {
	var rows []runRow
	var err error
	if network == "" {
		err = r.db.SelectContext(ctx, &rows, `SELECT * FROM runs ORDER BY started_at DESC`)
	} else {
		err = r.db.SelectContext(ctx, &rows, r.db.Rebind(`SELECT * FROM runs WHERE network = ? ORDER BY started_at DESC`), network)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	return r.withUnits(ctx, rows)
}

// withUnits converts rows and attaches their units with a single query
func (r *SQLiteRepository) withUnits(ctx context.Context, rows []runRow) ([]*domain.RunRecord, error) {
	ids := make([]string, len(rows))
	runs := make([]*domain.RunRecord, len(rows))
	byID := make(map[string]*domain.RunRecord, len(rows))
	for i, row := range rows {
		run, err := rowToRun(row)
		if err != nil {
			return nil, err
		}
		ids[i] = row.ID
		runs[i] = run
		byID[row.ID] = run
	}

	query, args, err := sqlx.In(`SELECT * FROM run_units WHERE run_id IN (?) ORDER BY run_id, position`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build units query: %w", err)
	}

	var units []unitRow
	if err := r.db.SelectContext(ctx, &units, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to load units: %w", err)
	}

	for _, u := range units {
		unit := domain.UnitRecord{
			ID:       u.UnitID,
			Contract: u.Contract,
			Address:  u.Address,
			Error:    u.Error,
		}
		if err := json.Unmarshal([]byte(u.Args), &unit.Args); err != nil {
			return nil, fmt.Errorf("failed to decode args of unit %s: %w", u.UnitID, err)
		}
		run := byID[u.RunID]
		run.Units = append(run.Units, unit)
	}

	return runs, nil
}

func rowToRun(row runRow) (*domain.RunRecord, error) {
	started, err := time.Parse(timeLayout, row.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("run %s has invalid started_at: %w", row.ID, err)
	}

	run := &domain.RunRecord{
		ID:         row.ID,
		Group:      row.Group,
		Network:    row.Network,
		DryRun:     row.DryRun,
		Status:     domain.RunStatus(row.Status),
		FailedUnit: row.FailedUnit,
		Error:      row.Error,
		StartedAt:  started,
	}

	if row.FinishedAt.Valid {
		finished, err := time.Parse(timeLayout, row.FinishedAt.String)
		if err != nil {
			return nil, fmt.Errorf("run %s has invalid finished_at: %w", row.ID, err)
		}
		run.FinishedAt = &finished
	}

	return run, nil
}

var _ usecase.RunStore = (*SQLiteRepository)(nil)
