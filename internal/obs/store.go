package obs

// #region imports
import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// #endregion

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS observations (
	obs_id      TEXT PRIMARY KEY,
	mass_kg     REAL NOT NULL,
	radius_m    REAL NOT NULL,
	v_total_ms  REAL NOT NULL,
	v_los_ms    REAL NOT NULL,
	observed_z  REAL NOT NULL,
	sigma       REAL NOT NULL
);
`

// #endregion schema

// #region store-struct
// Store is the SQLite-backed observation catalog.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion constructor

// #region put
// Put inserts or replaces a batch of observations in one transaction.
func (s *Store) Put(observations []Observation) error {
	for _, o := range observations {
		if err := o.Validate(); err != nil {
			return err
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO observations (obs_id, mass_kg, radius_m, v_total_ms, v_los_ms, observed_z, sigma)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(obs_id) DO UPDATE SET
			mass_kg = excluded.mass_kg,
			radius_m = excluded.radius_m,
			v_total_ms = excluded.v_total_ms,
			v_los_ms = excluded.v_los_ms,
			observed_z = excluded.observed_z,
			sigma = excluded.sigma`,
	)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, o := range observations {
		if _, err := stmt.Exec(o.ID, o.Mass, o.Radius, o.VTotal, o.VLOS, o.ObservedZ, o.Sigma); err != nil {
			return fmt.Errorf("insert %s: %w", o.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// #endregion put

// #region get
// Get returns one observation by id.
func (s *Store) Get(id string) (Observation, error) {
	var o Observation
	err := s.db.QueryRow(
		`SELECT obs_id, mass_kg, radius_m, v_total_ms, v_los_ms, observed_z, sigma
		 FROM observations WHERE obs_id = ?`, id,
	).Scan(&o.ID, &o.Mass, &o.Radius, &o.VTotal, &o.VLOS, &o.ObservedZ, &o.Sigma)
	if err == sql.ErrNoRows {
		return Observation{}, fmt.Errorf("obs: %s not found", id)
	}
	if err != nil {
		return Observation{}, fmt.Errorf("query %s: %w", id, err)
	}
	return o, nil
}

// List returns the full catalog ordered by id.
func (s *Store) List() ([]Observation, error) {
	rows, err := s.db.Query(
		`SELECT obs_id, mass_kg, radius_m, v_total_ms, v_los_ms, observed_z, sigma
		 FROM observations ORDER BY obs_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var out []Observation
	for rows.Next() {
		var o Observation
		if err := rows.Scan(&o.ID, &o.Mass, &o.Radius, &o.VTotal, &o.VLOS, &o.ObservedZ, &o.Sigma); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Count returns the catalog size.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM observations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// #endregion get
