package sink

import (
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"mspmon/telemetry"
)

const sqliteTable = "telemetry"

// SQLite stores each record as a row of the telemetry table, one
// column per field. Rows are appended to an existing table with the
// same columns.
type SQLite struct {
	db     *sqlx.DB
	insert string
	now    func() time.Time
}

// OpenSQLite opens or creates the database at path with a table for
// records with the given field names.
func OpenSQLite(path string, names []string) (*SQLite, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Single writer
	db.SetMaxOpenConns(1)

	cols := make([]string, len(names))
	params := make([]string, len(names))
	for ii, n := range names {
		cols[ii] = n + " double precision"
		params[ii] = ":" + n
	}
	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (id integer NOT NULL PRIMARY KEY AUTOINCREMENT, stamp timestamp, %s)`,
		sqliteTable, strings.Join(cols, ", "))
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}
	insert := fmt.Sprintf(`INSERT INTO %s (stamp, %s) VALUES (:stamp, %s)`,
		sqliteTable, strings.Join(names, ", "), strings.Join(params, ", "))
	return &SQLite{db: db, insert: insert, now: time.Now}, nil
}

func (s *SQLite) Emit(rec telemetry.Record) error {
	args := make(map[string]interface{}, len(rec.Names)+1)
	for k, v := range rec.Map() {
		args[k] = v
	}
	args["stamp"] = s.now().UTC()
	_, err := s.db.NamedExec(s.insert, args)
	return err
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
