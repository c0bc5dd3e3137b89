package implementation

import (
	"fmt"
	"regexp"
)

// Dialect captures the few statements that differ between Postgres and SQLite
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite3"
)

var positionalParam = regexp.MustCompile(`\$(\d+)`)

// Rebind rewrites $N placeholders into the form the dialect's driver expects.
// SQLite accepts ?N as a numbered parameter, so argument order is preserved.
func (d Dialect) Rebind(query string) string {
	if d == DialectSQLite {
		return positionalParam.ReplaceAllString(query, "?$1")
	}
	return query
}

// containsFold matches a literal, case-insensitive substring of column against $1
func (d Dialect) containsFold(column string) string {
	if d == DialectSQLite {
		return fmt.Sprintf("instr(lower(%s), lower($1)) > 0", column)
	}
	return fmt.Sprintf("strpos(lower(%s), lower($1)) > 0", column)
}

// DeviceTableDDL returns the statements creating the devices table for the dialect
func (d Dialect) DeviceTableDDL() []string {
	if d == DialectSQLite {
		return []string{
			`CREATE TABLE IF NOT EXISTS devices (
				id            INTEGER PRIMARY KEY AUTOINCREMENT,
				name          TEXT NOT NULL,
				brand         TEXT NOT NULL,
				state         TEXT NOT NULL DEFAULT 'AVAILABLE' CHECK (state IN ('AVAILABLE', 'INUSE', 'INACTIVE')),
				creation_time TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			);`,
			`CREATE INDEX IF NOT EXISTS idx_devices_state ON devices (state);`,
		}
	}
	return []string{
		`CREATE TABLE IF NOT EXISTS devices (
			id            BIGSERIAL PRIMARY KEY,
			name          TEXT NOT NULL,
			brand         TEXT NOT NULL,
			state         TEXT NOT NULL DEFAULT 'AVAILABLE' CHECK (state IN ('AVAILABLE', 'INUSE', 'INACTIVE')),
			creation_time TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_devices_state ON devices (state);`,
		`CREATE INDEX IF NOT EXISTS idx_devices_brand_lower ON devices (lower(brand));`,
	}
}
