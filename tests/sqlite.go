package testutil

import (
	"testing"

	"github.com/jmoiron/sqlx"
)

// SQLiteSchema mirrors the goose migrations for the sqlite3 driver.
const SQLiteSchema = `
CREATE TABLE "user" (
	id            TEXT PRIMARY KEY,
	name          TEXT      NOT NULL,
	email         TEXT      NOT NULL UNIQUE,
	is_active     BOOLEAN   NOT NULL DEFAULT 1,
	roles         TEXT      NOT NULL DEFAULT '{}',
	password_hash BLOB      NOT NULL,
	created_at    TIMESTAMP NOT NULL,
	updated_at    TIMESTAMP NOT NULL,
	last_login    TIMESTAMP NULL
);
CREATE TABLE grade (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	name         TEXT      NOT NULL,
	curator_name TEXT      NOT NULL DEFAULT '',
	curator_id   TEXT      NULL,
	created_at   TIMESTAMP NOT NULL,
	UNIQUE (name, curator_name)
);
CREATE TABLE subject (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT      NOT NULL UNIQUE,
	created_at TIMESTAMP NOT NULL
);
CREATE TABLE student (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT      NOT NULL,
	grade_id   INTEGER   NOT NULL REFERENCES grade (id) ON DELETE CASCADE,
	created_at TIMESTAMP NOT NULL,
	UNIQUE (grade_id, name)
);
CREATE TABLE score (
	id                   INTEGER PRIMARY KEY AUTOINCREMENT,
	student_id           INTEGER   NOT NULL REFERENCES student (id),
	subject_id           INTEGER   NOT NULL REFERENCES subject (id),
	grade_id             INTEGER   NOT NULL REFERENCES grade (id),
	subgroup_id          INTEGER   NULL,
	semester             INTEGER   NOT NULL,
	academic_year        TEXT      NOT NULL,
	teacher_name         TEXT      NOT NULL DEFAULT '',
	previous_class_score REAL      NULL,
	teacher_score        REAL      NULL,
	actual_q1            REAL      NULL,
	actual_q2            REAL      NULL,
	actual_q3            REAL      NULL,
	actual_q4            REAL      NULL,
	predicted_q1         REAL      NOT NULL DEFAULT 0,
	predicted_q2         REAL      NOT NULL DEFAULT 0,
	predicted_q3         REAL      NOT NULL DEFAULT 0,
	predicted_q4         REAL      NOT NULL DEFAULT 0,
	danger_level         INTEGER   NOT NULL DEFAULT 0,
	delta_percentage     REAL      NOT NULL DEFAULT 0,
	created_at           TIMESTAMP NOT NULL,
	updated_at           TIMESTAMP NOT NULL,
	UNIQUE (student_id, subject_id, semester)
);
CREATE TABLE grade_assignment (
	user_id    TEXT    NOT NULL,
	grade_id   INTEGER NOT NULL,
	subject_id INTEGER NULL
);
CREATE TABLE weight_set (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	name           TEXT      NOT NULL UNIQUE,
	previous_class REAL      NOT NULL,
	teacher        REAL      NOT NULL,
	quarters       REAL      NOT NULL,
	is_active      BOOLEAN   NOT NULL DEFAULT 0,
	created_at     TIMESTAMP NOT NULL,
	updated_at     TIMESTAMP NOT NULL
);
CREATE UNIQUE INDEX weight_set_single_active_idx ON weight_set (is_active) WHERE is_active;
CREATE TABLE column_alias (
	field   TEXT PRIMARY KEY,
	aliases TEXT NOT NULL
);
`

// OpenSQLite returns a fresh in-memory database with the schema applied.
func OpenSQLite(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite(): %v", err)
	}
	// every connection to :memory: is a new database
	db.SetMaxOpenConns(1)
	if _, err = db.Exec(SQLiteSchema); err != nil {
		t.Fatalf("OpenSQLite(): creating schema: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}
