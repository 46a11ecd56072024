package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/trezcool/portal/core"
)

// Engines
const (
	Postgres = "postgres"
	SQLite   = "sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationsDir = "migrations"

func init() {
	// modernc's driver name is unknown to sqlx
	sqlx.BindDriver(SQLite, sqlx.QUESTION)
}

func postgresDSN(dbName string, admin bool, conf *core.Config) string {
	user := url.UserPassword(conf.Database.User, conf.Database.Password)
	if admin && conf.Database.AdminUser != "" {
		user = url.UserPassword(conf.Database.AdminUser, conf.Database.AdminPassword)
	}

	sslMode := "require"
	if conf.Database.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   Postgres,
		User:     user,
		Host:     conf.Database.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// sqliteDSN resolves the database name to a file under the data dir, unless it is in-memory.
func sqliteDSN(conf *core.Config) string {
	name := conf.Database.Name
	if strings.Contains(name, ":memory:") || strings.HasPrefix(name, "file:") {
		return name
	}
	if filepath.Ext(name) == "" {
		name += ".db"
	}
	if !filepath.IsAbs(name) {
		name = filepath.Join(conf.Store.DataDir, name)
	}
	return "file:" + name + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// Open opens the configured database and waits for it to be ready.
func Open(conf *core.Config) (*sqlx.DB, error) {
	switch conf.Database.Engine {
	case Postgres:
		db, err := sqlx.Open(Postgres, postgresDSN(conf.Database.Name, false, conf))
		if err != nil {
			return nil, errors.Wrap(err, "opening database")
		}
		if err = ping(db.DB); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	case SQLite:
		if conf.Store.DataDir != "" {
			if err := os.MkdirAll(conf.Store.DataDir, 0o755); err != nil {
				return nil, errors.Wrap(err, "creating data dir")
			}
		}
		return OpenSQLite(sqliteDSN(conf))
	}
	return nil, errors.Errorf("unknown database engine %q", conf.Database.Engine)
}

// OpenSQLite opens an SQLite database. In-memory databases are limited to one connection
// since every connection would get its own database.
func OpenSQLite(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open(SQLite, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}
	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "pinging database")
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sql.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

func exists(db *sql.DB, query string, args ...interface{}) (bool, error) {
	var found bool
	rows, err := db.Query(query, args...)
	if err != nil {
		return false, err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		if err = rows.Scan(&found); err != nil {
			return false, err
		}
	}
	return found, rows.Err()
}

func createAppUser(db *sql.DB, conf *core.Config) error {
	if conf.Database.User == "" {
		return nil
	}

	found, err := exists(db, "SELECT true FROM pg_roles WHERE rolname = $1", conf.Database.User)
	if err != nil {
		return errors.Wrap(err, "checking app user")
	}
	if !found {
		q := fmt.Sprintf("CREATE USER %s CREATEDB ENCRYPTED PASSWORD '%s'", conf.Database.User, conf.Database.Password)
		if _, err = db.Exec(q); err != nil {
			return errors.Wrap(err, "creating app user")
		}
	}
	return nil
}

func createDB(db *sql.DB, conf *core.Config) error {
	found, err := exists(db, "SELECT true FROM pg_database WHERE datname = $1", conf.Database.Name)
	if err != nil {
		return errors.Wrap(err, "checking DB")
	}
	if !found {
		if _, err = db.Exec(fmt.Sprintf("CREATE DATABASE %s", conf.Database.Name)); err != nil {
			return errors.Wrap(err, "creating database")
		}
	}
	return nil
}

// CreateIfNotExist creates the postgres app user and database. SQLite databases are created on open.
func CreateIfNotExist(conf *core.Config) error {
	if conf.Database.Engine != Postgres {
		return nil
	}

	// connect as admin
	admin, err := sql.Open(Postgres, postgresDSN("postgres", true, conf))
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = admin.Close() }()

	if err = ping(admin); err != nil {
		return errors.Wrap(err, "pinging database")
	}
	if err = createAppUser(admin, conf); err != nil {
		return errors.Wrap(err, "creating app user")
	}

	// create DB as app user
	db, err := sql.Open(Postgres, postgresDSN("postgres", false, conf))
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = db.Close() }()

	if err = createDB(db, conf); err != nil {
		return errors.Wrap(err, "creating database")
	}
	return nil
}

func dialect(db *sqlx.DB) string {
	if db.DriverName() == SQLite {
		return "sqlite3"
	}
	return db.DriverName()
}

// RunMigration runs a goose command (up, down, status, ...) against the embedded migrations.
func RunMigration(ctx context.Context, command string, db *sqlx.DB, args ...string) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect(dialect(db)); err != nil {
		return errors.Wrap(err, "setting migration dialect")
	}
	return goose.RunContext(ctx, command, db.DB, migrationsDir, args...)
}

func Migrate(ctx context.Context, db *sqlx.DB) error {
	if err := RunMigration(ctx, "up", db); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}
