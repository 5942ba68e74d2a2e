// Package database gives scripts and the embedding application a SQL
// store. Scripts reach it through the 'db' namespace of host functions;
// the service uses the credential table directly.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/crypto/bcrypt"

	"github.com/vara-lang/vara/object"
	"github.com/vara-lang/vara/token"

	// SQL drivers

	_ "github.com/go-sql-driver/mysql"  // MariaDB & MySQL
	_ "github.com/lib/pq"               // Postgres
	_ "github.com/nakagami/firebirdsql" // Firebird
	_ "github.com/sijms/go-ora"         // Oracle
	_ "modernc.org/sqlite"              // SQLite
)

// List of SQL drivers for when I want to import more: https://zchee.github.io/golang-wiki/SQLDrivers/

var drivers = map[string]string{"Firebird SQL": "firebirdsql", "MariaDB": "mysql", "MySQL": "mysql",
	"Oracle": "oracle", "Postgres": "postgres", "SQLite": "sqlite"}

func GetSortedDrivers() []string {
	dr := []string{}
	for k := range drivers {
		dr = append(dr, k)
	}
	sort.Strings(dr)
	return dr
}

// A Store wraps the open connection together with what the host functions
// need to know about it.
type Store struct {
	DB     *sql.DB
	Driver string
}

func Open(driver, host, port, db, user, password string, tok token.Token) (*Store, *object.Error) {
	driverName, ok := drivers[driver]
	if !ok {
		return nil, object.CreateErr("db/driver", tok, driver)
	}
	connectionString := fmt.Sprintf("host=%v port=%v dbname=%v user=%v password=%v sslmode=disable",
		host, port, db, user, password)
	if driverName == "sqlite" {
		connectionString = db
	}
	sqlObj, connectionError := sql.Open(driverName, connectionString)
	if connectionError != nil {
		return nil, object.CreateErr("db/open", tok, connectionError.Error())
	}
	if driverName == "sqlite" {
		// An in-memory SQLite database exists per connection, so the
		// pool must not open a second one.
		sqlObj.SetMaxOpenConns(1)
	}
	if err := sqlObj.Ping(); err != nil {
		return nil, object.CreateErr("db/open", tok, err.Error())
	}
	return &Store{DB: sqlObj, Driver: driver}, nil
}

// Query runs a SELECT and shapes the result for the language: a list of
// maps, one per row, keyed by column name.
func (s *Store) Query(ctx context.Context, query string, args ...any) (*object.List, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	result := object.NewList()
	for rows.Next() {
		holders := make([]any, len(columns))
		for i := range holders {
			holders[i] = new(any)
		}
		if err := rows.Scan(holders...); err != nil {
			return nil, err
		}
		row := object.NewMap()
		for i, column := range columns {
			key := &object.String{Value: column}
			row.Pairs[key.HashKey()] = object.MapPair{Key: key, Value: toObject(*holders[i].(*any))}
		}
		result.Elements = result.Elements.Conj(object.Object(row))
	}
	return result, rows.Err()
}

// Exec runs a statement and reports the number of rows it touched.
func (s *Store) Exec(ctx context.Context, query string, args ...any) (*object.Integer, error) {
	result, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		affected = 0
	}
	return &object.Integer{Value: affected}, nil
}

// toObject maps what database/sql hands back onto the language's types.
func toObject(value any) object.Object {
	switch value := value.(type) {
	case nil:
		return object.NULL
	case int64:
		return &object.Integer{Value: value}
	case float64:
		return &object.Float{Value: value}
	case bool:
		return object.MakeBool(value)
	case string:
		return &object.String{Value: value}
	case []byte:
		return &object.String{Value: string(value)}
	}
	return &object.String{Value: fmt.Sprintf("%v", value)}
}

// The credential table. Each username is stored with a bcrypt hash, never
// the password itself.

func (s *Store) CreateUserTable(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS _Users (
    username varchar(32),
    password varchar(60),
PRIMARY KEY (username))`
	_, err := s.DB.ExecContext(ctx, query)
	return err
}

func (s *Store) AddUser(ctx context.Context, username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	query := `INSERT INTO _Users(username, password)
	VALUES ($1, $2)`
	_, err = s.DB.ExecContext(ctx, query, username, string(hash))
	return err
}

var errBadCredentials = errors.New("unrecognized combination of username and password")

func (s *Store) ValidateUser(ctx context.Context, username, password string) error {
	var hash string
	row := s.DB.QueryRowContext(ctx, "SELECT password FROM _Users WHERE username = $1", username)
	if err := row.Scan(&hash); err != nil {
		if err == sql.ErrNoRows {
			return errBadCredentials
		}
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return errBadCredentials
	}
	return nil
}
