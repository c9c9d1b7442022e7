package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "embed"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"golang.org/x/exp/slog"
)

//go:embed schema_postgres.sql
var postgresSchema string

//go:embed schema_sqlite.sql
var sqliteSchema string

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

var (
	ErrUserExists    = errors.New("database: username or email already taken")
	ErrUserNotFound  = errors.New("database: user not found")
	ErrPhotoNotFound = errors.New("database: photo not found")
)

// Store is the persistence surface used by the API server.
type Store interface {
	CreateUser(ctx context.Context, u User) (User, error)
	GetUserByID(ctx context.Context, id string) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	CreatePhoto(ctx context.Context, p Photo) (Photo, error)
	GetPhotoByID(ctx context.Context, id string) (Photo, error)
	ListPhotos(ctx context.Context) ([]Photo, error)
	UpdatePhoto(ctx context.Context, p Photo) (Photo, error)
	DeletePhoto(ctx context.Context, id, ownerID string) error
	Ping(ctx context.Context) error
}

type SQLDatabase struct {
	db     *sql.DB
	driver string
}

func NewSQLDatabase(ctx context.Context, driver, dsn string) (*SQLDatabase, error) {
	var schema string
	switch driver {
	case DriverPostgres:
		schema = postgresSchema
	case DriverSQLite:
		schema = sqliteSchema
	default:
		return nil, fmt.Errorf("database: unsupported driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	if driver == DriverSQLite {
		// each :memory: connection is its own database
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(time.Hour)
	}

	sd := &SQLDatabase{db: db, driver: driver}
	if err := sd.db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	slog.Debug("Database pinged", "driver", driver)

	if _, err := sd.db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("database: create schema: %w", err)
	}

	slog.Info("Database schema ready", "driver", driver)

	return sd, nil
}

func (sd *SQLDatabase) Close() error {
	return sd.db.Close()
}

func (sd *SQLDatabase) Ping(ctx context.Context) error {
	return sd.db.PingContext(ctx)
}

func (sd *SQLDatabase) CreateUser(ctx context.Context, u User) (User, error) {
	const createUser = `
	INSERT INTO users (id, username, email, password_hash, created_at)
	VALUES($1, $2, $3, $4, $5)
	`

	if u.ID == "" {
		u.ID = newID()
	}

	_, err := sd.db.ExecContext(ctx, createUser, u.ID, u.Username, u.Email, u.PasswordHash, u.CreatedAt)
	if isUniqueViolation(err) {
		return User{}, ErrUserExists
	}
	if err != nil {
		return User{}, err
	}

	return u, nil
}

func (sd *SQLDatabase) GetUserByID(ctx context.Context, id string) (User, error) {
	const getUserByID = `
	SELECT
		id,
		username,
		email,
		password_hash,
		created_at
	FROM users
	WHERE id = $1
	`

	return sd.scanUser(sd.db.QueryRowContext(ctx, getUserByID, id))
}

func (sd *SQLDatabase) GetUserByUsername(ctx context.Context, username string) (User, error) {
	const getUserByUsername = `
	SELECT
		id,
		username,
		email,
		password_hash,
		created_at
	FROM users
	WHERE username = $1
	`

	return sd.scanUser(sd.db.QueryRowContext(ctx, getUserByUsername, username))
}

func (sd *SQLDatabase) scanUser(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}

	return u, err
}

func (sd *SQLDatabase) CreatePhoto(ctx context.Context, p Photo) (Photo, error) {
	const createPhoto = `
	INSERT INTO photos (id, photo, name, description, owner_id, created_at, updated_at)
	VALUES($1, $2, $3, $4, $5, $6, $7)
	`

	if p.ID == "" {
		p.ID = newID()
	}

	_, err := sd.db.ExecContext(ctx, createPhoto,
		p.ID, p.Photo, p.Name, p.Description, p.OwnerID, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return Photo{}, err
	}

	return p, nil
}

func (sd *SQLDatabase) GetPhotoByID(ctx context.Context, id string) (Photo, error) {
	const getPhotoByID = `
	SELECT
		p.id,
		p.photo,
		p.name,
		p.description,
		p.owner_id,
		COALESCE(u.username, ''),
		p.created_at,
		p.updated_at
	FROM photos p
	LEFT JOIN users u ON u.id = p.owner_id
	WHERE p.id = $1
	`

	var p Photo
	err := sd.db.QueryRowContext(ctx, getPhotoByID, id).Scan(
		&p.ID,
		&p.Photo,
		&p.Name,
		&p.Description,
		&p.OwnerID,
		&p.OwnerUsername,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Photo{}, ErrPhotoNotFound
	}

	return p, err
}

func (sd *SQLDatabase) ListPhotos(ctx context.Context) ([]Photo, error) {
	const listPhotos = `
	SELECT
		p.id,
		p.photo,
		p.name,
		p.description,
		p.owner_id,
		COALESCE(u.username, ''),
		p.created_at,
		p.updated_at
	FROM photos p
	LEFT JOIN users u ON u.id = p.owner_id
	ORDER BY p.created_at DESC, p.id DESC
	`

	rows, err := sd.db.QueryContext(ctx, listPhotos)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Photo{}

	for rows.Next() {
		var p Photo
		if err := rows.Scan(
			&p.ID,
			&p.Photo,
			&p.Name,
			&p.Description,
			&p.OwnerID,
			&p.OwnerUsername,
			&p.CreatedAt,
			&p.UpdatedAt,
		); err != nil {
			return nil, err
		}

		items = append(items, p)
	}

	if err := rows.Close(); err != nil {
		return nil, err
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

// UpdatePhoto writes name, description and updated_at for p.ID, provided
// p.OwnerID still owns it. Concurrent writers race; the last one wins.
func (sd *SQLDatabase) UpdatePhoto(ctx context.Context, p Photo) (Photo, error) {
	const updatePhoto = `
	UPDATE photos
	SET name = $1, description = $2, updated_at = $3
	WHERE id = $4 AND owner_id = $5
	`

	res, err := sd.db.ExecContext(ctx, updatePhoto, p.Name, p.Description, p.UpdatedAt, p.ID, p.OwnerID)
	if err != nil {
		return Photo{}, err
	}

	if err := expectOneRow(res, ErrPhotoNotFound); err != nil {
		return Photo{}, err
	}

	return sd.GetPhotoByID(ctx, p.ID)
}

func (sd *SQLDatabase) DeletePhoto(ctx context.Context, id, ownerID string) error {
	const deletePhotoByID = `
	DELETE FROM photos
	WHERE id = $1 AND owner_id = $2
	`

	res, err := sd.db.ExecContext(ctx, deletePhotoByID, id, ownerID)
	if err != nil {
		return err
	}

	return expectOneRow(res, ErrPhotoNotFound)
}

func expectOneRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		return notFound
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}

	return false
}

func newID() string {
	return uuid.NewString()
}
