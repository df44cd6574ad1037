package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/limbo/habitsync/pkg/entity"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/repository_mocks.go -package=mocks

type UsersRepositoryI interface {
	// Creates new user in database, fills ID and CreatedAt on success
	Create(ctx context.Context, user *entity.User) error
	// Looks up user by name. Can be used for login
	FindByName(ctx context.Context, name string) (*entity.User, error)
	// Looks up user by uid. Can be used for authorization middleware
	FindByID(ctx context.Context, uid uuid.UUID) (*entity.User, error)
}

// DocumentsRepositoryI stores one JSON document per path. Documents are
// opaque here, the codec lives in entity.
type DocumentsRepositoryI interface {
	// Returns raw document stored at path or ErrDocumentNotFound
	Get(ctx context.Context, path string) ([]byte, error)
	// Stores doc only if nothing exists at path. Reports whether it was written
	CreateIfAbsent(ctx context.Context, path string, doc []byte) (bool, error)
	// Overwrites the whole document at path
	Put(ctx context.Context, path string, doc []byte) error
	// Removes document at path
	Delete(ctx context.Context, path string) error
}

type DBConfig interface {
	ConnString() string
}

type PgConnection interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PGCfg struct {
	Address  string
	Username string
	Password string
	DB       string
	SSLMode  string
}

func (pgcfg *PGCfg) ConnString() string {
	s := fmt.Sprintf("postgresql://%s:%s@%s/%s", pgcfg.Username, pgcfg.Password, pgcfg.Address, pgcfg.DB)
	if pgcfg.SSLMode != "" {
		s += "?sslmode=" + pgcfg.SSLMode
	}
	return s
}
