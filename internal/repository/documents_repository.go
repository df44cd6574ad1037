package repository

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	errorvalues "github.com/limbo/habitsync/internal/error_values"
)

// DocumentPath is where one identity's habit document lives.
func DocumentPath(appID, identity string) string {
	return fmt.Sprintf("artifacts/%s/users/%s/data/userHabits", appID, identity)
}

type DocumentsRepository struct {
	conn PgConnection
}

func NewDocumentsRepo(cfg DBConfig) *DocumentsRepository {
	pool, err := Connect(context.Background(), cfg)
	if err != nil {
		log.Fatal("connecting documentsRepo error: " + err.Error())
	}
	return &DocumentsRepository{
		conn: pool,
	}
}

func NewDocumentsRepoWithConn(conn PgConnection) *DocumentsRepository {
	return &DocumentsRepository{
		conn: conn,
	}
}

func (dr *DocumentsRepository) Get(ctx context.Context, path string) ([]byte, error) {
	var doc []byte
	row := dr.conn.QueryRow(ctx, `SELECT body FROM habit_documents WHERE path = $1;`, path)
	if err := row.Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorvalues.ErrDocumentNotFound
		}
		return nil, errors.New("reading document error: " + err.Error())
	}
	return doc, nil
}

func (dr *DocumentsRepository) CreateIfAbsent(ctx context.Context, path string, doc []byte) (bool, error) {
	ct, err := dr.conn.Exec(ctx, `INSERT INTO habit_documents (path, body) VALUES ($1, $2) ON CONFLICT (path) DO NOTHING;`,
		path, doc)
	if err != nil {
		return false, errors.New("creating document error: " + err.Error())
	}
	return ct.RowsAffected() == 1, nil
}

func (dr *DocumentsRepository) Put(ctx context.Context, path string, doc []byte) error {
	_, err := dr.conn.Exec(ctx, `INSERT INTO habit_documents (path, body) VALUES ($1, $2) `+
		`ON CONFLICT (path) DO UPDATE SET body = EXCLUDED.body, updated_at = now();`,
		path, doc)
	if err != nil {
		return errors.New("writing document error: " + err.Error())
	}
	return nil
}

func (dr *DocumentsRepository) Delete(ctx context.Context, path string) error {
	ct, err := dr.conn.Exec(ctx, `DELETE FROM habit_documents WHERE path = $1;`, path)
	if err != nil {
		return errors.New("deleting document error: " + err.Error())
	}
	if ct.RowsAffected() == 0 {
		return errorvalues.ErrDocumentNotFound
	}
	return nil
}
