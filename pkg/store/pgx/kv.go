package pgx

import (
	"context"
	"errors"

	pgxv5 "github.com/jackc/pgx/v5"
)

// KVStorage stores namespaced opaque records in PostgreSQL.
type KVStorage struct {
	conn Conn
}

// NewKVStorage creates a key-value store on the given connection.
func NewKVStorage(conn Conn) *KVStorage {
	return &KVStorage{conn: conn}
}

func (s *KVStorage) Get(ctx context.Context, namespace, id string) ([]byte, error) {
	var value []byte
	err := s.conn.QueryRow(ctx,
		`SELECT value FROM kv_items WHERE namespace = $1 AND id = $2`,
		namespace, id,
	).Scan(&value)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *KVStorage) Upsert(ctx context.Context, namespace, id string, value []byte) error {
	_, err := s.conn.Exec(ctx,
		`INSERT INTO kv_items (namespace, id, value) VALUES ($1, $2, $3)
		 ON CONFLICT (namespace, id) DO UPDATE SET value = EXCLUDED.value`,
		namespace, id, value,
	)
	return err
}

func (s *KVStorage) Delete(ctx context.Context, namespace, id string) error {
	_, err := s.conn.Exec(ctx,
		`DELETE FROM kv_items WHERE namespace = $1 AND id = $2`,
		namespace, id,
	)
	return err
}

func (s *KVStorage) List(ctx context.Context, namespace string) (map[string][]byte, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT id, value FROM kv_items WHERE namespace = $1`,
		namespace,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]byte)
	for rows.Next() {
		var id string
		var value []byte
		if err := rows.Scan(&id, &value); err != nil {
			return nil, err
		}
		out[id] = value
	}
	return out, rows.Err()
}
